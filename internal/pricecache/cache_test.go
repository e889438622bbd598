package pricecache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_SetAndGet(t *testing.T) {
	c := NewCache()

	_, ok := c.Get("BTCUSDT")
	assert.False(t, ok, "unseen symbol must report absence, not zero")

	c.Set("BTCUSDT", 65000.5)
	price, ok := c.Get("BTCUSDT")
	require.True(t, ok)
	assert.Equal(t, 65000.5, price)

	c.Set("BTCUSDT", 65010.0)
	price, _ = c.Get("BTCUSDT")
	assert.Equal(t, 65010.0, price, "last write wins")
}

func TestCache_GetMany(t *testing.T) {
	c := NewCache()
	c.Set("BTCUSDT", 65000.0)
	c.Set("ETHUSDT", 3200.0)

	got := c.GetMany([]string{"BTCUSDT", "ETHUSDT", "SOLUSDT"})
	assert.Equal(t, map[string]float64{"BTCUSDT": 65000.0, "ETHUSDT": 3200.0}, got)
	_, present := got["SOLUSDT"]
	assert.False(t, present)
}

func TestCache_Age(t *testing.T) {
	c := NewCache()

	_, ok := c.Age("BTCUSDT")
	assert.False(t, ok)

	c.Set("BTCUSDT", 65000.0)
	age, ok := c.Age("BTCUSDT")
	require.True(t, ok)
	assert.GreaterOrEqual(t, age.Nanoseconds(), int64(0))
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := NewCache()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(2)
		symbol := fmt.Sprintf("SYM%dUSDT", i)
		go func(s string) {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				c.Set(s, float64(j))
			}
		}(symbol)
		go func(s string) {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				c.Get(s)
			}
		}(symbol)
	}
	wg.Wait()
	assert.Equal(t, 8, c.Len())
}
