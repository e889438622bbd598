package position

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openPosition(id int64) Position {
	return Position{
		ID:          id,
		Symbol:      "BTCUSDT",
		EntryPrice:  100,
		StopLoss:    97,
		TargetPrice: 104,
		Confidence:  0.6,
		Status:      StatusOpen,
	}
}

func TestRegistry_AddRemove(t *testing.T) {
	r := NewRegistry(0)

	require.NoError(t, r.Add(openPosition(1)))
	assert.Error(t, r.Add(openPosition(1)), "duplicate id must be rejected")
	assert.Equal(t, 1, r.Len())

	got, ok := r.Remove(1)
	require.True(t, ok)
	assert.Equal(t, int64(1), got.ID)
	assert.Equal(t, 0, r.Len())

	_, ok = r.Remove(1)
	assert.False(t, ok, "second remove must miss")
}

func TestRegistry_MaxOpenCap(t *testing.T) {
	r := NewRegistry(2)
	require.NoError(t, r.Add(openPosition(1)))
	require.NoError(t, r.Add(openPosition(2)))

	err := r.Add(openPosition(3))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "limit")

	// Restore bypasses the cap so a failed closure never orphans a position.
	r.Restore(openPosition(3))
	assert.Equal(t, 3, r.Len())
}

func TestRegistry_ListOpenReturnsSnapshots(t *testing.T) {
	r := NewRegistry(0)
	require.NoError(t, r.Add(openPosition(1)))

	snap := r.ListOpen()
	require.Len(t, snap, 1)
	snap[0].StopLoss = 1.0

	stored, ok := r.Get(1)
	require.True(t, ok)
	if diff := cmp.Diff(openPosition(1), stored); diff != "" {
		t.Errorf("stored position mutated via snapshot (-want +got):\n%s", diff)
	}
}

func TestRegistry_Update(t *testing.T) {
	r := NewRegistry(0)
	require.NoError(t, r.Add(openPosition(1)))

	err := r.Update(1, func(p *Position) {
		p.TrailingActive = true
		p.TrailingPeak = 101
		p.TrailingStop = 100.19
	})
	require.NoError(t, err)

	got, _ := r.Get(1)
	assert.True(t, got.TrailingActive)
	assert.Equal(t, 101.0, got.TrailingPeak)

	assert.Error(t, r.Update(99, func(p *Position) {}))
}

func TestRegistry_Reinforce(t *testing.T) {
	r := NewRegistry(0)
	require.NoError(t, r.Add(openPosition(1))) // confidence 0.6

	t.Run("rejects insufficient confidence gain", func(t *testing.T) {
		err := r.Reinforce(1, 106, 98, 0.62, 0.05)
		require.Error(t, err)
		got, _ := r.Get(1)
		assert.Equal(t, 104.0, got.TargetPrice, "rejected reinforcement must not change levels")
	})

	t.Run("accepts stronger signal", func(t *testing.T) {
		require.NoError(t, r.Reinforce(1, 106, 98, 0.70, 0.05))
		got, _ := r.Get(1)
		assert.Equal(t, 106.0, got.TargetPrice)
		assert.Equal(t, 98.0, got.StopLoss)
		assert.Equal(t, 0.70, got.Confidence)
	})

	t.Run("never lowers the stop", func(t *testing.T) {
		require.NoError(t, r.Reinforce(1, 107, 95, 0.80, 0.05))
		got, _ := r.Get(1)
		assert.Equal(t, 98.0, got.StopLoss, "a weaker stop must not replace the one in force")
		assert.Equal(t, 107.0, got.TargetPrice)
	})

	t.Run("never revives an untracked position", func(t *testing.T) {
		r.Remove(1)
		assert.Error(t, r.Reinforce(1, 110, 99, 0.99, 0.05))
		assert.Equal(t, 0, r.Len())
	})
}

func TestRegistry_ConcurrentMutation(t *testing.T) {
	r := NewRegistry(0)
	var wg sync.WaitGroup
	for i := int64(1); i <= 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			p := openPosition(id)
			p.Symbol = fmt.Sprintf("SYM%dUSDT", id)
			if err := r.Add(p); err != nil {
				t.Errorf("add %d: %v", id, err)
			}
			r.ListOpen()
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 50, r.Len())
}
