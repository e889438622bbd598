package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/momentum-growth-bot/internal/exchange/binance"
)

func filters(step, minQty, minNotional string) binance.SymbolFilters {
	return binance.SymbolFilters{
		StepSize:    decimal.RequireFromString(step),
		MinQty:      decimal.RequireFromString(minQty),
		MinNotional: decimal.RequireFromString(minNotional),
	}
}

func TestSizer_ComputeQuantity(t *testing.T) {
	s := NewSizer(1.0) // risk 1% of balance per trade

	t.Run("risk-based size aligned to step", func(t *testing.T) {
		// budget = 100, distance = 3, raw = 33.333...
		qty, err := s.ComputeQuantity(10000, 100, 97, filters("0.001", "0.001", "10"))
		require.NoError(t, err)
		assert.InDelta(t, 33.333, qty, 1e-9)
	})

	t.Run("capped by affordable balance", func(t *testing.T) {
		wide := NewSizer(50.0)
		// budget = 500, distance = 1, raw = 500 but only 10 are affordable.
		qty, err := wide.ComputeQuantity(1000, 100, 99, filters("0.001", "0.001", "10"))
		require.NoError(t, err)
		assert.InDelta(t, 10.0, qty, 1e-9)
	})

	t.Run("invalid stop", func(t *testing.T) {
		_, err := s.ComputeQuantity(10000, 100, 100, filters("0.001", "0.001", "10"))
		assert.ErrorIs(t, err, ErrInvalidStop)

		_, err = s.ComputeQuantity(10000, 100, -1, filters("0.001", "0.001", "10"))
		assert.ErrorIs(t, err, ErrInvalidStop)
	})

	t.Run("zero balance", func(t *testing.T) {
		_, err := s.ComputeQuantity(0, 100, 97, filters("0.001", "0.001", "10"))
		assert.ErrorIs(t, err, ErrInsufficientBalance)
	})

	t.Run("rounds below minimum lot", func(t *testing.T) {
		// budget = 1, distance = 2, raw = 0.5 which floors to 0 on step 1.
		tiny := NewSizer(1.0)
		_, err := tiny.ComputeQuantity(100, 100, 98, filters("1", "1", "10"))
		assert.ErrorIs(t, err, ErrBelowMinQty)
	})

	t.Run("below minimum notional", func(t *testing.T) {
		// budget = 1, distance = 1, qty = 1, notional = 100 < 500.
		_, err := s.ComputeQuantity(100, 100, 99, filters("0.001", "0.001", "500"))
		assert.ErrorIs(t, err, ErrBelowMinNotional)
	})
}

func TestAlignQuantity(t *testing.T) {
	step := decimal.RequireFromString("0.001")
	assert.InDelta(t, 33.333, AlignQuantity(33.33391, step), 1e-9)
	assert.InDelta(t, 0.0, AlignQuantity(0.0004, step), 1e-9)
	assert.InDelta(t, 5.0, AlignQuantity(5.0, step), 1e-9)
	assert.Equal(t, 7.5, AlignQuantity(7.5, decimal.Zero), "zero step leaves quantity unchanged")
}
