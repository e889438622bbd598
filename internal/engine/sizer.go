// Package engine sizes and executes orders against the exchange.
package engine

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/your-org/momentum-growth-bot/internal/exchange/binance"
)

var (
	// ErrInvalidStop is returned when the stop does not sit below the entry.
	ErrInvalidStop = errors.New("stop loss must be positive and below entry price")
	// ErrInsufficientBalance is returned when the quote balance cannot fund
	// even the minimum tradable quantity.
	ErrInsufficientBalance = errors.New("insufficient quote balance")
	// ErrBelowMinQty is returned when the risk-derived quantity rounds below
	// the exchange's minimum lot size.
	ErrBelowMinQty = errors.New("computed quantity below exchange minimum lot size")
	// ErrBelowMinNotional is returned when the order value is below the
	// exchange's minimum notional.
	ErrBelowMinNotional = errors.New("order notional below exchange minimum")
)

// Sizer converts a risk budget into an exchange-valid order quantity.
type Sizer struct {
	riskPerTradePct float64
}

// NewSizer creates a sizer risking riskPerTradePct percent of the quote
// balance per trade.
func NewSizer(riskPerTradePct float64) *Sizer {
	return &Sizer{riskPerTradePct: riskPerTradePct}
}

// ComputeQuantity derives the base quantity for a new long position. The
// quantity risks at most riskPerTradePct of balance between entry and stop,
// never costs more than the available balance, and is aligned down to the
// symbol's lot step.
func (s *Sizer) ComputeQuantity(balance, entry, stop float64, f binance.SymbolFilters) (float64, error) {
	if stop <= 0 || stop >= entry {
		return 0, fmt.Errorf("%w: entry=%v stop=%v", ErrInvalidStop, entry, stop)
	}
	if balance <= 0 {
		return 0, ErrInsufficientBalance
	}

	riskBudget := balance * s.riskPerTradePct / 100.0
	raw := riskBudget / (entry - stop)
	if affordable := balance / entry; raw > affordable {
		raw = affordable
	}

	qty := AlignQuantity(raw, f.StepSize)
	if qty <= 0 || decimal.NewFromFloat(qty).LessThan(f.MinQty) {
		return 0, fmt.Errorf("%w: quantity=%v minQty=%s", ErrBelowMinQty, qty, f.MinQty)
	}
	notional := decimal.NewFromFloat(qty).Mul(decimal.NewFromFloat(entry))
	if notional.LessThan(f.MinNotional) {
		return 0, fmt.Errorf("%w: notional=%s minNotional=%s", ErrBelowMinNotional, notional, f.MinNotional)
	}
	return qty, nil
}

// AlignQuantity floors qty to an integer multiple of step. A zero step
// returns qty unchanged.
func AlignQuantity(qty float64, step decimal.Decimal) float64 {
	if step.IsZero() {
		return qty
	}
	d := decimal.NewFromFloat(qty)
	aligned := d.Div(step).Floor().Mul(step)
	f, _ := aligned.Float64()
	return f
}
