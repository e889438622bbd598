// Package position defines the trading position model and the in-memory
// registry of open positions.
package position

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status is the lifecycle state of a position.
type Status string

const (
	// StatusOpen marks a position under active monitoring.
	StatusOpen Status = "open"
	// StatusUpdating marks a position whose target/stop is being revised.
	StatusUpdating Status = "updating"
	// StatusClosed is terminal; a position enters it exactly once.
	StatusClosed Status = "closed"
)

// CloseReason records why a position was closed.
type CloseReason string

const (
	ReasonTargetHit   CloseReason = "target_hit"
	ReasonStopLossHit CloseReason = "stop_loss_hit"
	ReasonManualClose CloseReason = "manual_close"
)

// Position holds the state of a single long trading position.
type Position struct {
	ID         int64
	Symbol     string
	EntryPrice float64
	Quantity   float64 // filled base quantity; set only for live trades
	IsLive     bool

	TargetPrice float64
	StopLoss    float64 // original protective stop, never mutated

	TrailingActive bool
	TrailingPeak   float64 // highest price seen since trailing activated
	TrailingStop   float64 // ratcheted stop; valid only while TrailingActive

	Status     Status
	Confidence float64 // model confidence of the originating signal

	// NeedsReconciliation marks a live position whose exit order failed.
	// The monitor keeps it visible but never triggers another automatic
	// closure; the operator closes it manually after reconciling the fill.
	NeedsReconciliation bool

	// StrategyMetadata is an opaque payload from the decision loop,
	// persisted and passed through unchanged.
	StrategyMetadata json.RawMessage

	OpenedAt time.Time

	// Terminal fields, populated on closure.
	ClosingReason      CloseReason
	ClosingPrice       float64
	ClosedAt           time.Time
	ProfitPct          float64
	ProfitableStopLoss bool
}

// Validate checks the invariants required of a newly opened long position.
func (p *Position) Validate() error {
	if p.Symbol == "" {
		return fmt.Errorf("position: symbol is empty")
	}
	if p.EntryPrice <= 0 {
		return fmt.Errorf("position %s: entry price %v must be positive", p.Symbol, p.EntryPrice)
	}
	if !(p.StopLoss < p.EntryPrice && p.EntryPrice < p.TargetPrice) {
		return fmt.Errorf("position %s: require stop %v < entry %v < target %v",
			p.Symbol, p.StopLoss, p.EntryPrice, p.TargetPrice)
	}
	return nil
}

// EffectiveStop returns the protective stop currently in force: the ratcheted
// trailing stop once trailing is active, floored at the original stop loss.
func (p *Position) EffectiveStop() float64 {
	if p.TrailingActive && p.TrailingStop > p.StopLoss {
		return p.TrailingStop
	}
	return p.StopLoss
}

// Clone returns a deep copy of the position.
func (p *Position) Clone() Position {
	cp := *p
	if p.StrategyMetadata != nil {
		cp.StrategyMetadata = make(json.RawMessage, len(p.StrategyMetadata))
		copy(cp.StrategyMetadata, p.StrategyMetadata)
	}
	return cp
}
