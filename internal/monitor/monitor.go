// Package monitor runs the price-evaluation loop over all open positions.
package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/your-org/momentum-growth-bot/internal/closer"
	"github.com/your-org/momentum-growth-bot/internal/position"
	"github.com/your-org/momentum-growth-bot/internal/pricecache"
	"github.com/your-org/momentum-growth-bot/pkg/logger"
)

// Closer accepts closure requests from the monitor.
type Closer interface {
	RequestClose(snapshot position.Position, reason position.CloseReason, boundaryPrice float64) error
}

// Monitor periodically evaluates every open position against the latest
// cached price. A position with no cached price yet, or whose price is
// older than maxPriceAge, is skipped for the cycle. Exit checks run stop
// first, so when one tick crosses both boundaries the position closes as
// a stop-loss. Positions flagged for reconciliation are left alone until
// an operator closes them manually.
type Monitor struct {
	registry    *position.Registry
	prices      *pricecache.Cache
	trailing    *TrailingController
	closer      Closer
	interval    time.Duration
	maxPriceAge time.Duration
}

// New creates a monitor. trailing may be nil when trailing stops are
// disabled; a non-positive maxPriceAge disables the staleness check.
func New(registry *position.Registry, prices *pricecache.Cache, trailing *TrailingController, c Closer, interval, maxPriceAge time.Duration) *Monitor {
	return &Monitor{
		registry:    registry,
		prices:      prices,
		trailing:    trailing,
		closer:      c,
		interval:    interval,
		maxPriceAge: maxPriceAge,
	}
}

// Run evaluates positions on a fixed interval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	logger.Infof("[Monitor] Starting evaluation loop, interval=%v", m.interval)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("[Monitor] Evaluation loop stopped")
			return
		case <-ticker.C:
			m.tick()
		}
	}
}

// tick runs one evaluation pass over a snapshot of the open positions.
func (m *Monitor) tick() {
	for _, snap := range m.registry.ListOpen() {
		if snap.NeedsReconciliation {
			continue
		}
		price, ok := m.prices.Get(snap.Symbol)
		if !ok {
			continue
		}
		if m.maxPriceAge > 0 {
			if age, known := m.prices.Age(snap.Symbol); known && age > m.maxPriceAge {
				logger.Debugf("[Monitor] Price for %s is %v old, skipping position %d this cycle", snap.Symbol, age, snap.ID)
				continue
			}
		}
		m.evaluate(snap, price)
	}
}

// evaluate applies the exit rules for one position at one price.
func (m *Monitor) evaluate(snap position.Position, price float64) {
	if stop := snap.EffectiveStop(); price <= stop {
		m.requestClose(snap, position.ReasonStopLossHit, stop)
		return
	}

	if m.trailing != nil {
		snap = m.trailing.Observe(snap, price)
		if stop := snap.EffectiveStop(); price <= stop {
			m.requestClose(snap, position.ReasonStopLossHit, stop)
			return
		}
	}

	if price >= snap.TargetPrice {
		m.requestClose(snap, position.ReasonTargetHit, snap.TargetPrice)
	}
}

func (m *Monitor) requestClose(snap position.Position, reason position.CloseReason, boundary float64) {
	err := m.closer.RequestClose(snap, reason, boundary)
	if err != nil {
		if errors.Is(err, closer.ErrAlreadyClosing) {
			logger.Debugf("[Monitor] Position %d already closing, skipping %s trigger", snap.ID, reason)
			return
		}
		logger.Errorf("[Monitor] Close request for position %d failed: %v", snap.ID, err)
		return
	}
	if m.trailing != nil {
		m.trailing.Forget(snap.ID)
	}
	logger.Infof("[Monitor] Position %d (%s) triggered %s at boundary %v", snap.ID, snap.Symbol, reason, boundary)
}
