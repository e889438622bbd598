package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/your-org/momentum-growth-bot/internal/alert"
	"github.com/your-org/momentum-growth-bot/internal/position"
	"github.com/your-org/momentum-growth-bot/internal/store"
	"github.com/your-org/momentum-growth-bot/pkg/logger"
)

// TrailingController activates and ratchets trailing stops. The in-memory
// stop is always current; durable writes are rate-limited per position so a
// fast-moving market does not turn every tick into a database write.
type TrailingController struct {
	registry *position.Registry
	gateway  store.Gateway
	alerts   *alert.Dispatcher

	activationPct   float64
	distancePct     float64
	persistCooldown time.Duration

	mu          sync.Mutex
	lastPersist map[int64]time.Time
}

// NewTrailingController creates a controller. Trailing activates once price
// reaches entry*(1+activationPct); the stop then follows the peak at
// peak*(1-distancePct) and never moves down.
func NewTrailingController(registry *position.Registry, gateway store.Gateway, alerts *alert.Dispatcher, activationPct, distancePct float64, persistCooldown time.Duration) *TrailingController {
	return &TrailingController{
		registry:        registry,
		gateway:         gateway,
		alerts:          alerts,
		activationPct:   activationPct,
		distancePct:     distancePct,
		persistCooldown: persistCooldown,
		lastPersist:     make(map[int64]time.Time),
	}
}

// Observe feeds one price tick to the position's trailing state and returns
// the refreshed snapshot. The registry copy is mutated under its lock, so a
// ratcheted stop is in force for the very next check.
func (t *TrailingController) Observe(snap position.Position, price float64) position.Position {
	if !snap.TrailingActive && price < snap.EntryPrice*(1+t.activationPct) {
		return snap
	}

	var out position.Position
	var activated, moved bool
	err := t.registry.Update(snap.ID, func(p *position.Position) {
		switch {
		case !p.TrailingActive:
			if price >= p.EntryPrice*(1+t.activationPct) {
				p.TrailingActive = true
				p.TrailingPeak = price
				p.TrailingStop = price * (1 - t.distancePct)
				activated = true
			}
		case price > p.TrailingPeak:
			p.TrailingPeak = price
			if candidate := price * (1 - t.distancePct); candidate > p.TrailingStop {
				p.TrailingStop = candidate
				moved = true
			}
		}
		out = p.Clone()
	})
	if err != nil {
		// Position left the registry between snapshot and update.
		return snap
	}

	if activated {
		logger.Infof("[Trailing] Activated for position %d (%s): peak=%v stop=%v", out.ID, out.Symbol, out.TrailingPeak, out.TrailingStop)
		t.alerts.TrailingActivated(&out, out.TrailingPeak, out.TrailingStop)
	}
	if activated || moved {
		t.maybePersist(out, activated)
	}
	return out
}

// maybePersist writes trailing state asynchronously, at most once per
// cooldown window per position. Activation always writes.
func (t *TrailingController) maybePersist(p position.Position, force bool) {
	now := time.Now()
	t.mu.Lock()
	if !force && now.Sub(t.lastPersist[p.ID]) < t.persistCooldown {
		t.mu.Unlock()
		return
	}
	t.lastPersist[p.ID] = now
	t.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := t.gateway.UpdateTrailing(ctx, p.ID, p.TrailingPeak, p.TrailingStop, p.TrailingActive); err != nil {
			logger.Warnf("[Trailing] Failed to persist trailing state for position %d: %v", p.ID, err)
		}
	}()
}

// Forget drops persistence bookkeeping for a position that left the registry.
func (t *TrailingController) Forget(id int64) {
	t.mu.Lock()
	delete(t.lastPersist, id)
	t.mu.Unlock()
}
