// Package store persists positions and recovers them across restarts.
package store

import (
	"context"
	"time"

	"github.com/your-org/momentum-growth-bot/internal/position"
)

// Closure carries the terminal state written when a position closes.
type Closure struct {
	ID                 int64
	Reason             position.CloseReason
	ClosingPrice       float64
	ClosedAt           time.Time
	ProfitPct          float64
	ProfitableStopLoss bool

	// FilledQuantity is the actual executed quantity for live closes;
	// nil leaves the stored quantity untouched.
	FilledQuantity *float64
}

// Gateway is the durable store consulted on every position state transition.
// Close is conditioned on the current status; zero rows affected means
// another path already closed the position and is a valid, non-error outcome.
type Gateway interface {
	Insert(ctx context.Context, p *position.Position) (int64, error)
	UpdateLevels(ctx context.Context, id int64, target, stop, confidence float64) error
	UpdateTrailing(ctx context.Context, id int64, peak, stop float64, active bool) error
	Close(ctx context.Context, c Closure) (int64, error)
	FetchActive(ctx context.Context) ([]position.Position, error)
}

// Recover rebuilds the registry from the durable store at startup. The rows
// with status open or updating are the sole source; nothing is fabricated
// from memory. It returns the number of positions restored.
func Recover(ctx context.Context, g Gateway, reg *position.Registry) (int, error) {
	active, err := g.FetchActive(ctx)
	if err != nil {
		return 0, err
	}
	for _, p := range active {
		reg.Restore(p)
	}
	return len(active), nil
}
