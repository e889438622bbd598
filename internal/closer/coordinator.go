package closer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/your-org/momentum-growth-bot/internal/alert"
	"github.com/your-org/momentum-growth-bot/internal/engine"
	"github.com/your-org/momentum-growth-bot/internal/position"
	"github.com/your-org/momentum-growth-bot/internal/store"
	"github.com/your-org/momentum-growth-bot/pkg/logger"
)

// ErrAlreadyClosing is returned when a closure for the position is already in
// flight or the position has already left the registry.
var ErrAlreadyClosing = errors.New("closure already in progress")

const (
	persistAttempts = 3
	persistBackoff  = 500 * time.Millisecond
)

// Coordinator serializes closures per position. A concurrent second trigger
// for the same position gets ErrAlreadyClosing and performs no side effect.
type Coordinator struct {
	registry *position.Registry
	gateway  store.Gateway
	exec     engine.ExecutionEngine
	alerts   *alert.Dispatcher

	claims       *ClaimSet
	sellTimeout  time.Duration
	workerTokens chan struct{}
	wg           sync.WaitGroup
}

// NewCoordinator creates a coordinator running at most maxConcurrent closure
// workers, each giving live sell orders sellTimeout to complete.
func NewCoordinator(registry *position.Registry, gateway store.Gateway, exec engine.ExecutionEngine, alerts *alert.Dispatcher, sellTimeout time.Duration, maxConcurrent int) *Coordinator {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Coordinator{
		registry:     registry,
		gateway:      gateway,
		exec:         exec,
		alerts:       alerts,
		claims:       NewClaimSet(),
		sellTimeout:  sellTimeout,
		workerTokens: make(chan struct{}, maxConcurrent),
	}
}

// RequestClose claims the position and dispatches the closure to a background
// worker. boundaryPrice is the stop or target level that fired; paper
// closures are recorded at this price, live closures at the actual fill.
// The call itself never blocks on network I/O.
func (c *Coordinator) RequestClose(snapshot position.Position, reason position.CloseReason, boundaryPrice float64) error {
	if !c.claims.Acquire(snapshot.ID) {
		return ErrAlreadyClosing
	}

	live, ok := c.registry.Remove(snapshot.ID)
	if !ok {
		c.claims.Release(snapshot.ID)
		return ErrAlreadyClosing
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.claims.Release(live.ID)

		c.workerTokens <- struct{}{}
		defer func() { <-c.workerTokens }()

		c.execute(live, reason, boundaryPrice)
	}()
	return nil
}

// execute runs the full closure: exchange exit, persistence, notification.
func (c *Coordinator) execute(p position.Position, reason position.CloseReason, boundaryPrice float64) {
	closingPrice := boundaryPrice
	var filledQty *float64

	if p.IsLive {
		ctx, cancel := context.WithTimeout(context.Background(), c.sellTimeout)
		fill, err := c.exec.Sell(ctx, p.Symbol, p.Quantity)
		cancel()
		if err != nil {
			logger.Errorf("[Closer] Sell failed for position %d (%s): %v", p.ID, p.Symbol, err)
			c.alerts.Critical("Sell order FAILED for %s (position %d): %v\nAutomatic closure is suspended; reconcile the fill and close it manually.", p.Symbol, p.ID, err)
			// A blind retry risks a duplicate order against a partial fill,
			// so the restored position is flagged for operator reconciliation
			// and the monitor leaves it alone.
			p.NeedsReconciliation = true
			c.registry.Restore(p)
			return
		}
		closingPrice = fill.Price
		filledQty = &fill.Quantity
	}

	profitPct := (closingPrice - p.EntryPrice) / p.EntryPrice * 100.0
	closure := store.Closure{
		ID:                 p.ID,
		Reason:             reason,
		ClosingPrice:       closingPrice,
		ClosedAt:           time.Now().UTC(),
		ProfitPct:          profitPct,
		ProfitableStopLoss: reason == position.ReasonStopLossHit && closingPrice > p.EntryPrice,
		FilledQuantity:     filledQty,
	}

	rows, err := c.persist(closure)
	if err != nil {
		c.alerts.Critical("Failed to persist closure of %s (position %d) after %d attempts: %v", p.Symbol, p.ID, persistAttempts, err)
		return
	}
	if rows == 0 {
		logger.Warnf("[Closer] Position %d was already closed elsewhere, skipping", p.ID)
		return
	}

	logger.Infof("[Closer] Position %d (%s) closed: reason=%s price=%v profit=%.2f%%", p.ID, p.Symbol, reason, closingPrice, profitPct)
	c.alerts.PositionClosed(&p, reason, closingPrice, profitPct)
}

func (c *Coordinator) persist(closure store.Closure) (int64, error) {
	var lastErr error
	for attempt := 1; attempt <= persistAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rows, err := c.gateway.Close(ctx, closure)
		cancel()
		if err == nil {
			return rows, nil
		}
		lastErr = err
		logger.Warnf("[Closer] Persist attempt %d/%d for position %d failed: %v", attempt, persistAttempts, closure.ID, err)
		if attempt < persistAttempts {
			time.Sleep(persistBackoff * time.Duration(attempt))
		}
	}
	return 0, lastErr
}

// Wait blocks until all in-flight closures finish. Used during shutdown.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}
