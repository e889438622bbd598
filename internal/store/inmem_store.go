package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/your-org/momentum-growth-bot/internal/position"
)

// InMemStore is an in-memory implementation of Gateway for testing. It
// reproduces the conditional-close semantics of the SQL gateway, including
// the zero-rows outcome when a position is already closed.
type InMemStore struct {
	mu        sync.Mutex
	nextID    int64
	positions map[int64]*position.Position

	closeCalls int
	closeErr   error

	trailingWrites int
}

// NewInMemStore creates an empty InMemStore.
func NewInMemStore() *InMemStore {
	return &InMemStore{
		nextID:    1,
		positions: make(map[int64]*position.Position),
	}
}

// Insert stores a new position and assigns it an id.
func (s *InMemStore) Insert(ctx context.Context, p *position.Position) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	cp := p.Clone()
	cp.ID = id
	s.positions[id] = &cp
	return id, nil
}

// UpdateLevels revises target/stop/confidence of a still-active position.
func (s *InMemStore) UpdateLevels(ctx context.Context, id int64, target, stop, confidence float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.positions[id]
	if !ok || p.Status == position.StatusClosed {
		return fmt.Errorf("position %d is not active, levels not updated", id)
	}
	p.TargetPrice = target
	p.StopLoss = stop
	p.Confidence = confidence
	return nil
}

// UpdateTrailing persists trailing state for a still-active position.
func (s *InMemStore) UpdateTrailing(ctx context.Context, id int64, peak, stop float64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.trailingWrites++
	p, ok := s.positions[id]
	if !ok || p.Status == position.StatusClosed {
		return nil
	}
	p.TrailingActive = active
	p.TrailingPeak = peak
	p.TrailingStop = stop
	return nil
}

// Close writes the terminal state if the position is still active, returning
// the number of rows affected (0 or 1).
func (s *InMemStore) Close(ctx context.Context, c Closure) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closeCalls++
	if s.closeErr != nil {
		return 0, s.closeErr
	}

	p, ok := s.positions[c.ID]
	if !ok || p.Status == position.StatusClosed {
		return 0, nil
	}
	p.Status = position.StatusClosed
	p.ClosingReason = c.Reason
	p.ClosingPrice = c.ClosingPrice
	p.ClosedAt = c.ClosedAt
	p.ProfitPct = c.ProfitPct
	p.ProfitableStopLoss = c.ProfitableStopLoss
	if c.FilledQuantity != nil {
		p.Quantity = *c.FilledQuantity
	}
	return 1, nil
}

// FetchActive returns every stored position with status open or updating.
func (s *InMemStore) FetchActive(ctx context.Context) ([]position.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []position.Position
	for _, p := range s.positions {
		if p.Status == position.StatusOpen || p.Status == position.StatusUpdating {
			out = append(out, p.Clone())
		}
	}
	return out, nil
}

// Seed inserts a position with an explicit id and status for test setup.
func (s *InMemStore) Seed(p position.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := p.Clone()
	s.positions[p.ID] = &cp
	if p.ID >= s.nextID {
		s.nextID = p.ID + 1
	}
}

// Get returns a copy of the stored position.
func (s *InMemStore) Get(id int64) (position.Position, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.positions[id]
	if !ok {
		return position.Position{}, false
	}
	return p.Clone(), true
}

// CloseCalls reports how many times Close was invoked.
func (s *InMemStore) CloseCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCalls
}

// TrailingWrites reports how many times UpdateTrailing was invoked.
func (s *InMemStore) TrailingWrites() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trailingWrites
}

// FailCloses makes subsequent Close calls return err until reset with nil.
func (s *InMemStore) FailCloses(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeErr = err
}
