package position

import (
	"fmt"
	"sync"
)

// Registry is the in-memory authoritative set of open and updating
// positions. All mutation happens under the registry lock; readers receive
// copies so the monitor never iterates shared state while the decision loop
// mutates it.
type Registry struct {
	mu      sync.RWMutex
	byID    map[int64]*Position
	maxOpen int
}

// NewRegistry creates a Registry capped at maxOpen concurrent positions.
// A non-positive cap disables the limit.
func NewRegistry(maxOpen int) *Registry {
	return &Registry{
		byID:    make(map[int64]*Position),
		maxOpen: maxOpen,
	}
}

// Add inserts a position. It fails when the id is already tracked or the
// open-position cap is reached.
func (r *Registry) Add(p Position) error {
	if err := p.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[p.ID]; exists {
		return fmt.Errorf("registry: position %d already tracked", p.ID)
	}
	if r.maxOpen > 0 && len(r.byID) >= r.maxOpen {
		return fmt.Errorf("registry: open position limit %d reached", r.maxOpen)
	}
	cp := p.Clone()
	r.byID[p.ID] = &cp
	return nil
}

// Restore re-inserts a position without cap or duplicate checks. It is used
// by the closure coordinator to return a position to visibility after a
// failed live closure, and by startup recovery.
func (r *Registry) Restore(p Position) {
	r.mu.Lock()
	cp := p.Clone()
	r.byID[p.ID] = &cp
	r.mu.Unlock()
}

// Remove deletes a position by id and returns it, or false when absent.
func (r *Registry) Remove(id int64) (Position, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byID[id]
	if !ok {
		return Position{}, false
	}
	delete(r.byID, id)
	return p.Clone(), true
}

// Update applies mutate to the tracked position under the registry lock.
func (r *Registry) Update(id int64, mutate func(p *Position)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("registry: position %d not tracked", id)
	}
	mutate(p)
	return nil
}

// Get returns a copy of the tracked position.
func (r *Registry) Get(id int64) (Position, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byID[id]
	if !ok {
		return Position{}, false
	}
	return p.Clone(), true
}

// ListOpen returns a snapshot copy of every tracked position.
func (r *Registry) ListOpen() []Position {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Position, 0, len(r.byID))
	for _, p := range r.byID {
		out = append(out, p.Clone())
	}
	return out
}

// Len returns the number of tracked positions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// Reinforce revises the target/stop of an open position for a stronger
// incoming signal on the same symbol. The update is accepted only when the
// new confidence exceeds the recorded one by at least minGain; a closed or
// untracked position is never re-opened.
func (r *Registry) Reinforce(id int64, newTarget, newStop, newConfidence, minGain float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("registry: position %d not tracked", id)
	}
	if newConfidence < p.Confidence+minGain {
		return fmt.Errorf("registry: position %d reinforcement rejected: confidence %.4f below required %.4f",
			id, newConfidence, p.Confidence+minGain)
	}
	if !(newStop < p.EntryPrice && p.EntryPrice < newTarget) {
		return fmt.Errorf("registry: position %d reinforcement rejected: require stop %v < entry %v < target %v",
			id, newStop, p.EntryPrice, newTarget)
	}

	p.TargetPrice = newTarget
	// Never lower the protective boundary already in force.
	if newStop > p.StopLoss {
		p.StopLoss = newStop
	}
	p.Confidence = newConfidence
	return nil
}
