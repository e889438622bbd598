// Package closer coordinates position closures so each position is closed
// exactly once regardless of how many triggers fire.
package closer

import "sync"

// ClaimSet tracks which position ids have a closure in flight. Acquiring a
// claim is the single gate in front of every closure side effect.
type ClaimSet struct {
	mu  sync.Mutex
	ids map[int64]struct{}
}

// NewClaimSet creates an empty claim set.
func NewClaimSet() *ClaimSet {
	return &ClaimSet{ids: make(map[int64]struct{})}
}

// Acquire claims id. It returns false if a claim is already held.
func (c *ClaimSet) Acquire(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, held := c.ids[id]; held {
		return false
	}
	c.ids[id] = struct{}{}
	return true
}

// Release frees the claim on id.
func (c *ClaimSet) Release(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.ids, id)
}

// Held reports whether a claim on id is currently held.
func (c *ClaimSet) Held(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, held := c.ids[id]
	return held
}
