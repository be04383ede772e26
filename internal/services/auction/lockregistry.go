package auction

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// LockRegistry hands out one exclusive section per auction id. Different ids
// never contend with each other; the registry mutex is only held to find or
// reclaim an entry, never while fn runs.
type LockRegistry struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
	timeout time.Duration
}

type lockEntry struct {
	sem  chan struct{}
	refs int
}

// NewLockRegistry returns a registry whose waits are bounded by timeout. A
// zero timeout leaves the bound to the caller's context.
func NewLockRegistry(timeout time.Duration) *LockRegistry {
	return &LockRegistry{
		entries: make(map[string]*lockEntry),
		timeout: timeout,
	}
}

// WithAuctionLock runs fn while holding the exclusive section for auctionID.
// The section is released on every exit path, panics included. If the lock
// can't be acquired in time ErrTimeout is returned and fn never runs.
func (r *LockRegistry) WithAuctionLock(ctx context.Context, auctionID string, fn func() error) error {
	e := r.ref(auctionID)
	defer r.unref(auctionID, e)

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("acquire lock for auction %s: %w", auctionID, ErrTimeout)
	}
	defer func() { <-e.sem }()

	return fn()
}

func (r *LockRegistry) ref(id string) *lockEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		e = &lockEntry{sem: make(chan struct{}, 1)}
		r.entries[id] = e
	}
	e.refs++
	return e
}

func (r *LockRegistry) unref(id string, e *lockEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(r.entries, id)
	}
}

// size is the number of live entries; used by tests to check reclamation.
func (r *LockRegistry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
