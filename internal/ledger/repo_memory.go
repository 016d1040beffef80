package ledger

import (
	"context"
	"sync"
)

// MemoryRepo keeps events in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu     sync.RWMutex
	events []Event
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{}
}

// Record stores the event.
func (r *MemoryRepo) Record(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of the recorded events, oldest first.
func (r *MemoryRepo) Events() []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}
