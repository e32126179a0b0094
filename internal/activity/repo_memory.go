package activity

import (
	"context"
	"sync"
)

type MemoryRepo struct {
	mu      sync.RWMutex
	entries []Entry
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{}
}

func (r *MemoryRepo) Insert(ctx context.Context, entry Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	r.entries = append(r.entries, entry)
	r.mu.Unlock()
	return nil
}

func (r *MemoryRepo) CountByAction(ctx context.Context, actions ...string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	want := make(map[string]struct{}, len(actions))
	for _, a := range actions {
		want[a] = struct{}{}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, e := range r.entries {
		if _, ok := want[e.Action]; ok {
			n++
		}
	}
	return n, nil
}

// ListByUser returns the user's most recent entries first.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit int) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Entry
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].UserID != userID {
			continue
		}
		out = append(out, r.entries[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
