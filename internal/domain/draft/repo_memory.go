package draft

import (
	"context"
	"sync"
	"time"
)

type memoryRepo struct {
	mu     sync.RWMutex
	drafts map[Key]Draft
	flags  map[string]bool
}

// NewMemoryRepo returns a process-local repository.
func NewMemoryRepo() Repository {
	return &memoryRepo{
		drafts: make(map[Key]Draft),
		flags:  make(map[string]bool),
	}
}

func (r *memoryRepo) Put(_ context.Context, d *Draft) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *d
	cp.Data = append([]byte(nil), d.Data...)
	r.drafts[d.Key] = cp
	return nil
}

func (r *memoryRepo) Get(_ context.Context, k Key) (*Draft, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.drafts[k]
	if !ok {
		return nil, ErrNotFound
	}
	d.Data = append([]byte(nil), d.Data...)
	return &d, nil
}

func (r *memoryRepo) Delete(_ context.Context, k Key) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.drafts, k)
	return nil
}

func (r *memoryRepo) DeleteOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k, d := range r.drafts {
		if d.SavedAt.Before(cutoff) {
			delete(r.drafts, k)
			n++
		}
	}
	return n, nil
}

func (r *memoryRepo) GetFlag(_ context.Context, name string) (bool, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.flags[name]
	return v, ok, nil
}

func (r *memoryRepo) SetFlag(_ context.Context, name string, value bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flags[name] = value
	return nil
}
