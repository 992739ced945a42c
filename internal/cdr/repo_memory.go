package cdr

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory insert-only repository useful for tests and
// deployments without a database.

type MemoryRepo struct {
	mu      sync.Mutex
	records []CDR
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Insert(ctx context.Context, rec CDR) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

func (r *MemoryRepo) Records() []CDR {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]CDR, len(r.records))
	copy(out, r.records)
	return out
}
