package calls

import (
	"context"
	"sort"
	"sync"
)

// Registry is the single source of truth for call records, keyed by room
// name.
//
// Concurrency contract:
// - Reads may run concurrently with a transition without ever observing a
//   half-updated record; updates are atomic swaps of the whole record.
// - Update serializes transitions per entry, giving each call a total order
//   of status changes. Unrelated calls never block each other.
type Registry interface {
	Upsert(ctx context.Context, c Call) error
	Get(ctx context.Context, roomName string) (Call, bool, error)

	// Update applies fn to the current record under the entry's lock and
	// swaps in the result. Returns ErrNotFound when the room is unknown.
	// An error from fn aborts the update without modifying the record.
	Update(ctx context.Context, roomName string, fn func(Call) (Call, error)) (Call, error)

	Delete(ctx context.Context, roomName string) error
	List(ctx context.Context) ([]Call, error)
}

// MemoryRegistry is the in-process Registry. Per-entry mutexes keep status
// polling from blocking on unrelated in-flight transitions.
type MemoryRegistry struct {
	mu      sync.RWMutex
	entries map[string]*registryEntry
}

type registryEntry struct {
	mu   sync.Mutex
	call Call
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{entries: map[string]*registryEntry{}}
}

func (r *MemoryRegistry) Upsert(ctx context.Context, c Call) error {
	r.mu.Lock()
	e, ok := r.entries[c.RoomName]
	if !ok {
		r.entries[c.RoomName] = &registryEntry{call: c}
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	e.mu.Lock()
	e.call = c
	e.mu.Unlock()
	return nil
}

func (r *MemoryRegistry) Get(ctx context.Context, roomName string) (Call, bool, error) {
	r.mu.RLock()
	e, ok := r.entries[roomName]
	r.mu.RUnlock()
	if !ok {
		return Call{}, false, nil
	}
	e.mu.Lock()
	c := e.call
	e.mu.Unlock()
	return c, true, nil
}

func (r *MemoryRegistry) Update(ctx context.Context, roomName string, fn func(Call) (Call, error)) (Call, error) {
	r.mu.RLock()
	e, ok := r.entries[roomName]
	r.mu.RUnlock()
	if !ok {
		return Call{}, ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	next, err := fn(e.call)
	if err != nil {
		return e.call, err
	}
	e.call = next
	return next, nil
}

func (r *MemoryRegistry) Delete(ctx context.Context, roomName string) error {
	r.mu.Lock()
	delete(r.entries, roomName)
	r.mu.Unlock()
	return nil
}

func (r *MemoryRegistry) List(ctx context.Context) ([]Call, error) {
	r.mu.RLock()
	entries := make([]*registryEntry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	out := make([]Call, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.call)
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoomName < out[j].RoomName })
	return out, nil
}
