package upload

import "sync"

// Registry tracks the cancel handles of all active uploads in the process
// so they can be stopped from anywhere, e.g. on logout.
type Registry struct {
	mu      sync.Mutex
	entries map[string]func()
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]func())}
}

// Register stores cancel under id, replacing any previous entry.
func (r *Registry) Register(id string, cancel func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = cancel
}

// Cancel invokes the handle registered for id. Unknown ids are ignored.
// The entry stays until the owner deregisters it.
func (r *Registry) Cancel(id string) {
	r.mu.Lock()
	cancel := r.entries[id]
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// CancelAll invokes every handle and empties the table.
func (r *Registry) CancelAll() int {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]func())
	r.mu.Unlock()

	for _, cancel := range entries {
		cancel()
	}
	return len(entries)
}

// Deregister removes id. Safe to call repeatedly.
func (r *Registry) Deregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

func (r *Registry) Has(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[id]
	return ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// IDs returns the registered ids in no particular order.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	return ids
}
