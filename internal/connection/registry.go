package connection

import "sync"

// Registry holds the ordered list of subscription descriptors to replay on
// every successful connect. Insertion order is preserved and duplicates are
// not collapsed. Descriptors added while a session is live take effect on the
// next connect, not the current one.
type Registry struct {
	mu   sync.Mutex
	subs []Subscription
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add appends a subscription descriptor.
func (r *Registry) Add(sub Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = append(r.subs, sub)
}

// Snapshot returns a copy of the registered descriptors in insertion order.
func (r *Registry) Snapshot() []Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Subscription, len(r.subs))
	copy(out, r.subs)
	return out
}

// Len returns the number of registered descriptors.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}
