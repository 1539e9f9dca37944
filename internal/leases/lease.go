// Package leases tracks Vault-issued dynamic-credential leases against
// the container id that owns them, and renews them before expiry.
package leases

import "sync"

// Lease is a single broker-issued credential lease.
type Lease struct {
	ID            string
	TTLSeconds    int64
	UpdatedAtUnix int64
}

// Registry is the in-memory container_id → []Lease map. Guarded by a
// readers-writer lock; writers are UpdateService, DeleteService, and the
// lease renewer (spec.md §4.6).
type Registry struct {
	mu     sync.RWMutex
	leases map[string][]Lease
}

// NewRegistry returns an empty lease registry.
func NewRegistry() *Registry {
	return &Registry{leases: make(map[string][]Lease)}
}

// Register associates lease with containerID.
func (r *Registry) Register(containerID string, lease Lease) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leases[containerID] = append(r.leases[containerID], lease)
}

// RevokeAll drops every lease associated with containerID and returns
// them, so the caller can issue the corresponding Vault revocations.
func (r *Registry) RevokeAll(containerID string) []Lease {
	r.mu.Lock()
	defer r.mu.Unlock()
	leases := r.leases[containerID]
	delete(r.leases, containerID)
	return leases
}

// Snapshot returns a copy of the entire registry, for the management
// API's `GET /leases`.
func (r *Registry) Snapshot() map[string][]Lease {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string][]Lease, len(r.leases))
	for id, ls := range r.leases {
		cp := make([]Lease, len(ls))
		copy(cp, ls)
		out[id] = cp
	}
	return out
}

// Drop removes a single lease (matched by ID) from containerID's list.
func (r *Registry) Drop(containerID, leaseID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ls := r.leases[containerID]
	for i, l := range ls {
		if l.ID == leaseID {
			r.leases[containerID] = append(ls[:i], ls[i+1:]...)
			return
		}
	}
}

// forEachForRenewal runs fn against every (containerID, lease) pair under
// a single write-lock pass, allowing fn to mutate UpdatedAtUnix in place.
// Used by the renewer (spec.md §4.6: "the renewer takes a write lock for
// the duration of the pass").
func (r *Registry) forEachForRenewal(fn func(containerID string, idx int, lease *Lease)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for containerID, ls := range r.leases {
		for i := range ls {
			fn(containerID, i, &ls[i])
		}
	}
}
