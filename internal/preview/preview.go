// Package preview manages externally visible handles to previewed artifacts.
//
// A Registry keeps at most one live handle per Role. Publishing a new
// artifact for a role releases the previous one, and Close releases all of
// them, so a consumer never sees two live previews for the same role.
package preview

import (
	"errors"
	"fmt"
	"sync"

	"github.com/AnyUserName/blpkit/internal/hasher"
)

// ErrReleased is returned when opening a handle that is no longer live.
var ErrReleased = errors.New("preview: handle released")

// Role names what a preview shows.
type Role string

const (
	RoleSource    Role = "source"
	RoleConverted Role = "converted"
)

// Handle identifies one published artifact.
type Handle struct {
	ID       string `json:"id"`
	Role     Role   `json:"role"`
	Name     string `json:"name"`
	Size     int    `json:"size"`
	Location string `json:"location"`
}

// Registry tracks the live handle per role.
type Registry struct {
	store Store

	mu   sync.Mutex
	live map[Role]Handle
	seq  uint64
}

// NewRegistry creates a registry backed by store.
func NewRegistry(store Store) *Registry {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Registry{store: store, live: map[Role]Handle{}}
}

// Publish stores data as the new preview for role and releases the old one.
func (r *Registry) Publish(role Role, name string, data []byte) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	id := fmt.Sprintf("%s-%s-%d", role, hasher.ContentHash(data, 16), r.seq)
	loc, err := r.store.Put(id, data)
	if err != nil {
		return Handle{}, fmt.Errorf("publish %s preview: %w", role, err)
	}
	h := Handle{ID: id, Role: role, Name: name, Size: len(data), Location: loc}

	if prev, ok := r.live[role]; ok {
		r.releaseLocked(prev)
	}
	r.live[role] = h
	return h, nil
}

// Current returns the live handle for role.
func (r *Registry) Current(role Role) (Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.live[role]
	return h, ok
}

// Open reads the bytes behind a live handle.
func (r *Registry) Open(h Handle) ([]byte, error) {
	r.mu.Lock()
	cur, ok := r.live[h.Role]
	r.mu.Unlock()
	if !ok || cur.ID != h.ID {
		return nil, fmt.Errorf("%w: %s", ErrReleased, h.ID)
	}
	return r.store.Get(h.ID)
}

// Release drops the handle for role, if any.
func (r *Registry) Release(role Role) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.live[role]; ok {
		r.releaseLocked(h)
		delete(r.live, role)
	}
}

// Live returns the number of live handles.
func (r *Registry) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

// Close releases every handle.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for role, h := range r.live {
		r.releaseLocked(h)
		delete(r.live, role)
	}
	return nil
}

func (r *Registry) releaseLocked(h Handle) {
	_ = r.store.Delete(h.ID)
}
