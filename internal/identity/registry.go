// Package identity keeps one in-memory instance per object identity.
//
// A Registry holds two maps: stable keys assigned by the server, and
// temporary keys handed out before the server has confirmed an object.
// Realize moves an entry from the temporary map to the stable one without
// replacing the instance, so references held by callers stay valid.
package identity

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// TempPrefix marks identifiers that have not been confirmed by the server.
const TempPrefix = "tmp-"

// NewTempID returns a process-unique temporary identifier.
func NewTempID() string {
	return TempPrefix + uuid.New().String()
}

// IsTemp reports whether id was produced by NewTempID.
func IsTemp(id string) bool {
	return strings.HasPrefix(id, TempPrefix)
}

// Registry maps identities to instances. It is safe for concurrent use.
// The registry does not own its values; dropping an entry never touches
// the instance itself.
type Registry[T any] struct {
	mu     sync.Mutex
	stable map[string]T
	temp   map[string]T
}

// NewRegistry returns an empty registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{
		stable: make(map[string]T),
		temp:   make(map[string]T),
	}
}

// Get looks up key in the stable map first, then the temporary one.
func (r *Registry[T]) Get(key string) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.stable[key]; ok {
		return v, true
	}
	v, ok := r.temp[key]
	return v, ok
}

// GetOrCreate returns the stable instance for key, creating it with fn
// when absent.
func (r *Registry[T]) GetOrCreate(key string, fn func() T) T {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.stable[key]; ok {
		return v
	}
	v := fn()
	r.stable[key] = v
	return v
}

// Put registers v under a stable key, replacing any previous entry.
func (r *Registry[T]) Put(key string, v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stable[key] = v
}

// PutTemp registers v under a temporary key.
func (r *Registry[T]) PutTemp(key string, v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.temp[key] = v
}

// Realize moves the instance registered under tempKey to stableKey.
//
// Calling it again for an already realized instance is harmless: a stale
// temporary entry is dropped and the stable entry is kept, so the instance
// is never reachable through both maps at once.
func (r *Registry[T]) Realize(tempKey, stableKey string) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.temp[tempKey]
	if ok {
		delete(r.temp, tempKey)
		r.stable[stableKey] = v
		return v, true
	}
	v, ok = r.stable[stableKey]
	return v, ok
}

// Remove drops key from both maps.
func (r *Registry[T]) Remove(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.stable, key)
	delete(r.temp, key)
}

// Len returns the number of stable and temporary entries.
func (r *Registry[T]) Len() (stable, temp int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stable), len(r.temp)
}

// Clear drops every entry.
func (r *Registry[T]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stable = make(map[string]T)
	r.temp = make(map[string]T)
}
