// Package tag implements the interned tag registry used to index tasks.
package tag

import (
	"runtime"
	"sync"
	"weak"
)

// Tag is an interned, name-keyed value. Two tags with the same name are
// equal and carry the same hash, by virtue of being comparable structs
// over a single string field.
type Tag struct {
	name string
}

// Name returns the tag's name.
func (t *Tag) Name() string {
	if t == nil {
		return ""
	}
	return t.name
}

// Registry interns tags by name. The same name always maps to the same
// *Tag instance while any strong reference to it survives; once the last
// strong reference is garbage collected, the registry forgets the entry
// so a later Create for the same name mints a fresh instance.
type Registry struct {
	mu      sync.Mutex
	entries map[string]weak.Pointer[Tag]
}

// NewRegistry creates an empty tag registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]weak.Pointer[Tag])}
}

// Create returns the canonical *Tag for name, minting one if none exists
// or if the previous instance has already been reclaimed.
func (r *Registry) Create(name string) *Tag {
	r.mu.Lock()
	defer r.mu.Unlock()

	if wp, ok := r.entries[name]; ok {
		if t := wp.Value(); t != nil {
			return t
		}
	}

	t := &Tag{name: name}
	r.entries[name] = weak.Make(t)
	runtime.AddCleanup(t, r.forget, name)
	return t
}

// Get returns the canonical *Tag for name if one is currently live, without
// minting a new one.
func (r *Registry) Get(name string) (*Tag, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	wp, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	t := wp.Value()
	return t, t != nil
}

// forget drops a reclaimed entry, but only if nothing re-interned the name
// in the meantime (the weak pointer would then resolve to a newer *Tag).
func (r *Registry) forget(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	wp, ok := r.entries[name]
	if !ok {
		return
	}
	if wp.Value() != nil {
		return
	}
	delete(r.entries, name)
}
