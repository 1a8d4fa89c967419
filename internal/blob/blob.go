// Package blob keeps transient, process-local byte payloads addressable by
// a "blob://<uuid>" reference. References die with the process.
package blob

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Scheme is the URI scheme of transient references.
const Scheme = "blob://"

// Item is one registered payload.
type Item struct {
	Data []byte
	Type string // MIME type
}

// Registry maps transient references to payloads.
type Registry struct {
	mu    sync.RWMutex
	items map[string]Item
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{items: make(map[string]Item)}
}

// Put stores data and returns a new reference to it.
func (r *Registry) Put(data []byte, mimeType string) string {
	id := uuid.NewString()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.items == nil {
		r.items = make(map[string]Item)
	}
	r.items[id] = Item{Data: data, Type: mimeType}
	return Scheme + id
}

// Get looks up a reference.
func (r *Registry) Get(ref string) (Item, bool) {
	id, ok := ID(ref)
	if !ok {
		return Item{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[id]
	return item, ok
}

// ID extracts the identifier from a blob reference.
func ID(ref string) (string, bool) {
	if !strings.HasPrefix(ref, Scheme) {
		return "", false
	}
	id := strings.TrimPrefix(ref, Scheme)
	return id, id != ""
}
