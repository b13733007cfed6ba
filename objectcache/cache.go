// Package objectcache provides the in-process identity map of live resource
// objects handed to callers. Pushing a resource that is already loaded updates
// the loaded object in place, so every holder observes the new state.
package objectcache

import (
	"sort"
	"sync"

	"github.com/viant/rescache/resource"
)

// Cache is the object cache contract used by the query router.
type Cache interface {
	// Push merges resources into the cache and returns the canonical objects
	// in input order.
	Push(typeName string, resources []*resource.Resource) []*resource.Resource
	// Peek returns a loaded object without fetching.
	Peek(typeName, id string) (*resource.Resource, bool)
	// All returns every loaded object of a type ordered by id.
	All(typeName string) []*resource.Resource
	// Unload drops objects; without ids it drops the whole type.
	Unload(typeName string, ids ...string)
}

// Compile-time interface check.
var _ Cache = (*Memory)(nil)

// Memory is a mutex-guarded identity map keyed by type and id.
type Memory struct {
	mu         sync.RWMutex
	types      map[string]map[string]*resource.Resource
	maxPerType int
}

// Option configures the memory cache.
type Option func(*Memory)

// WithMaxPerType bounds the number of loaded objects per type. When the bound
// is reached, objects not part of the current push are unloaded first.
func WithMaxPerType(n int) Option {
	return func(m *Memory) { m.maxPerType = n }
}

// NewMemory creates an empty object cache.
func NewMemory(opts ...Option) *Memory {
	m := &Memory{types: make(map[string]map[string]*resource.Resource)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Push implements Cache.
func (m *Memory) Push(typeName string, resources []*resource.Resource) []*resource.Resource {
	m.mu.Lock()
	defer m.mu.Unlock()

	loaded := m.types[typeName]
	if loaded == nil {
		loaded = make(map[string]*resource.Resource, len(resources))
		m.types[typeName] = loaded
	}
	pushed := make(map[string]bool, len(resources))
	out := make([]*resource.Resource, 0, len(resources))
	for _, r := range resources {
		if r == nil {
			continue
		}
		pushed[r.ID] = true
		if cur, ok := loaded[r.ID]; ok {
			if cur != r {
				cur.Attributes = r.Attributes
				cur.Relationships = r.Relationships
			}
			out = append(out, cur)
			continue
		}
		if r.Type == "" {
			r.Type = typeName
		}
		loaded[r.ID] = r
		out = append(out, r)
	}
	if m.maxPerType > 0 && len(loaded) > m.maxPerType {
		m.evict(loaded, pushed)
	}
	return out
}

// evict unloads objects outside keep until the type fits. Must hold write lock.
func (m *Memory) evict(loaded map[string]*resource.Resource, keep map[string]bool) {
	for id := range loaded {
		if len(loaded) <= m.maxPerType {
			return
		}
		if !keep[id] {
			delete(loaded, id)
		}
	}
}

// Peek implements Cache.
func (m *Memory) Peek(typeName, id string) (*resource.Resource, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.types[typeName][id]
	return r, ok
}

// All implements Cache.
func (m *Memory) All(typeName string) []*resource.Resource {
	m.mu.RLock()
	loaded := m.types[typeName]
	out := make([]*resource.Resource, 0, len(loaded))
	for _, r := range loaded {
		out = append(out, r)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Unload implements Cache.
func (m *Memory) Unload(typeName string, ids ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(ids) == 0 {
		delete(m.types, typeName)
		return
	}
	loaded := m.types[typeName]
	for _, id := range ids {
		delete(loaded, id)
	}
}
