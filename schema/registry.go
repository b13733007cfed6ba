package schema

import (
	"fmt"
	"sort"
)

// Registry holds the resource types known to a build.
type Registry struct {
	byName map[string]*ResourceType
	order  []string
}

// NewRegistry validates and indexes the given resource types.
func NewRegistry(types ...*ResourceType) (*Registry, error) {
	r := &Registry{byName: make(map[string]*ResourceType, len(types))}
	for _, t := range types {
		if t == nil {
			continue
		}
		if err := t.validate(); err != nil {
			return nil, err
		}
		if _, ok := r.byName[t.Name]; ok {
			return nil, fmt.Errorf("schema: duplicate resource type %q", t.Name)
		}
		r.byName[t.Name] = t
		r.order = append(r.order, t.Name)
	}
	return r, nil
}

// Lookup returns the resource type registered under name.
func (r *Registry) Lookup(name string) (*ResourceType, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// MustLookup is Lookup for names known at build time.
func (r *Registry) MustLookup(name string) *ResourceType {
	t, ok := r.Lookup(name)
	if !ok {
		panic(fmt.Sprintf("schema: unknown resource type %q", name))
	}
	return t
}

// Names returns the registered type names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Types returns the registered types in registration order.
func (r *Registry) Types() []*ResourceType {
	out := make([]*ResourceType, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// ByPlural resolves a type from its plural name.
func (r *Registry) ByPlural(plural string) (*ResourceType, bool) {
	for _, t := range r.byName {
		if t.PluralName() == plural {
			return t, true
		}
	}
	return nil, false
}

// SortedNames returns the registered type names alphabetically.
func (r *Registry) SortedNames() []string {
	names := r.Names()
	sort.Strings(names)
	return names
}
