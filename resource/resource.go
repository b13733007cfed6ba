// Package resource defines the normalized resource shape shared by every
// serving path and the serializer contract that produces it from raw API or
// daemon payloads.
package resource

import (
	"encoding/json"
	"fmt"
)

// Resource is a normalized resource: an id, a type, its attributes and the
// ids of related resources keyed by relationship name.
type Resource struct {
	ID            string            `json:"id"`
	Type          string            `json:"type"`
	Attributes    map[string]any    `json:"attributes"`
	Relationships map[string]string `json:"relationships,omitempty"`
}

// Attr returns the named attribute.
func (r *Resource) Attr(name string) (any, bool) {
	if r == nil || r.Attributes == nil {
		return nil, false
	}
	v, ok := r.Attributes[name]
	return v, ok
}

// String returns "type/id".
func (r *Resource) String() string {
	return fmt.Sprintf("%s/%s", r.Type, r.ID)
}

// Serializer converts between raw payloads and normalized resources.
type Serializer interface {
	// Normalize turns one raw payload of typeName into a Resource.
	Normalize(typeName string, raw json.RawMessage) (*Resource, error)
	// Serialize is the inverse of Normalize.
	Serialize(res *Resource) (json.RawMessage, error)
}

// JSONSerializer normalizes flat JSON objects: "id" becomes the identifier,
// top-level "<name>_id" string fields become relationships, and everything
// else, including relationship fields, stays in the attributes.
type JSONSerializer struct{}

// Normalize implements Serializer.
func (JSONSerializer) Normalize(typeName string, raw json.RawMessage) (*Resource, error) {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("resource: decode %s payload: %w", typeName, err)
	}
	id, _ := fields["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("resource: %s payload has no id", typeName)
	}
	res := &Resource{ID: id, Type: typeName, Attributes: make(map[string]any, len(fields))}
	for k, v := range fields {
		if k == "id" {
			continue
		}
		res.Attributes[k] = v
		if s, ok := v.(string); ok && len(k) > 3 && k[len(k)-3:] == "_id" {
			if res.Relationships == nil {
				res.Relationships = map[string]string{}
			}
			res.Relationships[k[:len(k)-3]] = s
		}
	}
	return res, nil
}

// Serialize implements Serializer.
func (JSONSerializer) Serialize(res *Resource) (json.RawMessage, error) {
	if res == nil {
		return nil, fmt.Errorf("resource: serialize nil resource")
	}
	fields := make(map[string]any, len(res.Attributes)+len(res.Relationships)+1)
	for k, v := range res.Attributes {
		fields[k] = v
	}
	for name, id := range res.Relationships {
		if _, ok := fields[name+"_id"]; !ok {
			fields[name+"_id"] = id
		}
	}
	fields["id"] = res.ID
	return json.Marshal(fields)
}

// Registry resolves serializers by resource type name.
type Registry struct {
	byType   map[string]Serializer
	fallback Serializer
}

// NewRegistry creates a Registry whose fallback is JSONSerializer.
func NewRegistry() *Registry {
	return &Registry{byType: map[string]Serializer{}, fallback: JSONSerializer{}}
}

// Register sets the serializer of typeName.
func (r *Registry) Register(typeName string, s Serializer) *Registry {
	r.byType[typeName] = s
	return r
}

// For returns the serializer of typeName, or the fallback.
func (r *Registry) For(typeName string) Serializer {
	if s, ok := r.byType[typeName]; ok {
		return s
	}
	return r.fallback
}

// NormalizeAll normalizes a batch of payloads of one type.
func (r *Registry) NormalizeAll(typeName string, raws []json.RawMessage) ([]*Resource, error) {
	s := r.For(typeName)
	out := make([]*Resource, 0, len(raws))
	for _, raw := range raws {
		res, err := s.Normalize(typeName, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}
