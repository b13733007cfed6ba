package schema

import (
	"fmt"
	"strings"
)

// DataType is the declared type of a resource attribute.
type DataType string

const (
	String  DataType = "string"
	Date    DataType = "date"
	Number  DataType = "number"
	Boolean DataType = "boolean"
	JSON    DataType = "json"
)

// Valid reports whether t is one of the known data types.
func (t DataType) Valid() bool {
	switch t {
	case String, Date, Number, Boolean, JSON:
		return true
	}
	return false
}

// SQLType returns the column affinity used for t in the local store.
func (t DataType) SQLType() string {
	switch t {
	case Number:
		return "REAL"
	case Boolean:
		return "INTEGER"
	default:
		return "TEXT"
	}
}

const (
	// IDAttribute is the primary key of every resource type.
	IDAttribute = "id"
	// CreatedTimeAttribute is present on every resource, declared or not.
	CreatedTimeAttribute = "created_time"
	// DataColumn holds the full serialized resource and is always last.
	DataColumn = "data"
)

// Attribute is one projected column of a resource type.
type Attribute struct {
	Name string
	Type DataType
	// Path is the dotted JSON path the value is read from; defaults to Name.
	Path string
}

// JSONPath returns the path segments of the attribute inside the payload.
func (a Attribute) JSONPath() []string {
	p := a.Path
	if p == "" {
		p = a.Name
	}
	return strings.Split(p, ".")
}

// ResourceType is a named category of domain entity.
type ResourceType struct {
	Name       string
	Plural     string
	Attributes []Attribute
	Sortable   []string
	FullText   []string
}

// Attribute returns the declared attribute with the given name.
func (r *ResourceType) Attribute(name string) (Attribute, bool) {
	for _, a := range r.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// HasAttribute reports whether name is declared on r.
func (r *ResourceType) HasAttribute(name string) bool {
	_, ok := r.Attribute(name)
	return ok
}

// Columns returns the main table layout: the declared attributes in order,
// followed by the data column.
func (r *ResourceType) Columns() []string {
	out := make([]string, 0, len(r.Attributes)+1)
	for _, a := range r.Attributes {
		out = append(out, a.Name)
	}
	return append(out, DataColumn)
}

// FullTextColumns returns the shadow search table layout.
func (r *ResourceType) FullTextColumns() []string {
	return append([]string(nil), r.FullText...)
}

// SortableAttributes returns id, created_time and the declared sortable
// attributes.
func (r *ResourceType) SortableAttributes() []string {
	return dedupe(append([]string{IDAttribute, CreatedTimeAttribute}, r.Sortable...))
}

// SupportedAttributes returns id, created_time and every declared attribute.
func (r *ResourceType) SupportedAttributes() []string {
	names := []string{IDAttribute, CreatedTimeAttribute}
	for _, a := range r.Attributes {
		names = append(names, a.Name)
	}
	return dedupe(names)
}

// TypeOf resolves the data type of name, including the implicit id and
// created_time attributes.
func (r *ResourceType) TypeOf(name string) (DataType, bool) {
	if a, ok := r.Attribute(name); ok {
		return a.Type, true
	}
	switch name {
	case IDAttribute:
		return String, true
	case CreatedTimeAttribute:
		return Date, true
	}
	return "", false
}

// Table returns the SQL-safe main table name.
func (r *ResourceType) Table() string {
	return SanitizeIdentifier(r.Name)
}

// SearchTable returns the SQL-safe full-text shadow table name.
func (r *ResourceType) SearchTable() string {
	return r.Table() + "_search"
}

// PluralName returns Plural or a naive English plural of Name.
func (r *ResourceType) PluralName() string {
	if r.Plural != "" {
		return r.Plural
	}
	if strings.HasSuffix(r.Name, "s") {
		return r.Name + "es"
	}
	return r.Name + "s"
}

func (r *ResourceType) validate() error {
	if r.Name == "" {
		return fmt.Errorf("schema: resource type name is empty")
	}
	if len(r.Attributes) == 0 || r.Attributes[0].Name != IDAttribute {
		return fmt.Errorf("schema: %s: first attribute must be %q", r.Name, IDAttribute)
	}
	seen := make(map[string]bool, len(r.Attributes))
	for _, a := range r.Attributes {
		if a.Name == DataColumn {
			return fmt.Errorf("schema: %s: attribute name %q is reserved", r.Name, DataColumn)
		}
		if seen[a.Name] {
			return fmt.Errorf("schema: %s: duplicate attribute %q", r.Name, a.Name)
		}
		if !a.Type.Valid() {
			return fmt.Errorf("schema: %s.%s: unknown data type %q", r.Name, a.Name, a.Type)
		}
		seen[a.Name] = true
	}
	for _, name := range r.Sortable {
		if !seen[name] {
			return fmt.Errorf("schema: %s: sortable attribute %q is not declared", r.Name, name)
		}
	}
	for _, name := range r.FullText {
		if !seen[name] {
			return fmt.Errorf("schema: %s: full-text attribute %q is not declared", r.Name, name)
		}
	}
	return nil
}

// SanitizeIdentifier maps a resource type name onto a bare SQL identifier.
func SanitizeIdentifier(name string) string {
	if name == "" {
		return ""
	}
	replacer := strings.NewReplacer(".", "_", "-", "_", " ", "_")
	return replacer.Replace(name)
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := names[:0]
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
