// Package sorter orders normalized resources by one attribute using
// comparators chosen from the attribute's declared data type. It does not
// care whether results came from the live API, the local store or the search
// daemon.
package sorter

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"

	"github.com/viant/rescache/query"
	"github.com/viant/rescache/resource"
	"github.com/viant/rescache/schema"
)

var (
	// ErrInvalidSortDirection is returned for directions other than asc/desc.
	ErrInvalidSortDirection = errors.New("sorter: invalid sort direction")
	// ErrUnknownSortAttribute is returned for attributes the schema lacks.
	ErrUnknownSortAttribute = errors.New("sorter: unknown sort attribute")
)

// Options configures SortResults.
type Options struct {
	// Sort is the requested order; zero fields take the defaults.
	Sort query.Sort
	// Schema declares the sortable attributes and their types. A nil schema
	// only allows id and created_time.
	Schema *schema.ResourceType
	// Locale drives string collation; defaults to English.
	Locale language.Tag
}

// ResultSet is the ordered output with the sort actually applied.
type ResultSet struct {
	Results       []*resource.Resource
	SortAttribute string
	SortDirection query.Direction
}

// Resolve applies the default rules: attribute defaults to created_time;
// direction defaults to desc for created_time and asc otherwise.
func Resolve(s query.Sort) (query.Sort, error) {
	if s.Attribute == "" {
		s.Attribute = schema.CreatedTimeAttribute
	}
	switch s.Direction {
	case "":
		if s.Attribute == schema.CreatedTimeAttribute {
			s.Direction = query.Desc
		} else {
			s.Direction = query.Asc
		}
	case query.Asc, query.Desc:
	default:
		return s, fmt.Errorf("%w: %q (want %q or %q)", ErrInvalidSortDirection, s.Direction, query.Asc, query.Desc)
	}
	return s, nil
}

// SortResults returns a new slice with results ordered by opts. Ties keep
// their input order; no secondary attribute is applied.
func SortResults(results []*resource.Resource, opts Options) (*ResultSet, error) {
	s, err := Resolve(opts.Sort)
	if err != nil {
		return nil, err
	}
	dataType, err := attributeType(s.Attribute, opts.Schema)
	if err != nil {
		return nil, err
	}
	locale := opts.Locale
	if locale == language.Und {
		locale = language.English
	}
	cmp := comparatorFor(dataType, locale)
	get := accessor(s.Attribute, opts.Schema)

	out := append([]*resource.Resource(nil), results...)
	sort.SliceStable(out, func(i, j int) bool {
		c := cmp(get(out[i]), get(out[j]))
		if s.Direction == query.Desc {
			return c > 0
		}
		return c < 0
	})
	return &ResultSet{Results: out, SortAttribute: s.Attribute, SortDirection: s.Direction}, nil
}

func attributeType(name string, rt *schema.ResourceType) (schema.DataType, error) {
	switch name {
	case schema.IDAttribute:
		return schema.String, nil
	case schema.CreatedTimeAttribute:
		return schema.Date, nil
	}
	if rt != nil {
		if a, ok := rt.Attribute(name); ok {
			return a.Type, nil
		}
	}
	supported := []string{schema.IDAttribute, schema.CreatedTimeAttribute}
	if rt != nil {
		supported = rt.SupportedAttributes()
	}
	return "", fmt.Errorf("%w: %q; supported attributes: %s", ErrUnknownSortAttribute, name, strings.Join(supported, ", "))
}

func accessor(name string, rt *schema.ResourceType) func(*resource.Resource) any {
	if name == schema.IDAttribute {
		return func(r *resource.Resource) any {
			if r == nil {
				return nil
			}
			return r.ID
		}
	}
	var path []string
	if rt != nil {
		if a, ok := rt.Attribute(name); ok && a.Path != "" {
			path = a.JSONPath()
		}
	}
	return func(r *resource.Resource) any {
		if v, ok := r.Attr(name); ok || len(path) == 0 {
			return v
		}
		var cur any = r.Attributes
		for _, key := range path {
			m, ok := cur.(map[string]any)
			if !ok {
				return nil
			}
			cur = m[key]
		}
		return cur
	}
}
