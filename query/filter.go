package query

import (
	"fmt"
	"strings"
)

// ResourceField selects the resource type and never becomes a filter.
const ResourceField = "resource"

// Flatten returns the leaf clauses of the tree, visiting it left-first and
// breadth-wise. AND/OR structure is discarded: the result is read as an AND
// across attributes of ORs within an attribute, whatever the tree shape.
func Flatten(root Node) []Node {
	if root == nil {
		return nil
	}
	var leaves []Node
	queue := []Node{root}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		switch v := n.(type) {
		case *AndNode:
			queue = append(queue, v.Left, v.Right)
		case *OrNode:
			queue = append(queue, v.Left, v.Right)
		default:
			leaves = append(leaves, v)
		}
	}
	return leaves
}

type buildOptions struct {
	resource  string
	chips     []chip
	scopeID   string
	recursive bool
	sort      Sort
	page      int
	pageSize  int
}

type chip struct {
	attr   string
	values []string
}

// Option configures Build.
type Option func(*buildOptions)

// WithResource sets the resource type used when the expression has no
// resource clause.
func WithResource(name string) Option {
	return func(o *buildOptions) { o.resource = name }
}

// WithChip adds equality filters selected outside the expression.
func WithChip(attr string, values ...string) Option {
	return func(o *buildOptions) { o.chips = append(o.chips, chip{attr: attr, values: values}) }
}

// WithScope sets the scope_id and recursive parameters.
func WithScope(scopeID string, recursive bool) Option {
	return func(o *buildOptions) {
		o.scopeID = scopeID
		o.recursive = recursive
	}
}

// WithSort sets the requested sort.
func WithSort(attribute string, direction Direction) Option {
	return func(o *buildOptions) { o.sort = Sort{Attribute: attribute, Direction: direction} }
}

// WithPage sets the 1-based page and the page size.
func WithPage(page, pageSize int) Option {
	return func(o *buildOptions) {
		o.page = page
		o.pageSize = pageSize
	}
}

// Build turns a query expression plus options into a Spec. Each field clause
// with a value adds one clause to its attribute's list, so repeated fields
// accumulate while distinct fields get their own keys. Clauses without a value
// add nothing. Bare words become the free-text search.
func Build(expr string, opts ...Option) (*Spec, error) {
	o := &buildOptions{}
	for _, opt := range opts {
		opt(o)
	}
	root, err := Parse(expr)
	if err != nil {
		return nil, err
	}

	spec := &Spec{
		Resource:  o.resource,
		Filters:   Filters{},
		Sort:      o.sort,
		Page:      o.page,
		PageSize:  o.pageSize,
		ScopeID:   o.scopeID,
		Recursive: o.recursive,
	}
	var terms []string
	resourceSet := false
	for _, leaf := range Flatten(root) {
		switch n := leaf.(type) {
		case *TermNode:
			terms = append(terms, n.Text)
		case *FieldNode:
			if n.Field == ResourceField {
				if n.Empty {
					continue
				}
				if resourceSet && spec.Resource != n.Value {
					return nil, fmt.Errorf("query: conflicting resource clauses %q and %q", spec.Resource, n.Value)
				}
				spec.Resource = n.Value
				resourceSet = true
				continue
			}
			if n.Empty {
				continue
			}
			if n.Op == OpContains {
				spec.Filters.Add(n.Field, Like(n.Value))
			} else {
				spec.Filters.Add(n.Field, Eq(n.Value))
			}
		}
	}
	for _, c := range o.chips {
		for _, v := range c.values {
			spec.Filters.Add(c.attr, Eq(v))
		}
	}
	spec.Search = strings.Join(terms, " ")
	if spec.Resource == "" {
		return nil, fmt.Errorf("query: no resource type in %q", expr)
	}
	return spec, nil
}
