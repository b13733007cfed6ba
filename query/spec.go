package query

import "encoding/json"

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Clause is one match condition on an attribute. Exactly one of Equals or
// Contains is set.
type Clause struct {
	Equals   any `json:"equals,omitempty"`
	Contains any `json:"contains,omitempty"`
}

// Eq returns an equality clause.
func Eq(v any) Clause { return Clause{Equals: v} }

// Like returns a substring clause.
func Like(v any) Clause { return Clause{Contains: v} }

// IsContains reports whether c is a substring clause.
func (c Clause) IsContains() bool { return c.Contains != nil }

// Value returns the clause operand.
func (c Clause) Value() any {
	if c.Contains != nil {
		return c.Contains
	}
	return c.Equals
}

// Filters maps an attribute name to its clauses. Clauses on the same
// attribute are alternatives; distinct attributes must all match.
type Filters map[string][]Clause

// Add appends c to the clauses of attr.
func (f Filters) Add(attr string, c Clause) {
	f[attr] = append(f[attr], c)
}

// Attributes returns the filtered attribute names.
func (f Filters) Attributes() []string {
	out := make([]string, 0, len(f))
	for k := range f {
		out = append(out, k)
	}
	return out
}

// Sort names the attribute and direction to order by. Zero fields mean
// "use the default".
type Sort struct {
	Attribute string    `json:"attribute,omitempty"`
	Direction Direction `json:"direction,omitempty"`
}

// Spec describes one query. It holds no live references so it can be sent
// across a process boundary as JSON.
type Spec struct {
	Resource  string  `json:"resource"`
	Filters   Filters `json:"filters,omitempty"`
	Sort      Sort    `json:"sort,omitempty"`
	Page      int     `json:"page,omitempty"`
	PageSize  int     `json:"pageSize,omitempty"`
	Search    string  `json:"search,omitempty"`
	ScopeID   string  `json:"scope_id,omitempty"`
	Recursive bool    `json:"recursive,omitempty"`
}

// Clone returns a deep copy of s.
func (s *Spec) Clone() *Spec {
	if s == nil {
		return nil
	}
	out := *s
	if s.Filters != nil {
		out.Filters = make(Filters, len(s.Filters))
		for k, v := range s.Filters {
			out.Filters[k] = append([]Clause(nil), v...)
		}
	}
	return &out
}

// Offset returns the zero-based row offset for Page and PageSize. Pages are
// 1-based; Page <= 1 means the first page.
func (s *Spec) Offset() int {
	if s.PageSize <= 0 || s.Page <= 1 {
		return 0
	}
	return (s.Page - 1) * s.PageSize
}

// String renders s as JSON for logs.
func (s *Spec) String() string {
	data, err := json.Marshal(s)
	if err != nil {
		return s.Resource
	}
	return string(data)
}
