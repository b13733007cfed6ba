package store

import (
	"context"
	"encoding/json"

	"github.com/viant/rescache/query"
	"github.com/viant/rescache/schema"
)

// Row is one result row keyed by column name.
type Row map[string]any

// ID returns the id column.
func (r Row) ID() string {
	return schema.ToString(r[schema.IDAttribute])
}

// Data returns the serialized resource payload.
func (r Row) Data() json.RawMessage {
	switch v := r[schema.DataColumn].(type) {
	case string:
		return json.RawMessage(v)
	case []byte:
		return json.RawMessage(v)
	}
	return nil
}

// Payloads extracts the data column of every row.
func Payloads(rows []Row) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(rows))
	for _, r := range rows {
		if data := r.Data(); data != nil {
			out = append(out, data)
		}
	}
	return out
}

// Store defines the local resource store API. Every write replaces or
// removes whole rows; there are no partial column updates.
type Store interface {
	// Insert upserts rows shaped as the type's columns followed by data. All
	// rows are written in one transaction together with their search rows.
	Insert(ctx context.Context, typeName string, rows [][]any) error

	// InsertPayloads projects raw payloads into rows and inserts them.
	InsertPayloads(ctx context.Context, typeName string, payloads []json.RawMessage) error

	// Delete removes the rows (and search rows) with the given ids. Unknown
	// ids are ignored.
	Delete(ctx context.Context, typeName string, ids []string) error

	// Clear removes every row of a type.
	Clear(ctx context.Context, typeName string) error

	// Fetch runs a structured query and returns plain rows.
	Fetch(ctx context.Context, spec *query.Spec) ([]Row, error)

	// FetchRaw runs a raw SQL query; meant for diagnostics and tests.
	FetchRaw(ctx context.Context, sqlText string, args ...any) ([]Row, error)

	// Count returns the number of rows matching spec, ignoring paging.
	Count(ctx context.Context, spec *query.Spec) (int, error)

	// Exists reports whether a row with id is stored.
	Exists(ctx context.Context, typeName, id string) (bool, error)
}
