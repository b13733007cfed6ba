package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/viant/rescache/schema"
)

// Project builds the row tuple of one raw payload: each declared attribute
// read from its JSON path, followed by the compacted payload itself. Every
// projected value is derived from data, so a row never holds more than its
// payload.
func Project(rt *schema.ResourceType, payload json.RawMessage) ([]any, error) {
	var fields map[string]any
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, fmt.Errorf("store: decode %s payload: %w", rt.Name, err)
	}
	row := make([]any, 0, len(rt.Attributes)+1)
	for _, a := range rt.Attributes {
		v := lookup(fields, a.JSONPath())
		if a.Name == schema.IDAttribute {
			id, ok := v.(string)
			if !ok || id == "" {
				return nil, fmt.Errorf("store: %s payload has no id", rt.Name)
			}
			row = append(row, id)
			continue
		}
		row = append(row, columnValue(a.Type, v))
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, payload); err != nil {
		return nil, fmt.Errorf("store: compact %s payload: %w", rt.Name, err)
	}
	return append(row, compact.String()), nil
}

// Rows projects a batch of payloads.
func Rows(rt *schema.ResourceType, payloads []json.RawMessage) ([][]any, error) {
	out := make([][]any, 0, len(payloads))
	for _, p := range payloads {
		row, err := Project(rt, p)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}

func lookup(fields map[string]any, path []string) any {
	var cur any = fields
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		if cur, ok = m[key]; !ok {
			return nil
		}
	}
	return cur
}

// columnValue coerces v into the storage representation of t. Values that do
// not coerce are stored as NULL, except dates which keep their raw text.
func columnValue(t schema.DataType, v any) any {
	if v == nil {
		return nil
	}
	switch t {
	case schema.Number:
		if n, ok := schema.ToNumber(v); ok {
			return n
		}
		return nil
	case schema.Boolean:
		if b, ok := schema.ToBool(v); ok {
			if b {
				return int64(1)
			}
			return int64(0)
		}
		return nil
	case schema.Date:
		if ts, ok := schema.ToTime(v); ok {
			return ts.UTC().Format(time.RFC3339Nano)
		}
		return schema.ToString(v)
	case schema.JSON:
		data, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		return string(data)
	default:
		return schema.ToString(v)
	}
}

// queryValue coerces a filter operand for comparison with a column of type t.
func queryValue(t schema.DataType, v any) any {
	switch t {
	case schema.Date:
		if ts, ok := schema.ToTime(v); ok {
			return ts.UnixMilli()
		}
		return nil
	case schema.JSON:
		if s, ok := v.(string); ok {
			return s
		}
	}
	return columnValue(t, v)
}
