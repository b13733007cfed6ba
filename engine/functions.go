package engine

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"sync"

	sqlite "modernc.org/sqlite"

	"github.com/viant/rescache/schema"
)

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterFunctions registers res_contains and res_time with the driver so
// they are available on new connections opened after this call. Existing open
// connections will not see new functions.
func RegisterFunctions() error {
	registerOnce.Do(func() {
		if err := sqlite.RegisterDeterministicScalarFunction("res_contains", 2, containsImpl); err != nil {
			registerErr = err
			return
		}
		registerErr = sqlite.RegisterDeterministicScalarFunction("res_time", 1, timeImpl)
	})
	return registerErr
}

func asText(arg driver.Value) (string, bool, error) {
	switch v := arg.(type) {
	case nil:
		return "", false, nil
	case string:
		return v, true, nil
	case []byte:
		return string(v), true, nil
	case int64:
		return fmt.Sprint(v), true, nil
	case float64:
		return fmt.Sprint(v), true, nil
	default:
		return "", false, fmt.Errorf("engine: unsupported argument type %T; want TEXT", arg)
	}
}

// containsImpl reports whether needle occurs in haystack ignoring case.
func containsImpl(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("res_contains: expected 2 arguments, got %d", len(args))
	}
	haystack, ok, err := asText(args[0])
	if err != nil || !ok {
		return nil, err
	}
	needle, ok, err := asText(args[1])
	if err != nil || !ok {
		return nil, err
	}
	if strings.Contains(strings.ToLower(haystack), strings.ToLower(needle)) {
		return int64(1), nil
	}
	return int64(0), nil
}

// timeImpl converts an RFC 3339 timestamp into Unix milliseconds. Values that
// do not parse yield NULL so they sort first.
func timeImpl(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("res_time: expected 1 argument, got %d", len(args))
	}
	text, ok, err := asText(args[0])
	if err != nil || !ok {
		return nil, err
	}
	ts, ok := schema.ParseTime(text)
	if !ok {
		return nil, nil
	}
	return ts.UnixMilli(), nil
}
