package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTime(t *testing.T) {
	ts, ok := ParseTime("2023-06-01")
	require.True(t, ok)
	assert.Equal(t, 2023, ts.Year())

	ts, ok = ParseTime("2024-01-02T03:04:05.123456Z")
	require.True(t, ok)
	assert.Equal(t, 123456000, ts.Nanosecond())

	_, ok = ParseTime("")
	assert.False(t, ok)
	_, ok = ParseTime("soon")
	assert.False(t, ok)
}

func TestCoercion(t *testing.T) {
	n, ok := ToNumber("42.5")
	require.True(t, ok)
	assert.Equal(t, 42.5, n)
	_, ok = ToNumber("many")
	assert.False(t, ok)

	b, ok := ToBool("true")
	require.True(t, ok)
	assert.True(t, b)
	b, ok = ToBool(float64(0))
	require.True(t, ok)
	assert.False(t, b)

	assert.Equal(t, "22", ToString(float64(22)))
	assert.Equal(t, `["read"]`, ToString([]any{"read"}))
	assert.Equal(t, "", ToString(nil))
}
