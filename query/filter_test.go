package query

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAccumulatesSameField(t *testing.T) {
	spec, err := Build("resource:target a:1 a:2 b:3")
	require.NoError(t, err)

	assert.Equal(t, "target", spec.Resource)
	assert.Equal(t, Filters{
		"a": {Eq("1"), Eq("2")},
		"b": {Eq("3")},
	}, spec.Filters)
	_, hasResource := spec.Filters[ResourceField]
	assert.False(t, hasResource)
}

func TestBuildDiscardsStructure(t *testing.T) {
	// OR between distinct fields is read as AND; the grouping is lost.
	spec, err := Build("resource:target (a:1 OR b:2) a:3")
	require.NoError(t, err)
	assert.Equal(t, Filters{
		"a": {Eq("3"), Eq("1")},
		"b": {Eq("2")},
	}, spec.Filters)
}

func TestBuildEmptyClauseAddsNothing(t *testing.T) {
	spec, err := Build("resource:user name: email:a@b.c")
	require.NoError(t, err)
	assert.Equal(t, Filters{"email": {Eq("a@b.c")}}, spec.Filters)
}

func TestBuildOptions(t *testing.T) {
	spec, err := Build("name~prod web",
		WithResource("target"),
		WithChip("type", "tcp", "ssh"),
		WithScope("p_1234", true),
		WithSort("name", Asc),
		WithPage(2, 50),
	)
	require.NoError(t, err)

	assert.Equal(t, "target", spec.Resource)
	assert.Equal(t, Filters{
		"name": {Like("prod")},
		"type": {Eq("tcp"), Eq("ssh")},
	}, spec.Filters)
	assert.Equal(t, "web", spec.Search)
	assert.Equal(t, "p_1234", spec.ScopeID)
	assert.True(t, spec.Recursive)
	assert.Equal(t, Sort{Attribute: "name", Direction: Asc}, spec.Sort)
	assert.Equal(t, 50, spec.Offset())
}

func TestBuildErrors(t *testing.T) {
	_, err := Build("name:x")
	assert.Error(t, err, "missing resource")

	_, err = Build("resource:target resource:session")
	assert.Error(t, err, "conflicting resources")
}

func TestSpecJSON(t *testing.T) {
	spec, err := Build("resource:session status:active", WithScope("global", true))
	require.NoError(t, err)

	data, err := json.Marshal(spec)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"resource": "session",
		"filters": {"status": [{"equals": "active"}]},
		"sort": {},
		"scope_id": "global",
		"recursive": true
	}`, string(data))

	var back Spec
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "active", back.Filters["status"][0].Value())
}

func TestSpecClone(t *testing.T) {
	spec := &Spec{Resource: "target", Filters: Filters{"a": {Eq("1")}}}
	clone := spec.Clone()
	clone.Filters.Add("a", Eq("2"))
	assert.Len(t, spec.Filters["a"], 1)
	assert.Len(t, clone.Filters["a"], 2)
}
