package resource

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONSerializerNormalize(t *testing.T) {
	raw := json.RawMessage(`{"id":"ttcp_1","name":"web","scope_id":"p_1","default_port":22,"scope":{"id":"p_1"}}`)
	res, err := JSONSerializer{}.Normalize("target", raw)
	require.NoError(t, err)

	assert.Equal(t, "ttcp_1", res.ID)
	assert.Equal(t, "target", res.Type)
	assert.Equal(t, "web", res.Attributes["name"])
	assert.Equal(t, float64(22), res.Attributes["default_port"])
	assert.Equal(t, map[string]string{"scope": "p_1"}, res.Relationships)
	_, hasID := res.Attributes["id"]
	assert.False(t, hasID)
}

func TestJSONSerializerRoundTrip(t *testing.T) {
	res := &Resource{
		ID:            "s_1",
		Type:          "session",
		Attributes:    map[string]any{"status": "active"},
		Relationships: map[string]string{"target": "ttcp_1"},
	}
	data, err := JSONSerializer{}.Serialize(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"s_1","status":"active","target_id":"ttcp_1"}`, string(data))

	back, err := JSONSerializer{}.Normalize("session", data)
	require.NoError(t, err)
	assert.Equal(t, res.Relationships, back.Relationships)
}

func TestJSONSerializerErrors(t *testing.T) {
	_, err := JSONSerializer{}.Normalize("target", json.RawMessage(`[1,2]`))
	assert.Error(t, err)
	_, err = JSONSerializer{}.Normalize("target", json.RawMessage(`{"name":"x"}`))
	assert.Error(t, err)
}

type upperSerializer struct{ JSONSerializer }

func (u upperSerializer) Normalize(typeName string, raw json.RawMessage) (*Resource, error) {
	res, err := u.JSONSerializer.Normalize(typeName, raw)
	if err != nil {
		return nil, err
	}
	res.Type = "custom-" + typeName
	return res, nil
}

func TestRegistry(t *testing.T) {
	r := NewRegistry().Register("user", upperSerializer{})

	users, err := r.NormalizeAll("user", []json.RawMessage{[]byte(`{"id":"u_1"}`)})
	require.NoError(t, err)
	assert.Equal(t, "custom-user", users[0].Type)

	groups, err := r.NormalizeAll("group", []json.RawMessage{[]byte(`{"id":"g_1"}`)})
	require.NoError(t, err)
	assert.Equal(t, "group", groups[0].Type)

	_, err = r.NormalizeAll("group", []json.RawMessage{[]byte(`{}`)})
	assert.Error(t, err)
}
