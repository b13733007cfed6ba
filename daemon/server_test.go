package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/rescache/engine"
	"github.com/viant/rescache/ipc"
	"github.com/viant/rescache/query"
	"github.com/viant/rescache/schema"
	"github.com/viant/rescache/store"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()
	db, err := engine.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	registry := schema.Default()
	st, err := store.NewSQLiteStore(ctx, db, registry)
	require.NoError(t, err)
	require.NoError(t, st.InsertPayloads(ctx, "target", []json.RawMessage{
		[]byte(`{"id":"ttcp_1","name":"web","type":"tcp","scope":{"id":"p_1"},"created_time":"2024-01-01T00:00:00Z"}`),
		[]byte(`{"id":"ttcp_2","name":"db","type":"tcp","scope":{"id":"p_2"},"created_time":"2024-02-01T00:00:00Z"}`),
	}))

	srv := httptest.NewServer(New(st, registry))
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url string, req any) *http.Response {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestSearchChannel(t *testing.T) {
	srv := newServer(t)

	resp := post(t, srv.URL+"/invoke/"+ipc.SearchChannel, ipc.SearchRequest{
		Resource: "target",
		Plural:   "targets",
		Token:    "at_1",
		Sort:     query.Sort{Attribute: "name"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var reply map[string][]map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reply))
	require.Len(t, reply, 1)
	require.Len(t, reply["targets"], 2)
	assert.Equal(t, "db", reply["targets"][0]["name"])

	resp = post(t, srv.URL+"/invoke/"+ipc.SearchChannel, ipc.SearchRequest{
		Resource: "target",
		Plural:   "targets",
		Token:    "at_1",
		ScopeID:  "p_1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	reply = nil
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reply))
	require.Len(t, reply["targets"], 1)
	assert.Equal(t, "ttcp_1", reply["targets"][0]["id"])
}

func TestSearchEmptyResult(t *testing.T) {
	srv := newServer(t)
	resp := post(t, srv.URL+"/invoke/"+ipc.SearchChannel, ipc.SearchRequest{
		Plural: "users",
		Token:  "at_1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var reply map[string][]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reply))
	assert.Contains(t, reply, "users")
	assert.Empty(t, reply["users"])
}

func TestInvokeErrors(t *testing.T) {
	srv := newServer(t)

	cases := []struct {
		name    string
		channel string
		req     ipc.SearchRequest
		status  int
	}{
		{"missing token", ipc.SearchChannel, ipc.SearchRequest{Resource: "target"}, http.StatusUnauthorized},
		{"unknown channel", "shell", ipc.SearchRequest{Token: "at_1"}, http.StatusNotFound},
		{"unknown type", ipc.SearchChannel, ipc.SearchRequest{Resource: "spaceship", Token: "at_1"}, http.StatusBadRequest},
		{
			"unknown attribute", ipc.SearchChannel,
			ipc.SearchRequest{Resource: "target", Token: "at_1", Filters: query.Filters{"color": {query.Eq("red")}}},
			http.StatusBadRequest,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := post(t, srv.URL+"/invoke/"+tc.channel, tc.req)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestHealthz(t *testing.T) {
	srv := newServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
