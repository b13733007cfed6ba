package liveapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/rescache/internal/httpx"
	"github.com/viant/rescache/query"
	"github.com/viant/rescache/session"
)

func TestList(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		_, _ = w.Write([]byte(`{"items":[{"id":"ttcp_1"},{"id":"ttcp_2"}],"removed_ids":["ttcp_9"]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, session.StaticToken("at_1"))
	res, err := c.List(context.Background(), "targets", &query.Spec{
		Resource:  "target",
		ScopeID:   "global",
		Recursive: true,
		Filters:   query.Filters{"type": {query.Eq("tcp")}},
	})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, []string{"ttcp_9"}, res.RemovedIDs)

	require.NotNil(t, got)
	assert.Equal(t, "/v1/targets", got.URL.Path)
	assert.Equal(t, "global", got.URL.Query().Get("scope_id"))
	assert.Equal(t, "true", got.URL.Query().Get("recursive"))
	assert.Equal(t, `"/item/type" == "tcp"`, got.URL.Query().Get("filter"))
	assert.Equal(t, "Bearer at_1", got.Header.Get("Authorization"))
	assert.NotEmpty(t, got.Header.Get(httpx.RequestIDHeader))
}

func TestListHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	c := New(srv.URL, nil, WithRetryClient(httpx.NewRetryClient(0, time.Millisecond)))
	_, err := c.List(context.Background(), "users", &query.Spec{Resource: "user"})
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusForbidden, httpErr.StatusCode)
}

func TestListWithoutIdentity(t *testing.T) {
	c := New("http://127.0.0.1:1", session.StaticToken(""))
	_, err := c.List(context.Background(), "users", nil)
	require.ErrorIs(t, err, session.ErrNoIdentity)
}

func TestFilterExpression(t *testing.T) {
	f := query.Filters{
		"type": {query.Eq("tcp"), query.Eq("ssh")},
		"name": {query.Like("prod")},
	}
	assert.Equal(t, `"/item/name" matches "prod" and ("/item/type" == "tcp" or "/item/type" == "ssh")`, FilterExpression(f))
	assert.Equal(t, "", FilterExpression(nil))
}
