package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/rescache/daemon"
	"github.com/viant/rescache/engine"
	"github.com/viant/rescache/ipc"
	"github.com/viant/rescache/liveapi"
	"github.com/viant/rescache/query"
	"github.com/viant/rescache/schema"
	"github.com/viant/rescache/session"
	"github.com/viant/rescache/sorter"
	"github.com/viant/rescache/store"
)

type fetcherFunc func(ctx context.Context, plural string, spec *query.Spec) (*liveapi.ListResult, error)

func (f fetcherFunc) List(ctx context.Context, plural string, spec *query.Spec) (*liveapi.ListResult, error) {
	return f(ctx, plural, spec)
}

func liveTargets(removed ...string) fetcherFunc {
	return func(_ context.Context, plural string, _ *query.Spec) (*liveapi.ListResult, error) {
		if plural != "targets" {
			return nil, errors.New("unexpected plural " + plural)
		}
		return &liveapi.ListResult{
			Items: []json.RawMessage{
				[]byte(`{"id":"ttcp_1","name":"web","created_time":"2024-01-01T00:00:00Z"}`),
				[]byte(`{"id":"ttcp_2","name":"db","created_time":"2024-02-01T00:00:00Z"}`),
			},
			RemovedIDs: removed,
		}, nil
	}
}

// failingStore fails every write.
type failingStore struct {
	store.Store
	mu     sync.Mutex
	writes int
}

func (f *failingStore) InsertPayloads(context.Context, string, []json.RawMessage) error {
	f.mu.Lock()
	f.writes++
	f.mu.Unlock()
	return errors.New("disk full")
}

func (f *failingStore) Delete(context.Context, string, []string) error {
	return errors.New("disk full")
}

func ids(rs *sorter.ResultSet) []string {
	var out []string
	for _, r := range rs.Results {
		out = append(out, r.ID)
	}
	return out
}

func newSQLiteStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	db, err := engine.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	st, err := store.NewSQLiteStore(context.Background(), db, schema.Default())
	require.NoError(t, err)
	return st
}

func TestDaemonFailureFallsBackToLive(t *testing.T) {
	failures := map[string]ipc.InvokerFunc{
		"transport": func(context.Context, string, any) (json.RawMessage, error) {
			return nil, errors.New("connection refused")
		},
		"wrong key": func(context.Context, string, any) (json.RawMessage, error) {
			return json.RawMessage(`{"users":[]}`), nil
		},
		"extra keys": func(context.Context, string, any) (json.RawMessage, error) {
			return json.RawMessage(`{"targets":[],"users":[]}`), nil
		},
		"not an object": func(context.Context, string, any) (json.RawMessage, error) {
			return json.RawMessage(`[1,2]`), nil
		},
		"bad payload": func(context.Context, string, any) (json.RawMessage, error) {
			return json.RawMessage(`{"targets":[{"name":"no id"}]}`), nil
		},
	}
	for name, inv := range failures {
		t.Run(name, func(t *testing.T) {
			r, err := New(schema.Default(),
				WithLive(liveTargets()),
				WithInvoker(inv),
				WithIdentity(session.StaticToken("at_1")),
				WithAllowList("target"),
			)
			require.NoError(t, err)

			rs, err := r.Query(context.Background(), &query.Spec{Resource: "target"})
			require.NoError(t, err)
			assert.Equal(t, []string{"ttcp_2", "ttcp_1"}, ids(rs))
		})
	}
}

func TestDaemonServesAllowListedTypes(t *testing.T) {
	var got ipc.SearchRequest
	var channel string
	inv := ipc.InvokerFunc(func(_ context.Context, ch string, payload any) (json.RawMessage, error) {
		channel = ch
		got = payload.(ipc.SearchRequest)
		return json.RawMessage(`{"targets":[{"id":"ttcp_7","name":"b"},{"id":"ttcp_8","name":"a"}]}`), nil
	})
	live := fetcherFunc(func(context.Context, string, *query.Spec) (*liveapi.ListResult, error) {
		t.Fatal("live API must not be called")
		return nil, nil
	})
	r, err := New(schema.Default(),
		WithLive(live),
		WithInvoker(inv),
		WithIdentity(session.StaticToken("at_1")),
		WithAllowList("target"),
	)
	require.NoError(t, err)

	spec := &query.Spec{
		Resource:  "target",
		Filters:   query.Filters{"type": {query.Eq("tcp")}},
		Sort:      query.Sort{Attribute: "name"},
		Page:      3,
		PageSize:  10,
		Recursive: true,
		ScopeID:   "global",
	}
	rs, err := r.Query(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, []string{"ttcp_8", "ttcp_7"}, ids(rs))

	assert.Equal(t, ipc.SearchChannel, channel)
	assert.Equal(t, "targets", got.Plural)
	assert.Equal(t, "at_1", got.Token)
	assert.Empty(t, got.ScopeID, "recursive queries search every cached scope")
	assert.Equal(t, "tcp", got.Filters["type"][0].Equals)
	// The caller's query is untouched.
	assert.Equal(t, 3, spec.Page)
	assert.True(t, spec.Recursive)

	cached, ok := r.Objects().Peek("target", "ttcp_7")
	require.True(t, ok)
	assert.Same(t, rs.Results[1], cached)
}

func TestEmptyDaemonReply(t *testing.T) {
	for _, reply := range []string{`{}`, `{"targets":null}`, `{"targets":[]}`} {
		inv := ipc.InvokerFunc(func(context.Context, string, any) (json.RawMessage, error) {
			return json.RawMessage(reply), nil
		})
		r, err := New(schema.Default(), WithLive(liveTargets()), WithInvoker(inv), WithAllowList("target"))
		require.NoError(t, err)
		rs, err := r.Query(context.Background(), &query.Spec{Resource: "target"})
		require.NoError(t, err, reply)
		assert.Empty(t, rs.Results, reply)
	}
}

func TestTypesOutsideAllowListGoLive(t *testing.T) {
	inv := ipc.InvokerFunc(func(context.Context, string, any) (json.RawMessage, error) {
		t.Fatal("daemon must not be invoked")
		return nil, nil
	})
	r, err := New(schema.Default(), WithLive(liveTargets()), WithInvoker(inv), WithAllowList("user"))
	require.NoError(t, err)
	assert.False(t, r.LocalFirst("target"))
	assert.True(t, r.LocalFirst("user"))

	rs, err := r.Query(context.Background(), &query.Spec{Resource: "target"})
	require.NoError(t, err)
	assert.Len(t, rs.Results, 2)
}

func TestQueryLiveSkipsDaemon(t *testing.T) {
	inv := ipc.InvokerFunc(func(context.Context, string, any) (json.RawMessage, error) {
		t.Fatal("daemon must not be invoked")
		return nil, nil
	})
	r, err := New(schema.Default(), WithLive(liveTargets()), WithInvoker(inv), WithAllowList("target"))
	require.NoError(t, err)
	rs, err := r.QueryLive(context.Background(), &query.Spec{Resource: "target", Sort: query.Sort{Attribute: "name"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"ttcp_2", "ttcp_1"}, ids(rs))
}

func TestCacheFillFailureDoesNotFailQuery(t *testing.T) {
	st := &failingStore{}
	r, err := New(schema.Default(), WithLive(liveTargets("ttcp_9")), WithStore(st))
	require.NoError(t, err)

	rs, err := r.Query(context.Background(), &query.Spec{Resource: "target"})
	require.NoError(t, err)
	assert.Len(t, rs.Results, 2)

	r.Wait()
	st.mu.Lock()
	defer st.mu.Unlock()
	assert.Equal(t, 1, st.writes)
}

func TestCacheFillWritesStore(t *testing.T) {
	ctx := context.Background()
	st := newSQLiteStore(t)
	require.NoError(t, st.InsertPayloads(ctx, "target", []json.RawMessage{
		[]byte(`{"id":"ttcp_9","name":"gone"}`),
	}))

	r, err := New(schema.Default(), WithLive(liveTargets("ttcp_9")), WithStore(st))
	require.NoError(t, err)
	_, err = r.Query(ctx, &query.Spec{Resource: "target"})
	require.NoError(t, err)
	r.Wait()

	count, err := st.Count(ctx, &query.Spec{Resource: "target"})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	ok, err := st.Exists(ctx, "target", "ttcp_9")
	require.NoError(t, err)
	assert.False(t, ok)

	state, ok, err := st.SyncState(ctx, "target")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, state.Items)
	assert.Equal(t, 1, state.Removed)
}

func TestCancelledQuerySkipsCacheFill(t *testing.T) {
	st := &failingStore{}
	ctx, cancel := context.WithCancel(context.Background())
	live := fetcherFunc(func(ctx context.Context, plural string, spec *query.Spec) (*liveapi.ListResult, error) {
		res, err := liveTargets()(ctx, plural, spec)
		cancel()
		return res, err
	})
	r, err := New(schema.Default(), WithLive(live), WithStore(st))
	require.NoError(t, err)

	_, err = r.Query(ctx, &query.Spec{Resource: "target"})
	require.NoError(t, err)
	r.Wait()
	assert.Equal(t, 0, st.writes)
}

func TestLiveFailurePropagates(t *testing.T) {
	boom := errors.New("api down")
	live := fetcherFunc(func(context.Context, string, *query.Spec) (*liveapi.ListResult, error) {
		return nil, boom
	})
	r, err := New(schema.Default(), WithLive(live))
	require.NoError(t, err)
	_, err = r.Query(context.Background(), &query.Spec{Resource: "target"})
	require.ErrorIs(t, err, boom)
}

func TestQueryValidation(t *testing.T) {
	r, err := New(schema.Default(), WithLive(liveTargets()))
	require.NoError(t, err)

	_, err = r.Query(context.Background(), &query.Spec{Resource: "spaceship"})
	require.ErrorIs(t, err, ErrUnknownResourceType)

	_, err = r.Query(context.Background(), &query.Spec{Resource: "target", Sort: query.Sort{Attribute: "color"}})
	require.ErrorIs(t, err, sorter.ErrUnknownSortAttribute)

	_, err = r.Query(context.Background(), &query.Spec{Resource: "target", Sort: query.Sort{Direction: "up"}})
	require.ErrorIs(t, err, sorter.ErrInvalidSortDirection)

	_, err = New(schema.Default())
	require.Error(t, err)
	_, err = New(schema.Default(), WithLive(liveTargets()), WithAllowList("spaceship"))
	require.ErrorIs(t, err, ErrUnknownResourceType)
}

func TestScopedQueriesThroughDaemon(t *testing.T) {
	ctx := context.Background()
	st := newSQLiteStore(t)
	require.NoError(t, st.InsertPayloads(ctx, "target", []json.RawMessage{
		[]byte(`{"id":"ttcp_1","name":"web","scope":{"id":"p_1234"},"created_time":"2024-01-01T00:00:00Z"}`),
		[]byte(`{"id":"ttcp_2","name":"db","scope":{"id":"p_5678"},"created_time":"2024-02-01T00:00:00Z"}`),
	}))
	srv := httptest.NewServer(daemon.New(st, schema.Default()))
	defer srv.Close()

	live := fetcherFunc(func(context.Context, string, *query.Spec) (*liveapi.ListResult, error) {
		t.Fatal("live API must not be called")
		return nil, nil
	})
	r, err := New(schema.Default(),
		WithLive(live),
		WithInvoker(ipc.NewHTTPInvoker(srv.URL)),
		WithIdentity(session.StaticToken("at_1")),
		WithAllowList("target"),
	)
	require.NoError(t, err)

	rs, err := r.Query(ctx, &query.Spec{Resource: "target", ScopeID: "global", Recursive: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"ttcp_2", "ttcp_1"}, ids(rs))

	rs, err = r.Query(ctx, &query.Spec{Resource: "target", ScopeID: "p_1234"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ttcp_1"}, ids(rs))
}

// panickingStore panics on every write.
type panickingStore struct {
	store.Store
}

func (panickingStore) InsertPayloads(context.Context, string, []json.RawMessage) error {
	panic("corrupt page")
}

func TestCacheFillPanicDoesNotCrash(t *testing.T) {
	r, err := New(schema.Default(), WithLive(liveTargets()), WithStore(panickingStore{}))
	require.NoError(t, err)

	rs, err := r.Query(context.Background(), &query.Spec{Resource: "target"})
	require.NoError(t, err)
	assert.Len(t, rs.Results, 2)
	r.Wait()
}
