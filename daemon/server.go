// Package daemon serves cached resource searches from the local store over
// HTTP. It plays the native search daemon the console invokes by channel.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/viant/rescache/internal/httpx"
	"github.com/viant/rescache/ipc"
	"github.com/viant/rescache/query"
	"github.com/viant/rescache/schema"
	"github.com/viant/rescache/sorter"
	"github.com/viant/rescache/store"
)

// Server answers invoke requests from a Store.
type Server struct {
	store    store.Store
	registry *schema.Registry
	router   *mux.Router
}

// New creates a Server over st.
func New(st store.Store, registry *schema.Registry) *Server {
	s := &Server{store: st, registry: registry, router: mux.NewRouter()}
	s.router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)
	s.router.HandleFunc("/invoke/{channel}", httpx.Wrap(s.handleInvoke)).Methods(http.MethodPost)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	log.Info().Str("addr", addr).Msg("daemon listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleInvoke(_ http.ResponseWriter, r *http.Request) (map[string][]json.RawMessage, *httpx.HTTPError) {
	channel := mux.Vars(r)["channel"]
	if channel != ipc.SearchChannel {
		return nil, httpx.Errorf(http.StatusNotFound, "unknown channel "+channel)
	}
	var req ipc.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, httpx.Errorf(http.StatusBadRequest, "decode request: "+err.Error())
	}
	if req.Token == "" {
		return nil, httpx.Errorf(http.StatusUnauthorized, "token required")
	}
	return s.search(r.Context(), &req)
}

func (s *Server) search(ctx context.Context, req *ipc.SearchRequest) (map[string][]json.RawMessage, *httpx.HTTPError) {
	rt, ok := s.registry.Lookup(req.Resource)
	if !ok {
		rt, ok = s.registry.ByPlural(req.Plural)
	}
	if !ok {
		return nil, httpx.Errorf(http.StatusBadRequest, "unknown resource type "+req.Resource)
	}
	spec := &query.Spec{
		Resource: rt.Name,
		Filters:  query.Filters{},
		Search:   req.Search,
		Sort:     req.Sort,
	}
	for attr, clauses := range req.Filters {
		spec.Filters[attr] = clauses
	}
	if req.ScopeID != "" && rt.HasAttribute("scope_id") {
		spec.Filters.Add("scope_id", query.Eq(req.ScopeID))
	}

	rows, err := s.store.Fetch(ctx, spec)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrUnknownAttribute), errors.Is(err, sorter.ErrInvalidSortDirection):
			return nil, httpx.Errorf(http.StatusBadRequest, err.Error())
		}
		return nil, httpx.Errorf(http.StatusInternalServerError, err.Error())
	}
	plural := req.Plural
	if plural == "" {
		plural = rt.PluralName()
	}
	log.Debug().Str("resource", rt.Name).Int("rows", len(rows)).Msg("daemon search")
	return map[string][]json.RawMessage{plural: store.Payloads(rows)}, nil
}
