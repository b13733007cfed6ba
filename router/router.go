// Package router decides, per query, whether results come from the native
// search daemon or the live API, and keeps the local store warm from live
// results.
//
// Allow-listed resource types are asked of the daemon first; any daemon
// failure falls back to the live API. Every successful live listing is
// written to the local store in the background. Cache-fill failures are
// logged and never reach the caller.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"

	"github.com/viant/rescache/ipc"
	"github.com/viant/rescache/liveapi"
	"github.com/viant/rescache/objectcache"
	"github.com/viant/rescache/query"
	"github.com/viant/rescache/resource"
	"github.com/viant/rescache/schema"
	"github.com/viant/rescache/session"
	"github.com/viant/rescache/sorter"
	"github.com/viant/rescache/store"
)

var (
	// ErrUnknownResourceType is returned for queries on unregistered types.
	ErrUnknownResourceType = errors.New("router: unknown resource type")
	// ErrMalformedReply is returned when a daemon reply is not a single-key
	// object keyed by the plural type name.
	ErrMalformedReply = errors.New("router: malformed daemon reply")
)

// DefaultFillTimeout bounds one background cache-fill.
const DefaultFillTimeout = 30 * time.Second

// Router serves resource queries.
type Router struct {
	registry    *schema.Registry
	store       store.Store
	live        liveapi.Fetcher
	invoker     ipc.Invoker
	identity    session.Identity
	serializers *resource.Registry
	objects     objectcache.Cache
	allow       map[string]bool
	channel     string
	locale      language.Tag
	fillTimeout time.Duration

	fills sync.WaitGroup
}

// New creates a Router. A live fetcher is required; without an invoker or
// allow-list every query is served live, and without a store no cache-fill
// runs.
func New(registry *schema.Registry, opts ...Option) (*Router, error) {
	if registry == nil {
		return nil, fmt.Errorf("router: registry is nil")
	}
	r := &Router{
		registry:    registry,
		serializers: resource.NewRegistry(),
		objects:     objectcache.NewMemory(),
		allow:       map[string]bool{},
		channel:     ipc.SearchChannel,
		locale:      language.English,
		fillTimeout: DefaultFillTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.live == nil {
		return nil, fmt.Errorf("router: live fetcher is required")
	}
	for name := range r.allow {
		if _, ok := registry.Lookup(name); !ok {
			return nil, fmt.Errorf("%w: %q in allow-list", ErrUnknownResourceType, name)
		}
	}
	return r, nil
}

// LocalFirst reports whether typeName is served by the daemon first.
func (r *Router) LocalFirst(typeName string) bool {
	return r.invoker != nil && r.allow[typeName]
}

// Objects returns the object cache results are pushed into.
func (r *Router) Objects() objectcache.Cache { return r.objects }

// Query serves the query from the daemon when the type is allow-listed, falling
// back to the live API on any daemon failure.
func (r *Router) Query(ctx context.Context, spec *query.Spec) (*sorter.ResultSet, error) {
	rt, err := r.prepare(spec)
	if err != nil {
		return nil, err
	}
	if r.LocalFirst(rt.Name) {
		results, err := r.queryDaemon(ctx, rt, spec)
		if err == nil {
			return r.sort(rt, spec, results)
		}
		log.Warn().Err(err).Str("resource", rt.Name).Msg("daemon query failed, falling back to live API")
	}
	return r.queryLive(ctx, rt, spec)
}

// QueryLive always serves the query from the live API.
func (r *Router) QueryLive(ctx context.Context, spec *query.Spec) (*sorter.ResultSet, error) {
	rt, err := r.prepare(spec)
	if err != nil {
		return nil, err
	}
	return r.queryLive(ctx, rt, spec)
}

// Wait blocks until every started cache-fill has finished.
func (r *Router) Wait() {
	r.fills.Wait()
}

// prepare resolves the type and rejects invalid sorts before any I/O.
func (r *Router) prepare(spec *query.Spec) (*schema.ResourceType, error) {
	if spec == nil {
		return nil, fmt.Errorf("router: nil query")
	}
	rt, ok := r.registry.Lookup(spec.Resource)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownResourceType, spec.Resource)
	}
	if _, err := sorter.SortResults(nil, sorter.Options{Sort: spec.Sort, Schema: rt}); err != nil {
		return nil, err
	}
	return rt, nil
}

func (r *Router) queryDaemon(ctx context.Context, rt *schema.ResourceType, spec *query.Spec) ([]*resource.Resource, error) {
	var token string
	if r.identity != nil {
		var err error
		if token, err = r.identity.Token(ctx); err != nil {
			return nil, err
		}
	}
	local := spec.Clone()
	// The daemon searches every cached scope; a recursive query must not
	// narrow it to the parent scope.
	if local.Recursive {
		local.ScopeID = ""
	}
	local.Page, local.PageSize, local.Recursive = 0, 0, false
	plural := rt.PluralName()

	reply, err := r.invoker.Invoke(ctx, r.channel, ipc.SearchRequest{
		Resource: rt.Name,
		Plural:   plural,
		Token:    token,
		Filters:  local.Filters,
		Search:   local.Search,
		Sort:     local.Sort,
		ScopeID:  local.ScopeID,
	})
	if err != nil {
		return nil, err
	}
	payloads, err := decodeReply(reply, plural)
	if err != nil {
		return nil, err
	}
	results, err := r.serializers.NormalizeAll(rt.Name, payloads)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("resource", rt.Name).Int("results", len(results)).Msg("served from daemon")
	return r.objects.Push(rt.Name, results), nil
}

// decodeReply extracts the payload list of a {<plural>: [...]} reply. A null
// or missing list is an empty result.
func decodeReply(reply json.RawMessage, plural string) ([]json.RawMessage, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(reply, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	if envelope == nil {
		return nil, fmt.Errorf("%w: not an object", ErrMalformedReply)
	}
	if len(envelope) > 1 {
		return nil, fmt.Errorf("%w: %d keys", ErrMalformedReply, len(envelope))
	}
	if len(envelope) == 0 {
		return nil, nil
	}
	list, ok := envelope[plural]
	if !ok {
		return nil, fmt.Errorf("%w: want key %q", ErrMalformedReply, plural)
	}
	var payloads []json.RawMessage
	if err := json.Unmarshal(list, &payloads); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	return payloads, nil
}

func (r *Router) queryLive(ctx context.Context, rt *schema.ResourceType, spec *query.Spec) (*sorter.ResultSet, error) {
	listed, err := r.live.List(ctx, rt.PluralName(), spec)
	if err != nil {
		return nil, err
	}
	results, err := r.serializers.NormalizeAll(rt.Name, listed.Items)
	if err != nil {
		return nil, err
	}
	objects := r.objects.Push(rt.Name, results)
	if len(listed.RemovedIDs) > 0 {
		r.objects.Unload(rt.Name, listed.RemovedIDs...)
	}
	if ctx.Err() == nil {
		r.fill(rt.Name, listed)
	}
	return r.sort(rt, spec, objects)
}

// syncRecorder is implemented by stores that keep per-type fill state.
type syncRecorder interface {
	RecordSync(ctx context.Context, typeName string, items, removed int) error
}

// fill writes a live listing into the store in the background.
func (r *Router) fill(typeName string, listed *liveapi.ListResult) {
	if r.store == nil || (len(listed.Items) == 0 && len(listed.RemovedIDs) == 0) {
		return
	}
	items := append([]json.RawMessage(nil), listed.Items...)
	removed := append([]string(nil), listed.RemovedIDs...)

	r.fills.Add(1)
	go func() {
		defer r.fills.Done()
		defer func() {
			if p := recover(); p != nil {
				log.Warn().Str("resource", typeName).Interface("panic", p).Msg("cache-fill panicked")
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), r.fillTimeout)
		defer cancel()

		logger := log.With().Str("resource", typeName).Logger()
		if len(items) > 0 {
			if err := r.store.InsertPayloads(ctx, typeName, items); err != nil {
				logger.Warn().Err(err).Int("items", len(items)).Msg("cache-fill insert failed")
				return
			}
		}
		if len(removed) > 0 {
			if err := r.store.Delete(ctx, typeName, removed); err != nil {
				logger.Warn().Err(err).Int("removed", len(removed)).Msg("cache-fill delete failed")
				return
			}
		}
		if rec, ok := r.store.(syncRecorder); ok {
			if err := rec.RecordSync(ctx, typeName, len(items), len(removed)); err != nil {
				logger.Warn().Err(err).Msg("cache-fill sync state not recorded")
			}
		}
		logger.Debug().Int("items", len(items)).Int("removed", len(removed)).Msg("cache-fill done")
	}()
}

func (r *Router) sort(rt *schema.ResourceType, spec *query.Spec, results []*resource.Resource) (*sorter.ResultSet, error) {
	return sorter.SortResults(results, sorter.Options{Sort: spec.Sort, Schema: rt, Locale: r.locale})
}
