package router

import (
	"time"

	"golang.org/x/text/language"

	"github.com/viant/rescache/ipc"
	"github.com/viant/rescache/liveapi"
	"github.com/viant/rescache/objectcache"
	"github.com/viant/rescache/resource"
	"github.com/viant/rescache/session"
	"github.com/viant/rescache/store"
)

// Option configures a Router.
type Option func(*Router)

// WithStore sets the cache-fill target.
func WithStore(s store.Store) Option {
	return func(r *Router) { r.store = s }
}

// WithLive sets the live API fetcher.
func WithLive(f liveapi.Fetcher) Option {
	return func(r *Router) { r.live = f }
}

// WithInvoker sets the daemon invoker.
func WithInvoker(inv ipc.Invoker) Option {
	return func(r *Router) { r.invoker = inv }
}

// WithChannel overrides the daemon search channel.
func WithChannel(channel string) Option {
	return func(r *Router) {
		if channel != "" {
			r.channel = channel
		}
	}
}

// WithIdentity sets the token source attached to daemon requests.
func WithIdentity(id session.Identity) Option {
	return func(r *Router) { r.identity = id }
}

// WithSerializers sets the serializer registry.
func WithSerializers(s *resource.Registry) Option {
	return func(r *Router) {
		if s != nil {
			r.serializers = s
		}
	}
}

// WithObjectCache sets the object cache results are pushed into.
func WithObjectCache(c objectcache.Cache) Option {
	return func(r *Router) {
		if c != nil {
			r.objects = c
		}
	}
}

// WithAllowList marks types served by the daemon first.
func WithAllowList(types ...string) Option {
	return func(r *Router) {
		for _, t := range types {
			if t != "" {
				r.allow[t] = true
			}
		}
	}
}

// WithLocale sets the collation locale of string sorts.
func WithLocale(tag language.Tag) Option {
	return func(r *Router) { r.locale = tag }
}

// WithFillTimeout bounds each background cache-fill.
func WithFillTimeout(d time.Duration) Option {
	return func(r *Router) {
		if d > 0 {
			r.fillTimeout = d
		}
	}
}
