// Package resolver implements the cache → store → fetch resolution
// chain. It is the only place allowed to judge whether a stored value
// is still fresh enough to serve; downstream consumers trust whatever
// it hands them.
package resolver

import (
	"context"
	"time"

	"github.com/quantlab/stocksignal/internal/contracts"
	"github.com/quantlab/stocksignal/pkg/logger"
	"github.com/quantlab/stocksignal/pkg/redis"
)

// Source records which tier of the chain produced a resolved value.
type Source string

const (
	SourceCache Source = "cache"
	SourceStore Source = "store"
	SourceFresh Source = "fresh"
)

// Resolved wraps a value with its provenance. Stale is set when the
// refresh path failed and a prior persisted value was served instead.
type Resolved[T any] struct {
	Value  T
	Source Source
	Stale  bool
}

// Policy describes how one data kind resolves. Fresh overrides the TTL
// check on store hits when set; indicator snapshots use it to tie
// freshness to the price series instead of wall-clock age.
type Policy[T any] struct {
	Kind     string
	CacheKey string
	TTL      time.Duration

	// LoadStore returns the persisted value and its as-of time.
	// contracts.ErrNotFound means no persisted value exists.
	LoadStore func(ctx context.Context) (T, time.Time, error)

	// Refresh fetches or computes a new value and persists it.
	Refresh func(ctx context.Context) (T, error)

	// Fresh, when non-nil, replaces the TTL comparison for store hits.
	Fresh func(asOf time.Time) bool
}

// Resolve runs the chain for one policy: cache hit returns immediately;
// a fresh store hit is re-cached and returned; otherwise Refresh runs.
// A Refresh failure with ErrDataUnavailable degrades to the persisted
// value, marked stale, when one exists.
func Resolve[T any](ctx context.Context, cache *redis.Cache, log *logger.Logger, p Policy[T]) (*Resolved[T], error) {
	var cached T
	if hit, err := cache.Get(ctx, p.CacheKey, &cached); err == nil && hit {
		return &Resolved[T]{Value: cached, Source: SourceCache}, nil
	}

	stored, asOf, storeErr := p.LoadStore(ctx)
	haveStored := storeErr == nil
	if storeErr != nil && !contracts.IsNotFound(storeErr) {
		return nil, storeErr
	}

	if haveStored && p.isFresh(asOf) {
		cacheSet(ctx, cache, log, p.Kind, p.CacheKey, stored, p.TTL)
		return &Resolved[T]{Value: stored, Source: SourceStore}, nil
	}

	fresh, err := p.Refresh(ctx)
	if err != nil {
		if contracts.IsDataUnavailable(err) && haveStored {
			log.WithFields(map[string]interface{}{
				"kind": p.Kind,
				"key":  p.CacheKey,
			}).WithError(err).Warn("Refresh failed, serving stale value")
			return &Resolved[T]{Value: stored, Source: SourceStore, Stale: true}, nil
		}
		return nil, err
	}

	cacheSet(ctx, cache, log, p.Kind, p.CacheKey, fresh, p.TTL)
	return &Resolved[T]{Value: fresh, Source: SourceFresh}, nil
}

func (p Policy[T]) isFresh(asOf time.Time) bool {
	if p.Fresh != nil {
		return p.Fresh(asOf)
	}
	return time.Since(asOf) <= p.TTL
}

// cacheSet is best-effort: a cache write failure is logged and ignored.
func cacheSet[T any](ctx context.Context, cache *redis.Cache, log *logger.Logger, kind, key string, value T, ttl time.Duration) {
	if err := cache.Set(ctx, key, value, ttl); err != nil {
		log.WithField("kind", kind).WithError(err).Warn("Cache write failed")
	}
}
