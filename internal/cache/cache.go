// Package cache implements the cache-aside layer fronting the catalog
// read paths: get-or-compute-and-store with TTL over a shared key/value
// backend. A backend outage degrades every operation to a direct compute,
// never to a caller-visible failure.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"dramastream/catalogservice/internal/metrics"
)

// Backend is the minimal key/value contract the store needs. The
// production implementation is Redis; tests inject fakes.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePattern(ctx context.Context, prefix string) error
}

type Store struct {
	backend Backend
	logger  *slog.Logger
}

// NewStore wraps backend. A nil backend yields a store that always
// computes directly.
func NewStore(backend Backend, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{backend: backend, logger: logger}
}

// Key builds a namespaced, versioned cache key. Bumping the version tag
// at a call site is the invalidation mechanism for structural changes.
func Key(resource, version string, parts ...string) string {
	segments := make([]string, 0, 2+len(parts))
	segments = append(segments, resource, version)
	for _, part := range parts {
		segments = append(segments, strings.TrimSpace(part))
	}
	return strings.Join(segments, ":")
}

// GetOrSet returns the cached value under key, or computes, stores, and
// returns it. Backend failures are logged at warning level and the
// computed value is returned as if the cache did not exist.
func GetOrSet[T any](ctx context.Context, store *Store, key string, ttl time.Duration, compute func(context.Context) (T, error)) (T, error) {
	if store == nil || store.backend == nil {
		return compute(ctx)
	}

	data, found, err := store.backend.Get(ctx, key)
	if err != nil {
		metrics.CacheErrorsTotal.Inc()
		store.logger.Warn("cache backend unavailable, computing directly",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return compute(ctx)
	}
	if found {
		var value T
		if err := json.Unmarshal(data, &value); err == nil {
			metrics.CacheHitsTotal.Inc()
			return value, nil
		}
		// A payload that no longer unmarshals means the entry predates a
		// schema change that forgot a version bump. Drop it and recompute.
		_ = store.backend.Delete(ctx, key)
	}
	metrics.CacheMissesTotal.Inc()

	value, err := compute(ctx)
	if err != nil {
		return value, err
	}

	payload, err := json.Marshal(value)
	if err != nil {
		store.logger.Warn("cache payload not serializable", slog.String("key", key), slog.String("error", err.Error()))
		return value, nil
	}
	if err := store.backend.Set(ctx, key, payload, ttl); err != nil {
		metrics.CacheErrorsTotal.Inc()
		store.logger.Warn("cache store failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	return value, nil
}

// Invalidate removes exact keys after a write that changes served data.
func (s *Store) Invalidate(ctx context.Context, keys ...string) {
	if s == nil || s.backend == nil || len(keys) == 0 {
		return
	}
	if err := s.backend.Delete(ctx, keys...); err != nil {
		metrics.CacheErrorsTotal.Inc()
		s.logger.Warn("cache invalidate failed", slog.Any("keys", keys), slog.String("error", err.Error()))
	}
}

// InvalidatePattern removes every key under prefix.
func (s *Store) InvalidatePattern(ctx context.Context, prefix string) {
	if s == nil || s.backend == nil || strings.TrimSpace(prefix) == "" {
		return
	}
	if err := s.backend.DeletePattern(ctx, prefix); err != nil {
		metrics.CacheErrorsTotal.Inc()
		s.logger.Warn("cache pattern invalidate failed", slog.String("prefix", prefix), slog.String("error", err.Error()))
	}
}
