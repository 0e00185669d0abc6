package cache

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"cargo/internal/metrics"
)

// Memo memoizes a computation of type T in a Cache under a namespace.
// Concurrent misses for the same key share one computation.
type Memo[T any] struct {
	cache     Cache
	namespace string
	ttl       time.Duration
	logger    *zap.Logger
	recorder  metrics.Recorder
	group     singleflight.Group
}

func NewMemo[T any](c Cache, namespace string, ttl time.Duration, logger *zap.Logger, rec metrics.Recorder) *Memo[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Memo[T]{
		cache:     c,
		namespace: namespace,
		ttl:       ttl,
		logger:    logger,
		recorder:  metrics.OrNop(rec),
	}
}

// Key returns the cache key for the given inputs.
func (m *Memo[T]) Key(parts ...any) string {
	return Key(m.namespace, parts...)
}

// Do returns the cached value for key or runs compute and stores its result.
// Cache read or decode failures count as misses; write failures are logged.
// Errors from compute are returned and never cached, and neither is a result
// computed after ctx was cancelled.
func (m *Memo[T]) Do(ctx context.Context, key string, compute func(context.Context) (T, error)) (T, error) {
	labels := metrics.Labels{"namespace": m.namespace}
	if v, ok := m.lookup(ctx, key); ok {
		m.recorder.Inc(metrics.CacheHit, labels)
		return v, nil
	}
	m.recorder.Inc(metrics.CacheMiss, labels)

	res, err, _ := m.group.Do(key, func() (any, error) {
		v, err := compute(ctx)
		if err != nil {
			return v, err
		}
		if ctx.Err() != nil {
			m.logger.Debug("context done, result not cached", zap.String("key", key))
			return v, nil
		}
		m.store(ctx, key, v)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return res.(T), nil
}

func (m *Memo[T]) lookup(ctx context.Context, key string) (T, bool) {
	var v T
	raw, ok, err := m.cache.Get(ctx, key)
	if err != nil {
		m.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		return v, false
	}
	if !ok {
		return v, false
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		m.logger.Warn("cache entry undecodable", zap.String("key", key), zap.Error(err))
		var zero T
		return zero, false
	}
	return v, true
}

func (m *Memo[T]) store(ctx context.Context, key string, v T) {
	raw, err := json.Marshal(v)
	if err != nil {
		m.logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := m.cache.Set(ctx, key, raw, m.ttl); err != nil {
		m.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}
