package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"pulsevote/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Remember returns the value cached under key, or calls load and caches its
// result for ttl. Without a client every call goes to load. A load error is
// returned as-is and nothing is written.
func Remember[T any](ctx context.Context, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	if v, ok := lookup[T](ctx, key); ok {
		return v, nil
	}
	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	store(ctx, key, v, ttl)
	return v, nil
}

// lookup decodes key into a T. Undecodable entries are dropped so the next
// read reloads them.
func lookup[T any](ctx context.Context, key string) (T, bool) {
	var zero T
	if client == nil {
		return zero, false
	}
	raw, err := client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		observability.CacheLookupsTotal.WithLabelValues("miss").Inc()
		return zero, false
	}
	if err != nil {
		observability.CacheLookupsTotal.WithLabelValues("error").Inc()
		return zero, false
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		observability.CacheLookupsTotal.WithLabelValues("corrupt").Inc()
		Invalidate(ctx, key)
		return zero, false
	}
	observability.CacheLookupsTotal.WithLabelValues("hit").Inc()
	return v, true
}

// store is best-effort; a failed write only costs the next reader a reload.
func store(ctx context.Context, key string, v any, ttl time.Duration) {
	if client == nil {
		return
	}
	b, err := json.Marshal(v)
	if err == nil {
		err = client.Set(ctx, key, b, ttl).Err()
	}
	if err != nil {
		observability.GlobalLogger.WarnContext(ctx, "cache write failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}
}
