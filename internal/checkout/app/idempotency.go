package app

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/jcmexdev/checkout-service/internal/pkg/cache"
)

// IdempotencyStore maps X-Idempotency-Key values to the order they
// produced, so a retried POST /orders returns the original order instead
// of creating a duplicate. Best-effort by design: every cache failure
// degrades to normal (non-idempotent) processing.
type IdempotencyStore struct {
	cache cache.Cache
	ttl   time.Duration
}

// NewIdempotencyStore wraps the shared cache. ttl bounds how long a key
// is remembered.
func NewIdempotencyStore(c cache.Cache, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{cache: c, ttl: ttl}
}

// Lookup reports the order id previously created under key, if any.
func (s *IdempotencyStore) Lookup(ctx context.Context, key string) (int64, bool) {
	v, err := s.cache.Get(ctx, s.cache.GenerateKey("idempotency", key))
	if err != nil {
		slog.WarnContext(ctx, "idempotency lookup failed, proceeding without", "error", err)
		return 0, false
	}
	if v == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Remember records that key produced orderID. First writer wins; a
// concurrent duplicate that lost the race keeps its own order.
func (s *IdempotencyStore) Remember(ctx context.Context, key string, orderID int64) {
	_, err := s.cache.SetNX(ctx, s.cache.GenerateKey("idempotency", key),
		strconv.FormatInt(orderID, 10), s.ttl)
	if err != nil {
		slog.WarnContext(ctx, "idempotency record failed", "order_id", orderID, "error", err)
	}
}
