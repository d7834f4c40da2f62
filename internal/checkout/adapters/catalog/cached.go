package catalog

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jcmexdev/checkout-service/internal/checkout/ports"
	"github.com/jcmexdev/checkout-service/internal/pkg/cache"
)

var _ ports.PriceSource = (*CachedSource)(nil)

// CachedSource decorates a PriceSource with a short-TTL Redis cache. Only
// successful lookups are cached: misses, outages and bad data always go
// back to the catalog. Cache failures degrade to a plain lookup.
type CachedSource struct {
	src   ports.PriceSource
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedSource wraps src. The TTL bounds how stale a served price can
// be relative to the catalog.
func NewCachedSource(src ports.PriceSource, c cache.Cache, ttl time.Duration) *CachedSource {
	return &CachedSource{src: src, cache: c, ttl: ttl}
}

// FetchPrice serves from cache when possible, otherwise delegates and
// caches a Found result.
func (s *CachedSource) FetchPrice(ctx context.Context, productID int64) ports.PriceLookup {
	key := s.cache.GenerateKey("price", strconv.FormatInt(productID, 10))

	if v, err := s.cache.Get(ctx, key); err != nil {
		slog.DebugContext(ctx, "price cache read failed", "product_id", productID, "error", err)
	} else if v != "" {
		if price, err := decimal.NewFromString(v); err == nil {
			return ports.PriceLookup{Outcome: ports.LookupFound, UnitPrice: price}
		}
	}

	lookup := s.src.FetchPrice(ctx, productID)
	if lookup.Outcome == ports.LookupFound {
		if err := s.cache.Set(ctx, key, lookup.UnitPrice.String(), s.ttl); err != nil {
			slog.DebugContext(ctx, "price cache write failed", "product_id", productID, "error", err)
		}
	}
	return lookup
}
