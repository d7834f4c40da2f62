// Package config defines the explicit configuration surface of the
// checkout service. All knobs are read once at startup and injected into
// the components that need them; nothing else reads the environment.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds every externally configurable option. Defaults match the
// behaviour of the collaborating services in local development: catalog on
// :8001, email on :8003.
type Config struct {
	// HTTPAddr is the listen address of the public API.
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`

	// CatalogBaseURL is the base URL of the catalog collaborator
	// (products are fetched from {CatalogBaseURL}/products/{id}).
	CatalogBaseURL string `envconfig:"CATALOG_SERVICE_URL" default:"http://127.0.0.1:8001"`

	// NotifyBaseURL is the base URL of the notification collaborator
	// (order emails are posted to {NotifyBaseURL}/send-order-email).
	NotifyBaseURL string `envconfig:"EMAIL_SERVICE_URL" default:"http://127.0.0.1:8003"`

	// CatalogTimeout bounds each individual catalog request attempt.
	CatalogTimeout time.Duration `envconfig:"CATALOG_TIMEOUT" default:"10s"`

	// CatalogRetries is the number of retries after the first primary
	// attempt (2 retries = up to 3 primary attempts per lookup).
	CatalogRetries int `envconfig:"CATALOG_RETRIES" default:"2"`

	// CatalogRetryBackoff is the fixed delay between primary attempts.
	CatalogRetryBackoff time.Duration `envconfig:"CATALOG_RETRY_BACKOFF" default:"100ms"`

	// NotifyTimeout bounds the single best-effort notification call.
	NotifyTimeout time.Duration `envconfig:"NOTIFY_TIMEOUT" default:"5s"`

	// DBPath is the SQLite database file holding orders and the
	// operation log.
	DBPath string `envconfig:"DB_PATH" default:"./data/checkout.db"`

	// RedisAddr enables the price cache and the idempotency store when
	// non-empty. Both features are skipped entirely when unset.
	RedisAddr string `envconfig:"REDIS_ADDR" default:""`

	// PriceCacheTTL is how long a resolved catalog price may be served
	// from cache before the catalog is consulted again.
	PriceCacheTTL time.Duration `envconfig:"PRICE_CACHE_TTL" default:"30s"`

	// IdempotencyTTL is how long a processed X-Idempotency-Key maps to
	// its order.
	IdempotencyTTL time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"24h"`
}

// Load populates Config from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if cfg.CatalogRetries < 0 {
		return Config{}, fmt.Errorf("config: CATALOG_RETRIES must not be negative, got %d", cfg.CatalogRetries)
	}
	return cfg, nil
}
