// Package catalog fetches authoritative product prices from the catalog
// collaborator.
//
// Two transports are tried in sequence: the standard HTTP client with
// bounded retries, then, only when the primary path keeps failing on
// transient conditions, a single best-effort attempt over a raw TCP
// connection. Both feed the same tagged lookup result.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jcmexdev/checkout-service/internal/checkout/ports"
)

var _ ports.PriceSource = (*Client)(nil)

// Config tunes the client. Zero values fall back to the design defaults:
// 10s per attempt, 2 retries, 100ms fixed backoff.
type Config struct {
	Timeout time.Duration
	Retries int
	Backoff time.Duration

	// HTTPClient overrides the default pooled, trace-instrumented
	// client. Used by tests to inject failing transports.
	HTTPClient *http.Client
}

// Client resolves unit prices via GET {baseURL}/products/{id}.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	retries int
	backoff time.Duration

	// raw is the fallback transport, injectable for tests.
	raw func(ctx context.Context, rawURL string) (int, []byte, error)
}

// NewClient builds a catalog client for the given base URL. A "localhost"
// host is rewritten to 127.0.0.1; the numeric form skips flaky resolver
// behaviour on some platforms.
func NewClient(baseURL string, cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 100 * time.Millisecond
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: otelhttp.NewTransport(&http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
			}),
		}
	}
	return &Client{
		baseURL: normalizeBaseURL(baseURL),
		http:    httpClient,
		timeout: cfg.Timeout,
		retries: cfg.Retries,
		backoff: cfg.Backoff,
		raw:     rawGet,
	}
}

// FetchPrice resolves one product's unit price.
//
// Terminal outcomes (404, well-formed response without a usable price,
// unexpected non-5xx status) are returned immediately and never engage the
// fallback: only genuinely transient conditions (network errors and 5xx)
// are retried and, once retries are exhausted, handed to the raw transport
// for one last attempt.
func (c *Client) FetchPrice(ctx context.Context, productID int64) ports.PriceLookup {
	url := fmt.Sprintf("%s/products/%d", c.baseURL, productID)

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return unavailable(ctx.Err().Error())
			case <-time.After(c.backoff):
			}
		}

		lookup, err := c.primaryAttempt(ctx, url)
		if err == nil {
			return lookup
		}
		lastErr = err
		slog.DebugContext(ctx, "catalog primary attempt failed",
			"product_id", productID,
			"attempt", attempt+1,
			"error", err,
		)
	}

	if ctx.Err() != nil {
		return unavailable(ctx.Err().Error())
	}

	slog.WarnContext(ctx, "catalog primary transport exhausted, engaging raw fallback",
		"product_id", productID,
		"attempts", c.retries+1,
		"last_error", lastErr,
	)

	lookup, err := c.fallbackAttempt(ctx, url)
	if err == nil {
		return lookup
	}

	slog.ErrorContext(ctx, "catalog unreachable on both transports",
		"product_id", productID,
		"primary_error", lastErr,
		"fallback_error", err,
	)
	return unavailable("service unavailable")
}

// primaryAttempt performs one request over the standard HTTP client. A
// non-nil error marks a transient failure eligible for retry; every
// terminal classification comes back as a lookup with a nil error.
func (c *Client) primaryAttempt(ctx context.Context, url string) (ports.PriceLookup, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ports.PriceLookup{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return ports.PriceLookup{}, err
	}
	defer resp.Body.Close()

	return classify(resp.StatusCode, resp.Body)
}

// fallbackAttempt performs the single raw-transport request. Any error is
// final; the caller maps it to "service unavailable".
func (c *Client) fallbackAttempt(ctx context.Context, url string) (ports.PriceLookup, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	status, body, err := c.raw(ctx, url)
	if err != nil {
		return ports.PriceLookup{}, err
	}

	lookup, err := classify(status, bytes.NewReader(body))
	if err != nil {
		// A 5xx on the fallback has nowhere left to go.
		return ports.PriceLookup{}, err
	}
	return lookup, nil
}

// classify maps a catalog response to the tagged lookup result. The error
// return is non-nil only for 5xx, which the primary path treats as
// retryable.
func classify(status int, body io.Reader) (ports.PriceLookup, error) {
	switch {
	case status == http.StatusNotFound:
		return ports.PriceLookup{Outcome: ports.LookupNotFound}, nil
	case status >= 500:
		return ports.PriceLookup{}, fmt.Errorf("catalog returned status %d", status)
	case status < 200 || status >= 300:
		return unavailable(fmt.Sprintf("unexpected status %d", status)), nil
	}

	var product struct {
		Price *decimal.Decimal `json:"price"`
	}
	if err := json.NewDecoder(io.LimitReader(body, 1<<20)).Decode(&product); err != nil {
		return invalidData(), nil
	}
	if product.Price == nil || product.Price.IsNegative() {
		return invalidData(), nil
	}

	return ports.PriceLookup{Outcome: ports.LookupFound, UnitPrice: *product.Price}, nil
}

func unavailable(reason string) ports.PriceLookup {
	return ports.PriceLookup{Outcome: ports.LookupUnavailable, Reason: reason}
}

func invalidData() ports.PriceLookup {
	return ports.PriceLookup{Outcome: ports.LookupInvalidData, Reason: "invalid data"}
}

func normalizeBaseURL(baseURL string) string {
	baseURL = strings.TrimRight(baseURL, "/")
	return strings.Replace(baseURL, "localhost", "127.0.0.1", 1)
}
