package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/checkout-service/internal/checkout/ports"
)

func testConfig() Config {
	return Config{
		Timeout: time.Second,
		Retries: 2,
		Backoff: time.Millisecond,
	}
}

func TestFetchPrice_Found(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products/42", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":42,"name":"Widget","price":999.99}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, testConfig())
	lookup := client.FetchPrice(context.Background(), 42)

	require.Equal(t, ports.LookupFound, lookup.Outcome)
	assert.True(t, lookup.UnitPrice.Equal(decimal.RequireFromString("999.99")), "got %s", lookup.UnitPrice)
}

func TestFetchPrice_NotFoundIsTerminal(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "no such product", http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, testConfig())
	lookup := client.FetchPrice(context.Background(), 7)

	assert.Equal(t, ports.LookupNotFound, lookup.Outcome)
	// 404 is not transient: no retries, no fallback.
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchPrice_RetriesOn5xxThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"price":10.50}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, testConfig())
	lookup := client.FetchPrice(context.Background(), 1)

	require.Equal(t, ports.LookupFound, lookup.Outcome)
	assert.True(t, lookup.UnitPrice.Equal(decimal.RequireFromString("10.50")))
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchPrice_MissingPriceIsInvalidData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":1,"name":"Widget"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, testConfig())
	lookup := client.FetchPrice(context.Background(), 1)

	assert.Equal(t, ports.LookupInvalidData, lookup.Outcome)
	assert.Equal(t, "invalid data", lookup.Reason)
}

func TestFetchPrice_MalformedBodyIsInvalidData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json at all`))
	}))
	defer server.Close()

	client := NewClient(server.URL, testConfig())
	lookup := client.FetchPrice(context.Background(), 1)

	assert.Equal(t, ports.LookupInvalidData, lookup.Outcome)
}

// brokenTransport simulates an unusable primary HTTP stack.
type brokenTransport struct{}

func (brokenTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, errors.New("primary transport is broken")
}

func TestFetchPrice_FallbackTransportRecovers(t *testing.T) {
	// The catalog itself is healthy; only the primary client is broken.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"price":123.45}`))
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.HTTPClient = &http.Client{Transport: brokenTransport{}}
	client := NewClient(server.URL, cfg)

	lookup := client.FetchPrice(context.Background(), 5)

	require.Equal(t, ports.LookupFound, lookup.Outcome)
	assert.True(t, lookup.UnitPrice.Equal(decimal.RequireFromString("123.45")))
}

func TestFetchPrice_BothTransportsDownIsUnavailable(t *testing.T) {
	// A closed server refuses both the pooled client and the raw dial.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(server.URL, testConfig())
	lookup := client.FetchPrice(context.Background(), 5)

	assert.Equal(t, ports.LookupUnavailable, lookup.Outcome)
	assert.Equal(t, "service unavailable", lookup.Reason)
}

func TestFetchPrice_FallbackSees404(t *testing.T) {
	var rawHits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawHits.Add(1)
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.HTTPClient = &http.Client{Transport: brokenTransport{}}
	client := NewClient(server.URL, cfg)

	lookup := client.FetchPrice(context.Background(), 9)

	assert.Equal(t, ports.LookupNotFound, lookup.Outcome)
	assert.Equal(t, int32(1), rawHits.Load())
}

func TestNormalizeBaseURL(t *testing.T) {
	assert.Equal(t, "http://127.0.0.1:8001", normalizeBaseURL("http://localhost:8001/"))
	assert.Equal(t, "http://127.0.0.1:8001", normalizeBaseURL("http://127.0.0.1:8001"))
}

func TestFetchPrice_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"price":1.00}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(server.URL, testConfig())
	lookup := client.FetchPrice(ctx, 1)

	assert.Equal(t, ports.LookupUnavailable, lookup.Outcome)
}
