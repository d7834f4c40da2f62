package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/checkout-service/internal/checkout/adapters/catalog"
	"github.com/jcmexdev/checkout-service/internal/checkout/adapters/notify"
	"github.com/jcmexdev/checkout-service/internal/checkout/adapters/sqlite"
	"github.com/jcmexdev/checkout-service/internal/checkout/app"
)

// fakeCatalog is a scriptable stand-in for the catalog collaborator.
type fakeCatalog struct {
	mu     atomic.Pointer[map[int64]string]
	server *httptest.Server
}

func newFakeCatalog(t *testing.T, prices map[int64]string) *fakeCatalog {
	t.Helper()
	c := &fakeCatalog{}
	c.mu.Store(&prices)
	c.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id int64
		if _, err := fmt.Sscanf(r.URL.Path, "/products/%d", &id); err != nil {
			http.NotFound(w, r)
			return
		}
		price, ok := (*c.mu.Load())[id]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":%d,"name":"Product %d","price":%s}`, id, id, price)
	}))
	t.Cleanup(c.server.Close)
	return c
}

func (c *fakeCatalog) setPrices(prices map[int64]string) {
	c.mu.Store(&prices)
}

type testEnv struct {
	api     *httptest.Server
	service *app.Service
}

// newTestEnv wires the real stack (sqlite store, catalog client, notifier)
// behind the real router.
func newTestEnv(t *testing.T, catalogURL, notifyURL string) *testEnv {
	t.Helper()

	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	source := catalog.NewClient(catalogURL, catalog.Config{
		Timeout: time.Second,
		Retries: 2,
		Backoff: time.Millisecond,
	})
	notifier := notify.NewClient(notifyURL, time.Second, nil)
	service := app.NewService(source, store, notifier, app.Options{OpLog: store})

	api := httptest.NewServer(NewRouter(NewHandler(service)))
	t.Cleanup(api.Close)

	return &testEnv{api: api, service: service}
}

func newEmailSink(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var received atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server, &received
}

func (e *testEnv) postOrder(t *testing.T, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(e.api.URL+"/orders", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func (e *testEnv) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, e.service.Shutdown(ctx))
}

func TestCreateOrder_EndToEnd(t *testing.T) {
	cat := newFakeCatalog(t, map[int64]string{1: "999.99"})
	emailServer, received := newEmailSink(t)
	env := newTestEnv(t, cat.server.URL, emailServer.URL)

	resp, body := env.postOrder(t, `{"user_email":"a@b.com","items":[{"product_id":1,"quantity":2}]}`)

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Order created successfully", body["message"])

	order := body["order"].(map[string]any)
	assert.Equal(t, 1999.98, order["total_amount"])
	assert.Equal(t, "pending", order["status"])
	assert.NotEmpty(t, order["reference"])

	items := order["items"].([]any)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	assert.Equal(t, float64(1), item["product_id"])
	assert.Equal(t, float64(2), item["quantity"])
	assert.Equal(t, 999.99, item["price"])

	env.drain(t)
	assert.Equal(t, int32(1), received.Load())
}

func TestCreateOrder_ValidationFailure(t *testing.T) {
	cat := newFakeCatalog(t, map[int64]string{})
	emailServer, _ := newEmailSink(t)
	env := newTestEnv(t, cat.server.URL, emailServer.URL)

	tests := []struct {
		name string
		body string
	}{
		{"bad json", `{`},
		{"missing email", `{"items":[{"product_id":1,"quantity":1}]}`},
		{"bad email", `{"user_email":"nope","items":[{"product_id":1,"quantity":1}]}`},
		{"empty items", `{"user_email":"a@b.com","items":[]}`},
		{"zero quantity", `{"user_email":"a@b.com","items":[{"product_id":1,"quantity":0}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.postOrder(t, tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestCreateOrder_UnknownProductIs404(t *testing.T) {
	cat := newFakeCatalog(t, map[int64]string{1: "10.00"})
	emailServer, received := newEmailSink(t)
	env := newTestEnv(t, cat.server.URL, emailServer.URL)

	resp, body := env.postOrder(t, `{"user_email":"a@b.com","items":[{"product_id":99,"quantity":1}]}`)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "product_not_found", body["error"])
	env.drain(t)
	assert.Zero(t, received.Load())
}

func TestCreateOrder_CatalogDownIs503(t *testing.T) {
	// Point the catalog client at a closed server.
	deadServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadServer.Close()
	emailServer, _ := newEmailSink(t)
	env := newTestEnv(t, deadServer.URL, emailServer.URL)

	resp, body := env.postOrder(t, `{"user_email":"a@b.com","items":[{"product_id":1,"quantity":1}]}`)

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "catalog_unavailable", body["error"])
}

func TestCreateOrder_InvalidCatalogDataIs500(t *testing.T) {
	badCatalog := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":1,"name":"no price here"}`))
	}))
	t.Cleanup(badCatalog.Close)
	emailServer, _ := newEmailSink(t)
	env := newTestEnv(t, badCatalog.URL, emailServer.URL)

	resp, body := env.postOrder(t, `{"user_email":"a@b.com","items":[{"product_id":1,"quantity":1}]}`)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "invalid_product_data", body["error"])
}

func TestCreateOrder_NotificationDownStill201(t *testing.T) {
	cat := newFakeCatalog(t, map[int64]string{1: "10.00"})
	deadEmail := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadEmail.Close()
	env := newTestEnv(t, cat.server.URL, deadEmail.URL)

	resp, body := env.postOrder(t, `{"user_email":"a@b.com","items":[{"product_id":1,"quantity":1}]}`)

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	order := body["order"].(map[string]any)
	assert.Equal(t, 10.0, order["total_amount"])
	env.drain(t)
}

func TestGetOrder_ReflectsPricesAtOrderTime(t *testing.T) {
	cat := newFakeCatalog(t, map[int64]string{1: "999.99"})
	emailServer, _ := newEmailSink(t)
	env := newTestEnv(t, cat.server.URL, emailServer.URL)

	_, body := env.postOrder(t, `{"user_email":"a@b.com","items":[{"product_id":1,"quantity":2}]}`)
	orderID := int64(body["order"].(map[string]any)["id"].(float64))

	// The catalog price changes after commit; the stored order must not.
	cat.setPrices(map[int64]string{1: "1.00"})

	resp, err := http.Get(fmt.Sprintf("%s/orders/%d", env.api.URL, orderID))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var loaded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&loaded))
	assert.Equal(t, 1999.98, loaded["total_amount"])
	items := loaded["items"].([]any)
	assert.Equal(t, 999.99, items[0].(map[string]any)["price"])
}

func TestGetOrder_Unknown404(t *testing.T) {
	cat := newFakeCatalog(t, map[int64]string{})
	emailServer, _ := newEmailSink(t)
	env := newTestEnv(t, cat.server.URL, emailServer.URL)

	resp, err := http.Get(env.api.URL + "/orders/424242")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
