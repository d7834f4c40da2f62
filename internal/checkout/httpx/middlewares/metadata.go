package middlewares

import (
	"context"
	"net/http"
)

type ctxKey string

const idempotencyKeyCtxKey ctxKey = "idempotency_key"

// HeaderXIdempotencyKey lets clients make POST /orders safe to retry.
const HeaderXIdempotencyKey = "X-Idempotency-Key"

// AttachCheckoutMetadata copies checkout-relevant headers into the request
// context so handlers and the service layer stay header-agnostic.
func AttachCheckoutMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), idempotencyKeyCtxKey, r.Header.Get(HeaderXIdempotencyKey))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IdempotencyKeyFromContext returns the request's idempotency key, or ""
// when the client sent none.
func IdempotencyKeyFromContext(ctx context.Context) string {
	// Comma-ok keeps this safe in tests that skip the middleware.
	key, _ := ctx.Value(idempotencyKeyCtxKey).(string)
	return key
}
