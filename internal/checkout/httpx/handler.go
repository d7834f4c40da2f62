package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jcmexdev/checkout-service/internal/checkout/app"
	"github.com/jcmexdev/checkout-service/internal/checkout/domain"
	"github.com/jcmexdev/checkout-service/internal/checkout/httpx/middlewares"
)

// Handler exposes the checkout service over HTTP.
type Handler struct {
	service *app.Service
}

// NewHandler wires the handler to the orchestration service.
func NewHandler(service *app.Service) *Handler {
	return &Handler{service: service}
}

// CreateOrder handles POST /orders: decode, delegate, map the error
// taxonomy to status codes.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	lines := make([]domain.LineRequest, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, domain.LineRequest{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	input := app.CreateOrderInput{
		UserEmail:      req.UserEmail,
		Lines:          lines,
		IdempotencyKey: middlewares.IdempotencyKeyFromContext(r.Context()),
	}

	order, err := h.service.CreateOrder(r.Context(), input)
	if err != nil {
		h.writeCreateOrderError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "order created",
		"order_id", order.ID,
		"reference", order.Reference,
		"total_amount", order.TotalAmount.String(),
	)
	writeJSON(w, http.StatusCreated, CreateOrderResponse{
		Message: "Order created successfully",
		Order:   mapOrderToResponse(order),
	})
}

// GetOrderByID handles GET /orders/{id}.
func (h *Handler) GetOrderByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_order_id", "order id must be an integer")
		return
	}

	order, err := h.service.GetOrder(r.Context(), id)
	if errors.Is(err, domain.ErrOrderNotFound) {
		writeError(w, http.StatusNotFound, "order_not_found", "")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "order read failed", "order_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "order_read_failed", "")
		return
	}

	writeJSON(w, http.StatusOK, mapOrderToResponse(order))
}

// Healthz reports liveness.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeCreateOrderError maps domain errors to the HTTP contract:
// validation → 400, unknown product → 404, catalog unreachable → 503,
// invalid catalog data or storage failure → 500.
func (h *Handler) writeCreateOrderError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		writeError(w, http.StatusBadRequest, "validation_failed", validationErr.Error())
		return
	}

	var pricingErr *domain.PricingError
	if errors.As(err, &pricingErr) {
		switch pricingErr.Kind {
		case domain.FailureNotFound:
			writeError(w, http.StatusNotFound, "product_not_found",
				"Product "+strconv.FormatInt(pricingErr.ProductID, 10)+" does not exist in the catalog")
		case domain.FailureUnavailable:
			writeError(w, http.StatusServiceUnavailable, "catalog_unavailable",
				"Catalog service unavailable. Please try again later.")
		default:
			writeError(w, http.StatusInternalServerError, "invalid_product_data", "")
		}
		return
	}

	slog.ErrorContext(r.Context(), "order creation failed", "error", err)
	writeError(w, http.StatusInternalServerError, "order_creation_failed", "")
}

// mapOrderToResponse converts the domain order to the HTTP response shape.
func mapOrderToResponse(order *domain.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemResponse{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.UnitPrice,
		})
	}
	return OrderResponse{
		ID:          order.ID,
		Reference:   order.Reference,
		UserEmail:   order.UserEmail,
		TotalAmount: order.TotalAmount,
		Status:      string(order.Status),
		CreatedAt:   order.CreatedAt.UTC().Format(time.RFC3339),
		Items:       items,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: msg,
	})
}
