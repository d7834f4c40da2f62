// Package notify delivers the order-created event to the notification
// collaborator. The call is strictly best-effort: the orchestrator logs
// the returned error and moves on.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jcmexdev/checkout-service/internal/checkout/domain"
	"github.com/jcmexdev/checkout-service/internal/checkout/ports"
)

var _ ports.NotificationSender = (*Client)(nil)

// Client posts order emails to {baseURL}/send-order-email.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
}

// NewClient builds a notification client. timeout bounds the whole call
// (default 5s). httpClient may be nil.
func NewClient(baseURL string, timeout time.Duration, httpClient *http.Client) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		timeout: timeout,
	}
}

// orderEmailPayload is the wire contract of the notification collaborator.
type orderEmailPayload struct {
	UserEmail string            `json:"user_email"`
	Order     orderSummary      `json:"order"`
	Items     []orderItemDetail `json:"items"`
}

type orderSummary struct {
	ID          int64           `json:"id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      string          `json:"status"`
	CreatedAt   string          `json:"created_at"`
}

type orderItemDetail struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// SendOrderEmail posts the order summary. Any failure (timeout, refused
// connection, non-2xx) comes back as an error for the caller to log.
func (c *Client) SendOrderEmail(ctx context.Context, order *domain.Order) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload := orderEmailPayload{
		UserEmail: order.UserEmail,
		Order: orderSummary{
			ID:          order.ID,
			TotalAmount: order.TotalAmount,
			Status:      string(order.Status),
			CreatedAt:   order.CreatedAt.UTC().Format(time.RFC3339),
		},
		Items: make([]orderItemDetail, 0, len(order.Items)),
	}
	for _, item := range order.Items {
		payload.Items = append(payload.Items, orderItemDetail{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.UnitPrice,
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notify: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/send-order-email", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("notify: send order email for order %d: %w", order.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notify: notification service returned status %d for order %d", resp.StatusCode, order.ID)
	}
	return nil
}
