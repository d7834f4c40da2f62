package ports

import (
	"context"

	"github.com/jcmexdev/checkout-service/internal/checkout/domain"
)

// NotificationSender delivers the order-created event to the notification
// collaborator. Callers treat the returned error as log-only: a failed
// notification never undoes a committed order.
type NotificationSender interface {
	SendOrderEmail(ctx context.Context, order *domain.Order) error
}
