package ports

import (
	"context"

	"github.com/jcmexdev/checkout-service/internal/checkout/domain"
)

// OrderRepository is the port for the transactional order store.
type OrderRepository interface {
	// CreateOrder persists the order header and all items atomically,
	// filling in the generated ids on success. On error no partial
	// state is left behind.
	CreateOrder(ctx context.Context, order *domain.Order) error

	// GetOrder loads an order with its items. Returns
	// domain.ErrOrderNotFound for unknown ids.
	GetOrder(ctx context.Context, id int64) (*domain.Order, error)
}
