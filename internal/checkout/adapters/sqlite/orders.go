package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jcmexdev/checkout-service/internal/checkout/domain"
	"github.com/jcmexdev/checkout-service/internal/checkout/ports"
)

var _ ports.OrderRepository = (*Store)(nil)

// CreateOrder writes the order header and all items in one transaction.
// Either everything commits or the rollback leaves no trace; readers can
// never observe a header without its items.
//
// Pricing has already happened by the time this runs, so the transaction
// wraps pure local writes and is held only briefly.
func (s *Store) CreateOrder(ctx context.Context, order *domain.Order) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.StorageError{Op: "begin transaction", Err: err}
	}
	// No-op once Commit succeeds; guarantees release on every other
	// exit path, including panics unwinding through here.
	defer func() { _ = tx.Rollback() }()

	const insertOrder = `
		INSERT INTO orders (reference, user_email, total_amount, status, created_at)
		VALUES (?, ?, ?, ?, ?)`

	res, err := tx.ExecContext(ctx, insertOrder,
		order.Reference,
		order.UserEmail,
		order.TotalAmount.String(),
		string(order.Status),
		formatTime(order.CreatedAt),
	)
	if err != nil {
		return &domain.StorageError{Op: "insert order", Err: err}
	}

	order.ID, err = res.LastInsertId()
	if err != nil {
		return &domain.StorageError{Op: "read generated order id", Err: err}
	}

	const insertItem = `
		INSERT INTO order_items (order_id, product_id, quantity, unit_price)
		VALUES (?, ?, ?, ?)`

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		if _, err := tx.ExecContext(ctx, insertItem,
			item.OrderID,
			item.ProductID,
			item.Quantity,
			item.UnitPrice.String(),
		); err != nil {
			return &domain.StorageError{
				Op:  fmt.Sprintf("insert order item (product %d)", item.ProductID),
				Err: err,
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return &domain.StorageError{Op: "commit", Err: err}
	}

	return nil
}

// GetOrder loads an order with its items, in item insertion order.
func (s *Store) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	const selectOrder = `
		SELECT id, reference, user_email, total_amount, status, created_at
		FROM   orders
		WHERE  id = ?`

	row := s.db.QueryRowContext(ctx, selectOrder, id)

	var (
		order     domain.Order
		total     string
		status    string
		createdAt string
	)
	err := row.Scan(&order.ID, &order.Reference, &order.UserEmail, &total, &status, &createdAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, &domain.StorageError{Op: fmt.Sprintf("select order %d", id), Err: err}
	}

	if order.TotalAmount, err = decimal.NewFromString(total); err != nil {
		return nil, &domain.StorageError{Op: "parse total_amount", Err: err}
	}
	order.Status = domain.OrderStatus(status)
	if order.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, &domain.StorageError{Op: "parse created_at", Err: err}
	}

	const selectItems = `
		SELECT order_id, product_id, quantity, unit_price
		FROM   order_items
		WHERE  order_id = ?
		ORDER  BY id`

	rows, err := s.db.QueryContext(ctx, selectItems, id)
	if err != nil {
		return nil, &domain.StorageError{Op: fmt.Sprintf("select items for order %d", id), Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item  domain.OrderItem
			price string
		)
		if err := rows.Scan(&item.OrderID, &item.ProductID, &item.Quantity, &price); err != nil {
			return nil, &domain.StorageError{Op: "scan order item", Err: err}
		}
		if item.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, &domain.StorageError{Op: "parse unit_price", Err: err}
		}
		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "iterate order items", Err: err}
	}

	return &order, nil
}
