package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Money travels as plain JSON numbers ("total_amount": 1999.98), matching
// the contract of both collaborators.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// LineRequest is one requested product+quantity pair from the checkout
// request, before pricing.
type LineRequest struct {
	ProductID int64
	Quantity  int
}

// ResolvedLine is a LineRequest paired with the authoritative unit price
// fetched from the catalog at order time.
type ResolvedLine struct {
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal
}

// Subtotal is UnitPrice × Quantity, exact.
func (l ResolvedLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// OrderStatus is the lifecycle state of an order. Orders are created
// pending; no further transitions happen in this service.
type OrderStatus string

const StatusPending OrderStatus = "pending"

// Order is a persisted order. Immutable once committed: item prices are
// captured at order time and never re-fetched, so historical orders are
// immune to later catalog price changes.
type Order struct {
	ID          int64
	Reference   string
	UserEmail   string
	TotalAmount decimal.Decimal
	Status      OrderStatus
	CreatedAt   time.Time
	Items       []OrderItem
}

// OrderItem is one line of a persisted order. UnitPrice is the price at
// purchase time.
type OrderItem struct {
	OrderID   int64
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal
}

// NewPendingOrder assembles an unpersisted pending order from resolved
// lines. The caller supplies the uuid reference, which identifies the
// checkout attempt before a database id exists.
func NewPendingOrder(reference, userEmail string, lines []ResolvedLine, total decimal.Decimal) *Order {
	order := &Order{
		Reference:   reference,
		UserEmail:   userEmail,
		TotalAmount: total,
		Status:      StatusPending,
		CreatedAt:   time.Now().UTC(),
		Items:       make([]OrderItem, 0, len(lines)),
	}
	for _, line := range lines {
		order.Items = append(order.Items, OrderItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}
	return order
}
