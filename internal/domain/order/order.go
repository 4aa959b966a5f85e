package order

import (
	"context"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/order-management-api/internal/domain/product"
)

// Order represents a placed customer order. TotalAmount is always the sum of
// quantity times snapshotted unit price over Items.
type Order struct {
	ID          int
	OrderDate   time.Time
	TotalAmount decimal.Decimal
	Items       []OrderItem
}

// OrderItem represents a single line item owned by an order. Price is the
// product's unit price at the moment the item was accepted.
type OrderItem struct {
	ID        int
	OrderID   int
	ProductID int
	Quantity  int
	Price     decimal.Decimal
}

// Total computes the order amount from its items.
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

// Clone returns a deep copy of the order.
func (o *Order) Clone() Order {
	c := *o
	c.Items = slices.Clone(o.Items)
	return c
}

// Tx is a unit of work over the catalog and the order store. Pointers
// returned by a Tx are live and must not escape the enclosing Atomic call.
type Tx interface {
	Product(id int) (*product.Product, bool)
	Order(id int) (*Order, bool)
	Orders() []*Order
	InsertOrder(o *Order)
	RemoveOrder(id int) bool
	NextOrderID() int
	NextItemID() int
}

// Store runs units of work against catalog and order state. Either every
// mutation made by fn is kept or, when fn returns an error, none is.
type Store interface {
	Atomic(ctx context.Context, fn func(tx Tx) error) error
}
