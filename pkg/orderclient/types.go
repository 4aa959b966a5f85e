package orderclient

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry with its current stock.
type Product struct {
	ID       int             `json:"productId"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// ItemRequest is a requested line item.
type ItemRequest struct {
	OrderItemID int `json:"orderItemId,omitempty"`
	ProductID   int `json:"productId"`
	Quantity    int `json:"quantity"`
}

// OrderRequest is the body of create and update calls. A nil OrderDate lets
// the server stamp the order.
type OrderRequest struct {
	OrderDate *time.Time    `json:"orderDate,omitempty"`
	Items     []ItemRequest `json:"orderItems"`
}

// OrderItem is a stored line item with its snapshotted unit price.
type OrderItem struct {
	ID        int             `json:"orderItemId"`
	ProductID int             `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// Order is a stored order.
type Order struct {
	ID          int             `json:"orderId"`
	OrderDate   time.Time       `json:"orderDate"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Items       []OrderItem     `json:"orderItems"`
}

// DeleteResult is the confirmation returned by DeleteOrder.
type DeleteResult struct {
	Message string `json:"message"`
	OrderID int    `json:"orderId"`
}
