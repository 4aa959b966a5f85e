package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for ordering. Quantity is the
// current stock level and never drops below zero.
type Product struct {
	ID       int
	Name     string
	Price    decimal.Decimal
	Quantity int
}

// Catalog provides read access to the product catalog.
type Catalog interface {
	ListProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, id int) (*Product, error)
}

// Defaults returns the built-in catalog the service is seeded with when no
// seed file is configured.
func Defaults() []Product {
	return []Product{
		{ID: 1, Name: "T-Shirt", Price: decimal.RequireFromString("25.00"), Quantity: 100},
		{ID: 2, Name: "Jeans", Price: decimal.RequireFromString("50.00"), Quantity: 50},
		{ID: 3, Name: "Jacket", Price: decimal.RequireFromString("100.00"), Quantity: 30},
		{ID: 4, Name: "Shoes", Price: decimal.RequireFromString("60.00"), Quantity: 80},
		{ID: 5, Name: "Hat", Price: decimal.RequireFromString("15.00"), Quantity: 200},
	}
}

// Validate checks catalog invariants on a seed entry.
func (p Product) Validate() error {
	switch {
	case p.ID <= 0:
		return errors.Errorf("product %d: id must be positive", p.ID)
	case p.Price.IsNegative():
		return errors.Errorf("product %d: price must not be negative", p.ID)
	case p.Quantity < 0:
		return errors.Errorf("product %d: quantity must not be negative", p.ID)
	}
	return nil
}
