package order

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Sentinel errors for order operations.
var (
	ErrOrderNotFound = errors.New("order not found")
	ErrEmptyItems    = errors.New("order must contain at least one item")
)

// Reasons reported by InvalidItemError.
const (
	ReasonNonPositiveQuantity = "quantity must be greater than 0"
	ReasonUnknownProduct      = "product does not exist"
	ReasonDuplicateItem       = "order item listed more than once"
)

// InvalidItemError indicates a line item with a non-positive quantity, a
// product id missing from the catalog, or a repeated order item id.
type InvalidItemError struct {
	ProductID int
	Reason    string
}

func (e *InvalidItemError) Error() string {
	return fmt.Sprintf("invalid item for product %d: %s", e.ProductID, e.Reason)
}

// InsufficientStockError indicates the catalog cannot cover the requested
// quantity of a product.
type InsufficientStockError struct {
	ProductID int
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}
