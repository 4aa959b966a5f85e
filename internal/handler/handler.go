package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/order-management-api/internal/domain/order"
	"github.com/xenking/order-management-api/internal/domain/product"
)

// Handler serves the order and product endpoints, delegating business logic
// to the order service and the product catalog.
type Handler struct {
	products product.Catalog
	orders   *order.Service
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(products product.Catalog, orders *order.Service) *Handler {
	return &Handler{
		products: products,
		orders:   orders,
	}
}

// Register mounts the API routes on mux. Unknown /api/ paths get a JSON 404.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/product", h.ListProducts)
	mux.HandleFunc("GET /api/product/{id}", h.GetProduct)

	mux.HandleFunc("POST /api/order", h.CreateOrder)
	mux.HandleFunc("GET /api/order", h.ListOrders)
	mux.HandleFunc("GET /api/order/{id}", h.GetOrder)
	mux.HandleFunc("PUT /api/order/{id}", h.UpdateOrder)
	mux.HandleFunc("DELETE /api/order/{id}", h.DeleteOrder)

	mux.HandleFunc("/api/", func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, http.StatusNotFound, "route not found")
	})
}

// pathID parses the positive integer {id} path segment.
func pathID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// mapOrderError converts domain errors to a status code and client message.
// Anything unrecognised is a 500 with a generic message.
func mapOrderError(err error) (int, string) {
	var (
		invalid *order.InvalidItemError
		stock   *order.InsufficientStockError
	)
	switch {
	case errors.Is(err, order.ErrOrderNotFound):
		return http.StatusNotFound, "order not found"
	case errors.Is(err, order.ErrEmptyItems):
		return http.StatusBadRequest, err.Error()
	case errors.As(err, &invalid):
		return http.StatusBadRequest, invalid.Error()
	case errors.As(err, &stock):
		return http.StatusBadRequest, stock.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func (h *Handler) writeOrderError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, msg := mapOrderError(err)
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Order operation failed",
			zap.String("op", op),
			zap.Error(err),
		)
	}
	WriteError(w, status, msg)
}
