package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-faster/jx"

	"github.com/xenking/order-management-api/internal/domain/order"
)

// CreateOrder decodes the order request, places it through the order service
// and answers 201 with the stored order.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	req, ok := readOrderRequest(w, r)
	if !ok {
		return
	}
	// Item ids are assigned by the store on creation.
	for i := range req.Items {
		req.Items[i].OrderItemID = 0
	}

	o, err := h.orders.AddOrder(r.Context(), order.AddOrderRequest{
		OrderDate: req.OrderDate,
		Items:     req.Items,
	})
	if err != nil {
		h.writeOrderError(w, r, "create", err)
		return
	}

	w.Header().Set("Location", "/api/order/"+strconv.Itoa(o.ID))
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}

// ListOrders returns every order.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListOrders(r.Context())
	if err != nil {
		h.writeOrderError(w, r, "list", err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for i := range orders {
			encodeOrder(e, &orders[i])
		}
		e.ArrEnd()
	})
}

// GetOrder returns a single order by id.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		WriteError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	o, err := h.orders.GetOrder(r.Context(), id)
	if err != nil {
		h.writeOrderError(w, r, "get", err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}

// UpdateOrder replaces the item set of an existing order.
func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		WriteError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	req, ok := readOrderRequest(w, r)
	if !ok {
		return
	}

	o, err := h.orders.UpdateOrder(r.Context(), id, req.Items)
	if err != nil {
		h.writeOrderError(w, r, "update", err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}

// DeleteOrder removes an order and releases its stock.
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		WriteError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	deleted, err := h.orders.DeleteOrder(r.Context(), id)
	if err != nil {
		h.writeOrderError(w, r, "delete", err)
		return
	}
	if !deleted {
		WriteError(w, http.StatusNotFound, "order not found")
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("message")
		e.Str("Order deleted successfully.")
		e.FieldStart("orderId")
		e.Int(id)
		e.ObjEnd()
	})
}

// readOrderRequest decodes the body and rejects structurally invalid
// payloads with 400. It reports false when a response was already written.
func readOrderRequest(w http.ResponseWriter, r *http.Request) (orderRequest, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid order data: "+err.Error())
		return orderRequest{}, false
	}
	req, err := decodeOrderRequest(body)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid order data: "+err.Error())
		return orderRequest{}, false
	}
	if len(req.Items) == 0 {
		WriteError(w, http.StatusBadRequest, "order must contain at least one item")
		return orderRequest{}, false
	}
	return req, true
}
