package order

import (
	"context"
	"slices"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ItemRequest is a requested line item. OrderItemID is only meaningful for
// updates, where a non-zero id that matches an item on the order modifies
// that item instead of adding a new one.
type ItemRequest struct {
	OrderItemID int
	ProductID   int
	Quantity    int
}

// AddOrderRequest holds the input for placing an order. A zero OrderDate is
// replaced with the current time.
type AddOrderRequest struct {
	OrderDate time.Time
	Items     []ItemRequest
}

// Service reconciles orders against catalog stock. Every operation runs as a
// single unit of work: items are validated first, then stock and orders are
// changed together, so a rejected request leaves no trace.
type Service struct {
	store   Store
	now     func() time.Time
	tracer  trace.Tracer
	metrics *serviceMetrics
}

// NewService creates an order Service over the given store.
func NewService(store Store, tp trace.TracerProvider, mp metric.MeterProvider) (*Service, error) {
	m, err := newServiceMetrics(mp)
	if err != nil {
		return nil, errors.Wrap(err, "metrics")
	}
	return &Service{
		store:   store,
		now:     time.Now,
		tracer:  tp.Tracer(instrumentationName),
		metrics: m,
	}, nil
}

// AddOrder validates every requested item against the catalog, decrements
// stock, snapshots unit prices and stores the new order.
func (s *Service) AddOrder(ctx context.Context, req AddOrderRequest) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.AddOrder",
		trace.WithAttributes(attribute.Int("order.items", len(req.Items))),
	)
	defer func() { s.finish(ctx, span, "add", rerr) }()

	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	date := req.OrderDate
	if date.IsZero() {
		date = s.now().UTC()
	}

	var created Order
	err := s.store.Atomic(ctx, func(tx Tx) error {
		demand, err := collectDemand(tx, req.Items)
		if err != nil {
			return err
		}
		if err := checkStock(tx, req.Items, demand, nil); err != nil {
			return err
		}

		o := &Order{
			ID:        tx.NextOrderID(),
			OrderDate: date,
			Items:     make([]OrderItem, 0, len(req.Items)),
		}
		for _, it := range req.Items {
			p, _ := tx.Product(it.ProductID)
			p.Quantity -= it.Quantity
			o.Items = append(o.Items, OrderItem{
				ID:        tx.NextItemID(),
				OrderID:   o.ID,
				ProductID: p.ID,
				Quantity:  it.Quantity,
				Price:     p.Price,
			})
		}
		o.TotalAmount = o.Total()
		tx.InsertOrder(o)

		created = o.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("order.id", created.ID))
	return &created, nil
}

// GetOrder returns the order with the given id or ErrOrderNotFound.
func (s *Service) GetOrder(ctx context.Context, id int) (*Order, error) {
	var found Order
	err := s.store.Atomic(ctx, func(tx Tx) error {
		o, ok := tx.Order(id)
		if !ok {
			return ErrOrderNotFound
		}
		found = o.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &found, nil
}

// ListOrders returns a snapshot of all orders in creation order.
func (s *Service) ListOrders(ctx context.Context) ([]Order, error) {
	var out []Order
	err := s.store.Atomic(ctx, func(tx Tx) error {
		orders := tx.Orders()
		out = make([]Order, len(orders))
		for i, o := range orders {
			out[i] = o.Clone()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateOrder changes the items of an order.
//
// When at least one entry's OrderItemID matches an item on the order, items
// becomes the complete new item set: matched items are modified, other
// entries become new items and existing items left out are dropped. Stock
// held by the previous set is released before the new set is charged, so
// only the net change per product has to be available.
//
// When no entry matches, the entries are appended as new items and the
// existing items are kept untouched.
func (s *Service) UpdateOrder(ctx context.Context, id int, items []ItemRequest) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.UpdateOrder",
		trace.WithAttributes(
			attribute.Int("order.id", id),
			attribute.Int("order.items", len(items)),
		),
	)
	defer func() { s.finish(ctx, span, "update", rerr) }()

	var updated Order
	err := s.store.Atomic(ctx, func(tx Tx) error {
		o, ok := tx.Order(id)
		if !ok {
			return ErrOrderNotFound
		}
		if len(items) == 0 {
			return ErrEmptyItems
		}

		demand, err := collectDemand(tx, items)
		if err != nil {
			return err
		}

		existing := make(map[int]struct{}, len(o.Items))
		for _, it := range o.Items {
			existing[it.ID] = struct{}{}
		}
		replace := slices.ContainsFunc(items, func(it ItemRequest) bool {
			_, ok := existing[it.OrderItemID]
			return ok
		})

		var held map[int]int
		if replace {
			held = make(map[int]int, len(o.Items))
			for _, it := range o.Items {
				held[it.ProductID] += it.Quantity
			}
		}
		if err := checkStock(tx, items, demand, held); err != nil {
			return err
		}

		// Release the previous set, then charge the new one. Products that
		// left the catalog cannot get their stock back.
		for productID, qty := range held {
			if p, ok := tx.Product(productID); ok {
				p.Quantity += qty
			}
		}
		next := make([]OrderItem, 0, len(items))
		if !replace {
			next = append(next, o.Items...)
		}
		for _, it := range items {
			p, _ := tx.Product(it.ProductID)
			p.Quantity -= it.Quantity

			itemID := it.OrderItemID
			if _, ok := existing[itemID]; !ok {
				itemID = tx.NextItemID()
			}
			next = append(next, OrderItem{
				ID:        itemID,
				OrderID:   o.ID,
				ProductID: p.ID,
				Quantity:  it.Quantity,
				Price:     p.Price,
			})
		}
		o.Items = next
		o.TotalAmount = o.Total()

		updated = o.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteOrder removes the order and returns its stock to the catalog. It
// reports false when no such order exists.
func (s *Service) DeleteOrder(ctx context.Context, id int) (_ bool, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.DeleteOrder",
		trace.WithAttributes(attribute.Int("order.id", id)),
	)
	defer func() { s.finish(ctx, span, "delete", rerr) }()

	var deleted bool
	err := s.store.Atomic(ctx, func(tx Tx) error {
		o, ok := tx.Order(id)
		if !ok {
			return nil
		}
		for _, it := range o.Items {
			if p, ok := tx.Product(it.ProductID); ok {
				p.Quantity += it.Quantity
			}
		}
		deleted = tx.RemoveOrder(id)
		return nil
	})
	if err != nil {
		return false, err
	}
	span.SetAttributes(attribute.Bool("order.deleted", deleted))
	return deleted, nil
}

func (s *Service) finish(ctx context.Context, span trace.Span, op string, err error) {
	s.metrics.record(ctx, op, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// collectDemand validates items in request order and sums the requested
// quantity per product.
func collectDemand(tx Tx, items []ItemRequest) (map[int]int, error) {
	demand := make(map[int]int, len(items))
	seen := make(map[int]struct{}, len(items))
	for _, it := range items {
		if it.Quantity <= 0 {
			return nil, &InvalidItemError{ProductID: it.ProductID, Reason: ReasonNonPositiveQuantity}
		}
		if _, ok := tx.Product(it.ProductID); !ok {
			return nil, &InvalidItemError{ProductID: it.ProductID, Reason: ReasonUnknownProduct}
		}
		if it.OrderItemID != 0 {
			if _, dup := seen[it.OrderItemID]; dup {
				return nil, &InvalidItemError{ProductID: it.ProductID, Reason: ReasonDuplicateItem}
			}
			seen[it.OrderItemID] = struct{}{}
		}
		demand[it.ProductID] += it.Quantity
	}
	return demand, nil
}

// checkStock verifies that every product can cover its demand once the
// quantities in held are returned. Products are checked in the order they
// first appear in items so the reported product is deterministic.
func checkStock(tx Tx, items []ItemRequest, demand, held map[int]int) error {
	checked := make(map[int]struct{}, len(demand))
	for _, it := range items {
		if _, ok := checked[it.ProductID]; ok {
			continue
		}
		checked[it.ProductID] = struct{}{}

		p, _ := tx.Product(it.ProductID)
		available := p.Quantity + held[it.ProductID]
		if want := demand[it.ProductID]; want > available {
			return &InsufficientStockError{
				ProductID: it.ProductID,
				Requested: want,
				Available: available,
			}
		}
	}
	return nil
}
