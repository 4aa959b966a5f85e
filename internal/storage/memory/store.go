// Package memory implements the process-local catalog and order store.
//
// All state lives behind a single mutex: the catalog, the order list and the
// two id sequences. Order operations run as units of work through Atomic, and
// every value handed out of the package is a copy.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/go-faster/errors"

	"github.com/xenking/order-management-api/internal/domain/order"
	"github.com/xenking/order-management-api/internal/domain/product"
)

var (
	_ order.Store     = (*Store)(nil)
	_ product.Catalog = (*Store)(nil)
)

// Store holds the product catalog and all orders.
type Store struct {
	mu       sync.Mutex
	products []*product.Product
	orders   []*order.Order

	nextOrderID int
	nextItemID  int
}

// New creates a Store seeded with the given products. Ids must be unique and
// every product must satisfy product.Validate.
func New(products []product.Product) (*Store, error) {
	s := &Store{
		products: make([]*product.Product, 0, len(products)),
	}
	seen := make(map[int]struct{}, len(products))
	for _, p := range products {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[p.ID]; dup {
			return nil, errors.Errorf("duplicate product id %d", p.ID)
		}
		seen[p.ID] = struct{}{}
		s.products = append(s.products, &p)
	}
	return s, nil
}

// ListProducts returns a snapshot of the catalog in seed order.
func (s *Store) ListProducts(ctx context.Context) ([]product.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]product.Product, len(s.products))
	for i, p := range s.products {
		out[i] = *p
	}
	return out, nil
}

// GetProduct returns a copy of a single product or product.ErrNotFound.
func (s *Store) GetProduct(ctx context.Context, id int) (*product.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.product(id)
	if !ok {
		return nil, product.ErrNotFound
	}
	c := *p
	return &c, nil
}

// Len reports the number of catalog entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.products)
}

// Atomic runs fn with exclusive access to the store. When fn fails, every
// change it made is rolled back.
func (s *Store) Atomic(ctx context.Context, fn func(tx order.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(&tx{s: s}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *Store) product(id int) (*product.Product, bool) {
	for _, p := range s.products {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// snapshot captures everything a unit of work may touch. The service
// validates before mutating, so restore only runs for callers that fail
// half way.
type snapshot struct {
	stock       []int
	orders      []*order.Order
	items       [][]order.OrderItem
	nextOrderID int
	nextItemID  int
}

func (s *Store) snapshot() snapshot {
	snap := snapshot{
		stock:       make([]int, len(s.products)),
		orders:      slices.Clone(s.orders),
		items:       make([][]order.OrderItem, len(s.orders)),
		nextOrderID: s.nextOrderID,
		nextItemID:  s.nextItemID,
	}
	for i, p := range s.products {
		snap.stock[i] = p.Quantity
	}
	for i, o := range s.orders {
		snap.items[i] = slices.Clone(o.Items)
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	for i, p := range s.products {
		p.Quantity = snap.stock[i]
	}
	s.orders = snap.orders
	for i, o := range s.orders {
		o.Items = snap.items[i]
		o.TotalAmount = o.Total()
	}
	s.nextOrderID = snap.nextOrderID
	s.nextItemID = snap.nextItemID
}

// tx exposes live store state to a unit of work. It is only valid while
// Atomic holds the lock.
type tx struct {
	s *Store
}

func (t *tx) Product(id int) (*product.Product, bool) { return t.s.product(id) }

func (t *tx) Order(id int) (*order.Order, bool) {
	for _, o := range t.s.orders {
		if o.ID == id {
			return o, true
		}
	}
	return nil, false
}

func (t *tx) Orders() []*order.Order { return t.s.orders }

func (t *tx) InsertOrder(o *order.Order) { t.s.orders = append(t.s.orders, o) }

func (t *tx) RemoveOrder(id int) bool {
	i := slices.IndexFunc(t.s.orders, func(o *order.Order) bool { return o.ID == id })
	if i < 0 {
		return false
	}
	t.s.orders = slices.Delete(t.s.orders, i, i+1)
	return true
}

func (t *tx) NextOrderID() int {
	t.s.nextOrderID++
	return t.s.nextOrderID
}

func (t *tx) NextItemID() int {
	t.s.nextItemID++
	return t.s.nextItemID
}
