package order

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/xenking/order-management-api/internal/domain/product"
)

// --- Fake store ---

// fakeStore applies units of work directly. The service validates before it
// mutates, so a failed unit of work must leave the fake untouched as well.
type fakeStore struct {
	products  map[int]*product.Product
	orders    []*Order
	nextOrder int
	nextItem  int
	err       error
}

func newFakeStore(products ...product.Product) *fakeStore {
	byID := make(map[int]*product.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	return &fakeStore{products: byID}
}

func (f *fakeStore) Atomic(_ context.Context, fn func(tx Tx) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(f)
}

func (f *fakeStore) Product(id int) (*product.Product, bool) {
	p, ok := f.products[id]
	return p, ok
}

func (f *fakeStore) Order(id int) (*Order, bool) {
	for _, o := range f.orders {
		if o.ID == id {
			return o, true
		}
	}
	return nil, false
}

func (f *fakeStore) Orders() []*Order { return f.orders }

func (f *fakeStore) InsertOrder(o *Order) { f.orders = append(f.orders, o) }

func (f *fakeStore) RemoveOrder(id int) bool {
	n := len(f.orders)
	f.orders = slices.DeleteFunc(f.orders, func(o *Order) bool { return o.ID == id })
	return len(f.orders) != n
}

func (f *fakeStore) NextOrderID() int {
	f.nextOrder++
	return f.nextOrder
}

func (f *fakeStore) NextItemID() int {
	f.nextItem++
	return f.nextItem
}

func (f *fakeStore) stock(id int) int {
	return f.products[id].Quantity
}

// --- Helpers ---

func newTestService(t *testing.T, store Store) *Service {
	t.Helper()
	svc, err := NewService(store, tracenoop.NewTracerProvider(), metricnoop.NewMeterProvider())
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func testCatalog() []product.Product {
	return []product.Product{
		{ID: 1, Name: "T-Shirt", Price: decimal.RequireFromString("25.00"), Quantity: 100},
		{ID: 2, Name: "Jeans", Price: decimal.RequireFromString("50.00"), Quantity: 50},
		{ID: 3, Name: "Jacket", Price: decimal.RequireFromString("100.00"), Quantity: 30},
	}
}

func mustAdd(t *testing.T, svc *Service, items ...ItemRequest) *Order {
	t.Helper()
	o, err := svc.AddOrder(context.Background(), AddOrderRequest{Items: items})
	require.NoError(t, err)
	return o
}

// --- AddOrder ---

func TestAddOrder_SingleItem(t *testing.T) {
	store := newFakeStore(testCatalog()...)
	svc := newTestService(t, store)

	o := mustAdd(t, svc, ItemRequest{ProductID: 1, Quantity: 3})

	assert.Equal(t, 1, o.ID)
	assert.True(t, decimal.RequireFromString("75.00").Equal(o.TotalAmount))
	require.Len(t, o.Items, 1)
	assert.Equal(t, 1, o.Items[0].ID)
	assert.Equal(t, o.ID, o.Items[0].OrderID)
	assert.True(t, decimal.RequireFromString("25.00").Equal(o.Items[0].Price))
	assert.Equal(t, 97, store.stock(1))
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), o.OrderDate)
}

func TestAddOrder_MultipleItems(t *testing.T) {
	store := newFakeStore(testCatalog()...)
	svc := newTestService(t, store)

	o := mustAdd(t, svc,
		ItemRequest{ProductID: 1, Quantity: 2},
		ItemRequest{ProductID: 3, Quantity: 1},
		ItemRequest{ProductID: 1, Quantity: 1},
	)

	// 3*25 + 1*100
	assert.True(t, decimal.RequireFromString("175.00").Equal(o.TotalAmount))
	assert.True(t, o.Total().Equal(o.TotalAmount))
	assert.Equal(t, []int{1, 2, 3}, []int{o.Items[0].ID, o.Items[1].ID, o.Items[2].ID})
	assert.Equal(t, 97, store.stock(1))
	assert.Equal(t, 29, store.stock(3))
}

func TestAddOrder_KeepsRequestedDate(t *testing.T) {
	svc := newTestService(t, newFakeStore(testCatalog()...))
	date := time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)

	o, err := svc.AddOrder(context.Background(), AddOrderRequest{
		OrderDate: date,
		Items:     []ItemRequest{{ProductID: 2, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, date, o.OrderDate)
}

func TestAddOrder_Rejections(t *testing.T) {
	tests := []struct {
		name        string
		items       []ItemRequest
		wantInvalid bool
		wantStock   *InsufficientStockError
	}{
		{
			name:        "zero quantity",
			items:       []ItemRequest{{ProductID: 1, Quantity: 0}},
			wantInvalid: true,
		},
		{
			name:        "negative quantity",
			items:       []ItemRequest{{ProductID: 1, Quantity: -4}},
			wantInvalid: true,
		},
		{
			name:        "unknown product after valid item",
			items:       []ItemRequest{{ProductID: 1, Quantity: 5}, {ProductID: 42, Quantity: 1}},
			wantInvalid: true,
		},
		{
			name:      "single item over stock",
			items:     []ItemRequest{{ProductID: 1, Quantity: 1000}},
			wantStock: &InsufficientStockError{ProductID: 1, Requested: 1000, Available: 100},
		},
		{
			name:      "second item over stock",
			items:     []ItemRequest{{ProductID: 1, Quantity: 10}, {ProductID: 3, Quantity: 31}},
			wantStock: &InsufficientStockError{ProductID: 3, Requested: 31, Available: 30},
		},
		{
			name:      "same product summed over stock",
			items:     []ItemRequest{{ProductID: 2, Quantity: 30}, {ProductID: 2, Quantity: 21}},
			wantStock: &InsufficientStockError{ProductID: 2, Requested: 51, Available: 50},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore(testCatalog()...)
			svc := newTestService(t, store)

			_, err := svc.AddOrder(context.Background(), AddOrderRequest{Items: tt.items})
			require.Error(t, err)

			if tt.wantInvalid {
				var invalid *InvalidItemError
				require.ErrorAs(t, err, &invalid)
			}
			if tt.wantStock != nil {
				var stock *InsufficientStockError
				require.ErrorAs(t, err, &stock)
				assert.Equal(t, tt.wantStock, stock)
			}

			// Nothing is committed on rejection.
			assert.Equal(t, 100, store.stock(1))
			assert.Equal(t, 50, store.stock(2))
			assert.Equal(t, 30, store.stock(3))
			assert.Empty(t, store.orders)
		})
	}
}

func TestAddOrder_EmptyItems(t *testing.T) {
	svc := newTestService(t, newFakeStore(testCatalog()...))

	_, err := svc.AddOrder(context.Background(), AddOrderRequest{})
	require.ErrorIs(t, err, ErrEmptyItems)
}

func TestAddOrder_StoreError(t *testing.T) {
	store := newFakeStore(testCatalog()...)
	store.err = errors.New("store closed")
	svc := newTestService(t, store)

	_, err := svc.AddOrder(context.Background(), AddOrderRequest{
		Items: []ItemRequest{{ProductID: 1, Quantity: 1}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store closed")
}

// --- GetOrder / ListOrders ---

func TestGetOrder_RoundTrip(t *testing.T) {
	svc := newTestService(t, newFakeStore(testCatalog()...))
	created := mustAdd(t, svc, ItemRequest{ProductID: 2, Quantity: 2})

	got, err := svc.GetOrder(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestGetOrder_NotFound(t *testing.T) {
	svc := newTestService(t, newFakeStore(testCatalog()...))

	_, err := svc.GetOrder(context.Background(), 7)
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestGetOrder_ReturnsCopy(t *testing.T) {
	store := newFakeStore(testCatalog()...)
	svc := newTestService(t, store)
	created := mustAdd(t, svc, ItemRequest{ProductID: 1, Quantity: 1})

	got, err := svc.GetOrder(context.Background(), created.ID)
	require.NoError(t, err)
	got.Items[0].Quantity = 99

	assert.Equal(t, 1, store.orders[0].Items[0].Quantity)
}

func TestListOrders(t *testing.T) {
	svc := newTestService(t, newFakeStore(testCatalog()...))

	orders, err := svc.ListOrders(context.Background())
	require.NoError(t, err)
	assert.Empty(t, orders)

	first := mustAdd(t, svc, ItemRequest{ProductID: 1, Quantity: 1})
	second := mustAdd(t, svc, ItemRequest{ProductID: 2, Quantity: 1})

	orders, err = svc.ListOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, first.ID, orders[0].ID)
	assert.Equal(t, second.ID, orders[1].ID)
}

// --- UpdateOrder ---

func TestUpdateOrder_NotFound(t *testing.T) {
	svc := newTestService(t, newFakeStore(testCatalog()...))

	// Invalid items must not mask the missing order.
	_, err := svc.UpdateOrder(context.Background(), 5, []ItemRequest{{ProductID: 42, Quantity: 0}})
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestUpdateOrder_ChangeQuantity(t *testing.T) {
	store := newFakeStore(testCatalog()...)
	svc := newTestService(t, store)
	o := mustAdd(t, svc, ItemRequest{ProductID: 1, Quantity: 10})

	updated, err := svc.UpdateOrder(context.Background(), o.ID, []ItemRequest{
		{OrderItemID: o.Items[0].ID, ProductID: 1, Quantity: 4},
	})
	require.NoError(t, err)

	require.Len(t, updated.Items, 1)
	assert.Equal(t, o.Items[0].ID, updated.Items[0].ID)
	assert.Equal(t, 4, updated.Items[0].Quantity)
	assert.True(t, decimal.RequireFromString("100.00").Equal(updated.TotalAmount))
	assert.Equal(t, 96, store.stock(1))
}

func TestUpdateOrder_GrowUsesHeldStock(t *testing.T) {
	store := newFakeStore(testCatalog()...)
	svc := newTestService(t, store)
	o := mustAdd(t, svc, ItemRequest{ProductID: 3, Quantity: 20})
	require.Equal(t, 10, store.stock(3))

	// 30 > 10 remaining, but the order already holds 20.
	updated, err := svc.UpdateOrder(context.Background(), o.ID, []ItemRequest{
		{OrderItemID: o.Items[0].ID, ProductID: 3, Quantity: 30},
	})
	require.NoError(t, err)
	assert.Equal(t, 30, updated.Items[0].Quantity)
	assert.Equal(t, 0, store.stock(3))
}

func TestUpdateOrder_AddAndDropItems(t *testing.T) {
	store := newFakeStore(testCatalog()...)
	svc := newTestService(t, store)
	o := mustAdd(t, svc,
		ItemRequest{ProductID: 1, Quantity: 2},
		ItemRequest{ProductID: 2, Quantity: 5},
	)

	updated, err := svc.UpdateOrder(context.Background(), o.ID, []ItemRequest{
		{OrderItemID: o.Items[0].ID, ProductID: 1, Quantity: 3},
		{ProductID: 3, Quantity: 1},
	})
	require.NoError(t, err)

	require.Len(t, updated.Items, 2)
	assert.Equal(t, o.Items[0].ID, updated.Items[0].ID)
	assert.Equal(t, 3, updated.Items[1].ID, "new item gets a fresh id")
	assert.Equal(t, o.ID, updated.Items[1].OrderID)
	// 3*25 + 1*100
	assert.True(t, decimal.RequireFromString("175.00").Equal(updated.TotalAmount))

	assert.Equal(t, 97, store.stock(1))
	assert.Equal(t, 50, store.stock(2), "dropped item returns its stock")
	assert.Equal(t, 29, store.stock(3))
}

func TestUpdateOrder_NoMatchAppendsItems(t *testing.T) {
	tests := []struct {
		name   string
		itemID int
	}{
		{name: "without item id", itemID: 0},
		{name: "unknown item id", itemID: 999},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore(testCatalog()...)
			svc := newTestService(t, store)
			o := mustAdd(t, svc, ItemRequest{ProductID: 1, Quantity: 3})

			updated, err := svc.UpdateOrder(context.Background(), o.ID, []ItemRequest{
				{OrderItemID: tt.itemID, ProductID: 2, Quantity: 1},
			})
			require.NoError(t, err)

			require.Len(t, updated.Items, 2)
			assert.Equal(t, o.Items[0], updated.Items[0], "existing item is kept")
			assert.Equal(t, 2, updated.Items[1].ProductID)
			assert.NotEqual(t, 999, updated.Items[1].ID)
			assert.NotEqual(t, o.Items[0].ID, updated.Items[1].ID)
			// 3*25 + 1*50
			assert.True(t, decimal.RequireFromString("125.00").Equal(updated.TotalAmount))

			assert.Equal(t, 97, store.stock(1))
			assert.Equal(t, 49, store.stock(2))

			got, err := svc.GetOrder(context.Background(), o.ID)
			require.NoError(t, err)
			assert.Equal(t, updated, got)
		})
	}
}

func TestUpdateOrder_Rejections(t *testing.T) {
	tests := []struct {
		name      string
		items     func(o *Order) []ItemRequest
		wantErr   error
		wantStock bool
	}{
		{
			name:    "empty set",
			items:   func(*Order) []ItemRequest { return nil },
			wantErr: ErrEmptyItems,
		},
		{
			name: "zero quantity",
			items: func(o *Order) []ItemRequest {
				return []ItemRequest{{OrderItemID: o.Items[0].ID, ProductID: 1, Quantity: 0}}
			},
		},
		{
			name: "unknown product",
			items: func(*Order) []ItemRequest {
				return []ItemRequest{{ProductID: 77, Quantity: 1}}
			},
		},
		{
			name: "duplicate item id",
			items: func(o *Order) []ItemRequest {
				return []ItemRequest{
					{OrderItemID: o.Items[0].ID, ProductID: 1, Quantity: 1},
					{OrderItemID: o.Items[0].ID, ProductID: 1, Quantity: 2},
				}
			},
		},
		{
			name: "over stock after release",
			items: func(o *Order) []ItemRequest {
				return []ItemRequest{
					{OrderItemID: o.Items[0].ID, ProductID: 1, Quantity: 101},
				}
			},
			wantStock: true,
		},
		{
			name: "append beyond free stock",
			items: func(*Order) []ItemRequest {
				// Held stock only counts when the set replaces the order.
				return []ItemRequest{{ProductID: 1, Quantity: 96}}
			},
			wantStock: true,
		},
		{
			name: "valid first item then over stock",
			items: func(o *Order) []ItemRequest {
				return []ItemRequest{
					{OrderItemID: o.Items[0].ID, ProductID: 1, Quantity: 1},
					{ProductID: 3, Quantity: 31},
				}
			},
			wantStock: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore(testCatalog()...)
			svc := newTestService(t, store)
			o := mustAdd(t, svc, ItemRequest{ProductID: 1, Quantity: 5})

			_, err := svc.UpdateOrder(context.Background(), o.ID, tt.items(o))
			require.Error(t, err)

			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
			case tt.wantStock:
				var stock *InsufficientStockError
				require.ErrorAs(t, err, &stock)
			default:
				var invalid *InvalidItemError
				require.ErrorAs(t, err, &invalid)
			}

			// Order and stock untouched.
			assert.Equal(t, 95, store.stock(1))
			assert.Equal(t, 30, store.stock(3))
			got, err := svc.GetOrder(context.Background(), o.ID)
			require.NoError(t, err)
			assert.Equal(t, o, got)
		})
	}
}

// --- DeleteOrder ---

func TestDeleteOrder_RestoresStock(t *testing.T) {
	store := newFakeStore(testCatalog()...)
	svc := newTestService(t, store)
	o := mustAdd(t, svc, ItemRequest{ProductID: 1, Quantity: 3})
	require.Equal(t, 97, store.stock(1))

	deleted, err := svc.DeleteOrder(context.Background(), o.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, 100, store.stock(1))

	_, err = svc.GetOrder(context.Background(), o.ID)
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestDeleteOrder_NotFound(t *testing.T) {
	svc := newTestService(t, newFakeStore(testCatalog()...))

	deleted, err := svc.DeleteOrder(context.Background(), 12)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestDeleteOrder_MissingProductSkipped(t *testing.T) {
	store := newFakeStore(testCatalog()...)
	svc := newTestService(t, store)
	o := mustAdd(t, svc,
		ItemRequest{ProductID: 1, Quantity: 3},
		ItemRequest{ProductID: 2, Quantity: 4},
	)
	delete(store.products, 2)

	deleted, err := svc.DeleteOrder(context.Background(), o.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, 100, store.stock(1))
	assert.Empty(t, store.orders)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", outcome(nil))
	assert.Equal(t, "invalid_item", outcome(errors.Wrap(&InvalidItemError{}, "wrapped")))
	assert.Equal(t, "insufficient_stock", outcome(&InsufficientStockError{}))
	assert.Equal(t, "not_found", outcome(ErrOrderNotFound))
	assert.Equal(t, "empty", outcome(ErrEmptyItems))
	assert.Equal(t, "error", outcome(errors.New("boom")))
}
