package order

import (
	"context"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/xenking/order-management-api/internal/domain/order"

type serviceMetrics struct {
	operations metric.Int64Counter
	rejected   metric.Int64Counter
}

func newServiceMetrics(mp metric.MeterProvider) (*serviceMetrics, error) {
	meter := mp.Meter(instrumentationName)

	operations, err := meter.Int64Counter("orders.operations",
		metric.WithDescription("Order operations by name and outcome"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "operations counter")
	}
	rejected, err := meter.Int64Counter("orders.rejected_items",
		metric.WithDescription("Line items rejected during reconciliation"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "rejected items counter")
	}

	return &serviceMetrics{operations: operations, rejected: rejected}, nil
}

func (m *serviceMetrics) record(ctx context.Context, op string, err error) {
	result := outcome(err)
	m.operations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("result", result),
	))
	if result == "invalid_item" || result == "insufficient_stock" {
		m.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", result)))
	}
}

// outcome classifies err into a low-cardinality metric label.
func outcome(err error) string {
	var (
		invalid *InvalidItemError
		stock   *InsufficientStockError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &invalid):
		return "invalid_item"
	case errors.As(err, &stock):
		return "insufficient_stock"
	case errors.Is(err, ErrOrderNotFound):
		return "not_found"
	case errors.Is(err, ErrEmptyItems):
		return "empty"
	default:
		return "error"
	}
}
