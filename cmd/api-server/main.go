// Command api-server serves the order management API.
package main

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	orders "github.com/xenking/order-management-api/internal/app"
)

func main() {
	app.Run(run)
}

func run(ctx context.Context, lg *zap.Logger, m *app.Telemetry) error {
	cfg, err := orders.LoadConfig()
	if err != nil {
		return errors.Wrap(err, "config")
	}
	return orders.Run(ctx, lg, m, cfg)
}
