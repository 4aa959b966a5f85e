package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/order-management-api/internal/domain/order"
	"github.com/xenking/order-management-api/internal/domain/product"
	"github.com/xenking/order-management-api/internal/handler"
	"github.com/xenking/order-management-api/internal/storage/memory"
	"github.com/xenking/order-management-api/pkg/health"
	"github.com/xenking/order-management-api/pkg/httpmiddleware"
)

const serviceName = "orders-api"

// Server bundles the HTTP handler chain with the state it serves.
type Server struct {
	Handler http.Handler
	Health  *health.Health
	Store   *memory.Store
}

// NewServer seeds the catalog and builds the routed, instrumented handler.
// Health checks are registered but not started.
func NewServer(lg *zap.Logger, tel httpmiddleware.Telemetry, cfg *Config) (*Server, error) {
	products, err := loadCatalog(cfg.CatalogFile)
	if err != nil {
		return nil, err
	}
	store, err := memory.New(products)
	if err != nil {
		return nil, errors.Wrap(err, "create store")
	}
	orders, err := order.NewService(store, tel.TracerProvider(), tel.MeterProvider())
	if err != nil {
		return nil, errors.Wrap(err, "create order service")
	}

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("catalog", time.Second, health.NonEmptyCheck("catalog", store.Len))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	handler.NewHandler(store, orders).Register(mux)

	routeFinder := httpmiddleware.MakeRouteFinder(mux)
	return &Server{
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(lg),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", httpmiddleware.RequestIDHeader},
				ExposeHeaders:    []string{"Location", httpmiddleware.RequestIDHeader},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.Instrument(serviceName, routeFinder, tel),
			httpmiddleware.LogRequests(routeFinder),
			httpmiddleware.Recovery(),
			httpmiddleware.Labeler(routeFinder),
		),
		Health: healthSvc,
		Store:  store,
	}, nil
}

func loadCatalog(path string) ([]product.Product, error) {
	if path == "" {
		return product.Defaults(), nil
	}
	products, err := memory.LoadCatalog(path)
	if err != nil {
		return nil, errors.Wrap(err, "load catalog")
	}
	return products, nil
}

// Run builds the server, serves until ctx is canceled and then drains
// in-flight requests. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("catalog_file", cfg.CatalogFile),
	)

	srv, err := NewServer(lg, m, cfg)
	if err != nil {
		return err
	}
	lg.Info("Catalog loaded", zap.Int("products", srv.Store.Len()))

	srv.Health.Start(ctx, 10*time.Second)
	defer srv.Health.Stop()
	srv.Health.SetReady(true)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           srv.Handler,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		srv.Health.SetReady(false)
		if ctx.Err() != nil {
			lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
			time.Sleep(cfg.Graceful.ReadinessDelay)
		}

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})
	return g.Wait()
}
