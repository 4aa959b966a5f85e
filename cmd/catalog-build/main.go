// Command catalog-build merges product seed files into a single catalog for
// the API server's catalog_file setting.
//
//	catalog-build -out catalog.json.gz base.json extra.json.gz
//
// Inputs are decoded concurrently. Later files override products with the
// same id from earlier ones. With no inputs the built-in catalog is written.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"

	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/order-management-api/internal/domain/product"
	"github.com/xenking/order-management-api/internal/storage/memory"
)

func main() {
	var out string
	flag.StringVar(&out, "out", "catalog.json.gz", "output file; gzip-compressed when it ends in .gz")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	n, err := run(ctx, out, flag.Args())
	if err != nil {
		slog.Error("catalog build failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("catalog written", slog.String("path", out), slog.Int("products", n))
}

func run(ctx context.Context, out string, inputs []string) (int, error) {
	products, err := mergeCatalogs(ctx, inputs)
	if err != nil {
		return 0, err
	}
	// memory.New applies the same checks the server does at startup.
	if _, err := memory.New(products); err != nil {
		return 0, errors.Wrap(err, "validate catalog")
	}

	f, err := os.Create(out)
	if err != nil {
		return 0, errors.Wrap(err, "create output")
	}
	if err := memory.WriteCatalog(f, products, filepath.Ext(out) == ".gz"); err != nil {
		_ = f.Close()
		return 0, err
	}
	if err := f.Close(); err != nil {
		return 0, errors.Wrap(err, "close output")
	}
	return len(products), nil
}

// mergeCatalogs loads every input concurrently and merges them by product id
// in argument order. The result is sorted by id.
func mergeCatalogs(ctx context.Context, inputs []string) ([]product.Product, error) {
	if len(inputs) == 0 {
		return product.Defaults(), nil
	}

	loaded := make([][]product.Product, len(inputs))
	g, ctx := errgroup.WithContext(ctx)
	for i, path := range inputs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			products, err := memory.LoadCatalog(path)
			if err != nil {
				return err
			}
			slog.Info("catalog loaded", slog.String("path", path), slog.Int("products", len(products)))
			loaded[i] = products
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byID := make(map[int]product.Product)
	for i, products := range loaded {
		for _, p := range products {
			if prev, ok := byID[p.ID]; ok {
				slog.Warn("product overridden",
					slog.Int("product_id", p.ID),
					slog.String("previous", prev.Name),
					slog.String("source", inputs[i]),
				)
			}
			byID[p.ID] = p
		}
	}

	merged := make([]product.Product, 0, len(byID))
	for _, p := range byID {
		merged = append(merged, p)
	}
	slices.SortFunc(merged, func(a, b product.Product) int { return a.ID - b.ID })
	return merged, nil
}
