// Command order-cli talks to a running order management API.
//
//	order-cli [flags] products
//	order-cli [flags] list
//	order-cli [flags] get <orderId>
//	order-cli [flags] create <productId:qty>...
//	order-cli [flags] update <orderId> <productId:qty[@orderItemId]>...
//	order-cli [flags] delete <orderId>
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/sony/gobreaker"

	"github.com/xenking/order-management-api/pkg/orderclient"
)

func main() {
	var (
		baseURL string
		timeout time.Duration
		date    string
	)

	flag.StringVar(&baseURL, "url", "", "API base URL (or ORDERS_API_URL env, default http://localhost:8080)")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "per-request timeout")
	flag.StringVar(&date, "date", "", "order date for create, RFC 3339 (default: server time)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] products|list|get|create|update|delete [args]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if baseURL == "" {
		baseURL = os.Getenv("ORDERS_API_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	client := orderclient.New(baseURL,
		orderclient.WithTimeout(timeout),
		orderclient.WithStateChange(func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed",
				slog.String("circuit", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		}),
	)

	out, err := run(ctx, client, date, flag.Args())
	if err != nil {
		slog.Error("command failed", slog.String("command", flag.Arg(0)), slog.String("error", err.Error()))
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		slog.Error("write output", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, c *orderclient.Client, date string, args []string) (any, error) {
	cmd, args := args[0], args[1:]
	switch cmd {
	case "products":
		return c.ListProducts(ctx)
	case "list":
		return c.ListOrders(ctx)
	case "get", "delete":
		if len(args) != 1 {
			return nil, errors.Errorf("%s expects exactly one order id", cmd)
		}
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return nil, errors.Wrap(err, "parse order id")
		}
		if cmd == "get" {
			return c.GetOrder(ctx, id)
		}
		return c.DeleteOrder(ctx, id)
	case "create":
		items, err := parseItems(args)
		if err != nil {
			return nil, err
		}
		req := orderclient.OrderRequest{Items: items}
		if date != "" {
			t, err := time.Parse(time.RFC3339, date)
			if err != nil {
				return nil, errors.Wrap(err, "parse date")
			}
			req.OrderDate = &t
		}
		slog.Info("creating order", slog.Int("items", len(items)))
		return c.CreateOrder(ctx, req)
	case "update":
		if len(args) < 2 {
			return nil, errors.New("update expects an order id and at least one item")
		}
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return nil, errors.Wrap(err, "parse order id")
		}
		items, err := parseItems(args[1:])
		if err != nil {
			return nil, err
		}
		slog.Info("updating order", slog.Int("order_id", id), slog.Int("items", len(items)))
		return c.UpdateOrder(ctx, id, orderclient.OrderRequest{Items: items})
	default:
		return nil, errors.Errorf("unknown command %q", cmd)
	}
}
