// Package orderclient is a Go client for the order management API.
//
// Requests go through a circuit breaker: once most recent calls fail with
// transport errors or 5xx responses the breaker opens and calls fail fast
// with ErrUnavailable until the open timeout passes. 4xx responses are
// ordinary API answers and never trip the breaker.
package orderclient

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
)

// ErrUnavailable is returned while the circuit breaker rejects calls.
var ErrUnavailable = errors.New("order api unavailable")

// APIError is an error envelope returned by the API.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return "order api: " + strconv.Itoa(e.Code) + " " + e.Message
}

// IsNotFound reports whether err is an API 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}

// IsBadRequest reports whether err is an API 400.
func IsBadRequest(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusBadRequest
}

type options struct {
	timeout       time.Duration
	retries       int
	httpClient    *http.Client
	openTimeout   time.Duration
	onStateChange func(name string, from, to gobreaker.State)
}

// Option configures a Client.
type Option func(*options)

// WithTimeout sets the per-request timeout. Defaults to 5s.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithRetryCount retries requests that fail at the transport level. Retries
// are off by default because order creation is not idempotent.
func WithRetryCount(n int) Option {
	return func(o *options) { o.retries = n }
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithOpenTimeout sets how long the breaker stays open before probing again.
// Defaults to 30s.
func WithOpenTimeout(d time.Duration) Option {
	return func(o *options) { o.openTimeout = d }
}

// WithStateChange registers a callback for circuit breaker transitions.
func WithStateChange(fn func(name string, from, to gobreaker.State)) Option {
	return func(o *options) { o.onStateChange = fn }
}

// Client calls the order management API.
type Client struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
}

// New creates a Client for the API served at baseURL, e.g.
// "http://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	o := options{
		timeout:     5 * time.Second,
		openTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}

	rc := resty.New()
	if o.httpClient != nil {
		rc = resty.NewWithClient(o.httpClient)
	}
	rc.SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(o.timeout).
		SetRetryCount(o.retries).
		SetHeader("Accept", "application/json")

	return &Client{
		http: rc,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "order-api",
			MaxRequests: 3,
			Interval:    15 * time.Second,
			Timeout:     o.openTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				ratio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && ratio >= 0.6
			},
			IsSuccessful: func(err error) bool {
				var apiErr *APIError
				return err == nil || (errors.As(err, &apiErr) && apiErr.Code < http.StatusInternalServerError)
			},
			OnStateChange: o.onStateChange,
		}),
	}
}

// State returns the circuit breaker state.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

// ListProducts returns the product catalog.
func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	var out []Product
	if err := c.do(ctx, http.MethodGet, "/api/product", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetProduct returns one product.
func (c *Client) GetProduct(ctx context.Context, id int) (*Product, error) {
	var out Product
	if err := c.do(ctx, http.MethodGet, "/api/product/"+strconv.Itoa(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateOrder places a new order.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	var out Order
	if err := c.do(ctx, http.MethodPost, "/api/order", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListOrders returns every order.
func (c *Client) ListOrders(ctx context.Context) ([]Order, error) {
	var out []Order
	if err := c.do(ctx, http.MethodGet, "/api/order", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetOrder returns one order.
func (c *Client) GetOrder(ctx context.Context, id int) (*Order, error) {
	var out Order
	if err := c.do(ctx, http.MethodGet, orderPath(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateOrder changes the items of an order. When some item carries the
// OrderItemID of an existing item, the request is the order's complete new
// item set: matched items are modified, the rest are added and existing items
// left out are dropped. When none matches, the items are appended and the
// existing ones are kept.
func (c *Client) UpdateOrder(ctx context.Context, id int, req OrderRequest) (*Order, error) {
	var out Order
	if err := c.do(ctx, http.MethodPut, orderPath(id), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteOrder removes an order and releases its stock.
func (c *Client) DeleteOrder(ctx context.Context, id int) (*DeleteResult, error) {
	var out DeleteResult
	if err := c.do(ctx, http.MethodDelete, orderPath(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func orderPath(id int) string {
	return "/api/order/" + strconv.Itoa(id)
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	_, err := c.breaker.Execute(func() (any, error) {
		apiErr := new(APIError)
		req := c.http.R().
			SetContext(ctx).
			SetResult(result).
			SetError(apiErr)
		if body != nil {
			req.SetHeader("Content-Type", "application/json").SetBody(body)
		}

		resp, err := req.Execute(method, path)
		if err != nil {
			return nil, errors.Wrapf(err, "%s %s", method, path)
		}
		if resp.IsError() {
			if apiErr.Code == 0 {
				apiErr.Code = resp.StatusCode()
				apiErr.Message = strings.TrimSpace(resp.String())
			}
			return nil, apiErr
		}
		return nil, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return errors.Wrapf(ErrUnavailable, "%s %s: %s", method, path, err)
	}
	return err
}
