// Package backend talks to the storefront REST API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ariefcatur/go-storefront/internal/shop"
)

const (
	defaultTimeout    = 10 * time.Second
	idempotencyHeader = "Idempotency-Key"
)

// ErrUnavailable wraps transport failures: the backend could not be reached
// or did not answer in time.
var ErrUnavailable = errors.New("backend unavailable")

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend: %s: status %d", e.Op, e.Code)
	}
	return fmt.Sprintf("backend: %s: status %d: %s", e.Op, e.Code, e.Body)
}

type Client struct {
	baseURL string
	http    *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the transport, mostly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout overrides the per-request timeout of the default transport.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) ListProducts(ctx context.Context) ([]shop.Product, error) {
	var out []shop.Product
	if err := c.do(ctx, "list products", http.MethodGet, nil, &out, "products"); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateProduct(ctx context.Context, p shop.Product) error {
	p.ID = ""
	return c.do(ctx, "create product", http.MethodPost, p, nil, "products")
}

func (c *Client) UpdateProduct(ctx context.Context, id string, p shop.Product) error {
	p.ID = ""
	return c.do(ctx, "update product", http.MethodPut, p, nil, "products", url.PathEscape(id))
}

func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	return c.do(ctx, "delete product", http.MethodDelete, nil, nil, "products", url.PathEscape(id))
}

func (c *Client) GetSettings(ctx context.Context) (shop.Settings, error) {
	var s shop.Settings
	if err := c.do(ctx, "get settings", http.MethodGet, nil, &s, "settings"); err != nil {
		return shop.Settings{}, err
	}
	return s, nil
}

func (c *Client) SaveSettings(ctx context.Context, s shop.Settings) error {
	return c.do(ctx, "save settings", http.MethodPost, s, nil, "settings", "bulk")
}

func (c *Client) ListOrders(ctx context.Context) ([]shop.Order, error) {
	var out []shop.Order
	if err := c.do(ctx, "list orders", http.MethodGet, nil, &out, "orders"); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateOrder performs exactly one POST /orders. It never retries.
func (c *Client) CreateOrder(ctx context.Context, req shop.OrderRequest, idempotencyKey string) (shop.OrderReceipt, error) {
	var receipt shop.OrderReceipt
	err := c.send(ctx, "create order", http.MethodPost, req, &receipt, func(r *http.Request) {
		if k := strings.TrimSpace(idempotencyKey); k != "" {
			r.Header.Set(idempotencyHeader, k)
		}
	}, "orders")
	if err != nil {
		return shop.OrderReceipt{}, err
	}
	return receipt, nil
}

func (c *Client) UpdateOrderStatus(ctx context.Context, id string, status shop.Status) error {
	body := map[string]shop.Status{"status": status}
	return c.do(ctx, "update order", http.MethodPut, body, nil, "orders", url.PathEscape(id))
}

// AdminLogin checks the console password. A wrong password is not an error.
func (c *Client) AdminLogin(ctx context.Context, password string) (bool, error) {
	var resp struct {
		Authenticated bool `json:"authenticated"`
	}
	err := c.do(ctx, "admin login", http.MethodPost, map[string]string{"password": password}, &resp, "admin", "login")
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusUnauthorized {
			return false, nil
		}
		return false, err
	}
	return resp.Authenticated, nil
}

func (c *Client) do(ctx context.Context, op, method string, in, out any, path ...string) error {
	return c.send(ctx, op, method, in, out, nil, path...)
}

func (c *Client) send(ctx context.Context, op, method string, in, out any, decorate func(*http.Request), path ...string) error {
	endpoint, err := url.JoinPath(c.baseURL, path...)
	if err != nil {
		return fmt.Errorf("backend: %s: %w", op, err)
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("backend: %s: encode: %w", op, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("backend: %s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if decorate != nil {
		decorate(req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend: %s: %w: %w", op, ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Op: op, Code: resp.StatusCode, Body: drainError(resp.Body)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("backend: %s: decode: %w", op, err)
	}
	return nil
}

func drainError(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 256))
	return strings.TrimSpace(string(b))
}
