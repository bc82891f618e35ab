// Package remote is the HTTP/JSON client for the catalog and cart service.
//
// Every method classifies failures into the domain error taxonomy: a caller
// never sees a raw *http.Response or transport error, only *domain.Error
// (or context.Canceled when the caller gave up).
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/dukerupert/sparks/internal/domain"
	"github.com/dukerupert/sparks/internal/query"
	"github.com/dukerupert/sparks/internal/telemetry"
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 4 << 20

// Templated routes, used as metric labels.
const (
	RouteProducts = "/products/"
	RouteProduct  = "/products/{id}/"
	RouteRelated  = "/products/related-product/{id}/"
	RouteCarts    = "/cart/"
	RouteItems    = "/cart/{id}/items/"
	RouteItem     = "/cart/{id}/items/{item}/"
)

// Config holds configuration for the remote client.
type Config struct {
	// BaseURL is the service root, e.g. https://api.example.org
	BaseURL string

	// Timeout bounds each request. Default: 15s
	Timeout time.Duration

	// HTTPClient overrides the default instrumented client (optional).
	HTTPClient *http.Client

	// Logger is used for structured logging (optional, defaults to slog.Default())
	Logger *slog.Logger

	// Metrics records request counts and latency (optional).
	Metrics *telemetry.Metrics
}

// Client talks to the catalog/cart service.
type Client struct {
	base     *url.URL
	http     *http.Client
	logger   *slog.Logger
	validate *validator.Validate
}

// New creates a Client from cfg.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base URL must be absolute: %q", cfg.BaseURL)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   timeout,
			Transport: NewTransport(http.DefaultTransport, logger, cfg.Metrics),
		}
	}

	return &Client{
		base:     base,
		http:     httpClient,
		logger:   logger.With("component", "remote"),
		validate: validator.New(),
	}, nil
}

// =============================================================================
// Catalog
// =============================================================================

// ListProducts fetches one page of products for fp.
func (c *Client) ListProducts(ctx context.Context, fp query.Fingerprint, page int) ([]domain.Product, error) {
	const op = "remote.list_products"

	var out domain.ProductPage
	if err := c.do(ctx, call{
		op:     op,
		method: http.MethodGet,
		route:  RouteProducts,
		path:   "/products/",
		query:  fp.Values(page),
	}, &out); err != nil {
		return nil, err
	}
	return out.Products, nil
}

// GetProduct fetches a single product with its variants.
func (c *Client) GetProduct(ctx context.Context, id domain.ID) (domain.Product, error) {
	const op = "remote.get_product"

	var out domain.Product
	err := c.do(ctx, call{
		op:     op,
		method: http.MethodGet,
		route:  RouteProduct,
		path:   "/products/" + url.PathEscape(id.String()) + "/",
	}, &out)
	return out, err
}

// RelatedProducts fetches products related to id.
func (c *Client) RelatedProducts(ctx context.Context, id domain.ID) ([]domain.Product, error) {
	const op = "remote.related_products"

	var out domain.ProductPage
	if err := c.do(ctx, call{
		op:     op,
		method: http.MethodGet,
		route:  RouteRelated,
		path:   "/products/related-product/" + url.PathEscape(id.String()) + "/",
	}, &out); err != nil {
		return nil, err
	}
	return out.Products, nil
}

// =============================================================================
// Cart
// =============================================================================

// ListCarts returns the caller's carts (zero or one).
func (c *Client) ListCarts(ctx context.Context, token string) ([]domain.Cart, error) {
	const op = "remote.list_carts"

	var raw json.RawMessage
	if err := c.do(ctx, call{
		op:     op,
		method: http.MethodGet,
		route:  RouteCarts,
		path:   "/cart/",
		token:  token,
	}, &raw); err != nil {
		return nil, err
	}
	return decodeList[domain.Cart](op, raw)
}

// CreateCart creates an empty cart.
func (c *Client) CreateCart(ctx context.Context, token string) (domain.Cart, error) {
	const op = "remote.create_cart"

	var raw json.RawMessage
	if err := c.do(ctx, call{
		op:     op,
		method: http.MethodPost,
		route:  RouteCarts,
		path:   "/cart/",
		token:  token,
		body:   struct{}{},
	}, &raw); err != nil {
		return domain.Cart{}, err
	}

	carts, err := decodeList[domain.Cart](op, raw)
	if err != nil {
		return domain.Cart{}, err
	}
	if len(carts) == 0 || !carts[0].Exists() {
		return domain.Cart{}, domain.Server(op, http.StatusOK, "create cart returned no cart")
	}
	return carts[0], nil
}

// AddItem adds a line to cartID.
func (c *Client) AddItem(ctx context.Context, token string, cartID domain.ID, req domain.AddItemRequest) (domain.CartItem, error) {
	const op = "remote.add_item"

	if err := c.validate.Struct(req); err != nil {
		return domain.CartItem{}, domain.WrapError(err, domain.EINVALID, op, "invalid add-item request")
	}

	var out domain.CartItem
	err := c.do(ctx, call{
		op:     op,
		method: http.MethodPost,
		route:  RouteItems,
		path:   itemsPath(cartID),
		token:  token,
		body:   req,
	}, &out)
	return out, err
}

// UpdateQuantities patches item quantities in one call. The service answers
// with either the updated item or a list of them.
func (c *Client) UpdateQuantities(ctx context.Context, token string, cartID domain.ID, updates []domain.QuantityUpdate) ([]domain.CartItem, error) {
	const op = "remote.update_quantities"

	if len(updates) == 0 {
		return nil, domain.Invalid(op, "no quantity updates")
	}
	for _, u := range updates {
		if err := c.validate.Struct(u); err != nil {
			return nil, domain.WrapError(err, domain.EINVALID, op, "invalid quantity update")
		}
	}

	var raw json.RawMessage
	if err := c.do(ctx, call{
		op:     op,
		method: http.MethodPatch,
		route:  RouteItems,
		path:   itemsPath(cartID),
		token:  token,
		body:   updates,
	}, &raw); err != nil {
		return nil, err
	}
	return decodeList[domain.CartItem](op, raw)
}

// RemoveItem deletes a line from cartID.
func (c *Client) RemoveItem(ctx context.Context, token string, cartID, itemID domain.ID) error {
	const op = "remote.remove_item"

	return c.do(ctx, call{
		op:     op,
		method: http.MethodDelete,
		route:  RouteItem,
		path:   itemsPath(cartID) + url.PathEscape(itemID.String()) + "/",
		token:  token,
	}, nil)
}

func itemsPath(cartID domain.ID) string {
	return "/cart/" + url.PathEscape(cartID.String()) + "/items/"
}

// =============================================================================
// Plumbing
// =============================================================================

type call struct {
	op     string
	method string
	route  string
	path   string
	query  url.Values
	token  string
	body   any
}

func (c *Client) endpoint(path string, q url.Values) string {
	u := *c.base
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	u.RawPath = ""
	u.RawQuery = q.Encode()
	return u.String()
}

// do sends the call and decodes a 2xx body into out (when non-nil).
func (c *Client) do(ctx context.Context, cl call, out any) error {
	var body io.Reader
	if cl.body != nil {
		buf, err := json.Marshal(cl.body)
		if err != nil {
			return domain.Internal(err, cl.op, "encode request")
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(withRoute(ctx, cl.route), cl.method, c.endpoint(cl.path, cl.query), body)
	if err != nil {
		return domain.Internal(err, cl.op, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cl.token != "" {
		req.Header.Set("Authorization", "Bearer "+cl.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return transportError(cl.op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return transportError(cl.op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := classify(cl.op, resp.StatusCode, respBody)
		c.logger.Debug("remote call rejected",
			"op", cl.op,
			"status", resp.StatusCode,
			"code", domain.ErrorCode(err),
		)
		return err
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return domain.Internal(err, cl.op, "decode response")
	}
	return nil
}

// decodeList accepts a JSON array of T, a single T object, or an empty body.
func decodeList[T any](op string, raw json.RawMessage) ([]T, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '[' {
		var list []T
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, domain.Internal(err, op, "decode response")
		}
		return list, nil
	}
	var one T
	if err := json.Unmarshal(raw, &one); err != nil {
		return nil, domain.Internal(err, op, "decode response")
	}
	return []T{one}, nil
}
