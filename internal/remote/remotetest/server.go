// Package remotetest provides an in-memory catalog and cart service that
// speaks the same HTTP/JSON protocol as the real backend.
package remotetest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/sparks/internal/domain"
	"github.com/dukerupert/sparks/internal/middleware"
)

// Listing is a catalog product plus the facets the list endpoint filters on.
type Listing struct {
	Product     domain.Product
	Category    string
	SubCategory string
	Brand       string
	Related     []domain.ID
}

// price is the listing's filterable price: its first variant's.
func (l Listing) price() decimal.Decimal {
	if v, ok := l.Product.DefaultVariant(); ok {
		return v.SellingPrice
	}
	return decimal.Zero
}

// Options configures a Server.
type Options struct {
	// PageSize is the number of products per page. Default: 10
	PageSize int

	// OneBasedPages makes page 0 and page 1 both return the first page,
	// as paginators that count from 1 do.
	OneBasedPages bool

	// Token is the only accepted bearer token. Empty accepts any token.
	Token string

	// PatchReturnsObject answers single-item bulk updates with an object
	// instead of a list.
	PatchReturnsObject bool

	// Logger is used for structured logging (optional, defaults to slog.Default())
	Logger *slog.Logger
}

// Server is the fake service. It is safe for concurrent use.
type Server struct {
	opts   Options
	echo   *echo.Echo
	logger *slog.Logger

	mu       sync.Mutex
	catalog  []Listing
	carts    map[string]*domain.Cart // by token
	nextID   int
	calls    map[string]int
	failures map[string][]int
	hooks    []func(c echo.Context)
}

// New creates a Server serving catalog.
func New(catalog []Listing, opts Options) *Server {
	if opts.PageSize <= 0 {
		opts.PageSize = 10
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		opts:     opts,
		logger:   logger.With("component", "remotetest"),
		catalog:  catalog,
		carts:    make(map[string]*domain.Cart),
		nextID:   1000,
		calls:    make(map[string]int),
		failures: make(map[string][]int),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(s.record)

	e.GET("/products/", s.listProducts)
	e.GET("/products/related-product/:id/", s.relatedProducts)
	e.GET("/products/:id/", s.getProduct)

	cart := e.Group("/cart", s.authenticate)
	cart.GET("/", s.listCarts)
	cart.POST("/", s.createCart)
	cart.POST("/:id/items/", s.addItem)
	cart.PATCH("/:id/items/", s.updateItems)
	cart.DELETE("/:id/items/:item/", s.removeItem)

	s.echo = e
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// =============================================================================
// Test hooks
// =============================================================================

// Fail makes the next len(statuses) calls to method+route answer with the
// given statuses. route is the echo pattern, e.g. "/cart/:id/items/".
func (s *Server) Fail(method, route string, statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + route
	s.failures[key] = append(s.failures[key], statuses...)
}

// OnRequest registers fn to run before every handler. Hooks may block.
func (s *Server) OnRequest(fn func(c echo.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, fn)
}

// Calls returns how many requests hit method+route.
func (s *Server) Calls(method, route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method+" "+route]
}

// SetStock overwrites a variant's stock.
func (s *Server) SetStock(productID, variantID domain.ID, stock int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.catalog {
		if s.catalog[i].Product.ID != productID {
			continue
		}
		for j := range s.catalog[i].Product.Variants {
			if s.catalog[i].Product.Variants[j].ID == variantID {
				s.catalog[i].Product.Variants[j].Stock = stock
			}
		}
	}
}

// ClearCart deletes the cart held for token, as a server-side clear would.
func (s *Server) ClearCart(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, token)
}

// Cart returns a copy of the cart held for token.
func (s *Server) Cart(token string) (domain.Cart, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.carts[token]
	if !ok {
		return domain.Cart{}, false
	}
	return c.Clone(), true
}

// =============================================================================
// Middleware
// =============================================================================

func (s *Server) record(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		key := c.Request().Method + " " + c.Path()

		s.mu.Lock()
		s.calls[key]++
		hooks := append([]func(echo.Context){}, s.hooks...)
		var status int
		if pending := s.failures[key]; len(pending) > 0 {
			status = pending[0]
			s.failures[key] = pending[1:]
		}
		s.mu.Unlock()

		for _, hook := range hooks {
			hook(c)
		}

		if status != 0 {
			middleware.GetLogger(c.Request().Context(), s.logger).Debug("injected failure", "route", key, "status", status)
			return c.JSON(status, echo.Map{"detail": http.StatusText(status)})
		}
		return next(c)
	}
}

func (s *Server) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return c.JSON(http.StatusUnauthorized, echo.Map{"detail": "Authentication credentials were not provided."})
		}
		if s.opts.Token != "" && token != s.opts.Token {
			return c.JSON(http.StatusForbidden, echo.Map{"detail": "Given token not valid for any token type"})
		}
		c.Set("token", token)
		return next(c)
	}
}

// =============================================================================
// Catalog handlers
// =============================================================================

func (s *Server) listProducts(c echo.Context) error {
	keyword := strings.ToLower(strings.TrimSpace(c.QueryParam("keyword")))
	category := c.QueryParam("category")
	subCategory := c.QueryParam("subCategory")
	brand := c.QueryParam("brand")

	var minPrice, maxPrice *decimal.Decimal
	for param, dst := range map[string]**decimal.Decimal{"price_min": &minPrice, "price_max": &maxPrice} {
		raw := c.QueryParam(param)
		if raw == "" {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": []string{"invalid " + param}})
		}
		*dst = &d
	}

	page := 0
	if raw := c.QueryParam("page"); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil || p < 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": []string{"invalid page"}})
		}
		page = p
	}
	if s.opts.OneBasedPages && page > 0 {
		page--
	}

	s.mu.Lock()
	var matched []domain.Product
	for _, l := range s.catalog {
		if keyword != "" && !strings.Contains(strings.ToLower(l.Product.Title), keyword) {
			continue
		}
		if category != "" && l.Category != category {
			continue
		}
		if subCategory != "" && l.SubCategory != subCategory {
			continue
		}
		if brand != "" && l.Brand != brand {
			continue
		}
		if minPrice != nil && l.price().LessThan(*minPrice) {
			continue
		}
		if maxPrice != nil && l.price().GreaterThan(*maxPrice) {
			continue
		}
		matched = append(matched, l.Product)
	}
	s.mu.Unlock()

	start := page * s.opts.PageSize
	if start > len(matched) {
		start = len(matched)
	}
	end := min(start+s.opts.PageSize, len(matched))

	return c.JSON(http.StatusOK, domain.ProductPage{Products: append([]domain.Product{}, matched[start:end]...)})
}

func (s *Server) getProduct(c echo.Context) error {
	l, ok := s.listing(domain.ID(c.Param("id")))
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"detail": "Not found."})
	}
	return c.JSON(http.StatusOK, l.Product)
}

func (s *Server) relatedProducts(c echo.Context) error {
	l, ok := s.listing(domain.ID(c.Param("id")))
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"detail": "Not found."})
	}
	related := []domain.Product{}
	for _, id := range l.Related {
		if r, ok := s.listing(id); ok {
			related = append(related, r.Product)
		}
	}
	return c.JSON(http.StatusOK, domain.ProductPage{Products: related})
}

func (s *Server) listing(id domain.ID) (Listing, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.catalog {
		if l.Product.ID == id {
			return l, true
		}
	}
	return Listing{}, false
}

// =============================================================================
// Cart handlers
// =============================================================================

func (s *Server) listCarts(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, ok := s.carts[c.Get("token").(string)]
	if !ok {
		return c.JSON(http.StatusOK, []domain.Cart{})
	}
	return c.JSON(http.StatusOK, []domain.Cart{cart.Clone()})
}

func (s *Server) createCart(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart := &domain.Cart{ID: s.newID(), Items: []domain.CartItem{}}
	s.carts[c.Get("token").(string)] = cart
	return c.JSON(http.StatusCreated, []domain.Cart{cart.Clone()})
}

// ownedCart returns the caller's cart if it has the id in the path.
// Callers hold s.mu.
func (s *Server) ownedCart(c echo.Context) (*domain.Cart, bool) {
	cart, ok := s.carts[c.Get("token").(string)]
	if !ok || cart.ID != domain.ID(c.Param("id")) {
		return nil, false
	}
	return cart, true
}

func (s *Server) addItem(c echo.Context) error {
	var req domain.AddItemRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": []string{"malformed body"}})
	}
	if req.Quantity < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": []string{"Quantity must be at least 1"}})
	}

	l, ok := s.listing(req.ProductID)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": []string{"Unknown product"}})
	}
	variant, ok := l.Product.VariantFor(req.Color, req.Size)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": []string{"Unknown variant"}})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cart, ok := s.ownedCart(c)
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"detail": "Not found."})
	}

	for i, item := range cart.Items {
		if item.Product.ID != req.ProductID || item.Color != req.Color || item.Size != req.Size {
			continue
		}
		qty := item.Quantity + req.Quantity
		if qty > variant.Stock {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": []string{"Quantity exceeds available stock"}})
		}
		cart.Items[i].Quantity = qty
		cart.Items[i].SubTotal = variant.SellingPrice.Mul(decimal.NewFromInt(int64(qty)))
		cart.Recompute()
		return c.JSON(http.StatusCreated, cart.Items[i])
	}

	if req.Quantity > variant.Stock {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": []string{"Quantity exceeds available stock"}})
	}

	item := domain.CartItem{
		ID:         s.newID(),
		Product:    domain.CartProduct{Product: l.Product, SellingPrice: decimal.NewNullDecimal(variant.SellingPrice)},
		Color:      req.Color,
		Size:       req.Size,
		ImageIndex: req.Image,
		Quantity:   req.Quantity,
		SubTotal:   variant.SellingPrice.Mul(decimal.NewFromInt(int64(req.Quantity))),
	}
	cart.Items = append(cart.Items, item)
	cart.Recompute()
	return c.JSON(http.StatusCreated, item)
}

func (s *Server) updateItems(c echo.Context) error {
	var updates []domain.QuantityUpdate
	if err := json.NewDecoder(c.Request().Body).Decode(&updates); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": []string{"expected a list of {id, quantity}"}})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cart, ok := s.ownedCart(c)
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"detail": "Not found."})
	}

	// Validate everything before applying anything.
	idx := make([]int, len(updates))
	for n, u := range updates {
		_, i, found := cart.Item(u.ID)
		if !found {
			return c.JSON(http.StatusNotFound, echo.Map{"detail": fmt.Sprintf("Item %s not found.", u.ID)})
		}
		if u.Quantity < 1 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": []string{"Quantity must be at least 1"}})
		}
		if u.Quantity > s.stockLocked(cart.Items[i]) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": []string{"Quantity exceeds available stock"}})
		}
		idx[n] = i
	}

	updated := make([]domain.CartItem, 0, len(updates))
	for n, u := range updates {
		item := &cart.Items[idx[n]]
		unit := decimal.Zero
		if item.Quantity > 0 {
			unit = item.SubTotal.Div(decimal.NewFromInt(int64(item.Quantity)))
		}
		item.Quantity = u.Quantity
		item.SubTotal = unit.Mul(decimal.NewFromInt(int64(u.Quantity)))
		updated = append(updated, *item)
	}
	cart.Recompute()

	if s.opts.PatchReturnsObject && len(updated) == 1 {
		return c.JSON(http.StatusOK, updated[0])
	}
	return c.JSON(http.StatusOK, updated)
}

// stockLocked looks up live stock for a cart line. Callers hold s.mu.
func (s *Server) stockLocked(item domain.CartItem) int {
	for _, l := range s.catalog {
		if l.Product.ID != item.Product.ID {
			continue
		}
		if v, ok := l.Product.VariantFor(item.Color, item.Size); ok {
			return v.Stock
		}
	}
	return item.Stock()
}

func (s *Server) removeItem(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, ok := s.ownedCart(c)
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"detail": "Not found."})
	}
	_, i, found := cart.Item(domain.ID(c.Param("item")))
	if !found {
		return c.JSON(http.StatusNotFound, echo.Map{"detail": "Not found."})
	}
	cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
	cart.Recompute()
	return c.NoContent(http.StatusNoContent)
}

// newID mints an id. Callers hold s.mu.
func (s *Server) newID() domain.ID {
	s.nextID++
	return domain.ID(strconv.Itoa(s.nextID))
}
