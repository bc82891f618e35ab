// Package cart keeps a local mirror of the remote cart and applies add,
// update and remove operations to it.
//
// Every mutation runs through a per-cart Serializer, so overlapping calls
// never interleave their read-modify-write of the mirror. The mirror is only
// changed after the remote service accepted the change; grand total is always
// recomputed from the item subtotals.
package cart

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/dukerupert/sparks/internal/domain"
	"github.com/dukerupert/sparks/internal/notify"
	"github.com/dukerupert/sparks/internal/telemetry"
)

// Operation names, used as metric labels.
const (
	OpResolve = "resolve"
	OpRefresh = "refresh"
	OpAdd     = "add_item"
	OpUpdate  = "update_quantity"
	OpRemove  = "remove_item"
)

// Client is the subset of the remote service the cart needs.
type Client interface {
	ListCarts(ctx context.Context, token string) ([]domain.Cart, error)
	CreateCart(ctx context.Context, token string) (domain.Cart, error)
	AddItem(ctx context.Context, token string, cartID domain.ID, req domain.AddItemRequest) (domain.CartItem, error)
	UpdateQuantities(ctx context.Context, token string, cartID domain.ID, updates []domain.QuantityUpdate) ([]domain.CartItem, error)
	RemoveItem(ctx context.Context, token string, cartID, itemID domain.ID) error
}

// Config holds Service dependencies.
type Config struct {
	// Client talks to the remote cart service (required).
	Client Client

	// Credentials supplies the bearer token (required).
	Credentials CredentialSource

	// Reporter surfaces classified failures (optional).
	Reporter *notify.Reporter

	// Counts receives the item count after every successful mutation (optional).
	Counts notify.CountPublisher

	// Metrics records mutation outcomes (optional).
	Metrics *telemetry.Metrics

	// Logger is used for structured logging (optional, defaults to slog.Default())
	Logger *slog.Logger
}

// Service is the cart synchronization engine. Safe for concurrent use.
type Service struct {
	client   Client
	creds    CredentialSource
	reporter *notify.Reporter
	counts   notify.CountPublisher
	metrics  *telemetry.Metrics
	logger   *slog.Logger

	queue   *Serializer
	resolve singleflight.Group

	mu     sync.RWMutex
	mirror domain.Cart
}

// NewService creates a Service with an empty mirror.
func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		client:   cfg.Client,
		creds:    cfg.Credentials,
		reporter: cfg.Reporter,
		counts:   cfg.Counts,
		metrics:  cfg.Metrics,
		logger:   logger.With("component", "cart"),
		queue:    NewSerializer(),
	}
}

// =============================================================================
// Readers
// =============================================================================

// Cart returns a copy of the local mirror.
func (s *Service) Cart() domain.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mirror.Clone()
}

// ItemCount sums quantities in the local mirror. It is display-only and may
// lag the remote cart.
func (s *Service) ItemCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mirror.ItemCount()
}

func (s *Service) item(id domain.ID) (domain.CartItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, _, ok := s.mirror.Item(id)
	return item, ok
}

// =============================================================================
// Operations
// =============================================================================

// ResolveCart returns the id of the user's cart, creating it when the user
// has none. Concurrent calls share one list/create round trip, so a second
// cart is never created.
func (s *Service) ResolveCart(ctx context.Context) (domain.ID, error) {
	const op = "cart.resolve"

	token, err := s.token(ctx)
	if err != nil {
		return "", s.fail(ctx, OpResolve, op, err)
	}
	id, err := s.resolveCart(ctx, token)
	if err != nil {
		return "", s.fail(ctx, OpResolve, op, err)
	}
	return id, nil
}

// resolveCart runs the list/create round trip once per token. The shared
// call is detached from any single caller's cancellation; each caller stops
// waiting when its own ctx ends.
func (s *Service) resolveCart(ctx context.Context, token string) (domain.ID, error) {
	ch := s.resolve.DoChan(token, func() (interface{}, error) {
		return s.findOrCreate(context.WithoutCancel(ctx), token)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(domain.ID), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *Service) findOrCreate(ctx context.Context, token string) (domain.ID, error) {
	carts, err := s.client.ListCarts(ctx, token)
		if err != nil {
		return "", err
	}
	if len(carts) > 0 && carts[0].Exists() {
		s.adopt(carts[0], false)
		return carts[0].ID, nil
	}

	created, err := s.client.CreateCart(ctx, token)
	if err != nil {
		return "", err
	}
	s.adopt(created, true)
	s.logger.Info("cart created", "cart_id", created.ID)
	return created.ID, nil
}

// adopt installs remote as the mirror when it is a different cart than the
// one mirrored (first load, or the server cleared the old one), or when
// replace is set.
func (s *Service) adopt(remote domain.Cart, replace bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !replace && remote.ID == s.mirror.ID {
		return
	}
	if s.mirror.Exists() && remote.ID != s.mirror.ID {
		s.logger.Warn("remote cart replaced", "old_cart_id", s.mirror.ID, "cart_id", remote.ID)
	}
	s.mirror = remote.Clone()
	s.mirror.Recompute()
}

// Refresh reloads the mirror from the remote cart without creating one.
// A user with no cart gets an empty mirror.
func (s *Service) Refresh(ctx context.Context) (domain.Cart, error) {
	const op = "cart.refresh"

	err := s.mutate(ctx, OpRefresh, op, func(ctx context.Context, token string) error {
		carts, err := s.client.ListCarts(ctx, token)
		if err != nil {
			return err
		}
		if len(carts) == 0 {
			s.mu.Lock()
			s.mirror = domain.Cart{}
			s.mu.Unlock()
			return nil
		}
		s.adopt(carts[0], true)
		return nil
	})
	if err != nil {
		return domain.Cart{}, err
	}
	return s.Cart(), nil
}

// AddItem adds quantity units of variant to the cart, creating the cart
// first if needed. quantity must be within [1, variant.Stock]; a variant
// with no stock fails with the out-of-stock message. Nothing is sent when a
// precondition fails, and the mirror changes only on success.
func (s *Service) AddItem(ctx context.Context, product domain.Product, variant domain.Variant, quantity int) (domain.CartItem, error) {
	const op = "cart.add_item"

	if err := checkAdd(variant, quantity); err != nil {
		return domain.CartItem{}, s.fail(ctx, OpAdd, op, err)
	}

	var added domain.CartItem
	err := s.mutate(ctx, OpAdd, op, func(ctx context.Context, token string) error {
		cartID, err := s.resolveCart(ctx, token)
		if err != nil {
			return err
		}

		item, err := s.client.AddItem(ctx, token, cartID, domain.AddItemRequest{
			ProductID: product.ID,
			Color:     domain.AttrOrNA(variant.Color),
			Size:      domain.AttrOrNA(variant.Size),
			Image:     product.ImageIndexFor(variant),
			Quantity:  quantity,
		})
		if err != nil {
			return err
		}

		s.mu.Lock()
		if _, i, ok := s.mirror.Item(item.ID); ok {
			// The service merged the add into an existing line.
			s.mirror.Items[i] = item
		} else {
			s.mirror.Items = append(s.mirror.Items, item)
		}
		s.mirror.Recompute()
		s.mu.Unlock()

		added = item
		return nil
	})
	if err != nil {
		return domain.CartItem{}, err
	}
	return added, nil
}

func checkAdd(variant domain.Variant, quantity int) error {
	if variant.Stock <= 0 {
		return domain.ErrOutOfStock
	}
	if quantity < 1 {
		return domain.ErrInvalidQuantity
	}
	if quantity > variant.Stock {
		return domain.Errorf(domain.EINVALID, "", "Only %d left in stock", variant.Stock)
	}
	return nil
}

// UpdateQuantity sets the quantity of a cart line. quantity must be within
// [1, stock] of the line's variant; out-of-range values are rejected before
// any network call.
func (s *Service) UpdateQuantity(ctx context.Context, itemID domain.ID, quantity int) (domain.CartItem, error) {
	const op = "cart.update_quantity"

	var updated domain.CartItem
	err := s.mutate(ctx, OpUpdate, op, func(ctx context.Context, token string) error {
		s.mu.RLock()
		cartID := s.mirror.ID
		item, _, ok := s.mirror.Item(itemID)
		s.mu.RUnlock()

		if !ok || cartID == "" {
			return domain.ErrCartItemNotFound
		}
		if err := checkQuantity(item, quantity); err != nil {
			return err
		}

		items, err := s.client.UpdateQuantities(ctx, token, cartID, []domain.QuantityUpdate{
			{ID: itemID, Quantity: quantity},
		})
		if err != nil {
			return err
		}

		if len(items) == 0 {
			// No items echoed back; reload the whole cart.
			carts, err := s.client.ListCarts(ctx, token)
			if err != nil {
				return err
			}
			if len(carts) == 0 {
				return domain.NotFound("", "cart", cartID.String())
			}
			s.adopt(carts[0], true)
		} else {
			s.mu.Lock()
			for _, it := range items {
				if _, i, ok := s.mirror.Item(it.ID); ok {
					s.mirror.Items[i] = it
				}
			}
			s.mirror.Recompute()
			s.mu.Unlock()
		}

		updated, _ = s.item(itemID)
		return nil
	})
	if err != nil {
		return domain.CartItem{}, err
	}
	return updated, nil
}

func checkQuantity(item domain.CartItem, quantity int) error {
	if quantity < 1 {
		return domain.ErrInvalidQuantity
	}
	if stock := item.Stock(); quantity > stock {
		return domain.Errorf(domain.EINVALID, "", "Only %d left in stock", stock)
	}
	return nil
}

// Increment raises a line's quantity by one, capped at stock.
func (s *Service) Increment(ctx context.Context, itemID domain.ID) (domain.CartItem, error) {
	return s.step(ctx, itemID, 1)
}

// Decrement lowers a line's quantity by one, never below 1.
func (s *Service) Decrement(ctx context.Context, itemID domain.ID) (domain.CartItem, error) {
	return s.step(ctx, itemID, -1)
}

func (s *Service) step(ctx context.Context, itemID domain.ID, delta int) (domain.CartItem, error) {
	const op = "cart.update_quantity"

	item, ok := s.item(itemID)
	if !ok {
		return domain.CartItem{}, s.fail(ctx, OpUpdate, op, domain.ErrCartItemNotFound)
	}

	quantity := clamp(item.Quantity+delta, 1, item.Stock())
	if quantity == item.Quantity {
		return item, nil
	}
	return s.UpdateQuantity(ctx, itemID, quantity)
}

func clamp(q, lo, hi int) int {
	if q > hi {
		q = hi
	}
	if q < lo {
		q = lo
	}
	return q
}

// RemoveItem deletes a cart line.
func (s *Service) RemoveItem(ctx context.Context, itemID domain.ID) error {
	const op = "cart.remove_item"

	return s.mutate(ctx, OpRemove, op, func(ctx context.Context, token string) error {
		s.mu.RLock()
		cartID := s.mirror.ID
		_, _, ok := s.mirror.Item(itemID)
		s.mu.RUnlock()

		if !ok || cartID == "" {
			return domain.ErrCartItemNotFound
		}

		if err := s.client.RemoveItem(ctx, token, cartID, itemID); err != nil {
			return err
		}

		s.mu.Lock()
		if _, i, ok := s.mirror.Item(itemID); ok {
			s.mirror.Items = append(s.mirror.Items[:i:i], s.mirror.Items[i+1:]...)
		}
		s.mirror.Recompute()
		s.mu.Unlock()
		return nil
	})
}

// =============================================================================
// Plumbing
// =============================================================================

// mutate obtains the token, runs fn in the cart's queue, then records the
// outcome and publishes the new item count on success.
func (s *Service) mutate(ctx context.Context, name, op string, fn func(ctx context.Context, token string) error) error {
	token, err := s.token(ctx)
	if err != nil {
		return s.fail(ctx, name, op, err)
	}

	if err := s.queue.Do(ctx, token, func(ctx context.Context) error {
		return fn(ctx, token)
	}); err != nil {
		return s.fail(ctx, name, op, err)
	}

	count := s.ItemCount()
	s.metrics.ObserveCart(name, nil, count)
	s.logger.Debug("cart updated", "op", op, "items", count)
	telemetry.AddBreadcrumb("cart", op, map[string]interface{}{"items": count})

	if s.counts != nil {
		if err := s.counts.PublishCount(ctx, count); err != nil {
			s.logger.Warn("failed to publish cart count", "error", err)
		}
	}
	return nil
}

// token returns the bearer token or an unauthorized error.
func (s *Service) token(ctx context.Context) (string, error) {
	if s.creds == nil {
		return "", domain.ErrNoCredential
	}
	token, err := s.creds.Token(ctx)
	if err != nil {
		if domain.IsCode(err, domain.EUNAUTHORIZED) {
			return "", err
		}
		return "", domain.WrapError(err, domain.EUNAUTHORIZED, "", "credential lookup failed")
	}
	if token == "" {
		return "", domain.ErrNoCredential
	}
	return token, nil
}

// fail tags err with op, records it and reports it. Cancellation is
// returned untouched and never reported.
func (s *Service) fail(ctx context.Context, name, op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	err = domain.WithOp(err, op)

	s.metrics.ObserveCart(name, err, 0)
	s.logger.Warn("cart operation failed", "op", op, "code", domain.ErrorCode(err), "error", err)
	_ = s.reporter.Report(ctx, err)
	return err
}
