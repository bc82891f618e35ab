package catalog

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/dukerupert/sparks/internal/cache"
	"github.com/dukerupert/sparks/internal/domain"
	"github.com/dukerupert/sparks/internal/notify"
	"github.com/dukerupert/sparks/internal/telemetry"
)

// ProductSource fetches a single product and its related products.
type ProductSource interface {
	GetProduct(ctx context.Context, id domain.ID) (domain.Product, error)
	RelatedProducts(ctx context.Context, id domain.ID) ([]domain.Product, error)
}

// Detail is a product page: the product plus related products.
type Detail struct {
	Product domain.Product   `json:"product"`
	Related []domain.Product `json:"related"`
}

// DetailsConfig holds Details dependencies.
type DetailsConfig struct {
	Source   ProductSource
	Cache    cache.Cache // optional
	TTL      time.Duration
	Reporter *notify.Reporter
	Metrics  *telemetry.Metrics
	Logger   *slog.Logger
}

// Details loads product pages. Concurrent requests for the same id share
// one fetch; results are cached by id.
type Details struct {
	source   ProductSource
	cache    cache.Cache
	ttl      time.Duration
	reporter *notify.Reporter
	metrics  *telemetry.Metrics
	logger   *slog.Logger
	group    singleflight.Group
}

// NewDetails creates a Details service.
func NewDetails(cfg DetailsConfig) *Details {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Details{
		source:   cfg.Source,
		cache:    cfg.Cache,
		ttl:      cfg.TTL,
		reporter: cfg.Reporter,
		metrics:  cfg.Metrics,
		logger:   logger.With("component", "details"),
	}
}

func detailKey(id domain.ID) string {
	return "product:" + id.String()
}

// Get returns the product page for id. A failure loading related products
// is logged and yields an empty related list; a failure loading the product
// itself is reported and returned.
func (d *Details) Get(ctx context.Context, id domain.ID) (Detail, error) {
	const op = "catalog.product_detail"

	if id == "" {
		return Detail{}, domain.Invalid(op, "product id is required")
	}

	if d.cache != nil {
		var cached Detail
		found, err := d.cache.Get(ctx, detailKey(id), &cached)
		if err != nil {
			d.logger.Warn("cache read failed", "id", id, "error", err)
		}
		d.metrics.ObserveCache(found)
		if found {
			return cached, nil
		}
	}

	// The shared fetch is not tied to the first caller's cancellation.
	ch := d.group.DoChan(id.String(), func() (interface{}, error) {
		return d.load(context.WithoutCancel(ctx), id)
	})
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return Detail{}, ctx.Err()
	}
	if res.Err != nil {
		err := domain.WithOp(res.Err, op)
		_ = d.reporter.Report(ctx, err)
		return Detail{}, err
	}
	page := res.Val.(loadedDetail)

	// A page missing its related products is served but not cached.
	if d.cache != nil && !res.Shared && page.complete {
		if err := d.cache.Set(ctx, detailKey(id), page.detail, d.ttl); err != nil {
			d.logger.Warn("cache write failed", "id", id, "error", err)
		}
	}
	return page.detail, nil
}

type loadedDetail struct {
	detail   Detail
	complete bool
}

func (d *Details) load(ctx context.Context, id domain.ID) (loadedDetail, error) {
	var (
		product     domain.Product
		related     []domain.Product
		relatedFail bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := d.source.GetProduct(gctx, id)
		if err != nil {
			return err
		}
		product = p
		return nil
	})
	g.Go(func() error {
		r, err := d.source.RelatedProducts(gctx, id)
		if err != nil {
			// A related-products failure does not fail the page.
			if gctx.Err() == nil {
				d.logger.Warn("related products unavailable", "id", id, "code", domain.ErrorCode(err), "error", err)
			}
			relatedFail = true
			return nil
		}
		related = r
		return nil
	})

	if err := g.Wait(); err != nil {
		return loadedDetail{}, err
	}
	if related == nil {
		related = []domain.Product{}
	}
	return loadedDetail{
		detail:   Detail{Product: product, Related: related},
		complete: !relatedFail,
	}, nil
}

// Invalidate drops the cached page for id.
func (d *Details) Invalidate(ctx context.Context, id domain.ID) error {
	if d.cache == nil {
		return nil
	}
	return d.cache.Delete(ctx, detailKey(id))
}
