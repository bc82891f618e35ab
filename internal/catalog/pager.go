package catalog

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/dukerupert/sparks/internal/domain"
	"github.com/dukerupert/sparks/internal/notify"
	"github.com/dukerupert/sparks/internal/query"
	"github.com/dukerupert/sparks/internal/telemetry"
)

// Fetch origins, used as log and metric labels.
const (
	OriginReset  = "reset"
	OriginAppend = "append"
)

// Fetcher loads one page of products for a fingerprint.
type Fetcher interface {
	ListProducts(ctx context.Context, fp query.Fingerprint, page int) ([]domain.Product, error)
}

// PagerConfig holds Pager dependencies.
type PagerConfig struct {
	// Fetcher loads pages (required).
	Fetcher Fetcher

	// Reporter surfaces classified failures (optional).
	Reporter *notify.Reporter

	// Metrics records page outcomes (optional).
	Metrics *telemetry.Metrics

	// Logger is used for structured logging (optional, defaults to slog.Default())
	Logger *slog.Logger
}

// State is a snapshot of pagination.
type State struct {
	Fingerprint query.Fingerprint
	Page        int  // last page applied; meaningless until Loaded
	Loaded      bool // page 0 has been applied for Fingerprint
	HasMore     bool
	Fetching    bool
	Products    int
	Settled     uint64 // fetches completed, in any outcome
}

// tag identifies the query a request was issued for. A response is applied
// only while its tag is still current, so switching A, B, then back to A never
// revives a response issued under the first A.
type tag struct {
	fp    query.Fingerprint
	epoch uint64
}

// Pager is the paginated fetch controller. It owns pagination state and the
// product collection for the live query. Safe for concurrent use.
type Pager struct {
	fetcher  Fetcher
	reporter *notify.Reporter
	metrics  *telemetry.Metrics
	logger   *slog.Logger

	mu       sync.Mutex
	current  tag
	page     int
	loaded   bool
	hasMore  bool
	fetching bool
	settled  uint64
	items    Collection

	// epochCtx is canceled on reset to abort requests for the old query.
	// Correctness never depends on it: the tag check discards late responses.
	epochCtx    context.Context
	epochCancel context.CancelFunc
}

// NewPager creates a Pager for the unfiltered catalog. Nothing is fetched
// until SetQuery, Reload or LoadMore is called.
func NewPager(cfg PagerConfig) *Pager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	epochCtx, cancel := context.WithCancel(context.Background())

	return &Pager{
		fetcher:     cfg.Fetcher,
		reporter:    cfg.Reporter,
		metrics:     cfg.Metrics,
		logger:      logger.With("component", "pager"),
		hasMore:     true,
		epochCtx:    epochCtx,
		epochCancel: cancel,
	}
}

// SetQuery makes searchText+filters the live query. When its fingerprint
// differs from the current one, pagination restarts: the collection is
// cleared, page returns to 0 and page 0 is fetched. An unchanged fingerprint
// is a no-op once page 0 has loaded.
func (p *Pager) SetQuery(ctx context.Context, searchText string, filters domain.Filters) error {
	const op = "catalog.set_query"

	if err := filters.Validate(); err != nil {
		return domain.WithOp(err, op)
	}
	fp := query.Build(searchText, filters)

	p.mu.Lock()
	if fp == p.current.fp && (p.loaded || p.fetching) {
		p.mu.Unlock()
		return nil
	}
	t := p.resetLocked(fp)
	abort := p.epochCtx
	p.mu.Unlock()

	return p.fetch(ctx, abort, t, 0, OriginReset)
}

// Reload restarts pagination for the current query.
func (p *Pager) Reload(ctx context.Context) error {
	p.mu.Lock()
	t := p.resetLocked(p.current.fp)
	abort := p.epochCtx
	p.mu.Unlock()

	return p.fetch(ctx, abort, t, 0, OriginReset)
}

// resetLocked starts a new epoch for fp. Callers hold p.mu.
func (p *Pager) resetLocked(fp query.Fingerprint) tag {
	p.epochCancel()
	p.epochCtx, p.epochCancel = context.WithCancel(context.Background())

	p.current = tag{fp: fp, epoch: p.current.epoch + 1}
	p.page = 0
	p.loaded = false
	p.hasMore = true
	p.fetching = true
	p.items = Collection{}

	p.metrics.ObserveReset()
	p.logger.Debug("pagination reset", "fingerprint", fp.String(), "price_range", fp.HasPriceRange(), "epoch", p.current.epoch)
	return p.current
}

// LoadMore fetches the next page for the live query. It is a no-op while a
// fetch is outstanding or once the query is exhausted. If page 0 has not
// loaded yet (never requested, or it failed) page 0 is fetched.
func (p *Pager) LoadMore(ctx context.Context) error {
	p.mu.Lock()
	if p.fetching || !p.hasMore {
		p.mu.Unlock()
		return nil
	}
	next := 0
	if p.loaded {
		next = p.page + 1
	}
	p.fetching = true
	t := p.current
	abort := p.epochCtx
	p.mu.Unlock()

	origin := OriginAppend
	if next == 0 {
		origin = OriginReset
	}
	return p.fetch(ctx, abort, t, next, origin)
}

// fetch issues the request for page under t and applies the outcome. The
// request is aborted early when abort ends.
func (p *Pager) fetch(ctx, abort context.Context, t tag, page int, origin string) error {
	const op = "catalog.fetch_page"

	reqCtx, cancel := context.WithCancel(domain.NewContextWithOrigin(ctx, origin))
	stop := context.AfterFunc(abort, cancel)
	products, err := p.fetcher.ListProducts(reqCtx, t.fp, page)
	stop()
	cancel()

	p.mu.Lock()
	p.settled++
	if t != p.current {
		p.mu.Unlock()
		p.metrics.ObservePage(origin, telemetry.PageStale)
		p.logger.Debug("discarding stale page",
			"code", domain.ErrorCode(domain.ErrStaleResponse),
			"fingerprint", t.fp.String(),
			"epoch", t.epoch,
			"page", page,
			"error", err,
		)
		return nil
	}

	if err != nil {
		// page and hasMore stay put so the next signal retries.
		p.fetching = false
		p.mu.Unlock()
		p.metrics.ObservePage(origin, telemetry.PageFailed)
		if errors.Is(err, context.Canceled) {
			return err
		}
		err = domain.WithOp(err, op)
		p.logger.Warn("page fetch failed", "page", page, "code", domain.ErrorCode(err), "error", err)
		_ = p.reporter.Report(ctx, err)
		return err
	}

	before := p.items.Len()
	merged, grew := Merge(p.items, products)
	p.items = merged
	p.page = page
	p.loaded = true
	p.hasMore = grew
	p.fetching = false
	after := merged.Len()
	p.mu.Unlock()

	p.metrics.ObservePage(origin, telemetry.PageApplied)
	p.metrics.ObserveMerge(after - before)
	p.logger.Debug("page applied",
		"fingerprint", t.fp.String(),
		"page", page,
		"received", len(products),
		"total", after,
		"has_more", grew,
	)
	return nil
}

// Run consumes trigger signals until ctx ends or the trigger closes, calling
// LoadMore for each. Failures are reported through the Reporter. Run
// unsubscribes before returning and waits for in-flight fetches.
func (p *Pager) Run(ctx context.Context, trigger Trigger) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	signals, unsubscribe := trigger.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-signals:
			if !ok {
				return nil
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = p.LoadMore(ctx)
			}()
		}
	}
}

// State returns a snapshot of pagination.
func (p *Pager) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return State{
		Fingerprint: p.current.fp,
		Page:        p.page,
		Loaded:      p.loaded,
		HasMore:     p.hasMore,
		Fetching:    p.fetching,
		Products:    p.items.Len(),
		Settled:     p.settled,
	}
}

// Products returns the accumulated products in first-seen order.
func (p *Pager) Products() []domain.Product {
	p.mu.Lock()
	items := p.items
	p.mu.Unlock()
	return items.Products()
}

// Collection returns the current collection. It is immutable and safe to
// read without further locking.
func (p *Pager) Collection() Collection {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.items
}

// Close aborts outstanding requests.
func (p *Pager) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.epochCancel()
}
