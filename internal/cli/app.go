package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dukerupert/sparks/internal"
	"github.com/dukerupert/sparks/internal/cache"
	"github.com/dukerupert/sparks/internal/cart"
	"github.com/dukerupert/sparks/internal/catalog"
	"github.com/dukerupert/sparks/internal/domain"
	"github.com/dukerupert/sparks/internal/notify"
	"github.com/dukerupert/sparks/internal/remote"
	"github.com/dukerupert/sparks/internal/telemetry"
)

// App wires the engines to their collaborators for one CLI invocation.
type App struct {
	Config   *internal.Config
	Logger   *slog.Logger
	Registry *prometheus.Registry
	Metrics  *telemetry.Metrics
	Client   *remote.Client
	Cache    cache.Cache
	Reporter *notify.Reporter
	Pager    *catalog.Pager
	Details  *catalog.Details
	Cart     *cart.Service

	closers []func()
	shown   atomic.Int32
}

// NewApp builds an App from cfg. Notifications are printed to stderr; when
// NATS is configured they are also published there, along with cart counts.
func NewApp(ctx context.Context, cfg *internal.Config, logger *slog.Logger, stderr io.Writer) (*App, error) {
	app := &App{Config: cfg, Logger: logger}

	cleanupSentry, err := telemetry.InitSentry(cfg.Sentry, logger)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, cleanupSentry)

	app.Registry = prometheus.NewRegistry()
	app.Registry.MustRegister(collectors.NewGoCollector())
	app.Metrics = telemetry.NewMetrics(cfg.Metrics.Namespace, app.Registry)

	app.Client, err = remote.New(remote.Config{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
		Logger:  logger,
		Metrics: app.Metrics,
	})
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to create remote client: %w", err)
	}

	if cfg.Cache.RedisURL != "" {
		r, err := cache.NewRedisFromURL(ctx, cfg.Cache.RedisURL, cfg.Cache.Prefix, cfg.Cache.TTL)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.closers = append(app.closers, func() { _ = r.Close() })
		app.Cache = r
		logger.Debug("using redis cache")
	} else {
		app.Cache = cache.NewMemory(cfg.Cache.TTL)
	}

	notifiers := notify.Multi{
		&notify.Writer{W: stderr},
		notify.Log{Logger: logger},
		notify.NotifierFunc(func(context.Context, notify.Notification) error {
			app.shown.Add(1)
			return nil
		}),
	}
	var counts notify.CountPublisher
	if cfg.NATS.URL != "" {
		n, err := notify.ConnectNATS(notify.NATSConfig{
			URL:           cfg.NATS.URL,
			SubjectPrefix: cfg.NATS.SubjectPrefix,
			Logger:        logger,
		})
		if err != nil {
			app.Close()
			return nil, err
		}
		app.closers = append(app.closers, func() { _ = n.Close() })
		notifiers = append(notifiers, n)
		counts = n
	}
	app.Reporter = &notify.Reporter{Notifier: notifiers, Metrics: app.Metrics}

	app.Pager = catalog.NewPager(catalog.PagerConfig{
		Fetcher:  app.Client,
		Reporter: app.Reporter,
		Metrics:  app.Metrics,
		Logger:   logger,
	})
	app.closers = append(app.closers, app.Pager.Close)

	app.Details = catalog.NewDetails(catalog.DetailsConfig{
		Source:   app.Client,
		Cache:    app.Cache,
		TTL:      cfg.Cache.TTL,
		Reporter: app.Reporter,
		Metrics:  app.Metrics,
		Logger:   logger,
	})

	app.Cart = cart.NewService(cart.Config{
		Client:      app.Client,
		Credentials: cart.StaticToken(cfg.API.AccessToken),
		Reporter:    app.Reporter,
		Counts:      counts,
		Metrics:     app.Metrics,
		Logger:      logger,
	})

	return app, nil
}

// Close releases connections in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// failure turns an engine error into an exit error. Errors the user already
// saw as a notification are not printed a second time.
func (a *App) failure(err error) error {
	if err == nil {
		return nil
	}
	return &ExitError{
		Code:    ExitFailure,
		Message: domain.ErrorMessage(err),
		Err:     err,
		Shown:   a.shown.Load() > 0,
	}
}
