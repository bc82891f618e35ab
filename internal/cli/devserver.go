package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/dukerupert/sparks/internal"
	"github.com/dukerupert/sparks/internal/middleware"
	"github.com/dukerupert/sparks/internal/remote/remotetest"
)

// DevServerOptions holds flags for the devserver command.
type DevServerOptions struct {
	*RootOptions
	Addr     string
	Products int
	PageSize int
	Token    string
}

// NewDevServerCommand creates the devserver command.
func NewDevServerCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DevServerOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Run a local catalog and cart service with demo data",
		Long: `Run an in-memory catalog and cart service that speaks the same
protocol as the real backend. Point API_BASE_URL at it to try the other
commands without a backend.

Flags default to DEVSERVER_ADDR, DEVSERVER_PRODUCTS and DEVSERVER_PAGE_SIZE.
Request metrics are served on /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDevServer(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address")
	cmd.Flags().IntVar(&opts.Products, "products", 0, "number of demo products")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", 0, "products per page")
	cmd.Flags().StringVar(&opts.Token, "token", "", "only accept this bearer token (default: any)")

	return cmd
}

func (o *DevServerOptions) apply(cfg *internal.Config) {
	if o.Addr == "" {
		o.Addr = cfg.DevServer.Addr
	}
	if o.Products <= 0 {
		o.Products = cfg.DevServer.Products
	}
	if o.PageSize <= 0 {
		o.PageSize = cfg.DevServer.PageSize
	}
}

func runDevServer(opts *DevServerOptions, cmd *cobra.Command) error {
	cfg, err := opts.config()
	if err != nil {
		return err
	}
	opts.apply(cfg)

	level := cfg.LogLevel
	if opts.Verbose {
		level = "debug"
	}
	logger := internal.NewLogger(cmd.ErrOrStderr(), cfg.Env, level)

	server := remotetest.New(remotetest.DemoCatalog(opts.Products), remotetest.Options{
		PageSize: opts.PageSize,
		Token:    opts.Token,
		Logger:   logger,
	})

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics := middleware.NewMetrics(cfg.Metrics.Namespace, registry)

	var handler http.Handler = server.Handler()
	handler = metrics.Middleware(handler)
	handler = middleware.WithRequestLogger(logger)(handler)
	handler = middleware.RequestID(handler)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.Handle("/", handler)

	ln, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to listen", err)
	}

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "serving %d products on http://%s\n", opts.Products, ln.Addr())
	logger.Info("dev server started", "addr", ln.Addr().String(), "products", opts.Products, "page_size", opts.PageSize)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return WrapExitError(ExitFailure, "server failed", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down dev server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return WrapExitError(ExitFailure, "shutdown failed", err)
	}
	return nil
}
