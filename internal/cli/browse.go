package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/dukerupert/sparks/internal/catalog"
	"github.com/dukerupert/sparks/internal/domain"
)

// BrowseOptions holds flags for the browse command.
type BrowseOptions struct {
	*RootOptions
	Query       queryFlags
	MetricsAddr string
}

// NewBrowseCommand creates the browse command.
func NewBrowseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BrowseOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse the catalog interactively",
		Long: `Browse the catalog one page at a time, reading commands from stdin.

Commands:
  more (or an empty line)   load the next page
  search <text>             search, keeping the current filters
  filter key=value ...      set category, sub-category, brand or price=min-max
  clear                     drop the search and all filters
  reload                    restart the current query from the first page
  list                      print everything loaded so far
  quit                      leave`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return browse(opts, cmd)
		},
	}

	opts.Query.register(cmd)
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while browsing")

	return cmd
}

func browse(opts *BrowseOptions, cmd *cobra.Command) error {
	filters, err := opts.Query.filters()
	if err != nil {
		return err
	}

	app, err := opts.newApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if opts.MetricsAddr != "" {
		stop, err := serveMetrics(app, opts.MetricsAddr, cmd.ErrOrStderr())
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to serve metrics", err)
		}
		defer stop()
	}

	signal := catalog.NewSignal()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = app.Pager.Run(ctx, signal)
	}()
	defer func() {
		signal.Close()
		<-done
	}()

	b := &browser{
		app:     app,
		signal:  signal,
		out:     cmd.OutOrStdout(),
		printer: opts.printer(cmd),
		search:  opts.Query.Search,
		filters: filters,
		wait:    app.Config.API.Timeout + time.Second,
	}
	if err := b.waitSubscribed(ctx); err != nil {
		return err
	}

	// Failures are shown as notifications; the session carries on.
	_ = app.Pager.SetQuery(ctx, b.search, b.filters)
	b.status()

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(b.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(b.out)
			return scanner.Err()
		}
		if quit := b.exec(ctx, scanner.Text()); quit {
			return nil
		}
	}
}

// browser is one interactive browse session.
type browser struct {
	app     *App
	signal  *catalog.Signal
	out     io.Writer
	printer *Printer
	search  string
	filters domain.Filters
	wait    time.Duration
}

// exec runs one command line and reports whether the session should end.
func (b *browser) exec(ctx context.Context, line string) bool {
	verb, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)

	switch verb {
	case "", "more":
		b.more(ctx)
	case "search":
		b.search = rest
		_ = b.app.Pager.SetQuery(ctx, b.search, b.filters)
	case "filter":
		f, err := parseFilters(b.filters, rest)
		if err != nil {
			fmt.Fprintf(b.out, "! %s\n", err)
			return false
		}
		b.filters = f
		_ = b.app.Pager.SetQuery(ctx, b.search, b.filters)
	case "clear":
		b.search, b.filters = "", domain.Filters{}
		_ = b.app.Pager.SetQuery(ctx, "", domain.Filters{})
	case "reload":
		_ = b.app.Pager.Reload(ctx)
	case "list":
		if err := b.printer.Print(newProductList(b.app.Pager.State(), b.app.Pager.Products())); err != nil {
			fmt.Fprintf(b.out, "! %s\n", err)
		}
		return false
	case "quit", "exit", "q":
		return true
	default:
		fmt.Fprintf(b.out, "unknown command %q (more, search, filter, clear, reload, list, quit)\n", verb)
		return false
	}

	b.status()
	return false
}

// more fires the end-of-list signal and waits until the pager settles the
// fetch it causes.
func (b *browser) more(ctx context.Context) {
	before := b.app.Pager.State()
	if !before.HasMore || before.Fetching {
		return
	}
	b.signal.Fire()

	deadline := time.NewTimer(b.wait)
	defer deadline.Stop()
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()

	for b.app.Pager.State().Settled == before.Settled {
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			b.app.Logger.Warn("page load still pending", "page", before.Page+1)
			return
		case <-tick.C:
		}
	}
}

// waitSubscribed blocks until the pager listens on the signal, so the first
// "more" is not dropped.
func (b *browser) waitSubscribed(ctx context.Context) error {
	for b.signal.Subscribers() == 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
	return nil
}

func (b *browser) status() {
	st := b.app.Pager.State()
	switch {
	case st.Fetching:
		fmt.Fprintf(b.out, "loading, %d products so far\n", st.Products)
	case !st.Loaded:
		fmt.Fprintln(b.out, "nothing loaded yet, type more to retry")
	case st.HasMore:
		fmt.Fprintf(b.out, "page %d, %d products, more available\n", st.Page, st.Products)
	default:
		fmt.Fprintf(b.out, "page %d, %d products, end of results\n", st.Page, st.Products)
	}
}

// parseFilters applies key=value pairs to base. "price" takes "min-max";
// an empty value clears the key.
func parseFilters(base domain.Filters, args string) (domain.Filters, error) {
	f := base
	for _, pair := range strings.Fields(args) {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return base, fmt.Errorf("expected key=value, got %q", pair)
		}
		switch key {
		case "category":
			f.Category = value
		case "sub-category", "subcategory":
			f.SubCategory = value
		case "brand":
			f.Brand = value
		case "price":
			if value == "" {
				f.PriceRange = nil
				continue
			}
			lo, hi, ok := strings.Cut(value, "-")
			if !ok {
				return base, fmt.Errorf("price must be min-max, got %q", value)
			}
			var err error
			if f, err = withPriceRange(f, lo, hi); err != nil {
				return base, err
			}
		default:
			return base, fmt.Errorf("unknown filter %q", key)
		}
	}
	return f, nil
}

// serveMetrics exposes the App's registry over HTTP until stop is called.
func serveMetrics(app *App, addr string, stderr io.Writer) (stop func(), err error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.Logger.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	fmt.Fprintf(stderr, "metrics on http://%s/metrics\n", ln.Addr())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
