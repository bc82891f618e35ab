// Package cli implements the sparks command line: catalog browsing and cart
// management against the remote service, plus a local fake service.
package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/dukerupert/sparks/internal"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "text" | "json" | "yaml"

	// LoadConfig overrides configuration loading (for testing).
	// If nil, defaults to internal.NewConfig.
	LoadConfig func() (*internal.Config, error)
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "yaml"}

// NewRootCommand creates the root command for the sparks CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sparks",
		Short: "Browse the catalog and manage your cart",
		Long: `sparks browses a paginated, filterable product catalog and keeps a
shopping cart in sync with the remote cart service.

Configuration comes from the environment (or a .env file):
  API_BASE_URL   catalog/cart service root
  ACCESS_TOKEN   bearer token for cart commands`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")

	cmd.AddCommand(NewProductsCommand(opts))
	cmd.AddCommand(NewProductCommand(opts))
	cmd.AddCommand(NewBrowseCommand(opts))
	cmd.AddCommand(NewCartCommand(opts))
	cmd.AddCommand(NewDevServerCommand(opts))

	return cmd
}

func (o *RootOptions) config() (*internal.Config, error) {
	load := o.LoadConfig
	if load == nil {
		load = internal.NewConfig
	}
	cfg, err := load()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	return cfg, nil
}

// newApp loads configuration and wires an App whose logs and notifications
// go to the command's stderr.
func (o *RootOptions) newApp(cmd *cobra.Command) (*App, error) {
	cfg, err := o.config()
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if o.Verbose {
		level = "debug"
	} else if level == "info" {
		// Info logs would interleave with command output.
		level = "warn"
	}
	logger := internal.NewLogger(cmd.ErrOrStderr(), cfg.Env, level)

	app, err := NewApp(cmd.Context(), cfg, logger, cmd.ErrOrStderr())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to start", err)
	}
	return app, nil
}

func (o *RootOptions) printer(cmd *cobra.Command) *Printer {
	return &Printer{Format: o.Format, Writer: cmd.OutOrStdout()}
}
