package cli

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/dukerupert/sparks/internal/domain"
)

// queryFlags are the search and filter flags shared by catalog commands.
type queryFlags struct {
	Search      string
	Category    string
	SubCategory string
	Brand       string
	MinPrice    string
	MaxPrice    string
}

func (q *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&q.Search, "search", "s", "", "free-text search")
	cmd.Flags().StringVar(&q.Category, "category", "", "category slug")
	cmd.Flags().StringVar(&q.SubCategory, "sub-category", "", "sub-category slug")
	cmd.Flags().StringVar(&q.Brand, "brand", "", "brand slug")
	cmd.Flags().StringVar(&q.MinPrice, "min-price", "", "lowest selling price (requires --max-price)")
	cmd.Flags().StringVar(&q.MaxPrice, "max-price", "", "highest selling price (requires --min-price)")
}

// filters builds domain filters from the flags. A price range needs both
// bounds.
func (q *queryFlags) filters() (domain.Filters, error) {
	f := domain.Filters{
		Category:    strings.TrimSpace(q.Category),
		SubCategory: strings.TrimSpace(q.SubCategory),
		Brand:       strings.TrimSpace(q.Brand),
	}
	if q.MinPrice == "" && q.MaxPrice == "" {
		return f, nil
	}
	if q.MinPrice == "" || q.MaxPrice == "" {
		return f, NewExitError(ExitCommandError, "--min-price and --max-price must be given together")
	}
	return withPriceRange(f, q.MinPrice, q.MaxPrice)
}

func withPriceRange(f domain.Filters, minPrice, maxPrice string) (domain.Filters, error) {
	lo, err := decimal.NewFromString(minPrice)
	if err != nil {
		return f, WrapExitError(ExitCommandError, fmt.Sprintf("invalid minimum price %q", minPrice), err)
	}
	hi, err := decimal.NewFromString(maxPrice)
	if err != nil {
		return f, WrapExitError(ExitCommandError, fmt.Sprintf("invalid maximum price %q", maxPrice), err)
	}
	f = f.WithPriceRange(lo, hi)
	if err := f.Validate(); err != nil {
		return f, WrapExitError(ExitCommandError, domain.ErrorMessage(err), err)
	}
	return f, nil
}

// ProductsOptions holds flags for the products command.
type ProductsOptions struct {
	*RootOptions
	Query queryFlags
	Pages int
}

// NewProductsCommand creates the products command.
func NewProductsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProductsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "products",
		Short: "List catalog products",
		Long: `List catalog products matching a search and filters.

Pages are fetched in order until --pages pages have been read or a page
brings nothing new.

Example:
  sparks products --search boots --category shoes --min-price 10 --max-price 50`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listProducts(opts, cmd)
		},
	}

	opts.Query.register(cmd)
	cmd.Flags().IntVar(&opts.Pages, "pages", 0, "pages to read (default PAGE_PREFETCH)")

	return cmd
}

func listProducts(opts *ProductsOptions, cmd *cobra.Command) error {
	filters, err := opts.Query.filters()
	if err != nil {
		return err
	}
	if opts.Pages < 0 {
		return NewExitError(ExitCommandError, "--pages must not be negative")
	}

	app, err := opts.newApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	pages := opts.Pages
	if pages == 0 {
		pages = app.Config.API.PagePrefetch
	}

	ctx := cmd.Context()
	if err := app.Pager.SetQuery(ctx, opts.Query.Search, filters); err != nil {
		return app.failure(err)
	}
	for read := 1; read < pages && app.Pager.State().HasMore; read++ {
		if err := app.Pager.LoadMore(ctx); err != nil {
			return app.failure(err)
		}
	}

	return opts.printer(cmd).Print(newProductList(app.Pager.State(), app.Pager.Products()))
}

// NewProductCommand creates the product command.
func NewProductCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "product <id>",
		Short: "Show a product with its variants and related products",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rootOpts.newApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			detail, err := app.Details.Get(cmd.Context(), domain.ID(strings.TrimSpace(args[0])))
			if err != nil {
				return app.failure(err)
			}
			return rootOpts.printer(cmd).Print(newProductDetail(detail))
		},
	}
	return cmd
}
