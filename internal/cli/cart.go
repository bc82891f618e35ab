package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dukerupert/sparks/internal/domain"
)

// NewCartCommand creates the cart command and its subcommands.
func NewCartCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Show and change your cart",
		Long: `Show and change the cart that belongs to ACCESS_TOKEN.

The cart is created on the first add. Quantities are checked against stock
before anything is sent.`,
	}

	cmd.AddCommand(newCartShowCommand(rootOpts))
	cmd.AddCommand(newCartAddCommand(rootOpts))
	cmd.AddCommand(newCartUpdateCommand(rootOpts))
	cmd.AddCommand(newCartRemoveCommand(rootOpts))
	cmd.AddCommand(newCartStepCommand(rootOpts, "inc", "Add one unit to a cart line", 1))
	cmd.AddCommand(newCartStepCommand(rootOpts, "dec", "Take one unit off a cart line", -1))

	return cmd
}

func newCartShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rootOpts.newApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			c, err := app.Cart.Refresh(cmd.Context())
			if err != nil {
				return app.failure(err)
			}
			return rootOpts.printer(cmd).Print(newCartView(c))
		},
	}
}

// CartAddOptions holds flags for cart add.
type CartAddOptions struct {
	*RootOptions
	Variant  string
	Color    string
	Size     string
	Quantity int
}

func newCartAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CartAddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Add a product variant to the cart",
		Long: `Add a product variant to the cart.

The variant is chosen by --variant, or by --color and --size, and defaults
to the product's first variant.

Example:
  sparks cart add 12 --color black --size M --qty 2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return addToCart(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Variant, "variant", "", "variant id")
	cmd.Flags().StringVar(&opts.Color, "color", "", "variant color")
	cmd.Flags().StringVar(&opts.Size, "size", "", "variant size")
	cmd.Flags().IntVarP(&opts.Quantity, "qty", "q", 1, "quantity")
	cmd.MarkFlagsMutuallyExclusive("variant", "color")
	cmd.MarkFlagsMutuallyExclusive("variant", "size")

	return cmd
}

func addToCart(opts *CartAddOptions, productID string, cmd *cobra.Command) error {
	app, err := opts.newApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	detail, err := app.Details.Get(ctx, domain.ID(strings.TrimSpace(productID)))
	if err != nil {
		return app.failure(err)
	}
	variant, err := opts.pick(detail.Product)
	if err != nil {
		return err
	}

	// Load the existing cart so merged lines and the count are accurate.
	if _, err := app.Cart.Refresh(ctx); err != nil {
		return app.failure(err)
	}
	item, err := app.Cart.AddItem(ctx, detail.Product, variant, opts.Quantity)
	if err != nil {
		return app.failure(err)
	}
	return opts.printer(cmd).Print(newItemView(item, app.Cart.ItemCount()))
}

// pick selects the variant named by the flags.
func (o *CartAddOptions) pick(p domain.Product) (domain.Variant, error) {
	var (
		v  domain.Variant
		ok bool
	)
	switch {
	case o.Variant != "":
		v, ok = p.Variant(domain.ID(o.Variant))
	case o.Color != "" || o.Size != "":
		v, ok = p.VariantFor(o.Color, o.Size)
	default:
		v, ok = p.DefaultVariant()
	}
	if !ok {
		return v, NewExitError(ExitCommandError, fmt.Sprintf("product %s has no matching variant", p.ID))
	}
	return v, nil
}

func newCartUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "update <item-id> <quantity>",
		Short: "Set the quantity of a cart line",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			quantity, err := strconv.Atoi(args[1])
			if err != nil {
				return WrapExitError(ExitCommandError, fmt.Sprintf("invalid quantity %q", args[1]), err)
			}
			return changeLine(rootOpts, cmd, func(app *App) (domain.CartItem, error) {
				return app.Cart.UpdateQuantity(cmd.Context(), domain.ID(args[0]), quantity)
			})
		},
	}
}

func newCartStepCommand(rootOpts *RootOptions, use, short string, delta int) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <item-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return changeLine(rootOpts, cmd, func(app *App) (domain.CartItem, error) {
				if delta > 0 {
					return app.Cart.Increment(cmd.Context(), domain.ID(args[0]))
				}
				return app.Cart.Decrement(cmd.Context(), domain.ID(args[0]))
			})
		},
	}
}

// changeLine loads the cart, applies change and prints the changed line.
func changeLine(rootOpts *RootOptions, cmd *cobra.Command, change func(app *App) (domain.CartItem, error)) error {
	app, err := rootOpts.newApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	if _, err := app.Cart.Refresh(cmd.Context()); err != nil {
		return app.failure(err)
	}
	item, err := change(app)
	if err != nil {
		return app.failure(err)
	}
	return rootOpts.printer(cmd).Print(newItemView(item, app.Cart.ItemCount()))
}

func newCartRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <item-id>",
		Aliases: []string{"rm"},
		Short:   "Remove a line from the cart",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rootOpts.newApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx := cmd.Context()
			if _, err := app.Cart.Refresh(ctx); err != nil {
				return app.failure(err)
			}
			if err := app.Cart.RemoveItem(ctx, domain.ID(args[0])); err != nil {
				return app.failure(err)
			}
			return rootOpts.printer(cmd).Print(newCartView(app.Cart.Cart()))
		},
	}
}
