package cli

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/sparks/internal/catalog"
	"github.com/dukerupert/sparks/internal/domain"
)

// ProductRow is one product in a listing.
type ProductRow struct {
	ID    domain.ID       `json:"id" yaml:"id"`
	Title string          `json:"title" yaml:"title"`
	Price decimal.Decimal `json:"price" yaml:"price"`
	Stock int             `json:"stock" yaml:"stock"`
}

func productRow(p domain.Product) ProductRow {
	row := ProductRow{ID: p.ID, Title: p.Title}
	if v, ok := p.DefaultVariant(); ok {
		row.Price = v.SellingPrice
	}
	for _, v := range p.Variants {
		row.Stock += v.Stock
	}
	return row
}

func productRows(products []domain.Product) []ProductRow {
	rows := make([]ProductRow, 0, len(products))
	for _, p := range products {
		rows = append(rows, productRow(p))
	}
	return rows
}

// ProductList is the accumulated listing for a query.
type ProductList struct {
	Query    string       `json:"query" yaml:"query"`
	Page     int          `json:"page" yaml:"page"`
	HasMore  bool         `json:"has_more" yaml:"has_more"`
	Products []ProductRow `json:"products" yaml:"products"`
}

func newProductList(state catalog.State, products []domain.Product) ProductList {
	return ProductList{
		Query:    state.Fingerprint.String(),
		Page:     state.Page,
		HasMore:  state.HasMore,
		Products: productRows(products),
	}
}

func (l ProductList) RenderText(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%-6s %-28s %9s %5s\n", "ID", "TITLE", "PRICE", "STOCK"); err != nil {
		return err
	}
	for _, r := range l.Products {
		if _, err := fmt.Fprintf(w, "%-6s %-28s %9s %5d\n", r.ID, r.Title, r.Price.StringFixed(2), r.Stock); err != nil {
			return err
		}
	}
	more := "end of results"
	if l.HasMore {
		more = "more available"
	}
	_, err := fmt.Fprintf(w, "%d products, page %d, %s\n", len(l.Products), l.Page, more)
	return err
}

// VariantRow is one purchasable variant.
type VariantRow struct {
	ID    domain.ID       `json:"id" yaml:"id"`
	Label string          `json:"label" yaml:"label"`
	Color string          `json:"color" yaml:"color"`
	Size  string          `json:"size" yaml:"size"`
	Price decimal.Decimal `json:"price" yaml:"price"`
	Stock int             `json:"stock" yaml:"stock"`
}

// ProductDetail is a product page.
type ProductDetail struct {
	ID          domain.ID    `json:"id" yaml:"id"`
	Title       string       `json:"title" yaml:"title"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	Variants    []VariantRow `json:"variants" yaml:"variants"`
	Related     []ProductRow `json:"related" yaml:"related"`
}

func newProductDetail(d catalog.Detail) ProductDetail {
	out := ProductDetail{
		ID:          d.Product.ID,
		Title:       d.Product.Title,
		Description: d.Product.ShortDescription,
		Variants:    make([]VariantRow, 0, len(d.Product.Variants)),
		Related:     productRows(d.Related),
	}
	for _, v := range d.Product.Variants {
		out.Variants = append(out.Variants, VariantRow{
			ID:    v.ID,
			Label: v.Label(),
			Color: domain.AttrOrNA(v.Color),
			Size:  domain.AttrOrNA(v.Size),
			Price: v.SellingPrice,
			Stock: v.Stock,
		})
	}
	return out
}

func (d ProductDetail) RenderText(w io.Writer) error {
	fmt.Fprintf(w, "%s  %s\n", d.ID, d.Title)
	if d.Description != "" {
		fmt.Fprintln(w, d.Description)
	}

	fmt.Fprintf(w, "\n%-8s %-8s %-4s %9s %5s\n", "VARIANT", "COLOR", "SIZE", "PRICE", "STOCK")
	for _, v := range d.Variants {
		fmt.Fprintf(w, "%-8s %-8s %-4s %9s %5d\n", v.ID, v.Color, v.Size, v.Price.StringFixed(2), v.Stock)
	}

	fmt.Fprintln(w, "\nRelated:")
	if len(d.Related) == 0 {
		_, err := fmt.Fprintln(w, "  (none)")
		return err
	}
	for _, r := range d.Related {
		fmt.Fprintf(w, "  %-6s %s\n", r.ID, r.Title)
	}
	return nil
}

// CartLine is one cart item.
type CartLine struct {
	ID        domain.ID       `json:"id" yaml:"id"`
	ProductID domain.ID       `json:"product_id" yaml:"product_id"`
	Title     string          `json:"title" yaml:"title"`
	Color     string          `json:"color" yaml:"color"`
	Size      string          `json:"size" yaml:"size"`
	Quantity  int             `json:"quantity" yaml:"quantity"`
	Stock     int             `json:"stock" yaml:"stock"`
	SubTotal  decimal.Decimal `json:"sub_total" yaml:"sub_total"`
	Thumb     string          `json:"thumb,omitempty" yaml:"thumb,omitempty"`
}

// CartView is the cart as shown to the user.
type CartView struct {
	ID         domain.ID       `json:"id,omitempty" yaml:"id,omitempty"`
	Items      []CartLine      `json:"items" yaml:"items"`
	ItemCount  int             `json:"item_count" yaml:"item_count"`
	GrandTotal decimal.Decimal `json:"grand_total" yaml:"grand_total"`
}

func newCartView(c domain.Cart) CartView {
	view := CartView{
		ID:         c.ID,
		Items:      make([]CartLine, 0, len(c.Items)),
		ItemCount:  c.ItemCount(),
		GrandTotal: c.GrandTotal,
	}
	for _, item := range c.Items {
		view.Items = append(view.Items, cartLine(item))
	}
	return view
}

func cartLine(item domain.CartItem) CartLine {
	return CartLine{
		ID:        item.ID,
		ProductID: item.Product.ID,
		Title:     item.Product.Title,
		Color:     item.Color,
		Size:      item.Size,
		Quantity:  item.Quantity,
		Stock:     item.Stock(),
		SubTotal:  item.SubTotal,
		Thumb:     item.Thumb(),
	}
}

func (c CartView) RenderText(w io.Writer) error {
	if len(c.Items) == 0 {
		_, err := fmt.Fprintln(w, "Your cart is empty.")
		return err
	}

	fmt.Fprintf(w, "%-6s %-28s %-8s %-4s %4s %10s\n", "ITEM", "TITLE", "COLOR", "SIZE", "QTY", "SUBTOTAL")
	for _, l := range c.Items {
		fmt.Fprintf(w, "%-6s %-28s %-8s %-4s %4d %10s\n", l.ID, l.Title, l.Color, l.Size, l.Quantity, l.SubTotal.StringFixed(2))
	}
	_, err := fmt.Fprintf(w, "%d items, total %s\n", c.ItemCount, c.GrandTotal.StringFixed(2))
	return err
}

// ItemView is the result of a single-line cart change.
type ItemView struct {
	Item      CartLine `json:"item" yaml:"item"`
	ItemCount int      `json:"item_count" yaml:"item_count"`
}

func (v ItemView) RenderText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%s x%d (%s/%s) %s, cart has %d items\n",
		v.Item.Title, v.Item.Quantity, v.Item.Color, v.Item.Size, v.Item.SubTotal.StringFixed(2), v.ItemCount)
	return err
}

func newItemView(item domain.CartItem, count int) ItemView {
	return ItemView{Item: cartLine(item), ItemCount: count}
}
