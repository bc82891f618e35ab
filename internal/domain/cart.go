package domain

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// CART DOMAIN ERRORS
// =============================================================================

var (
	ErrCartItemNotFound = &Error{Code: ENOTFOUND, Message: "Cart item not found"}
	ErrInvalidQuantity  = &Error{Code: EINVALID, Message: "Quantity must be at least 1"}
	ErrOutOfStock       = &Error{Code: ESTOCK, Message: MessageOutOfStock}
	ErrNoCredential     = &Error{Code: EUNAUTHORIZED, Message: "No access token available"}
)

// Cart is the remote cart as mirrored locally. ID is empty until the remote
// service has created one.
type Cart struct {
	ID         ID              `json:"id"`
	Items      []CartItem      `json:"items"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

// CartItem is a cart line: a product with chosen variant attributes.
type CartItem struct {
	ID         ID              `json:"id"`
	Product    CartProduct     `json:"product"`
	Color      string          `json:"color"`
	Size       string          `json:"size"`
	ImageIndex int             `json:"image"`
	Quantity   int             `json:"quantity"`
	SubTotal   decimal.Decimal `json:"sub_total"`
}

// CartProduct is the product embedded in a cart line.
type CartProduct struct {
	Product
	SellingPrice decimal.NullDecimal `json:"selling_price"`
}

// Stock returns the stock of the variant this line was added with, falling
// back to the product's first variant. Zero when the product has none.
func (i CartItem) Stock() int {
	if v, ok := i.Product.VariantFor(i.Color, i.Size); ok {
		return v.Stock
	}
	if v, ok := i.Product.DefaultVariant(); ok {
		return v.Stock
	}
	return 0
}

// Thumb returns the thumbnail URL for the line's image, if any.
func (i CartItem) Thumb() string {
	if i.ImageIndex >= 0 && i.ImageIndex < len(i.Product.Images) {
		return i.Product.Images[i.ImageIndex].Thumb
	}
	return ""
}

// Exists reports whether the remote cart has been created.
func (c Cart) Exists() bool {
	return c.ID != ""
}

// Total sums every line's SubTotal.
func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.SubTotal)
	}
	return total
}

// Recompute resets GrandTotal to the sum of all SubTotals.
func (c *Cart) Recompute() {
	c.GrandTotal = c.Total()
}

// ItemCount sums quantities across all lines.
func (c Cart) ItemCount() int {
	count := 0
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// Item finds a line by id and returns its position.
func (c Cart) Item(id ID) (CartItem, int, bool) {
	for i, item := range c.Items {
		if item.ID == id {
			return item, i, true
		}
	}
	return CartItem{}, -1, false
}

// Clone returns a deep copy safe to hand to readers.
func (c Cart) Clone() Cart {
	out := c
	if c.Items != nil {
		out.Items = make([]CartItem, len(c.Items))
		for i, item := range c.Items {
			item.Product.Product = item.Product.Clone()
			out.Items[i] = item
		}
	}
	return out
}

// AddItemRequest is the body of an add-item call.
type AddItemRequest struct {
	ProductID ID     `json:"product_id" validate:"required"`
	Color     string `json:"color" validate:"required"`
	Size      string `json:"size" validate:"required"`
	Image     int    `json:"image" validate:"gte=0"`
	Quantity  int    `json:"quantity" validate:"gte=1"`
}

// QuantityUpdate is one element of a bulk quantity patch.
type QuantityUpdate struct {
	ID       ID  `json:"id" validate:"required"`
	Quantity int `json:"quantity" validate:"gte=1"`
}
