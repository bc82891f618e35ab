package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/sparks/internal/domain"
)

func TestCart_RecomputeAndCount(t *testing.T) {
	c := domain.Cart{
		ID: "c1",
		Items: []domain.CartItem{
			{ID: "1", Quantity: 2, SubTotal: decimal.RequireFromString("10.50")},
			{ID: "2", Quantity: 1, SubTotal: decimal.RequireFromString("4.25")},
		},
		GrandTotal: decimal.RequireFromString("999"),
	}

	c.Recompute()

	assert.True(t, c.GrandTotal.Equal(decimal.RequireFromString("14.75")))
	assert.Equal(t, 3, c.ItemCount())
}

func TestCart_EmptyTotals(t *testing.T) {
	var c domain.Cart
	c.Recompute()
	assert.True(t, c.GrandTotal.IsZero())
	assert.Equal(t, 0, c.ItemCount())
	assert.False(t, c.Exists())
}

func TestCart_CloneIsIndependent(t *testing.T) {
	zero := 0
	c := domain.Cart{ID: "c1", Items: []domain.CartItem{{
		ID:       "1",
		Quantity: 1,
		Product: domain.CartProduct{Product: domain.Product{
			Images:   []domain.Image{{Thumb: "a"}},
			Variants: domain.Variants{{ID: "v1", Stock: 5, ImageIndex: &zero}},
		}},
	}}}
	cp := c.Clone()
	cp.Items[0].Quantity = 9
	cp.Items[0].Product.Images[0].Thumb = "b"
	cp.Items[0].Product.Variants[0].Stock = 0
	*cp.Items[0].Product.Variants[0].ImageIndex = 3

	assert.Equal(t, 1, c.Items[0].Quantity)
	assert.Equal(t, "a", c.Items[0].Product.Images[0].Thumb)
	assert.Equal(t, 5, c.Items[0].Product.Variants[0].Stock)
	assert.Equal(t, 0, *c.Items[0].Product.Variants[0].ImageIndex)
}

func TestCartItem_Decode(t *testing.T) {
	raw := `{
		"id": 11, "color": "red", "size": "N/A", "image": 1, "quantity": 2, "sub_total": "39.80",
		"product": {"id": 7, "title": "Trail Runner", "selling_price": 19.9,
			"images": [{"thumb": "a"}, {"thumb": "b"}],
			"variants": {"id": 70, "color": "red", "size": "", "stock": 5}}
	}`
	var item domain.CartItem
	require.NoError(t, json.Unmarshal([]byte(raw), &item))

	assert.Equal(t, domain.ID("11"), item.ID)
	assert.Equal(t, "Trail Runner", item.Product.Title)
	assert.Equal(t, 5, item.Stock())
	assert.Equal(t, "b", item.Thumb())
	assert.True(t, item.Product.SellingPrice.Valid)
}

func TestCartItem_StockFallsBackToFirstVariant(t *testing.T) {
	item := domain.CartItem{
		Color: "green",
		Product: domain.CartProduct{Product: domain.Product{
			Variants: domain.Variants{{Color: "red", Stock: 2}},
		}},
	}
	assert.Equal(t, 2, item.Stock())
	assert.Equal(t, 0, domain.CartItem{}.Stock())
}

func TestFilters_Validate(t *testing.T) {
	assert.NoError(t, domain.Filters{}.Validate())
	assert.NoError(t, domain.Filters{}.WithPriceRange(decimal.Zero, decimal.Zero).Validate())

	err := domain.Filters{}.WithPriceRange(decimal.NewFromInt(10), decimal.NewFromInt(5)).Validate()
	assert.True(t, domain.IsCode(err, domain.EINVALID))

	err = domain.Filters{}.WithPriceRange(decimal.NewFromInt(-1), decimal.NewFromInt(5)).Validate()
	assert.True(t, domain.IsCode(err, domain.EINVALID))
}
