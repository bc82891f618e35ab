package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/sparks/internal/domain"
)

func intPtr(i int) *int { return &i }

func TestID_UnmarshalJSON(t *testing.T) {
	var got struct {
		A domain.ID `json:"a"`
		B domain.ID `json:"b"`
		C domain.ID `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 42, "b": "abc", "c": null}`), &got))
	assert.Equal(t, domain.ID("42"), got.A)
	assert.Equal(t, domain.ID("abc"), got.B)
	assert.Equal(t, domain.ID(""), got.C)
}

func TestProduct_Decode(t *testing.T) {
	raw := `{
		"id": 7,
		"title": "Trail Runner",
		"short_desc": "light",
		"images": [{"image": "a.jpg", "thumb": "a_t.jpg"}, {"image": "b.jpg", "thumb": "b_t.jpg", "variant_id": 71}],
		"variants": [{"id": 70, "color": "red", "size": "42", "stock": 3, "selling_price": "19.90", "image": 0},
		             {"id": 71, "color": "blue", "size": "43", "stock": 0, "selling_price": 21}]
	}`
	var p domain.Product
	require.NoError(t, json.Unmarshal([]byte(raw), &p))

	assert.Equal(t, domain.ID("7"), p.ID)
	require.Len(t, p.Variants, 2)
	assert.True(t, p.Variants[0].SellingPrice.Equal(decimal.RequireFromString("19.90")))
	assert.Equal(t, 0, *p.Variants[0].ImageIndex)
	assert.Nil(t, p.Variants[1].ImageIndex)
	assert.False(t, p.Variants[1].InStock())
}

func TestVariants_SingleObject(t *testing.T) {
	var vs domain.Variants
	require.NoError(t, json.Unmarshal([]byte(`{"id": 1, "stock": 4}`), &vs))
	require.Len(t, vs, 1)
	assert.Equal(t, 4, vs[0].Stock)
}

func TestProduct_ImageIndexFor(t *testing.T) {
	p := domain.Product{
		Images: []domain.Image{
			{Image: "a"},
			{Image: "b", VariantID: "v2"},
			{Image: "c", VariantID: "v3"},
		},
	}

	tests := []struct {
		name    string
		variant domain.Variant
		want    int
	}{
		{name: "explicit index", variant: domain.Variant{ID: "v3", ImageIndex: intPtr(1)}, want: 1},
		{name: "explicit index out of range", variant: domain.Variant{ID: "v3", ImageIndex: intPtr(9)}, want: 2},
		{name: "negative index", variant: domain.Variant{ID: "v2", ImageIndex: intPtr(-1)}, want: 1},
		{name: "tagged image", variant: domain.Variant{ID: "v2"}, want: 1},
		{name: "no match", variant: domain.Variant{ID: "v9"}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.ImageIndexFor(tt.variant))
		})
	}
}

func TestVariant_Label(t *testing.T) {
	assert.Equal(t, "M - red", domain.Variant{Size: "M", Color: "red"}.Label())
	assert.Equal(t, "M", domain.Variant{Size: "M"}.Label())
	assert.Equal(t, "red", domain.Variant{Color: "red"}.Label())
}

func TestProduct_VariantFor(t *testing.T) {
	p := domain.Product{Variants: domain.Variants{
		{ID: "1", Color: "red", Size: ""},
		{ID: "2", Color: "blue", Size: "L"},
	}}

	v, ok := p.VariantFor("red", domain.NotApplicable)
	require.True(t, ok)
	assert.Equal(t, domain.ID("1"), v.ID)

	_, ok = p.VariantFor("green", "L")
	assert.False(t, ok)
}

func TestAttrOrNA(t *testing.T) {
	assert.Equal(t, "N/A", domain.AttrOrNA(""))
	assert.Equal(t, "N/A", domain.AttrOrNA("  "))
	assert.Equal(t, "red", domain.AttrOrNA("red"))
}
