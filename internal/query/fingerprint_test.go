package query_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/dukerupert/sparks/internal/domain"
	"github.com/dukerupert/sparks/internal/query"
)

func TestBuild_EqualInputsEqualFingerprints(t *testing.T) {
	a := query.Build("shoes", domain.Filters{Category: "men", Brand: "acme"})
	b := query.Build("  shoes ", domain.Filters{Brand: "acme", Category: "men"})

	assert.Equal(t, a, b)
	assert.Equal(t, a.Key(), b.Key())
}

func TestBuild_UnicodeNormalisation(t *testing.T) {
	composed := query.Build("caf\u00e9", domain.Filters{})
	decomposed := query.Build("cafe\u0301", domain.Filters{})

	assert.Equal(t, composed, decomposed)
}

func TestBuild_DistinguishesFields(t *testing.T) {
	base := query.Build("", domain.Filters{Category: "shoes"})

	tests := []struct {
		name string
		fp   query.Fingerprint
	}{
		{name: "search text", fp: query.Build("x", domain.Filters{Category: "shoes"})},
		{name: "sub category", fp: query.Build("", domain.Filters{Category: "shoes", SubCategory: "run"})},
		{name: "brand", fp: query.Build("", domain.Filters{Category: "shoes", Brand: "b"})},
		{name: "category moved to brand", fp: query.Build("", domain.Filters{Brand: "shoes"})},
		{name: "zero price range", fp: query.Build("", domain.Filters{Category: "shoes"}.WithPriceRange(decimal.Zero, decimal.Zero))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, base, tt.fp)
			assert.NotEqual(t, base.Key(), tt.fp.Key())
		})
	}
}

func TestBuild_PriceScaleIgnored(t *testing.T) {
	a := query.Build("", domain.Filters{}.WithPriceRange(decimal.RequireFromString("10"), decimal.RequireFromString("20.5")))
	b := query.Build("", domain.Filters{}.WithPriceRange(decimal.RequireFromString("10.00"), decimal.RequireFromString("20.50")))
	assert.Equal(t, a, b)
}

func TestFingerprint_Values(t *testing.T) {
	tests := []struct {
		name string
		fp   query.Fingerprint
		page int
		want string
	}{
		{
			name: "empty first page",
			fp:   query.Build("", domain.Filters{}),
			want: "",
		},
		{
			name: "filters with page",
			fp:   query.Build("", domain.Filters{Category: "shoes", SubCategory: "trail", Brand: "acme"}),
			page: 2,
			want: "brand=acme&category=shoes&page=2&subCategory=trail",
		},
		{
			name: "keyword overrides filters",
			fp:   query.Build("boots", domain.Filters{Category: "shoes"}),
			page: 1,
			want: "keyword=boots&page=1",
		},
		{
			name: "zero price bound is sent",
			fp:   query.Build("", domain.Filters{}.WithPriceRange(decimal.Zero, decimal.NewFromInt(50))),
			want: "price_max=50&price_min=0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.fp.Values(tt.page).Encode())
		})
	}
}

func TestFingerprint_IsZero(t *testing.T) {
	assert.True(t, query.Build(" ", domain.Filters{}).IsZero())
	assert.Equal(t, "all", query.Build("", domain.Filters{}).String())
	assert.False(t, query.Build("", domain.Filters{Brand: "x"}).IsZero())
}
