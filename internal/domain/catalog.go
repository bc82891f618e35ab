package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PriceRange bounds a product search by selling price. Zero is a valid bound.
type PriceRange struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

// Validate reports whether the range is well-formed (0 <= min <= max).
func (r PriceRange) Validate() error {
	if r.Min.IsNegative() {
		return Invalid("filters.price_range", "minimum price must not be negative")
	}
	if r.Min.GreaterThan(r.Max) {
		return Errorf(EINVALID, "filters.price_range", "minimum price %s exceeds maximum %s", r.Min, r.Max)
	}
	return nil
}

// String renders "min-max".
func (r PriceRange) String() string {
	return fmt.Sprintf("%s-%s", r.Min.String(), r.Max.String())
}

// Filters narrows a catalog query. Empty slugs and a nil PriceRange mean
// "no constraint".
type Filters struct {
	Category    string      `json:"category,omitempty"`
	SubCategory string      `json:"subCategory,omitempty"`
	Brand       string      `json:"brand,omitempty"`
	PriceRange  *PriceRange `json:"priceRange,omitempty"`
}

// WithPriceRange returns a copy of f constrained to [min, max].
func (f Filters) WithPriceRange(min, max decimal.Decimal) Filters {
	f.PriceRange = &PriceRange{Min: min, Max: max}
	return f
}

// Validate checks the price range, if any.
func (f Filters) Validate() error {
	if f.PriceRange == nil {
		return nil
	}
	return f.PriceRange.Validate()
}

// IsZero reports whether no filter is set.
func (f Filters) IsZero() bool {
	return f.Category == "" && f.SubCategory == "" && f.Brand == "" && f.PriceRange == nil
}

// ProductPage is one page of list results.
type ProductPage struct {
	Products []Product `json:"products"`
}
