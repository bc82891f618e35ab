package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CATALOG DOMAIN TYPES
// =============================================================================

// ID is an opaque identity assigned by the remote service.
// The service may encode ids as JSON numbers or strings; both decode to the
// same value.
type ID string

// UnmarshalJSON accepts a JSON string or number.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// String implements fmt.Stringer.
func (id ID) String() string { return string(id) }

// Product is a catalog entry as returned by the remote service.
type Product struct {
	ID               ID       `json:"id"`
	Title            string   `json:"title"`
	ShortDescription string   `json:"short_desc"`
	Images           []Image  `json:"images"`
	Variants         Variants `json:"variants"`
}

// Image illustrates a product, optionally a single variant of it.
type Image struct {
	Image     string `json:"image,omitempty"`
	Thumb     string `json:"thumb,omitempty"`
	VariantID ID     `json:"variant_id,omitempty"`
}

// Variant is a purchasable color/size combination of a product.
type Variant struct {
	ID           ID              `json:"id"`
	Code         string          `json:"code,omitempty"`
	Color        string          `json:"color"`
	Size         string          `json:"size"`
	Stock        int             `json:"stock"`
	SellingPrice decimal.Decimal `json:"selling_price"`

	// ImageIndex points into the owning product's Images. Nil when the
	// service did not send one.
	ImageIndex *int `json:"image,omitempty"`
}

// Clone returns a copy that shares no slices or pointers with p.
func (p Product) Clone() Product {
	out := p
	if p.Images != nil {
		out.Images = append([]Image(nil), p.Images...)
	}
	if p.Variants != nil {
		out.Variants = make(Variants, len(p.Variants))
		for i, v := range p.Variants {
			if v.ImageIndex != nil {
				idx := *v.ImageIndex
				v.ImageIndex = &idx
			}
			out.Variants[i] = v
		}
	}
	return out
}

// Label renders "size - color", or whichever of the two is present.
func (v Variant) Label() string {
	switch {
	case v.Size != "" && v.Color != "":
		return v.Size + " - " + v.Color
	case v.Size != "":
		return v.Size
	default:
		return v.Color
	}
}

// InStock reports whether at least one unit is available.
func (v Variant) InStock() bool {
	return v.Stock > 0
}

// Variants decodes from a JSON array or, as some cart payloads send it, a
// single variant object.
type Variants []Variant

// UnmarshalJSON accepts an array, an object or null.
func (vs *Variants) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*vs = nil
		return nil
	case data[0] == '{':
		var v Variant
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*vs = Variants{v}
		return nil
	default:
		var list []Variant
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*vs = list
		return nil
	}
}

// Variant returns the variant with the given id.
func (p Product) Variant(id ID) (Variant, bool) {
	for _, v := range p.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return Variant{}, false
}

// DefaultVariant returns the first variant, the one preselected on display.
func (p Product) DefaultVariant() (Variant, bool) {
	if len(p.Variants) == 0 {
		return Variant{}, false
	}
	return p.Variants[0], true
}

// VariantFor finds the variant matching a cart line's color and size.
// "N/A" placeholders match empty attributes.
func (p Product) VariantFor(color, size string) (Variant, bool) {
	for _, v := range p.Variants {
		if sameAttr(v.Color, color) && sameAttr(v.Size, size) {
			return v, true
		}
	}
	return Variant{}, false
}

// ImageIndexFor resolves which image illustrates v.
// An explicit in-range index wins, then the first image tagged with the
// variant id, then the first image.
func (p Product) ImageIndexFor(v Variant) int {
	if v.ImageIndex != nil && *v.ImageIndex >= 0 && *v.ImageIndex < len(p.Images) {
		return *v.ImageIndex
	}
	if v.ID != "" {
		for i, img := range p.Images {
			if img.VariantID == v.ID {
				return i
			}
		}
	}
	return 0
}

// NotApplicable is sent for a missing color or size.
const NotApplicable = "N/A"

// AttrOrNA returns s, or NotApplicable when s is blank.
func AttrOrNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return NotApplicable
	}
	return s
}

func sameAttr(a, b string) bool {
	return AttrOrNA(a) == AttrOrNA(b)
}
