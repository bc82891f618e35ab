// Package query turns search text and filters into a canonical, comparable
// fingerprint and renders it as a remote list-products query string.
package query

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/dukerupert/sparks/internal/domain"
)

// domainFingerprint versions the canonical encoding.
const domainFingerprint = "sparks/query/v1"

// Query string parameter names understood by the remote service.
const (
	ParamKeyword     = "keyword"
	ParamCategory    = "category"
	ParamSubCategory = "subCategory"
	ParamBrand       = "brand"
	ParamPriceMin    = "price_min"
	ParamPriceMax    = "price_max"
	ParamPage        = "page"
)

// Fingerprint is the canonical form of a search. Two fingerprints built from
// equal inputs compare equal with ==.
type Fingerprint struct {
	search      string
	category    string
	subCategory string
	brand       string
	hasPrice    bool
	priceMin    string
	priceMax    string
}

// Build canonicalises searchText and filters. Text is NFC-normalised and
// trimmed; prices are rendered in their shortest decimal form so 10 and
// 10.00 are the same bound. An absent price range differs from [0, 0].
func Build(searchText string, filters domain.Filters) Fingerprint {
	fp := Fingerprint{
		search:      canonicalText(searchText),
		category:    canonicalText(filters.Category),
		subCategory: canonicalText(filters.SubCategory),
		brand:       canonicalText(filters.Brand),
	}
	if filters.PriceRange != nil {
		fp.hasPrice = true
		fp.priceMin = filters.PriceRange.Min.String()
		fp.priceMax = filters.PriceRange.Max.String()
	}
	return fp
}

func canonicalText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// Search returns the normalised search text.
func (f Fingerprint) Search() string { return f.search }

// HasPriceRange reports whether a price bound is part of the query.
func (f Fingerprint) HasPriceRange() bool { return f.hasPrice }

// IsZero reports whether the fingerprint carries no text and no filters.
func (f Fingerprint) IsZero() bool { return f == Fingerprint{} }

// Values renders the query string for page. When search text is present
// only keyword is sent and structured filters are left to the server.
func (f Fingerprint) Values(page int) url.Values {
	v := url.Values{}
	if f.search != "" {
		v.Set(ParamKeyword, f.search)
	} else {
		setIf(v, ParamCategory, f.category)
		setIf(v, ParamSubCategory, f.subCategory)
		setIf(v, ParamBrand, f.brand)
		if f.hasPrice {
			v.Set(ParamPriceMin, f.priceMin)
			v.Set(ParamPriceMax, f.priceMax)
		}
	}
	if page > 0 {
		v.Set(ParamPage, strconv.Itoa(page))
	}
	return v
}

func setIf(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}

// Key is a stable hex digest of the fingerprint, used for logging and
// cache keys.
func (f Fingerprint) Key() string {
	h := sha256.New()
	h.Write([]byte(domainFingerprint))
	h.Write([]byte{0x00})
	h.Write(f.canonical())
	return hex.EncodeToString(h.Sum(nil))
}

// canonical length-prefixes every field so no two distinct fingerprints
// share an encoding.
func (f Fingerprint) canonical() []byte {
	var b strings.Builder
	for _, field := range []string{f.search, f.category, f.subCategory, f.brand, strconv.FormatBool(f.hasPrice), f.priceMin, f.priceMax} {
		b.WriteString(strconv.Itoa(len(field)))
		b.WriteByte(':')
		b.WriteString(field)
	}
	return []byte(b.String())
}

// String is a short human-readable form for logs.
func (f Fingerprint) String() string {
	if f.IsZero() {
		return "all"
	}
	return f.Key()[:12]
}
