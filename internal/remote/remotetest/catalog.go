package remotetest

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/sparks/internal/domain"
)

var (
	demoCategories = []struct{ category, sub string }{
		{"shoes", "running"},
		{"shoes", "trail"},
		{"apparel", "shirts"},
		{"bags", "daypacks"},
	}
	demoBrands = []string{"acme", "zenith", "northwind"}
	demoColors = []string{"black", "red", "blue"}
	demoSizes  = []string{"S", "M", "L"}
)

// DemoCatalog builds n deterministic listings with ids "1".."n". Every
// product has two variants; every fifth product's second variant is out of
// stock.
func DemoCatalog(n int) []Listing {
	out := make([]Listing, 0, n)
	for i := 1; i <= n; i++ {
		cat := demoCategories[i%len(demoCategories)]
		id := domain.ID(strconv.Itoa(i))
		price := decimal.NewFromInt(int64(10 + i)).Add(decimal.RequireFromString("0.99"))

		second := 4
		if i%5 == 0 {
			second = 0
		}
		imageZero := 0

		p := domain.Product{
			ID:               id,
			Title:            fmt.Sprintf("%s %s #%d", demoBrands[i%len(demoBrands)], cat.sub, i),
			ShortDescription: fmt.Sprintf("Demo %s product", cat.category),
			Images: []domain.Image{
				{Image: fmt.Sprintf("/media/%d/main.jpg", i), Thumb: fmt.Sprintf("/media/%d/main_t.jpg", i)},
				{Image: fmt.Sprintf("/media/%d/alt.jpg", i), Thumb: fmt.Sprintf("/media/%d/alt_t.jpg", i), VariantID: domain.ID(fmt.Sprintf("%d02", i))},
			},
			Variants: domain.Variants{
				{
					ID:           domain.ID(fmt.Sprintf("%d01", i)),
					Code:         fmt.Sprintf("SKU-%d-A", i),
					Color:        demoColors[i%len(demoColors)],
					Size:         demoSizes[i%len(demoSizes)],
					Stock:        3 + i%3,
					SellingPrice: price,
					ImageIndex:   &imageZero,
				},
				{
					ID:           domain.ID(fmt.Sprintf("%d02", i)),
					Code:         fmt.Sprintf("SKU-%d-B", i),
					Color:        demoColors[(i+1)%len(demoColors)],
					Size:         demoSizes[(i+1)%len(demoSizes)],
					Stock:        second,
					SellingPrice: price.Add(decimal.NewFromInt(5)),
				},
			},
		}

		var related []domain.ID
		for _, r := range []int{i - 1, i + 1} {
			if r >= 1 && r <= n {
				related = append(related, domain.ID(strconv.Itoa(r)))
			}
		}

		out = append(out, Listing{
			Product:     p,
			Category:    cat.category,
			SubCategory: cat.sub,
			Brand:       demoBrands[i%len(demoBrands)],
			Related:     related,
		})
	}
	return out
}
