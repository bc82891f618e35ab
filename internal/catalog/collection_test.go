package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dukerupert/sparks/internal/catalog"
	"github.com/dukerupert/sparks/internal/domain"
)

func products(ids ...string) []domain.Product {
	out := make([]domain.Product, len(ids))
	for i, id := range ids {
		out[i] = domain.Product{ID: domain.ID(id), Title: "p" + id}
	}
	return out
}

func ids(c catalog.Collection) []string {
	var out []string
	for _, id := range c.IDs() {
		out = append(out, id.String())
	}
	return out
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		incoming []string
		want     []string
		grew     bool
	}{
		{name: "empty into empty", want: nil, grew: false},
		{name: "first page", incoming: []string{"1", "2", "3"}, want: []string{"1", "2", "3"}, grew: true},
		{name: "server overlap", existing: []string{"1", "2", "3"}, incoming: []string{"3", "4"}, want: []string{"1", "2", "3", "4"}, grew: true},
		{name: "all seen", existing: []string{"1", "2", "3"}, incoming: []string{"1", "2", "3"}, want: []string{"1", "2", "3"}, grew: false},
		{name: "duplicates within page", incoming: []string{"5", "5", "6", "5"}, want: []string{"5", "6"}, grew: true},
		{name: "empty page", existing: []string{"1"}, want: []string{"1"}, grew: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			existing, _ := catalog.Merge(catalog.Collection{}, products(tt.existing...))

			merged, grew := catalog.Merge(existing, products(tt.incoming...))

			assert.Equal(t, tt.want, ids(merged))
			assert.Equal(t, tt.grew, grew)
		})
	}
}

func TestMerge_FirstSeenWins(t *testing.T) {
	existing, _ := catalog.Merge(catalog.Collection{}, []domain.Product{{ID: "1", Title: "original"}})

	merged, grew := catalog.Merge(existing, []domain.Product{{ID: "1", Title: "replacement"}})

	assert.False(t, grew)
	p, ok := merged.Get("1")
	assert.True(t, ok)
	assert.Equal(t, "original", p.Title)
}

func TestMerge_DoesNotModifyExisting(t *testing.T) {
	existing, _ := catalog.Merge(catalog.Collection{}, products("1", "2"))

	_, _ = catalog.Merge(existing, products("3"))

	assert.Equal(t, []string{"1", "2"}, ids(existing))
	assert.False(t, existing.Contains("3"))
}

func TestMerge_NoDuplicatesAcrossManyPages(t *testing.T) {
	pages := [][]string{{"1", "2", "3"}, {"3", "4", "5"}, {"2", "6"}, {"6", "6", "7"}, {"1"}}

	var c catalog.Collection
	for _, page := range pages {
		c, _ = catalog.Merge(c, products(page...))
	}

	assert.Equal(t, []string{"1", "2", "3", "4", "5", "6", "7"}, ids(c))
	assert.Len(t, c.Products(), c.Len())
}
