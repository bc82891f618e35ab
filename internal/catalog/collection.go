package catalog

import "github.com/dukerupert/sparks/internal/domain"

// Collection is an insertion-ordered set of products keyed by id.
// The zero value is an empty collection. Collections are immutable: Merge
// returns a new one.
type Collection struct {
	ids  []domain.ID
	byID map[domain.ID]domain.Product
}

// Len returns the number of distinct products.
func (c Collection) Len() int {
	return len(c.ids)
}

// Get returns the product with id.
func (c Collection) Get(id domain.ID) (domain.Product, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// Contains reports whether id has been seen.
func (c Collection) Contains(id domain.ID) bool {
	_, ok := c.byID[id]
	return ok
}

// IDs returns ids in first-seen order.
func (c Collection) IDs() []domain.ID {
	return append([]domain.ID(nil), c.ids...)
}

// Products returns the products in first-seen order.
func (c Collection) Products() []domain.Product {
	out := make([]domain.Product, len(c.ids))
	for i, id := range c.ids {
		out[i] = c.byID[id]
	}
	return out
}

// Merge returns the union of existing and incoming. An id already present
// (in existing or earlier in incoming) keeps its first entry; new ids are
// appended in arrival order. grew is true iff the result is strictly larger
// than existing. existing is not modified.
func Merge(existing Collection, incoming []domain.Product) (merged Collection, grew bool) {
	merged = Collection{
		ids:  make([]domain.ID, len(existing.ids), len(existing.ids)+len(incoming)),
		byID: make(map[domain.ID]domain.Product, len(existing.ids)+len(incoming)),
	}
	copy(merged.ids, existing.ids)
	for id, p := range existing.byID {
		merged.byID[id] = p
	}

	for _, p := range incoming {
		if _, seen := merged.byID[p.ID]; seen {
			continue
		}
		merged.byID[p.ID] = p
		merged.ids = append(merged.ids, p.ID)
	}

	return merged, merged.Len() > existing.Len()
}
