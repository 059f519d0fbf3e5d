package product

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// PlaceholderImage is used whenever a product carries no images.
const PlaceholderImage = "https://images.unsplash.com/photo-1594534475808-b18fc33b045e?q=80&w=800&auto=format&fit=crop"

// Category enumerates the sellable product families.
type Category string

const (
	CategoryWatches Category = "watches"
	CategoryJewelry Category = "jewelry"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	return c == CategoryWatches || c == CategoryJewelry
}

// Filter selects a category projection of the catalog. The zero value and
// FilterAll select every product.
type Filter string

// FilterAll matches every category.
const FilterAll Filter = "all"

// ParseFilter converts a query value into a Filter. Unknown values yield an error.
func ParseFilter(s string) (Filter, error) {
	switch s {
	case "", string(FilterAll):
		return FilterAll, nil
	case string(CategoryWatches), string(CategoryJewelry):
		return Filter(s), nil
	default:
		return "", errors.Errorf("unknown category %q", s)
	}
}

// Match reports whether p belongs to the filtered projection.
func (f Filter) Match(p Product) bool {
	if f == "" || f == FilterAll {
		return true
	}
	return string(p.Category) == string(f)
}

// Product represents a catalog item available for purchase.
type Product struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    Category        `json:"category"`
	Stock       int             `json:"stock"`
	Images      []string        `json:"images"`
	Features    []string        `json:"features"`
}

// Clone returns a deep copy so that callers can hold snapshots that are not
// affected by later edits to the catalog.
func (p Product) Clone() Product {
	out := p
	out.Images = append([]string(nil), p.Images...)
	out.Features = append([]string(nil), p.Features...)
	return out
}

// WithFallbackImage returns p with the placeholder image set when Images is empty.
func (p Product) WithFallbackImage() Product {
	if len(p.Images) == 0 {
		p.Images = []string{PlaceholderImage}
	}
	return p
}
