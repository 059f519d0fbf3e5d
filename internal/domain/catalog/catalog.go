// Package catalog holds the authoritative ordered product list.
package catalog

import (
	"github.com/xenking/sun8-storefront/internal/domain/product"
)

// Catalog is an ordered product list, newest first. It is not safe for
// concurrent use; the shop controller serializes access.
type Catalog struct {
	products []product.Product
}

// New creates a Catalog holding a copy of products in the given order.
func New(products []product.Product) *Catalog {
	c := &Catalog{}
	c.Replace(products)
	return c
}

// Replace swaps the whole product list, used when hydrating or reseeding.
// Products without images get the placeholder.
func (c *Catalog) Replace(products []product.Product) {
	c.products = make([]product.Product, len(products))
	for i, p := range products {
		c.products[i] = p.Clone().WithFallbackImage()
	}
}

// Add prepends p so that newly created products are displayed first.
// Id uniqueness is the caller's responsibility.
func (c *Catalog) Add(p product.Product) {
	c.products = append([]product.Product{p.Clone()}, c.products...)
}

// Update replaces the product with the same id. It reports false and leaves
// the catalog untouched when no such product exists.
func (c *Catalog) Update(p product.Product) bool {
	for i := range c.products {
		if c.products[i].ID == p.ID {
			c.products[i] = p.Clone()
			return true
		}
	}
	return false
}

// Delete removes the product with the given id and reports whether it existed.
func (c *Catalog) Delete(id string) bool {
	for i := range c.products {
		if c.products[i].ID == id {
			c.products = append(c.products[:i], c.products[i+1:]...)
			return true
		}
	}
	return false
}

// Get returns a copy of the product with the given id.
func (c *Catalog) Get(id string) (product.Product, bool) {
	for _, p := range c.products {
		if p.ID == id {
			return p.Clone(), true
		}
	}
	return product.Product{}, false
}

// Contains reports whether a product with the given id exists.
func (c *Catalog) Contains(id string) bool {
	_, ok := c.Get(id)
	return ok
}

// Len returns the number of products.
func (c *Catalog) Len() int {
	return len(c.products)
}

// List returns a copy of every product in display order.
func (c *Catalog) List() []product.Product {
	return c.Filter(product.FilterAll)
}

// Filter returns the products matching f in display order.
func (c *Catalog) Filter(f product.Filter) []product.Product {
	out := make([]product.Product, 0, len(c.products))
	for _, p := range c.products {
		if f.Match(p) {
			out = append(out, p.Clone())
		}
	}
	return out
}

// Resolve returns the live products whose ids are members of ids, in catalog
// order. Ids without a matching product are skipped.
func (c *Catalog) Resolve(ids []string) []product.Product {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	out := make([]product.Product, 0, len(ids))
	for _, p := range c.products {
		if _, ok := set[p.ID]; ok {
			out = append(out, p.Clone())
		}
	}
	return out
}
