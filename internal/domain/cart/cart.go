// Package cart implements the shopping bag: a keyed collection of product
// snapshots with a quantity floor of one.
package cart

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/sun8-storefront/internal/domain/product"
)

// MinQty is the lowest quantity an item can be clamped to.
const MinQty = 1

// Item is a product snapshot taken when it was first added, plus a quantity.
// Later catalog edits do not change items already in the cart.
type Item struct {
	product.Product
	Qty int `json:"qty"`
}

// LineTotal returns price multiplied by quantity.
func (i Item) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Qty)))
}

// Cart holds items in insertion order. It is not safe for concurrent use.
type Cart struct {
	items []Item
}

// New creates a cart from previously persisted items. Items with a quantity
// below MinQty are clamped and duplicate ids are merged.
func New(items []Item) *Cart {
	c := &Cart{}
	for _, it := range items {
		if it.Qty < MinQty {
			it.Qty = MinQty
		}
		if idx := c.index(it.ID); idx >= 0 {
			c.items[idx].Qty += it.Qty
			continue
		}
		c.items = append(c.items, Item{Product: it.Product.Clone(), Qty: it.Qty})
	}
	return c
}

func (c *Cart) index(id string) int {
	for i := range c.items {
		if c.items[i].ID == id {
			return i
		}
	}
	return -1
}

// Add increments the quantity of an existing item or inserts a new item with
// quantity one, snapshotting the product's current fields.
func (c *Cart) Add(p product.Product) Item {
	if idx := c.index(p.ID); idx >= 0 {
		c.items[idx].Qty++
		return c.items[idx]
	}
	it := Item{Product: p.Clone(), Qty: MinQty}
	c.items = append(c.items, it)
	return it
}

// UpdateQty applies delta to the item quantity, clamping at MinQty. It
// reports false when the id is not in the cart.
func (c *Cart) UpdateQty(id string, delta int) (Item, bool) {
	idx := c.index(id)
	if idx < 0 {
		return Item{}, false
	}
	qty := c.items[idx].Qty + delta
	if qty < MinQty {
		qty = MinQty
	}
	c.items[idx].Qty = qty
	return c.items[idx], true
}

// Remove deletes the item regardless of quantity and reports whether it existed.
func (c *Cart) Remove(id string) bool {
	idx := c.index(id)
	if idx < 0 {
		return false
	}
	c.items = append(c.items[:idx], c.items[idx+1:]...)
	return true
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.items = nil
}

// Items returns a copy of the items in insertion order.
func (c *Cart) Items() []Item {
	out := make([]Item, len(c.items))
	for i, it := range c.items {
		out[i] = Item{Product: it.Product.Clone(), Qty: it.Qty}
	}
	return out
}

// Len returns the number of distinct items.
func (c *Cart) Len() int {
	return len(c.items)
}

// Count returns the sum of quantities across all items.
func (c *Cart) Count() int {
	return Count(c.items)
}

// Subtotal returns the sum of price times quantity across all items.
func (c *Cart) Subtotal() decimal.Decimal {
	return Subtotal(c.items)
}

// Count returns the sum of quantities of items.
func Count(items []Item) int {
	total := 0
	for _, it := range items {
		total += it.Qty
	}
	return total
}

// Subtotal returns the sum of price times quantity of items.
func Subtotal(items []Item) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.LineTotal())
	}
	return sum
}
