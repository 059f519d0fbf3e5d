// Package selection implements toggle-based product id sets: the wishlist and
// the bounded comparison selection.
package selection

import (
	"slices"

	"github.com/go-faster/errors"
)

// CompareLimit is the maximum number of products that can be compared.
const CompareLimit = 3

// ErrCompareLimit is returned when adding to a full comparison selection.
var ErrCompareLimit = errors.New("compare selection is full")

// set is an insertion-ordered set of ids.
type set struct {
	ids []string
}

func (s *set) has(id string) bool {
	return slices.Contains(s.ids, id)
}

func (s *set) add(id string) {
	if !s.has(id) {
		s.ids = append(s.ids, id)
	}
}

func (s *set) remove(id string) bool {
	idx := slices.Index(s.ids, id)
	if idx < 0 {
		return false
	}
	s.ids = slices.Delete(s.ids, idx, idx+1)
	return true
}

func (s *set) list() []string {
	return slices.Clone(s.ids)
}

// Wishlist is a set of product ids with toggle semantics.
type Wishlist struct {
	set
}

// NewWishlist creates a wishlist from persisted ids, dropping duplicates and
// empty values.
func NewWishlist(ids []string) *Wishlist {
	w := &Wishlist{}
	for _, id := range ids {
		if id != "" {
			w.add(id)
		}
	}
	return w
}

// Toggle flips membership of id and reports whether it is now a member.
func (w *Wishlist) Toggle(id string) bool {
	if w.remove(id) {
		return false
	}
	w.add(id)
	return true
}

// Remove drops id and reports whether it was a member.
func (w *Wishlist) Remove(id string) bool {
	return w.remove(id)
}

// Has reports membership of id.
func (w *Wishlist) Has(id string) bool {
	return w.has(id)
}

// IDs returns the member ids in insertion order.
func (w *Wishlist) IDs() []string {
	return w.list()
}

// Len returns the number of members.
func (w *Wishlist) Len() int {
	return len(w.ids)
}

// Compare is an ordered selection of at most CompareLimit product ids.
type Compare struct {
	set
}

// NewCompare creates an empty comparison selection.
func NewCompare() *Compare {
	return &Compare{}
}

// Toggle removes id when selected, otherwise appends it. Appending to a full
// selection returns ErrCompareLimit and leaves the selection unchanged.
func (c *Compare) Toggle(id string) (bool, error) {
	if c.remove(id) {
		return false, nil
	}
	if len(c.ids) >= CompareLimit {
		return false, ErrCompareLimit
	}
	c.add(id)
	return true, nil
}

// Remove drops id and reports whether it was selected.
func (c *Compare) Remove(id string) bool {
	return c.remove(id)
}

// Clear empties the selection.
func (c *Compare) Clear() {
	c.ids = nil
}

// Has reports whether id is selected.
func (c *Compare) Has(id string) bool {
	return c.has(id)
}

// IDs returns the selected ids in selection order.
func (c *Compare) IDs() []string {
	return c.list()
}

// Len returns the number of selected ids.
func (c *Compare) Len() int {
	return len(c.ids)
}
