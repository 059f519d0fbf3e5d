// Package shop is the storefront controller. It owns the catalog, cart,
// wishlist and compare selection for a single shopper, serializes every
// mutation and echoes changes to persistence through an event bus.
package shop

import (
	"context"
	"sync"

	"github.com/asaskevich/EventBus"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/sun8-storefront/internal/domain/cart"
	"github.com/xenking/sun8-storefront/internal/domain/catalog"
	"github.com/xenking/sun8-storefront/internal/domain/checkout"
	"github.com/xenking/sun8-storefront/internal/domain/product"
	"github.com/xenking/sun8-storefront/internal/domain/selection"
	"github.com/xenking/sun8-storefront/internal/i18n"
)

// Options configure a Shop. Zero values select defaults.
type Options struct {
	Language i18n.Language
	Checkout checkout.Options
	Bus      EventBus.Bus
	Logger   *zap.Logger
}

// Shop is safe for concurrent use.
type Shop struct {
	mu sync.Mutex

	bundle *i18n.Bundle
	store  Persister
	bus    EventBus.Bus
	lg     *zap.Logger

	lang     i18n.Language
	catalog  *catalog.Catalog
	cart     *cart.Cart
	wishlist *selection.Wishlist
	compare  *selection.Compare

	// dirty is set once the catalog has been mutated in memory, even if the
	// corresponding save was dropped.
	dirty    bool
	category product.Filter
	cartOpen bool
	selected string

	checkoutOpts checkout.Options
	checkout     *checkout.Machine
}

// New hydrates a Shop from store. A missing or malformed catalog falls back to
// the localized defaults for the configured language.
func New(ctx context.Context, bundle *i18n.Bundle, store Persister, opts Options) (*Shop, error) {
	s := &Shop{
		bundle:       bundle,
		store:        store,
		bus:          opts.Bus,
		lg:           opts.Logger,
		lang:         opts.Language,
		category:     product.FilterAll,
		compare:      selection.NewCompare(),
		checkoutOpts: opts.Checkout,
	}
	if s.bus == nil {
		s.bus = EventBus.New()
	}
	if s.lg == nil {
		s.lg = zap.NewNop()
	}
	if s.lang == "" {
		s.lang = i18n.Default
	}
	if !s.lang.Valid() {
		return nil, errors.Wrapf(i18n.ErrUnsupportedLanguage, "%q", s.lang)
	}
	if s.checkoutOpts.Logger == nil {
		s.checkoutOpts.Logger = s.lg.Named("checkout")
	}

	products, ok := store.LoadProducts(ctx)
	if !ok {
		products = bundle.Products(s.lang)
	}
	s.catalog = catalog.New(products)

	ids, _ := store.LoadWishlist(ctx)
	s.wishlist = selection.NewWishlist(ids)

	items, _ := store.LoadCart(ctx)
	s.cart = cart.New(items)

	if err := s.subscribePersistence(); err != nil {
		return nil, errors.Wrap(err, "subscribe persistence")
	}

	s.lg.Info("Shop hydrated",
		zap.String("language", s.lang.String()),
		zap.Bool("persisted_catalog", ok),
		zap.Int("products", s.catalog.Len()),
		zap.Int("wishlist", s.wishlist.Len()),
		zap.Int("cart_items", s.cart.Len()),
	)
	return s, nil
}

// Bundle returns the translation bundle.
func (s *Shop) Bundle() *i18n.Bundle { return s.bundle }

// Language returns the active language.
func (s *Shop) Language() i18n.Language {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lang
}

// T translates key in the active language.
func (s *Shop) T(key string, vars ...i18n.Vars) string {
	return s.bundle.T(s.Language(), key, vars...)
}

// SetLanguage switches the active language. While no catalog has ever been
// saved and the catalog is untouched, the catalog is reseeded from the
// localized defaults.
func (s *Shop) SetLanguage(ctx context.Context, lang i18n.Language) error {
	if !lang.Valid() {
		return errors.Wrapf(i18n.ErrUnsupportedLanguage, "%q", lang)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if lang == s.lang {
		return nil
	}
	s.lang = lang
	if !s.dirty && !s.store.HasProducts(ctx) {
		s.catalog.Replace(s.bundle.Products(lang))
	}
	s.bus.Publish(TopicLanguageChanged, ctx, lang)
	return nil
}

// Products returns the whole catalog, newest first.
func (s *Shop) Products() []product.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.List()
}

// Product returns a single catalog entry.
func (s *Shop) Product(id string) (product.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.catalog.Get(id)
	if !ok {
		return product.Product{}, product.ErrNotFound
	}
	return p, nil
}

// HasProduct reports whether id is in the catalog.
func (s *Shop) HasProduct(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.Contains(id)
}

// Category returns the active category filter.
func (s *Shop) Category() product.Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.category
}

// SetCategory changes the active category filter.
func (s *Shop) SetCategory(f product.Filter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.category = f
}

// Filter projects the catalog onto f.
func (s *Shop) Filter(f product.Filter) []product.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.Filter(f)
}

// Visible projects the catalog onto the active category.
func (s *Shop) Visible() []product.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.Filter(s.category)
}

// SelectProduct opens the detail view of id.
func (s *Shop) SelectProduct(id string) (product.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.catalog.Get(id)
	if !ok {
		return product.Product{}, product.ErrNotFound
	}
	s.selected = id
	return p, nil
}

// Selected returns the product whose detail view is open.
func (s *Shop) Selected() (product.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == "" {
		return product.Product{}, false
	}
	return s.catalog.Get(s.selected)
}

// CloseProduct closes the detail view.
func (s *Shop) CloseProduct() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = ""
}

// AddProduct prepends p to the catalog.
func (s *Shop) AddProduct(ctx context.Context, p product.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog.Add(p.WithFallbackImage())
	s.publishCatalog(ctx)
}

// UpdateProduct replaces the entry with the same id. Absent ids are a no-op
// and report false.
func (s *Shop) UpdateProduct(ctx context.Context, p product.Product) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.catalog.Update(p.WithFallbackImage()) {
		return false
	}
	s.publishCatalog(ctx)
	return true
}

// DeleteProduct removes id from the catalog and cascades the removal to the
// cart, the wishlist and the compare selection.
func (s *Shop) DeleteProduct(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.catalog.Delete(id) {
		return false
	}
	s.publishCatalog(ctx)
	if s.cart.Remove(id) {
		s.publishCart(ctx)
	}
	if s.wishlist.Remove(id) {
		s.publishWishlist(ctx)
	}
	s.compare.Remove(id)
	if s.selected == id {
		s.selected = ""
	}
	s.bus.Publish(TopicProductDeleted, ctx, id)
	return true
}

// CartView is the cart as displayed.
type CartView struct {
	Items    []cart.Item     `json:"items"`
	Count    int             `json:"count"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Open     bool            `json:"open"`
}

// Cart returns the current cart.
func (s *Shop) Cart() CartView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return CartView{
		Items:    s.cart.Items(),
		Count:    s.cart.Count(),
		Subtotal: s.cart.Subtotal(),
		Open:     s.cartOpen,
	}
}

// SetCartOpen toggles the cart view.
func (s *Shop) SetCartOpen(open bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cartOpen = open
}

// AddToCart adds one unit of the catalog product id and opens the cart view.
func (s *Shop) AddToCart(ctx context.Context, id string) (cart.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addToCart(ctx, id)
}

func (s *Shop) addToCart(ctx context.Context, id string) (cart.Item, error) {
	p, ok := s.catalog.Get(id)
	if !ok {
		return cart.Item{}, product.ErrNotFound
	}
	it := s.cart.Add(p)
	s.cartOpen = true
	s.publishCart(ctx)
	return it, nil
}

// UpdateQty applies delta to the cart item, never going below one. It reports
// false when id is not in the cart.
func (s *Shop) UpdateQty(ctx context.Context, id string, delta int) (cart.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.cart.UpdateQty(id, delta)
	if ok {
		s.publishCart(ctx)
	}
	return it, ok
}

// RemoveFromCart deletes the item outright.
func (s *Shop) RemoveFromCart(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.cart.Remove(id) {
		return false
	}
	s.publishCart(ctx)
	return true
}

// CartItems implements checkout.Cart.
func (s *Shop) CartItems() []cart.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Items()
}

// ClearCart implements checkout.Cart.
func (s *Shop) ClearCart(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.Clear()
	s.publishCart(ctx)
}

// Wishlist resolves the wishlist against the live catalog.
func (s *Shop) Wishlist() []product.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.Resolve(s.wishlist.IDs())
}

// WishlistIDs returns the raw wishlist membership.
func (s *Shop) WishlistIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wishlist.IDs()
}

// ToggleWishlist flips membership of id and reports whether it is now a
// member. Unknown ids can be removed but not added.
func (s *Shop) ToggleWishlist(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.wishlist.Has(id) && !s.catalog.Contains(id) {
		return false, product.ErrNotFound
	}
	in := s.wishlist.Toggle(id)
	s.publishWishlist(ctx)
	return in, nil
}

// MoveToCart adds id to the cart and then drops it from the wishlist. The cart
// write is published first so a lost wishlist write never loses the item.
func (s *Shop) MoveToCart(ctx context.Context, id string) (cart.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, err := s.addToCart(ctx, id)
	if err != nil {
		return cart.Item{}, err
	}
	if s.wishlist.Remove(id) {
		s.publishWishlist(ctx)
	}
	return it, nil
}

// Compare resolves the compare selection against the live catalog.
func (s *Shop) Compare() []product.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.Resolve(s.compare.IDs())
}

// CompareIDs returns the compare selection in insertion order.
func (s *Shop) CompareIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.compare.IDs()
}

// ToggleCompare removes id when selected and otherwise appends it. Adding to
// a full selection returns selection.ErrCompareLimit and changes nothing.
func (s *Shop) ToggleCompare(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.compare.Has(id) && !s.catalog.Contains(id) {
		return false, product.ErrNotFound
	}
	return s.compare.Toggle(id)
}

// RemoveFromCompare drops id from the compare selection.
func (s *Shop) RemoveFromCompare(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.compare.Remove(id)
}

// ClearCompare empties the compare selection.
func (s *Shop) ClearCompare() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.compare.Clear()
}

// StartCheckout closes the cart view and begins a fresh checkout session.
func (s *Shop) StartCheckout() (*checkout.Machine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cart.Len() == 0 {
		return nil, checkout.ErrEmptyCart
	}
	s.cartOpen = false
	s.checkout = checkout.NewMachine(s, s.checkoutOpts)
	return s.checkout, nil
}

// Checkout returns the active checkout session, if any.
func (s *Shop) Checkout() (*checkout.Machine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkout, s.checkout != nil
}

// CloseCheckout ends the checkout session and returns to browsing.
func (s *Shop) CloseCheckout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkout = nil
}
