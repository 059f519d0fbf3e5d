package shop

import (
	"context"

	"github.com/xenking/sun8-storefront/internal/domain/cart"
	"github.com/xenking/sun8-storefront/internal/domain/product"
	"github.com/xenking/sun8-storefront/internal/i18n"
)

// Topics published on the shop bus. Handlers run synchronously while the
// shop lock is held, so they must not call back into Shop.
const (
	// TopicCatalogChanged carries (context.Context, []product.Product).
	TopicCatalogChanged = "catalog:changed"
	// TopicProductDeleted carries (context.Context, string).
	TopicProductDeleted = "catalog:deleted"
	// TopicCartChanged carries (context.Context, []cart.Item).
	TopicCartChanged = "cart:changed"
	// TopicWishlistChanged carries (context.Context, []string).
	TopicWishlistChanged = "wishlist:changed"
	// TopicLanguageChanged carries (context.Context, i18n.Language).
	TopicLanguageChanged = "language:changed"
)

// Persister is the durable side of the shop state.
type Persister interface {
	LoadProducts(ctx context.Context) ([]product.Product, bool)
	LoadWishlist(ctx context.Context) ([]string, bool)
	LoadCart(ctx context.Context) ([]cart.Item, bool)
	HasProducts(ctx context.Context) bool
	SaveProducts(ctx context.Context, products []product.Product)
	SaveWishlist(ctx context.Context, ids []string)
	SaveCart(ctx context.Context, items []cart.Item)
}

func (s *Shop) subscribePersistence() error {
	subs := []struct {
		topic string
		fn    any
	}{
		{TopicCatalogChanged, func(ctx context.Context, products []product.Product) {
			s.store.SaveProducts(ctx, products)
		}},
		{TopicCartChanged, func(ctx context.Context, items []cart.Item) {
			s.store.SaveCart(ctx, items)
		}},
		{TopicWishlistChanged, func(ctx context.Context, ids []string) {
			s.store.SaveWishlist(ctx, ids)
		}},
	}
	for _, sub := range subs {
		if err := s.bus.Subscribe(sub.topic, sub.fn); err != nil {
			return err
		}
	}
	return nil
}

// OnLanguageChange registers fn to run after every language switch.
func (s *Shop) OnLanguageChange(fn func(ctx context.Context, lang i18n.Language)) error {
	return s.bus.Subscribe(TopicLanguageChanged, fn)
}

// OnProductDeleted registers fn to run after a product is deleted.
func (s *Shop) OnProductDeleted(fn func(ctx context.Context, id string)) error {
	return s.bus.Subscribe(TopicProductDeleted, fn)
}

func (s *Shop) publishCatalog(ctx context.Context) {
	s.dirty = true
	s.bus.Publish(TopicCatalogChanged, ctx, s.catalog.List())
}

func (s *Shop) publishCart(ctx context.Context) {
	s.bus.Publish(TopicCartChanged, ctx, s.cart.Items())
}

func (s *Shop) publishWishlist(ctx context.Context) {
	s.bus.Publish(TopicWishlistChanged, ctx, s.wishlist.IDs())
}
