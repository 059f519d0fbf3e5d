// Package persist maps the storefront entities onto storage keys. It never
// fails the caller: malformed values load as absent and quota failures on
// save are logged and dropped, so in-memory state stays authoritative.
package persist

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/sun8-storefront/internal/domain/cart"
	"github.com/xenking/sun8-storefront/internal/domain/product"
	"github.com/xenking/sun8-storefront/internal/storage"
)

// Storage keys.
const (
	KeyProducts = "sun8_products"
	KeyWishlist = "sun8_wishlist"
	KeyCart     = "sun8_cart"
)

// Store is the typed persistence layer.
type Store struct {
	kv storage.Store
	lg *zap.Logger
}

// New wraps kv. A nil logger disables logging.
func New(kv storage.Store, lg *zap.Logger) *Store {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Store{kv: kv, lg: lg}
}

// LoadProducts returns the saved catalog. ok is false when nothing usable is
// stored.
func (s *Store) LoadProducts(ctx context.Context) (products []product.Product, ok bool) {
	ok = s.load(ctx, KeyProducts, &products)
	return products, ok
}

// LoadWishlist returns the saved wishlist ids.
func (s *Store) LoadWishlist(ctx context.Context) (ids []string, ok bool) {
	ok = s.load(ctx, KeyWishlist, &ids)
	return ids, ok
}

// LoadCart returns the saved cart items.
func (s *Store) LoadCart(ctx context.Context) (items []cart.Item, ok bool) {
	ok = s.load(ctx, KeyCart, &items)
	return items, ok
}

// HasProducts reports whether a catalog has ever been saved.
func (s *Store) HasProducts(ctx context.Context) bool {
	_, err := s.kv.Get(ctx, KeyProducts)
	return err == nil
}

// SaveProducts writes the catalog.
func (s *Store) SaveProducts(ctx context.Context, products []product.Product) {
	if products == nil {
		products = []product.Product{}
	}
	s.save(ctx, KeyProducts, products)
}

// SaveWishlist writes the wishlist ids.
func (s *Store) SaveWishlist(ctx context.Context, ids []string) {
	if ids == nil {
		ids = []string{}
	}
	s.save(ctx, KeyWishlist, ids)
}

// SaveCart writes the cart items.
func (s *Store) SaveCart(ctx context.Context, items []cart.Item) {
	if items == nil {
		items = []cart.Item{}
	}
	s.save(ctx, KeyCart, items)
}

func (s *Store) load(ctx context.Context, key string, v any) bool {
	data, err := s.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.lg.Warn("Failed to read stored value", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		s.lg.Warn("Discarding malformed stored value", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (s *Store) save(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.lg.Error("Failed to encode value", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.kv.Put(ctx, key, data); err != nil {
		if errors.Is(err, storage.ErrQuotaExceeded) {
			s.lg.Warn("Storage quota exceeded, keeping in-memory state only",
				zap.String("key", key), zap.Int("bytes", len(data)), zap.Error(err))
			return
		}
		s.lg.Error("Failed to save value", zap.String("key", key), zap.Error(err))
	}
}
