// Package redis implements storage.Store on a Redis server so that several
// storefront processes can share one saved state.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/xenking/sun8-storefront/internal/domain/checkout"
	"github.com/xenking/sun8-storefront/internal/storage"
)

// OrdersKey is the list that journals placed orders.
const OrdersKey = "sun8_orders"

var (
	_ storage.Store     = (*Store)(nil)
	_ checkout.OrderLog = (*Store)(nil)
)

// Options configure the client.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// Store wraps a go-redis client.
type Store struct {
	client goredis.UniversalClient
}

// New connects to the server described by opts.
func New(opts Options) *Store {
	return NewWithClient(goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}))
}

// NewWithClient wraps an existing client.
func NewWithClient(client goredis.UniversalClient) *Store {
	return &Store{client: client}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("getting key %s from redis: %w", key, err)
	}
	return data, nil
}

// Put stores value without expiry. A server running out of maxmemory reports
// OOM, which maps to storage.ErrQuotaExceeded.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return wrapWriteErr(key, err)
	}
	return nil
}

// Record pushes the order onto OrdersKey.
func (s *Store) Record(ctx context.Context, o checkout.Order) error {
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshaling order: %w", err)
	}
	if err := s.client.RPush(ctx, OrdersKey, data).Err(); err != nil {
		return wrapWriteErr(OrdersKey, err)
	}
	return nil
}

func wrapWriteErr(key string, err error) error {
	if strings.HasPrefix(err.Error(), "OOM") {
		return errors.Wrapf(storage.ErrQuotaExceeded, "setting key %s in redis: %s", key, err)
	}
	return fmt.Errorf("setting key %s in redis: %w", key, err)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}
