// Package boltdb implements storage.Store on an embedded bbolt file, the
// default durable backend for a single local instance.
package boltdb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/xenking/sun8-storefront/internal/domain/checkout"
	"github.com/xenking/sun8-storefront/internal/storage"
)

var (
	entriesBucket = []byte("storefront")
	ordersBucket  = []byte("orders")
)

var (
	_ storage.Store     = (*Store)(nil)
	_ checkout.OrderLog = (*Store)(nil)
)

// Store keeps entries in a single bucket of a bbolt database.
type Store struct {
	db *bolt.DB
}

// Open opens or creates the database file at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bolt database %q: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{entriesBucket, ordersBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("creating bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Get returns a copy of the stored value; bbolt memory is only valid inside
// the transaction.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(entriesBucket).Get([]byte(key))
		if v == nil {
			return storage.ErrNotFound
		}
		out = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Put(_ context.Context, key string, value []byte) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(entriesBucket).Put([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("putting %q: %w", key, err)
	}
	return nil
}

// Record appends the order to the orders bucket keyed by placement time.
func (s *Store) Record(_ context.Context, o checkout.Order) error {
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshaling order: %w", err)
	}
	key := []byte(o.PlacedAt.UTC().Format(time.RFC3339Nano) + "/" + o.ID)

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(ordersBucket).Put(key, data)
	})
	if err != nil {
		return fmt.Errorf("recording order %q: %w", o.ID, err)
	}
	return nil
}

// Orders returns every journaled order in placement order.
func (s *Store) Orders(_ context.Context) ([]checkout.Order, error) {
	var out []checkout.Order
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(ordersBucket).ForEach(func(_, v []byte) error {
			var o checkout.Order
			if err := json.Unmarshal(v, &o); err != nil {
				return fmt.Errorf("decoding order: %w", err)
			}
			out = append(out, o)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Ping verifies the database is still open.
func (s *Store) Ping(_ context.Context) error {
	return s.db.View(func(*bolt.Tx) error { return nil })
}

func (s *Store) Close() error {
	return s.db.Close()
}
