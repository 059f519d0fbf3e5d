package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/sun8-storefront/internal/domain/cart"
	"github.com/xenking/sun8-storefront/internal/domain/checkout"
)

const (
	createOrderSQL = `INSERT INTO orders (order_id, items, shipping, payment_method, subtotal, tax, total, placed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	listOrdersSQL = `SELECT order_id, items, shipping, payment_method, subtotal, tax, total, placed_at
		FROM orders ORDER BY seq`
)

var _ checkout.OrderLog = (*OrderJournal)(nil)

// OrderJournal records placed orders. Order ids are not unique: they are
// short random numbers, so rows are keyed by a sequence.
type OrderJournal struct {
	pool *pgxpool.Pool
}

// NewOrderJournal returns an OrderJournal that uses the given pool.
func NewOrderJournal(pool *pgxpool.Pool) *OrderJournal {
	return &OrderJournal{pool: pool}
}

// Record persists o. Items and shipping are serialized to JSONB.
func (j *OrderJournal) Record(ctx context.Context, o checkout.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}
	shippingJSON, err := json.Marshal(o.Shipping)
	if err != nil {
		return fmt.Errorf("marshaling shipping details: %w", err)
	}

	_, err = j.pool.Exec(ctx, createOrderSQL,
		o.ID, itemsJSON, shippingJSON, string(o.Method),
		o.Summary.Subtotal, o.Summary.Tax, o.Summary.Total, o.PlacedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// List returns every journaled order in insertion order.
func (j *OrderJournal) List(ctx context.Context) ([]checkout.Order, error) {
	rows, err := j.pool.Query(ctx, listOrdersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

func scanOrder(row pgx.CollectableRow) (checkout.Order, error) {
	var (
		o                       checkout.Order
		method                  string
		itemsJSON, shippingJSON []byte
		subtotal, tax, total    decimal.Decimal
	)
	err := row.Scan(&o.ID, &itemsJSON, &shippingJSON, &method, &subtotal, &tax, &total, &o.PlacedAt)
	if err != nil {
		return checkout.Order{}, fmt.Errorf("scanning order: %w", err)
	}

	var items []cart.Item
	if err := json.Unmarshal(itemsJSON, &items); err != nil {
		return checkout.Order{}, fmt.Errorf("decoding order items: %w", err)
	}
	if err := json.Unmarshal(shippingJSON, &o.Shipping); err != nil {
		return checkout.Order{}, fmt.Errorf("decoding shipping details: %w", err)
	}

	o.Items = items
	o.Method = checkout.PaymentMethod(method)
	o.Summary = checkout.Summary{
		Items:    cart.Count(items),
		Subtotal: subtotal,
		Shipping: checkout.ShippingCost,
		Tax:      tax,
		Total:    total,
	}
	return o, nil
}
