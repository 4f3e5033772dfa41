package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mkamel/storefront-core/internal/domain/order"
)

const (
	getOrderByIDSQL = `SELECT id, number, status, currency, subtotal, total, items,
		billing_address, shipping_address, payment_ref, created_at, updated_at
		FROM orders WHERE id = $1`

	updateOrderStatusSQL = `UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`

	insertHistorySQL = `INSERT INTO order_status_history (order_id, status, comment, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	listHistorySQL = `SELECT id, order_id, status, comment, actor_id, created_at
		FROM order_status_history WHERE order_id = $1 ORDER BY id`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// GetByID returns a single order with its line item and address snapshots
// decoded from their JSONB columns.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

// TransitionStatus sets the order's status and appends the history entry in
// one transaction, so the latest history row can never disagree with the
// order row.
func (r *OrderRepository) TransitionStatus(ctx context.Context, orderID string, status order.Status, entry order.HistoryEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	tag, err := tx.Exec(ctx, updateOrderStatusSQL, orderID, status, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("updating order %q status: %w", orderID, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}

	_, err = tx.Exec(ctx, insertHistorySQL,
		orderID, entry.Status, entry.Comment, entry.ActorID, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting history for order %q: %w", orderID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing status transition for order %q: %w", orderID, err)
	}
	return nil
}

// History returns all status history entries for the order, oldest first.
func (r *OrderRepository) History(ctx context.Context, orderID string) ([]order.HistoryEntry, error) {
	rows, err := r.pool.Query(ctx, listHistorySQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("listing history for order %q: %w", orderID, err)
	}
	return pgx.CollectRows(rows, scanHistoryEntry)
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o        order.Order
		items    []byte
		billing  []byte
		shipping []byte
	)
	err := row.Scan(
		&o.ID, &o.Number, &o.Status, &o.Currency, &o.Subtotal, &o.Total,
		&items, &billing, &shipping, &o.PaymentRef, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return o, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return o, fmt.Errorf("decoding order items: %w", err)
	}
	if err := json.Unmarshal(billing, &o.Billing); err != nil {
		return o, fmt.Errorf("decoding billing address: %w", err)
	}
	if err := json.Unmarshal(shipping, &o.Shipping); err != nil {
		return o, fmt.Errorf("decoding shipping address: %w", err)
	}
	return o, nil
}

func scanHistoryEntry(row pgx.CollectableRow) (order.HistoryEntry, error) {
	var e order.HistoryEntry
	err := row.Scan(&e.ID, &e.OrderID, &e.Status, &e.Comment, &e.ActorID, &e.CreatedAt)
	return e, err
}
