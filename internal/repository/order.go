package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/readifylabs/readify/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders (id, user_id, total, status, idempotency_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	insertOrderItemSQL = `INSERT INTO order_items (id, order_id, book_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5)`

	// Conditional decrement: affects zero rows when stock is insufficient,
	// which aborts the surrounding transaction.
	decrementStockSQL = `UPDATE books SET stock = stock - $2
		WHERE id = $1 AND stock >= $2`

	getOrderSQL = `SELECT id, user_id, total, status, idempotency_key, created_at
		FROM orders WHERE id = $1`

	getOrderByKeySQL = `SELECT id, user_id, total, status, idempotency_key, created_at
		FROM orders WHERE idempotency_key = $1`

	listOrdersByUserSQL = `SELECT id, user_id, total, status, idempotency_key, created_at
		FROM orders WHERE user_id = $1 ORDER BY created_at DESC`

	listOrdersSQL = `SELECT id, user_id, total, status, idempotency_key, created_at
		FROM orders ORDER BY created_at DESC`

	listOrderItemsSQL = `SELECT id, order_id, book_id, quantity, unit_price
		FROM order_items WHERE order_id = ANY($1)`

	setOrderStatusSQL = `UPDATE orders SET status = $2 WHERE id = $1
		RETURNING id, user_id, total, status, idempotency_key, created_at`

	deleteOrderSQL = `DELETE FROM orders WHERE id = $1`

	countOrdersSQL = `SELECT COUNT(*) FROM orders`

	revenueSumSQL = `SELECT COALESCE(SUM(total), 0) FROM orders`
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

// Create persists the order, its items, and the stock decrements in a
// single transaction, so no partial order is ever observable.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	_, err = tx.Exec(ctx, insertOrderSQL,
		o.ID, o.UserID, o.Total, o.Status, nullIfEmpty(o.IdempotencyKey), o.CreatedAt,
	)
	if err != nil {
		if pgErrCode(err) == pgUniqueViolation {
			return order.ErrDuplicateKey
		}
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	for _, item := range o.Items {
		tag, err := tx.Exec(ctx, decrementStockSQL, item.BookID, item.Quantity)
		if err != nil {
			return fmt.Errorf("decrementing stock for book %q: %w", item.BookID, err)
		}
		if tag.RowsAffected() == 0 {
			return &order.OutOfStockError{BookID: item.BookID}
		}

		_, err = tx.Exec(ctx, insertOrderItemSQL,
			item.ID, o.ID, item.BookID, item.Quantity, item.UnitPrice,
		)
		if err != nil {
			return fmt.Errorf("creating order item for book %q: %w", item.BookID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID returns a single order with its items.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
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

	orders := []order.Order{o}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// GetByIdempotencyKey returns the order created for a previous submission
// of the given checkout key.
func (r *OrderRepository) GetByIdempotencyKey(ctx context.Context, key string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByKeySQL, key)
	if err != nil {
		return nil, fmt.Errorf("getting order by key: %w", err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order by key: %w", err)
	}

	orders := []order.Order{o}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// ListByUser returns a user's orders, newest first, with items.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %q: %w", userID, err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %q: %w", userID, err)
	}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// List returns all orders, newest first, with items.
func (r *OrderRepository) List(ctx context.Context) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// SetStatus updates an order's status and returns the updated order.
func (r *OrderRepository) SetStatus(ctx context.Context, id string, status order.Status) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, setOrderStatusSQL, id, status)
	if err != nil {
		return nil, fmt.Errorf("updating status of order %q: %w", id, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("updating status of order %q: %w", id, err)
	}
	return &o, nil
}

// Delete removes an order and, via cascade, its items.
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteOrderSQL, id)
	if err != nil {
		return fmt.Errorf("deleting order %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// Count returns the total number of orders.
func (r *OrderRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, countOrdersSQL).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting orders: %w", err)
	}
	return n, nil
}

// RevenueSum returns the sum of Order.total across all orders.
func (r *OrderRepository) RevenueSum(ctx context.Context) (decimal.Decimal, error) {
	var sum decimal.Decimal
	if err := r.pool.QueryRow(ctx, revenueSumSQL).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("summing revenue: %w", err)
	}
	return sum, nil
}

// attachItems loads the items for every order in orders in one query.
func (r *OrderRepository) attachItems(ctx context.Context, orders []order.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, len(orders))
	idx := make(map[string]int, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		idx[orders[i].ID] = i
	}

	rows, err := r.pool.Query(ctx, listOrderItemsSQL, ids)
	if err != nil {
		return fmt.Errorf("listing order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item    order.Item
			orderID string
		)
		if err := rows.Scan(&item.ID, &orderID, &item.BookID, &item.Quantity, &item.UnitPrice); err != nil {
			return fmt.Errorf("scanning order item: %w", err)
		}
		i := idx[orderID]
		orders[i].Items = append(orders[i].Items, item)
	}
	return rows.Err()
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o   order.Order
		key *string
	)
	err := row.Scan(&o.ID, &o.UserID, &o.Total, &o.Status, &key, &o.CreatedAt)
	if key != nil {
		o.IdempotencyKey = *key
	}
	return o, err
}

// nullIfEmpty maps "" to NULL so the unique index on idempotency_key only
// applies to orders that actually carry a key.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
