// Package order implements the checkout workflow: converting a cart
// snapshot into a durable order exactly once, and the administrative
// status lifecycle.
package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status is the administrative state of an order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = errors.New("order not found")

// ErrDuplicateKey is returned by Create when the idempotency key is already
// bound to an existing order.
var ErrDuplicateKey = errors.New("duplicate idempotency key")

// Order is the durable record of a completed checkout. Only Status is
// mutable after creation, and only via admin action. Any status may move to
// any other status.
type Order struct {
	ID             string
	UserID         string
	Items          []Item
	Total          decimal.Decimal
	Status         Status
	IdempotencyKey string
	CreatedAt      time.Time
}

// Item is a single order line. UnitPrice is the book's price captured at
// purchase time, independent of later catalog edits.
type Item struct {
	ID        string          `json:"id"`
	BookID    string          `json:"bookId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// Repository defines persistence operations for orders.
//
// Create must persist the order and all of its items, and decrement book
// stock, inside a single transaction: partial state must never be
// observable to readers. It returns *OutOfStockError when any line's stock
// is insufficient and ErrDuplicateKey when the idempotency key is taken.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	List(ctx context.Context) ([]Order, error)
	SetStatus(ctx context.Context, id string, status Status) (*Order, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
	RevenueSum(ctx context.Context) (decimal.Decimal, error)
}
