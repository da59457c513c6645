package order

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/readifylabs/readify/internal/domain/auth"
	"github.com/readifylabs/readify/internal/domain/book"
)

// TaxRate is the fixed sales tax applied to every checkout.
var TaxRate = decimal.RequireFromString("0.1")

// Sizing for the idempotency-key bloom filter. The filter is a fast path
// only; the unique column on orders is authoritative.
const (
	bloomCapacity = 1_000_000
	bloomFPR      = 0.001
)

// ErrUnauthenticated is returned when checkout is attempted without a
// verified identity.
var ErrUnauthenticated = errors.New("authentication required")

// ErrEmptyItems is returned when a checkout carries no line items.
var ErrEmptyItems = errors.New("items required")

// BookNotFoundError indicates a line references a book that does not exist.
type BookNotFoundError struct {
	BookID string
}

func (e *BookNotFoundError) Error() string {
	return fmt.Sprintf("book %s not found", e.BookID)
}

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	BookID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for book %s", e.BookID)
}

// OutOfStockError indicates a line requests more copies than are in stock.
type OutOfStockError struct {
	BookID string
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("book %s is out of stock", e.BookID)
}

// TotalMismatchError indicates the client-submitted total disagrees with
// the total recomputed from authoritative book prices plus tax.
type TotalMismatchError struct {
	Submitted decimal.Decimal
	Computed  decimal.Decimal
}

func (e *TotalMismatchError) Error() string {
	return fmt.Sprintf("submitted total %s does not match computed total %s",
		e.Submitted.StringFixed(2), e.Computed.StringFixed(2))
}

// CheckoutItem is one requested order line.
type CheckoutItem struct {
	BookID   string
	Quantity int
}

// CheckoutRequest holds the input for placing an order. Total, when
// non-nil, is the client's displayed total and must match the server-side
// recomputation. IdempotencyKey, when set, deduplicates resubmissions of
// the same checkout.
type CheckoutRequest struct {
	Items          []CheckoutItem
	Total          *decimal.Decimal
	IdempotencyKey string
}

// Service encapsulates checkout business logic.
type Service struct {
	books  book.Repository
	orders Repository
	now    func() time.Time

	// seenKeys is a probabilistic prefilter over idempotency keys: a
	// negative answer skips the repository lookup on first submission.
	mu       sync.Mutex
	seenKeys *bloom.BloomFilter
}

// NewService creates an order Service with the required repositories.
func NewService(books book.Repository, orders Repository) *Service {
	return &Service{
		books:    books,
		orders:   orders,
		now:      time.Now,
		seenKeys: bloom.NewWithEstimates(bloomCapacity, bloomFPR),
	}
}

// Checkout validates the request against the authenticated identity and the
// catalog, recomputes the total from authoritative prices plus tax, and
// persists the order with all its items in one transaction. Resubmissions
// carrying the same idempotency key return the originally created order.
func (s *Service) Checkout(ctx context.Context, identity *auth.Identity, req CheckoutRequest) (*Order, error) {
	if identity == nil {
		return nil, ErrUnauthenticated
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	// Replay fast path: only consult the repository when the bloom filter
	// says the key may have been seen before.
	if req.IdempotencyKey != "" && s.maybeSeen(req.IdempotencyKey) {
		existing, err := s.orders.GetByIdempotencyKey(ctx, req.IdempotencyKey)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, errors.Wrap(err, "lookup idempotency key")
		}
	}

	ids := make([]string, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{BookID: item.BookID}
		}
		ids[i] = item.BookID
	}

	fetched, err := s.books.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get books")
	}
	byID := make(map[string]book.Book, len(fetched))
	for _, b := range fetched {
		byID[b.ID] = b
	}

	// Price every line from the catalog, never from the client.
	items := make([]Item, len(req.Items))
	subtotal := decimal.Zero
	for i, item := range req.Items {
		b, ok := byID[item.BookID]
		if !ok {
			return nil, &BookNotFoundError{BookID: item.BookID}
		}
		items[i] = Item{
			ID:        uuid.New().String(),
			BookID:    item.BookID,
			Quantity:  item.Quantity,
			UnitPrice: b.Price,
		}
		subtotal = subtotal.Add(b.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	total := subtotal.Add(subtotal.Mul(TaxRate)).Round(2)

	if req.Total != nil && !req.Total.Round(2).Equal(total) {
		return nil, &TotalMismatchError{Submitted: *req.Total, Computed: total}
	}

	o := &Order{
		ID:             uuid.New().String(),
		UserID:         identity.UserID,
		Items:          items,
		Total:          total,
		Status:         StatusPending,
		IdempotencyKey: req.IdempotencyKey,
		CreatedAt:      s.now(),
	}

	if err := s.orders.Create(ctx, o); err != nil {
		// A concurrent duplicate submission lost the race on the unique
		// column; return the order the winner created.
		if errors.Is(err, ErrDuplicateKey) && req.IdempotencyKey != "" {
			return s.orders.GetByIdempotencyKey(ctx, req.IdempotencyKey)
		}
		return nil, errors.Wrap(err, "create order")
	}

	if req.IdempotencyKey != "" {
		s.markSeen(req.IdempotencyKey)
	}
	return o, nil
}

// SetStatus changes an order's status via admin action. Every named status
// is reachable from every other; no lifecycle ordering is enforced.
func (s *Service) SetStatus(ctx context.Context, id string, status Status) (*Order, error) {
	if !status.Valid() {
		return nil, errors.Errorf("unknown status %q", status)
	}
	return s.orders.SetStatus(ctx, id, status)
}

func (s *Service) maybeSeen(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seenKeys.TestString(key)
}

func (s *Service) markSeen(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seenKeys.AddString(key)
}
