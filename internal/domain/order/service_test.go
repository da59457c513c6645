package order

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readifylabs/readify/internal/domain/auth"
	"github.com/readifylabs/readify/internal/domain/book"
	"github.com/readifylabs/readify/internal/domain/user"
)

// --- Mock implementations ---

type mockBookRepo struct {
	byID   map[string]*book.Book
	getErr error
}

func (m *mockBookRepo) List(_ context.Context, _ book.ListParams) (*book.Page, error) {
	return nil, nil
}

func (m *mockBookRepo) GetByID(_ context.Context, id string) (*book.Book, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	b, ok := m.byID[id]
	if !ok {
		return nil, book.ErrNotFound
	}
	return b, nil
}

func (m *mockBookRepo) GetByIDs(_ context.Context, ids []string) ([]book.Book, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var out []book.Book
	for _, id := range ids {
		if b, ok := m.byID[id]; ok {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *mockBookRepo) Featured(_ context.Context, _ int) ([]book.Book, error) {
	return nil, nil
}

func (m *mockBookRepo) Bestsellers(_ context.Context, _ int) ([]book.Book, error) {
	return nil, nil
}

func (m *mockBookRepo) Create(_ context.Context, _ *book.Book) error { return nil }
func (m *mockBookRepo) Update(_ context.Context, _ *book.Book) error { return nil }
func (m *mockBookRepo) Delete(_ context.Context, _ string) error     { return nil }
func (m *mockBookRepo) Count(_ context.Context) (int64, error)       { return 0, nil }

type mockOrderRepo struct {
	created []*Order
	byKey   map[string]*Order
	err     error
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	if m.err != nil {
		return m.err
	}
	m.created = append(m.created, o)
	if o.IdempotencyKey != "" {
		if m.byKey == nil {
			m.byKey = make(map[string]*Order)
		}
		m.byKey[o.IdempotencyKey] = o
	}
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, _ string) (*Order, error) {
	return nil, ErrNotFound
}

func (m *mockOrderRepo) GetByIdempotencyKey(_ context.Context, key string) (*Order, error) {
	if o, ok := m.byKey[key]; ok {
		return o, nil
	}
	return nil, ErrNotFound
}

func (m *mockOrderRepo) ListByUser(_ context.Context, _ string) ([]Order, error) { return nil, nil }
func (m *mockOrderRepo) List(_ context.Context) ([]Order, error)                 { return nil, nil }

func (m *mockOrderRepo) SetStatus(_ context.Context, id string, status Status) (*Order, error) {
	for _, o := range m.created {
		if o.ID == id {
			o.Status = status
			return o, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockOrderRepo) Delete(_ context.Context, _ string) error { return nil }
func (m *mockOrderRepo) Count(_ context.Context) (int64, error)   { return 0, nil }

func (m *mockOrderRepo) RevenueSum(_ context.Context) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

// --- Helpers ---

func newTestBook(id, title, price string) book.Book {
	return book.Book{
		ID:       id,
		Title:    title,
		Author:   "Test Author",
		Price:    decimal.RequireFromString(price),
		Category: "test",
		Stock:    100,
	}
}

func newBookRepo(books ...book.Book) *mockBookRepo {
	byID := make(map[string]*book.Book, len(books))
	for i := range books {
		byID[books[i].ID] = &books[i]
	}
	return &mockBookRepo{byID: byID}
}

func testIdentity() *auth.Identity {
	return &auth.Identity{UserID: "u1", Email: "reader@example.com", Role: user.RoleUser}
}

// --- Tests ---

func TestCheckout_Unauthenticated(t *testing.T) {
	svc := NewService(newBookRepo(), &mockOrderRepo{})

	_, err := svc.Checkout(context.Background(), nil, CheckoutRequest{
		Items: []CheckoutItem{{BookID: "b1", Quantity: 1}},
	})
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestCheckout_EmptyItems(t *testing.T) {
	svc := NewService(newBookRepo(), &mockOrderRepo{})

	_, err := svc.Checkout(context.Background(), testIdentity(), CheckoutRequest{})
	require.ErrorIs(t, err, ErrEmptyItems)
}

func TestCheckout_InvalidQuantity(t *testing.T) {
	b1 := newTestBook("b1", "Gatsby", "12.99")
	svc := NewService(newBookRepo(b1), &mockOrderRepo{})

	_, err := svc.Checkout(context.Background(), testIdentity(), CheckoutRequest{
		Items: []CheckoutItem{{BookID: "b1", Quantity: 0}},
	})

	var iqErr *InvalidQuantityError
	require.ErrorAs(t, err, &iqErr)
	assert.Equal(t, "b1", iqErr.BookID)
}

func TestCheckout_BookNotFound(t *testing.T) {
	svc := NewService(newBookRepo(), &mockOrderRepo{})

	_, err := svc.Checkout(context.Background(), testIdentity(), CheckoutRequest{
		Items: []CheckoutItem{{BookID: "missing", Quantity: 1}},
	})

	var bnfErr *BookNotFoundError
	require.ErrorAs(t, err, &bnfErr)
	assert.Equal(t, "missing", bnfErr.BookID)
}

func TestCheckout_TotalIncludesTax(t *testing.T) {
	b1 := newTestBook("b1", "Gatsby", "10.00")
	b2 := newTestBook("b2", "1984", "20.00")
	repo := &mockOrderRepo{}
	svc := NewService(newBookRepo(b1, b2), repo)

	o, err := svc.Checkout(context.Background(), testIdentity(), CheckoutRequest{
		Items: []CheckoutItem{
			{BookID: "b1", Quantity: 2},
			{BookID: "b2", Quantity: 1},
		},
	})

	require.NoError(t, err)
	// 40.00 subtotal + 10% tax.
	assert.True(t, decimal.RequireFromString("44.00").Equal(o.Total))
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, "u1", o.UserID)
	require.Len(t, repo.created, 1)
	require.Len(t, o.Items, 2)
	assert.True(t, decimal.RequireFromString("10.00").Equal(o.Items[0].UnitPrice))
}

func TestCheckout_PricesFromCatalogNotClient(t *testing.T) {
	b1 := newTestBook("b1", "Gatsby", "42.97")
	svc := NewService(newBookRepo(b1), &mockOrderRepo{})

	o, err := svc.Checkout(context.Background(), testIdentity(), CheckoutRequest{
		Items: []CheckoutItem{{BookID: "b1", Quantity: 1}},
	})

	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("47.27").Equal(o.Total))
}

func TestCheckout_TotalMismatch(t *testing.T) {
	b1 := newTestBook("b1", "Gatsby", "10.00")
	svc := NewService(newBookRepo(b1), &mockOrderRepo{})

	submitted := decimal.RequireFromString("10.00") // missing tax
	_, err := svc.Checkout(context.Background(), testIdentity(), CheckoutRequest{
		Items: []CheckoutItem{{BookID: "b1", Quantity: 1}},
		Total: &submitted,
	})

	var tmErr *TotalMismatchError
	require.ErrorAs(t, err, &tmErr)
	assert.True(t, decimal.RequireFromString("11.00").Equal(tmErr.Computed))
}

func TestCheckout_MatchingTotalAccepted(t *testing.T) {
	b1 := newTestBook("b1", "Gatsby", "10.00")
	svc := NewService(newBookRepo(b1), &mockOrderRepo{})

	submitted := decimal.RequireFromString("11.00")
	o, err := svc.Checkout(context.Background(), testIdentity(), CheckoutRequest{
		Items: []CheckoutItem{{BookID: "b1", Quantity: 1}},
		Total: &submitted,
	})

	require.NoError(t, err)
	assert.True(t, submitted.Equal(o.Total))
}

func TestCheckout_IdempotentReplay(t *testing.T) {
	b1 := newTestBook("b1", "Gatsby", "10.00")
	repo := &mockOrderRepo{}
	svc := NewService(newBookRepo(b1), repo)

	req := CheckoutRequest{
		Items:          []CheckoutItem{{BookID: "b1", Quantity: 1}},
		IdempotencyKey: "key-1",
	}

	first, err := svc.Checkout(context.Background(), testIdentity(), req)
	require.NoError(t, err)

	second, err := svc.Checkout(context.Background(), testIdentity(), req)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, repo.created, 1)
}

func TestCheckout_DuplicateKeyRace(t *testing.T) {
	b1 := newTestBook("b1", "Gatsby", "10.00")
	winner := &Order{ID: "existing", IdempotencyKey: "key-1"}
	repo := &mockOrderRepo{
		err:   ErrDuplicateKey,
		byKey: map[string]*Order{"key-1": winner},
	}
	svc := NewService(newBookRepo(b1), repo)

	o, err := svc.Checkout(context.Background(), testIdentity(), CheckoutRequest{
		Items:          []CheckoutItem{{BookID: "b1", Quantity: 1}},
		IdempotencyKey: "key-1",
	})

	require.NoError(t, err)
	assert.Equal(t, "existing", o.ID)
}

func TestCheckout_CreateError(t *testing.T) {
	b1 := newTestBook("b1", "Gatsby", "10.00")
	repo := &mockOrderRepo{err: errors.New("db write failed")}
	svc := NewService(newBookRepo(b1), repo)

	_, err := svc.Checkout(context.Background(), testIdentity(), CheckoutRequest{
		Items:          []CheckoutItem{{BookID: "b1", Quantity: 1}},
		IdempotencyKey: "key-1",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "create order")

	// A failed checkout leaves nothing behind: no order and no recorded key.
	assert.Empty(t, repo.created)
	_, err = repo.GetByIdempotencyKey(context.Background(), "key-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetStatus_UnknownStatus(t *testing.T) {
	svc := NewService(newBookRepo(), &mockOrderRepo{})

	_, err := svc.SetStatus(context.Background(), "o1", Status("misplaced"))
	require.Error(t, err)
}

func TestSetStatus_AnyTransitionAllowed(t *testing.T) {
	b1 := newTestBook("b1", "Gatsby", "10.00")
	repo := &mockOrderRepo{}
	svc := NewService(newBookRepo(b1), repo)

	o, err := svc.Checkout(context.Background(), testIdentity(), CheckoutRequest{
		Items: []CheckoutItem{{BookID: "b1", Quantity: 1}},
	})
	require.NoError(t, err)

	updated, err := svc.SetStatus(context.Background(), o.ID, StatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, updated.Status)

	// Delivered orders may still be cancelled.
	updated, err = svc.SetStatus(context.Background(), o.ID, StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, updated.Status)
}
