package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/readifylabs/readify/internal/domain/auth"
	"github.com/readifylabs/readify/internal/domain/book"
	"github.com/readifylabs/readify/internal/domain/cart"
	"github.com/readifylabs/readify/internal/domain/order"
	"github.com/readifylabs/readify/internal/domain/stats"
	"github.com/readifylabs/readify/internal/domain/user"
)

// --- In-memory repositories ---

type memBooks struct {
	byID      map[string]*book.Book
	deleteErr error
}

func newMemBooks(books ...book.Book) *memBooks {
	m := &memBooks{byID: make(map[string]*book.Book)}
	for i := range books {
		m.byID[books[i].ID] = &books[i]
	}
	return m
}

func (m *memBooks) List(_ context.Context, params book.ListParams) (*book.Page, error) {
	var all []book.Book
	for _, b := range m.byID {
		if params.Category != "" && b.Category != params.Category {
			continue
		}
		if params.Search != "" &&
			!strings.Contains(strings.ToLower(b.Title), strings.ToLower(params.Search)) &&
			!strings.Contains(strings.ToLower(b.Author), strings.ToLower(params.Search)) {
			continue
		}
		all = append(all, *b)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return &book.Page{Books: all, Total: int64(len(all))}, nil
}

func (m *memBooks) GetByID(_ context.Context, id string) (*book.Book, error) {
	if b, ok := m.byID[id]; ok {
		return b, nil
	}
	return nil, book.ErrNotFound
}

func (m *memBooks) GetByIDs(_ context.Context, ids []string) ([]book.Book, error) {
	var out []book.Book
	for _, id := range ids {
		if b, ok := m.byID[id]; ok {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *memBooks) Featured(_ context.Context, limit int) ([]book.Book, error) {
	var out []book.Book
	for _, b := range m.byID {
		if b.Featured && b.Stock > 0 {
			out = append(out, *b)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memBooks) Bestsellers(_ context.Context, limit int) ([]book.Book, error) {
	var out []book.Book
	for _, b := range m.byID {
		if b.Stock > 0 {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memBooks) Create(_ context.Context, b *book.Book) error {
	m.byID[b.ID] = b
	return nil
}

func (m *memBooks) Update(_ context.Context, b *book.Book) error {
	if _, ok := m.byID[b.ID]; !ok {
		return book.ErrNotFound
	}
	m.byID[b.ID] = b
	return nil
}

func (m *memBooks) Delete(_ context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.byID[id]; !ok {
		return book.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memBooks) Count(_ context.Context) (int64, error) {
	return int64(len(m.byID)), nil
}

type memOrders struct {
	byID      map[string]*order.Order
	createErr error
}

func newMemOrders() *memOrders {
	return &memOrders{byID: make(map[string]*order.Order)}
}

func (m *memOrders) Create(_ context.Context, o *order.Order) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.byID[o.ID] = o
	return nil
}

func (m *memOrders) GetByID(_ context.Context, id string) (*order.Order, error) {
	if o, ok := m.byID[id]; ok {
		return o, nil
	}
	return nil, order.ErrNotFound
}

func (m *memOrders) GetByIdempotencyKey(_ context.Context, key string) (*order.Order, error) {
	for _, o := range m.byID {
		if o.IdempotencyKey == key {
			return o, nil
		}
	}
	return nil, order.ErrNotFound
}

func (m *memOrders) ListByUser(_ context.Context, userID string) ([]order.Order, error) {
	var out []order.Order
	for _, o := range m.byID {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memOrders) List(_ context.Context) ([]order.Order, error) {
	var out []order.Order
	for _, o := range m.byID {
		out = append(out, *o)
	}
	return out, nil
}

func (m *memOrders) SetStatus(_ context.Context, id string, status order.Status) (*order.Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	o.Status = status
	return o, nil
}

func (m *memOrders) Delete(_ context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return order.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memOrders) Count(_ context.Context) (int64, error) {
	return int64(len(m.byID)), nil
}

func (m *memOrders) RevenueSum(_ context.Context) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, o := range m.byID {
		sum = sum.Add(o.Total)
	}
	return sum, nil
}

type memUsers struct {
	byID map[string]*user.User
}

func newMemUsers(users ...*user.User) *memUsers {
	m := &memUsers{byID: make(map[string]*user.User)}
	for _, u := range users {
		m.byID[u.ID] = u
	}
	return m
}

func (m *memUsers) Create(_ context.Context, u *user.User) error {
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return user.ErrDuplicateEmail
		}
	}
	m.byID[u.ID] = u
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*user.User, error) {
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, user.ErrNotFound
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*user.User, error) {
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, user.ErrNotFound
}

func (m *memUsers) List(_ context.Context) ([]user.User, error) {
	var out []user.User
	for _, u := range m.byID {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memUsers) UpdateRole(_ context.Context, id string, role user.Role) (*user.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	u.Role = role
	return u, nil
}

func (m *memUsers) Delete(_ context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return user.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memUsers) Count(_ context.Context) (int64, error) {
	return int64(len(m.byID)), nil
}

type memSessions struct {
	sessions map[string]auth.Identity
	next     int
}

func newMemSessions() *memSessions {
	return &memSessions{sessions: make(map[string]auth.Identity)}
}

func (m *memSessions) Create(_ context.Context, id auth.Identity) (string, error) {
	m.next++
	token := "token-" + strconv.Itoa(m.next)
	m.sessions[token] = id
	return token, nil
}

func (m *memSessions) Get(_ context.Context, token string) (*auth.Identity, error) {
	if id, ok := m.sessions[token]; ok {
		return &id, nil
	}
	return nil, auth.ErrSessionNotFound
}

func (m *memSessions) Delete(_ context.Context, token string) error {
	delete(m.sessions, token)
	return nil
}

type memCartStorage struct {
	carts map[string]*cart.Cart
}

func newMemCartStorage() *memCartStorage {
	return &memCartStorage{carts: make(map[string]*cart.Cart)}
}

func (m *memCartStorage) Load(_ context.Context, owner string) (*cart.Cart, error) {
	if c, ok := m.carts[owner]; ok {
		cp := *c
		cp.Items = append([]cart.Item(nil), c.Items...)
		return &cp, nil
	}
	return &cart.Cart{}, nil
}

func (m *memCartStorage) Save(_ context.Context, owner string, c *cart.Cart) error {
	m.carts[owner] = c
	return nil
}

func (m *memCartStorage) Delete(_ context.Context, owner string) error {
	delete(m.carts, owner)
	return nil
}

// --- Test environment ---

type testEnv struct {
	handler  http.Handler
	books    *memBooks
	orders   *memOrders
	users    *memUsers
	sessions *memSessions
	carts    *memCartStorage
}

func newTestEnv(t *testing.T, books ...book.Book) *testEnv {
	t.Helper()

	env := &testEnv{
		books:    newMemBooks(books...),
		orders:   newMemOrders(),
		users:    newMemUsers(),
		sessions: newMemSessions(),
		carts:    newMemCartStorage(),
	}

	authSvc := auth.NewService(env.users, env.sessions)
	h := New(
		Config{CookieMaxAge: 3600},
		env.books,
		cart.NewStore(env.carts),
		order.NewService(env.books, env.orders),
		env.orders,
		env.users,
		authSvc,
		stats.NewService(env.books, env.orders, env.users),
		nil,
	)
	env.handler = h.Routes()
	return env
}

// signIn stores a user and opens a session for it, returning the session
// cookie to attach to requests.
func (e *testEnv) signIn(t *testing.T, u *user.User) *http.Cookie {
	t.Helper()
	e.users.byID[u.ID] = u
	token, err := e.sessions.Create(context.Background(), auth.Identity{
		UserID: u.ID,
		Email:  u.Email,
		Name:   u.Name,
		Role:   u.Role,
	})
	require.NoError(t, err)
	return &http.Cookie{Name: sessionCookie, Value: token}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func adminUser() *user.User {
	return &user.User{ID: "admin-1", Email: "admin@example.com", Name: "Admin", Role: user.RoleAdmin}
}

func regularUser() *user.User {
	return &user.User{ID: "user-1", Email: "reader@example.com", Name: "Reader", Role: user.RoleUser}
}
