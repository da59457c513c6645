//go:build integration

package integration

import (
	"math"
	"net/http"
	"regexp"
	"testing"

	"github.com/google/uuid"
)

var uuidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

func firstBookID(t *testing.T, title string) string {
	t.Helper()

	resp := doGet(t, httpClient, "/api/books?search="+title)
	defer resp.Body.Close()

	page := decodeJSON[bookListResponse](t, resp)
	if len(page.Books) == 0 {
		t.Fatalf("no book found for %q", title)
	}
	return page.Books[0].ID
}

func TestCheckout_NoAuth(t *testing.T) {
	req := checkoutRequest{
		Items: []checkoutItem{{BookID: firstBookID(t, "Gatsby"), Quantity: 1}},
	}
	resp := doJSON(t, newSession(t), http.MethodPost, "/api/orders", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestCheckout_EmptyItems(t *testing.T) {
	session := newSession(t)
	login(t, session, "user@readify.com", "user1234")

	resp := doJSON(t, session, http.MethodPost, "/api/orders", checkoutRequest{})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCheckout_UnknownBook(t *testing.T) {
	session := newSession(t)
	login(t, session, "user@readify.com", "user1234")

	req := checkoutRequest{Items: []checkoutItem{{BookID: "does-not-exist", Quantity: 1}}}
	resp := doJSON(t, session, http.MethodPost, "/api/orders", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestCheckout_SingleItem(t *testing.T) {
	session := newSession(t)
	login(t, session, "user@readify.com", "user1234")

	// Gatsby $12.99; with 10% tax: 14.29.
	req := checkoutRequest{
		Items: []checkoutItem{{BookID: firstBookID(t, "Gatsby"), Quantity: 1}},
	}
	resp := doJSON(t, session, http.MethodPost, "/api/orders", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	order := decodeJSON[orderResponse](t, resp)
	if !uuidPattern.MatchString(order.ID) {
		t.Errorf("order ID %q is not a valid UUID", order.ID)
	}
	if order.Status != "pending" {
		t.Errorf("status: got %q, want pending", order.Status)
	}
	if math.Abs(order.Total-14.29) > 0.001 {
		t.Errorf("total: got %v, want 14.29", order.Total)
	}
	if len(order.Items) != 1 || order.Items[0].UnitPrice != 12.99 {
		t.Errorf("unexpected items: %+v", order.Items)
	}
}

func TestCheckout_TotalMismatchRejected(t *testing.T) {
	session := newSession(t)
	login(t, session, "user@readify.com", "user1234")

	wrong := 12.99 // pre-tax price submitted as total
	req := checkoutRequest{
		Items: []checkoutItem{{BookID: firstBookID(t, "Gatsby"), Quantity: 1}},
		Total: &wrong,
	}
	resp := doJSON(t, session, http.MethodPost, "/api/orders", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCheckout_IdempotencyKey(t *testing.T) {
	session := newSession(t)
	login(t, session, "user@readify.com", "user1234")

	req := checkoutRequest{
		Items:          []checkoutItem{{BookID: firstBookID(t, "Atomic"), Quantity: 1}},
		IdempotencyKey: uuid.New().String(),
	}

	resp := doJSON(t, session, http.MethodPost, "/api/orders", req)
	first := decodeJSON[orderResponse](t, resp)
	resp.Body.Close()

	resp = doJSON(t, session, http.MethodPost, "/api/orders", req)
	second := decodeJSON[orderResponse](t, resp)
	resp.Body.Close()

	if first.ID != second.ID {
		t.Fatalf("replay created a second order: %s != %s", first.ID, second.ID)
	}
}

func TestCheckout_DecrementsStock(t *testing.T) {
	session := newSession(t)
	login(t, session, "user@readify.com", "user1234")

	id := firstBookID(t, "Mockingbird")

	resp := doGet(t, httpClient, "/api/books/"+id)
	before := decodeJSON[bookResponse](t, resp)
	resp.Body.Close()

	req := checkoutRequest{Items: []checkoutItem{{BookID: id, Quantity: 2}}}
	resp = doJSON(t, session, http.MethodPost, "/api/orders", req)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	resp = doGet(t, httpClient, "/api/books/"+id)
	after := decodeJSON[bookResponse](t, resp)
	resp.Body.Close()

	if after.Stock != before.Stock-2 {
		t.Errorf("stock: got %d, want %d", after.Stock, before.Stock-2)
	}
}

func TestCheckout_OutOfStockRollsBack(t *testing.T) {
	session := newSession(t)
	login(t, session, "user@readify.com", "user1234")

	id := firstBookID(t, "Mindset")

	resp := doGet(t, httpClient, "/api/books/"+id)
	before := decodeJSON[bookResponse](t, resp)
	resp.Body.Close()

	// The second line can never be satisfied, so the whole order must fail
	// and the first line's decrement must be rolled back with it.
	req := checkoutRequest{Items: []checkoutItem{
		{BookID: id, Quantity: 1},
		{BookID: firstBookID(t, "Rich Dad"), Quantity: 100000},
	}}
	resp = doJSON(t, session, http.MethodPost, "/api/orders", req)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}

	resp = doGet(t, httpClient, "/api/books/"+id)
	after := decodeJSON[bookResponse](t, resp)
	resp.Body.Close()

	if after.Stock != before.Stock {
		t.Errorf("stock changed on failed checkout: got %d, want %d", after.Stock, before.Stock)
	}
}

func TestCheckout_ClearsCart(t *testing.T) {
	session := newSession(t)
	login(t, session, "user@readify.com", "user1234")

	id := firstBookID(t, "Lean Startup")

	resp := doJSON(t, session, http.MethodPost, "/api/cart/items", cartAddRequest{BookID: id})
	resp.Body.Close()

	req := checkoutRequest{Items: []checkoutItem{{BookID: id, Quantity: 1}}}
	resp = doJSON(t, session, http.MethodPost, "/api/orders", req)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	resp = doGet(t, session, "/api/cart")
	cart := decodeJSON[cartResponse](t, resp)
	resp.Body.Close()

	if len(cart.Items) != 0 {
		t.Errorf("cart not cleared after checkout: %+v", cart.Items)
	}
}

func TestOrderHistory_OwnOrdersOnly(t *testing.T) {
	session := newSession(t)
	login(t, session, "user@readify.com", "user1234")

	resp := doGet(t, session, "/api/orders")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := decodeJSON[struct {
		Orders []orderResponse `json:"orders"`
	}](t, resp)

	for _, o := range body.Orders {
		if o.UserID == "" {
			t.Errorf("order %s has no user", o.ID)
		}
	}
}
