package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/readifylabs/readify/internal/domain/auth"
	"github.com/readifylabs/readify/internal/domain/book"
	"github.com/readifylabs/readify/internal/domain/cart"
)

// cartCookie identifies an anonymous shopper's cart.
const cartCookie = "readify_cart"

type cartItemResponse struct {
	BookID   string  `json:"bookId"`
	Title    string  `json:"title"`
	Author   string  `json:"author"`
	Price    float64 `json:"price"`
	ImageURL string  `json:"imageUrl,omitempty"`
	Quantity int     `json:"quantity"`
}

type cartResponse struct {
	Items []cartItemResponse `json:"items"`
	Total float64            `json:"total"`
	Count int                `json:"count"`
}

// GetCart serves the shopper's current cart.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	owner := h.cartOwner(w, r)
	c, err := h.carts.Get(r.Context(), owner)
	if err != nil {
		internalError(w, r, "failed to fetch cart", err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

// AddCartItem merges one copy of a book into the cart, denormalizing
// display fields from the catalog.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BookID string `json:"bookId"`
	}
	if err := decodeJSON(r, &req); err != nil || req.BookID == "" {
		writeError(w, http.StatusBadRequest, "bookId is required")
		return
	}

	b, err := h.books.GetByID(r.Context(), req.BookID)
	if err != nil {
		if errors.Is(err, book.ErrNotFound) {
			writeError(w, http.StatusNotFound, "book not found")
			return
		}
		internalError(w, r, "failed to fetch book", err)
		return
	}

	owner := h.cartOwner(w, r)
	c, err := h.carts.AddItem(r.Context(), owner, cart.Item{
		BookID:   b.ID,
		Title:    b.Title,
		Author:   b.Author,
		Price:    b.Price,
		ImageURL: b.ImageURL,
	})
	if err != nil {
		internalError(w, r, "failed to update cart", err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

// SetCartQuantity replaces an item's quantity; zero or less removes it.
func (h *Handler) SetCartQuantity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quantity *int `json:"quantity"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Quantity == nil {
		writeError(w, http.StatusBadRequest, "quantity is required")
		return
	}

	owner := h.cartOwner(w, r)
	c, err := h.carts.SetQuantity(r.Context(), owner, chi.URLParam(r, "bookId"), *req.Quantity)
	if err != nil {
		internalError(w, r, "failed to update cart", err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

// RemoveCartItem deletes one item; removing an absent item is a no-op.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	owner := h.cartOwner(w, r)
	c, err := h.carts.RemoveItem(r.Context(), owner, chi.URLParam(r, "bookId"))
	if err != nil {
		internalError(w, r, "failed to update cart", err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

// ClearCart empties the cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	owner := h.cartOwner(w, r)
	if err := h.carts.Clear(r.Context(), owner); err != nil {
		internalError(w, r, "failed to clear cart", err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(&cart.Cart{}))
}

// cartOwner resolves the cart key for this request: the authenticated user
// when signed in, otherwise a cart cookie minted on first use.
func (h *Handler) cartOwner(w http.ResponseWriter, r *http.Request) string {
	if id := auth.IdentityFrom(r.Context()); id != nil {
		return "user:" + id.UserID
	}
	if c, err := r.Cookie(cartCookie); err == nil && c.Value != "" {
		return "anon:" + c.Value
	}
	v := uuid.New().String()
	h.setCookie(w, cartCookie, v)
	return "anon:" + v
}

func toCartResponse(c *cart.Cart) cartResponse {
	out := cartResponse{
		Items: make([]cartItemResponse, len(c.Items)),
		Total: c.Total().InexactFloat64(),
		Count: c.Count(),
	}
	for i, item := range c.Items {
		out.Items[i] = cartItemResponse{
			BookID:   item.BookID,
			Title:    item.Title,
			Author:   item.Author,
			Price:    item.Price.InexactFloat64(),
			ImageURL: item.ImageURL,
			Quantity: item.Quantity,
		}
	}
	return out
}
