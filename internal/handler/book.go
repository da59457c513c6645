package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/readifylabs/readify/internal/domain/book"
)

const (
	defaultFeaturedLimit   = 8
	defaultBestsellerLimit = 8
)

type bookResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Category    string    `json:"category"`
	ImageURL    string    `json:"imageUrl"`
	Stock       int       `json:"stock"`
	Rating      float64   `json:"rating"`
	Reviews     int       `json:"reviews"`
	IsFeatured  bool      `json:"isFeatured"`
	CreatedAt   time.Time `json:"createdAt"`
}

type bookListResponse struct {
	Books []bookResponse `json:"books"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

type bookRequest struct {
	Title       string   `json:"title"`
	Author      string   `json:"author"`
	Description string   `json:"description"`
	Price       *float64 `json:"price"`
	Category    string   `json:"category"`
	ImageURL    string   `json:"imageUrl"`
	Stock       *int     `json:"stock"`
	Rating      float64  `json:"rating"`
	Reviews     int      `json:"reviews"`
	IsFeatured  bool     `json:"isFeatured"`
}

// ListBooks serves the paginated catalog query with category, search, and
// sort parameters.
func (h *Handler) ListBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := book.ListParams{
		Category: q.Get("category"),
		Search:   q.Get("search"),
		Sort:     book.Sort(q.Get("sort")),
	}
	if page, err := strconv.Atoi(q.Get("page")); err == nil {
		params.Page = page
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil {
		params.Limit = limit
	}

	page, err := h.books.List(r.Context(), params)
	if err != nil {
		internalError(w, r, "failed to fetch books", err)
		return
	}

	out := bookListResponse{
		Books: make([]bookResponse, len(page.Books)),
		Total: page.Total,
		Page:  max(params.Page, 1),
		Limit: params.Limit,
	}
	for i, b := range page.Books {
		out.Books[i] = toBookResponse(b)
	}
	writeJSON(w, http.StatusOK, out)
}

// GetBook serves a single book by ID.
func (h *Handler) GetBook(w http.ResponseWriter, r *http.Request) {
	b, err := h.books.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, book.ErrNotFound) {
			writeError(w, http.StatusNotFound, "book not found")
			return
		}
		internalError(w, r, "failed to fetch book", err)
		return
	}
	writeJSON(w, http.StatusOK, toBookResponse(*b))
}

// FeaturedBooks serves the admin-flagged homepage subset.
func (h *Handler) FeaturedBooks(w http.ResponseWriter, r *http.Request) {
	limit := defaultFeaturedLimit
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 {
		limit = n
	}

	books, err := h.books.Featured(r.Context(), limit)
	if err != nil {
		internalError(w, r, "failed to fetch featured books", err)
		return
	}
	writeJSON(w, http.StatusOK, toBookResponses(books))
}

// BestsellerBooks serves the top-rated in-stock subset.
func (h *Handler) BestsellerBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.books.Bestsellers(r.Context(), defaultBestsellerLimit)
	if err != nil {
		internalError(w, r, "failed to fetch bestsellers", err)
		return
	}
	writeJSON(w, http.StatusOK, toBookResponses(books))
}

// CreateBook creates a catalog entry (admin only).
func (h *Handler) CreateBook(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg, ok := validateBookRequest(req); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	now := time.Now()
	b := book.Book{
		ID:        uuid.New().String(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyBookRequest(&b, req)

	if err := h.books.Create(r.Context(), &b); err != nil {
		internalError(w, r, "failed to create book", err)
		return
	}
	writeJSON(w, http.StatusCreated, toBookResponse(b))
}

// UpdateBook replaces a catalog entry's fields (admin only).
func (h *Handler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg, ok := validateBookRequest(req); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	id := chi.URLParam(r, "id")
	existing, err := h.books.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, book.ErrNotFound) {
			writeError(w, http.StatusNotFound, "book not found")
			return
		}
		internalError(w, r, "failed to fetch book", err)
		return
	}

	b := *existing
	applyBookRequest(&b, req)

	if err := h.books.Update(r.Context(), &b); err != nil {
		internalError(w, r, "failed to update book", err)
		return
	}
	writeJSON(w, http.StatusOK, toBookResponse(b))
}

// DeleteBook removes a catalog entry (admin only). Books referenced by
// order lines cannot be deleted.
func (h *Handler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	err := h.books.Delete(r.Context(), chi.URLParam(r, "id"))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"message": "book deleted"})
	case errors.Is(err, book.ErrNotFound):
		writeError(w, http.StatusNotFound, "book not found")
	case errors.Is(err, book.ErrReferenced):
		writeError(w, http.StatusConflict, "book is referenced by existing orders")
	default:
		internalError(w, r, "failed to delete book", err)
	}
}

func validateBookRequest(req bookRequest) (string, bool) {
	switch {
	case req.Title == "":
		return "title is required", false
	case req.Author == "":
		return "author is required", false
	case req.Price == nil:
		return "price is required", false
	case *req.Price < 0:
		return "price must not be negative", false
	case req.Stock == nil:
		return "stock is required", false
	case *req.Stock < 0:
		return "stock must not be negative", false
	case req.Rating < 0 || req.Rating > 5:
		return "rating must be between 0 and 5", false
	case req.Reviews < 0:
		return "reviews must not be negative", false
	}
	return "", true
}

func applyBookRequest(b *book.Book, req bookRequest) {
	b.Title = req.Title
	b.Author = req.Author
	b.Description = req.Description
	b.Price = decimal.NewFromFloat(*req.Price).Round(2)
	b.Category = req.Category
	b.ImageURL = req.ImageURL
	b.Stock = *req.Stock
	b.Rating = req.Rating
	b.Reviews = req.Reviews
	b.Featured = req.IsFeatured
	b.UpdatedAt = time.Now()
}

func toBookResponse(b book.Book) bookResponse {
	return bookResponse{
		ID:          b.ID,
		Title:       b.Title,
		Author:      b.Author,
		Description: b.Description,
		Price:       b.Price.InexactFloat64(),
		Category:    b.Category,
		ImageURL:    b.ImageURL,
		Stock:       b.Stock,
		Rating:      b.Rating,
		Reviews:     b.Reviews,
		IsFeatured:  b.Featured,
		CreatedAt:   b.CreatedAt,
	}
}

func toBookResponses(books []book.Book) []bookResponse {
	out := make([]bookResponse, len(books))
	for i, b := range books {
		out[i] = toBookResponse(b)
	}
	return out
}
