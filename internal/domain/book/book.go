// Package book defines the catalog domain: the Book record and the
// repository operations the storefront and back office need.
package book

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a requested book does not exist.
	ErrNotFound = errors.New("book not found")
	// ErrReferenced is returned when deleting a book that order items
	// still reference.
	ErrReferenced = errors.New("book is referenced by existing orders")
)

// Book is a catalog item available for purchase.
type Book struct {
	ID          string
	Title       string
	Author      string
	Description string
	Price       decimal.Decimal
	Category    string
	ImageURL    string
	Stock       int
	Rating      float64
	Reviews     int
	Featured    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Sort enumerates the supported catalog orderings.
type Sort string

const (
	SortNewest    Sort = "newest"
	SortPriceAsc  Sort = "price_asc"
	SortPriceDesc Sort = "price_desc"
	SortRating    Sort = "rating"
	SortTitle     Sort = "title"
)

// ListParams filter and paginate the catalog listing. Zero values mean
// "no filter"; Page and Limit are normalized by the repository.
type ListParams struct {
	Category string
	Search   string
	Page     int
	Limit    int
	Sort     Sort
}

// Page is one page of catalog results together with the total match count,
// which the UI needs for pagination controls.
type Page struct {
	Books []Book
	Total int64
}

// Repository defines persistence operations for the catalog.
type Repository interface {
	List(ctx context.Context, params ListParams) (*Page, error)
	GetByID(ctx context.Context, id string) (*Book, error)
	GetByIDs(ctx context.Context, ids []string) ([]Book, error)
	Featured(ctx context.Context, limit int) ([]Book, error)
	Bestsellers(ctx context.Context, limit int) ([]Book, error)
	Create(ctx context.Context, b *Book) error
	Update(ctx context.Context, b *Book) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}
