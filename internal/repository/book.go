package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/readifylabs/readify/internal/domain/book"
)

const bookColumns = `id, title, author, description, price, category, image_url,
	stock, rating, reviews, is_featured, created_at, updated_at`

const (
	getBookByIDSQL = `SELECT ` + bookColumns + ` FROM books WHERE id = $1`

	getBooksByIDsSQL = `SELECT ` + bookColumns + ` FROM books WHERE id = ANY($1)`

	featuredBooksSQL = `SELECT ` + bookColumns + ` FROM books
		WHERE is_featured AND stock > 0
		ORDER BY rating DESC, created_at DESC
		LIMIT $1`

	bestsellerBooksSQL = `SELECT ` + bookColumns + ` FROM books
		WHERE stock > 0
		ORDER BY rating DESC, reviews DESC
		LIMIT $1`

	insertBookSQL = `INSERT INTO books (id, title, author, description, price, category,
		image_url, stock, rating, reviews, is_featured, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	updateBookSQL = `UPDATE books SET title = $2, author = $3, description = $4,
		price = $5, category = $6, image_url = $7, stock = $8, rating = $9,
		reviews = $10, is_featured = $11, updated_at = now()
		WHERE id = $1`

	deleteBookSQL = `DELETE FROM books WHERE id = $1`

	countBooksSQL = `SELECT COUNT(*) FROM books`
)

// Listing defaults, matching the storefront's page size.
const (
	defaultPageSize = 12
	maxPageSize     = 100
)

var _ book.Repository = (*BookRepository)(nil)

// BookRepository implements book.Repository backed by PostgreSQL.
type BookRepository struct {
	pool *pgxpool.Pool
}

// NewBookRepository returns a BookRepository that uses the given pool.
func NewBookRepository(pool *pgxpool.Pool) *BookRepository {
	return &BookRepository{pool: pool}
}

// List returns one page of the catalog plus the total match count.
// Filtering, sorting, and pagination all happen in SQL.
func (r *BookRepository) List(ctx context.Context, params book.ListParams) (*book.Page, error) {
	where, args := buildBookFilter(params)

	var total int64
	if err := r.pool.QueryRow(ctx, countBooksSQL+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting books: %w", err)
	}

	limit := params.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	page := params.Page
	if page < 1 {
		page = 1
	}

	query := `SELECT ` + bookColumns + ` FROM books` + where +
		` ORDER BY ` + orderClause(params.Sort) +
		` LIMIT ` + strconv.Itoa(limit) +
		` OFFSET ` + strconv.Itoa((page-1)*limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing books: %w", err)
	}
	books, err := pgx.CollectRows(rows, scanBook)
	if err != nil {
		return nil, fmt.Errorf("listing books: %w", err)
	}

	return &book.Page{Books: books, Total: total}, nil
}

// GetByID returns a single book by its identifier.
func (r *BookRepository) GetByID(ctx context.Context, id string) (*book.Book, error) {
	rows, err := r.pool.Query(ctx, getBookByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting book %q: %w", id, err)
	}

	b, err := pgx.CollectExactlyOneRow(rows, scanBook)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, book.ErrNotFound
		}
		return nil, fmt.Errorf("getting book %q: %w", id, err)
	}
	return &b, nil
}

// GetByIDs returns books matching any of the given IDs.
func (r *BookRepository) GetByIDs(ctx context.Context, ids []string) ([]book.Book, error) {
	rows, err := r.pool.Query(ctx, getBooksByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting books by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanBook)
}

// Featured returns in-stock books flagged for homepage promotion.
func (r *BookRepository) Featured(ctx context.Context, limit int) ([]book.Book, error) {
	rows, err := r.pool.Query(ctx, featuredBooksSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("listing featured books: %w", err)
	}
	return pgx.CollectRows(rows, scanBook)
}

// Bestsellers returns the top-rated in-stock books.
func (r *BookRepository) Bestsellers(ctx context.Context, limit int) ([]book.Book, error) {
	rows, err := r.pool.Query(ctx, bestsellerBooksSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("listing bestsellers: %w", err)
	}
	return pgx.CollectRows(rows, scanBook)
}

// Create inserts a new book.
func (r *BookRepository) Create(ctx context.Context, b *book.Book) error {
	_, err := r.pool.Exec(ctx, insertBookSQL,
		b.ID, b.Title, b.Author, b.Description, b.Price, b.Category,
		b.ImageURL, b.Stock, b.Rating, b.Reviews, b.Featured,
		b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating book %q: %w", b.ID, err)
	}
	return nil
}

// Update replaces all mutable fields of a book.
func (r *BookRepository) Update(ctx context.Context, b *book.Book) error {
	tag, err := r.pool.Exec(ctx, updateBookSQL,
		b.ID, b.Title, b.Author, b.Description, b.Price, b.Category,
		b.ImageURL, b.Stock, b.Rating, b.Reviews, b.Featured,
	)
	if err != nil {
		return fmt.Errorf("updating book %q: %w", b.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return book.ErrNotFound
	}
	return nil
}

// Delete removes a book. Books referenced by order items cannot be deleted.
func (r *BookRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteBookSQL, id)
	if err != nil {
		if pgErrCode(err) == pgForeignKeyViolation {
			return book.ErrReferenced
		}
		return fmt.Errorf("deleting book %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return book.ErrNotFound
	}
	return nil
}

// Count returns the total number of books.
func (r *BookRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, countBooksSQL).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting books: %w", err)
	}
	return n, nil
}

// buildBookFilter renders the WHERE clause for List. Search matches title
// or author, case-insensitively.
func buildBookFilter(params book.ListParams) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if params.Category != "" {
		args = append(args, params.Category)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}
	if params.Search != "" {
		args = append(args, "%"+params.Search+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(title ILIKE $%d OR author ILIKE $%d)", n, n))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func orderClause(sort book.Sort) string {
	switch sort {
	case book.SortPriceAsc:
		return "price ASC, id"
	case book.SortPriceDesc:
		return "price DESC, id"
	case book.SortRating:
		return "rating DESC, reviews DESC, id"
	case book.SortTitle:
		return "title ASC, id"
	default:
		return "created_at DESC, id"
	}
}

func scanBook(row pgx.CollectableRow) (book.Book, error) {
	var b book.Book
	err := row.Scan(
		&b.ID, &b.Title, &b.Author, &b.Description, &b.Price, &b.Category,
		&b.ImageURL, &b.Stock, &b.Rating, &b.Reviews, &b.Featured,
		&b.CreatedAt, &b.UpdatedAt,
	)
	return b, err
}
