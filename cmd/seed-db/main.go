// Command seed-db loads the book catalog from a JSON file (optionally
// gzip-compressed) and creates the default admin and demo accounts.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/readifylabs/readify/internal/repository"
)

type bookJSON struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Author      string          `json:"author"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	ImageURL    string          `json:"imageUrl"`
	Stock       int             `json:"stock"`
	Rating      float64         `json:"rating"`
	Reviews     int             `json:"reviews"`
	IsFeatured  bool            `json:"isFeatured"`
}

type seedUser struct {
	email    string
	password string
	name     string
	role     string
}

func main() {
	var (
		databaseURL string
		booksFile   string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&booksFile, "books-file", "db/seed/books.json", "path to books JSON file (.json or .json.gz)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, booksFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, booksFile string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedBooks(ctx, pool, booksFile); err != nil {
		return errors.Wrap(err, "seed books")
	}

	if err := seedUsers(ctx, pool); err != nil {
		return errors.Wrap(err, "seed users")
	}

	return nil
}

const upsertBookSQL = `
INSERT INTO books (id, title, author, description, price, category, image_url, stock, rating, reviews, is_featured)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (id) DO UPDATE SET
	title = EXCLUDED.title,
	author = EXCLUDED.author,
	description = EXCLUDED.description,
	price = EXCLUDED.price,
	category = EXCLUDED.category,
	image_url = EXCLUDED.image_url,
	stock = EXCLUDED.stock,
	rating = EXCLUDED.rating,
	reviews = EXCLUDED.reviews,
	is_featured = EXCLUDED.is_featured,
	updated_at = now()`

func seedBooks(ctx context.Context, pool *pgxpool.Pool, booksFile string) error {
	slog.Info("reading books file", slog.String("path", booksFile))

	books, err := readBooksFile(booksFile)
	if err != nil {
		return err
	}

	slog.Info("upserting books", slog.Int("count", len(books)))

	for _, b := range books {
		if b.ID == "" {
			b.ID = uuid.New().String()
		}
		if _, err := pool.Exec(ctx, upsertBookSQL,
			b.ID, b.Title, b.Author, b.Description, b.Price, b.Category,
			b.ImageURL, b.Stock, b.Rating, b.Reviews, b.IsFeatured,
		); err != nil {
			return errors.Wrapf(err, "upsert book %s", b.Title)
		}

		slog.Info("upserted book", slog.String("id", b.ID), slog.String("title", b.Title))
	}

	return nil
}

func readBooksFile(path string) ([]bookJSON, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open books file")
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "open gzip stream")
		}
		defer gz.Close()
		r = gz
	}

	var books []bookJSON
	if err := json.NewDecoder(r).Decode(&books); err != nil {
		return nil, errors.Wrap(err, "parse books JSON")
	}
	return books, nil
}

const insertUserSQL = `
INSERT INTO users (id, email, password, name, role)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (email) DO NOTHING`

func seedUsers(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding default accounts")

	users := []seedUser{
		{email: "admin@readify.com", password: "admin123", name: "Admin", role: "ADMIN"},
		{email: "user@readify.com", password: "user1234", name: "Demo User", role: "USER"},
	}

	for _, u := range users {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			return errors.Wrapf(err, "hash password for %s", u.email)
		}

		if _, err := pool.Exec(ctx, insertUserSQL,
			uuid.New().String(), u.email, string(hash), u.name, u.role,
		); err != nil {
			return errors.Wrapf(err, "insert user %s", u.email)
		}

		slog.Info("seeded account", slog.String("email", u.email), slog.String("role", u.role))
	}

	return nil
}
