package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/readifylabs/readify/internal/domain/user"
)

const (
	insertUserSQL = `INSERT INTO users (id, email, password, name, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	getUserByIDSQL = `SELECT id, email, password, name, role, created_at
		FROM users WHERE id = $1`

	getUserByEmailSQL = `SELECT id, email, password, name, role, created_at
		FROM users WHERE email = $1`

	listUsersSQL = `SELECT id, email, password, name, role, created_at
		FROM users ORDER BY created_at DESC`

	updateUserRoleSQL = `UPDATE users SET role = $2 WHERE id = $1
		RETURNING id, email, password, name, role, created_at`

	deleteUserSQL = `DELETE FROM users WHERE id = $1`

	countUsersSQL = `SELECT COUNT(*) FROM users`
)

var _ user.Repository = (*UserRepository)(nil)

// UserRepository implements user.Repository backed by PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create inserts a new account. Emails are unique.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	_, err := r.pool.Exec(ctx, insertUserSQL,
		u.ID, u.Email, nullIfEmpty(u.PasswordHash), u.Name, u.Role, u.CreatedAt,
	)
	if err != nil {
		if pgErrCode(err) == pgUniqueViolation {
			return user.ErrDuplicateEmail
		}
		return fmt.Errorf("creating user %q: %w", u.ID, err)
	}
	return nil
}

// GetByID returns a single user by identifier.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	return r.getOne(ctx, getUserByIDSQL, id)
}

// GetByEmail returns a single user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.getOne(ctx, getUserByEmailSQL, email)
}

// List returns all users, newest first.
func (r *UserRepository) List(ctx context.Context) ([]user.User, error) {
	rows, err := r.pool.Query(ctx, listUsersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return pgx.CollectRows(rows, scanUser)
}

// UpdateRole changes a user's role and returns the updated account.
func (r *UserRepository) UpdateRole(ctx context.Context, id string, role user.Role) (*user.User, error) {
	rows, err := r.pool.Query(ctx, updateUserRoleSQL, id, role)
	if err != nil {
		return nil, fmt.Errorf("updating role of user %q: %w", id, err)
	}
	u, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("updating role of user %q: %w", id, err)
	}
	return &u, nil
}

// Delete removes a user and, via cascade, their orders.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteUserSQL, id)
	if err != nil {
		return fmt.Errorf("deleting user %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

// Count returns the total number of users.
func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, countUsersSQL).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return n, nil
}

func (r *UserRepository) getOne(ctx context.Context, query, arg string) (*user.User, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	u, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return &u, nil
}

func scanUser(row pgx.CollectableRow) (user.User, error) {
	var (
		u    user.User
		hash *string
	)
	err := row.Scan(&u.ID, &u.Email, &hash, &u.Name, &u.Role, &u.CreatedAt)
	if hash != nil {
		u.PasswordHash = *hash
	}
	return u, err
}
