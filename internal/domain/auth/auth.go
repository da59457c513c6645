// Package auth provides session-based authentication: credential and OAuth
// sign-in, session issuance, and the verified identity carried on requests.
package auth

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/readifylabs/readify/internal/domain/user"
)

var (
	// ErrInvalidCredentials is returned on a failed email/password login.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrSessionNotFound is returned when a session token is unknown or expired.
	ErrSessionNotFound = errors.New("session not found")
	// ErrWeakPassword is returned when a registration password is too short.
	ErrWeakPassword = errors.New("password must be at least 8 characters")
	// ErrInvalidEmail is returned when a registration email is malformed.
	ErrInvalidEmail = errors.New("invalid email address")
)

// Identity is the verified principal attached to an authenticated request.
// Role is a closed enumeration checked by the route gate.
type Identity struct {
	UserID string    `json:"userId"`
	Email  string    `json:"email"`
	Name   string    `json:"name"`
	Role   user.Role `json:"role"`
}

// SessionStore persists sessions keyed by opaque token.
type SessionStore interface {
	Create(ctx context.Context, id Identity) (token string, err error)
	Get(ctx context.Context, token string) (*Identity, error)
	Delete(ctx context.Context, token string) error
}

// Service implements registration, login, and logout on top of the user
// repository and a session store.
type Service struct {
	users    user.Repository
	sessions SessionStore
	now      func() time.Time
}

// NewService creates an auth Service.
func NewService(users user.Repository, sessions SessionStore) *Service {
	return &Service{users: users, sessions: sessions, now: time.Now}
}

// Register creates a new USER account with a bcrypt password hash and opens
// a session for it.
func (s *Service) Register(ctx context.Context, email, password, name string) (*Identity, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if !validEmail(email) {
		return nil, "", ErrInvalidEmail
	}
	if len(password) < 8 {
		return nil, "", ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", errors.Wrap(err, "hash password")
	}

	u := &user.User{
		ID:           newID(),
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
		Role:         user.RoleUser,
		CreatedAt:    s.now(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, "", err
	}

	return s.openSession(ctx, u)
}

// Login verifies email/password credentials and opens a session.
// OAuth-only accounts (empty hash) cannot log in with a password.
func (s *Service) Login(ctx context.Context, email, password string) (*Identity, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", errors.Wrap(err, "lookup user")
	}

	if u.PasswordHash == "" {
		return nil, "", ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, "", ErrInvalidCredentials
	}

	return s.openSession(ctx, u)
}

// LoginOAuth signs in a user authenticated by an external provider,
// creating the account on first sign-in. OAuth accounts carry no password.
func (s *Service) LoginOAuth(ctx context.Context, email, name string) (*Identity, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if !validEmail(email) {
		return nil, "", ErrInvalidEmail
	}

	u, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
	case errors.Is(err, user.ErrNotFound):
		u = &user.User{
			ID:        newID(),
			Email:     email,
			Name:      name,
			Role:      user.RoleUser,
			CreatedAt: s.now(),
		}
		if err := s.users.Create(ctx, u); err != nil {
			return nil, "", err
		}
	default:
		return nil, "", errors.Wrap(err, "lookup user")
	}

	return s.openSession(ctx, u)
}

// Logout destroys the session for the given token. Unknown tokens are a no-op.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, token)
}

// Authenticate resolves a session token to the identity it was issued for.
func (s *Service) Authenticate(ctx context.Context, token string) (*Identity, error) {
	return s.sessions.Get(ctx, token)
}

func (s *Service) openSession(ctx context.Context, u *user.User) (*Identity, string, error) {
	id := Identity{
		UserID: u.ID,
		Email:  u.Email,
		Name:   u.Name,
		Role:   u.Role,
	}
	token, err := s.sessions.Create(ctx, id)
	if err != nil {
		return nil, "", errors.Wrap(err, "create session")
	}
	return &id, token, nil
}

func validEmail(email string) bool {
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return false
	}
	return strings.ContainsRune(email[at+1:], '.')
}
