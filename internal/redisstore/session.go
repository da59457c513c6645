// Package redisstore provides Redis-backed persistence for sessions and
// carts. Values are stored as JSON with a TTL; reads of absent keys map to
// domain-level "not found" semantics.
package redisstore

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/readifylabs/readify/internal/domain/auth"
)

const sessionTokenBytes = 32

var _ auth.SessionStore = (*SessionStore)(nil)

// SessionStore persists sessions in Redis under "session:{token}".
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionStore creates a SessionStore. Sessions expire after ttl; every
// successful Get refreshes the expiry (sliding sessions).
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

// Create stores the identity under a fresh random token and returns the token.
func (s *SessionStore) Create(ctx context.Context, id auth.Identity) (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "generate session token")
	}
	token := hex.EncodeToString(buf)

	data, err := json.Marshal(id)
	if err != nil {
		return "", errors.Wrap(err, "marshal identity")
	}

	if err := s.client.Set(ctx, sessionKey(token), data, s.ttl).Err(); err != nil {
		return "", errors.Wrap(err, "redis set")
	}
	return token, nil
}

// Get resolves a token to its identity, refreshing the session TTL.
// Unknown or expired tokens return auth.ErrSessionNotFound.
func (s *SessionStore) Get(ctx context.Context, token string) (*auth.Identity, error) {
	data, err := s.client.GetEx(ctx, sessionKey(token), s.ttl).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, auth.ErrSessionNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "redis get")
	}

	var id auth.Identity
	if err := json.Unmarshal(data, &id); err != nil {
		return nil, errors.Wrap(err, "unmarshal identity")
	}
	return &id, nil
}

// Delete destroys the session. Unknown tokens are a no-op.
func (s *SessionStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, sessionKey(token)).Err(); err != nil {
		return errors.Wrap(err, "redis delete")
	}
	return nil
}

func sessionKey(token string) string {
	return "session:" + token
}
