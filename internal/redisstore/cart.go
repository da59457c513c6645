package redisstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/readifylabs/readify/internal/domain/cart"
)

var _ cart.Storage = (*CartStorage)(nil)

// CartStorage persists carts in Redis under "cart:{owner}" so a shopper's
// selection survives across sessions and devices.
type CartStorage struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCartStorage creates a CartStorage. Carts untouched for ttl expire.
func NewCartStorage(client *redis.Client, ttl time.Duration) *CartStorage {
	return &CartStorage{client: client, ttl: ttl}
}

// Load returns the owner's cart, or an empty cart when none is stored.
func (s *CartStorage) Load(ctx context.Context, owner string) (*cart.Cart, error) {
	data, err := s.client.Get(ctx, cartKey(owner)).Bytes()
	if errors.Is(err, redis.Nil) {
		return &cart.Cart{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "redis get")
	}

	var c cart.Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrap(err, "unmarshal cart")
	}
	return &c, nil
}

// Save stores the cart, resetting its expiry.
func (s *CartStorage) Save(ctx context.Context, owner string, c *cart.Cart) error {
	data, err := json.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal cart")
	}
	if err := s.client.Set(ctx, cartKey(owner), data, s.ttl).Err(); err != nil {
		return errors.Wrap(err, "redis set")
	}
	return nil
}

// Delete removes the owner's cart entirely.
func (s *CartStorage) Delete(ctx context.Context, owner string) error {
	if err := s.client.Del(ctx, cartKey(owner)).Err(); err != nil {
		return errors.Wrap(err, "redis delete")
	}
	return nil
}

func cartKey(owner string) string {
	return "cart:" + owner
}
