// Package cart implements the shopper's pending selection as an explicit
// state container: a value type with total-function operations, wrapped by a
// Store that writes every mutation through to durable storage so the cart
// survives across sessions.
package cart

import (
	"context"

	"github.com/shopspring/decimal"
)

// Item is one selected book with denormalized display fields and the
// quantity chosen. Stored quantities are always >= 1; operations that would
// drop a quantity to zero remove the item instead.
type Item struct {
	BookID   string          `json:"bookId"`
	Title    string          `json:"title"`
	Author   string          `json:"author"`
	Price    decimal.Decimal `json:"price"`
	ImageURL string          `json:"imageUrl,omitempty"`
	Quantity int             `json:"quantity"`
}

// Cart is the in-memory list of items. All operations are total functions:
// they never fail, and invalid inputs degrade to no-ops or removals.
type Cart struct {
	Items []Item `json:"items"`
}

// Add merges the given item into the cart: an existing entry for the same
// book has its quantity incremented by one, otherwise the item is appended
// with quantity 1. The Quantity field of the argument is ignored.
func (c *Cart) Add(item Item) {
	for i := range c.Items {
		if c.Items[i].BookID == item.BookID {
			c.Items[i].Quantity++
			return
		}
	}
	item.Quantity = 1
	c.Items = append(c.Items, item)
}

// Remove deletes the item for the given book. Absent items are a no-op.
func (c *Cart) Remove(bookID string) {
	for i := range c.Items {
		if c.Items[i].BookID == bookID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return
		}
	}
}

// SetQuantity replaces the quantity of the item for the given book.
// A quantity <= 0 is equivalent to Remove.
func (c *Cart) SetQuantity(bookID string, qty int) {
	if qty <= 0 {
		c.Remove(bookID)
		return
	}
	for i := range c.Items {
		if c.Items[i].BookID == bookID {
			c.Items[i].Quantity = qty
			return
		}
	}
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.Items = nil
}

// Total is the sum of price x quantity over all items, recomputed on every
// call.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// Count is the sum of quantities, used for the cart badge.
func (c *Cart) Count() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// Storage persists carts keyed by owner. Load returns an empty cart, not an
// error, when the owner has no stored cart.
type Storage interface {
	Load(ctx context.Context, owner string) (*Cart, error)
	Save(ctx context.Context, owner string, c *Cart) error
	Delete(ctx context.Context, owner string) error
}

// Store applies cart operations with write-through persistence: every
// mutation is loaded, applied, and saved before it is acknowledged.
type Store struct {
	storage Storage
}

// NewStore creates a Store backed by the given storage.
func NewStore(storage Storage) *Store {
	return &Store{storage: storage}
}

// Get returns the owner's current cart.
func (s *Store) Get(ctx context.Context, owner string) (*Cart, error) {
	return s.storage.Load(ctx, owner)
}

// AddItem merges item into the owner's cart and persists the result.
func (s *Store) AddItem(ctx context.Context, owner string, item Item) (*Cart, error) {
	return s.mutate(ctx, owner, func(c *Cart) { c.Add(item) })
}

// RemoveItem deletes the item for bookID and persists the result.
func (s *Store) RemoveItem(ctx context.Context, owner, bookID string) (*Cart, error) {
	return s.mutate(ctx, owner, func(c *Cart) { c.Remove(bookID) })
}

// SetQuantity replaces the quantity for bookID and persists the result.
func (s *Store) SetQuantity(ctx context.Context, owner, bookID string, qty int) (*Cart, error) {
	return s.mutate(ctx, owner, func(c *Cart) { c.SetQuantity(bookID, qty) })
}

// Clear removes the owner's cart entirely.
func (s *Store) Clear(ctx context.Context, owner string) error {
	return s.storage.Delete(ctx, owner)
}

func (s *Store) mutate(ctx context.Context, owner string, fn func(*Cart)) (*Cart, error) {
	c, err := s.storage.Load(ctx, owner)
	if err != nil {
		return nil, err
	}
	fn(c)
	if err := s.storage.Save(ctx, owner, c); err != nil {
		return nil, err
	}
	return c, nil
}
