// Package stats computes the admin dashboard summary values.
package stats

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/readifylabs/readify/internal/domain/book"
	"github.com/readifylabs/readify/internal/domain/order"
	"github.com/readifylabs/readify/internal/domain/user"
)

// Summary holds the dashboard counters. TotalRevenue sums Order.total over
// all orders regardless of status, cancelled orders included.
type Summary struct {
	TotalBooks   int64           `json:"totalBooks"`
	TotalOrders  int64           `json:"totalOrders"`
	TotalUsers   int64           `json:"totalUsers"`
	TotalRevenue decimal.Decimal `json:"totalRevenue"`
}

// Service aggregates counts across the catalog, order, and user stores.
type Service struct {
	books  book.Repository
	orders order.Repository
	users  user.Repository
}

// NewService creates a stats Service.
func NewService(books book.Repository, orders order.Repository, users user.Repository) *Service {
	return &Service{books: books, orders: orders, users: users}
}

// GetStats recomputes all summary values on every call. The four aggregate
// queries run concurrently.
func (s *Service) GetStats(ctx context.Context) (*Summary, error) {
	var sum Summary

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		sum.TotalBooks, err = s.books.Count(ctx)
		return err
	})
	g.Go(func() (err error) {
		sum.TotalOrders, err = s.orders.Count(ctx)
		return err
	})
	g.Go(func() (err error) {
		sum.TotalUsers, err = s.users.Count(ctx)
		return err
	})
	g.Go(func() (err error) {
		revenue, err := s.orders.RevenueSum(ctx)
		if err != nil {
			return err
		}
		sum.TotalRevenue = revenue.Round(2)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "aggregate stats")
	}
	return &sum, nil
}
