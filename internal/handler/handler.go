// Package handler implements the HTTP surface of the store: the public
// catalog, cart and checkout endpoints, the auth endpoints, and the admin
// back office, with role gating applied before any handler runs.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/readifylabs/readify/internal/domain/auth"
	"github.com/readifylabs/readify/internal/domain/book"
	"github.com/readifylabs/readify/internal/domain/cart"
	"github.com/readifylabs/readify/internal/domain/order"
	"github.com/readifylabs/readify/internal/domain/stats"
	"github.com/readifylabs/readify/internal/domain/user"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// CookieSecure marks session and cart cookies Secure; enable behind TLS.
	CookieSecure bool
	// CookieMaxAge is the lifetime, in seconds, of session and cart cookies.
	CookieMaxAge int
}

// Handler carries the domain dependencies for every route.
type Handler struct {
	cfg       Config
	books     book.Repository
	carts     *cart.Store
	orders    *order.Service
	orderRepo order.Repository
	users     user.Repository
	auth      *auth.Service
	stats     *stats.Service
	google    *GoogleOAuth
}

// New constructs a Handler with the required domain dependencies.
// google may be nil when OAuth sign-in is not configured.
func New(
	cfg Config,
	books book.Repository,
	carts *cart.Store,
	orders *order.Service,
	orderRepo order.Repository,
	users user.Repository,
	authSvc *auth.Service,
	statsSvc *stats.Service,
	google *GoogleOAuth,
) *Handler {
	return &Handler{
		cfg:       cfg,
		books:     books,
		carts:     carts,
		orders:    orders,
		orderRepo: orderRepo,
		users:     users,
		auth:      authSvc,
		stats:     statsSvc,
		google:    google,
	}
}

// Routes builds the chi router with the access control gate applied per
// route class: public catalog and cart, authenticated checkout and order
// history, admin back office.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(h.WithIdentity)

	// Public catalog.
	r.Get("/books", h.ListBooks)
	r.Get("/books/featured", h.FeaturedBooks)
	r.Get("/books/bestsellers", h.BestsellerBooks)
	r.Get("/books/{id}", h.GetBook)

	// Admin catalog mutations.
	r.Group(func(r chi.Router) {
		r.Use(h.RequireAdmin)
		r.Post("/books", h.CreateBook)
		r.Put("/books/{id}", h.UpdateBook)
		r.Delete("/books/{id}", h.DeleteBook)
	})

	// Cart: available to anonymous shoppers via a cart cookie.
	r.Route("/cart", func(r chi.Router) {
		r.Get("/", h.GetCart)
		r.Delete("/", h.ClearCart)
		r.Post("/items", h.AddCartItem)
		r.Put("/items/{bookId}", h.SetCartQuantity)
		r.Delete("/items/{bookId}", h.RemoveCartItem)
	})

	// Checkout and order history require a session.
	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)
		r.Post("/orders", h.CreateOrder)
		r.Get("/orders", h.ListOwnOrders)
	})

	// Auth: signed-in users are redirected away from sign-in pages.
	r.Route("/auth", func(r chi.Router) {
		r.With(h.RedirectAuthenticated).Post("/register", h.Register)
		r.With(h.RedirectAuthenticated).Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Get("/me", h.Me)
		if h.google != nil {
			r.Get("/oauth/google", h.GoogleLogin)
			r.Get("/oauth/google/callback", h.GoogleCallback)
		}
	})

	// Admin back office.
	r.Route("/admin", func(r chi.Router) {
		r.Use(h.RequireAdmin)
		r.Get("/stats", h.GetStats)
		r.Get("/orders", h.ListOrders)
		r.Put("/orders/{id}", h.SetOrderStatus)
		r.Delete("/orders/{id}", h.DeleteOrder)
		r.Get("/users", h.ListUsers)
		r.Put("/users/{id}", h.UpdateUserRole)
		r.Delete("/users/{id}", h.DeleteUser)
	})

	return r
}
