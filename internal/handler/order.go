package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/readifylabs/readify/internal/domain/auth"
	"github.com/readifylabs/readify/internal/domain/order"
)

type orderItemResponse struct {
	ID        string  `json:"id"`
	BookID    string  `json:"bookId"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

type orderResponse struct {
	ID        string              `json:"id"`
	UserID    string              `json:"userId"`
	Items     []orderItemResponse `json:"items"`
	Total     float64             `json:"total"`
	Status    string              `json:"status"`
	CreatedAt time.Time           `json:"createdAt"`
}

type checkoutItemRequest struct {
	BookID   string `json:"bookId"`
	Quantity int    `json:"quantity"`
}

type checkoutRequest struct {
	Items          []checkoutItemRequest `json:"items"`
	Total          *float64              `json:"total"`
	IdempotencyKey string                `json:"idempotencyKey"`
}

// CreateOrder places an order for the authenticated user and clears their
// cart on success.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	co := order.CheckoutRequest{
		Items:          make([]order.CheckoutItem, len(req.Items)),
		IdempotencyKey: req.IdempotencyKey,
	}
	for i, item := range req.Items {
		co.Items[i] = order.CheckoutItem{BookID: item.BookID, Quantity: item.Quantity}
	}
	if req.Total != nil {
		t := decimal.NewFromFloat(*req.Total)
		co.Total = &t
	}

	identity := auth.IdentityFrom(r.Context())
	o, err := h.orders.Checkout(r.Context(), identity, co)
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}

	// The cart has been converted into an order; clearing it is best
	// effort and must not fail the checkout.
	if identity != nil {
		if cerr := h.carts.Clear(r.Context(), "user:"+identity.UserID); cerr != nil {
			zctx.From(r.Context()).Warn("failed to clear cart after checkout",
				zap.String("order_id", o.ID), zap.Error(cerr))
		}
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(o))
}

// ListOwnOrders returns the authenticated user's orders, newest first.
func (h *Handler) ListOwnOrders(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFrom(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	list, err := h.orderRepo.ListByUser(r.Context(), identity.UserID)
	if err != nil {
		internalError(w, r, "failed to list orders", err)
		return
	}

	out := make([]orderResponse, len(list))
	for i, o := range list {
		out[i] = toOrderResponse(&o)
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": out})
}

func (h *Handler) writeCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		notFound *order.BookNotFoundError
		badQty   *order.InvalidQuantityError
		noStock  *order.OutOfStockError
		mismatch *order.TotalMismatchError
	)
	switch {
	case errors.Is(err, order.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, order.ErrEmptyItems):
		writeError(w, http.StatusBadRequest, "order must contain at least one item")
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, notFound.Error())
	case errors.As(err, &badQty):
		writeError(w, http.StatusBadRequest, badQty.Error())
	case errors.As(err, &noStock):
		writeError(w, http.StatusConflict, noStock.Error())
	case errors.As(err, &mismatch):
		writeError(w, http.StatusBadRequest, mismatch.Error())
	default:
		internalError(w, r, "failed to place order", err)
	}
}

func toOrderResponse(o *order.Order) orderResponse {
	out := orderResponse{
		ID:        o.ID,
		UserID:    o.UserID,
		Items:     make([]orderItemResponse, len(o.Items)),
		Total:     o.Total.InexactFloat64(),
		Status:    string(o.Status),
		CreatedAt: o.CreatedAt,
	}
	for i, item := range o.Items {
		out.Items[i] = orderItemResponse{
			ID:        item.ID,
			BookID:    item.BookID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.InexactFloat64(),
		}
	}
	return out
}
