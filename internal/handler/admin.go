package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"

	"github.com/readifylabs/readify/internal/domain/auth"
	"github.com/readifylabs/readify/internal/domain/order"
	"github.com/readifylabs/readify/internal/domain/user"
)

type statsResponse struct {
	TotalBooks   int64   `json:"totalBooks"`
	TotalOrders  int64   `json:"totalOrders"`
	TotalUsers   int64   `json:"totalUsers"`
	TotalRevenue float64 `json:"totalRevenue"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// GetStats serves aggregate store counters for the admin dashboard.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	s, err := h.stats.GetStats(r.Context())
	if err != nil {
		internalError(w, r, "failed to compute stats", err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		TotalBooks:   s.TotalBooks,
		TotalOrders:  s.TotalOrders,
		TotalUsers:   s.TotalUsers,
		TotalRevenue: s.TotalRevenue.InexactFloat64(),
	})
}

// ListOrders returns every order in the store, newest first.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.orderRepo.List(r.Context())
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

// SetOrderStatus moves an order to the given status.
func (h *Handler) SetOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Status == "" {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}

	status := order.Status(req.Status)
	if !status.Valid() {
		writeError(w, http.StatusBadRequest, "unknown status "+req.Status)
		return
	}

	o, err := h.orders.SetStatus(r.Context(), chi.URLParam(r, "id"), status)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		internalError(w, r, "failed to update order", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// DeleteOrder removes an order and its items.
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.orderRepo.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, order.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		internalError(w, r, "failed to delete order", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "order deleted"})
}

// ListUsers returns every registered account.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.users.List(r.Context())
	if err != nil {
		internalError(w, r, "failed to list users", err)
		return
	}
	out := make([]userResponse, len(list))
	for i, u := range list {
		out[i] = toUserResponse(&u)
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": out})
}

// UpdateUserRole changes an account's role.
func (h *Handler) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role string `json:"role"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Role == "" {
		writeError(w, http.StatusBadRequest, "role is required")
		return
	}

	role := user.Role(req.Role)
	if !role.Valid() {
		writeError(w, http.StatusBadRequest, "unknown role "+req.Role)
		return
	}

	u, err := h.users.UpdateRole(r.Context(), chi.URLParam(r, "id"), role)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		internalError(w, r, "failed to update user", err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// DeleteUser removes an account. Admins may not delete themselves.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if identity := auth.IdentityFrom(r.Context()); identity != nil && identity.UserID == id {
		writeError(w, http.StatusBadRequest, user.ErrSelfDelete.Error())
		return
	}

	if err := h.users.Delete(r.Context(), id); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		internalError(w, r, "failed to delete user", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "user deleted"})
}

func toUserResponse(u *user.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
	}
}
