package shop

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/toko-cart/internal/common"
)

// Handler exposes cart session endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the cart endpoints. checkout wraps the checkout handler, typically
// with idempotency middleware; nil leaves it unwrapped.
func (h *Handler) Routes(r chi.Router, checkout func(http.Handler) http.Handler) {
	r.Post("/", h.Create)
	r.Route("/{sessionID}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Delete("/", h.Delete)
		r.Post("/items", h.AddItem)
		r.Patch("/items/{productID}", h.UpdateItem)
		r.Delete("/items/{productID}", h.RemoveItem)
		r.Post("/coupon", h.ApplyCoupon)
		r.Delete("/coupon", h.ClearCoupon)
		if checkout != nil {
			r.With(checkout).Post("/checkout", h.Checkout)
		} else {
			r.Post("/checkout", h.Checkout)
		}
		r.Get("/notifications", h.Notifications)
		r.Delete("/notifications/{notificationID}", h.DismissNotification)
	})
}

type addItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
}

type updateItemRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

type applyCouponRequest struct {
	Code string `json:"code" validate:"required"`
}

// Create handles POST /api/v1/carts.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.CreateSession(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	w.Header().Set("Location", "/api/v1/carts/"+view.SessionID)
	common.JSON(w, http.StatusCreated, map[string]any{"data": view})
}

// Get handles GET /api/v1/carts/{sessionID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.View(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// Delete handles DELETE /api/v1/carts/{sessionID}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddItem handles POST /api/v1/carts/{sessionID}/items.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	view, err := h.service.AddToCart(r.Context(), chi.URLParam(r, "sessionID"), req.ProductID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view, "message": msgAddedToCart})
}

// UpdateItem handles PATCH /api/v1/carts/{sessionID}/items/{productID}.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	view, err := h.service.UpdateQuantity(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "productID"), *req.Quantity)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// RemoveItem handles DELETE /api/v1/carts/{sessionID}/items/{productID}.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.RemoveFromCart(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "productID"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// ApplyCoupon handles POST /api/v1/carts/{sessionID}/coupon.
func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var req applyCouponRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	view, err := h.service.ApplyCoupon(r.Context(), chi.URLParam(r, "sessionID"), req.Code)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// ClearCoupon handles DELETE /api/v1/carts/{sessionID}/coupon.
func (h *Handler) ClearCoupon(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.ClearCoupon(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// Checkout handles POST /api/v1/carts/{sessionID}/checkout.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.CompleteOrder(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": order, "message": order.Message})
}

// Notifications handles GET /api/v1/carts/{sessionID}/notifications.
func (h *Handler) Notifications(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.Notifications(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": items})
}

// DismissNotification handles DELETE /api/v1/carts/{sessionID}/notifications/{notificationID}.
func (h *Handler) DismissNotification(w http.ResponseWriter, r *http.Request) {
	err := h.service.DismissNotification(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "notificationID"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
