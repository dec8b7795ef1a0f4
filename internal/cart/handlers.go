package cart

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/tienda-api/internal/common"
	"github.com/noah-isme/tienda-api/internal/payment"
	"github.com/noah-isme/tienda-api/internal/pricing"
)

// Handler exposes the session cart.
type Handler struct {
	Store *Store
	// Surcharge yields the active transfer surcharge config. Defaults to
	// pricing.DefaultSurchargeConfig.
	Surcharge func(ctx context.Context) pricing.SurchargeConfig
}

type addItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Color     string `json:"color"`
	Qty       int    `json:"qty" validate:"gte=1"`
}

type updateItemRequest struct {
	Delta int `json:"delta" validate:"required"`
}

type cartResponse struct {
	Cart
	Payment payment.Options `json:"paymentOptions"`
}

func (h *Handler) respond(ctx context.Context, c Cart) cartResponse {
	return cartResponse{Cart: c, Payment: payment.Resolve(c.LineItems(), h.surcharge(ctx))}
}

func (h *Handler) surcharge(ctx context.Context) pricing.SurchargeConfig {
	if h.Surcharge == nil {
		return pricing.DefaultSurchargeConfig()
	}
	return h.Surcharge(ctx)
}

// Get handles GET /api/v1/cart.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	session, _ := common.SessionID(r.Context())
	c, err := h.Store.Get(r.Context(), session)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": h.respond(r.Context(), c)})
}

// AddItem handles POST /api/v1/cart/items.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	session, _ := common.SessionID(r.Context())
	req := addItemRequest{Qty: 1}
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	if err := common.ValidateStruct(req); err != nil {
		common.WriteError(w, err)
		return
	}
	c, err := h.Store.Add(r.Context(), session, req.ProductID, req.Color, req.Qty)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": h.respond(r.Context(), c)})
}

// UpdateItem handles PATCH /api/v1/cart/items/{itemKey}.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	session, _ := common.SessionID(r.Context())
	var req updateItemRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	if err := common.ValidateStruct(req); err != nil {
		common.WriteError(w, err)
		return
	}
	c, err := h.Store.UpdateQty(r.Context(), session, chi.URLParam(r, "itemKey"), req.Delta)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": h.respond(r.Context(), c)})
}

// RemoveItem handles DELETE /api/v1/cart/items/{itemKey}.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	session, _ := common.SessionID(r.Context())
	if err := h.Store.Remove(r.Context(), session, chi.URLParam(r, "itemKey")); err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Clear handles DELETE /api/v1/cart.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	session, _ := common.SessionID(r.Context())
	if err := h.Store.Clear(r.Context(), session); err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
