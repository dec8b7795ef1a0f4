package wishlist

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/tienda-api/internal/common"
	"github.com/noah-isme/tienda-api/internal/payment"
	"github.com/noah-isme/tienda-api/internal/pricing"
)

type Handler struct {
	Store     *Store
	Surcharge func(ctx context.Context) pricing.SurchargeConfig
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	session, _ := common.SessionID(r.Context())
	products, err := h.Store.List(r.Context(), session)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": products})
}

func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	session, _ := common.SessionID(r.Context())
	var req struct {
		ProductID string `json:"productId" validate:"required"`
	}
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	if err := common.ValidateStruct(req); err != nil {
		common.WriteError(w, err)
		return
	}
	if err := h.Store.Add(r.Context(), session, req.ProductID); err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]bool{"favorited": true})
}

func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	session, _ := common.SessionID(r.Context())
	if err := h.Store.Remove(r.Context(), session, chi.URLParam(r, "productID")); err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	session, _ := common.SessionID(r.Context())
	exists, err := h.Store.Contains(r.Context(), session, chi.URLParam(r, "productID"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]bool{"favorited": exists})
}

// MoveToCart handles POST /api/v1/wishlist/{productID}/move-to-cart. The body
// is optional.
func (h *Handler) MoveToCart(w http.ResponseWriter, r *http.Request) {
	session, _ := common.SessionID(r.Context())
	var req struct {
		Color string `json:"color"`
	}
	if err := common.DecodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		common.WriteError(w, err)
		return
	}
	c, err := h.Store.MoveToCart(r.Context(), session, chi.URLParam(r, "productID"), req.Color)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	surcharge := pricing.DefaultSurchargeConfig()
	if h.Surcharge != nil {
		surcharge = h.Surcharge(r.Context())
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"cart":           c,
		"paymentOptions": payment.Resolve(c.LineItems(), surcharge),
	}})
}
