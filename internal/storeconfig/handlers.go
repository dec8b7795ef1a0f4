package storeconfig

import (
	"net/http"

	"github.com/noah-isme/tienda-api/internal/catalog"
	"github.com/noah-isme/tienda-api/internal/common"
	"github.com/noah-isme/tienda-api/internal/coupon"
	"github.com/noah-isme/tienda-api/internal/currency"
	"github.com/noah-isme/tienda-api/internal/pricing"
	"github.com/noah-isme/tienda-api/internal/shipping"
)

// Handler exposes the public store card and the admin configuration endpoints.
type Handler struct {
	Service *Service
}

// Public handles GET /api/v1/store.
func (h *Handler) Public(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Service.Current(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": cfg.Public()})
}

// Get handles GET /api/v1/admin/config.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Service.Current(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": cfg})
}

// PutStore handles PUT /api/v1/admin/store.
func (h *Handler) PutStore(w http.ResponseWriter, r *http.Request) {
	var body StoreInfo
	if err := common.DecodeJSON(r, &body); err != nil {
		common.WriteError(w, err)
		return
	}
	h.respond(w)(h.Service.UpdateStore(r.Context(), body))
}

// PutZones handles PUT /api/v1/admin/zones.
func (h *Handler) PutZones(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Zones shipping.Zones `json:"zones"`
	}
	if err := common.DecodeJSON(r, &body); err != nil {
		common.WriteError(w, err)
		return
	}
	h.respond(w)(h.Service.UpdateZones(r.Context(), body.Zones))
}

// PutSurcharge handles PUT /api/v1/admin/surcharge.
func (h *Handler) PutSurcharge(w http.ResponseWriter, r *http.Request) {
	var body pricing.SurchargeConfig
	if err := common.DecodeJSON(r, &body); err != nil {
		common.WriteError(w, err)
		return
	}
	if body.CategoryPercents == nil {
		body.CategoryPercents = map[string]int{}
	}
	h.respond(w)(h.Service.UpdateSurcharge(r.Context(), body))
}

// PutCoupons handles PUT /api/v1/admin/coupons.
func (h *Handler) PutCoupons(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Coupons coupon.Rules `json:"coupons"`
	}
	if err := common.DecodeJSON(r, &body); err != nil {
		common.WriteError(w, err)
		return
	}
	h.respond(w)(h.Service.UpdateCoupons(r.Context(), body.Coupons))
}

// PutCurrency handles PUT /api/v1/admin/currency.
func (h *Handler) PutCurrency(w http.ResponseWriter, r *http.Request) {
	var body currency.Settings
	if err := common.DecodeJSON(r, &body); err != nil {
		common.WriteError(w, err)
		return
	}
	h.respond(w)(h.Service.UpdateCurrency(r.Context(), body))
}

// PutProducts handles PUT /api/v1/admin/products.
func (h *Handler) PutProducts(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Products map[string]catalog.Override `json:"products"`
	}
	if err := common.DecodeJSON(r, &body); err != nil {
		common.WriteError(w, err)
		return
	}
	h.respond(w)(h.Service.UpdateProducts(r.Context(), body.Products))
}

func (h *Handler) respond(w http.ResponseWriter) func(Config, error) {
	return func(cfg Config, err error) {
		if err != nil {
			common.WriteError(w, err)
			return
		}
		common.JSON(w, http.StatusOK, map[string]any{"data": cfg})
	}
}
