package coupon

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/tienda-api/internal/common"
	"github.com/noah-isme/tienda-api/internal/pricing"
)

// Source yields the coupon book currently configured.
type Source interface {
	Coupons(ctx context.Context) (Rules, error)
}

// Handler exposes public coupon lookup.
type Handler struct {
	Source Source
	Now    func() time.Time
}

type previewResponse struct {
	Code        string `json:"couponCode"`
	Percent     int    `json:"discountPercent"`
	Description string `json:"description,omitempty"`
	Subtotal    int64  `json:"subtotal"`
	Discount    int64  `json:"discount"`
}

// Preview validates a coupon code against an optional subtotal query value.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	rules, err := h.Source.Coupons(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	subtotal := int64(0)
	if raw := r.URL.Query().Get("subtotal"); raw != "" {
		v := common.ParseInt64Ptr(raw)
		if v == nil || *v < 0 {
			common.WriteError(w, common.NewValidationError("subtotal", "must be a non-negative integer"))
			return
		}
		subtotal = *v
	}
	code := chi.URLParam(r, "code")
	rule, ok := rules.Find(code)
	if !ok {
		common.WriteError(w, AsAppError(ErrNotFound))
		return
	}
	if err := rule.Validate(h.now(), subtotal); err != nil {
		common.WriteError(w, AsAppError(err))
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": previewResponse{
		Code:        rule.Code,
		Percent:     rule.Percent,
		Description: rule.Description,
		Subtotal:    subtotal,
		Discount:    pricing.CouponDiscount(subtotal, rule.Percent),
	}})
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}
