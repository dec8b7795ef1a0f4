package catalog

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/tienda-api/internal/common"
)

// Handler exposes public catalog endpoints.
type Handler struct {
	Service *Service
	// Money resolves the display formatter for slider labels. Optional.
	Money func(ctx context.Context) MoneyFormatter
}

// Categories handles GET /api/v1/categories.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Service.ListCategories(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}

// Products handles GET /api/v1/products with filters, sorting, and pagination.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseFilter(r.URL.Query())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	var rows []Product
	if r.URL.Query().Get("featured") == "true" && filter.IsZero() {
		rows, err = h.Service.Featured(r.Context())
	} else {
		rows, err = h.Service.ListProducts(r.Context(), filter)
	}
	if err != nil {
		common.WriteError(w, err)
		return
	}
	page, perPage := common.ParsePagination(r, 0)
	items, meta := common.Paginate(rows, page, perPage)
	common.JSON(w, http.StatusOK, map[string]any{"data": items, "pagination": meta})
}

// Product handles GET /api/v1/products/{productID}.
func (h *Handler) Product(w http.ResponseWriter, r *http.Request) {
	detail, err := h.Service.GetProduct(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": detail})
}

// PriceRange handles GET /api/v1/products/price-range.
func (h *Handler) PriceRange(w http.ResponseWriter, r *http.Request) {
	var money MoneyFormatter
	if h.Money != nil {
		money = h.Money(r.Context())
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": h.Service.PriceRange(r.Context(), money)})
}
