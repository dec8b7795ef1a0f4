package audit

import (
	"net/http"

	"github.com/noah-isme/tienda-api/internal/common"
)

// Handler exposes the admin audit log.
type Handler struct {
	Log *Log
}

// List handles GET /api/v1/admin/audit.
func (h Handler) List(w http.ResponseWriter, r *http.Request) {
	limit := common.AtoiDefault(r.URL.Query().Get("limit"), 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := common.AtoiDefault(r.URL.Query().Get("offset"), 0)
	if offset < 0 {
		offset = 0
	}
	entries, total, err := h.Log.List(r.Context(), limit, offset)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "AUDIT_QUERY_FAILED", "unable to fetch audit log", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": entries, "total": total})
}
