package checkout

import (
	"net/http"

	"github.com/noah-isme/tienda-api/internal/common"
)

// Handler exposes quote and checkout for the session cart.
type Handler struct {
	Svc *Service
}

// Quote handles POST /api/v1/checkout/quote.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	session, req, ok := h.decode(w, r)
	if !ok {
		return
	}
	q, err := h.Svc.Quote(r.Context(), session, req)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": q})
}

// Checkout handles POST /api/v1/checkout.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	session, req, ok := h.decode(w, r)
	if !ok {
		return
	}
	out, err := h.Svc.Submit(r.Context(), session, req, r.UserAgent())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": out})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (string, Request, bool) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return "", Request{}, false
	}
	session, ok := common.SessionID(r.Context())
	if !ok || session == "" {
		common.JSONError(w, http.StatusBadRequest, "SESSION_REQUIRED", "missing "+common.SessionHeader+" header", nil)
		return "", Request{}, false
	}
	var req Request
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return "", Request{}, false
	}
	return session, req, true
}
