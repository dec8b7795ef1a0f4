package address

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/tienda-api/internal/common"
)

// Handler exposes REST endpoints for the session address book.
type Handler struct {
	Book *Book
}

// List handles GET /api/v1/addresses.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	addresses, err := h.Book.List(r.Context(), session)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": addresses})
}

// Get handles GET /api/v1/addresses/{addressID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	id, ok := addressID(w, r)
	if !ok {
		return
	}
	addr, err := h.Book.Get(r.Context(), session, id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": addr})
}

// Create handles POST /api/v1/addresses.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req Address
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	addr, err := h.Book.Create(r.Context(), session, req)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": addr})
}

// Update handles PATCH /api/v1/addresses/{addressID}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	id, ok := addressID(w, r)
	if !ok {
		return
	}
	var req Address
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	addr, err := h.Book.Update(r.Context(), session, id, req)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": addr})
}

// Delete handles DELETE /api/v1/addresses/{addressID}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	id, ok := addressID(w, r)
	if !ok {
		return
	}
	if err := h.Book.Delete(r.Context(), session, id); err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (string, bool) {
	if h.Book == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "address book not configured", nil)
		return "", false
	}
	session, ok := common.SessionID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "SESSION_REQUIRED", "missing session", nil)
		return "", false
	}
	return session, true
}

func addressID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "addressID"))
	if id == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "address id is required", nil)
		return "", false
	}
	return id, true
}
