package address_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tienda-api/internal/address"
	"github.com/noah-isme/tienda-api/internal/common"
)

const sessionID = "0b5b1d4e-8f0c-4bb0-9a7e-2f1f9b8f2a11"

func newRouter(book *address.Book) http.Handler {
	h := &address.Handler{Book: book}
	r := chi.NewRouter()
	r.Use(common.RequireSession)
	r.Get("/addresses", h.List)
	r.Post("/addresses", h.Create)
	r.Patch("/addresses/{addressID}", h.Update)
	r.Delete("/addresses/{addressID}", h.Delete)
	return r
}

func TestHandlerCreateAndList(t *testing.T) {
	book, _ := newBook(t)
	router := newRouter(book)

	body := `{"name":"Ana","email":"ana@example.com","mobile":{"countryCode":"+53","number":"54690878"},"address":"Calle 23","serviceType":"pickup"}`
	req := httptest.NewRequest(http.MethodPost, "/addresses", strings.NewReader(body))
	req.Header.Set(common.SessionHeader, sessionID)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/addresses", nil)
	req.Header.Set(common.SessionHeader, sessionID)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Data []address.Address `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	require.Equal(t, "Ana", resp.Data[0].Name)
}

func TestHandlerValidationError(t *testing.T) {
	book, _ := newBook(t)
	router := newRouter(book)

	body := `{"name":"Ana","email":"ana@example.com","mobile":{"countryCode":"+56","number":"912345678"},"address":"Calle 1","serviceType":"home_delivery"}`
	req := httptest.NewRequest(http.MethodPost, "/addresses", strings.NewReader(body))
	req.Header.Set(common.SessionHeader, sessionID)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	var resp struct {
		Error common.ErrorBody `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
}

func TestHandlerRequiresSession(t *testing.T) {
	book, _ := newBook(t)
	rr := httptest.NewRecorder()
	newRouter(book).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/addresses", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}
