package common_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tienda-api/internal/common"
)

type errorEnvelope struct {
	Error common.ErrorBody `json:"error"`
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) common.ErrorBody {
	t.Helper()
	var env errorEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return env.Error
}

func TestWriteErrorMapsKinds(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", common.NewValidationError("qty", "must be at least 1"), http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"wrapped validation", fmt.Errorf("add item: %w", common.NewValidationError("qty", "too many")), http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"app error", common.NewAppError("COUPON_NOT_FOUND", "coupon not found", http.StatusNotFound, nil), http.StatusNotFound, "COUPON_NOT_FOUND"},
		{"unknown", errors.New("redis: connection refused"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			common.WriteError(rr, tc.err)
			require.Equal(t, tc.status, rr.Code)
			body := decodeError(t, rr)
			require.Equal(t, tc.code, body.Code)
			require.NotContains(t, body.Message, "connection refused")
		})
	}
}

func TestValidationErrorUnwrapsSentinel(t *testing.T) {
	err := common.NewValidationError("zone", "unknown zone")
	require.ErrorIs(t, err, common.ErrValidation)
	require.Equal(t, "zone: unknown zone", err.Error())
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	var dst struct {
		Qty int `json:"qty"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"qty":2,"price":1}`))
	err := common.DecodeJSON(req, &dst)
	require.Equal(t, http.StatusBadRequest, common.AsAppError(err).HTTPStatus)
}

func TestRequireSession(t *testing.T) {
	var seen string
	h := common.RequireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = common.SessionID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "SESSION_REQUIRED", decodeError(t, rr).Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set(common.SessionHeader, "not-a-uuid")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, "SESSION_INVALID", decodeError(t, rr).Code)

	id := common.NewSessionID()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set(common.SessionHeader, " "+strings.ToUpper(id)+" ")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, id, seen)
}

func TestIssueSession(t *testing.T) {
	rr := httptest.NewRecorder()
	common.IssueSession(rr, httptest.NewRequest(http.MethodPost, "/api/v1/session", nil))
	require.Equal(t, http.StatusCreated, rr.Code)
	var body struct {
		Data struct {
			SessionID string `json:"sessionId"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Data.SessionID, 36)
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	status := http.StatusCreated
	calls := 0
	var h http.Handler
	var send func(session string) *httptest.ResponseRecorder
	inFlight := 0
	h = common.Idem{R: client, TTL: time.Hour}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if session, _ := common.SessionID(r.Context()); session == "s4" {
			inFlight = send("s4").Code
		}
		common.JSON(w, status, map[string]any{"data": map[string]any{"orderNumber": fmt.Sprintf("PED-%d", calls)}})
	}))
	send = func(session string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
		req.Header.Set("Idempotency-Key", "order-1")
		req = req.WithContext(common.WithSessionID(req.Context(), session))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	first := send("s1")
	require.Equal(t, http.StatusCreated, first.Code)
	require.Contains(t, first.Body.String(), `"orderNumber":"PED-1"`)

	retry := send("s1")
	require.Equal(t, http.StatusCreated, retry.Code)
	require.Equal(t, first.Body.String(), retry.Body.String())
	require.Equal(t, "application/json", retry.Header().Get("Content-Type"))
	require.Equal(t, "true", retry.Header().Get("Idempotent-Replayed"))
	require.Equal(t, 1, calls)

	require.Equal(t, http.StatusCreated, send("s2").Code)
	require.Equal(t, 2, calls)

	status = http.StatusUnprocessableEntity
	require.Equal(t, http.StatusUnprocessableEntity, send("s3").Code)
	status = http.StatusCreated
	require.Equal(t, http.StatusCreated, send("s3").Code)

	require.Equal(t, http.StatusCreated, send("s4").Code)
	require.Equal(t, http.StatusConflict, inFlight)
}
