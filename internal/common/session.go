package common

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// SessionHeader carries the anonymous shopper session issued by POST /session.
const SessionHeader = "X-Session-ID"

// NewSessionID issues a fresh shopper session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// RequireSession rejects requests without a well-formed session header and
// stores the session identifier on the request context.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(SessionHeader))
		if raw == "" {
			JSONError(w, http.StatusBadRequest, "SESSION_REQUIRED", "missing "+SessionHeader+" header", nil)
			return
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			JSONError(w, http.StatusBadRequest, "SESSION_INVALID", "invalid session id", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), id.String())))
	})
}

// IssueSession handles POST /api/v1/session. A shopper keeps the returned id
// and sends it as SessionHeader on every cart, address and checkout call.
func IssueSession(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusCreated, map[string]any{"data": map[string]string{"sessionId": NewSessionID()}})
}
