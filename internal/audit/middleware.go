package audit

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
)

// Recorder wraps admin write routes and records each request after it is
// handled. Failures to record are logged and never affect the response.
type Recorder struct {
	Log    *Log
	Logger zerolog.Logger
}

// Route configures the entry recorded for a route.
type Route struct {
	Action   string
	Resource string
	Metadata func(*http.Request, int) map[string]any
}

// Middleware records an entry for every request that reaches next.
func (rec Recorder) Middleware(cfg Route) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if rec.Log == nil {
				next.ServeHTTP(w, req)
				return
			}
			sw := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(sw, req)

			var metadata []byte
			if cfg.Metadata != nil {
				if payload := cfg.Metadata(req, sw.Status()); payload != nil {
					if data, err := json.Marshal(payload); err == nil {
						metadata = data
					}
				}
			}
			if err := rec.Log.Record(req.Context(), req, cfg.Action, cfg.Resource, sw.Status(), metadata); err != nil {
				rec.Logger.Warn().Err(err).Str("action", cfg.Action).Msg("audit record failed")
			}
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Status() int {
	if s.status == 0 {
		return http.StatusOK
	}
	return s.status
}
