package httpapi

import (
	"net/http"

	"github.com/elnormous/contenttype"
	"github.com/google/uuid"

	"github.com/ggoodman/cognito-auth-go/internal/logctx"
)

var jsonMediaType = contenttype.NewMediaType("application/json")

// requestContext tags every request with an id and metadata that the logctx
// handler folds into each log record.
func (h *Handler) requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rd := &logctx.RequestData{
			RequestID:  uuid.NewString(),
			Method:     r.Method,
			Path:       r.URL.Path,
			UserAgent:  r.UserAgent(),
			RemoteAddr: r.RemoteAddr,
		}
		next.ServeHTTP(w, r.WithContext(logctx.WithRequestData(r.Context(), rd)))
	})
}

// cors emits single-origin CORS headers with credentials and answers
// preflight requests. The cookie-based session requires credentialed CORS,
// which forbids a wildcard origin.
func (h *Handler) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.cfg.AllowedOrigin != "" && r.Header.Get("Origin") == h.cfg.AllowedOrigin {
			w.Header().Set("Access-Control-Allow-Origin", h.cfg.AllowedOrigin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireJSON rejects bodies that are not declared application/json.
func requireJSON(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctype, err := contenttype.GetMediaType(r)
		if err != nil || !ctype.Matches(jsonMediaType) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnsupportedMediaType)
			_, _ = w.Write([]byte(`{"error":"content-type must be application/json"}`))
			return
		}
		next(w, r)
	}
}
