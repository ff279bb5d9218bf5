// Package httpapi exposes the session boundary over HTTP. It owns cookie
// transport only: the access token produced by login is stored as an
// HTTP-only, same-site-strict cookie and read back for "who am I"; all
// authentication decisions live in the auth package.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ggoodman/cognito-auth-go/auth"
	"github.com/ggoodman/cognito-auth-go/internal/logctx"
)

const sessionCookieName = "access_token"

// Config controls the transport boundary.
type Config struct {
	// AllowedOrigin enables single-origin CORS with credentials for the
	// web client. Empty disables CORS headers entirely.
	AllowedOrigin string

	// SecureCookies marks the session cookie Secure. Leave false only for
	// local development over plain HTTP.
	SecureCookies bool

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Handler serves the /auth routes.
type Handler struct {
	sessions *auth.SessionAuthenticator
	cfg      Config
	log      *slog.Logger
	router   *mux.Router
}

// New wires the routes.
func New(sessions *auth.SessionAuthenticator, cfg Config) (*Handler, error) {
	if sessions == nil {
		return nil, errors.New("httpapi: session authenticator is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	h := &Handler{sessions: sessions, cfg: cfg, log: cfg.Logger}

	r := mux.NewRouter()
	r.Use(h.requestContext)
	r.Use(h.cors)
	r.HandleFunc("/auth/login", requireJSON(h.login)).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/auth/register", requireJSON(h.register)).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/auth/logout", h.logout).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/auth/me", h.me).Methods(http.MethodGet, http.MethodOptions)
	h.router = r

	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	ctx := logctx.WithAuthData(r.Context(), &logctx.AuthData{Flow: "login"})

	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}

	tokens, err := h.sessions.Login(ctx, req.Email, req.Password)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	http.SetCookie(w, h.sessionCookie(tokens.AccessToken, int(tokens.ExpiresIn)))
	h.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	ctx := logctx.WithAuthData(r.Context(), &logctx.AuthData{Flow: "whoami"})

	var token string
	if c, err := r.Cookie(sessionCookieName); err == nil {
		token = c.Value
	}

	id, err := h.sessions.WhoAmI(ctx, token)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, id)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	// Stateless sessions: clearing the cookie is the whole logout.
	c := h.sessionCookie("", -1)
	http.SetCookie(w, c)
	h.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	ctx := logctx.WithAuthData(r.Context(), &logctx.AuthData{Flow: "register"})

	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}

	reg, err := h.sessions.Register(ctx, req.Email, req.Password, req.Name)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]any{"userId": reg.UserID})
}

func (h *Handler) sessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     sessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cfg.SecureCookies,
		SameSite: http.SameSiteStrictMode,
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, ref any) bool {
	if err := json.NewDecoder(r.Body).Decode(ref); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
		return false
	}
	return true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps the auth error taxonomy onto boundary statuses. Internal
// causes are logged here and never reach the response body.
func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	var verr *auth.ValidationError
	switch {
	case errors.As(err, &verr):
		h.writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": verr.Error(),
			"kind":  string(verr.Kind),
		})
	case errors.Is(err, auth.ErrInvalidCredentials):
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
	case errors.Is(err, auth.ErrUnauthenticated):
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthenticated"})
	case errors.Is(err, auth.ErrProviderUnavailable):
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "identity provider unavailable"})
	default:
		h.log.ErrorContext(ctx, "unhandled error", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
