package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/nodesight/nodesight/internal/server"
)

// CodeExchanger trades an OIDC authorization code for a verified user. The
// monitoring backend owns the token exchange and group lookup.
type CodeExchanger interface {
	ExchangeCode(ctx context.Context, code string) (User, error)
}

// Handler serves the login handoff routes and the current-user endpoint.
type Handler struct {
	logger    *zap.Logger
	sessions  *SessionManager
	codec     *CookieCodec
	captcha   CaptchaVerifier
	oidc      OIDCProvider
	exchanger CodeExchanger
}

// NewHandler wires the auth HTTP surface.
func NewHandler(logger *zap.Logger, sessions *SessionManager, codec *CookieCodec, captcha CaptchaVerifier, oidc OIDCProvider, exchanger CodeExchanger) *Handler {
	return &Handler{
		logger:    logger,
		sessions:  sessions,
		codec:     codec,
		captcha:   captcha,
		oidc:      oidc,
		exchanger: exchanger,
	}
}

// RegisterRoutes registers the auth endpoints on the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /auth/start", h.handleStart)
	mux.HandleFunc("GET /auth/callback", h.handleCallback)
	mux.HandleFunc("GET /auth/logout", h.handleLogout)
	mux.HandleFunc("GET /api/me", h.handleMe)
}

type startRequest struct {
	TurnstileToken string `json:"turnstile_token"`
}

type startResponse struct {
	Success     bool   `json:"success"`
	RedirectURL string `json:"redirect_url,omitempty"`
	Message     string `json:"message,omitempty"`
}

// handleStart verifies the CAPTCHA token and hands the browser the identity
// provider's authorize URL.
func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TurnstileToken == "" {
		writeStartError(w, http.StatusBadRequest, "CAPTCHA missing")
		return
	}

	if err := h.captcha.Verify(r.Context(), req.TurnstileToken, clientIP(r)); err != nil {
		if errors.Is(err, ErrCaptchaFailed) {
			writeStartError(w, http.StatusBadRequest, "CAPTCHA validation failed")
			return
		}
		h.logger.Error("captcha verification unavailable", zap.Error(err))
		writeStartError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	if !h.oidc.Configured() {
		h.logger.Error("oidc provider not configured")
		writeStartError(w, http.StatusInternalServerError, "Server config missing")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(startResponse{
		Success:     true,
		RedirectURL: h.oidc.AuthorizeURL(),
	})
}

// handleCallback receives the authorization code, exchanges it through the
// backend, and establishes the session. Failures redirect back to the login
// page with the error message in the query string.
func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if errParam := query.Get("error"); errParam != "" {
		redirectLoginError(w, r, errParam)
		return
	}
	code := query.Get("code")
	if code == "" {
		redirectLoginError(w, r, "no_code")
		return
	}

	user, err := h.exchanger.ExchangeCode(r.Context(), code)
	if err != nil {
		h.logger.Warn("code exchange failed", zap.Error(err))
		redirectLoginError(w, r, exchangeErrorMessage(err))
		return
	}

	sess, err := h.sessions.Create(r.Context(), user)
	if err != nil {
		h.logger.Error("create session", zap.Error(err))
		redirectLoginError(w, r, "Login Failed")
		return
	}

	value, err := h.codec.Issue(sess.ID, sess.ExpiresAt)
	if err != nil {
		h.logger.Error("issue session cookie", zap.Error(err))
		redirectLoginError(w, r, "Login Failed")
		return
	}

	h.codec.SetCookie(w, value, sess.ExpiresAt)
	h.logger.Info("user logged in",
		zap.String("username", user.Username),
		zap.String("role", string(user.Role)),
	)
	http.Redirect(w, r, "/", http.StatusFound)
}

// handleLogout destroys the session and clears the cookie.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if id, err := h.codec.SessionFromRequest(r); err == nil {
		h.sessions.Delete(r.Context(), id)
	}
	h.codec.ClearCookie(w)
	http.Redirect(w, r, "/login", http.StatusFound)
}

// handleMe returns the current user's identity and role.
func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())
	if sess == nil {
		server.Unauthorized(w, "valid session required", r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sess.User)
}

func writeStartError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(startResponse{Success: false, Message: msg})
}

func redirectLoginError(w http.ResponseWriter, r *http.Request, msg string) {
	http.Redirect(w, r, "/login?error="+url.QueryEscape(msg), http.StatusFound)
}

// exchangeErrorMessage surfaces backend-provided messages verbatim when
// available.
func exchangeErrorMessage(err error) string {
	var be *BackendError
	if errors.As(err, &be) && be.Message != "" {
		return be.Message
	}
	return "Login Failed"
}

// BackendError carries a message forwarded verbatim from the monitoring
// backend's login rejection.
type BackendError struct {
	Status  int
	Message string
}

func (e *BackendError) Error() string {
	return e.Message
}

func clientIP(r *http.Request) string {
	host := r.RemoteAddr
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		host = ip
	}
	return host
}
