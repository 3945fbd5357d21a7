package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/nodesight/nodesight/internal/server"
)

// sessionKey is a context key for the authenticated session.
type sessionKey struct{}

// SessionFromContext returns the session attached to the request context, or
// nil for unauthenticated requests.
func SessionFromContext(ctx context.Context) *Session {
	if s, ok := ctx.Value(sessionKey{}).(*Session); ok {
		return s
	}
	return nil
}

// ContextWithSession attaches an authenticated session to the context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// Public API paths that don't require a session.
var publicPaths = map[string]bool{
	"/api/health": true,
}

// Middleware returns the session middleware gating /api/ routes. Auth
// routes, operational endpoints, and WebSocket upgrades (which validate the
// cookie themselves) pass through.
func (h *Handler) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, "/api/") {
				next.ServeHTTP(w, r)
				return
			}
			if publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			sess, ok := h.authenticate(r)
			if !ok {
				server.Unauthorized(w, "valid session required", r.URL.Path)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithSession(r.Context(), sess)))
		})
	}
}

// Authenticate resolves the request's session cookie to an active session.
func (h *Handler) Authenticate(r *http.Request) (*Session, bool) {
	return h.authenticate(r)
}

func (h *Handler) authenticate(r *http.Request) (*Session, bool) {
	id, err := h.codec.SessionFromRequest(r)
	if err != nil {
		return nil, false
	}
	return h.sessions.Get(r.Context(), id)
}

// RequireAdmin rejects non-administrator sessions with the fixed-shape
// denial body clients key on.
func RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := SessionFromContext(r.Context())
		if sess == nil || !sess.User.IsAdmin() {
			WriteAccessDenied(w)
			return
		}
		next(w, r)
	}
}

// WriteAccessDenied writes the fixed-shape 403 body. The shape is part of
// the client contract and must not change.
func WriteAccessDenied(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	json.NewEncoder(w).Encode(map[string]string{"error": "Access Denied"})
}

// RequirePage guards browser page routes, redirecting unauthenticated
// requests to the login page instead of returning a JSON error.
func (h *Handler) RequirePage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := h.authenticate(r); !ok {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}
