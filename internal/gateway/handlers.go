package gateway

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/nodesight/nodesight/internal/auth"
)

// Handler registers the proxied API surface. Session gating happens in the
// auth middleware; administrator-only routes are additionally wrapped here.
type Handler struct {
	fwd    *Forwarder
	logger *zap.Logger
}

// NewHandler creates the proxied route handler.
func NewHandler(fwd *Forwarder, logger *zap.Logger) *Handler {
	return &Handler{fwd: fwd, logger: logger}
}

// RegisterRoutes registers the forwarded API routes on the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Member-accessible routes.
	mux.HandleFunc("GET /api/status", h.forward("/api/status"))
	mux.HandleFunc("POST /api/history", h.forward("/api/history"))
	mux.HandleFunc("GET /api/alerts", h.forward("/api/alerts"))
	mux.HandleFunc("POST /api/alerts/read", h.forward("/api/alerts/read"))
	mux.HandleFunc("POST /api/alerts/clear", h.forward("/api/alerts/clear"))
	mux.HandleFunc("GET /api/settings", h.forward("/api/settings"))
	mux.HandleFunc("GET /api/hq", h.forward("/api/hq"))

	// Administrator-only routes. Threshold updates are admin-gated since
	// they steer every client's issue evaluation.
	mux.HandleFunc("POST /api/settings", auth.RequireAdmin(h.forward("/api/settings")))
	mux.HandleFunc("POST /api/hq", auth.RequireAdmin(h.forward("/api/hq")))
	mux.HandleFunc("GET /api/users", auth.RequireAdmin(h.forward("/api/users")))

	// Node CRUD. The backend registers edit/remove without the /api prefix.
	mux.HandleFunc("POST /api/add", auth.RequireAdmin(h.forward("/api/add")))
	mux.HandleFunc("POST /api/edit", auth.RequireAdmin(h.forward("/edit")))
	mux.HandleFunc("POST /api/remove", auth.RequireAdmin(h.forward("/remove")))

	// Geographic access-rule management.
	mux.HandleFunc("GET /api/admin/authentik-groups", auth.RequireAdmin(h.forward("/api/admin/authentik-groups")))
	mux.HandleFunc("GET /api/admin/provinces", auth.RequireAdmin(h.forward("/api/admin/provinces")))
	mux.HandleFunc("GET /api/admin/province-rules", auth.RequireAdmin(h.forward("/api/admin/province-rules")))
	mux.HandleFunc("POST /api/admin/province-rules", auth.RequireAdmin(h.forward("/api/admin/province-rules")))
}

// forward returns a handler relaying the request to the backend path.
func (h *Handler) forward(backendPath string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.fwd.Forward(w, r, backendPath)
	}
}
