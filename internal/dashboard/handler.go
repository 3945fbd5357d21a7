// Package dashboard serves the embedded browser UI. The dashboard page is
// session-gated; the login page is public.
package dashboard

import (
	"io/fs"
	"net/http"
	"strings"
)

// Handler returns an http.Handler serving the built dashboard assets.
// authenticated reports whether the request carries a valid session; the
// dashboard page redirects to /login without one, and direct requests to
// dashboard.html are bounced so the gate cannot be bypassed.
func Handler(authenticated func(r *http.Request) bool) http.Handler {
	if distFS == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "dashboard not available (dev mode)", http.StatusNotFound)
		})
	}

	subFS, err := fs.Sub(distFS, "dist")
	if err != nil {
		panic("dashboard: failed to create sub filesystem: " + err.Error())
	}

	fileServer := http.FileServer(http.FS(subFS))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// API, stream, and operational routes never fall through to the SPA.
		if strings.HasPrefix(r.URL.Path, "/api/") ||
			strings.HasPrefix(r.URL.Path, "/auth/") ||
			strings.HasPrefix(r.URL.Path, "/ws/") ||
			r.URL.Path == "/healthz" ||
			r.URL.Path == "/readyz" ||
			r.URL.Path == "/metrics" {
			http.NotFound(w, r)
			return
		}

		// Block direct access to the dashboard page file.
		if r.URL.Path == "/dashboard.html" {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}

		switch r.URL.Path {
		case "/login":
			// An authenticated user has no business on the login page.
			if authenticated != nil && authenticated(r) {
				http.Redirect(w, r, "/", http.StatusFound)
				return
			}
			servePage(w, r, fileServer, "/login.html")
			return
		case "/":
			if authenticated != nil && !authenticated(r) {
				http.Redirect(w, r, "/login", http.StatusFound)
				return
			}
			servePage(w, r, fileServer, "/dashboard.html")
			return
		}

		// Static assets are served as-is; anything unknown 404s.
		f, err := subFS.Open(strings.TrimPrefix(r.URL.Path, "/"))
		if err != nil {
			http.NotFound(w, r)
			return
		}
		f.Close()
		fileServer.ServeHTTP(w, r)
	})
}

func servePage(w http.ResponseWriter, r *http.Request, fileServer http.Handler, page string) {
	r.URL.Path = page
	fileServer.ServeHTTP(w, r)
}
