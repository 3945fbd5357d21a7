package dashboard

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func serve(t *testing.T, authed bool, path string) *httptest.ResponseRecorder {
	t.Helper()
	h := Handler(func(r *http.Request) bool { return authed })
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestRootRequiresSession(t *testing.T) {
	w := serve(t, false, "/")
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/login" {
		t.Errorf("status = %d, location = %q", w.Code, w.Header().Get("Location"))
	}
}

func TestRootServesDashboardWhenAuthenticated(t *testing.T) {
	w := serve(t, true, "/")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "cards-container") {
		t.Error("dashboard page content missing")
	}
}

func TestLoginPagePublic(t *testing.T) {
	w := serve(t, false, "/login")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestLoginRedirectsAuthenticatedUsers(t *testing.T) {
	w := serve(t, true, "/login")
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/" {
		t.Errorf("status = %d, location = %q", w.Code, w.Header().Get("Location"))
	}
}

func TestDashboardFileCannotBypassGate(t *testing.T) {
	// Direct requests to the page file bounce to / where the gate applies.
	w := serve(t, false, "/dashboard.html")
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/" {
		t.Errorf("status = %d, location = %q", w.Code, w.Header().Get("Location"))
	}
}

func TestReservedPrefixesNeverFallThrough(t *testing.T) {
	for _, path := range []string{"/api/status", "/auth/start", "/ws/dashboard", "/healthz", "/readyz", "/metrics"} {
		w := serve(t, true, path)
		if w.Code != http.StatusNotFound {
			t.Errorf("%s: status = %d, want 404", path, w.Code)
		}
	}
}

func TestUnknownAssetNotFound(t *testing.T) {
	w := serve(t, true, "/no-such-file.js")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d", w.Code)
	}
}
