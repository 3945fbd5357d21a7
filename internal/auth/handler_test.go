package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func postStart(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/auth/start", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.handleStart(w, r)
	return w
}

func decodeStart(t *testing.T, w *httptest.ResponseRecorder) startResponse {
	t.Helper()
	var resp startResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestStartMissingToken(t *testing.T) {
	a := newTestAuth(t)

	for _, body := range []string{"", "{}", `{"turnstile_token":""}`} {
		w := postStart(t, a.handler, body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, w.Code)
		}
		if resp := decodeStart(t, w); resp.Success || resp.Message != "CAPTCHA missing" {
			t.Errorf("body %q: response = %+v", body, resp)
		}
	}
}

func TestStartCaptchaRejected(t *testing.T) {
	a := newTestAuth(t)
	a.captcha.err = ErrCaptchaFailed

	w := postStart(t, a.handler, `{"turnstile_token":"tok"}`)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if resp := decodeStart(t, w); resp.Message != "CAPTCHA validation failed" {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestStartCaptchaServiceDown(t *testing.T) {
	a := newTestAuth(t)
	a.captcha.err = errors.New("siteverify timeout")

	w := postStart(t, a.handler, `{"turnstile_token":"tok"}`)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if resp := decodeStart(t, w); resp.Message != "Internal Server Error" {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestStartUnconfiguredProvider(t *testing.T) {
	a := newTestAuth(t)
	a.handler.oidc = OIDCProvider{}

	w := postStart(t, a.handler, `{"turnstile_token":"tok"}`)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if resp := decodeStart(t, w); resp.Message != "Server config missing" {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestStartSuccessReturnsAuthorizeURL(t *testing.T) {
	a := newTestAuth(t)

	w := postStart(t, a.handler, `{"turnstile_token":"tok"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decodeStart(t, w)
	if !resp.Success {
		t.Fatalf("response = %+v", resp)
	}

	u, err := url.Parse(resp.RedirectURL)
	if err != nil {
		t.Fatalf("redirect URL: %v", err)
	}
	q := u.Query()
	if q.Get("client_id") != "nodesight" || q.Get("response_type") != "code" {
		t.Errorf("authorize params = %v", q)
	}
	if a.captcha.token != "tok" {
		t.Errorf("verified token = %q", a.captcha.token)
	}
}

func getCallback(t *testing.T, h *Handler, query string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, "/auth/callback?"+query, nil)
	w := httptest.NewRecorder()
	h.handleCallback(w, r)
	return w
}

func loginRedirectError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	u, err := url.Parse(w.Header().Get("Location"))
	if err != nil {
		t.Fatalf("location: %v", err)
	}
	if u.Path != "/login" {
		t.Fatalf("redirect path = %q", u.Path)
	}
	return u.Query().Get("error")
}

func TestCallbackProviderError(t *testing.T) {
	a := newTestAuth(t)

	w := getCallback(t, a.handler, "error=access_denied")

	if got := loginRedirectError(t, w); got != "access_denied" {
		t.Errorf("error param = %q", got)
	}
}

func TestCallbackMissingCode(t *testing.T) {
	a := newTestAuth(t)

	w := getCallback(t, a.handler, "")

	if got := loginRedirectError(t, w); got != "no_code" {
		t.Errorf("error param = %q", got)
	}
}

func TestCallbackBackendMessageForwardedVerbatim(t *testing.T) {
	a := newTestAuth(t)
	a.exchanger.err = &BackendError{Status: http.StatusForbidden, Message: "Account is not in an allowed group"}

	w := getCallback(t, a.handler, "code=abc")

	if got := loginRedirectError(t, w); got != "Account is not in an allowed group" {
		t.Errorf("error param = %q", got)
	}
}

func TestCallbackGenericExchangeFailure(t *testing.T) {
	a := newTestAuth(t)
	a.exchanger.err = errors.New("connection reset")

	w := getCallback(t, a.handler, "code=abc")

	if got := loginRedirectError(t, w); got != "Login Failed" {
		t.Errorf("error param = %q", got)
	}
}

func TestCallbackSuccessEstablishesSession(t *testing.T) {
	a := newTestAuth(t)
	a.exchanger.user = testUser(RoleAdmin)

	w := getCallback(t, a.handler, "code=abc")

	if w.Code != http.StatusFound || w.Header().Get("Location") != "/" {
		t.Fatalf("status = %d, location = %q", w.Code, w.Header().Get("Location"))
	}
	if a.exchanger.code != "abc" {
		t.Errorf("exchanged code = %q", a.exchanger.code)
	}

	cookies := w.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookies = %d", len(cookies))
	}
	id, err := a.codec.Decode(cookies[0].Value)
	if err != nil {
		t.Fatalf("decode issued cookie: %v", err)
	}
	sess, ok := a.manager.Get(httptest.NewRequest(http.MethodGet, "/", nil).Context(), id)
	if !ok || !sess.User.IsAdmin() {
		t.Errorf("session = %+v, ok = %v", sess, ok)
	}
}

func TestLogoutDestroysSession(t *testing.T) {
	a := newTestAuth(t)
	cookie := a.login(t, RoleMember)

	r := httptest.NewRequest(http.MethodGet, "/auth/logout", nil)
	r.AddCookie(cookie)
	w := httptest.NewRecorder()
	a.handler.handleLogout(w, r)

	if w.Code != http.StatusFound || w.Header().Get("Location") != "/login" {
		t.Errorf("status = %d, location = %q", w.Code, w.Header().Get("Location"))
	}
	if a.manager.Count() != 0 {
		t.Error("session survived logout")
	}

	cleared := w.Result().Cookies()
	if len(cleared) != 1 || cleared[0].MaxAge != -1 {
		t.Error("logout did not clear the cookie")
	}
}

func TestMeRequiresSession(t *testing.T) {
	a := newTestAuth(t)

	w := httptest.NewRecorder()
	a.handler.handleMe(w, httptest.NewRequest(http.MethodGet, "/api/me", nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestMeReturnsCurrentUser(t *testing.T) {
	a := newTestAuth(t)
	cookie := a.login(t, RoleMember)

	mux := http.NewServeMux()
	a.handler.RegisterRoutes(mux)
	wrapped := a.handler.Middleware()(mux)

	r := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	r.AddCookie(cookie)
	w := httptest.NewRecorder()
	wrapped.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var u User
	if err := json.NewDecoder(w.Body).Decode(&u); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	if u.Username != "budi" || u.Role != RoleMember {
		t.Errorf("user = %+v", u)
	}
}

func TestExchangeErrorMessage(t *testing.T) {
	wrapped := &BackendError{Status: 401, Message: "Invalid code"}
	if got := exchangeErrorMessage(wrapped); got != "Invalid code" {
		t.Errorf("message = %q", got)
	}
	if got := exchangeErrorMessage(errors.New("plain")); got != "Login Failed" {
		t.Errorf("message = %q", got)
	}
	if got := exchangeErrorMessage(&BackendError{Status: 500}); got != "Login Failed" {
		t.Errorf("empty backend message = %q", got)
	}
}
