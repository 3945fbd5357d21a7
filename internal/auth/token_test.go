package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestCodec() *CookieCodec {
	return NewCookieCodec([]byte("test-secret"), "nodesight_session", false)
}

func TestCookieCodecRoundTrip(t *testing.T) {
	codec := newTestCodec()

	value, err := codec.Issue("session-123", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	id, err := codec.Decode(value)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if id != "session-123" {
		t.Errorf("decoded session = %q, want session-123", id)
	}
}

func TestCookieCodecRejectsTamperedToken(t *testing.T) {
	codec := newTestCodec()

	value, err := codec.Issue("session-123", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// Flip a character in the signature segment.
	parts := strings.Split(value, ".")
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	if _, err := codec.Decode(tampered); err == nil {
		t.Error("tampered token decoded without error")
	}
}

func TestCookieCodecRejectsWrongSecret(t *testing.T) {
	value, err := newTestCodec().Issue("session-123", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	other := NewCookieCodec([]byte("different-secret"), "nodesight_session", false)
	if _, err := other.Decode(value); err == nil {
		t.Error("token verified under a different secret")
	}
}

func TestCookieCodecRejectsExpiredToken(t *testing.T) {
	codec := newTestCodec()

	value, err := codec.Issue("session-123", time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := codec.Decode(value); err == nil {
		t.Error("expired token decoded without error")
	}
}

func TestSessionFromRequest(t *testing.T) {
	codec := newTestCodec()

	value, err := codec.Issue("session-123", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	r := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	r.AddCookie(&http.Cookie{Name: "nodesight_session", Value: value})

	id, err := codec.SessionFromRequest(r)
	if err != nil || id != "session-123" {
		t.Errorf("SessionFromRequest = %q, %v", id, err)
	}

	bare := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	if _, err := codec.SessionFromRequest(bare); err == nil {
		t.Error("request without cookie resolved a session")
	}
}

func TestSetAndClearCookie(t *testing.T) {
	codec := newTestCodec()

	w := httptest.NewRecorder()
	codec.SetCookie(w, "value", time.Now().Add(time.Hour))

	cookies := w.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookies set = %d", len(cookies))
	}
	c := cookies[0]
	if c.Name != "nodesight_session" || !c.HttpOnly || c.Path != "/" || c.SameSite != http.SameSiteLaxMode {
		t.Errorf("cookie attributes = %+v", c)
	}

	w = httptest.NewRecorder()
	codec.ClearCookie(w)
	cleared := w.Result().Cookies()
	if len(cleared) != 1 || cleared[0].MaxAge != -1 {
		t.Error("ClearCookie did not expire the cookie")
	}
}
