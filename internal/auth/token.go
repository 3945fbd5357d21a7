package auth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// cookieClaims is the JWT payload carried in the session cookie. The cookie
// only names the session; all identity data stays server-side.
type cookieClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}

// CookieCodec signs and validates the session cookie.
type CookieCodec struct {
	secret     []byte
	cookieName string
	secure     bool
}

// NewCookieCodec creates a codec with the given HS256 signing secret.
func NewCookieCodec(secret []byte, cookieName string, secure bool) *CookieCodec {
	return &CookieCodec{secret: secret, cookieName: cookieName, secure: secure}
}

// Issue signs a cookie value binding the session ID until expiry.
func (c *CookieCodec) Issue(sessionID string, expiresAt time.Time) (string, error) {
	now := time.Now()
	claims := cookieClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    "nodesight",
		},
		SessionID: sessionID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign session cookie: %w", err)
	}
	return signed, nil
}

// Decode validates a cookie value and returns the session ID it names.
func (c *CookieCodec) Decode(value string) (string, error) {
	token, err := jwt.ParseWithClaims(value, &cookieClaims{}, func(_ *jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("parse session cookie: %w", err)
	}

	claims, ok := token.Claims.(*cookieClaims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return "", fmt.Errorf("invalid session cookie claims")
	}
	return claims.SessionID, nil
}

// SessionFromRequest extracts and validates the session ID from the request
// cookie.
func (c *CookieCodec) SessionFromRequest(r *http.Request) (string, error) {
	cookie, err := r.Cookie(c.cookieName)
	if err != nil {
		return "", fmt.Errorf("no session cookie: %w", err)
	}
	return c.Decode(cookie.Value)
}

// SetCookie writes the session cookie on the response.
func (c *CookieCodec) SetCookie(w http.ResponseWriter, value string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.cookieName,
		Value:    value,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie on the response.
func (c *CookieCodec) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
