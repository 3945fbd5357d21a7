package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultVerifyURL is the Cloudflare Turnstile siteverify endpoint.
const DefaultVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

// ErrCaptchaFailed is returned when the CAPTCHA token does not verify.
var ErrCaptchaFailed = fmt.Errorf("captcha validation failed")

// CaptchaVerifier validates a client-solved CAPTCHA token before the login
// handoff begins.
type CaptchaVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

// TurnstileVerifier verifies tokens against the Cloudflare Turnstile API.
type TurnstileVerifier struct {
	secret    string
	verifyURL string
	client    *http.Client
}

// NewTurnstileVerifier creates a verifier. verifyURL falls back to the
// Cloudflare endpoint when empty.
func NewTurnstileVerifier(secret, verifyURL string) *TurnstileVerifier {
	if verifyURL == "" {
		verifyURL = DefaultVerifyURL
	}
	return &TurnstileVerifier{
		secret:    secret,
		verifyURL: verifyURL,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Verify checks the token with the siteverify endpoint. An empty secret
// disables verification entirely for development setups.
func (v *TurnstileVerifier) Verify(ctx context.Context, token, remoteIP string) error {
	if v.secret == "" {
		return nil
	}

	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build siteverify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("siteverify request: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		Success    bool     `json:"success"`
		ErrorCodes []string `json:"error-codes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode siteverify response: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("%w: %s", ErrCaptchaFailed, strings.Join(result.ErrorCodes, ", "))
	}
	return nil
}
