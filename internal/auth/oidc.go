package auth

import (
	"fmt"
	"net/url"
)

// OIDCProvider holds the redirect contract with the identity provider. The
// actual code exchange is performed by the monitoring backend; the gateway
// only builds the authorize URL and relays the callback code.
type OIDCProvider struct {
	AuthURL     string
	ClientID    string
	RedirectURI string
	Scopes      string
}

// Configured reports whether the provider has the fields needed to start a
// login.
func (p OIDCProvider) Configured() bool {
	return p.AuthURL != "" && p.ClientID != ""
}

// AuthorizeURL builds the browser redirect target for the authorization
// code flow.
func (p OIDCProvider) AuthorizeURL() string {
	params := url.Values{}
	params.Set("client_id", p.ClientID)
	params.Set("redirect_uri", p.RedirectURI)
	params.Set("response_type", "code")
	params.Set("scope", p.Scopes)
	return fmt.Sprintf("%s?%s", p.AuthURL, params.Encode())
}
