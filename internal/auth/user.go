// Package auth implements the gateway's session layer: CAPTCHA-gated OIDC
// login handoff, signed session cookies, and role-based request gating.
package auth

import "time"

// Role is the binary authorization level attached to a session.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// User is the identity established by the identity provider, as returned by
// the monitoring backend's code exchange.
type User struct {
	Subject  string   `json:"sub"`
	Username string   `json:"username"`
	Email    string   `json:"email,omitempty"`
	Role     Role     `json:"role"`
	Groups   []string `json:"groups,omitempty"`
}

// IsAdmin reports whether the user holds the administrator role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// RoleForGroups derives the role from identity provider group membership.
func RoleForGroups(groups []string, adminGroup string) Role {
	for _, g := range groups {
		if g == adminGroup {
			return RoleAdmin
		}
	}
	return RoleMember
}

// Session is one authenticated browser session.
type Session struct {
	ID        string    `json:"id"`
	User      User      `json:"user"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session TTL has elapsed.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
