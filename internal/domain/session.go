package domain

import (
	"strings"
	"time"
)

// Role is the access-level label stored in a user's profile.
type Role string

const (
	RoleWriter Role = "writer"
	RoleEditor Role = "editor"
)

// DefaultRole applies until the profile lookup answers, and whenever it fails.
const DefaultRole = RoleWriter

// CanChangeStatus reports whether the role may use the status control.
// This gates the interface only; the backend must authorise status changes itself.
func (r Role) CanChangeStatus() bool {
	return r == RoleEditor
}

// OrDefault returns r, or DefaultRole when r is blank.
func (r Role) OrDefault() Role {
	if strings.TrimSpace(string(r)) == "" {
		return DefaultRole
	}
	return Role(strings.TrimSpace(string(r)))
}

// Provider names an OAuth identity provider offered on the sign-in screen.
type Provider string

const (
	ProviderGitHub Provider = "github"
	ProviderGoogle Provider = "google"
)

// Providers is the order sign-in choices are presented in.
var Providers = []Provider{ProviderGitHub, ProviderGoogle}

// DisplayName is the label used on sign-in buttons.
func (p Provider) DisplayName() string {
	switch p {
	case ProviderGitHub:
		return "GitHub"
	case ProviderGoogle:
		return "Google"
	default:
		return string(p)
	}
}

// Valid reports whether p is one of the supported providers.
func (p Provider) Valid() bool {
	for _, candidate := range Providers {
		if candidate == p {
			return true
		}
	}
	return false
}

// User is the identity attached to a session.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// Session is the authenticated-identity handle issued after sign-in.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// Expired reports whether the access token is within margin of expiring.
func (s *Session) Expired(now time.Time, margin time.Duration) bool {
	if s == nil {
		return true
	}
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(margin).Before(s.ExpiresAt)
}

// UserID returns the session's user id, or "" for a nil session.
func (s *Session) UserID() string {
	if s == nil {
		return ""
	}
	return s.User.ID
}
