package identity

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSession means nobody is signed in.
	ErrNoSession = errors.New("identity: no active session")
	// ErrSignInCancelled means the sign-in attempt was abandoned or timed out
	// before the provider redirected back.
	ErrSignInCancelled = errors.New("identity: sign-in cancelled")
	// ErrNotConfigured means the provider URL or anon key is missing.
	ErrNotConfigured = errors.New("identity: provider url and anon key are not configured")
	// ErrUnknownProvider rejects providers the sign-in screen does not offer.
	ErrUnknownProvider = errors.New("identity: unknown provider")
)

// ProviderError is an OAuth error the provider redirected back with.
type ProviderError struct {
	Code        string
	Description string
}

func (e *ProviderError) Error() string {
	if e.Description != "" && e.Description != e.Code {
		return fmt.Sprintf("identity: provider refused sign-in: %s: %s", e.Code, e.Description)
	}
	return fmt.Sprintf("identity: provider refused sign-in: %s", e.Code)
}

// AuthError reports a failed call to the identity or profile API.
type AuthError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *AuthError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("identity: %s: %d: %s", e.Op, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("identity: %s: status %d", e.Op, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("identity: %s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("identity: %s failed", e.Op)
	}
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// rejected reports whether the provider answered and refused the request,
// as opposed to being unreachable.
func (e *AuthError) rejected() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}
