package identity

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// pkce holds one sign-in attempt's proof key and redirect nonce.
type pkce struct {
	Verifier  string
	Challenge string
	Nonce     string
}

func newPKCE() (pkce, error) {
	verifier, err := randomToken(32)
	if err != nil {
		return pkce{}, fmt.Errorf("identity: pkce verifier: %w", err)
	}
	nonce, err := randomToken(16)
	if err != nil {
		return pkce{}, fmt.Errorf("identity: pkce nonce: %w", err)
	}
	return pkce{
		Verifier:  verifier,
		Challenge: challengeFor(verifier),
		Nonce:     nonce,
	}, nil
}

// challengeFor derives the S256 code challenge for verifier.
func challengeFor(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
