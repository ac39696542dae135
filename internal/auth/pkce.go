package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// PKCEPair holds the verification codes for one OAuth 2.0 PKCE authorization
// attempt, as specified in RFC 7636. The verifier never leaves the process;
// only the challenge is sent with the authorization request.
type PKCEPair struct {
	Verifier  string
	Challenge string
}

// GeneratePKCE creates a new verifier from 32 cryptographically random bytes
// and derives its S256 challenge: base64url(SHA-256(verifier)), unpadded.
func GeneratePKCE() (PKCEPair, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return PKCEPair{}, fmt.Errorf("failed to generate code verifier: %w", err)
	}
	verifier := base64.RawURLEncoding.EncodeToString(raw)

	digest := sha256.Sum256([]byte(verifier))
	challenge := base64.RawURLEncoding.EncodeToString(digest[:])

	return PKCEPair{Verifier: verifier, Challenge: challenge}, nil
}

// GenerateState creates the random anti-CSRF token round-tripped through the
// authorization redirect. 16 bytes of entropy, url-safe encoding.
func GenerateState() (string, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate state token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
