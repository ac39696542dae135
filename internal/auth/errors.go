package auth

import "errors"

// ErrStateMismatch indicates the callback carried a state token different
// from the one generated for this attempt. Treated as security-relevant:
// always fatal, never retried.
var ErrStateMismatch = errors.New("authorization state mismatch")

// ProviderError carries the error parameter reported by the authorization
// provider on the redirect (e.g. access_denied).
type ProviderError struct {
	Reason string
}

func (e *ProviderError) Error() string {
	return "authorization failed: " + e.Reason
}
