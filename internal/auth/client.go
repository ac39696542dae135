package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// X OAuth 2.0 endpoints and the scopes the tool needs. offline.access is
// what makes the provider issue a refresh token.
const (
	authorizeURL = "https://twitter.com/i/oauth2/authorize"
	tokenURL     = "https://api.x.com/2/oauth2/token"

	scopes = "tweet.write tweet.read users.read offline.access"
)

// TokenPair is the access/refresh credential pair issued by the token
// endpoint. Both values are opaque bearer strings.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// TokenClient trades authorization codes and refresh tokens for fresh token
// pairs. Calls are single-shot with a bounded timeout; retry and fallback
// decisions belong to the Manager.
type TokenClient struct {
	conf    *oauth2.Config
	timeout time.Duration
}

// NewTokenClient creates a client authenticated with basic credentials
// (client id/secret) against the X token endpoint.
func NewTokenClient(clientID, clientSecret, redirectURI string, timeout time.Duration) *TokenClient {
	return &TokenClient{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       strings.Split(scopes, " "),
			Endpoint: oauth2.Endpoint{
				AuthURL:   authorizeURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		timeout: timeout,
	}
}

// AuthCodeURL composes the consent-redirect URL for one authorization
// attempt, binding it to the given anti-CSRF state and PKCE challenge.
func (c *TokenClient) AuthCodeURL(state, challenge string) string {
	return c.conf.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", challenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

// ExchangeCode trades an authorization code plus its PKCE verifier for a
// token pair. The endpoint rejects expired codes and verifier mismatches.
func (c *TokenClient) ExchangeCode(ctx context.Context, code, verifier string) (TokenPair, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	tok, err := c.conf.Exchange(ctx, code,
		oauth2.SetAuthURLParam("code_verifier", verifier),
	)
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	return TokenPair{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken}, nil
}

// Refresh trades a refresh token for a new token pair. If the provider does
// not rotate the refresh token, the old one is preserved in the result.
func (c *TokenClient) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	src := c.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to refresh token: %w", err)
	}

	pair := TokenPair{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken}
	if pair.RefreshToken == "" {
		pair.RefreshToken = refreshToken
	}
	return pair, nil
}
