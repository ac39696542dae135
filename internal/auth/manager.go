// Package auth implements the OAuth 2.0 Authorization-Code-with-PKCE client:
// token acquisition through an interactive browser flow with a transient
// local redirect listener, token refresh, validity probing, and the
// lifecycle state machine that decides between them.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/andreichenchik/x-post-cli/internal/store"
)

// Store keys the Manager owns. No other component writes tokens.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
)

// CredentialStore is the subset of the persistent store the Manager needs.
type CredentialStore interface {
	Get(ctx context.Context, key string) (string, error)
	SetMany(ctx context.Context, items map[string]string) error
}

// Validator probes whether an access token is currently accepted.
type Validator interface {
	IsValid(ctx context.Context, accessToken string) bool
}

// Exchanger trades authorization codes and refresh tokens for token pairs.
type Exchanger interface {
	AuthCodeURL(state, challenge string) string
	ExchangeCode(ctx context.Context, code, verifier string) (TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (TokenPair, error)
}

// Listener captures a single authorization redirect. Start must return only
// once the listener is ready to accept, and must deliver exactly one Outcome.
type Listener interface {
	Start(expectedState string) (<-chan Outcome, error)
}

// Manager is the token lifecycle orchestrator. Given a possibly-missing
// cached token pair it decides whether to reuse, refresh, or fully
// re-authenticate, and persists the result.
type Manager struct {
	store       CredentialStore
	probe       Validator
	tokens      Exchanger
	listener    Listener
	openBrowser func(url string) error
	logger      *log.Logger
}

// NewManager wires the orchestrator. openBrowser is the side-effecting
// collaborator that navigates the user to the consent URL.
func NewManager(cs CredentialStore, probe Validator, tokens Exchanger, listener Listener, openBrowser func(url string) error, logger *log.Logger) *Manager {
	return &Manager{
		store:       cs,
		probe:       probe,
		tokens:      tokens,
		listener:    listener,
		openBrowser: openBrowser,
		logger:      logger,
	}
}

// EnsureAccessToken returns a currently valid access token. Transitions are
// evaluated in order, first match wins:
//
//  1. not forced, cached access token valid → return it unchanged.
//  2. not forced, refresh token present → refresh; on success persist and
//     return, on any failure fall through silently.
//  3. full interactive flow: PKCE + state, callback listener, browser
//     consent, code exchange. State mismatch, provider denial, or exchange
//     rejection are fatal; nothing is partially persisted.
func (m *Manager) EnsureAccessToken(ctx context.Context, force bool) (string, error) {
	access, err := m.cached(ctx, KeyAccessToken)
	if err != nil {
		return "", err
	}
	refresh, err := m.cached(ctx, KeyRefreshToken)
	if err != nil {
		return "", err
	}

	if !force && access != "" && m.probe.IsValid(ctx, access) {
		return access, nil
	}

	if !force && refresh != "" {
		pair, err := m.tokens.Refresh(ctx, refresh)
		if err == nil {
			if err := m.persist(ctx, pair); err != nil {
				return "", err
			}
			return pair.AccessToken, nil
		}
		// Intentional broad catch: a revoked refresh token and a network
		// outage both fall back to the interactive flow.
		m.logger.Printf("token refresh failed, falling back to full authorization: %v", err)
	}

	pair, err := m.authorize(ctx)
	if err != nil {
		return "", err
	}
	if err := m.persist(ctx, pair); err != nil {
		return "", err
	}
	return pair.AccessToken, nil
}

// authorize runs the full interactive browser flow for one attempt.
func (m *Manager) authorize(ctx context.Context) (TokenPair, error) {
	pkce, err := GeneratePKCE()
	if err != nil {
		return TokenPair{}, err
	}
	state, err := GenerateState()
	if err != nil {
		return TokenPair{}, err
	}

	// Bind before opening the browser so the redirect cannot race the
	// listener. A bind failure (port in use) is fatal here.
	outcomes, err := m.listener.Start(state)
	if err != nil {
		return TokenPair{}, err
	}

	authURL := m.tokens.AuthCodeURL(state, pkce.Challenge)
	if err := m.openBrowser(authURL); err != nil {
		m.logger.Printf("could not open browser automatically: %v", err)
	}

	var outcome Outcome
	select {
	case outcome = <-outcomes:
	case <-ctx.Done():
		return TokenPair{}, fmt.Errorf("authorization aborted: %w", ctx.Err())
	}
	if outcome.Err != nil {
		return TokenPair{}, outcome.Err
	}

	pair, err := m.tokens.ExchangeCode(ctx, outcome.Code, pkce.Verifier)
	if err != nil {
		return TokenPair{}, err
	}
	return pair, nil
}

// cached reads a token from the store, treating a missing key as absent.
func (m *Manager) cached(ctx context.Context, key string) (string, error) {
	value, err := m.store.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s from store: %w", key, err)
	}
	return value, nil
}

// persist writes both halves of the pair through to the store together.
func (m *Manager) persist(ctx context.Context, pair TokenPair) error {
	if err := m.store.SetMany(ctx, map[string]string{
		KeyAccessToken:  pair.AccessToken,
		KeyRefreshToken: pair.RefreshToken,
	}); err != nil {
		return fmt.Errorf("failed to persist tokens: %w", err)
	}
	return nil
}
