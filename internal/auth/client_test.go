package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tokenEndpoint fakes the provider token endpoint and records the last
// form-encoded request it saw.
type tokenEndpoint struct {
	lastForm     map[string]string
	lastUser     string
	lastPassword string
	status       int
	response     string
}

func (e *tokenEndpoint) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		e.lastForm = make(map[string]string)
		for key := range r.PostForm {
			e.lastForm[key] = r.PostForm.Get(key)
		}
		e.lastUser, e.lastPassword, _ = r.BasicAuth()

		if e.status != 0 && e.status != http.StatusOK {
			http.Error(w, e.response, e.status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(e.response))
	}
}

func newTestTokenClient(t *testing.T, endpoint *tokenEndpoint) *TokenClient {
	t.Helper()
	server := httptest.NewServer(endpoint.handler())
	t.Cleanup(server.Close)

	client := NewTokenClient("client-id", "client-secret", "http://localhost:8000/callback", 30*time.Second)
	client.conf.Endpoint.TokenURL = server.URL
	return client
}

func TestTokenClient_AuthCodeURL(t *testing.T) {
	client := NewTokenClient("client-id", "client-secret", "http://localhost:8000/callback", time.Second)

	url := client.AuthCodeURL("state-token", "challenge-value")

	assert.Contains(t, url, authorizeURL)
	assert.Contains(t, url, "response_type=code")
	assert.Contains(t, url, "client_id=client-id")
	assert.Contains(t, url, "state=state-token")
	assert.Contains(t, url, "code_challenge=challenge-value")
	assert.Contains(t, url, "code_challenge_method=S256")
	assert.Contains(t, url, "redirect_uri=")
	assert.Contains(t, url, "scope=")
}

func TestTokenClient_ExchangeCode(t *testing.T) {
	endpoint := &tokenEndpoint{
		response: `{"access_token":"a1","refresh_token":"r1","token_type":"bearer"}`,
	}
	client := newTestTokenClient(t, endpoint)

	pair, err := client.ExchangeCode(context.Background(), "abc123", "verifier-value")
	require.NoError(t, err)

	assert.Equal(t, TokenPair{AccessToken: "a1", RefreshToken: "r1"}, pair)
	assert.Equal(t, "authorization_code", endpoint.lastForm["grant_type"])
	assert.Equal(t, "abc123", endpoint.lastForm["code"])
	assert.Equal(t, "verifier-value", endpoint.lastForm["code_verifier"])
	assert.Equal(t, "http://localhost:8000/callback", endpoint.lastForm["redirect_uri"])

	// Client authenticates with basic credentials.
	assert.Equal(t, "client-id", endpoint.lastUser)
	assert.Equal(t, "client-secret", endpoint.lastPassword)
}

func TestTokenClient_ExchangeCodeRejected(t *testing.T) {
	endpoint := &tokenEndpoint{
		status:   http.StatusBadRequest,
		response: `{"error":"invalid_grant"}`,
	}
	client := newTestTokenClient(t, endpoint)

	_, err := client.ExchangeCode(context.Background(), "expired-code", "verifier")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to exchange authorization code")
}

func TestTokenClient_Refresh(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     TokenPair
	}{
		{
			name:     "rotated refresh token",
			response: `{"access_token":"a2","refresh_token":"r2","token_type":"bearer"}`,
			want:     TokenPair{AccessToken: "a2", RefreshToken: "r2"},
		},
		{
			name:     "refresh token not rotated",
			response: `{"access_token":"a2","token_type":"bearer"}`,
			want:     TokenPair{AccessToken: "a2", RefreshToken: "old-refresh"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			endpoint := &tokenEndpoint{response: tt.response}
			client := newTestTokenClient(t, endpoint)

			pair, err := client.Refresh(context.Background(), "old-refresh")
			require.NoError(t, err)

			assert.Equal(t, tt.want, pair)
			assert.Equal(t, "refresh_token", endpoint.lastForm["grant_type"])
			assert.Equal(t, "old-refresh", endpoint.lastForm["refresh_token"])
		})
	}
}

func TestTokenClient_RefreshRejected(t *testing.T) {
	endpoint := &tokenEndpoint{
		status:   http.StatusUnauthorized,
		response: `{"error":"invalid_request"}`,
	}
	client := newTestTokenClient(t, endpoint)

	_, err := client.Refresh(context.Background(), "revoked-refresh")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to refresh token")
}
