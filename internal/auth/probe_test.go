package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestProbe(t *testing.T, handler http.HandlerFunc) *Probe {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	probe := NewProbe(10*time.Second, discardLogger())
	probe.url = server.URL
	return probe
}

func TestProbe_IsValid(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   bool
	}{
		{name: "accepted", status: http.StatusOK, want: true},
		{name: "expired token", status: http.StatusUnauthorized, want: false},
		{name: "forbidden", status: http.StatusForbidden, want: false},
		{name: "server error", status: http.StatusInternalServerError, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotAuth string
			probe := newTestProbe(t, func(w http.ResponseWriter, r *http.Request) {
				gotAuth = r.Header.Get("Authorization")
				w.WriteHeader(tt.status)
			})

			valid := probe.IsValid(context.Background(), "the-token")
			assert.Equal(t, tt.want, valid)
			assert.Equal(t, "Bearer the-token", gotAuth)
		})
	}
}

func TestProbe_TransportFailureIsInvalid(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	probe := NewProbe(time.Second, discardLogger())
	probe.url = server.URL
	server.Close()

	// A dead endpoint reads the same as an invalid token.
	assert.False(t, probe.IsValid(context.Background(), "the-token"))
}
