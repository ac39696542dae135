package auth

import (
	"context"
	"io"
	"log"
	"net/http"
	"time"
)

const userInfoURL = "https://api.x.com/2/users/me"

// Probe checks whether an access token is currently accepted by the API.
type Probe struct {
	client *http.Client
	url    string
	logger *log.Logger
}

// NewProbe creates a validity checker with the given per-call timeout.
func NewProbe(timeout time.Duration, logger *log.Logger) *Probe {
	return &Probe{
		client: &http.Client{Timeout: timeout},
		url:    userInfoURL,
		logger: logger,
	}
}

// IsValid reports whether accessToken is accepted by the protected user-info
// endpoint. Only an HTTP 200 counts as valid; any other status and any
// transport failure count as invalid, which drives the Manager's fallback
// rather than surfacing an error.
func (p *Probe) IsValid(ctx context.Context, accessToken string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Printf("token validity probe failed: %v", err)
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode == http.StatusOK
}
