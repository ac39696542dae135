// Package x provides the REST client for publishing posts through the X API.
package x

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultBaseURL   = "https://api.x.com/2"
	defaultUploadURL = "https://upload.twitter.com/1.1/media/upload.json"

	maxImageSize = 5 * 1024 * 1024
)

var supportedImageTypes = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// PostResult is the outcome of publishing a post.
type PostResult struct {
	ID  string
	URL string
}

// PostOptions carries the optional parts of a post.
type PostOptions struct {
	ReplyToID string
	MediaIDs  []string
}

// Client talks to the X REST API v2 with a bearer access token. Media
// uploads go through the legacy v1.1 endpoint and additionally require
// OAuth 1.0a credentials.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	uploadURL   string
	accessToken string
	signer      *oauth1Signer
	logger      *log.Logger

	username string
}

// NewClient creates an API client. oauth1 may be nil when no media upload is
// needed.
func NewClient(accessToken string, oauth1 *OAuth1Credentials, timeout time.Duration, logger *log.Logger) *Client {
	c := &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     defaultBaseURL,
		uploadURL:   defaultUploadURL,
		accessToken: accessToken,
		logger:      logger,
	}
	if oauth1 != nil {
		c.signer = newOAuth1Signer(*oauth1)
	}
	return c
}

// Username returns the authenticated user's @username, cached per client.
func (c *Client) Username(ctx context.Context) (string, error) {
	if c.username != "" {
		return c.username, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/users/me", nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apiError("fetch user info", resp)
	}

	var payload struct {
		Data struct {
			Username string `json:"username"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode user info: %w", err)
	}

	c.username = payload.Data.Username
	return c.username, nil
}

// CreatePost publishes a post, optionally as a reply or with attached media.
func (c *Client) CreatePost(ctx context.Context, text string, opts PostOptions) (*PostResult, error) {
	body := map[string]any{"text": text}
	if opts.ReplyToID != "" {
		body["reply"] = map[string]string{"in_reply_to_tweet_id": opts.ReplyToID}
	}
	if len(opts.MediaIDs) > 0 {
		body["media"] = map[string][]string{"media_ids": opts.MediaIDs}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode post body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tweets", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, apiError("create post", resp)
	}

	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("failed to decode create response: %w", err)
	}

	username, err := c.Username(ctx)
	if err != nil {
		return nil, err
	}

	return &PostResult{
		ID:  created.Data.ID,
		URL: fmt.Sprintf("https://x.com/%s/status/%s", username, created.Data.ID),
	}, nil
}

// UploadMedia uploads an image file and returns its media ID. Supports
// jpg/jpeg/png/gif/webp up to 5 MB and requires OAuth 1.0a credentials.
func (c *Client) UploadMedia(ctx context.Context, path string) (string, error) {
	if c.signer == nil {
		return "", fmt.Errorf("OAuth 1.0a credentials are required for media uploads")
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !supportedImageTypes[ext] {
		return "", fmt.Errorf("unsupported image format %q (supported: jpg, jpeg, png, gif, webp)", ext)
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to stat image: %w", err)
	}
	if info.Size() > maxImageSize {
		return "", fmt.Errorf("image too large (%.1f MB, maximum 5 MB)", float64(info.Size())/1024/1024)
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("media", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, &buf)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	header, err := c.signer.authorizationHeader(http.MethodPost, c.uploadURL)
	if err != nil {
		return "", fmt.Errorf("failed to sign upload request: %w", err)
	}
	req.Header.Set("Authorization", header)
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to upload media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", apiError("upload media", resp)
	}

	var uploaded struct {
		MediaID       int64  `json:"media_id"`
		MediaIDString string `json:"media_id_string"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}
	mediaID := uploaded.MediaIDString
	if mediaID == "" {
		mediaID = strconv.FormatInt(uploaded.MediaID, 10)
	}
	c.logger.Printf("uploaded media %s (%d bytes)", mediaID, info.Size())
	return mediaID, nil
}

// apiError reports a non-success response with a bounded slice of its body.
func apiError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("failed to %s: %s: %s", op, resp.Status, strings.TrimSpace(string(body)))
}
