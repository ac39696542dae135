package x

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OAuth1Credentials are the consumer and token credentials required by the
// legacy v1.1 media upload endpoint, which does not accept OAuth 2.0 user
// tokens.
type OAuth1Credentials struct {
	APIKey            string
	APIKeySecret      string
	AccessToken       string
	AccessTokenSecret string
}

// oauth1Signer produces OAuth 1.0a HMAC-SHA1 Authorization headers.
type oauth1Signer struct {
	creds OAuth1Credentials
	// Overridable for deterministic signatures in tests.
	nonce func() string
	clock func() time.Time
}

func newOAuth1Signer(creds OAuth1Credentials) *oauth1Signer {
	return &oauth1Signer{
		creds: creds,
		nonce: func() string { return strings.ReplaceAll(uuid.NewString(), "-", "") },
		clock: time.Now,
	}
}

// authorizationHeader signs a request with no form-encoded body parameters
// (multipart uploads) and returns the OAuth Authorization header value.
func (s *oauth1Signer) authorizationHeader(method, requestURL string) (string, error) {
	u, err := url.Parse(requestURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse request URL: %w", err)
	}

	params := map[string]string{
		"oauth_consumer_key":     s.creds.APIKey,
		"oauth_nonce":            s.nonce(),
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        strconv.FormatInt(s.clock().Unix(), 10),
		"oauth_token":            s.creds.AccessToken,
		"oauth_version":          "1.0",
	}
	for key, values := range u.Query() {
		params[key] = values[0]
	}

	baseURL := u.Scheme + "://" + u.Host + u.Path
	signature := s.sign(method, baseURL, params)
	params["oauth_signature"] = signature

	keys := make([]string, 0, len(params))
	for key := range params {
		if strings.HasPrefix(key, "oauth_") {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("OAuth ")
	for i, key := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%q", percentEncode(key), percentEncode(params[key]))
	}
	return b.String(), nil
}

// sign computes the HMAC-SHA1 signature over the RFC 5849 base string.
func (s *oauth1Signer) sign(method, baseURL string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, percentEncode(key)+"="+percentEncode(params[key]))
	}

	base := strings.Join([]string{
		strings.ToUpper(method),
		percentEncode(baseURL),
		percentEncode(strings.Join(pairs, "&")),
	}, "&")

	signingKey := percentEncode(s.creds.APIKeySecret) + "&" + percentEncode(s.creds.AccessTokenSecret)
	mac := hmac.New(sha1.New, []byte(signingKey))
	mac.Write([]byte(base))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// percentEncode applies the strict RFC 3986 encoding OAuth 1.0a requires:
// only ALPHA, DIGIT, '-', '.', '_', '~' pass through.
func percentEncode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9',
			c == '-', c == '.', c == '_', c == '~':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}
