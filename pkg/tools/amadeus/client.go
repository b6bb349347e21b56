// Package amadeus exposes flight and hotel search over the Amadeus
// self-service APIs as agent tools. OAuth tokens live in an explicitly
// owned CredentialCache handed to the client, never in package state,
// so tests can inject fakes and two clients never share credentials by
// accident.
package amadeus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// DefaultBaseURL is the Amadeus test environment.
const DefaultBaseURL = "https://test.api.amadeus.com"

// tokenEarlyRefresh renews the bearer token this long before expiry.
const tokenEarlyRefresh = 60 * time.Second

// defaultTokenTTL applies when the token response omits expires_in.
const defaultTokenTTL = 1800 * time.Second

// CredentialCache holds client credentials and the bearer token minted
// from them. Safe for concurrent use.
type CredentialCache struct {
	clientID     string
	clientSecret string

	mu        sync.Mutex
	token     string
	expiresAt time.Time

	// now is replaceable in tests.
	now func() time.Time
}

// NewCredentialCache creates a cache for the given API credentials.
func NewCredentialCache(clientID, clientSecret string) *CredentialCache {
	return &CredentialCache{
		clientID:     clientID,
		clientSecret: clientSecret,
		now:          time.Now,
	}
}

// Token returns a valid bearer token, minting a new one when the
// cached token is missing or within a minute of expiry.
func (c *CredentialCache) Token(ctx context.Context, httpClient *http.Client, baseURL string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.token != "" && now.Before(c.expiresAt) {
		return c.token, nil
	}

	if c.clientID == "" || c.clientSecret == "" {
		return "", fmt.Errorf("amadeus: client id and secret must be set")
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		baseURL+"/v1/security/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("amadeus: build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("amadeus: token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("amadeus: token request: status %d: %s", resp.StatusCode, body)
	}

	var payload struct {
		AccessToken string  `json:"access_token"`
		ExpiresIn   float64 `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("amadeus: decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("amadeus: token response carried no access_token")
	}

	ttl := defaultTokenTTL
	if payload.ExpiresIn > 0 {
		ttl = time.Duration(payload.ExpiresIn * float64(time.Second))
	}
	c.token = payload.AccessToken
	c.expiresAt = now.Add(ttl - tokenEarlyRefresh)
	return c.token, nil
}

// Client calls the Amadeus APIs.
type Client struct {
	httpClient *http.Client
	baseURL    string
	creds      *CredentialCache
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL points the client at a different API root, typically an
// httptest server.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(u, "/")
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = h
	}
}

// WithClientLogger sets the structured logger.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client using the given credential cache.
func NewClient(creds *CredentialCache, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    DefaultBaseURL,
		creds:      creds,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// get performs an authorized GET and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	token, err := c.creds.Token(ctx, c.httpClient, c.baseURL)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("amadeus: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("amadeus: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("amadeus: %s: status %d: %s", path, resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("amadeus: decode %s response: %w", path, err)
	}
	return nil
}

// ResolveLocation turns a city or airport name into a 3-letter IATA
// code. Terms that already look like codes pass through unchanged. An
// unknown term resolves to "".
func (c *Client) ResolveLocation(ctx context.Context, term string, subTypes string) (string, error) {
	t := strings.ToUpper(strings.TrimSpace(term))
	if t == "" {
		return "", nil
	}
	if len(t) == 3 && isAlpha(t) {
		return t, nil
	}

	var payload struct {
		Data []struct {
			IataCode string `json:"iataCode"`
		} `json:"data"`
	}
	params := url.Values{
		"subType": {subTypes},
		"keyword": {term},
	}
	if err := c.get(ctx, "/v1/reference-data/locations", params, &payload); err != nil {
		return "", err
	}
	if len(payload.Data) == 0 {
		return "", nil
	}
	return payload.Data[0].IataCode, nil
}

func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
