// Package provider talks to the third-party link lockers that wrap a reward
// callback URL in an advertising page.
package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "LinkRewards/1.0"
	maxBodyBytes     = 64 << 10
)

var (
	// ErrRateLimited is returned when the local window is exhausted or the upstream answers 429.
	ErrRateLimited = errors.New("provider rate limit exceeded")
	// ErrMissingAPIKey is returned when a provider is used without a configured credential.
	ErrMissingAPIKey = errors.New("provider api key is not configured")
	// ErrNoShortener is returned for providers that are not driven through a shortening API.
	ErrNoShortener = errors.New("provider has no shortening api")
)

// Shortener turns a long URL into a provider-locked short URL.
type Shortener interface {
	Shorten(ctx context.Context, longURL string) (string, error)
}

// ProviderError describes an upstream failure or a non-success payload.
type ProviderError struct {
	Provider string
	Status   int
	Message  string
}

func (e *ProviderError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Provider, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// Is lets an upstream 429 match ErrRateLimited.
func (e *ProviderError) Is(target error) bool {
	return target == ErrRateLimited && e.Status == http.StatusTooManyRequests
}

// Options configures a provider client.
type Options struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	UserAgent  string
	Limiter    Limiter
	HTTPClient *http.Client
}

// client holds the plumbing shared by every provider implementation.
type client struct {
	name      string
	apiKey    string
	baseURL   string
	userAgent string
	limiter   Limiter
	http      *http.Client
}

func newClient(name string, opts Options) client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	limiter := opts.Limiter
	if limiter == nil {
		limiter = NewFixedWindow(DefaultRateLimit, time.Minute)
	}

	return client{
		name:      name,
		apiKey:    opts.APIKey,
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		userAgent: userAgent,
		limiter:   limiter,
		http:      httpClient,
	}
}

// get issues one rate-limited GET and returns the trimmed body.
// HTTP errors are returned as *ProviderError.
func (c *client) get(ctx context.Context, endpoint string) (int, string, error) {
	if c.apiKey == "" {
		return 0, "", ErrMissingAPIKey
	}
	if !c.limiter.Allow(ctx) {
		return 0, "", ErrRateLimited
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, "", fmt.Errorf("%s: build request: %w", c.name, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json, text/plain")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, "", &ProviderError{Provider: c.name, Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, "", &ProviderError{Provider: c.name, Status: resp.StatusCode, Message: "read body: " + err.Error()}
	}
	body := strings.TrimSpace(string(raw))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return resp.StatusCode, body, &ProviderError{Provider: c.name, Status: resp.StatusCode, Message: "rate limit exceeded"}
	case resp.StatusCode >= http.StatusBadRequest:
		return resp.StatusCode, body, &ProviderError{Provider: c.name, Status: resp.StatusCode, Message: fmt.Sprintf("HTTP %d - %s", resp.StatusCode, body)}
	}

	return resp.StatusCode, body, nil
}
