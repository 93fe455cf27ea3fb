package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// AdLinkFlyClient calls shorteners exposing the AdLinkFly JSON API
// (GET /api?api=KEY&url=URL), such as GyaniLinks and LinkPays.
type AdLinkFlyClient struct {
	client
}

type adLinkFlyResponse struct {
	Status       string          `json:"status"`
	ShortenedURL string          `json:"shortenedUrl"`
	Message      json.RawMessage `json:"message"`
}

// NewGyaniLinks returns a GyaniLinks client.
func NewGyaniLinks(opts Options) *AdLinkFlyClient {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://gyanilinks.com"
	}
	return &AdLinkFlyClient{client: newClient("gyanilinks", opts)}
}

// NewLinkPays returns a LinkPays client.
func NewLinkPays(opts Options) *AdLinkFlyClient {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://linkpays.in"
	}
	return &AdLinkFlyClient{client: newClient("linkpays", opts)}
}

func (c *AdLinkFlyClient) Shorten(ctx context.Context, longURL string) (string, error) {
	query := url.Values{}
	query.Set("api", c.apiKey)
	query.Set("url", longURL)

	status, body, err := c.get(ctx, c.baseURL+"/api?"+query.Encode())
	if err != nil {
		return "", err
	}

	var payload adLinkFlyResponse
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return "", &ProviderError{Provider: c.name, Status: status, Message: "invalid JSON response: " + truncate(body, 200)}
	}
	if payload.Status != "success" {
		return "", &ProviderError{Provider: c.name, Status: status, Message: decodeMessage(payload.Message)}
	}
	if payload.ShortenedURL == "" {
		return "", &ProviderError{Provider: c.name, Status: status, Message: "response has no shortenedUrl"}
	}
	return payload.ShortenedURL, nil
}

// decodeMessage accepts the string or string-list message shapes AdLinkFly returns.
func decodeMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "unknown error"
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil && single != "" {
		return single
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return strings.Join(list, "; ")
	}
	return fmt.Sprintf("unexpected message: %s", truncate(string(raw), 200))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
