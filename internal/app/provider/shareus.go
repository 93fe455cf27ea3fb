package provider

import (
	"context"
	"net/url"
	"strings"
)

const shareUSErrorPrefix = "error/"

// ShareUSClient calls the ShareUS easy API, which answers in plain text.
type ShareUSClient struct {
	client
}

// NewShareUS returns a ShareUS client.
func NewShareUS(opts Options) *ShareUSClient {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.shareus.io"
	}
	return &ShareUSClient{client: newClient("shareus", opts)}
}

func (c *ShareUSClient) Shorten(ctx context.Context, longURL string) (string, error) {
	query := url.Values{}
	query.Set("key", c.apiKey)
	query.Set("link", longURL)

	status, body, err := c.get(ctx, c.baseURL+"/easy_api?"+query.Encode())
	if err != nil {
		return "", err
	}

	if strings.HasPrefix(body, shareUSErrorPrefix) {
		return "", &ProviderError{Provider: c.name, Status: status, Message: strings.TrimPrefix(body, shareUSErrorPrefix)}
	}
	if body == "" {
		return "", &ProviderError{Provider: c.name, Status: status, Message: "empty response"}
	}
	return body, nil
}
