package chatapi

import (
	"context"
	"encoding/json"
	"net/url"
)

// Health checks that the backend is up.
func (c *Client) Health(ctx context.Context) error {
	return c.get(ctx, "/healthz", nil, nil)
}

// News fetches legal news through the backend's /api/news proxy. The
// upstream payload is returned undecoded.
func (c *Client) News(ctx context.Context, query url.Values) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "/api/news", query, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}
