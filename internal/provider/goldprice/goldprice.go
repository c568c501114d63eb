// Package goldprice is the secondary commodity-price API, used only
// when the charting cascade cannot produce a futures quote. It carries
// a spot price but no change data.
package goldprice

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"quotedesk/internal/httpx"
)

const DefaultBaseURL = "https://api.gold-api.com"

// Client fetches spot metal prices.
type Client struct {
	baseURL string
	client  httpx.Doer
	timeout time.Duration
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL overrides the API root.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithTimeout sets the per-request deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// New creates a client over the given HTTP doer.
func New(client httpx.Doer, opts ...Option) *Client {
	c := &Client{baseURL: DefaultBaseURL, client: client, timeout: 5 * time.Second}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type priceBody struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// Price returns the current spot price for a metal code (e.g. "XAU").
func (c *Client) Price(ctx context.Context, metal string) (float64, error) {
	u := c.baseURL + "/price/" + url.PathEscape(metal)
	body, status, err := httpx.GetBounded(ctx, c.client, u, c.timeout,
		http.Header{"Accept": []string{"application/json"}})
	if err != nil {
		return 0, err
	}
	if status < 200 || status >= 300 {
		return 0, fmt.Errorf("status %d", status)
	}
	var pb priceBody
	if err := json.Unmarshal(body, &pb); err != nil {
		return 0, fmt.Errorf("decode: %w", err)
	}
	if pb.Price <= 0 {
		return 0, fmt.Errorf("non-positive price %v", pb.Price)
	}
	return pb.Price, nil
}
