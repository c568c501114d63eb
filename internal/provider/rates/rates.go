// Package rates fetches currency conversion rates. The primary host is
// CORS-open and keyless; a second keyless host with a compatible rates
// map serves as fallback when the primary is down.
package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"quotedesk/internal/httpx"
)

const (
	DefaultPrimaryURL  = "https://api.frankfurter.app"
	DefaultFallbackURL = "https://api.exchangerate-api.com"
)

// Client resolves a conversion rate between two ISO currency codes.
type Client struct {
	primaryURL  string
	fallbackURL string
	client      httpx.Doer
	timeout     time.Duration
	log         zerolog.Logger
}

// Option configures the client.
type Option func(*Client)

// WithBaseURLs overrides primary and fallback hosts. An empty fallback
// disables the second attempt.
func WithBaseURLs(primary, fallback string) Option {
	return func(c *Client) {
		if primary != "" {
			c.primaryURL = strings.TrimRight(primary, "/")
		}
		c.fallbackURL = strings.TrimRight(fallback, "/")
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

// WithLogger sets the client logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log.With().Str("component", "rates").Logger() }
}

// New creates a rates client over the given HTTP doer.
func New(client httpx.Doer, opts ...Option) *Client {
	c := &Client{
		primaryURL:  DefaultPrimaryURL,
		fallbackURL: DefaultFallbackURL,
		client:      client,
		timeout:     5 * time.Second,
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ratesBody is the shared response shape of both hosts.
type ratesBody struct {
	Rates map[string]float64 `json:"rates"`
}

// Rate returns how many units of `to` one unit of `from` buys. The
// primary host is tried first; its failure is logged and the fallback
// host queried before giving up.
func (c *Client) Rate(ctx context.Context, from, to string) (float64, error) {
	primary := fmt.Sprintf("%s/latest?from=%s&to=%s",
		c.primaryURL, url.QueryEscape(from), url.QueryEscape(to))

	rate, err := c.fetchRate(ctx, primary, to)
	if err == nil {
		return rate, nil
	}
	c.log.Warn().Str("from", from).Str("to", to).Err(err).Msg("primary rate host failed")

	if c.fallbackURL == "" {
		return 0, err
	}
	fallback := fmt.Sprintf("%s/v4/latest/%s", c.fallbackURL, url.PathEscape(from))
	rate, ferr := c.fetchRate(ctx, fallback, to)
	if ferr != nil {
		return 0, errors.Join(err, ferr)
	}
	return rate, nil
}

func (c *Client) fetchRate(ctx context.Context, u, to string) (float64, error) {
	body, status, err := httpx.GetBounded(ctx, c.client, u, c.timeout,
		http.Header{"Accept": []string{"application/json"}})
	if err != nil {
		return 0, err
	}
	if status < 200 || status >= 300 {
		return 0, fmt.Errorf("status %d", status)
	}
	var rb ratesBody
	if err := json.Unmarshal(body, &rb); err != nil {
		return 0, fmt.Errorf("decode: %w", err)
	}
	rate, ok := rb.Rates[to]
	if !ok || rate <= 0 {
		return 0, fmt.Errorf("no %s rate in response", to)
	}
	return rate, nil
}
