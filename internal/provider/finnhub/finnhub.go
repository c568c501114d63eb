// Package finnhub is the client for the primary quote and candle API.
// It is reached directly (the API is CORS-open) and requires a caller
// supplied credential on every request.
package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"quotedesk/internal/httpx"
	"quotedesk/internal/quote"
	"quotedesk/internal/ratelimit"
)

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://finnhub.io/api/v1"

// Client calls the quote and candle endpoints. A zero limiter means
// calls are not gated client-side.
type Client struct {
	baseURL string
	client  httpx.Doer
	timeout time.Duration
	limiter *ratelimit.TokenBucket
	log     zerolog.Logger
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL overrides the API root (tests point this at httptest).
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

// WithLimiter gates outbound calls with a token bucket.
func WithLimiter(tb *ratelimit.TokenBucket) Option {
	return func(c *Client) { c.limiter = tb }
}

// WithLogger sets the client logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log.With().Str("component", "finnhub").Logger() }
}

// New creates a client over the given HTTP doer.
func New(client httpx.Doer, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		client:  client,
		timeout: httpx.DefaultTimeout,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// QuoteResponse is the raw quote payload. Change fields are pointers:
// the provider reports null change for unknown symbols, and that
// distinction drives not-found detection downstream.
type QuoteResponse struct {
	Current   float64  `json:"c"`
	Change    *float64 `json:"d"`
	ChangePct *float64 `json:"dp"`
	High      float64  `json:"h"`
	Low       float64  `json:"l"`
	Open      float64  `json:"o"`
	PrevClose float64  `json:"pc"`
}

// CandleResponse is the raw candle payload. Status is "ok" or "no_data".
type CandleResponse struct {
	Status    string    `json:"s"`
	Timestamp []int64   `json:"t"`
	Open      []float64 `json:"o"`
	High      []float64 `json:"h"`
	Low       []float64 `json:"l"`
	Close     []float64 `json:"c"`
	Volume    []float64 `json:"v"`
}

// CandleEndpoint picks the candle endpoint for a provider symbol:
// exchange-prefixed crypto and forex symbols have their own paths.
func CandleEndpoint(symbol string) string {
	switch {
	case strings.HasPrefix(symbol, "BINANCE:"):
		return "crypto/candle"
	case strings.HasPrefix(symbol, "OANDA:"), strings.HasPrefix(symbol, "FX:"):
		return "forex/candle"
	default:
		return "stock/candle"
	}
}

// Quote fetches the current quote for symbol using the given credential.
func (c *Client) Quote(ctx context.Context, symbol, token string) (*QuoteResponse, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("token", token)

	var out QuoteResponse
	if err := c.getJSON(ctx, "quote", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Candles fetches historical candles for symbol over [from, to] epochs
// at the given resolution (1/5/15/30/60 minutes, D, W, M).
func (c *Client) Candles(ctx context.Context, symbol, resolution string, from, to int64, token string) (*CandleResponse, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("resolution", resolution)
	q.Set("from", strconv.FormatInt(from, 10))
	q.Set("to", strconv.FormatInt(to, 10))
	q.Set("token", token)

	var out CandleResponse
	if err := c.getJSON(ctx, CandleEndpoint(symbol), q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, q url.Values, v any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	u := c.baseURL + "/" + endpoint + "?" + q.Encode()
	body, status, err := httpx.GetBounded(ctx, c.client, u, c.timeout,
		http.Header{"Accept": []string{"application/json"}})
	if err != nil {
		return err
	}
	if err := statusToErr(status); err != nil {
		c.log.Warn().Int("status", status).Str("endpoint", endpoint).Msg("primary api request rejected")
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return nil
}

// statusToErr maps provider HTTP statuses onto the error taxonomy.
func statusToErr(status int) error {
	switch status {
	case http.StatusUnauthorized:
		return quote.ErrInvalidCredential
	case http.StatusForbidden:
		return quote.ErrAccessDenied
	case http.StatusTooManyRequests:
		return quote.ErrRateLimited
	}
	if status < 200 || status >= 300 {
		return &quote.ProviderError{Status: status}
	}
	return nil
}
