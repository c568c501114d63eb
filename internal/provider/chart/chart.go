// Package chart fetches documents from the charting provider. The
// provider is not directly reachable from the browser contexts this
// service fronts, so every fetch runs a deterministic cascade over
// equivalent origin hosts and public relay proxies until one pair
// yields a usable document.
package chart

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"quotedesk/internal/httpx"
	"quotedesk/internal/quote"
)

//go:generate mockgen -package=chart_test -destination=mock_doer_test.go quotedesk/internal/httpx Doer

// DefaultHosts are the equivalent origin hosts for the charting
// provider, in priority order.
var DefaultHosts = []string{
	"query1.finance.yahoo.com",
	"query2.finance.yahoo.com",
}

// cacheBucket is the coarse cache-busting granularity. Relay-side
// caches stay effective inside a bucket without going stale by more
// than a minute.
const cacheBucket = time.Minute

// Document is the charting provider's native chart payload.
type Document struct {
	Chart struct {
		Result []Result `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Result is one instrument's chart data. Price fields are pointers:
// the provider omits them outside trading windows.
type Result struct {
	Meta struct {
		Symbol             string   `json:"symbol"`
		Currency           string   `json:"currency"`
		RegularMarketPrice *float64 `json:"regularMarketPrice"`
		ChartPreviousClose *float64 `json:"chartPreviousClose"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open  []*float64 `json:"open"`
			High  []*float64 `json:"high"`
			Low   []*float64 `json:"low"`
			Close []*float64 `json:"close"`
		} `json:"quote"`
	} `json:"indicators"`
}

// LastClose returns the most recent non-null close, for when the meta
// price is absent.
func (r *Result) LastClose() (float64, bool) {
	if len(r.Indicators.Quote) == 0 {
		return 0, false
	}
	closes := r.Indicators.Quote[0].Close
	for i := len(closes) - 1; i >= 0; i-- {
		if closes[i] != nil {
			return *closes[i], true
		}
	}
	return 0, false
}

type cacheEntry struct {
	doc   *Document
	until time.Time
}

// Fetcher runs the (host x relay) cascade. Attempts are strictly
// sequential; determinism is preferred over latency. Parsed documents
// are cached per minute bucket and concurrent fetches for the same key
// are coalesced, so equivalent requests inside a bucket hit the relays
// once.
type Fetcher struct {
	client  httpx.Doer
	hosts   []string
	relays  []Relay
	timeout time.Duration
	ttl     time.Duration
	log     zerolog.Logger

	sf singleflight.Group

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// Option configures the Fetcher.
type Option func(*Fetcher)

// WithHosts overrides the origin host order.
func WithHosts(hosts ...string) Option {
	return func(f *Fetcher) {
		if len(hosts) > 0 {
			f.hosts = hosts
		}
	}
}

// WithRelays overrides the relay strategy order.
func WithRelays(relays ...Relay) Option {
	return func(f *Fetcher) {
		if len(relays) > 0 {
			f.relays = relays
		}
	}
}

// WithTimeout sets the per-attempt deadline.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithCacheTTL sets how long parsed documents are reused.
func WithCacheTTL(d time.Duration) Option {
	return func(f *Fetcher) { f.ttl = d }
}

// WithLogger sets the logger for per-attempt warnings.
func WithLogger(log zerolog.Logger) Option {
	return func(f *Fetcher) { f.log = log.With().Str("component", "chart").Logger() }
}

// New creates a cascade fetcher over the given HTTP doer.
func New(client httpx.Doer, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:  client,
		hosts:   DefaultHosts,
		relays:  DefaultRelays(),
		timeout: 8 * time.Second,
		ttl:     cacheBucket,
		log:     zerolog.Nop(),
		cache:   make(map[string]cacheEntry),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Chart fetches one chart document for symbol at the given interval and
// range, through the cascade. It fails with quote.ErrAllSourcesExhausted
// only after every (host x relay) pair has been tried.
func (f *Fetcher) Chart(ctx context.Context, symbol, interval, rng string) (*Document, error) {
	bucket := time.Now().UnixNano() / int64(cacheBucket)
	key := fmt.Sprintf("%s|%s|%s|%d", symbol, interval, rng, bucket)

	if doc := f.cached(key); doc != nil {
		return doc, nil
	}

	v, err, _ := f.sf.Do(key, func() (any, error) {
		if doc := f.cached(key); doc != nil {
			return doc, nil
		}
		doc, err := f.fetch(ctx, symbol, interval, rng, bucket)
		if err != nil {
			return nil, err
		}
		f.store(key, doc)
		return doc, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Document), nil
}

func (f *Fetcher) cached(key string) *Document {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.cache[key]; ok && time.Now().Before(e.until) {
		return e.doc
	}
	return nil
}

func (f *Fetcher) store(key string, doc *Document) {
	if f.ttl <= 0 {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	// drop expired entries; buckets rotate every minute so this stays small
	now := time.Now()
	for k, e := range f.cache {
		if now.After(e.until) {
			delete(f.cache, k)
		}
	}
	f.cache[key] = cacheEntry{doc: doc, until: now.Add(f.ttl)}
}

// fetch walks hosts in the outer loop and relays in the inner loop,
// returning on the first pair whose document has a non-empty result.
// A single failing pair never aborts the cascade; it is logged at
// warning level and the next pair is tried.
func (f *Fetcher) fetch(ctx context.Context, symbol, interval, rng string, bucket int64) (*Document, error) {
	for _, host := range f.hosts {
		target := fmt.Sprintf("https://%s/v8/finance/chart/%s?interval=%s&range=%s&_t=%d",
			host, url.PathEscape(symbol), url.QueryEscape(interval), url.QueryEscape(rng), bucket)

		for _, relay := range f.relays {
			doc, err := f.attempt(ctx, relay, target)
			if err != nil {
				f.log.Warn().
					Str("host", host).
					Str("relay", relay.Name).
					Str("symbol", symbol).
					Err(err).
					Msg("chart attempt failed")
				continue
			}
			return doc, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", quote.ErrAllSourcesExhausted, symbol)
}

func (f *Fetcher) attempt(ctx context.Context, relay Relay, target string) (*Document, error) {
	body, status, err := httpx.GetBounded(ctx, f.client, relay.Wrap(target), f.timeout,
		http.Header{"Accept": []string{"application/json"}})
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("status %d", status)
	}

	raw, err := relay.Unwrap(body)
	if err != nil {
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if doc.Chart.Error != nil {
		return nil, fmt.Errorf("provider error: %s", doc.Chart.Error.Description)
	}
	if len(doc.Chart.Result) == 0 {
		return nil, fmt.Errorf("empty result")
	}
	return &doc, nil
}
