// Package engine resolves quotes and historical series for free-form
// symbols. It classifies the input, then dispatches to the provider
// chain that can serve that category, normalizing every outcome onto
// quote.Quote and quote.Series.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"quotedesk/internal/provider/chart"
	"quotedesk/internal/provider/finnhub"
	"quotedesk/internal/quote"
	"quotedesk/internal/symbol"
)

// ChartFetcher yields chart documents through the relay cascade.
type ChartFetcher interface {
	Chart(ctx context.Context, symbol, interval, rng string) (*chart.Document, error)
}

// RateSource resolves fiat conversion rates.
type RateSource interface {
	Rate(ctx context.Context, from, to string) (float64, error)
}

// QuoteAPI is the credentialed primary quote and candle API.
type QuoteAPI interface {
	Quote(ctx context.Context, symbol, token string) (*finnhub.QuoteResponse, error)
	Candles(ctx context.Context, symbol, resolution string, from, to int64, token string) (*finnhub.CandleResponse, error)
}

// CommoditySource yields spot metal prices, the last resort for
// commodity quotes.
type CommoditySource interface {
	Price(ctx context.Context, metal string) (float64, error)
}

// Engine dispatches quote and series requests across the provider chain.
type Engine struct {
	charts ChartFetcher
	rates  RateSource
	quotes QuoteAPI
	gold   CommoditySource
	log    zerolog.Logger
	now    func() time.Time
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) { e.log = log.With().Str("component", "engine").Logger() }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New wires an engine over its four provider dependencies.
func New(charts ChartFetcher, rates RateSource, quotes QuoteAPI, gold CommoditySource, opts ...Option) *Engine {
	e := &Engine{
		charts: charts,
		rates:  rates,
		quotes: quotes,
		gold:   gold,
		log:    zerolog.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// GetQuote resolves the current quote for raw user input. The token is
// the caller's credential for the primary quote API and is only needed
// for categories that reach it.
func (e *Engine) GetQuote(ctx context.Context, raw, token string) (*quote.Quote, error) {
	cls := symbol.Classify(raw)

	var (
		q   *quote.Quote
		err error
	)
	switch cls.Category {
	case symbol.FiatPair:
		q, err = e.fiatQuote(ctx, cls)
	case symbol.EquityForeign:
		q, err = e.chartQuote(ctx, cls.ProviderSymbol, cls.Currency)
	case symbol.Commodity:
		q, err = e.commodityQuote(ctx, cls)
	default:
		q, err = e.apiQuote(ctx, cls, token)
	}
	if err != nil {
		return nil, err
	}
	rounded := q.Rounded()
	return &rounded, nil
}

// fiatQuote converts one unit of the base currency into the local
// currency. Rate feeds carry no intraday change, so change is reported
// as an explicit zero rather than omitted.
func (e *Engine) fiatQuote(ctx context.Context, cls symbol.Classified) (*quote.Quote, error) {
	rate, err := e.rates.Rate(ctx, cls.Base, "TRY")
	if err != nil {
		return nil, fmt.Errorf("%w: %s", quote.ErrExchangeRateUnavailable, err)
	}
	zero := decimal.Zero
	return &quote.Quote{
		Symbol:    cls.ProviderSymbol,
		Price:     decimal.NewFromFloat(rate),
		Change:    &zero,
		ChangePct: &zero,
		Currency:  cls.Currency,
	}, nil
}

// chartQuote derives a quote from a one-day chart document: the meta
// price (or the last close when the meta price is absent) against the
// chart's previous close.
func (e *Engine) chartQuote(ctx context.Context, providerSymbol, currency string) (*quote.Quote, error) {
	doc, err := e.charts.Chart(ctx, providerSymbol, "1d", "1d")
	if err != nil {
		return nil, err
	}
	if len(doc.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: %s empty document", quote.ErrQuoteDataIncomplete, providerSymbol)
	}
	res := &doc.Chart.Result[0]

	var price float64
	switch {
	case res.Meta.RegularMarketPrice != nil:
		price = *res.Meta.RegularMarketPrice
	default:
		last, ok := res.LastClose()
		if !ok {
			return nil, fmt.Errorf("%w: %s has no price", quote.ErrQuoteDataIncomplete, providerSymbol)
		}
		price = last
	}
	if res.Meta.ChartPreviousClose == nil {
		return nil, fmt.Errorf("%w: %s has no previous close", quote.ErrQuoteDataIncomplete, providerSymbol)
	}

	p := decimal.NewFromFloat(price)
	prev := decimal.NewFromFloat(*res.Meta.ChartPreviousClose)
	change := p.Sub(prev)
	var pct decimal.Decimal
	if !prev.IsZero() {
		pct = change.Div(prev).Mul(decimal.NewFromInt(100))
	}
	return &quote.Quote{
		Symbol:    providerSymbol,
		Price:     p,
		Change:    &change,
		ChangePct: &pct,
		Currency:  currency,
	}, nil
}

// commodityQuote quotes gold off the futures chart, falling back to the
// spot price API. The spot feed has no change data, so the fallback
// quote carries nil change.
func (e *Engine) commodityQuote(ctx context.Context, cls symbol.Classified) (*quote.Quote, error) {
	q, err := e.chartQuote(ctx, cls.ProviderSymbol, cls.Currency)
	if err == nil {
		return q, nil
	}
	e.log.Warn().Str("symbol", cls.ProviderSymbol).Err(err).Msg("commodity chart failed, trying spot api")

	price, serr := e.gold.Price(ctx, cls.Base)
	if serr != nil {
		return nil, fmt.Errorf("%w: %s", quote.ErrCommodityDataUnavailable, serr)
	}
	return &quote.Quote{
		Symbol:   cls.ProviderSymbol,
		Price:    decimal.NewFromFloat(price),
		Currency: cls.Currency,
	}, nil
}

// apiQuote serves crypto and equities through the primary quote API.
// The credential is checked before any network call. A zero price with
// null change is the API's spelling of "unknown symbol"; the check runs
// on the raw payload, before display rounding.
func (e *Engine) apiQuote(ctx context.Context, cls symbol.Classified, token string) (*quote.Quote, error) {
	if token == "" {
		return nil, quote.ErrMissingCredential
	}
	resp, err := e.quotes.Quote(ctx, cls.ProviderSymbol, token)
	if err != nil {
		return nil, err
	}
	if resp.Current == 0 && resp.Change == nil {
		return nil, fmt.Errorf("%w: %s", quote.ErrSymbolNotFound, cls.ProviderSymbol)
	}

	q := &quote.Quote{
		Symbol:   cls.ProviderSymbol,
		Price:    decimal.NewFromFloat(resp.Current),
		Currency: cls.Currency,
	}
	if resp.Change != nil {
		c := decimal.NewFromFloat(*resp.Change)
		q.Change = &c
	}
	if resp.ChangePct != nil {
		p := decimal.NewFromFloat(*resp.ChangePct)
		q.ChangePct = &p
	}
	return q, nil
}

// rangeParams maps a window onto each provider's native parameters and
// the synthetic fallback shape.
type rangeParams struct {
	interval   string // chart provider interval
	rng        string // chart provider range
	resolution string // candle API resolution
	span       time.Duration
	points     int
}

var ranges = map[quote.Range]rangeParams{
	quote.Range1D: {interval: "5m", rng: "1d", resolution: "5", span: 24 * time.Hour, points: 24},
	quote.Range5D: {interval: "15m", rng: "5d", resolution: "15", span: 5 * 24 * time.Hour, points: 30},
	quote.Range1M: {interval: "1d", rng: "1mo", resolution: "D", span: 30 * 24 * time.Hour, points: 30},
	quote.Range3M: {interval: "1d", rng: "3mo", resolution: "D", span: 90 * 24 * time.Hour, points: 45},
	quote.Range1Y: {interval: "1wk", rng: "1y", resolution: "W", span: 365 * 24 * time.Hour, points: 52},
}

// GetSeries resolves a historical price series for raw user input. It
// never fails: when the chart cascade and the candle API both come up
// empty, a deterministic synthetic walk anchored at anchor (the
// caller's last known price, 0 when unknown) is returned with the
// Synthetic flag set.
func (e *Engine) GetSeries(ctx context.Context, raw string, rng quote.Range, token string, anchor float64) *quote.Series {
	cls := symbol.Classify(raw)
	p, ok := ranges[rng]
	if !ok {
		p = ranges[quote.Range1M]
	}

	if s := e.chartSeries(ctx, cls, p); s != nil {
		return s
	}
	if token != "" {
		if s := e.candleSeries(ctx, cls, p, token); s != nil {
			return s
		}
	}

	e.log.Warn().Str("symbol", cls.ProviderSymbol).Str("range", string(rng)).
		Msg("no historical source available, generating synthetic series")
	return e.syntheticSeries(cls, p, anchor)
}

// chartSymbol maps a classified symbol onto the charting provider's
// spelling for the category.
func chartSymbol(cls symbol.Classified) string {
	switch cls.Category {
	case symbol.FiatPair:
		if cls.Base == "USD" {
			return "TRY=X"
		}
		return cls.Base + "TRY=X"
	case symbol.Commodity:
		return cls.ProviderSymbol
	case symbol.Crypto:
		return cls.Base + "-USD"
	case symbol.EquityForeign:
		return cls.ProviderSymbol
	default:
		if _, ok := symbol.USMajors[cls.ProviderSymbol]; ok {
			return cls.ProviderSymbol
		}
		return cls.ProviderSymbol + ".IS"
	}
}

func (e *Engine) chartSeries(ctx context.Context, cls symbol.Classified, p rangeParams) *quote.Series {
	sym := chartSymbol(cls)
	doc, err := e.charts.Chart(ctx, sym, p.interval, p.rng)
	if err != nil {
		e.log.Warn().Str("symbol", sym).Err(err).Msg("chart series failed")
		return nil
	}
	if len(doc.Chart.Result) == 0 {
		return nil
	}
	res := &doc.Chart.Result[0]
	if len(res.Indicators.Quote) == 0 {
		return nil
	}

	closes := res.Indicators.Quote[0].Close
	points := make([]quote.SeriesPoint, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		points = append(points, quote.SeriesPoint{
			Time:  time.Unix(ts, 0).UTC(),
			Price: *closes[i],
		})
	}
	if len(points) < 2 {
		return nil
	}

	return &quote.Series{
		Symbol:   cls.ProviderSymbol,
		Currency: cls.Currency,
		Points:   points,
	}
}

func (e *Engine) candleSeries(ctx context.Context, cls symbol.Classified, p rangeParams, token string) *quote.Series {
	to := e.now().Unix()
	from := e.now().Add(-p.span).Unix()
	resp, err := e.quotes.Candles(ctx, cls.ProviderSymbol, p.resolution, from, to, token)
	if err != nil {
		e.log.Warn().Str("symbol", cls.ProviderSymbol).Err(err).Msg("candle series failed")
		return nil
	}
	if resp.Status != "ok" || len(resp.Close) < 2 {
		return nil
	}

	n := len(resp.Timestamp)
	if len(resp.Close) < n {
		n = len(resp.Close)
	}
	points := make([]quote.SeriesPoint, 0, n)
	for i := 0; i < n; i++ {
		points = append(points, quote.SeriesPoint{
			Time:  time.Unix(resp.Timestamp[i], 0).UTC(),
			Price: resp.Close[i],
		})
	}
	return &quote.Series{
		Symbol:   cls.ProviderSymbol,
		Currency: cls.Currency,
		Points:   points,
	}
}
