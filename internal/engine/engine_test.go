package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quotedesk/internal/engine"
	"quotedesk/internal/provider/chart"
	"quotedesk/internal/provider/finnhub"
	"quotedesk/internal/quote"
)

func fptr(f float64) *float64 { return &f }

// chartDoc builds a one-result document with the given meta prices and
// close samples.
func chartDoc(symbol string, metaPrice, prevClose *float64, timestamps []int64, closes []*float64) *chart.Document {
	var doc chart.Document
	var res chart.Result
	res.Meta.Symbol = symbol
	res.Meta.Currency = "TRY"
	res.Meta.RegularMarketPrice = metaPrice
	res.Meta.ChartPreviousClose = prevClose
	res.Timestamp = timestamps
	res.Indicators.Quote = append(res.Indicators.Quote, struct {
		Open  []*float64 `json:"open"`
		High  []*float64 `json:"high"`
		Low   []*float64 `json:"low"`
		Close []*float64 `json:"close"`
	}{Close: closes})
	doc.Chart.Result = append(doc.Chart.Result, res)
	return &doc
}

type fakeCharts struct {
	doc     *chart.Document
	err     error
	calls   int
	lastSym string
}

func (f *fakeCharts) Chart(_ context.Context, symbol, _, _ string) (*chart.Document, error) {
	f.calls++
	f.lastSym = symbol
	return f.doc, f.err
}

type fakeRates struct {
	rate float64
	err  error
}

func (f *fakeRates) Rate(context.Context, string, string) (float64, error) {
	return f.rate, f.err
}

type fakeQuotes struct {
	quote      *finnhub.QuoteResponse
	quoteErr   error
	candles    *finnhub.CandleResponse
	candlesErr error
	quoteCalls int
}

func (f *fakeQuotes) Quote(context.Context, string, string) (*finnhub.QuoteResponse, error) {
	f.quoteCalls++
	return f.quote, f.quoteErr
}

func (f *fakeQuotes) Candles(context.Context, string, string, int64, int64, string) (*finnhub.CandleResponse, error) {
	return f.candles, f.candlesErr
}

type fakeGold struct {
	price float64
	err   error
}

func (f *fakeGold) Price(context.Context, string) (float64, error) {
	return f.price, f.err
}

func newEngine(charts *fakeCharts, rates *fakeRates, quotes *fakeQuotes, gold *fakeGold, opts ...engine.Option) *engine.Engine {
	if charts == nil {
		charts = &fakeCharts{err: quote.ErrAllSourcesExhausted}
	}
	if rates == nil {
		rates = &fakeRates{err: errors.New("unused")}
	}
	if quotes == nil {
		quotes = &fakeQuotes{quoteErr: errors.New("unused")}
	}
	if gold == nil {
		gold = &fakeGold{err: errors.New("unused")}
	}
	return engine.New(charts, rates, quotes, gold, opts...)
}

func TestGetQuote_FiatPairUsesRateFeed(t *testing.T) {
	e := newEngine(nil, &fakeRates{rate: 41.2537}, nil, nil)

	q, err := e.GetQuote(context.Background(), "dolar", "")
	require.NoError(t, err)
	assert.Equal(t, "USD/TRY", q.Symbol)
	assert.Equal(t, "₺", q.Currency)
	assert.Equal(t, "41.25", q.Price.String())
	require.NotNil(t, q.Change)
	assert.True(t, q.Change.IsZero())
	require.NotNil(t, q.ChangePct)
	assert.True(t, q.ChangePct.IsZero())
}

func TestGetQuote_FiatPairWrapsRateFailure(t *testing.T) {
	e := newEngine(nil, &fakeRates{err: errors.New("both hosts down")}, nil, nil)

	_, err := e.GetQuote(context.Background(), "EUR", "")
	assert.ErrorIs(t, err, quote.ErrExchangeRateUnavailable)
}

func TestGetQuote_ForeignEquityFromChart(t *testing.T) {
	charts := &fakeCharts{doc: chartDoc("THYAO.IS", fptr(212.5), fptr(210.0), nil, nil)}
	e := newEngine(charts, nil, nil, nil)

	q, err := e.GetQuote(context.Background(), "THYAO.IS", "")
	require.NoError(t, err)
	assert.Equal(t, "THYAO.IS", q.Symbol)
	assert.Equal(t, "₺", q.Currency)
	assert.Equal(t, "212.5", q.Price.String())
	require.NotNil(t, q.Change)
	assert.Equal(t, "2.5", q.Change.String())
	require.NotNil(t, q.ChangePct)
	assert.Equal(t, "1.19", q.ChangePct.String())
}

func TestGetQuote_ForeignEquityFallsBackToLastClose(t *testing.T) {
	charts := &fakeCharts{doc: chartDoc("GARAN.IS", nil, fptr(100.0),
		[]int64{1, 2, 3}, []*float64{fptr(101.0), fptr(102.0), nil})}
	e := newEngine(charts, nil, nil, nil)

	q, err := e.GetQuote(context.Background(), "GARAN.IS", "")
	require.NoError(t, err)
	assert.Equal(t, "102", q.Price.String())
}

func TestGetQuote_ForeignEquityIncompleteDocument(t *testing.T) {
	charts := &fakeCharts{doc: chartDoc("GARAN.IS", fptr(100.0), nil, nil, nil)}
	e := newEngine(charts, nil, nil, nil)

	_, err := e.GetQuote(context.Background(), "GARAN.IS", "")
	assert.ErrorIs(t, err, quote.ErrQuoteDataIncomplete)
}

func TestGetQuote_CommodityPrefersFuturesChart(t *testing.T) {
	charts := &fakeCharts{doc: chartDoc("GC=F", fptr(3910.0), fptr(3900.0), nil, nil)}
	e := newEngine(charts, nil, nil, &fakeGold{price: 3912.4})

	q, err := e.GetQuote(context.Background(), "gold", "")
	require.NoError(t, err)
	assert.Equal(t, "GC=F", charts.lastSym)
	assert.Equal(t, "3910", q.Price.String())
	assert.NotNil(t, q.Change)
}

func TestGetQuote_CommoditySpotFallbackHasNoChange(t *testing.T) {
	e := newEngine(&fakeCharts{err: quote.ErrAllSourcesExhausted}, nil, nil, &fakeGold{price: 3912.4})

	q, err := e.GetQuote(context.Background(), "ALTIN", "")
	require.NoError(t, err)
	assert.Equal(t, "GC=F", q.Symbol)
	assert.Equal(t, "$", q.Currency)
	assert.Equal(t, "3912.4", q.Price.String())
	assert.Nil(t, q.Change)
	assert.Nil(t, q.ChangePct)
}

func TestGetQuote_CommodityBothSourcesDown(t *testing.T) {
	e := newEngine(&fakeCharts{err: quote.ErrAllSourcesExhausted}, nil, nil,
		&fakeGold{err: errors.New("spot api down")})

	_, err := e.GetQuote(context.Background(), "XAU/USD", "")
	assert.ErrorIs(t, err, quote.ErrCommodityDataUnavailable)
}

func TestGetQuote_MissingCredentialSkipsNetwork(t *testing.T) {
	quotes := &fakeQuotes{quote: &finnhub.QuoteResponse{Current: 1}}
	e := newEngine(nil, nil, quotes, nil)

	_, err := e.GetQuote(context.Background(), "AAPL", "")
	assert.ErrorIs(t, err, quote.ErrMissingCredential)
	assert.Zero(t, quotes.quoteCalls)
}

func TestGetQuote_ZeroPriceNullChangeIsNotFound(t *testing.T) {
	quotes := &fakeQuotes{quote: &finnhub.QuoteResponse{Current: 0, Change: nil}}
	e := newEngine(nil, nil, quotes, nil)

	_, err := e.GetQuote(context.Background(), "BTC", "tok")
	assert.ErrorIs(t, err, quote.ErrSymbolNotFound)
}

func TestGetQuote_ZeroPriceWithReportedChangeIsNotNotFound(t *testing.T) {
	quotes := &fakeQuotes{quote: &finnhub.QuoteResponse{Current: 0, Change: fptr(0)}}
	e := newEngine(nil, nil, quotes, nil)

	q, err := e.GetQuote(context.Background(), "AAPL", "tok")
	require.NoError(t, err)
	assert.True(t, q.Price.IsZero())
	require.NotNil(t, q.Change)
}

func TestGetQuote_CryptoQuoteFromPrimaryAPI(t *testing.T) {
	quotes := &fakeQuotes{quote: &finnhub.QuoteResponse{
		Current: 67123.456, Change: fptr(1234.5678), ChangePct: fptr(1.8765),
	}}
	e := newEngine(nil, nil, quotes, nil)

	q, err := e.GetQuote(context.Background(), "bitcoin", "tok")
	require.NoError(t, err)
	assert.Equal(t, "BINANCE:BTCUSDT", q.Symbol)
	assert.Equal(t, "$", q.Currency)
	assert.Equal(t, "67123.46", q.Price.String())
	assert.Equal(t, "1234.57", q.Change.String())
	assert.Equal(t, "1.88", q.ChangePct.String())
}

func TestGetQuote_PropagatesAPITaxonomy(t *testing.T) {
	quotes := &fakeQuotes{quoteErr: quote.ErrRateLimited}
	e := newEngine(nil, nil, quotes, nil)

	_, err := e.GetQuote(context.Background(), "AAPL", "tok")
	assert.ErrorIs(t, err, quote.ErrRateLimited)
}

func TestGetSeries_FromChartDocument(t *testing.T) {
	charts := &fakeCharts{doc: chartDoc("THYAO.IS", fptr(212.5), fptr(210.0),
		[]int64{1000, 2000, 3000}, []*float64{fptr(208.1), nil, fptr(212.5)})}
	e := newEngine(charts, nil, nil, nil)

	s := e.GetSeries(context.Background(), "THYAO.IS", quote.Range1M, "", 0)
	require.NotNil(t, s)
	assert.False(t, s.Synthetic)
	require.Len(t, s.Points, 2)
	assert.Equal(t, 208.1, s.Points[0].Price)
	assert.Equal(t, 212.5, s.Points[1].Price)
	assert.True(t, s.Points[0].Time.Before(s.Points[1].Time))
}

func TestGetSeries_FallsBackToCandleAPI(t *testing.T) {
	quotes := &fakeQuotes{candles: &finnhub.CandleResponse{
		Status:    "ok",
		Timestamp: []int64{100, 200, 300},
		Close:     []float64{1.0, 1.1, 1.2},
	}}
	e := newEngine(&fakeCharts{err: quote.ErrAllSourcesExhausted}, nil, quotes, nil)

	s := e.GetSeries(context.Background(), "BTC", quote.Range1D, "tok", 0)
	require.NotNil(t, s)
	assert.False(t, s.Synthetic)
	require.Len(t, s.Points, 3)
	assert.Equal(t, 1.2, s.Points[2].Price)
}

func TestGetSeries_NoDataCandlesFallThroughToSynthetic(t *testing.T) {
	quotes := &fakeQuotes{candles: &finnhub.CandleResponse{Status: "no_data"}}
	e := newEngine(&fakeCharts{err: quote.ErrAllSourcesExhausted}, nil, quotes, nil)

	s := e.GetSeries(context.Background(), "BTC", quote.Range1D, "tok", 67000)
	require.NotNil(t, s)
	assert.True(t, s.Synthetic)
}

func TestGetSeries_SyntheticIsAnchoredAndBounded(t *testing.T) {
	e := newEngine(&fakeCharts{err: quote.ErrAllSourcesExhausted}, nil, nil, nil)

	s := e.GetSeries(context.Background(), "AAPL", quote.Range1M, "", 230.5)
	require.NotNil(t, s)
	assert.True(t, s.Synthetic)
	require.GreaterOrEqual(t, len(s.Points), 2)
	assert.Equal(t, 230.5, s.Points[len(s.Points)-1].Price)

	for i := 1; i < len(s.Points); i++ {
		assert.True(t, s.Points[i].Time.After(s.Points[i-1].Time))
		step := s.Points[i].Price/s.Points[i-1].Price - 1
		assert.LessOrEqual(t, step, 0.0151, "step %d", i)
		assert.GreaterOrEqual(t, step, -0.0151, "step %d", i)
	}
}

func TestGetSeries_SyntheticIsDeterministicWithinADay(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	e := newEngine(&fakeCharts{err: quote.ErrAllSourcesExhausted}, nil, nil, nil,
		engine.WithClock(clock))

	a := e.GetSeries(context.Background(), "AAPL", quote.Range1Y, "", 230.5)
	b := e.GetSeries(context.Background(), "AAPL", quote.Range1Y, "", 230.5)
	assert.Equal(t, a, b)

	other := e.GetSeries(context.Background(), "MSFT", quote.Range1Y, "", 230.5)
	assert.NotEqual(t, a.Points, other.Points)
}

func TestGetSeries_EmptyInputStillYieldsSeries(t *testing.T) {
	e := newEngine(&fakeCharts{err: quote.ErrAllSourcesExhausted}, nil, nil, nil)

	s := e.GetSeries(context.Background(), "", quote.Range1D, "", 0)
	require.NotNil(t, s)
	assert.True(t, s.Synthetic)
	assert.Equal(t, "UNKNOWN", s.Symbol)
	require.GreaterOrEqual(t, len(s.Points), 2)
	assert.Equal(t, float64(100), s.Points[len(s.Points)-1].Price)
}

func TestGetSeries_DomesticTickerGetsMarketSuffix(t *testing.T) {
	charts := &fakeCharts{err: quote.ErrAllSourcesExhausted}
	e := newEngine(charts, nil, nil, nil)

	_ = e.GetSeries(context.Background(), "SISE", quote.Range1M, "", 0)
	assert.Equal(t, "SISE.IS", charts.lastSym)

	_ = e.GetSeries(context.Background(), "AAPL", quote.Range1M, "", 0)
	assert.Equal(t, "AAPL", charts.lastSym)

	_ = e.GetSeries(context.Background(), "USD", quote.Range1M, "", 0)
	assert.Equal(t, "TRY=X", charts.lastSym)

	_ = e.GetSeries(context.Background(), "ETH", quote.Range1M, "", 0)
	assert.Equal(t, "ETH-USD", charts.lastSym)
}
