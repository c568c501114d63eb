package engine

import (
	"hash/fnv"
	"math/rand"
	"time"

	"quotedesk/internal/quote"
	"quotedesk/internal/symbol"
)

// maxStep bounds one synthetic step to +-1.5%, roughly the intraday
// movement of a liquid instrument.
const maxStep = 0.015

// defaultAnchor is the walk's end price when the caller knows none.
const defaultAnchor = 100

// syntheticSeries generates a plausible random walk ending exactly at
// the anchor price. The generator is seeded from the symbol and the
// current day, so repeated calls within a day yield the same series and
// different symbols get visibly different shapes.
func (e *Engine) syntheticSeries(cls symbol.Classified, p rangeParams, anchor float64) *quote.Series {
	if anchor <= 0 {
		anchor = defaultAnchor
	}

	now := e.now()
	rng := rand.New(rand.NewSource(syntheticSeed(cls.ProviderSymbol, now)))

	step := p.span / time.Duration(p.points-1)
	points := make([]quote.SeriesPoint, p.points)
	price := anchor
	for i := p.points - 1; i >= 0; i-- {
		points[i] = quote.SeriesPoint{
			Time:  now.Add(-time.Duration(p.points-1-i) * step).UTC(),
			Price: price,
		}
		price /= 1 + (rng.Float64()*2-1)*maxStep
	}

	return &quote.Series{
		Symbol:    cls.ProviderSymbol,
		Currency:  cls.Currency,
		Points:    points,
		Synthetic: true,
	}
}

// syntheticSeed hashes the symbol with the current day bucket.
func syntheticSeed(providerSymbol string, now time.Time) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(providerSymbol))
	return int64(h.Sum64()) + now.Unix()/86400
}
