package quote

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is the normalized shape returned for every symbol category.
// Change and ChangePct are nil when the upstream provider carries no
// change data at all; a provider that reports "no movement" yields a
// non-nil zero instead.
type Quote struct {
	Symbol    string           `json:"symbol"`
	Price     decimal.Decimal  `json:"price"`
	Change    *decimal.Decimal `json:"change,omitempty"`
	ChangePct *decimal.Decimal `json:"change_pct,omitempty"`
	Currency  string           `json:"currency"`
}

// Rounded returns a display copy with two-decimal rounding applied.
// The original keeps full precision; rounding is a presentation concern
// and must never feed back into not-found classification.
func (q Quote) Rounded() Quote {
	out := q
	out.Price = q.Price.Round(2)
	if q.Change != nil {
		c := q.Change.Round(2)
		out.Change = &c
	}
	if q.ChangePct != nil {
		p := q.ChangePct.Round(2)
		out.ChangePct = &p
	}
	return out
}

// SeriesPoint is one sample of a historical price series.
type SeriesPoint struct {
	Time  time.Time `json:"time"`
	Price float64   `json:"price"`
}

// Series is an ordered price history with strictly increasing timestamps.
// Synthetic marks a generated fallback series; callers may surface an
// "estimate" notice but the series is always usable (length >= 2).
type Series struct {
	Symbol    string        `json:"symbol"`
	Currency  string        `json:"currency"`
	Points    []SeriesPoint `json:"points"`
	Synthetic bool          `json:"synthetic"`
}

// Range selects a historical window. Values follow the charting
// provider's native spellings.
type Range string

const (
	Range1D Range = "1d"
	Range5D Range = "5d"
	Range1M Range = "1mo"
	Range3M Range = "3mo"
	Range1Y Range = "1y"
)

// ParseRange maps a user-supplied range string onto the fixed
// enumeration. Unknown input falls back to one month.
func ParseRange(s string) Range {
	switch Range(s) {
	case Range1D, Range5D, Range1M, Range3M, Range1Y:
		return Range(s)
	case "1w", "1wk":
		return Range5D
	default:
		return Range1M
	}
}
