package symbol

// Group is a labeled set of well-known symbols for picker UIs.
type Group struct {
	Label   string   `json:"label"`
	Symbols []string `json:"symbols"`
}

// USMajors lists large-cap foreign tech tickers the charting provider
// accepts without a market suffix.
var USMajors = map[string]struct{}{
	"AAPL": {}, "MSFT": {}, "TSLA": {}, "GOOGL": {},
	"AMZN": {}, "NVDA": {}, "META": {}, "NFLX": {},
	"MRT": {},
}

// Catalog returns the fixed set of known symbols grouped by market.
func Catalog() []Group {
	return []Group{
		{Label: "BIST 100", Symbols: []string{
			"THYAO.IS", "GARAN.IS", "ASELS.IS", "AKBNK.IS", "EREGL.IS",
			"SISE.IS", "KCHOL.IS", "SAHOL.IS", "TUPRS.IS", "BIMAS.IS",
		}},
		{Label: "US Tech", Symbols: []string{
			"AAPL", "MSFT", "TSLA", "GOOGL", "AMZN", "NVDA", "META", "NFLX",
		}},
		{Label: "Crypto", Symbols: []string{
			"BTC", "ETH", "SOL", "AVAX", "DOGE", "XRP", "ADA",
		}},
		{Label: "FX & Commodities", Symbols: []string{"USD", "EUR", "XAU/USD"}},
	}
}
