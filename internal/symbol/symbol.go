// Package symbol turns free-form user input (a ticker, currency code,
// crypto name or commodity alias) into a classified, provider-ready
// symbol. Classification is a total function: unrecognized input
// degrades to a default category instead of failing.
package symbol

import "strings"

// Category buckets a symbol by the provider chain that can quote it.
type Category string

const (
	FiatPair       Category = "fiat_pair"
	Crypto         Category = "crypto"
	Commodity      Category = "commodity"
	EquityForeign  Category = "equity_foreign"
	EquityDomestic Category = "equity_domestic"
	Other          Category = "other"
)

// Classified is the immutable result of classifying one raw input.
// ProviderSymbol is used verbatim in provider queries and is never
// empty. Base is the underlying asset code where it differs from the
// provider spelling (crypto base coin, fiat base currency, metal code).
type Classified struct {
	Category       Category
	ProviderSymbol string
	Currency       string
	Base           string
}

// foreignSuffix marks instruments listed on the local foreign exchange
// (Borsa Istanbul tickers carry a ".IS" market suffix upstream).
const foreignSuffix = ".IS"

// Alias tables are exact-match only. Partial matching would misfire on
// real tickers (there is a listed equity literally named "GOLD").
var fiatAliases = map[string]string{
	"DOLAR":   "USD",
	"USD":     "USD",
	"USD/TRY": "USD",
	"EURO":    "EUR",
	"EUR":     "EUR",
	"EUR/TRY": "EUR",
}

var commodityAliases = map[string]struct{}{
	"XAU/USD": {},
	"GOLD":    {},
	"ALTIN":   {},
	"GC=F":    {},
}

var cryptoAliases = map[string]string{
	"BTC": "BTC", "BITCOIN": "BTC",
	"ETH": "ETH", "ETHEREUM": "ETH",
	"DOGE": "DOGE", "DOGECOIN": "DOGE",
	"SOL": "SOL", "SOLANA": "SOL",
	"XRP": "XRP", "RIPPLE": "XRP",
	"AVAX": "AVAX", "AVALANCHE": "AVAX",
	"ADA": "ADA", "CARDANO": "ADA",
}

var equityAliases = map[string]string{
	"MARTI":     "MRT",
	"MARTI TAG": "MRT",
}

// rule is one entry of the ordered classification chain. First match wins.
type rule func(s string) (Classified, bool)

var rules = []rule{
	// 1-2. USD / EUR against the local currency
	func(s string) (Classified, bool) {
		base, ok := fiatAliases[s]
		if !ok {
			return Classified{}, false
		}
		return Classified{
			Category:       FiatPair,
			ProviderSymbol: base + "/TRY",
			Currency:       "₺",
			Base:           base,
		}, true
	},
	// 3. Gold, quoted as the commodity futures contract
	func(s string) (Classified, bool) {
		if _, ok := commodityAliases[s]; !ok {
			return Classified{}, false
		}
		return Classified{
			Category:       Commodity,
			ProviderSymbol: "GC=F",
			Currency:       "$",
			Base:           "XAU",
		}, true
	},
	// 4. Fixed equity aliases
	func(s string) (Classified, bool) {
		t, ok := equityAliases[s]
		if !ok {
			return Classified{}, false
		}
		return Classified{Category: EquityDomestic, ProviderSymbol: t, Currency: "$", Base: t}, true
	},
	// 5. Foreign market suffix
	func(s string) (Classified, bool) {
		if !strings.Contains(s, foreignSuffix) {
			return Classified{}, false
		}
		return Classified{Category: EquityForeign, ProviderSymbol: s, Currency: "₺", Base: s}, true
	},
	// 6. Crypto names and tickers, paired against USDT on the quote
	// provider's exchange notation. Already-composed provider symbols
	// classify back to the same category (idempotence).
	func(s string) (Classified, bool) {
		if base, ok := cryptoAliases[s]; ok {
			return Classified{
				Category:       Crypto,
				ProviderSymbol: "BINANCE:" + base + "USDT",
				Currency:       "$",
				Base:           base,
			}, true
		}
		if strings.HasPrefix(s, "BINANCE:") {
			base := strings.TrimSuffix(strings.TrimPrefix(s, "BINANCE:"), "USDT")
			return Classified{Category: Crypto, ProviderSymbol: s, Currency: "$", Base: base}, true
		}
		return Classified{}, false
	},
}

// Classify maps raw input onto a Classified symbol. It never fails:
// anything the ordered rules do not recognize is passed through
// uppercased as a domestic equity lookup, and input that cannot form a
// provider query at all degrades to Other.
func Classify(raw string) Classified {
	s := strings.ToUpper(strings.TrimSpace(raw))
	for _, r := range rules {
		if c, ok := r(s); ok {
			return c
		}
	}
	if !plausibleTicker(s) {
		if s == "" {
			s = "UNKNOWN"
		}
		return Classified{Category: Other, ProviderSymbol: s, Currency: "$", Base: s}
	}
	return Classified{Category: EquityDomestic, ProviderSymbol: s, Currency: "$", Base: s}
}

// plausibleTicker accepts the character set the quote provider uses for
// equity and composite symbols.
func plausibleTicker(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '.' || r == ':' || r == '=' || r == '-' || r == '/':
		default:
			return false
		}
	}
	return true
}
