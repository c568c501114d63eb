package symbol_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"quotedesk/internal/symbol"
)

func TestClassify_AliasTables(t *testing.T) {
	cases := []struct {
		in       string
		category symbol.Category
		provider string
		base     string
		currency string
	}{
		{"DOLAR", symbol.FiatPair, "USD/TRY", "USD", "₺"},
		{"USD", symbol.FiatPair, "USD/TRY", "USD", "₺"},
		{"EURO", symbol.FiatPair, "EUR/TRY", "EUR", "₺"},
		{"EUR", symbol.FiatPair, "EUR/TRY", "EUR", "₺"},
		{"GOLD", symbol.Commodity, "GC=F", "XAU", "$"},
		{"ALTIN", symbol.Commodity, "GC=F", "XAU", "$"},
		{"XAU/USD", symbol.Commodity, "GC=F", "XAU", "$"},
		{"BTC", symbol.Crypto, "BINANCE:BTCUSDT", "BTC", "$"},
		{"BITCOIN", symbol.Crypto, "BINANCE:BTCUSDT", "BTC", "$"},
		{"ETHEREUM", symbol.Crypto, "BINANCE:ETHUSDT", "ETH", "$"},
		{"SOLANA", symbol.Crypto, "BINANCE:SOLUSDT", "SOL", "$"},
		{"MARTI", symbol.EquityDomestic, "MRT", "MRT", "$"},
		{"THYAO.IS", symbol.EquityForeign, "THYAO.IS", "THYAO.IS", "₺"},
		{"AAPL", symbol.EquityDomestic, "AAPL", "AAPL", "$"},
	}
	for _, tc := range cases {
		got := symbol.Classify(tc.in)
		assert.Equal(t, tc.category, got.Category, tc.in)
		assert.Equal(t, tc.provider, got.ProviderSymbol, tc.in)
		assert.Equal(t, tc.base, got.Base, tc.in)
		assert.Equal(t, tc.currency, got.Currency, tc.in)
	}
}

func TestClassify_NormalizesCaseAndWhitespace(t *testing.T) {
	assert.Equal(t, symbol.Classify("USD"), symbol.Classify("  usd "))
	assert.Equal(t, symbol.Classify("BITCOIN"), symbol.Classify("bitcoin"))
	assert.Equal(t, symbol.Classify("THYAO.IS"), symbol.Classify(" thyao.is"))
}

func TestClassify_ExactMatchOnly(t *testing.T) {
	// "GOLDEN" must not hit the commodity alias for "GOLD".
	got := symbol.Classify("GOLDEN")
	assert.Equal(t, symbol.EquityDomestic, got.Category)
	assert.Equal(t, "GOLDEN", got.ProviderSymbol)

	// "USDT" is not "USD".
	assert.NotEqual(t, symbol.FiatPair, symbol.Classify("USDT").Category)
}

func TestClassify_ReclassifyingProviderSymbolKeepsCategory(t *testing.T) {
	inputs := []string{"USD", "EURO", "GOLD", "BTC", "ETHEREUM", "THYAO.IS", "AAPL", "MARTI"}
	for _, in := range inputs {
		first := symbol.Classify(in)
		second := symbol.Classify(first.ProviderSymbol)
		assert.Equal(t, first.Category, second.Category, in)
		assert.Equal(t, first.ProviderSymbol, second.ProviderSymbol, in)
	}
}

func TestClassify_IsTotal(t *testing.T) {
	got := symbol.Classify("")
	assert.Equal(t, symbol.Other, got.Category)
	assert.Equal(t, "UNKNOWN", got.ProviderSymbol)

	got = symbol.Classify("   ")
	assert.Equal(t, symbol.Other, got.Category)
	assert.Equal(t, "UNKNOWN", got.ProviderSymbol)

	got = symbol.Classify("!!$%")
	assert.Equal(t, symbol.Other, got.Category)
	assert.NotEmpty(t, got.ProviderSymbol)
}

func TestCatalog_GroupsAreNonEmpty(t *testing.T) {
	groups := symbol.Catalog()
	assert.NotEmpty(t, groups)
	for _, g := range groups {
		assert.NotEmpty(t, g.Label)
		assert.NotEmpty(t, g.Symbols, g.Label)
	}
}
