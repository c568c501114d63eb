// Command fetch resolves quotes (and optionally series) for a list of
// symbols and prints them as indented JSON. Useful for smoke-testing
// the provider chain without running the server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"quotedesk/internal/config"
	"quotedesk/internal/engine"
	"quotedesk/internal/httpx"
	"quotedesk/internal/provider/chart"
	"quotedesk/internal/provider/finnhub"
	"quotedesk/internal/provider/goldprice"
	"quotedesk/internal/provider/rates"
	"quotedesk/internal/quote"
)

type row struct {
	Input  string        `json:"input"`
	Quote  *quote.Quote  `json:"quote,omitempty"`
	Series *quote.Series `json:"series,omitempty"`
	Error  string        `json:"error,omitempty"`
}

func main() {
	var (
		symbolsCSV string
		rangeStr   string
		withSeries bool
		token      string
		cfgPath    string
		timeoutSec int
		verbose    bool
	)
	flag.StringVar(&symbolsCSV, "symbols", "USD,EUR,GOLD,THYAO.IS", "comma-separated symbols to resolve")
	flag.StringVar(&rangeStr, "range", "1mo", "series range: 1d, 5d, 1mo, 3mo, 1y")
	flag.BoolVar(&withSeries, "series", false, "also fetch a historical series per symbol")
	flag.StringVar(&token, "token", os.Getenv("FINNHUB_API_KEY"), "quote API credential")
	flag.StringVar(&cfgPath, "config", os.Getenv("CONFIG_FILE"), "path to config.json (optional)")
	flag.IntVar(&timeoutSec, "timeout", 15, "request timeout seconds")
	flag.BoolVar(&verbose, "v", false, "log provider attempts to stderr")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if token == "" {
		token = cfg.Finnhub.APIKey
	}
	if timeoutSec > 0 {
		cfg.Server.RequestTimeoutSec = timeoutSec
	}

	log := zerolog.Nop()
	if verbose {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}

	httpClient := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)
	eng := engine.New(
		chart.New(httpClient,
			chart.WithHosts(cfg.Chart.Hosts...),
			chart.WithRelays(chart.RelaysByName(cfg.Chart.Relays)...),
			chart.WithTimeout(time.Duration(cfg.Chart.TimeoutSec)*time.Second),
			chart.WithLogger(log)),
		rates.New(httpClient,
			rates.WithBaseURLs(cfg.Rates.PrimaryURL, cfg.Rates.FallbackURL),
			rates.WithLogger(log)),
		finnhub.New(httpClient,
			finnhub.WithBaseURL(cfg.Finnhub.BaseURL),
			finnhub.WithLogger(log)),
		goldprice.New(httpClient, goldprice.WithBaseURL(cfg.Gold.BaseURL)),
		engine.WithLogger(log))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	rng := quote.ParseRange(rangeStr)

	var rows []row
	for _, raw := range strings.Split(symbolsCSV, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		out := row{Input: raw}
		q, err := eng.GetQuote(ctx, raw, token)
		if err != nil {
			out.Error = err.Error()
		} else {
			out.Quote = q
		}
		if withSeries {
			anchor := 0.0
			if q != nil {
				anchor, _ = q.Price.Float64()
			}
			out.Series = eng.GetSeries(ctx, raw, rng, token, anchor)
		}
		rows = append(rows, out)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rows); err != nil {
		fmt.Fprintf(os.Stderr, "encode: %v\n", err)
		os.Exit(1)
	}
}
