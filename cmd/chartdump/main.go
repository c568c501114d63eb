// Command chartdump fetches one raw chart document through the relay
// cascade and writes it to a file or stdout. Handy when a symbol quotes
// oddly and the question is what the provider actually returned.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"quotedesk/internal/config"
	"quotedesk/internal/httpx"
	"quotedesk/internal/provider/chart"
)

func main() {
	var (
		symbol   string
		interval string
		rangeStr string
		outPath  string
		cfgPath  string
	)
	flag.StringVar(&symbol, "symbol", "THYAO.IS", "chart provider symbol")
	flag.StringVar(&interval, "interval", "1d", "chart interval (5m, 15m, 1d, 1wk)")
	flag.StringVar(&rangeStr, "range", "1mo", "chart range (1d, 5d, 1mo, 3mo, 1y)")
	flag.StringVar(&outPath, "out", "", "output file (default stdout)")
	flag.StringVar(&cfgPath, "config", os.Getenv("CONFIG_FILE"), "path to config.json (optional)")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	httpClient := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)
	fetcher := chart.New(httpClient,
		chart.WithHosts(cfg.Chart.Hosts...),
		chart.WithRelays(chart.RelaysByName(cfg.Chart.Relays)...),
		chart.WithTimeout(time.Duration(cfg.Chart.TimeoutSec)*time.Second),
		chart.WithLogger(log))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	doc, err := fetcher.Chart(ctx, symbol, interval, rangeStr)
	if err != nil {
		log.Fatal().Str("symbol", symbol).Err(err).Msg("fetch failed")
	}

	out := os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			log.Fatal().Str("path", outPath).Err(err).Msg("create output")
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		log.Fatal().Err(err).Msg("encode")
	}
}
