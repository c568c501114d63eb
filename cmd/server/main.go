// Command server exposes the quote and series engine over HTTP.
package main

import (
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"quotedesk/internal/config"
	"quotedesk/internal/engine"
	"quotedesk/internal/httpx"
	"quotedesk/internal/provider/chart"
	"quotedesk/internal/provider/finnhub"
	"quotedesk/internal/provider/goldprice"
	"quotedesk/internal/provider/rates"
	"quotedesk/internal/ratelimit"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	if cfg.Finnhub.APIKey == "" {
		log.Warn().Msg("FINNHUB_API_KEY not set; crypto and equity quotes need a per-request token")
	}

	httpClient := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)

	charts := chart.New(httpClient,
		chart.WithHosts(cfg.Chart.Hosts...),
		chart.WithRelays(chart.RelaysByName(cfg.Chart.Relays)...),
		chart.WithTimeout(time.Duration(cfg.Chart.TimeoutSec)*time.Second),
		chart.WithCacheTTL(time.Duration(cfg.Chart.CacheTTLSeconds)*time.Second),
		chart.WithLogger(log))

	fx := rates.New(httpClient,
		rates.WithBaseURLs(cfg.Rates.PrimaryURL, cfg.Rates.FallbackURL),
		rates.WithTimeout(time.Duration(cfg.Rates.TimeoutSec)*time.Second),
		rates.WithLogger(log))

	gold := goldprice.New(httpClient,
		goldprice.WithBaseURL(cfg.Gold.BaseURL),
		goldprice.WithTimeout(time.Duration(cfg.Gold.TimeoutSec)*time.Second))

	fhOpts := []finnhub.Option{
		finnhub.WithBaseURL(cfg.Finnhub.BaseURL),
		finnhub.WithTimeout(time.Duration(cfg.Finnhub.TimeoutSec) * time.Second),
		finnhub.WithLogger(log),
	}
	if cfg.Finnhub.MaxRequestsPerMinute > 0 {
		rate := float64(cfg.Finnhub.MaxRequestsPerMinute) / 60.0
		fhOpts = append(fhOpts, finnhub.WithLimiter(ratelimit.NewTokenBucket(rate, cfg.Finnhub.Burst)))
	}
	quotes := finnhub.New(httpClient, fhOpts...)

	eng := engine.New(charts, fx, quotes, gold, engine.WithLogger(log))
	api := &apiServer{engine: eng, defaultToken: cfg.Finnhub.APIKey, log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("/v1/quote", api.handleQuote)
	mux.HandleFunc("/v1/series", api.handleSeries)
	mux.HandleFunc("/v1/market", api.handleMarket)
	mux.HandleFunc("/v1/catalog", api.handleCatalog)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           withJSONHeaders(withGzip(recoverPanic(mux))),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func withJSONHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withGzip compresses responses when the client supports gzip.
func withGzip(next http.Handler) http.Handler {
	gzPool := sync.Pool{New: func() any {
		w, _ := gzip.NewWriterLevel(io.Discard, gzip.BestSpeed)
		return w
	}}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}
		gz := gzPool.Get().(*gzip.Writer)
		gz.Reset(w)
		defer func() {
			_ = gz.Close()
			gz.Reset(io.Discard)
			gzPool.Put(gz)
		}()
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Add("Vary", "Accept-Encoding")
		next.ServeHTTP(gzipResponseWriter{ResponseWriter: w, Writer: gz}, r)
	})
}

type gzipResponseWriter struct {
	http.ResponseWriter
	Writer io.Writer
}

func (g gzipResponseWriter) Write(b []byte) (int, error) {
	return g.Writer.Write(b)
}

// recoverPanic protects handlers from panics.
func recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
