package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Server struct {
	Port              string `json:"port"`
	RequestTimeoutSec int    `json:"request_timeout_sec"`
}

type Finnhub struct {
	APIKey               string `json:"api_key"`
	BaseURL              string `json:"base_url"`
	TimeoutSec           int    `json:"timeout_sec"`
	MaxRequestsPerMinute int    `json:"max_requests_per_minute"`
	Burst                int    `json:"burst"`
}

type Chart struct {
	Hosts           []string `json:"hosts"`
	Relays          []string `json:"relays"`
	TimeoutSec      int      `json:"timeout_sec"`
	CacheTTLSeconds int      `json:"cache_ttl_sec"`
}

type Rates struct {
	PrimaryURL  string `json:"primary_url"`
	FallbackURL string `json:"fallback_url"`
	TimeoutSec  int    `json:"timeout_sec"`
}

type Gold struct {
	BaseURL    string `json:"base_url"`
	TimeoutSec int    `json:"timeout_sec"`
}

type Config struct {
	Server  Server  `json:"server"`
	Finnhub Finnhub `json:"finnhub"`
	Chart   Chart   `json:"chart"`
	Rates   Rates   `json:"rates"`
	Gold    Gold    `json:"gold"`
}

func Default() Config {
	return Config{
		Server: Server{Port: "8080", RequestTimeoutSec: 10},
		Finnhub: Finnhub{
			TimeoutSec:           10,
			MaxRequestsPerMinute: 60,
			Burst:                10,
		},
		Chart: Chart{
			TimeoutSec:      8,
			CacheTTLSeconds: 60,
		},
		Rates: Rates{TimeoutSec: 5},
		Gold:  Gold{TimeoutSec: 5},
	}
}

// Load reads JSON config from path. If path is empty or the file does
// not exist, it returns defaults. Environment variables override select
// fields so credentials stay out of config files.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		if _, err := os.Stat("config.json"); err == nil {
			path = "config.json"
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := json.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	envStr("PORT", &cfg.Server.Port)
	envInt("REQUEST_TIMEOUT_SEC", &cfg.Server.RequestTimeoutSec)

	envStr("FINNHUB_API_KEY", &cfg.Finnhub.APIKey)
	envStr("FINNHUB_BASE_URL", &cfg.Finnhub.BaseURL)
	envInt("FINNHUB_TIMEOUT_SEC", &cfg.Finnhub.TimeoutSec)
	envInt("FINNHUB_MAX_RPM", &cfg.Finnhub.MaxRequestsPerMinute)
	envInt("FINNHUB_BURST", &cfg.Finnhub.Burst)

	if v := os.Getenv("CHART_HOSTS"); v != "" {
		cfg.Chart.Hosts = splitCSV(v)
	}
	if v := os.Getenv("CHART_RELAYS"); v != "" {
		cfg.Chart.Relays = splitCSV(v)
	}
	envInt("CHART_TIMEOUT_SEC", &cfg.Chart.TimeoutSec)
	envInt("CHART_CACHE_TTL_SEC", &cfg.Chart.CacheTTLSeconds)

	envStr("RATES_PRIMARY_URL", &cfg.Rates.PrimaryURL)
	envStr("RATES_FALLBACK_URL", &cfg.Rates.FallbackURL)
	envInt("RATES_TIMEOUT_SEC", &cfg.Rates.TimeoutSec)

	envStr("GOLD_BASE_URL", &cfg.Gold.BaseURL)
	envInt("GOLD_TIMEOUT_SEC", &cfg.Gold.TimeoutSec)
}

func envStr(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if x, err := strconv.Atoi(v); err == nil && x > 0 {
		*dst = x
	}
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
