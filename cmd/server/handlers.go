package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"quotedesk/internal/quote"
	"quotedesk/internal/symbol"
)

// resolver is the engine surface the handlers need.
type resolver interface {
	GetQuote(ctx context.Context, raw, token string) (*quote.Quote, error)
	GetSeries(ctx context.Context, raw string, rng quote.Range, token string, anchor float64) *quote.Series
}

type apiServer struct {
	engine       resolver
	defaultToken string
	log          zerolog.Logger
}

// token resolves the quote API credential for one request: an explicit
// token query param wins, then a bearer header, then the configured key.
func (s *apiServer) token(r *http.Request) string {
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return s.defaultToken
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: msg})
}

// httpStatusFor maps the error taxonomy onto response statuses.
func httpStatusFor(err error) int {
	switch {
	case errors.Is(err, quote.ErrMissingCredential):
		return http.StatusBadRequest
	case errors.Is(err, quote.ErrInvalidCredential):
		return http.StatusUnauthorized
	case errors.Is(err, quote.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, quote.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, quote.ErrSymbolNotFound):
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

func (s *apiServer) handleQuote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	sym := strings.TrimSpace(r.URL.Query().Get("symbol"))
	if sym == "" {
		writeError(w, http.StatusBadRequest, "missing symbol query param")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	q, err := s.engine.GetQuote(ctx, sym, s.token(r))
	if err != nil {
		s.log.Warn().Str("symbol", sym).Err(err).Msg("quote failed")
		writeError(w, httpStatusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(q)
}

func (s *apiServer) handleSeries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	sym := strings.TrimSpace(r.URL.Query().Get("symbol"))
	if sym == "" {
		writeError(w, http.StatusBadRequest, "missing symbol query param")
		return
	}
	rng := quote.ParseRange(r.URL.Query().Get("range"))
	anchor, _ := strconv.ParseFloat(r.URL.Query().Get("anchor"), 64)

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	series := s.engine.GetSeries(ctx, sym, rng, s.token(r), anchor)
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(series)
}

// marketSymbols are the headline instruments of the overview endpoint.
var marketSymbols = []string{"USD", "EUR", "XAU/USD", "BTC", "ETH"}

type marketResponse struct {
	Quotes map[string]*quote.Quote `json:"quotes"`
	Errors map[string]string       `json:"errors,omitempty"`
}

// handleMarket fans out over the headline symbols concurrently. Partial
// failure is expected (crypto needs a credential); failed symbols are
// reported next to the quotes that did resolve.
func (s *apiServer) handleMarket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()
	token := s.token(r)

	var mu sync.Mutex
	resp := marketResponse{
		Quotes: make(map[string]*quote.Quote, len(marketSymbols)),
		Errors: make(map[string]string),
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, sym := range marketSymbols {
		sym := sym
		g.Go(func() error {
			q, err := s.engine.GetQuote(gctx, sym, token)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				resp.Errors[sym] = err.Error()
				return nil
			}
			resp.Quotes[sym] = q
			return nil
		})
	}
	_ = g.Wait()

	if len(resp.Errors) == 0 {
		resp.Errors = nil
	}
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

type catalogResponse struct {
	Groups []symbol.Group `json:"groups"`
}

func (s *apiServer) handleCatalog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(catalogResponse{Groups: symbol.Catalog()})
}
