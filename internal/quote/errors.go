package quote

import (
	"errors"
	"fmt"
)

var (
	// Credential errors (primary quote API)
	ErrMissingCredential = errors.New("missing api credential")
	ErrInvalidCredential = errors.New("invalid api credential")
	ErrAccessDenied      = errors.New("access to symbol denied")
	ErrRateLimited       = errors.New("rate limited by provider")

	// Resolution errors
	ErrSymbolNotFound           = errors.New("symbol not found")
	ErrExchangeRateUnavailable  = errors.New("exchange rate unavailable")
	ErrQuoteDataIncomplete      = errors.New("quote data incomplete")
	ErrCommodityDataUnavailable = errors.New("commodity data unavailable")

	// Raised by the chart cascade after every host and relay was tried
	ErrAllSourcesExhausted = errors.New("all hosts and relays exhausted")
)

// ProviderError carries a non-success HTTP status that has no dedicated
// sentinel above.
type ProviderError struct {
	Status int
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider returned status %d", e.Status)
}

// IsProviderError reports whether err wraps a ProviderError.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}
