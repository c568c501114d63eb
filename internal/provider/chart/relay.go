package chart

import (
	"encoding/json"
	"fmt"
	"net/url"
)

// Relay is one CORS-bypass strategy. Wrap turns the target URL into the
// relay's own request URL; Unwrap peels the relay's response envelope
// back into the provider's native document bytes.
type Relay struct {
	Name   string
	Wrap   func(target string) string
	Unwrap func(body []byte) ([]byte, error)
}

// rawUnwrap passes the relay body through untouched (the relay mirrors
// the origin response).
func rawUnwrap(body []byte) ([]byte, error) { return body, nil }

// allOriginsEnvelope is the JSON wrapper allorigins returns; the origin
// document is re-encoded as a string in "contents".
type allOriginsEnvelope struct {
	Contents string `json:"contents"`
}

// DefaultRelays returns the relay strategies in priority order. The
// order is fixed per release so fallback behavior stays deterministic
// and debuggable; it is tuned from observed reliability, not load.
func DefaultRelays() []Relay {
	return []Relay{
		{
			Name: "allorigins",
			Wrap: func(target string) string {
				return "https://api.allorigins.win/get?url=" + url.QueryEscape(target)
			},
			Unwrap: func(body []byte) ([]byte, error) {
				var env allOriginsEnvelope
				if err := json.Unmarshal(body, &env); err != nil {
					return nil, fmt.Errorf("allorigins envelope: %w", err)
				}
				if env.Contents == "" {
					return nil, fmt.Errorf("allorigins envelope: empty contents")
				}
				return []byte(env.Contents), nil
			},
		},
		{
			Name: "corsproxy",
			Wrap: func(target string) string {
				return "https://corsproxy.io/?" + url.QueryEscape(target)
			},
			Unwrap: rawUnwrap,
		},
		{
			Name: "codetabs",
			Wrap: func(target string) string {
				return "https://api.codetabs.com/v1/proxy?quest=" + url.QueryEscape(target)
			},
			Unwrap: rawUnwrap,
		},
		{
			// thingproxy takes the target unencoded after its path
			Name: "thingproxy",
			Wrap: func(target string) string {
				return "https://thingproxy.freeboard.io/fetch/" + target
			},
			Unwrap: rawUnwrap,
		},
	}
}

// RelaysByName selects and orders relays from the default set. Unknown
// names are skipped; an empty selection yields the full default order.
func RelaysByName(names []string) []Relay {
	all := DefaultRelays()
	if len(names) == 0 {
		return all
	}
	byName := make(map[string]Relay, len(all))
	for _, r := range all {
		byName[r.Name] = r
	}
	out := make([]Relay, 0, len(names))
	for _, n := range names {
		if r, ok := byName[n]; ok {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return all
	}
	return out
}
