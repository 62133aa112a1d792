package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Instrument is a snapshot of a tradeable symbol with its last known
// price and 24h change percent. Prices marshal as quoted decimal strings.
type Instrument struct {
	Symbol             string          `json:"symbol"`
	Price              decimal.Decimal `json:"price"`
	PriceChangePercent decimal.Decimal `json:"priceChangePercent"`
}

// Watchlist is a named, user-curated ordered set of instruments,
// unique by symbol.
type Watchlist struct {
	ID    string       `json:"id"`
	Name  string       `json:"name"`
	Coins []Instrument `json:"coins"`
}

// Contains reports whether the watchlist already holds the symbol.
func (w *Watchlist) Contains(symbol string) bool {
	for _, c := range w.Coins {
		if c.Symbol == symbol {
			return true
		}
	}
	return false
}

// Symbols returns the watchlist's symbols lowercased and deduplicated,
// in membership order. This is the subscription target set for the feed.
func (w *Watchlist) Symbols() []string {
	seen := make(map[string]struct{}, len(w.Coins))
	out := make([]string, 0, len(w.Coins))
	for _, c := range w.Coins {
		s := strings.ToLower(c.Symbol)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// RealtimePrice is one live quote merged from the streaming feed.
type RealtimePrice struct {
	Price         decimal.Decimal `json:"price"`
	ChangePercent decimal.Decimal `json:"changePercent"`
}

// PriceMap maps an exchange symbol to its latest live quote. It is
// scoped to one subscription session and rebuilt when the session changes.
type PriceMap map[string]RealtimePrice
