package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestWatchlistSymbols(t *testing.T) {
	w := Watchlist{
		ID:   "1",
		Name: "Majors",
		Coins: []Instrument{
			{Symbol: "BTCUSDT"},
			{Symbol: "ETHUSDT"},
			{Symbol: "btcusdt"}, // duplicate after lowercasing
			{Symbol: ""},
		},
	}

	got := w.Symbols()
	want := []string{"btcusdt", "ethusdt"}
	if len(got) != len(want) {
		t.Fatalf("Symbols() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Symbols()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestWatchlistContains(t *testing.T) {
	w := Watchlist{Coins: []Instrument{{Symbol: "BTCUSDT"}}}
	if !w.Contains("BTCUSDT") {
		t.Error("should contain BTCUSDT")
	}
	if w.Contains("ETHUSDT") {
		t.Error("should not contain ETHUSDT")
	}
}

// Persisted shape: prices marshal as quoted decimal strings under the
// original field names.
func TestWatchlistJSONShape(t *testing.T) {
	w := Watchlist{
		ID:   "wl-1",
		Name: "Majors",
		Coins: []Instrument{{
			Symbol:             "BTCUSDT",
			Price:              decimal.RequireFromString("50000"),
			PriceChangePercent: decimal.RequireFromString("1.5"),
		}},
	}

	data, err := json.Marshal(w)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	want := `{"id":"wl-1","name":"Majors","coins":[{"symbol":"BTCUSDT","price":"50000","priceChangePercent":"1.5"}]}`
	if string(data) != want {
		t.Errorf("json = %s\nwant %s", data, want)
	}

	var back Watchlist
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !back.Coins[0].Price.Equal(w.Coins[0].Price) {
		t.Errorf("price round-trip mismatch: %v", back.Coins[0].Price)
	}
}
