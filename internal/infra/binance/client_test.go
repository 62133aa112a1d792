package binance

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/Jhaamlal/Equals-Crypto/internal/domain"
	"github.com/Jhaamlal/Equals-Crypto/internal/infra"
)

func testConfig(restURL string) *infra.Config {
	cfg := &infra.Config{}
	cfg.API.Binance.RestURL = restURL
	cfg.Search.MaxResults = 10
	return cfg
}

func tickerServer(t *testing.T, body string, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_SearchFiltersCaseInsensitive(t *testing.T) {
	srv := tickerServer(t, `[
		{"symbol":"BTCUSDT","lastPrice":"50000","priceChangePercent":"1.5"},
		{"symbol":"ETHUSDT","lastPrice":"3000","priceChangePercent":"-0.3"},
		{"symbol":"BTCBUSD","lastPrice":"50010","priceChangePercent":"1.4"}
	]`, nil)

	c := NewClient(testConfig(srv.URL))
	got, err := c.Search(context.Background(), "btc")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %d: %+v", len(got), got)
	}
	if got[0].Symbol != "BTCUSDT" || got[1].Symbol != "BTCBUSD" {
		t.Errorf("unexpected order: %+v", got)
	}
	if got[0].Price.String() != "50000" || got[0].PriceChangePercent.String() != "1.5" {
		t.Errorf("unexpected values: %+v", got[0])
	}
}

func TestClient_SearchCapsResults(t *testing.T) {
	body := `[`
	for i := 0; i < 15; i++ {
		if i > 0 {
			body += ","
		}
		body += `{"symbol":"AAA` + string(rune('A'+i)) + `USDT","lastPrice":"1","priceChangePercent":"0"}`
	}
	body += `]`
	srv := tickerServer(t, body, nil)

	c := NewClient(testConfig(srv.URL))
	got, err := c.Search(context.Background(), "usdt")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 10 {
		t.Errorf("expected the result cap of 10, got %d", len(got))
	}
}

func TestClient_EmptyTermSkipsNetwork(t *testing.T) {
	var hits int32
	srv := tickerServer(t, `[]`, &hits)

	c := NewClient(testConfig(srv.URL))
	got, err := c.Search(context.Background(), "   ")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got != nil {
		t.Errorf("empty term should yield nil, got %+v", got)
	}
	if atomic.LoadInt32(&hits) != 0 {
		t.Errorf("empty term must not hit the network, got %d requests", hits)
	}
}

func TestClient_MalformedEntriesSkipped(t *testing.T) {
	srv := tickerServer(t, `[
		{"symbol":"BTCUSDT","lastPrice":"not-a-number","priceChangePercent":"1.5"},
		{"symbol":"BTCBUSD","lastPrice":"50010","priceChangePercent":"1.4"}
	]`, nil)

	c := NewClient(testConfig(srv.URL))
	got, err := c.Search(context.Background(), "btc")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || got[0].Symbol != "BTCBUSD" {
		t.Errorf("malformed entry should be skipped, got %+v", got)
	}
}

func TestClient_ClientErrorNotRetried(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	_, err := c.Search(context.Background(), "btc")

	var lerr *domain.LookupError
	if !errors.As(err, &lerr) {
		t.Fatalf("expected a LookupError, got %v", err)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Errorf("4xx must not be retried, got %d requests", hits)
	}
}

func TestClient_ServerErrorRetriedThenFails(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	_, err := c.Search(context.Background(), "btc")

	var lerr *domain.LookupError
	if !errors.As(err, &lerr) {
		t.Fatalf("expected a LookupError, got %v", err)
	}
	if !domain.IsRetriable(lerr) {
		t.Error("lookup failures should be retriable by re-searching")
	}
	if atomic.LoadInt32(&hits) != 3 {
		t.Errorf("expected 1 attempt + 2 retries, got %d requests", hits)
	}
}

func TestClient_ServerErrorThenRecovery(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`[{"symbol":"BTCUSDT","lastPrice":"50000","priceChangePercent":"1.5"}]`))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	got, err := c.Search(context.Background(), "btc")
	if err != nil {
		t.Fatalf("Search should recover on retry: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected 1 match after retry, got %+v", got)
	}
}
