package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Jhaamlal/Equals-Crypto/internal/domain"
	"github.com/Jhaamlal/Equals-Crypto/internal/infra"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
)

// tickerEntry is one row of the 24h ticker statistics endpoint.
type tickerEntry struct {
	Symbol             string `json:"symbol"`
	LastPrice          string `json:"lastPrice"`
	PriceChangePercent string `json:"priceChangePercent"`
}

// Client implements the catalog lookup against the Binance 24h ticker
// endpoint. Requests are retried with exponential backoff and guarded by a
// circuit breaker so a dead endpoint fails fast instead of piling up.
type Client struct {
	restURL    string
	maxResults int
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *slog.Logger
}

// NewClient creates a new catalog lookup client.
func NewClient(cfg *infra.Config) *Client {
	settings := gobreaker.Settings{
		Name:    "binance-catalog",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			infra.GlobalMetrics.SetBreakerState(to == gobreaker.StateOpen)
			slog.Warn("catalog breaker state changed",
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	}

	return &Client{
		restURL:    cfg.API.Binance.RestURL,
		maxResults: cfg.Search.MaxResults,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		},
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  slog.Default().With("module", "binance_catalog"),
	}
}

// Search returns up to MaxResults instruments whose symbol contains term,
// case-insensitive. An empty term yields an empty result without touching
// the network. Failures come back as a LookupError; callers surface them
// as an empty result set.
func (c *Client) Search(ctx context.Context, term string) ([]domain.Instrument, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, nil
	}

	infra.GlobalMetrics.RecordLookup()

	res, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetchAll(ctx)
	})
	if err != nil {
		infra.GlobalMetrics.RecordLookupFailure()
		return nil, &domain.LookupError{Term: term, Err: err}
	}
	entries := res.([]tickerEntry)

	needle := strings.ToLower(term)
	out := make([]domain.Instrument, 0, c.maxResults)
	for _, e := range entries {
		if !strings.Contains(strings.ToLower(e.Symbol), needle) {
			continue
		}
		price, perr := decimal.NewFromString(e.LastPrice)
		pct, cerr := decimal.NewFromString(e.PriceChangePercent)
		if perr != nil || cerr != nil {
			c.logger.Debug("skipping malformed catalog entry", slog.String("symbol", e.Symbol))
			continue
		}
		out = append(out, domain.Instrument{
			Symbol:             e.Symbol,
			Price:              price,
			PriceChangePercent: pct,
		})
		if len(out) == c.maxResults {
			break
		}
	}
	return out, nil
}

// fetchAll downloads the full ticker list, retrying transient failures.
func (c *Client) fetchAll(ctx context.Context) ([]tickerEntry, error) {
	var entries []tickerEntry

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.restURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", infra.DefaultUserAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			err := fmt.Errorf("unexpected status code: %d", resp.StatusCode)
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return backoff.Permanent(err)
			}
			return err
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		return json.Unmarshal(body, &entries)
	}

	policy := backoff.WithContext(newRetryPolicy(), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return entries, nil
}

// newRetryPolicy bounds retries to a couple of quick attempts; the search
// path is interactive and a stale result is worthless.
func newRetryPolicy() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	return backoff.WithMaxRetries(b, 2)
}
