package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Jhaamlal/Equals-Crypto/internal/domain"

	"github.com/shopspring/decimal"
)

// fakeLookup serves canned results per term and can hold a request open
// until its context is canceled or a release channel fires.
type fakeLookup struct {
	mu      sync.Mutex
	results map[string][]domain.Instrument
	err     error
	block   map[string]chan struct{}
	calls   []string
}

func newFakeLookup() *fakeLookup {
	return &fakeLookup{
		results: make(map[string][]domain.Instrument),
		block:   make(map[string]chan struct{}),
	}
}

func (f *fakeLookup) Search(ctx context.Context, term string) ([]domain.Instrument, error) {
	f.mu.Lock()
	f.calls = append(f.calls, term)
	release := f.block[term]
	f.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.results[term], nil
}

type resultSink struct {
	mu        sync.Mutex
	delivered []string
}

func (r *resultSink) accept(term string, items []domain.Instrument) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delivered = append(r.delivered, term)
}

func (r *resultSink) terms() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.delivered...)
}

func waitForTerms(t *testing.T, sink *resultSink, want int) []string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got := sink.terms(); len(got) >= want {
			return got
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d results, got %v", want, sink.terms())
	return nil
}

func TestSearcher_DeliversResults(t *testing.T) {
	lookup := newFakeLookup()
	lookup.results["btc"] = []domain.Instrument{{
		Symbol: "BTCUSDT",
		Price:  decimal.NewFromInt(50000),
	}}
	sink := &resultSink{}
	s := NewSearcher(lookup, sink.accept)

	s.Search(context.Background(), "btc")

	got := waitForTerms(t, sink, 1)
	if got[0] != "btc" {
		t.Errorf("delivered term = %q", got[0])
	}
}

func TestSearcher_NewerSearchSupersedes(t *testing.T) {
	lookup := newFakeLookup()
	lookup.block["b"] = make(chan struct{}) // never released: waits for cancel
	lookup.results["btc"] = []domain.Instrument{{Symbol: "BTCUSDT"}}
	sink := &resultSink{}
	s := NewSearcher(lookup, sink.accept)

	s.Search(context.Background(), "b")
	s.Search(context.Background(), "btc")

	got := waitForTerms(t, sink, 1)
	time.Sleep(50 * time.Millisecond)
	got = sink.terms()
	if len(got) != 1 || got[0] != "btc" {
		t.Errorf("delivered terms = %v, want only the superseding term", got)
	}
}

func TestSearcher_StaleResponseDiscarded(t *testing.T) {
	lookup := newFakeLookup()
	release := make(chan struct{})
	lookup.block["old"] = release
	lookup.results["old"] = []domain.Instrument{{Symbol: "OLDUSDT"}}
	lookup.results["new"] = []domain.Instrument{{Symbol: "NEWUSDT"}}
	sink := &resultSink{}
	s := NewSearcher(lookup, sink.accept)

	s.Search(context.Background(), "old")
	s.Search(context.Background(), "new")
	close(release) // the old request completes after being superseded

	got := waitForTerms(t, sink, 1)
	time.Sleep(50 * time.Millisecond)
	got = sink.terms()
	for _, term := range got {
		if term == "old" {
			t.Errorf("stale response must be discarded, delivered %v", got)
		}
	}
}

func TestSearcher_LookupFailureDeliversEmpty(t *testing.T) {
	lookup := newFakeLookup()
	lookup.err = &domain.LookupError{Term: "btc", Err: errors.New("boom")}
	var (
		mu    sync.Mutex
		items []domain.Instrument
		seen  bool
	)
	s := NewSearcher(lookup, func(term string, got []domain.Instrument) {
		mu.Lock()
		defer mu.Unlock()
		items = got
		seen = true
	})

	s.Search(context.Background(), "btc")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		done := seen
		mu.Unlock()
		if done {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	mu.Lock()
	defer mu.Unlock()
	if !seen {
		t.Fatal("expected a delivery despite the lookup failure")
	}
	if len(items) != 0 {
		t.Errorf("failed lookup should deliver empty results, got %v", items)
	}
}

func TestSearcher_CancelDiscardsInFlight(t *testing.T) {
	lookup := newFakeLookup()
	lookup.block["btc"] = make(chan struct{})
	sink := &resultSink{}
	s := NewSearcher(lookup, sink.accept)

	s.Search(context.Background(), "btc")
	s.Cancel()

	time.Sleep(50 * time.Millisecond)
	if got := sink.terms(); len(got) != 0 {
		t.Errorf("canceled search must not deliver, got %v", got)
	}
}
