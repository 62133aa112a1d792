package search

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/Jhaamlal/Equals-Crypto/internal/domain"
)

// Searcher dispatches committed search terms to the catalog lookup. A newer
// term supersedes an older one: the in-flight request is canceled and a
// stale response arriving late is discarded rather than merged.
type Searcher struct {
	lookup    domain.CatalogLookup
	onResults func(term string, items []domain.Instrument)

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

// NewSearcher creates a searcher delivering results through onResults.
// Failed lookups deliver an empty result set.
func NewSearcher(lookup domain.CatalogLookup, onResults func(term string, items []domain.Instrument)) *Searcher {
	return &Searcher{lookup: lookup, onResults: onResults}
}

// Search starts a lookup for term, superseding any in-flight one.
func (s *Searcher) Search(ctx context.Context, term string) {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	go func() {
		defer cancel()

		items, err := s.lookup.Search(ctx, term)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			slog.Warn("catalog lookup failed", slog.String("term", term), slog.Any("error", err))
			items = nil
		}

		s.mu.Lock()
		stale := gen != s.gen
		s.mu.Unlock()
		if stale {
			// A newer search started while this one was in flight.
			return
		}
		s.onResults(term, items)
	}()
}

// Cancel discards any in-flight lookup.
func (s *Searcher) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
}
