package watchlist

import (
	"log/slog"
	"sync"

	"github.com/Jhaamlal/Equals-Crypto/internal/domain"

	"github.com/google/uuid"
)

// Store owns the named watchlists and their instrument membership. Every
// mutation triggers a best-effort save: failures are logged, never
// propagated, so a broken disk degrades to in-memory-only operation.
type Store struct {
	repo domain.WatchlistRepository

	mu    sync.RWMutex
	lists []domain.Watchlist
}

// NewStore creates a store preloaded from the repository. A load failure
// degrades to an empty collection.
func NewStore(repo domain.WatchlistRepository) *Store {
	s := &Store{repo: repo}
	if repo == nil {
		return s
	}

	lists, err := repo.LoadWatchlists()
	if err != nil {
		slog.Warn("failed to load watchlists, starting empty", slog.Any("error", err))
		return s
	}
	s.lists = lists
	return s
}

// Create adds a new empty watchlist and returns it.
func (s *Store) Create(name string) domain.Watchlist {
	w := domain.Watchlist{
		ID:    uuid.NewString(),
		Name:  name,
		Coins: []domain.Instrument{},
	}

	s.mu.Lock()
	s.lists = append(s.lists, w)
	s.mu.Unlock()

	s.persist()
	return w
}

// Delete removes a watchlist. The caller must re-derive the feed target
// afterwards so no subscription is left dangling.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	removed := false
	for i := range s.lists {
		if s.lists[i].ID == id {
			s.lists = append(s.lists[:i], s.lists[i+1:]...)
			removed = true
			break
		}
	}
	s.mu.Unlock()

	if removed {
		s.persist()
	}
	return removed
}

// Get returns a copy of the watchlist with the given id.
func (s *Store) Get(id string) (domain.Watchlist, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.lists {
		if s.lists[i].ID == id {
			return copyWatchlist(s.lists[i]), true
		}
	}
	return domain.Watchlist{}, false
}

// All returns a copy of the full collection in creation order.
func (s *Store) All() []domain.Watchlist {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Watchlist, len(s.lists))
	for i := range s.lists {
		out[i] = copyWatchlist(s.lists[i])
	}
	return out
}

// AddInstrument appends an instrument to a watchlist. Membership is unique
// by symbol: adding an existing symbol is a no-op.
func (s *Store) AddInstrument(id string, inst domain.Instrument) bool {
	s.mu.Lock()
	changed := false
	for i := range s.lists {
		if s.lists[i].ID != id {
			continue
		}
		if !s.lists[i].Contains(inst.Symbol) {
			s.lists[i].Coins = append(s.lists[i].Coins, inst)
			changed = true
		}
		break
	}
	s.mu.Unlock()

	if changed {
		s.persist()
	}
	return changed
}

// RemoveInstrument drops a symbol from a watchlist, preserving order.
func (s *Store) RemoveInstrument(id, symbol string) bool {
	s.mu.Lock()
	changed := false
	for i := range s.lists {
		if s.lists[i].ID != id {
			continue
		}
		coins := s.lists[i].Coins
		for j := range coins {
			if coins[j].Symbol == symbol {
				s.lists[i].Coins = append(coins[:j], coins[j+1:]...)
				changed = true
				break
			}
		}
		break
	}
	s.mu.Unlock()

	if changed {
		s.persist()
	}
	return changed
}

// persist saves the collection best-effort, mirroring the fire-and-forget
// contract of the persistence collaborator.
func (s *Store) persist() {
	if s.repo == nil {
		return
	}
	if err := s.repo.SaveWatchlists(s.All()); err != nil {
		slog.Warn("failed to save watchlists", slog.Any("error", err))
	}
}

func copyWatchlist(w domain.Watchlist) domain.Watchlist {
	out := w
	out.Coins = append([]domain.Instrument(nil), w.Coins...)
	return out
}
