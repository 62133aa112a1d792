package domain

import "context"

// StreamConn is one open streaming connection. The feed manager is its
// only owner: no other component may write to or close it.
type StreamConn interface {
	// WriteJSON marshals v and sends it as a single text frame.
	WriteJSON(v interface{}) error
	// ReadMessage blocks until the next inbound frame or a connection error.
	ReadMessage() ([]byte, error)
	// CloseHandshake initiates a polite close. ReadMessage unblocks with an
	// error once the peer confirms.
	CloseHandshake() error
	// Close tears the connection down immediately.
	Close() error
}

// StreamDialer opens streaming connections to the quote endpoint
type StreamDialer interface {
	Dial(ctx context.Context) (StreamConn, error)
}

// CatalogLookup is the stateless instrument search collaborator
type CatalogLookup interface {
	// Search returns up to N instruments whose symbol contains term
	// (case-insensitive). An empty term yields an empty result without
	// a network call.
	Search(ctx context.Context, term string) ([]Instrument, error)
}

// WatchlistRepository persists the full watchlist collection under one key
type WatchlistRepository interface {
	LoadWatchlists() ([]Watchlist, error)
	SaveWatchlists(lists []Watchlist) error
}
