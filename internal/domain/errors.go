package domain

import "errors"

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// DecodeError represents a malformed inbound stream message. It is never
// fatal: the message is dropped and the session keeps running.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return "decode: " + e.Reason
	}
	return "decode: " + e.Reason + ": " + e.Err.Error()
}

func (e *DecodeError) IsRetriable() bool { return false }

func (e *DecodeError) Unwrap() error { return e.Err }

// TransportError represents a connection-level streaming failure. The feed
// manager reacts by dropping to idle; retry policy belongs to the caller.
type TransportError struct {
	Op  string // "dial", "subscribe", "read", "close"
	Err error
}

func (e *TransportError) Error() string {
	return "transport " + e.Op + ": " + e.Err.Error()
}

func (e *TransportError) IsRetriable() bool { return true }

func (e *TransportError) Unwrap() error { return e.Err }

// NewTransportError wraps a connection-level failure
func NewTransportError(op string, err error) *TransportError {
	return &TransportError{Op: op, Err: err}
}

// LookupError represents a failed catalog request. Callers surface it as
// an empty result set, never as a crash.
type LookupError struct {
	Term string
	Err  error
}

func (e *LookupError) Error() string {
	return "lookup [" + e.Term + "]: " + e.Err.Error()
}

func (e *LookupError) IsRetriable() bool { return true }

func (e *LookupError) Unwrap() error { return e.Err }

// PersistenceError represents a storage read/write failure. Callers degrade
// to empty state or a no-op.
type PersistenceError struct {
	Op  string // "load", "save"
	Err error
}

func (e *PersistenceError) Error() string {
	return "persistence " + e.Op + ": " + e.Err.Error()
}

func (e *PersistenceError) IsRetriable() bool { return false }

func (e *PersistenceError) Unwrap() error { return e.Err }

var (
	// ErrConnectionFailed is returned when the websocket connection fails. It's usually retriable.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrWatchlistNotFound is returned when a watchlist id does not resolve. Not retriable.
	ErrWatchlistNotFound = errors.New("watchlist not found")

	// ErrConfigNotFound is returned when the configuration file is missing
	ErrConfigNotFound = errors.New("configuration not found")
)
