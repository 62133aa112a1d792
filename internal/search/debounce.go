package search

import (
	"sync"
	"time"
)

// Debouncer commits a search term only after the input has been quiet for
// the full window. A new keystroke discards the pending emission and
// restarts the timer; Close cancels any pending emission for good.
type Debouncer struct {
	window time.Duration
	emit   func(term string)

	mu     sync.Mutex
	timer  *time.Timer
	seq    uint64
	closed bool
}

// NewDebouncer creates a debouncer that calls emit with each committed term.
func NewDebouncer(window time.Duration, emit func(term string)) *Debouncer {
	return &Debouncer{window: window, emit: emit}
}

// Input feeds one raw search-text change.
func (d *Debouncer) Input(term string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	// The sequence guards against a callback that already fired racing a
	// restart: only the latest scheduled emission may commit. Emitting
	// under the lock makes Close strictly exclude late emissions.
	d.seq++
	seq := d.seq
	d.timer = time.AfterFunc(d.window, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if !d.closed && seq == d.seq {
			d.emit(term)
		}
	})
}

// Close cancels any pending emission. No emit call happens after Close
// returns observably committed.
func (d *Debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
