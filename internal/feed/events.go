package feed

import (
	"sync"

	"github.com/Jhaamlal/Equals-Crypto/internal/domain"

	"github.com/shopspring/decimal"
)

// Events delivered to the manager's inbox. Every session-scoped event
// carries the generation of the session that produced it so the loop can
// discard anything from a superseded session.

// targetEvent carries a freshly derived target symbol set.
type targetEvent struct {
	symbols []string
}

// openedEvent reports the outcome of an asynchronous dial.
type openedEvent struct {
	gen  uint64
	conn domain.StreamConn
	err  error
}

// tickEvent is one decoded inbound quote. Instances are pooled: the loop
// releases them after merging.
type tickEvent struct {
	gen    uint64
	symbol string
	price  decimal.Decimal
	pct    decimal.Decimal
}

// closedEvent signals that the session's read loop has finished, either by
// a confirmed close handshake or a transport failure.
type closedEvent struct {
	gen uint64
	err error
}

// graceEvent fires when a teardown's bounded wait for close confirmation
// has elapsed.
type graceEvent struct {
	gen uint64
}

var tickEventPool = sync.Pool{
	New: func() interface{} {
		return &tickEvent{}
	},
}

// acquireTickEvent gets a tickEvent from the pool. Fields hold zero values
// and must be initialized.
func acquireTickEvent() *tickEvent {
	return tickEventPool.Get().(*tickEvent)
}

// releaseTickEvent resets ev and returns it to the pool.
func releaseTickEvent(ev *tickEvent) {
	if ev == nil {
		return
	}
	ev.gen = 0
	ev.symbol = ""
	ev.price = decimal.Decimal{}
	ev.pct = decimal.Decimal{}

	tickEventPool.Put(ev)
}
