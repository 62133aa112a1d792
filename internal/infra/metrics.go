package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Feed counters
	ticksMerged      atomic.Uint64
	decodeErrors     atomic.Uint64
	transportErrors  atomic.Uint64
	sessionsOpened   atomic.Uint64
	sessionsTornDown atomic.Uint64
	forcedCloses     atomic.Uint64

	// Catalog lookup counters
	lookupRequests atomic.Uint64
	lookupFailures atomic.Uint64

	// Gauges
	subscribedSymbols atomic.Int32
	breakerOpen       atomic.Int32 // 1 = open, 0 = closed
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordTickMerged counts one tick merged into the price map.
func (m *Metrics) RecordTickMerged() {
	m.ticksMerged.Add(1)
}

// RecordDecodeError counts one dropped inbound frame.
func (m *Metrics) RecordDecodeError() {
	m.decodeErrors.Add(1)
}

// RecordTransportError counts one connection-level failure.
func (m *Metrics) RecordTransportError() {
	m.transportErrors.Add(1)
}

// RecordSessionOpened counts one successful subscribe.
func (m *Metrics) RecordSessionOpened() {
	m.sessionsOpened.Add(1)
}

// RecordSessionTornDown counts one fully released session.
func (m *Metrics) RecordSessionTornDown() {
	m.sessionsTornDown.Add(1)
}

// RecordForcedClose counts one teardown that blew its grace period.
func (m *Metrics) RecordForcedClose() {
	m.forcedCloses.Add(1)
}

// RecordLookup counts one catalog request.
func (m *Metrics) RecordLookup() {
	m.lookupRequests.Add(1)
}

// RecordLookupFailure counts one failed catalog request.
func (m *Metrics) RecordLookupFailure() {
	m.lookupFailures.Add(1)
}

// SetSubscribedSymbols sets the size of the live subscription set.
func (m *Metrics) SetSubscribedSymbols(count int32) {
	m.subscribedSymbols.Store(count)
}

// SetBreakerState sets the lookup circuit breaker state (true = open).
func (m *Metrics) SetBreakerState(open bool) {
	if open {
		m.breakerOpen.Store(1)
	} else {
		m.breakerOpen.Store(0)
	}
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	TicksMerged       uint64
	DecodeErrors      uint64
	TransportErrors   uint64
	SessionsOpened    uint64
	SessionsTornDown  uint64
	ForcedCloses      uint64
	LookupRequests    uint64
	LookupFailures    uint64
	SubscribedSymbols int32
	BreakerOpen       bool
	Timestamp         time.Time
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		TicksMerged:       m.ticksMerged.Load(),
		DecodeErrors:      m.decodeErrors.Load(),
		TransportErrors:   m.transportErrors.Load(),
		SessionsOpened:    m.sessionsOpened.Load(),
		SessionsTornDown:  m.sessionsTornDown.Load(),
		ForcedCloses:      m.forcedCloses.Load(),
		LookupRequests:    m.lookupRequests.Load(),
		LookupFailures:    m.lookupFailures.Load(),
		SubscribedSymbols: m.subscribedSymbols.Load(),
		BreakerOpen:       m.breakerOpen.Load() == 1,
		Timestamp:         time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.ticksMerged.Store(0)
	m.decodeErrors.Store(0)
	m.transportErrors.Store(0)
	m.sessionsOpened.Store(0)
	m.sessionsTornDown.Store(0)
	m.forcedCloses.Store(0)
	m.lookupRequests.Store(0)
	m.lookupFailures.Store(0)
	m.subscribedSymbols.Store(0)
	m.breakerOpen.Store(0)
}
