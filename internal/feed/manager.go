package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Jhaamlal/Equals-Crypto/internal/domain"
	"github.com/Jhaamlal/Equals-Crypto/internal/infra"
)

// State of the subscription lifecycle
type State string

const (
	StateIdle        State = "IDLE"
	StateConnecting  State = "CONNECTING"
	StateSubscribed  State = "SUBSCRIBED"
	StateTearingDown State = "TEARING_DOWN"
)

const (
	// DefaultTeardownGrace bounds the wait for close confirmation before
	// the connection is force-closed.
	DefaultTeardownGrace = 3 * time.Second

	// DefaultInboxSize buffers inbound events during tick bursts.
	DefaultInboxSize = 256
)

// session is one live connection together with the exact symbol set it was
// opened for. At most one session exists at any time; the generation tag
// distinguishes it from its predecessors so late events can be discarded.
type session struct {
	gen     uint64
	symbols []string
	conn    domain.StreamConn
	open    bool
	tearing bool
	stale   bool // target changed while the dial was in flight
	grace   *time.Timer
}

// Manager owns the subscription session and the realtime price map. It
// re-derives the required symbol set on every SetTarget call and performs
// ordered teardown/rebuild of the session.
//
// All state transitions happen on a single event loop goroutine; external
// reads go through a mutex-guarded snapshot.
type Manager struct {
	dialer domain.StreamDialer
	grace  time.Duration
	inbox  chan interface{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	state  State
	prices domain.PriceMap

	// Loop-owned; only the run goroutine touches these.
	gen     uint64
	desired []string
	sess    *session
}

// NewManager creates a feed subscription manager. Zero values for grace and
// inboxSize select the defaults.
func NewManager(dialer domain.StreamDialer, grace time.Duration, inboxSize int) *Manager {
	if grace <= 0 {
		grace = DefaultTeardownGrace
	}
	if inboxSize <= 0 {
		inboxSize = DefaultInboxSize
	}
	return &Manager{
		dialer: dialer,
		grace:  grace,
		inbox:  make(chan interface{}, inboxSize),
		state:  StateIdle,
	}
}

// Start launches the event loop. It must be called before SetTarget.
func (m *Manager) Start(ctx context.Context) {
	m.ctx, m.cancel = context.WithCancel(ctx)
	m.wg.Add(1)
	go m.run()
}

// Stop tears down any live session and waits for all goroutines to finish.
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
		m.wg.Wait()
	}
}

// SetTarget feeds the current selection and watchlist collection into the
// manager. The derived target symbol set is the selected watchlist's
// symbols, lowercased and deduplicated; an empty selection or an empty
// watchlist derives an empty set. Calling with an unchanged set while the
// session is healthy is a no-op. Errors are never returned synchronously:
// failures drop the manager to IDLE and empty the price map.
func (m *Manager) SetTarget(selection string, watchlists []domain.Watchlist) {
	symbols := deriveTarget(selection, watchlists)
	select {
	case m.inbox <- targetEvent{symbols: symbols}:
	case <-m.ctx.Done():
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// CurrentPrices returns the live price map. The returned map is never
// mutated after it is handed out (merges swap in a fresh map), so callers
// may read it freely but must not write to it. Missing symbols fall back to
// the instrument's static price on the caller's side.
func (m *Manager) CurrentPrices() domain.PriceMap {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.prices
}

// deriveTarget resolves the selection against the watchlist collection.
func deriveTarget(selection string, watchlists []domain.Watchlist) []string {
	if selection == "" {
		return nil
	}
	for i := range watchlists {
		if watchlists[i].ID == selection {
			return watchlists[i].Symbols()
		}
	}
	return nil
}

// run is the single-threaded event loop. Every transition is processed to
// completion before the next event.
func (m *Manager) run() {
	defer m.wg.Done()
	for {
		select {
		case <-m.ctx.Done():
			m.shutdown()
			return
		case ev := <-m.inbox:
			m.processEvent(ev)
		}
	}
}

func (m *Manager) processEvent(ev interface{}) {
	switch e := ev.(type) {
	case targetEvent:
		m.handleTarget(e.symbols)
	case openedEvent:
		m.handleOpened(e)
	case *tickEvent:
		m.handleTick(e)
	case closedEvent:
		m.handleClosed(e)
	case graceEvent:
		m.handleGrace(e)
	default:
		slog.Warn("unknown feed event", slog.Any("event", ev))
	}
}

func (m *Manager) handleTarget(symbols []string) {
	unchanged := equalSets(symbols, m.desired)
	// An unchanged target is a no-op while the session tracks it; after a
	// transport error the session is gone, and re-invoking with the same
	// target is the caller's retry.
	if unchanged && !(m.sess == nil && len(symbols) > 0) {
		return
	}
	m.desired = symbols

	switch {
	case m.sess == nil:
		if len(m.desired) > 0 {
			m.startConnect()
		}
	case !m.sess.open:
		// Dial in flight. The open must still complete; mark it so the
		// result is torn down immediately on arrival.
		m.sess.stale = true
	case m.sess.tearing:
		// Teardown already running; the new target is picked up once the
		// close confirms.
	default:
		m.beginTeardown()
	}
}

func (m *Manager) startConnect() {
	m.gen++
	sess := &session{gen: m.gen, symbols: append([]string(nil), m.desired...)}
	m.sess = sess
	m.setState(StateConnecting)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		conn, err := m.dialer.Dial(m.ctx)
		m.deliver(openedEvent{gen: sess.gen, conn: conn, err: err})
	}()
}

func (m *Manager) handleOpened(ev openedEvent) {
	if m.sess == nil || ev.gen != m.sess.gen {
		// Superseded before the dial finished.
		if ev.conn != nil {
			ev.conn.Close()
		}
		return
	}
	if ev.err != nil {
		slog.Warn("stream dial failed", slog.Any("error", domain.NewTransportError("dial", ev.err)))
		infra.GlobalMetrics.RecordTransportError()
		m.dropToIdle()
		return
	}

	sess := m.sess
	sess.conn = ev.conn
	sess.open = true

	if sess.stale {
		// Target moved while the dial was in flight. The session never
		// subscribed, so skip the unsubscribe and go straight to close.
		sess.conn.Close()
		m.sess = nil
		if len(m.desired) > 0 {
			m.startConnect()
		} else {
			m.setState(StateIdle)
		}
		return
	}

	if err := sess.conn.WriteJSON(newCommandFrame(methodSubscribe, sess.symbols)); err != nil {
		slog.Warn("subscribe failed", slog.Any("error", domain.NewTransportError("subscribe", err)))
		infra.GlobalMetrics.RecordTransportError()
		m.dropToIdle()
		return
	}

	m.setPrices(make(domain.PriceMap))
	m.setState(StateSubscribed)
	infra.GlobalMetrics.RecordSessionOpened()
	infra.GlobalMetrics.SetSubscribedSymbols(int32(len(sess.symbols)))
	slog.Info("stream subscribed", slog.Uint64("generation", sess.gen), slog.Int("symbols", len(sess.symbols)))

	m.wg.Add(1)
	go m.readLoop(sess.conn, sess.gen)
}

// readLoop pumps inbound frames into the inbox until the connection dies.
func (m *Manager) readLoop(conn domain.StreamConn, gen uint64) {
	defer m.wg.Done()
	for {
		raw, err := conn.ReadMessage()
		if err != nil {
			m.deliver(closedEvent{gen: gen, err: err})
			return
		}
		ev, derr := decodeTick(raw)
		if derr != nil {
			slog.Debug("dropping frame", slog.Any("error", derr))
			infra.GlobalMetrics.RecordDecodeError()
			continue
		}
		ev.gen = gen
		m.deliver(ev)
	}
}

func (m *Manager) handleTick(ev *tickEvent) {
	defer releaseTickEvent(ev)
	if m.sess == nil || ev.gen != m.sess.gen || !m.sess.open || m.sess.tearing {
		// Late message from a superseded or closing session.
		return
	}

	// Upsert via copy-on-write: the map handed out by CurrentPrices stays
	// a stable snapshot.
	m.mu.Lock()
	next := make(domain.PriceMap, len(m.prices)+1)
	for k, v := range m.prices {
		next[k] = v
	}
	next[ev.symbol] = domain.RealtimePrice{Price: ev.price, ChangePercent: ev.pct}
	m.prices = next
	m.mu.Unlock()

	infra.GlobalMetrics.RecordTickMerged()
}

func (m *Manager) beginTeardown() {
	sess := m.sess
	sess.tearing = true
	m.setState(StateTearingDown)
	m.setPrices(nil)
	infra.GlobalMetrics.SetSubscribedSymbols(0)

	if !sess.open {
		m.finishTeardown()
		return
	}

	// Unsubscribe the previous symbol set before the connection goes away.
	if err := sess.conn.WriteJSON(newCommandFrame(methodUnsubscribe, sess.symbols)); err != nil {
		slog.Debug("unsubscribe failed", slog.Any("error", err))
	}
	if err := sess.conn.CloseHandshake(); err != nil {
		// Connection already erroring; skip straight to close.
		m.finishTeardown()
		return
	}

	gen := sess.gen
	sess.grace = time.AfterFunc(m.grace, func() {
		m.deliver(graceEvent{gen: gen})
	})
}

func (m *Manager) handleClosed(ev closedEvent) {
	if m.sess == nil || ev.gen != m.sess.gen {
		return
	}
	if m.sess.tearing {
		m.finishTeardown()
		return
	}

	slog.Warn("stream closed unexpectedly", slog.Any("error", domain.NewTransportError("read", ev.err)))
	infra.GlobalMetrics.RecordTransportError()
	m.dropToIdle()
}

func (m *Manager) handleGrace(ev graceEvent) {
	if m.sess == nil || ev.gen != m.sess.gen || !m.sess.tearing {
		return
	}
	slog.Warn("close confirmation timed out, forcing close", slog.Uint64("generation", ev.gen))
	infra.GlobalMetrics.RecordForcedClose()
	m.finishTeardown()
}

// finishTeardown fully releases the session, then re-enters CONNECTING if a
// non-empty target is waiting, IDLE otherwise.
func (m *Manager) finishTeardown() {
	sess := m.sess
	if sess.grace != nil {
		sess.grace.Stop()
	}
	if sess.conn != nil {
		sess.conn.Close()
	}
	m.sess = nil
	infra.GlobalMetrics.RecordSessionTornDown()

	if len(m.desired) > 0 {
		m.startConnect()
	} else {
		m.setState(StateIdle)
	}
}

// dropToIdle releases everything after an unrecoverable transport error.
// No automatic retry: the caller re-invokes SetTarget if it wants one.
func (m *Manager) dropToIdle() {
	if sess := m.sess; sess != nil {
		if sess.grace != nil {
			sess.grace.Stop()
		}
		if sess.conn != nil {
			sess.conn.Close()
		}
		m.sess = nil
	}
	m.setPrices(nil)
	m.setState(StateIdle)
	infra.GlobalMetrics.SetSubscribedSymbols(0)
}

// shutdown runs when the manager's context is canceled.
func (m *Manager) shutdown() {
	if sess := m.sess; sess != nil && sess.open && !sess.tearing {
		sess.conn.WriteJSON(newCommandFrame(methodUnsubscribe, sess.symbols))
		sess.conn.CloseHandshake()
	}
	m.dropToIdle()
	slog.Info("feed manager stopped")
}

// deliver pushes an event into the inbox unless the manager is stopping.
func (m *Manager) deliver(ev interface{}) {
	select {
	case m.inbox <- ev:
	case <-m.ctx.Done():
		if e, ok := ev.(openedEvent); ok && e.conn != nil {
			e.conn.Close()
		}
	}
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

func (m *Manager) setPrices(p domain.PriceMap) {
	m.mu.Lock()
	m.prices = p
	m.mu.Unlock()
}

// equalSets compares two deduplicated symbol sets ignoring order.
func equalSets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, s := range a {
		set[s] = struct{}{}
	}
	for _, s := range b {
		if _, ok := set[s]; !ok {
			return false
		}
	}
	return true
}
