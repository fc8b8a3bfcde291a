// Package realtime owns the persistent bidirectional connection to the
// backend and the set of channel subscriptions multiplexed over it.
//
// The Manager keeps exactly one live connection per authenticated session,
// recovers from transient failure with bounded exponential backoff, and
// re-establishes every registered channel on each successful (re)connect.
// Connection errors are never surfaced as errors to callers; they degrade the
// exposed connection state instead.
package realtime

import (
	"sync"
	"time"

	"github.com/swiftparcel/client-go/internal/clock"
	"github.com/swiftparcel/client-go/pkg/logger"
	"github.com/swiftparcel/client-go/pkg/types"
)

const (
	defaultBackoffBase = time.Second
	defaultBackoffMax  = 30 * time.Second
	pingInterval       = 25 * time.Second
)

// Callbacks receives transport lifecycle and frame events.
type Callbacks struct {
	OnConnect      func()
	OnConnectError func(err error)
	OnDisconnect   func(reason string)
	OnFrame        func(frame types.Frame)
}

// Conn is one live transport connection.
type Conn interface {
	// Emit sends a named event to the server.
	Emit(event string, data map[string]any) error
	// Ping measures a round-trip to the server.
	Ping() (time.Duration, error)
	// Close tears the connection down.
	Close() error
}

// Transport dials transport connections. Dial returns quickly; connection
// establishment is reported through the callbacks.
type Transport interface {
	Dial(token string, cb Callbacks) (Conn, error)
}

// Options configures a Manager.
type Options struct {
	Transport Transport
	// TokenFn supplies the current access token. It is consulted on every
	// connection attempt so refreshed tokens are always used.
	TokenFn func() string
	// OnFrame receives inbound frames in transport arrival order.
	OnFrame func(frame types.Frame)
	// OnStateChange fires after every connection state transition.
	OnStateChange func(state types.ConnectionState)
	// Clock defaults to the real clock.
	Clock clock.Clock
	// BackoffBase and BackoffMax bound the retry schedule. Zero means default.
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

// Manager owns the single realtime connection and the subscription registry.
type Manager struct {
	transport     Transport
	tokenFn       func() string
	onFrame       func(types.Frame)
	onStateChange func(types.ConnectionState)
	clock         clock.Clock
	backoffBase   time.Duration
	backoffMax    time.Duration

	subs *Registry

	mu         sync.Mutex
	status     types.ConnectionStatus
	attempts   int
	lastPing   time.Time
	quality    types.ConnectionQuality
	conn       Conn
	gen        int
	manual     bool
	retryTimer *time.Timer
	pingStop   chan struct{}
}

// NewManager creates a Manager in the disconnected state.
func NewManager(opts Options) *Manager {
	m := &Manager{
		transport:     opts.Transport,
		tokenFn:       opts.TokenFn,
		onFrame:       opts.OnFrame,
		onStateChange: opts.OnStateChange,
		clock:         opts.Clock,
		backoffBase:   opts.BackoffBase,
		backoffMax:    opts.BackoffMax,
		subs:          NewRegistry(),
		status:        types.StatusDisconnected,
		quality:       types.QualityGood,
	}
	if m.clock == nil {
		m.clock = clock.Real{}
	}
	if m.backoffBase <= 0 {
		m.backoffBase = defaultBackoffBase
	}
	if m.backoffMax <= 0 {
		m.backoffMax = defaultBackoffMax
	}
	return m
}

// State returns a snapshot of the connection state.
func (m *Manager) State() types.ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return types.ConnectionState{
		Status:            m.status,
		ReconnectAttempts: m.attempts,
		LastPing:          m.lastPing,
		Quality:           m.quality,
	}
}

// Connect starts connecting. Idempotent: calling it while already connecting
// or connected is a no-op.
func (m *Manager) Connect() {
	m.mu.Lock()
	if m.status == types.StatusConnecting || m.status == types.StatusConnected {
		m.mu.Unlock()
		return
	}
	m.manual = false
	m.mu.Unlock()

	m.attempt()
}

// Disconnect tears the connection down unconditionally.
//
// No reconnection happens until Connect is called again.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.manual = true
	m.gen++
	if m.retryTimer != nil {
		m.retryTimer.Stop()
		m.retryTimer = nil
	}
	conn := m.conn
	m.conn = nil
	m.stopPingLocked()
	changed := m.status != types.StatusDisconnected
	m.status = types.StatusDisconnected
	m.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	if changed {
		m.notifyState()
	}
}

// Subscribe registers interest in a channel and, when connected, requests it
// from the server. Duplicate subscriptions to the same channel are collapsed.
func (m *Manager) Subscribe(channel string) string {
	id, created := m.subs.Add(channel)
	if !created {
		return id
	}

	m.mu.Lock()
	conn := m.conn
	connected := m.status == types.StatusConnected
	m.mu.Unlock()

	if connected && conn != nil {
		if err := conn.Emit("subscribe", map[string]any{"channel": channel, "subscription_id": id}); err != nil {
			logger.Warn().Err(err).Str("channel", channel).Msg("subscribe emit failed")
		}
	}
	return id
}

// Unsubscribe removes a subscription by id. Unknown ids are a no-op.
func (m *Manager) Unsubscribe(id string) {
	channel, ok := m.subs.Remove(id)
	if !ok {
		return
	}

	m.mu.Lock()
	conn := m.conn
	connected := m.status == types.StatusConnected
	m.mu.Unlock()

	if connected && conn != nil {
		if err := conn.Emit("unsubscribe", map[string]any{"channel": channel, "subscription_id": id}); err != nil {
			logger.Warn().Err(err).Str("channel", channel).Msg("unsubscribe emit failed")
		}
	}
}

// Subscriptions exposes the registry (for teardown and inspection).
func (m *Manager) Subscriptions() *Registry {
	return m.subs
}

// attempt dials one connection. Transitions are driven by the callbacks.
func (m *Manager) attempt() {
	m.mu.Lock()
	if m.manual {
		m.mu.Unlock()
		return
	}
	if m.retryTimer != nil {
		m.retryTimer.Stop()
		m.retryTimer = nil
	}
	m.status = types.StatusConnecting
	m.gen++
	gen := m.gen
	m.mu.Unlock()
	m.notifyState()

	// Reconnect attempts must use the current token, not one captured earlier:
	// the session may have refreshed since the last attempt.
	token := ""
	if m.tokenFn != nil {
		token = m.tokenFn()
	}

	cb := Callbacks{
		OnConnect:      func() { m.handleConnected(gen) },
		OnConnectError: func(err error) { m.handleConnectFailed(gen, err) },
		OnDisconnect:   func(reason string) { m.handleDisconnected(gen, reason) },
		OnFrame:        func(frame types.Frame) { m.handleFrame(gen, frame) },
	}

	conn, err := m.transport.Dial(token, cb)
	if err != nil {
		m.handleConnectFailed(gen, err)
		return
	}

	m.mu.Lock()
	if gen != m.gen {
		// A Disconnect or newer attempt superseded this dial.
		m.mu.Unlock()
		_ = conn.Close()
		return
	}
	m.conn = conn
	// The transport may have reported connect while Dial was still on the
	// stack, before the conn was stored. handleConnected then had no conn to
	// replay subscriptions on or ping over, so run both here.
	connectedEarly := m.status == types.StatusConnected && m.pingStop == nil
	if connectedEarly {
		m.startPingLocked(conn)
	}
	m.mu.Unlock()

	if connectedEarly {
		m.replaySubscriptions(conn)
	}
}

func (m *Manager) handleConnected(gen int) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.status = types.StatusConnected
	m.attempts = 0
	m.lastPing = m.clock.Now()
	conn := m.conn
	m.startPingLocked(conn)
	m.mu.Unlock()

	logger.Info().Msg("realtime connected")
	m.notifyState()
	m.replaySubscriptions(conn)
}

func (m *Manager) handleConnectFailed(gen int, err error) {
	m.mu.Lock()
	if gen != m.gen || m.manual {
		m.mu.Unlock()
		return
	}
	m.status = types.StatusError
	m.attempts++
	attempts := m.attempts
	conn := m.conn
	m.conn = nil
	delay := m.backoffDelay(attempts)
	m.retryTimer = time.AfterFunc(delay, m.attempt)
	m.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	logger.Warn().Err(err).Int("attempt", attempts).Dur("retry_in", delay).Msg("realtime connect failed")
	m.notifyState()
}

func (m *Manager) handleDisconnected(gen int, reason string) {
	m.mu.Lock()
	if gen != m.gen || m.manual {
		m.mu.Unlock()
		return
	}
	m.status = types.StatusDisconnected
	conn := m.conn
	m.conn = nil
	m.stopPingLocked()
	m.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	logger.Warn().Str("reason", reason).Msg("realtime disconnected, reconnecting")
	m.notifyState()

	// Remote closes are transient: go straight back to connecting.
	m.attempt()
}

func (m *Manager) handleFrame(gen int, frame types.Frame) {
	m.mu.Lock()
	stale := gen != m.gen
	m.mu.Unlock()
	if stale {
		return
	}

	if frame.Channel != "" {
		m.subs.Touch(frame.Channel, m.clock.Now())
	}
	if m.onFrame != nil {
		m.onFrame(frame)
	}
}

// replaySubscriptions re-requests every registered channel on a fresh
// connection, exactly once each.
func (m *Manager) replaySubscriptions(conn Conn) {
	if conn == nil {
		return
	}
	for _, sub := range m.subs.Channels() {
		if err := conn.Emit("subscribe", map[string]any{"channel": sub.Channel, "subscription_id": sub.ID}); err != nil {
			logger.Warn().Err(err).Str("channel", sub.Channel).Msg("subscription replay failed")
		}
	}
}

// backoffDelay returns the bounded exponential delay for the given attempt.
func (m *Manager) backoffDelay(attempt int) time.Duration {
	delay := m.backoffBase
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= m.backoffMax {
			return m.backoffMax
		}
	}
	if delay > m.backoffMax {
		return m.backoffMax
	}
	return delay
}

func (m *Manager) startPingLocked(conn Conn) {
	m.stopPingLocked()
	if conn == nil {
		return
	}
	stop := make(chan struct{})
	m.pingStop = stop

	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				rtt, err := conn.Ping()
				if err != nil {
					continue
				}
				m.RecordPing(rtt)
			}
		}
	}()
}

func (m *Manager) stopPingLocked() {
	if m.pingStop != nil {
		close(m.pingStop)
		m.pingStop = nil
	}
}

// RecordPing folds one ping round-trip into the quality signal.
func (m *Manager) RecordPing(rtt time.Duration) {
	m.mu.Lock()
	m.lastPing = m.clock.Now()
	m.quality = qualityFromRTT(rtt)
	m.mu.Unlock()
	m.notifyState()
}

func qualityFromRTT(rtt time.Duration) types.ConnectionQuality {
	switch {
	case rtt < 50*time.Millisecond:
		return types.QualityExcellent
	case rtt < 150*time.Millisecond:
		return types.QualityGood
	case rtt < 400*time.Millisecond:
		return types.QualityFair
	default:
		return types.QualityPoor
	}
}

func (m *Manager) notifyState() {
	if m.onStateChange != nil {
		m.onStateChange(m.State())
	}
}
