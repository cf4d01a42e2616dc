package connection

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"gopkg.in/tomb.v2"

	"github.com/rickgao/chatlink/internal/dispatch"
	"github.com/rickgao/chatlink/internal/model"
)

// Identity supplies the user ID of the signed-in user.
type Identity interface {
	UserID() (string, bool)
}

// Listener receives every decoded inbound payload.
type Listener = dispatch.Listener[Payload]

// ListenerFunc is a function adapter for Listener.
type ListenerFunc = dispatch.ListenerFunc[Payload]

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithClock replaces the wall clock used for retry and heartbeat timers.
func WithClock(c Clock) Option {
	return func(m *Manager) {
		m.clock = c
	}
}

// WithClientFactory replaces the WebSocket client constructor.
func WithClientFactory(f ClientFactory) Option {
	return func(m *Manager) {
		m.newClient = f
	}
}

// WithHeader adds headers to every WebSocket handshake.
func WithHeader(h http.Header) Option {
	return func(m *Manager) {
		m.header = h
	}
}

// WithExhaustedHandler sets the callback run once when automatic reconnection
// gives up. It receives ErrReconnectExhausted.
func WithExhaustedHandler(fn func(error)) Option {
	return func(m *Manager) {
		m.onExhausted = fn
	}
}

// connState is one socket and the goroutine serving it.
type connState struct {
	id     string
	client Client
	logger *slog.Logger

	tmb    tomb.Tomb
	ctx    context.Context
	cancel context.CancelFunc
}

func (cs *connState) close() {
	cs.cancel()
	cs.tmb.Kill(nil)
	cs.client.Close()
}

// Manager maintains one WebSocket connection for the signed-in user.
//
// All state lives behind mu, so each event handler runs to completion before
// the next one observes the manager. Listeners are called outside the lock on
// the socket goroutine, in registration order.
type Manager struct {
	cfg         ManagerConfig
	identity    Identity
	logger      *slog.Logger
	clock       Clock
	newClient   ClientFactory
	header      http.Header
	onExhausted func(error)
	listeners   *dispatch.Registry[Payload]

	wg sync.WaitGroup

	mu           sync.Mutex
	state        State
	conn         *connState
	attempts     int
	reconnecting bool
	exhausted    bool
	backoff      *backoff.ExponentialBackOff
	retryTimer   Timer
	retrySeq     uint64
	heartbeat    Timer
	heartbeatSeq uint64
}

// NewManager creates a Connection Manager. It does not connect.
func NewManager(cfg ManagerConfig, identity Identity, opts ...Option) *Manager {
	m := &Manager{
		cfg:       cfg,
		identity:  identity,
		logger:    slog.Default(),
		clock:     realClock{},
		newClient: NewClient,
		listeners: dispatch.NewRegistry[Payload](),
		state:     StateDisconnected,
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.onExhausted == nil {
		logger := m.logger
		m.onExhausted = func(err error) {
			logger.Error("connection lost", "error", err)
		}
	}

	m.backoff = &backoff.ExponentialBackOff{
		InitialInterval:     cfg.ReconnectBaseDelay,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         cfg.ReconnectMaxDelay,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	m.backoff.Reset()

	return m
}

// Endpoint derives the concrete WebSocket address for userID.
func Endpoint(base, userID string) string {
	return strings.TrimRight(base, "/") + "/" + url.PathEscape(userID)
}

// Register adds a listener. Registering the same comparable listener twice
// returns the original handle.
func (m *Manager) Register(l Listener) *dispatch.Handle {
	return m.listeners.Add(l)
}

// Unregister removes a listener. Payloads received after Unregister returns are
// not delivered to it. Unknown handles are ignored.
func (m *Manager) Unregister(h *dispatch.Handle) bool {
	return m.listeners.Remove(h)
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Stats returns current statistics.
func (m *Manager) Stats() ManagerStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := ManagerStats{
		State:             m.state,
		ReconnectAttempts: m.attempts,
		Reconnecting:      m.reconnecting,
		HeartbeatActive:   m.heartbeat != nil,
		Listeners:         m.listeners.Len(),
	}
	if m.conn != nil {
		stats.ConnID = m.conn.id
	}
	return stats
}

// Connect opens a new connection for the signed-in user. It returns
// ErrNotAuthenticated without touching the network when nobody is signed in.
//
// Connect is the manual recovery path: it clears any exhausted retry budget.
// The connection completes asynchronously; observe State or listeners.
func (m *Manager) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// A rejected connect leaves any recovery in progress untouched.
	if userID, ok := m.identity.UserID(); !ok || userID == "" {
		m.logger.Error("cannot connect without a signed-in user")
		return ErrNotAuthenticated
	}

	m.cancelRetryLocked()
	m.reconnecting = false
	m.exhausted = false
	m.attempts = 0
	m.backoff.Reset()

	return m.connectLocked()
}

// Send writes payload if the connection is open. Strings, []byte and
// json.RawMessage are sent as-is; other values are JSON-encoded.
//
// When the connection is not open the payload is dropped and, unless recovery
// is already under way, a reconnect is started. Send reports whether the
// payload was written.
func (m *Manager) Send(payload any) bool {
	data, err := encodeOutbound(payload)
	if err != nil {
		m.logger.Error("dropping outbound message", "error", err)
		return false
	}

	m.mu.Lock()
	cs := m.conn
	if m.state == StateOpen && cs != nil && cs.client.IsConnected() {
		m.mu.Unlock()

		if err := cs.client.Send(data); err != nil {
			cs.logger.Warn("send failed", "error", err)
			return false
		}
		cs.logger.Debug("message sent", "bytes", len(data))
		return true
	}

	exhausted := false
	switch {
	case m.exhausted:
		m.logger.Warn("not connected, dropping message; reconnect manually", "state", m.state)
	case m.recoveringLocked():
		m.logger.Warn("not connected, dropping message", "state", m.state)
	default:
		m.logger.Warn("not connected, dropping message and reconnecting", "state", m.state)
		exhausted = m.reconnectLocked()
	}
	m.mu.Unlock()

	if exhausted {
		m.onExhausted(ErrReconnectExhausted)
	}
	return false
}

// Disconnect closes the connection and cancels pending retries and heartbeats.
// Listeners stay registered. Safe to call when already disconnected.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.stopHeartbeatLocked()
	m.cancelRetryLocked()
	m.reconnecting = false
	cs := m.conn
	m.conn = nil
	m.setStateLocked(StateDisconnected)
	m.mu.Unlock()

	if cs != nil {
		cs.close()
		cs.logger.Info("websocket disconnected")
	}
}

// Stop disconnects and waits for socket goroutines to exit.
func (m *Manager) Stop(ctx context.Context) error {
	m.Disconnect()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// connectLocked creates a socket for the current user and starts serving it.
func (m *Manager) connectLocked() error {
	userID, ok := m.identity.UserID()
	if !ok || userID == "" {
		m.logger.Error("cannot connect without a signed-in user")
		return ErrNotAuthenticated
	}

	if prev := m.conn; prev != nil {
		prev.logger.Debug("closing superseded connection")
		prev.close()
	}

	id := uuid.NewString()
	logger := m.logger.With("conn_id", id)
	ctx, cancel := context.WithCancel(context.Background())
	cs := &connState{
		id: id,
		client: m.newClient(ClientConfig{
			URL:          Endpoint(m.cfg.URL, userID),
			Header:       m.header,
			WriteTimeout: m.cfg.WriteTimeout,
			BufferSize:   m.cfg.BufferSize,
		}, logger),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}

	m.conn = cs
	m.setStateLocked(StateConnecting)

	m.wg.Add(1)
	cs.tmb.Go(func() error {
		defer m.wg.Done()
		m.serve(cs)
		return nil
	})

	logger.Info("connecting", "url", Endpoint(m.cfg.URL, userID))
	return nil
}

// serve dials cs, then feeds its events into the state machine until the
// socket ends or the manager drops it.
func (m *Manager) serve(cs *connState) {
	ctx, cancel := cs.ctx, context.CancelFunc(func() {})
	if m.cfg.ConnectTimeout > 0 {
		ctx, cancel = context.WithTimeout(cs.ctx, m.cfg.ConnectTimeout)
	}
	err := cs.client.Connect(ctx)
	cancel()

	if err != nil {
		if cs.ctx.Err() != nil {
			return
		}
		m.handleError(cs, err)
		m.handleClose(cs, err)
		return
	}

	if !m.handleOpen(cs) {
		return
	}

	for {
		select {
		case <-cs.tmb.Dying():
			return

		case msg := <-cs.client.Messages():
			m.handleMessage(cs, msg)

		case err := <-cs.client.Errors():
			m.drain(cs)
			m.handleError(cs, err)
			m.handleClose(cs, err)
			return
		}
	}
}

// drain delivers messages that were buffered before the read error.
func (m *Manager) drain(cs *connState) {
	for {
		select {
		case msg := <-cs.client.Messages():
			m.handleMessage(cs, msg)
		default:
			return
		}
	}
}

// handleOpen moves to Open, clears failure history and starts the heartbeat.
// It returns false if cs is no longer the manager's socket.
func (m *Manager) handleOpen(cs *connState) bool {
	m.mu.Lock()
	if m.conn != cs {
		m.mu.Unlock()
		cs.close()
		return false
	}

	m.setStateLocked(StateOpen)
	m.attempts = 0
	m.backoff.Reset()
	m.reconnecting = false
	m.exhausted = false
	m.startHeartbeatLocked()
	m.mu.Unlock()

	cs.logger.Info("websocket connection established")
	return true
}

// handleMessage decodes one inbound frame and fans it out.
func (m *Manager) handleMessage(cs *connState, msg TimestampedMessage) {
	m.mu.Lock()
	current := m.conn == cs
	m.mu.Unlock()
	if !current {
		return
	}

	p := Decode(msg.Data, m.clock.Now())
	switch p.Kind {
	case PayloadRaw:
		cs.logger.Warn("inbound payload is not JSON, delivering raw text", "bytes", len(msg.Data))
	case PayloadValue:
		cs.logger.Debug("inbound payload is not an object", "value", p.Raw)
	default:
		cs.logger.Debug("message received",
			"send_user_id", p.Message.SendUserID,
			"receive_user_id", p.Message.ReceiveUserID,
		)
	}

	m.listeners.Dispatch(p)
}

// handleError only reports; the close that follows drives recovery.
func (m *Manager) handleError(cs *connState, err error) {
	cs.logger.Warn("websocket error", "error", err)
}

// handleClose clears the heartbeat and starts recovery unless a retry is
// already scheduled.
func (m *Manager) handleClose(cs *connState, err error) {
	m.mu.Lock()
	if m.conn != cs {
		m.mu.Unlock()
		return
	}

	m.conn = nil

	exhausted := false
	if m.retryTimer == nil {
		m.setStateLocked(StateClosed)
		exhausted = m.reconnectLocked()
	}
	m.mu.Unlock()

	cs.close()
	cs.logger.Info("websocket connection closed", "error", err)

	if exhausted {
		m.onExhausted(ErrReconnectExhausted)
	}
}

// reconnectLocked schedules the next retry with exponential backoff. It returns
// true exactly when this call used up the retry budget.
func (m *Manager) reconnectLocked() bool {
	if m.exhausted {
		return false
	}

	m.reconnecting = true

	if m.attempts >= m.cfg.MaxReconnectAttempts {
		m.reconnecting = false
		m.exhausted = true
		m.setStateLocked(StateClosed)
		m.logger.Error("giving up reconnecting",
			"attempts", m.attempts,
			"max_attempts", m.cfg.MaxReconnectAttempts,
		)
		return true
	}

	delay := m.backoff.NextBackOff()
	if limit := m.cfg.ReconnectMaxDelay; limit > 0 && delay > limit {
		delay = limit
	}

	m.attempts++
	m.retrySeq++
	seq := m.retrySeq
	m.retryTimer = m.clock.AfterFunc(delay, func() { m.retry(seq) })
	m.setStateLocked(StateReconnecting)

	m.logger.Info("scheduling reconnect",
		"delay", delay,
		"attempt", m.attempts,
		"max_attempts", m.cfg.MaxReconnectAttempts,
	)
	return false
}

// retry runs when a scheduled reconnect fires.
func (m *Manager) retry(seq uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if seq != m.retrySeq || m.retryTimer == nil {
		return
	}
	m.retryTimer = nil

	m.logger.Info("reconnecting",
		"attempt", m.attempts,
		"max_attempts", m.cfg.MaxReconnectAttempts,
	)

	if err := m.connectLocked(); err != nil {
		// The user signed out while the retry was pending.
		m.reconnecting = false
		m.setStateLocked(StateDisconnected)
	}
}

func (m *Manager) cancelRetryLocked() {
	if m.retryTimer != nil {
		m.retryTimer.Stop()
		m.retryTimer = nil
	}
	m.retrySeq++
}

func (m *Manager) recoveringLocked() bool {
	return m.reconnecting || m.retryTimer != nil || m.state == StateConnecting
}

// setStateLocked performs a transition. Leaving Open always stops the heartbeat.
func (m *Manager) setStateLocked(to State) {
	from := m.state
	if from == to {
		return
	}
	if from == StateOpen {
		m.stopHeartbeatLocked()
	}
	m.state = to
	m.logger.Debug("connection state changed", "from", from, "to", to)
}

func (m *Manager) startHeartbeatLocked() {
	m.stopHeartbeatLocked()
	if m.cfg.HeartbeatInterval <= 0 {
		return
	}
	seq := m.heartbeatSeq
	m.heartbeat = m.clock.AfterFunc(m.cfg.HeartbeatInterval, func() { m.beat(seq) })
}

func (m *Manager) stopHeartbeatLocked() {
	if m.heartbeat != nil {
		m.heartbeat.Stop()
		m.heartbeat = nil
	}
	m.heartbeatSeq++
}

// beat sends one ping and schedules the next.
func (m *Manager) beat(seq uint64) {
	m.mu.Lock()
	if seq != m.heartbeatSeq || m.state != StateOpen || m.conn == nil {
		m.mu.Unlock()
		return
	}
	cs := m.conn
	userID, _ := m.identity.UserID()
	m.heartbeat = m.clock.AfterFunc(m.cfg.HeartbeatInterval, func() { m.beat(seq) })
	m.mu.Unlock()

	if !cs.client.IsConnected() {
		return
	}

	data, err := json.Marshal(model.NewPing(userID))
	if err != nil {
		return
	}
	if err := cs.client.Send(data); err != nil {
		cs.logger.Debug("failed to send heartbeat", "error", err)
		return
	}
	cs.logger.Debug("heartbeat sent", "at", m.clock.Now().Format(time.RFC3339))
}
