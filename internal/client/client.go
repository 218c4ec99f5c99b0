// ABOUTME: Client owns one authenticated session of the real-time channel
// ABOUTME: Implements the connection state machine with bounded automatic reconnection

package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Lifecycle events emitted on the event bus as the channel changes state.
const (
	EventConnected    = "connect"
	EventDisconnected = "disconnect"
	EventConnectError = "connect_error"
)

// Client errors
var (
	// ErrNoToken means Connect was called without a credential configured.
	// This is a precondition failure: no transport attempt is made.
	ErrNoToken = errors.New("no token configured")

	// ErrNotConnected means an operation requires an established channel
	ErrNotConnected = errors.New("not connected")

	// ErrAlreadyConnected means Connect was called on a live session
	ErrAlreadyConnected = errors.New("already connected")

	// ErrConnectAborted means a concurrent Disconnect won against Connect
	ErrConnectAborted = errors.New("connect aborted by disconnect")
)

// State is the connection state of the session.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

const (
	defaultReconnectAttempts = 5
	defaultReconnectDelay    = 2000 * time.Millisecond
)

// Config configures a Client. Each logical user session owns its own Client
// and therefore its own credential and connectivity state.
type Config struct {
	// SocketURL is the websocket endpoint, e.g. "ws://host:8080/socket"
	SocketURL string

	// APIBase is the REST endpoint base, e.g. "http://host:8080"
	APIBase string

	// Token is the bearer credential presented at handshake time
	Token string

	// ReconnectAttempts bounds automatic reconnection (default 5)
	ReconnectAttempts int

	// ReconnectDelay is the fixed inter-attempt delay (default 2s)
	ReconnectDelay time.Duration

	// Dialer overrides the websocket dialer (used by tests)
	Dialer Dialer

	// HTTPClient overrides the REST client (default http.DefaultClient)
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Client is one session of the real-time channel plus the REST pass-throughs.
type Client struct {
	cfg    Config
	dialer Dialer
	http   *http.Client
	logger *slog.Logger

	mu              sync.Mutex
	state           State
	conn            Transport
	gen             int // bumped whenever the active connection changes
	reconnectCancel context.CancelFunc

	connectivity *connectivity
	bus          *bus
}

// New creates a Client. The returned client starts Disconnected; nothing
// touches the network until Connect is called.
func New(cfg Config) *Client {
	if cfg.ReconnectAttempts == 0 {
		cfg.ReconnectAttempts = defaultReconnectAttempts
	}
	if cfg.ReconnectDelay == 0 {
		cfg.ReconnectDelay = defaultReconnectDelay
	}
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = websocketDialer{}
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		cfg:          cfg,
		dialer:       dialer,
		http:         httpClient,
		logger:       logger.With("component", "client"),
		state:        StateDisconnected,
		connectivity: newConnectivity(),
		bus:          newBus(),
	}
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect establishes the channel with the configured token.
//
// Fails immediately with ErrNoToken when no credential is configured (no
// transport attempt is made). On transport rejection or network failure it
// emits a connect_error lifecycle event and settles Disconnected.
func (c *Client) Connect(ctx context.Context) error {
	if c.cfg.Token == "" {
		return ErrNoToken
	}

	c.mu.Lock()
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.state = StateConnecting
	c.mu.Unlock()

	conn, err := c.dialer.Dial(ctx, c.cfg.SocketURL, c.cfg.Token)
	if err != nil {
		c.mu.Lock()
		c.state = StateDisconnected
		c.mu.Unlock()
		c.connectivity.set(false)
		c.bus.dispatch(EventConnectError, errorPayload(err))
		c.logger.Warn("connect failed", "error", err)
		return fmt.Errorf("connect: %w", err)
	}

	if !c.establish(conn, StateConnecting) {
		return ErrConnectAborted
	}
	c.logger.Info("connected")
	return nil
}

// Disconnect tears the session down: the connection, every room membership
// and any pending reconnection attempts. Idempotent; always ends
// Disconnected and emits a disconnected lifecycle event.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.gen++
	conn := c.conn
	c.conn = nil
	c.state = StateDisconnected
	if c.reconnectCancel != nil {
		c.reconnectCancel()
		c.reconnectCancel = nil
	}
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	c.connectivity.set(false)
	c.bus.dispatch(EventDisconnected, nil)
	c.logger.Info("disconnected")
}

// Connectivity returns a boolean stream reflecting Connected vs any other
// state. The current value is delivered immediately; every transition is
// multicast to all subscribers. The returned func cancels the subscription.
func (c *Client) Connectivity() (<-chan bool, func()) {
	return c.connectivity.watch()
}

// establish installs conn as the active connection, provided the state is
// still what the caller saw. Returns false when a concurrent Disconnect won.
func (c *Client) establish(conn Transport, from State) bool {
	c.mu.Lock()
	if c.state != from {
		c.mu.Unlock()
		conn.Close()
		return false
	}
	c.gen++
	gen := c.gen
	c.conn = conn
	c.state = StateConnected
	c.reconnectCancel = nil
	c.mu.Unlock()

	c.connectivity.set(true)
	c.bus.dispatch(EventConnected, nil)

	go c.readLoop(conn, gen)
	return true
}

// readLoop pumps inbound frames to the event bus until the connection drops.
// Events are dispatched in transport delivery order, untransformed.
func (c *Client) readLoop(conn Transport, gen int) {
	for {
		frame, err := conn.ReadFrame()
		if err != nil {
			c.handleDrop(conn, gen, err)
			return
		}
		c.bus.dispatch(frame.Event, frame.Data)
	}
}

// handleDrop reacts to an unexpected connection loss by starting the bounded
// reconnection loop. Stale read loops (connection already replaced or torn
// down by Disconnect) return without side effects.
func (c *Client) handleDrop(conn Transport, gen int, cause error) {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.gen++
	c.state = StateReconnecting
	ctx, cancel := context.WithCancel(context.Background())
	c.reconnectCancel = cancel
	c.mu.Unlock()

	conn.Close()
	c.connectivity.set(false)
	c.bus.dispatch(EventDisconnected, nil)
	c.logger.Warn("connection dropped", "error", cause)

	c.reconnect(ctx)
}

// reconnect retries the same token at a fixed delay up to the configured
// bound, then settles Disconnected until an explicit Connect.
func (c *Client) reconnect(ctx context.Context) {
	for attempt := 1; attempt <= c.cfg.ReconnectAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.cfg.ReconnectDelay):
		}

		conn, err := c.dialer.Dial(ctx, c.cfg.SocketURL, c.cfg.Token)
		if err != nil {
			c.connectivity.set(false)
			c.bus.dispatch(EventConnectError, errorPayload(err))
			c.logger.Warn("reconnect attempt failed",
				"attempt", attempt,
				"of", c.cfg.ReconnectAttempts,
				"error", err)
			continue
		}

		if c.establish(conn, StateReconnecting) {
			c.logger.Info("reconnected", "attempt", attempt)
		}
		return
	}

	c.mu.Lock()
	if c.state == StateReconnecting {
		c.state = StateDisconnected
		c.reconnectCancel = nil
	}
	c.mu.Unlock()
	c.connectivity.set(false)
	c.logger.Warn("reconnect attempts exhausted", "attempts", c.cfg.ReconnectAttempts)
}

// transport returns the active connection, or ErrNotConnected. Callers use
// this to fail fast before any transport interaction.
func (c *Client) transport() (Transport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateConnected || c.conn == nil {
		return nil, ErrNotConnected
	}
	return c.conn, nil
}

// errorPayload wraps an error as a JSON event payload
func errorPayload(err error) json.RawMessage {
	data, marshalErr := json.Marshal(map[string]string{"message": err.Error()})
	if marshalErr != nil {
		return json.RawMessage(`{"message":"unknown error"}`)
	}
	return data
}
