// ABOUTME: Transport abstraction over the duplex channel plus the websocket implementation
// ABOUTME: Dialer carries the handshake credential; tests substitute in-process fakes

package client

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/charlachat/charla/internal/socket"
)

// Transport is one established duplex channel. Exactly one goroutine reads;
// writes may come from any goroutine.
type Transport interface {
	WriteFrame(event string, payload any) error
	ReadFrame() (*socket.Frame, error)
	Close() error
}

// Dialer opens a transport carrying the handshake credential.
type Dialer interface {
	Dial(ctx context.Context, endpoint, token string) (Transport, error)
}

// websocketDialer dials the server over websocket with the token as the
// handshake credential (the "token" query parameter).
type websocketDialer struct{}

func (websocketDialer) Dial(ctx context.Context, endpoint, token string) (Transport, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing endpoint: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", u.Host, err)
	}
	return &websocketTransport{conn: conn}, nil
}

// websocketTransport wraps a gorilla connection as a Transport
type websocketTransport struct {
	writeMu sync.Mutex
	conn    *websocket.Conn
}

func (t *websocketTransport) WriteFrame(event string, payload any) error {
	raw, err := socket.MarshalFrame(event, payload)
	if err != nil {
		return fmt.Errorf("encoding frame: %w", err)
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return t.conn.WriteMessage(websocket.TextMessage, raw)
}

func (t *websocketTransport) ReadFrame() (*socket.Frame, error) {
	frame := &socket.Frame{}
	if err := t.conn.ReadJSON(frame); err != nil {
		return nil, err
	}
	return frame, nil
}

func (t *websocketTransport) Close() error {
	return t.conn.Close()
}
