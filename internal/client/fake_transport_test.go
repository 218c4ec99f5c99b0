// ABOUTME: In-process fake Transport and Dialer for client tests
// ABOUTME: Scripts dial outcomes, records writes and injects inbound frames and drops

package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"

	"github.com/charlachat/charla/internal/socket"
)

// writtenFrame is one frame recorded by a fake transport.
type writtenFrame struct {
	Event   string
	Payload any
}

// fakeTransport is an in-process Transport. Inbound frames are injected
// with push; drop closes the inbound stream which surfaces as a read error.
type fakeTransport struct {
	mu      sync.Mutex
	writes  []writtenFrame
	inbound chan *socket.Frame
	closed  bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{inbound: make(chan *socket.Frame, 64)}
}

func (t *fakeTransport) WriteFrame(event string, payload any) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return errors.New("transport closed")
	}
	t.writes = append(t.writes, writtenFrame{Event: event, Payload: payload})
	return nil
}

func (t *fakeTransport) ReadFrame() (*socket.Frame, error) {
	frame, ok := <-t.inbound
	if !ok {
		return nil, io.ErrUnexpectedEOF
	}
	return frame, nil
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.closed = true
		close(t.inbound)
	}
	return nil
}

// push injects one inbound frame as if the server had sent it
func (t *fakeTransport) push(event string, payload any) {
	data, _ := json.Marshal(payload)
	t.inbound <- &socket.Frame{Event: event, Data: data}
}

// drop simulates an unexpected connection loss
func (t *fakeTransport) drop() {
	t.Close()
}

// written returns a snapshot of recorded writes
func (t *fakeTransport) written() []writtenFrame {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]writtenFrame, len(t.writes))
	copy(out, t.writes)
	return out
}

// fakeDialer scripts dial outcomes in order; once the script is exhausted
// every dial succeeds.
type fakeDialer struct {
	mu       sync.Mutex
	script   []error // nil entry = successful dial
	dials    int
	conns    []*fakeTransport
	lastAddr string
	lastTok  string
}

func (d *fakeDialer) Dial(_ context.Context, endpoint, token string) (Transport, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.dials++
	d.lastAddr = endpoint
	d.lastTok = token

	var outcome error
	if len(d.script) > 0 {
		outcome = d.script[0]
		d.script = d.script[1:]
	}
	if outcome != nil {
		return nil, outcome
	}

	conn := newFakeTransport()
	d.conns = append(d.conns, conn)
	return conn, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

// conn returns the i-th established transport
func (d *fakeDialer) conn(i int) *fakeTransport {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conns[i]
}
