// ABOUTME: Send dispatches one outbound message over the active channel
// ABOUTME: Stamps the timestamp at send time; best-effort, no queueing while disconnected

package client

import (
	"time"

	"github.com/charlachat/charla/internal/socket"
)

// Send validates msg, stamps the current time and emits a sendMessage event.
//
// When the session is not Connected, Send returns ErrNotConnected with no
// observable effect: nothing is written to the transport, nothing is queued
// and nothing is retried. Delivery is best-effort with no acknowledgment;
// messages lost to a reconnect gap must be recovered through History.
func (c *Client) Send(msg Outbound) error {
	payload, err := msg.wirePayload()
	if err != nil {
		return err
	}

	conn, err := c.transport()
	if err != nil {
		return err
	}

	payload.Timestamp = time.Now().Format(time.RFC3339Nano)
	return conn.WriteFrame(socket.EventSendMessage, payload)
}
