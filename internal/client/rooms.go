// ABOUTME: Room membership: join requests for conversation rooms and personal rooms
// ABOUTME: Fire-and-forget emits; membership is scoped to the session and dies with it

package client

import (
	"fmt"

	"github.com/charlachat/charla/internal/socket"
)

// JoinChat asks the server to subscribe this session to a conversation room.
// Fire-and-forget: no acknowledgment is awaited, admission is enforced
// server-side. Calling before Connected is a caller error and returns
// ErrNotConnected. Repeated calls for the same room each send a join
// request; there is no client-side deduplication.
func (c *Client) JoinChat(conversationID, userID string) error {
	if conversationID == "" {
		return fmt.Errorf("%w: empty conversation", ErrInvalidMessage)
	}

	conn, err := c.transport()
	if err != nil {
		return err
	}

	return conn.WriteFrame(socket.EventJoinChat, socket.JoinChatPayload{
		ConversationID: conversationID,
		UserID:         userID,
	})
}

// JoinUserRoom subscribes this session to the user's personal room, used
// once per session to receive notifications not tied to any conversation.
// Same contract as JoinChat.
func (c *Client) JoinUserRoom(userID string) error {
	if userID == "" {
		return fmt.Errorf("%w: empty user", ErrInvalidMessage)
	}

	conn, err := c.transport()
	if err != nil {
		return err
	}

	return conn.WriteFrame(socket.EventJoinUserRoom, userID)
}
