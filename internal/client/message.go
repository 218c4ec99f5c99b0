// ABOUTME: Outbound message types: a tagged union over direct and group messages
// ABOUTME: Each variant carries only the fields valid for it, making bad addressing unrepresentable

package client

import (
	"errors"
	"fmt"

	"github.com/charlachat/charla/internal/socket"
)

// ErrInvalidMessage means an outbound message failed construction-time
// validation. This is a caller-contract error, rejected before any
// transport interaction.
var ErrInvalidMessage = errors.New("invalid message")

// Outbound is a message addressed to exactly one routing target. The two
// variants are DirectMessage and GroupMessage; the union makes the
// "both or neither" addressing mistake impossible to express.
type Outbound interface {
	wirePayload() (*socket.MessagePayload, error)
}

// DirectMessage is addressed to a single user.
type DirectMessage struct {
	SenderID   string
	Content    string
	ReceiverID string
}

func (m DirectMessage) wirePayload() (*socket.MessagePayload, error) {
	if m.SenderID == "" {
		return nil, fmt.Errorf("%w: empty sender", ErrInvalidMessage)
	}
	if m.Content == "" {
		return nil, fmt.Errorf("%w: empty content", ErrInvalidMessage)
	}
	if m.ReceiverID == "" {
		return nil, fmt.Errorf("%w: empty receiver", ErrInvalidMessage)
	}
	return &socket.MessagePayload{
		SenderID:   m.SenderID,
		Content:    m.Content,
		ReceiverID: m.ReceiverID,
	}, nil
}

// GroupMessage is addressed to a conversation.
type GroupMessage struct {
	SenderID       string
	Content        string
	ConversationID string
}

func (m GroupMessage) wirePayload() (*socket.MessagePayload, error) {
	if m.SenderID == "" {
		return nil, fmt.Errorf("%w: empty sender", ErrInvalidMessage)
	}
	if m.Content == "" {
		return nil, fmt.Errorf("%w: empty content", ErrInvalidMessage)
	}
	if m.ConversationID == "" {
		return nil, fmt.Errorf("%w: empty conversation", ErrInvalidMessage)
	}
	return &socket.MessagePayload{
		SenderID:       m.SenderID,
		Content:        m.Content,
		ConversationID: m.ConversationID,
	}, nil
}
