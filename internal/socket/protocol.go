// ABOUTME: Wire protocol for the charla duplex channel
// ABOUTME: JSON frames carrying named events in both directions

package socket

import "encoding/json"

// Named events carried over the channel.
const (
	// Client -> server
	EventJoinChat     = "joinChat"
	EventJoinUserRoom = "joinUserRoom"
	EventSendMessage  = "sendMessage"

	// Server -> client
	EventNewMessage          = "newMessage"
	EventConversationUpdated = "conversationUpdated"
	EventFriendRequest       = "friendRequest"
	EventFriendAccepted      = "friendAccepted"
	EventError               = "error"
)

// Frame is one message on the channel: a named event plus its payload.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// JoinChatPayload is the payload of a joinChat event.
type JoinChatPayload struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId,omitempty"`
}

// MessagePayload is the payload of sendMessage and newMessage events.
// Exactly one of ConversationID/ReceiverID is set.
type MessagePayload struct {
	SenderID       string `json:"sender_id"`
	Content        string `json:"content"`
	Timestamp      string `json:"timestamp"`
	ConversationID string `json:"conversation_id,omitempty"`
	ReceiverID     string `json:"receiver_id,omitempty"`
}

// ErrorPayload is the payload of an error event sent back to the caller.
type ErrorPayload struct {
	Message string `json:"message"`
}

// EncodeFrame marshals a frame with an already-marshaled payload.
func EncodeFrame(event string, data json.RawMessage) ([]byte, error) {
	return json.Marshal(Frame{Event: event, Data: data})
}

// MarshalFrame marshals a frame, marshaling the payload first.
func MarshalFrame(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return EncodeFrame(event, data)
}
