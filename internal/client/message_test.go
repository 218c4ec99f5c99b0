// ABOUTME: Tests for the outbound message union and send semantics
// ABOUTME: Verifies exactly-one-target addressing, validation and timestamp stamping

package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charlachat/charla/internal/socket"
)

func TestDirectMessage_WirePayload(t *testing.T) {
	payload, err := DirectMessage{SenderID: "a", Content: "hi", ReceiverID: "b"}.wirePayload()
	require.NoError(t, err)

	// Exactly one routing target is set
	assert.Equal(t, "b", payload.ReceiverID)
	assert.Empty(t, payload.ConversationID)
	assert.Equal(t, "a", payload.SenderID)
	assert.Equal(t, "hi", payload.Content)
}

func TestGroupMessage_WirePayload(t *testing.T) {
	payload, err := GroupMessage{SenderID: "a", Content: "hi", ConversationID: "c1"}.wirePayload()
	require.NoError(t, err)

	assert.Equal(t, "c1", payload.ConversationID)
	assert.Empty(t, payload.ReceiverID)
}

func TestOutbound_ValidationRejectsMissingFields(t *testing.T) {
	tests := []struct {
		name string
		msg  Outbound
	}{
		{name: "direct no sender", msg: DirectMessage{Content: "hi", ReceiverID: "b"}},
		{name: "direct no content", msg: DirectMessage{SenderID: "a", ReceiverID: "b"}},
		{name: "direct no receiver", msg: DirectMessage{SenderID: "a", Content: "hi"}},
		{name: "group no sender", msg: GroupMessage{Content: "hi", ConversationID: "c1"}},
		{name: "group no content", msg: GroupMessage{SenderID: "a", ConversationID: "c1"}},
		{name: "group no conversation", msg: GroupMessage{SenderID: "a", Content: "hi"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.msg.wirePayload()
			assert.ErrorIs(t, err, ErrInvalidMessage)
		})
	}
}

func TestSend_EmitsSendMessageWithTimestamp(t *testing.T) {
	dialer := &fakeDialer{}
	c := newTestClient(dialer)
	require.NoError(t, c.Connect(t.Context()))

	before := time.Now()
	require.NoError(t, c.Send(GroupMessage{SenderID: "a", Content: "hi", ConversationID: "c1"}))

	writes := dialer.conn(0).written()
	require.Len(t, writes, 1)
	assert.Equal(t, socket.EventSendMessage, writes[0].Event)

	payload, ok := writes[0].Payload.(*socket.MessagePayload)
	require.True(t, ok)
	assert.Equal(t, "c1", payload.ConversationID)

	// Timestamp is stamped at send time by the sending client
	ts, err := time.Parse(time.RFC3339Nano, payload.Timestamp)
	require.NoError(t, err)
	assert.WithinDuration(t, before, ts, time.Second)
}

func TestSend_InvalidMessageNeverTouchesTransport(t *testing.T) {
	dialer := &fakeDialer{}
	c := newTestClient(dialer)
	require.NoError(t, c.Connect(t.Context()))

	err := c.Send(DirectMessage{SenderID: "a", Content: "hi"})
	assert.ErrorIs(t, err, ErrInvalidMessage)
	assert.Empty(t, dialer.conn(0).written())
}

func TestJoinChat_BeforeConnectedIsRejected(t *testing.T) {
	dialer := &fakeDialer{}
	c := newTestClient(dialer)

	assert.ErrorIs(t, c.JoinChat("c1", "a"), ErrNotConnected)
	assert.ErrorIs(t, c.JoinUserRoom("a"), ErrNotConnected)
	assert.Equal(t, 0, dialer.dialCount())
}

func TestJoinChat_OneRequestPerCallNoDedup(t *testing.T) {
	dialer := &fakeDialer{}
	c := newTestClient(dialer)
	require.NoError(t, c.Connect(t.Context()))

	require.NoError(t, c.JoinChat("c1", "a"))
	require.NoError(t, c.JoinChat("c1", "a"))

	writes := dialer.conn(0).written()
	require.Len(t, writes, 2)
	for _, w := range writes {
		assert.Equal(t, socket.EventJoinChat, w.Event)
		payload, ok := w.Payload.(socket.JoinChatPayload)
		require.True(t, ok)
		assert.Equal(t, "c1", payload.ConversationID)
	}
}

func TestJoinUserRoom_SendsUserID(t *testing.T) {
	dialer := &fakeDialer{}
	c := newTestClient(dialer)
	require.NoError(t, c.Connect(t.Context()))

	require.NoError(t, c.JoinUserRoom("user-1"))

	writes := dialer.conn(0).written()
	require.Len(t, writes, 1)
	assert.Equal(t, socket.EventJoinUserRoom, writes[0].Event)
	assert.Equal(t, "user-1", writes[0].Payload)
}
