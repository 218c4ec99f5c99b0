// ABOUTME: Tests for the websocket hub: handshake auth, room joins and message routing
// ABOUTME: Uses httptest servers with real websocket connections and a fake message store

package socket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charlachat/charla/internal/auth"
	"github.com/charlachat/charla/internal/conversation"
	"github.com/charlachat/charla/internal/store"
)

// fakeMessages records appended messages without a database.
type fakeMessages struct {
	mu       sync.Mutex
	appended []*store.Message
	err      error
}

func (f *fakeMessages) Append(_ context.Context, msg *store.Message) (*store.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.ConversationID == "" {
		msg.ConversationID = "direct-" + msg.SenderID + "-" + msg.ReceiverID
	}
	f.appended = append(f.appended, msg)
	return msg, nil
}

func (f *fakeMessages) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.appended)
}

type hubFixture struct {
	hub      *Hub
	server   *httptest.Server
	verifier *auth.JWTVerifier
	messages *fakeMessages
}

func newHubFixture(t *testing.T) *hubFixture {
	t.Helper()

	verifier := auth.NewJWTVerifier([]byte("test-secret"))
	messages := &fakeMessages{}
	hub := NewHub(verifier, messages, conversation.NewBroadcaster(nil), nil)

	server := httptest.NewServer(hub)
	t.Cleanup(func() {
		hub.Close()
		server.Close()
	})

	return &hubFixture{hub: hub, server: server, verifier: verifier, messages: messages}
}

// dial connects an authenticated websocket client for the given user
func (f *hubFixture) dial(t *testing.T, userID string) *websocket.Conn {
	t.Helper()

	token, err := f.verifier.Generate(userID, userID, time.Hour)
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendFrame(t *testing.T, conn *websocket.Conn, event string, payload any) {
	t.Helper()
	raw, err := MarshalFrame(event, payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, raw))
}

func readFrame(t *testing.T, conn *websocket.Conn) *Frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	frame := &Frame{}
	require.NoError(t, json.Unmarshal(raw, frame))
	return frame
}

func expectNoFrame(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "expected no frame to arrive")
}

func TestHandshake_RejectsMissingToken(t *testing.T) {
	f := newHubFixture(t)

	url := "ws" + strings.TrimPrefix(f.server.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandshake_RejectsInvalidToken(t *testing.T) {
	f := newHubFixture(t)

	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "?token=garbage"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGroupMessage_DeliveredToRoomOnly(t *testing.T) {
	f := newHubFixture(t)

	userA := f.dial(t, "A")
	userB := f.dial(t, "B")
	userC := f.dial(t, "C")

	sendFrame(t, userB, EventJoinChat, JoinChatPayload{ConversationID: "c1", UserID: "B"})
	sendFrame(t, userC, EventJoinChat, JoinChatPayload{ConversationID: "other", UserID: "C"})
	time.Sleep(100 * time.Millisecond) // let joins land

	payload := MessagePayload{
		SenderID:       "A",
		Content:        "hi",
		Timestamp:      time.Now().Format(time.RFC3339Nano),
		ConversationID: "c1",
	}
	sendFrame(t, userA, EventSendMessage, payload)

	frame := readFrame(t, userB)
	assert.Equal(t, EventNewMessage, frame.Event)

	var got MessagePayload
	require.NoError(t, json.Unmarshal(frame.Data, &got))
	assert.Equal(t, payload, got, "delivered payload must match what was sent, timestamp included")

	// The other room stays silent
	expectNoFrame(t, userC)

	assert.Equal(t, 1, f.messages.count())
}

func TestDirectMessage_RoutedToPersonalRooms(t *testing.T) {
	f := newHubFixture(t)

	userA := f.dial(t, "A")
	userB := f.dial(t, "B")

	sendFrame(t, userA, EventJoinUserRoom, "A")
	sendFrame(t, userB, EventJoinUserRoom, "B")
	time.Sleep(100 * time.Millisecond)

	sendFrame(t, userA, EventSendMessage, MessagePayload{
		SenderID:   "A",
		Content:    "hola",
		Timestamp:  time.Now().Format(time.RFC3339Nano),
		ReceiverID: "B",
	})

	// Receiver gets the message on their personal room
	frame := readFrame(t, userB)
	assert.Equal(t, EventNewMessage, frame.Event)
	var got MessagePayload
	require.NoError(t, json.Unmarshal(frame.Data, &got))
	assert.Equal(t, "B", got.ReceiverID)

	// Sender gets the echo on their personal room
	echo := readFrame(t, userA)
	assert.Equal(t, EventNewMessage, echo.Event)
}

func TestSendMessage_RejectsBadAddressing(t *testing.T) {
	f := newHubFixture(t)

	conn := f.dial(t, "A")

	// Both targets
	sendFrame(t, conn, EventSendMessage, MessagePayload{
		SenderID:       "A",
		Content:        "x",
		ConversationID: "c1",
		ReceiverID:     "B",
	})
	frame := readFrame(t, conn)
	assert.Equal(t, EventError, frame.Event)

	// Neither target
	sendFrame(t, conn, EventSendMessage, MessagePayload{SenderID: "A", Content: "x"})
	frame = readFrame(t, conn)
	assert.Equal(t, EventError, frame.Event)

	// Nothing was persisted
	assert.Equal(t, 0, f.messages.count())
}

func TestSendMessage_PersistFailureReportsError(t *testing.T) {
	f := newHubFixture(t)
	f.messages.err = store.ErrNotFound

	conn := f.dial(t, "A")
	sendFrame(t, conn, EventSendMessage, MessagePayload{
		SenderID:       "A",
		Content:        "x",
		Timestamp:      time.Now().Format(time.RFC3339Nano),
		ConversationID: "missing",
	})

	frame := readFrame(t, conn)
	assert.Equal(t, EventError, frame.Event)

	var payload ErrorPayload
	require.NoError(t, json.Unmarshal(frame.Data, &payload))
	assert.Contains(t, payload.Message, "unknown conversation")
}

func TestNotify_PushesToPersonalRoom(t *testing.T) {
	f := newHubFixture(t)

	conn := f.dial(t, "B")
	sendFrame(t, conn, EventJoinUserRoom, "B")
	time.Sleep(100 * time.Millisecond)

	f.hub.Notify("B", EventFriendRequest, map[string]string{"from": "A"})

	frame := readFrame(t, conn)
	assert.Equal(t, EventFriendRequest, frame.Event)
}

func TestJoinChat_RequiresConversationID(t *testing.T) {
	f := newHubFixture(t)

	conn := f.dial(t, "A")
	sendFrame(t, conn, EventJoinChat, JoinChatPayload{})

	frame := readFrame(t, conn)
	assert.Equal(t, EventError, frame.Event)
}

func TestSendMessage_RetryIsAbsorbed(t *testing.T) {
	f := newHubFixture(t)

	userA := f.dial(t, "A")
	userB := f.dial(t, "B")

	sendFrame(t, userB, EventJoinChat, JoinChatPayload{ConversationID: "c1", UserID: "B"})
	time.Sleep(100 * time.Millisecond)

	// Identical payload twice, as a reconnecting client would resend it
	payload := MessagePayload{
		SenderID:       "A",
		Content:        "hi",
		Timestamp:      time.Now().Format(time.RFC3339Nano),
		ConversationID: "c1",
	}
	sendFrame(t, userA, EventSendMessage, payload)
	sendFrame(t, userA, EventSendMessage, payload)

	frame := readFrame(t, userB)
	assert.Equal(t, EventNewMessage, frame.Event)

	// The retry is neither delivered nor persisted
	expectNoFrame(t, userB)
	assert.Equal(t, 1, f.messages.count())

	// A later message with a fresh timestamp still flows
	payload.Timestamp = time.Now().Format(time.RFC3339Nano)
	payload.Content = "hi again"
	sendFrame(t, userA, EventSendMessage, payload)
	frame = readFrame(t, userB)
	assert.Equal(t, EventNewMessage, frame.Event)
	assert.Equal(t, 2, f.messages.count())
}

func TestUnknownEvent_IsIgnored(t *testing.T) {
	f := newHubFixture(t)

	conn := f.dial(t, "A")
	sendFrame(t, conn, "mystery", map[string]string{"x": "y"})

	expectNoFrame(t, conn)
}
