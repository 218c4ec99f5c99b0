// ABOUTME: Hub owns all connected websocket sessions and their room memberships
// ABOUTME: Authenticates the handshake, decodes named events and fans deliveries out per room

package socket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/charlachat/charla/internal/auth"
	"github.com/charlachat/charla/internal/conversation"
	"github.com/charlachat/charla/internal/dedupe"
	"github.com/charlachat/charla/internal/store"
)

const (
	// Time allowed to write a frame to the peer
	writeWait = 10 * time.Second
	// Time allowed to read the next pong from the peer
	pongWait = 60 * time.Second
	// Send pings to the peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10
	// Maximum inbound frame size
	maxMessageSize = 64 * 1024
	// Outbound queue per session
	sessionSendBuffer = 64
	// Window within which a retried sendMessage is absorbed
	dedupeTTL = 2 * time.Minute
	// Upper bound on tracked message keys
	dedupeMaxSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Messages defines what the hub needs from the conversation layer
type Messages interface {
	Append(ctx context.Context, msg *store.Message) (*store.Message, error)
}

// Hub owns every connected session and routes deliveries between them.
type Hub struct {
	verifier    auth.Verifier
	messages    Messages
	broadcaster *conversation.Broadcaster
	dupes       *dedupe.Cache
	logger      *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session // session ID -> session
}

// NewHub creates a hub. Pass nil logger for default.
func NewHub(verifier auth.Verifier, messages Messages, broadcaster *conversation.Broadcaster, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		verifier:    verifier,
		messages:    messages,
		broadcaster: broadcaster,
		dupes:       dedupe.New(dedupeTTL, dedupeMaxSize),
		logger:      logger.With("component", "socket"),
		sessions:    make(map[string]*Session),
	}
}

// Session is one authenticated, connected client instance of the channel.
// It is created at connect and destroyed wholesale on disconnect; room
// memberships do not survive it.
type Session struct {
	ID     string
	UserID string
	Name   string

	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	joined map[string]string // room -> broadcaster subscription ID
}

// ServeHTTP upgrades the connection after verifying the handshake credential.
// The token travels in the "token" query parameter; a missing or invalid
// token rejects the handshake with 401 before any upgrade happens.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, `{"error":"missing token"}`, http.StatusUnauthorized)
		return
	}

	claims, err := h.verifier.Verify(token)
	if err != nil {
		http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	session := &Session{
		ID:     uuid.New().String(),
		UserID: claims.Subject,
		Name:   claims.Name,
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sessionSendBuffer),
		ctx:    ctx,
		cancel: cancel,
		joined: make(map[string]string),
	}

	h.mu.Lock()
	h.sessions[session.ID] = session
	h.mu.Unlock()

	h.logger.Info("session connected",
		"session_id", session.ID,
		"user_id", session.UserID)

	go session.writePump()
	go session.readPump()
}

// Notify pushes a named event to a user's personal room. Used by the REST
// layer for out-of-band notifications such as friend events.
func (h *Hub) Notify(userID, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("marshaling notification", "event", event, "error", err)
		return
	}
	h.broadcaster.Publish(userID, &conversation.Delivery{
		Room:    userID,
		Event:   event,
		Payload: data,
	})
}

// Close tears down every connected session.
func (h *Hub) Close() {
	h.dupes.Close()
	h.mu.Lock()
	sessions := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}
}

// removeSession drops a session from the registry
func (h *Hub) removeSession(id string) {
	h.mu.Lock()
	delete(h.sessions, id)
	h.mu.Unlock()
}

// close tears the session down: the context cancellation unsubscribes every
// room membership, and closing the send channel stops the write pump.
func (s *Session) close() {
	s.cancel()
	s.conn.Close()
	s.hub.removeSession(s.ID)
}

// readPump reads frames from the connection and dispatches them.
// One goroutine per session; exits on any read error.
func (s *Session) readPump() {
	defer func() {
		s.close()
		s.hub.logger.Info("session disconnected",
			"session_id", s.ID,
			"user_id", s.UserID)
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.hub.logger.Warn("unexpected close", "session_id", s.ID, "error", err)
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			s.sendError("malformed frame")
			continue
		}
		s.handleFrame(&frame)
	}
}

// writePump writes queued frames and keepalive pings to the connection.
// One goroutine per session; exits when the session context is cancelled.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case raw, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.ctx.Done():
			return
		}
	}
}

// handleFrame dispatches one inbound named event
func (s *Session) handleFrame(frame *Frame) {
	switch frame.Event {
	case EventJoinChat:
		var payload JoinChatPayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil || payload.ConversationID == "" {
			s.sendError("joinChat requires conversationId")
			return
		}
		s.joinRoom(payload.ConversationID)

	case EventJoinUserRoom:
		var userID string
		if err := json.Unmarshal(frame.Data, &userID); err != nil || userID == "" {
			s.sendError("joinUserRoom requires a user id")
			return
		}
		s.joinRoom(userID)

	case EventSendMessage:
		var payload MessagePayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			s.sendError("malformed sendMessage payload")
			return
		}
		s.handleSendMessage(frame.Data, &payload)

	default:
		s.hub.logger.Debug("ignoring unknown event",
			"session_id", s.ID,
			"event", frame.Event)
	}
}

// joinRoom subscribes the session to a room. Membership is fire-and-forget
// from the client's perspective and repeated joins are deliberately not
// deduplicated beyond reusing the existing subscription.
func (s *Session) joinRoom(room string) {
	s.mu.Lock()
	if _, already := s.joined[room]; already {
		s.mu.Unlock()
		s.hub.logger.Debug("session rejoined room", "session_id", s.ID, "room", room)
		return
	}
	s.mu.Unlock()

	ch, subID := s.hub.broadcaster.Subscribe(s.ctx, room)

	s.mu.Lock()
	s.joined[room] = subID
	s.mu.Unlock()

	// Forward deliveries for this room into the session's send queue
	go func() {
		for delivery := range ch {
			raw, err := EncodeFrame(delivery.Event, delivery.Payload)
			if err != nil {
				continue
			}
			select {
			case s.send <- raw:
			default:
				s.hub.logger.Debug("send queue full, dropping delivery",
					"session_id", s.ID,
					"room", delivery.Room)
			}
		}
	}()

	s.hub.logger.Debug("session joined room", "session_id", s.ID, "room", room)
}

// handleSendMessage validates, persists and routes one outbound message.
// Group messages fan out to the conversation room; direct messages go to the
// receiver's personal room and echo to the sender's personal room.
func (s *Session) handleSendMessage(raw json.RawMessage, payload *MessagePayload) {
	hasConv := payload.ConversationID != ""
	hasReceiver := payload.ReceiverID != ""
	if hasConv == hasReceiver {
		s.sendError("message must have exactly one of conversation_id or receiver_id")
		return
	}
	if payload.Content == "" {
		s.sendError("message content must not be empty")
		return
	}

	// A client retrying across a reconnect resends the identical payload;
	// the timestamp is sender-stamped so the key survives the new session
	key := payload.SenderID + "|" + payload.Timestamp + "|" + payload.ConversationID + payload.ReceiverID + "|" + payload.Content
	if s.hub.dupes.CheckAndMark(key) {
		s.hub.logger.Debug("dropping duplicate message", "session_id", s.ID, "key", key)
		return
	}

	timestamp, err := time.Parse(time.RFC3339Nano, payload.Timestamp)
	if err != nil {
		timestamp = time.Now()
	}

	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()

	_, err = s.hub.messages.Append(ctx, &store.Message{
		SenderID:       payload.SenderID,
		ReceiverID:     payload.ReceiverID,
		ConversationID: payload.ConversationID,
		Content:        payload.Content,
		Timestamp:      timestamp,
	})
	if err != nil {
		s.hub.logger.Error("persisting message failed",
			"session_id", s.ID,
			"error", err)
		s.sendError(fmt.Sprintf("message not delivered: %v", persistError(err)))
		return
	}

	if hasConv {
		s.hub.broadcaster.Publish(payload.ConversationID, &conversation.Delivery{
			Room:    payload.ConversationID,
			Event:   EventNewMessage,
			Payload: raw,
		})
	} else {
		for _, room := range []string{payload.ReceiverID, payload.SenderID} {
			s.hub.broadcaster.Publish(room, &conversation.Delivery{
				Room:    room,
				Event:   EventNewMessage,
				Payload: raw,
			})
		}
	}
}

// persistError maps store errors to caller-safe descriptions
func persistError(err error) string {
	if errors.Is(err, store.ErrNotFound) {
		return "unknown conversation"
	}
	return "storage error"
}

// sendError queues an error event back to this session only
func (s *Session) sendError(msg string) {
	raw, err := MarshalFrame(EventError, ErrorPayload{Message: msg})
	if err != nil {
		return
	}
	select {
	case s.send <- raw:
	default:
	}
}
