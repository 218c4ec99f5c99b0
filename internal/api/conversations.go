// ABOUTME: Conversation endpoints: create, list per user and message history
// ABOUTME: History is the recovery path for events missed while disconnected

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charlachat/charla/internal/conversation"
	"github.com/charlachat/charla/internal/socket"
	"github.com/charlachat/charla/internal/store"
)

// timeFormat is the wire format for timestamps across the REST API
const timeFormat = time.RFC3339Nano

// defaultHistoryLimit caps history responses when no limit is given
const defaultHistoryLimit = 50

// ConversationResponse is the JSON representation of a conversation.
type ConversationResponse struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	IsGroup      bool     `json:"isGroup"`
	Participants []string `json:"participants"`
	Admins       []string `json:"admins,omitempty"`
	CreatedAt    string   `json:"createdAt"`
}

// MessageResponse is one persisted message from a history query.
type MessageResponse struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	SenderID       string `json:"sender_id"`
	ReceiverID     string `json:"receiver_id,omitempty"`
	Content        string `json:"content"`
	Timestamp      string `json:"timestamp"`
}

// CreateConversationRequest is the JSON body for POST /messages/conversations.
type CreateConversationRequest struct {
	Name         string   `json:"name"`
	Participants []string `json:"participants"`
	IsGroup      bool     `json:"isGroup"`
	Admins       []string `json:"admins"`
}

func conversationResponse(c *store.Conversation) ConversationResponse {
	return ConversationResponse{
		ID:           c.ID,
		Name:         c.Name,
		IsGroup:      c.IsGroup,
		Participants: c.Participants,
		Admins:       c.Admins,
		CreatedAt:    c.CreatedAt.Format(timeFormat),
	}
}

// handleCreateConversation handles POST /messages/conversations.
// Every participant's personal room gets a conversationUpdated event so open
// clients can refresh their lists.
func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	conv, err := s.convs.Create(r.Context(), req.Name, req.Participants, req.IsGroup, req.Admins)
	if err != nil {
		if isInvariantError(err) {
			sendJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		if errors.Is(err, store.ErrDuplicate) {
			sendJSONError(w, http.StatusConflict, "direct conversation already exists")
			return
		}
		s.logger.Error("creating conversation", "error", err)
		sendJSONError(w, http.StatusInternalServerError, "creating conversation failed")
		return
	}

	response := conversationResponse(conv)
	for _, participant := range conv.Participants {
		s.notify(participant, socket.EventConversationUpdated, response)
	}
	sendJSON(w, http.StatusCreated, response)
}

// handleConversationRoutes dispatches GET routes under /messages/conversations/:
//
//	GET /messages/conversations/{userId}
//	GET /messages/conversations/{conversationId}/messages
func (s *Server) handleConversationRoutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/messages/conversations/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")

	switch {
	case len(parts) == 1 && parts[0] != "":
		s.handleListConversations(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "messages":
		s.handleHistory(w, r, parts[0])
	default:
		sendJSONError(w, http.StatusNotFound, "unknown route")
	}
}

// handleListConversations handles GET /messages/conversations/{userId}.
func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request, userID string) {
	convs, err := s.convs.ListForUser(r.Context(), userID)
	if err != nil {
		s.logger.Error("listing conversations", "user_id", userID, "error", err)
		sendJSONError(w, http.StatusInternalServerError, "listing conversations failed")
		return
	}

	response := make([]ConversationResponse, 0, len(convs))
	for _, c := range convs {
		response = append(response, conversationResponse(c))
	}
	sendJSON(w, http.StatusOK, response)
}

// handleHistory handles GET /messages/conversations/{id}/messages?limit=N.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request, conversationID string) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			sendJSONError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	msgs, err := s.convs.History(r.Context(), conversationID, limit)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			sendJSONError(w, http.StatusNotFound, "conversation not found")
			return
		}
		s.logger.Error("fetching history", "conversation_id", conversationID, "error", err)
		sendJSONError(w, http.StatusInternalServerError, "fetching history failed")
		return
	}

	response := make([]MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		response = append(response, MessageResponse{
			ID:             m.ID,
			ConversationID: m.ConversationID,
			SenderID:       m.SenderID,
			ReceiverID:     m.ReceiverID,
			Content:        m.Content,
			Timestamp:      m.Timestamp.Format(timeFormat),
		})
	}
	sendJSON(w, http.StatusOK, response)
}

// isInvariantError reports whether err is a caller mistake rather than a
// storage failure.
func isInvariantError(err error) bool {
	return errors.Is(err, conversation.ErrNotEnoughParticipants) ||
		errors.Is(err, conversation.ErrDirectParticipants) ||
		errors.Is(err, conversation.ErrDirectAdmins) ||
		errors.Is(err, conversation.ErrAdminNotParticipant)
}
