// ABOUTME: Friend endpoints: list, request by email, accept, reject, remove
// ABOUTME: Accept and request push friendAccepted/friendRequest events to personal rooms

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/charlachat/charla/internal/socket"
	"github.com/charlachat/charla/internal/store"
)

// FriendRequestResponse is one pending friend request in JSON form.
type FriendRequestResponse struct {
	FromID    string `json:"from_id"`
	ToID      string `json:"to_id"`
	CreatedAt string `json:"created_at"`
}

// FriendRequestByEmailRequest is the JSON body for POST /users/friend-request/email.
type FriendRequestByEmailRequest struct {
	UserID      string `json:"userId"`
	FriendEmail string `json:"friendEmail"`
}

// FriendDecisionRequest is the JSON body for accept and reject.
type FriendDecisionRequest struct {
	UserID   string `json:"userId"`
	FriendID string `json:"friendId"`
}

// handleUserRoutes dispatches everything under /users/ by path shape:
//
//	POST   /users/friend-request/email
//	POST   /users/friend-request/accept
//	POST   /users/friend-request/reject
//	GET    /users/{id}/friends
//	GET    /users/{id}/friend-requests
//	DELETE /users/{id}/friends/{friendId}
func (s *Server) handleUserRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/users/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")

	if parts[0] == "friend-request" && len(parts) == 2 {
		switch parts[1] {
		case "email":
			s.handleFriendRequestByEmail(w, r)
		case "accept":
			s.handleFriendDecision(w, r, true)
		case "reject":
			s.handleFriendDecision(w, r, false)
		default:
			sendJSONError(w, http.StatusNotFound, "unknown route")
		}
		return
	}

	switch {
	case len(parts) == 2 && parts[1] == "friends" && r.Method == http.MethodGet:
		s.handleListFriends(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "friend-requests" && r.Method == http.MethodGet:
		s.handleListFriendRequests(w, r, parts[0])
	case len(parts) == 3 && parts[1] == "friends" && r.Method == http.MethodDelete:
		s.handleRemoveFriend(w, r, parts[0], parts[2])
	default:
		sendJSONError(w, http.StatusNotFound, "unknown route")
	}
}

// handleListFriends handles GET /users/{id}/friends.
func (s *Server) handleListFriends(w http.ResponseWriter, r *http.Request, userID string) {
	friends, err := s.store.ListFriends(r.Context(), userID)
	if err != nil {
		s.logger.Error("listing friends", "user_id", userID, "error", err)
		sendJSONError(w, http.StatusInternalServerError, "listing friends failed")
		return
	}

	response := make([]UserResponse, 0, len(friends))
	for _, f := range friends {
		response = append(response, userResponse(f))
	}
	sendJSON(w, http.StatusOK, response)
}

// handleListFriendRequests handles GET /users/{id}/friend-requests.
func (s *Server) handleListFriendRequests(w http.ResponseWriter, r *http.Request, userID string) {
	reqs, err := s.store.ListFriendRequests(r.Context(), userID)
	if err != nil {
		s.logger.Error("listing friend requests", "user_id", userID, "error", err)
		sendJSONError(w, http.StatusInternalServerError, "listing friend requests failed")
		return
	}

	response := make([]FriendRequestResponse, 0, len(reqs))
	for _, fr := range reqs {
		response = append(response, FriendRequestResponse{
			FromID:    fr.FromID,
			ToID:      fr.ToID,
			CreatedAt: fr.CreatedAt.Format(timeFormat),
		})
	}
	sendJSON(w, http.StatusOK, response)
}

// handleFriendRequestByEmail handles POST /users/friend-request/email.
// The target is resolved by email; on success a friendRequest event is pushed
// to their personal room.
func (s *Server) handleFriendRequestByEmail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req FriendRequestByEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" || req.FriendEmail == "" {
		sendJSONError(w, http.StatusBadRequest, "userId and friendEmail are required")
		return
	}

	sender, err := s.store.GetUser(r.Context(), req.UserID)
	if err != nil {
		sendJSONError(w, http.StatusNotFound, "unknown user")
		return
	}

	target, err := s.store.GetUserByEmail(r.Context(), req.FriendEmail)
	if err != nil {
		sendJSONError(w, http.StatusNotFound, "no user with that email")
		return
	}
	if target.ID == sender.ID {
		sendJSONError(w, http.StatusBadRequest, "cannot friend yourself")
		return
	}

	if err := s.store.CreateFriendRequest(r.Context(), sender.ID, target.ID); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			sendJSONError(w, http.StatusConflict, "request already pending")
			return
		}
		s.logger.Error("creating friend request", "error", err)
		sendJSONError(w, http.StatusInternalServerError, "friend request failed")
		return
	}

	s.notify(target.ID, socket.EventFriendRequest, userResponse(sender))
	s.logger.Info("friend request sent", "from", sender.ID, "to", target.ID)
	w.WriteHeader(http.StatusNoContent)
}

// handleFriendDecision handles accept and reject of a pending request. Accept
// creates the friendship and pushes a friendAccepted event to the requester.
func (s *Server) handleFriendDecision(w http.ResponseWriter, r *http.Request, accept bool) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req FriendDecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" || req.FriendID == "" {
		sendJSONError(w, http.StatusBadRequest, "userId and friendId are required")
		return
	}

	// The pending request runs friendID -> userID
	if err := s.store.DeleteFriendRequest(r.Context(), req.FriendID, req.UserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			sendJSONError(w, http.StatusNotFound, "no pending request")
			return
		}
		s.logger.Error("deleting friend request", "error", err)
		sendJSONError(w, http.StatusInternalServerError, "friend decision failed")
		return
	}

	if !accept {
		s.logger.Info("friend request rejected", "user_id", req.UserID, "friend_id", req.FriendID)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err := s.store.AddFriendship(r.Context(), req.UserID, req.FriendID); err != nil {
		s.logger.Error("adding friendship", "error", err)
		sendJSONError(w, http.StatusInternalServerError, "friend decision failed")
		return
	}

	accepter, err := s.store.GetUser(r.Context(), req.UserID)
	if err == nil {
		s.notify(req.FriendID, socket.EventFriendAccepted, userResponse(accepter))
	}
	s.logger.Info("friend request accepted", "user_id", req.UserID, "friend_id", req.FriendID)
	w.WriteHeader(http.StatusNoContent)
}

// handleRemoveFriend handles DELETE /users/{id}/friends/{friendId}.
func (s *Server) handleRemoveFriend(w http.ResponseWriter, r *http.Request, userID, friendID string) {
	if err := s.store.RemoveFriendship(r.Context(), userID, friendID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			sendJSONError(w, http.StatusNotFound, "not friends")
			return
		}
		s.logger.Error("removing friendship", "error", err)
		sendJSONError(w, http.StatusInternalServerError, "removing friend failed")
		return
	}

	s.logger.Info("friendship removed", "user_id", userID, "friend_id", friendID)
	w.WriteHeader(http.StatusNoContent)
}
