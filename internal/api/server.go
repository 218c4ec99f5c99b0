// ABOUTME: HTTP API server wiring the REST routes for auth, friends and conversations
// ABOUTME: Protected routes require a bearer token; mutations push real-time notifications

package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/charlachat/charla/internal/auth"
	"github.com/charlachat/charla/internal/conversation"
	"github.com/charlachat/charla/internal/store"
)

// Notifier pushes a named event to a user's personal room. Satisfied by the
// socket hub; nil disables real-time notifications.
type Notifier interface {
	Notify(userID, event string, payload any)
}

// Server holds the REST API handlers and their dependencies.
type Server struct {
	store    store.Store
	convs    *conversation.Service
	verifier *auth.JWTVerifier
	notifier Notifier
	tokenTTL time.Duration
	logger   *slog.Logger
}

// New creates an API server. Pass nil notifier to disable real-time
// notifications and nil logger for default.
func New(st store.Store, convs *conversation.Service, verifier *auth.JWTVerifier, notifier Notifier, tokenTTL time.Duration, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:    st,
		convs:    convs,
		verifier: verifier,
		notifier: notifier,
		tokenTTL: tokenTTL,
		logger:   logger.With("component", "api"),
	}
}

// Routes registers every REST route on the mux. Routes under /users and
// /messages require a valid bearer token.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/auth/login", s.handleLogin)
	mux.HandleFunc("/auth/register", s.handleRegister)
	mux.HandleFunc("/auth/reset-password", s.handleResetPassword)

	protected := auth.Middleware(s.verifier)
	mux.Handle("/users/", protected(http.HandlerFunc(s.handleUserRoutes)))
	mux.Handle("/messages/conversations", protected(http.HandlerFunc(s.handleCreateConversation)))
	mux.Handle("/messages/conversations/", protected(http.HandlerFunc(s.handleConversationRoutes)))
}

// Handler returns a mux with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Routes(mux)
	return mux
}

// notify pushes an event to a user's personal room when a notifier is wired
func (s *Server) notify(userID, event string, payload any) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(userID, event, payload)
}

// sendJSON writes a JSON response with the given status.
func sendJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

// sendJSONError writes a JSON error response.
func sendJSONError(w http.ResponseWriter, status int, message string) {
	sendJSON(w, status, map[string]string{"error": message})
}
