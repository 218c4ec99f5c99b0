// ABOUTME: Auth endpoints: register, login and password reset
// ABOUTME: Issues JWTs on success; password hashes never leave the store layer

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/charlachat/charla/internal/auth"
	"github.com/charlachat/charla/internal/store"
)

// UserResponse is the public JSON representation of a user.
type UserResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// CredentialsResponse is the JSON response for a successful login or register.
type CredentialsResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// LoginRequest is the JSON request body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the JSON request body for POST /auth/register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ResetPasswordRequest is the JSON request body for POST /auth/reset-password.
type ResetPasswordRequest struct {
	Email       string `json:"email"`
	NewPassword string `json:"newPassword"`
}

func userResponse(u *store.User) UserResponse {
	return UserResponse{ID: u.ID, Name: u.Name, Email: u.Email}
}

// handleLogin handles POST /auth/login.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		sendJSONError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := s.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		// Same response as a wrong password so emails cannot be probed
		sendJSONError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		sendJSONError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := s.verifier.Generate(user.ID, user.Name, s.tokenTTL)
	if err != nil {
		s.logger.Error("generating token", "error", err)
		sendJSONError(w, http.StatusInternalServerError, "token generation failed")
		return
	}

	s.logger.Info("user logged in", "user_id", user.ID)
	sendJSON(w, http.StatusOK, CredentialsResponse{Token: token, User: userResponse(user)})
}

// handleRegister handles POST /auth/register.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" || req.Email == "" || req.Password == "" {
		sendJSONError(w, http.StatusBadRequest, "name, email and password are required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("hashing password", "error", err)
		sendJSONError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	user := &store.User{
		ID:           uuid.New().String(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}
	if err := s.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			sendJSONError(w, http.StatusConflict, "email already registered")
			return
		}
		s.logger.Error("creating user", "error", err)
		sendJSONError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	token, err := s.verifier.Generate(user.ID, user.Name, s.tokenTTL)
	if err != nil {
		s.logger.Error("generating token", "error", err)
		sendJSONError(w, http.StatusInternalServerError, "token generation failed")
		return
	}

	s.logger.Info("user registered", "user_id", user.ID)
	sendJSON(w, http.StatusCreated, CredentialsResponse{Token: token, User: userResponse(user)})
}

// handleResetPassword handles POST /auth/reset-password.
func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.NewPassword == "" {
		sendJSONError(w, http.StatusBadRequest, "email and newPassword are required")
		return
	}

	user, err := s.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			sendJSONError(w, http.StatusNotFound, "unknown email")
			return
		}
		s.logger.Error("looking up user", "error", err)
		sendJSONError(w, http.StatusInternalServerError, "reset failed")
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		s.logger.Error("hashing password", "error", err)
		sendJSONError(w, http.StatusInternalServerError, "reset failed")
		return
	}

	if err := s.store.UpdatePassword(r.Context(), user.ID, hash); err != nil {
		s.logger.Error("updating password", "error", err)
		sendJSONError(w, http.StatusInternalServerError, "reset failed")
		return
	}

	s.logger.Info("password reset", "user_id", user.ID)
	w.WriteHeader(http.StatusNoContent)
}
