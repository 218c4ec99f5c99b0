// ABOUTME: REST pass-through calls against the server's JSON API
// ABOUTME: Conversation create/list/history plus auth helpers; failures carry the response status

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// APIError is a non-success response from a REST call. It carries the HTTP
// status so callers can distinguish failures; there is no automatic retry.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Message)
}

// UserInfo is the public representation of a user.
type UserInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Credentials is the result of a successful login or registration.
type Credentials struct {
	Token string   `json:"token"`
	User  UserInfo `json:"user"`
}

// Conversation is the REST representation of a conversation.
type Conversation struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	IsGroup      bool     `json:"isGroup"`
	Participants []string `json:"participants"`
	Admins       []string `json:"admins,omitempty"`
	CreatedAt    string   `json:"createdAt"`
}

// MessageRecord is one persisted message from a history query.
type MessageRecord struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	SenderID       string `json:"sender_id"`
	ReceiverID     string `json:"receiver_id,omitempty"`
	Content        string `json:"content"`
	Timestamp      string `json:"timestamp"`
}

// CreateConversation creates a direct or group conversation. Thin
// pass-through to the store; carries no real-time logic.
func (c *Client) CreateConversation(ctx context.Context, name string, participants []string, isGroup bool, admins []string) (*Conversation, error) {
	body := map[string]any{
		"name":         name,
		"participants": participants,
		"isGroup":      isGroup,
		"admins":       admins,
	}
	conv := &Conversation{}
	if err := c.doJSON(ctx, http.MethodPost, "/messages/conversations", body, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// Conversations lists the user's conversations, most recently active first.
func (c *Client) Conversations(ctx context.Context, userID string) ([]Conversation, error) {
	var convs []Conversation
	if err := c.doJSON(ctx, http.MethodGet, "/messages/conversations/"+userID, nil, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

// History fetches persisted messages for a conversation in send order.
// This is the recovery path for messages missed across a reconnect gap.
func (c *Client) History(ctx context.Context, conversationID string, limit int) ([]MessageRecord, error) {
	path := fmt.Sprintf("/messages/conversations/%s/messages?limit=%d", conversationID, limit)
	var msgs []MessageRecord
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// Login exchanges credentials for a token. Package-level because it is the
// call that produces the token a Client is constructed with. Pass the same
// httpc you will give Config.HTTPClient so proxy and timeout settings cover
// the whole flow; nil uses http.DefaultClient.
func Login(ctx context.Context, httpc *http.Client, apiBase, email, password string) (*Credentials, error) {
	creds := &Credentials{}
	err := doJSONWith(ctx, httpc, "", http.MethodPost, apiBase+"/auth/login",
		map[string]string{"email": email, "password": password}, creds)
	if err != nil {
		return nil, err
	}
	return creds, nil
}

// Register creates an account and returns its first token. Same httpc
// contract as Login.
func Register(ctx context.Context, httpc *http.Client, apiBase, name, email, password string) (*Credentials, error) {
	creds := &Credentials{}
	err := doJSONWith(ctx, httpc, "", http.MethodPost, apiBase+"/auth/register",
		map[string]string{"name": name, "email": email, "password": password}, creds)
	if err != nil {
		return nil, err
	}
	return creds, nil
}

// ResetPassword replaces the password for the account with the given email.
// Same httpc contract as Login.
func ResetPassword(ctx context.Context, httpc *http.Client, apiBase, email, newPassword string) error {
	return doJSONWith(ctx, httpc, "", http.MethodPost, apiBase+"/auth/reset-password",
		map[string]string{"email": email, "newPassword": newPassword}, nil)
}

// doJSON performs an authenticated JSON request against the configured API base
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	return doJSONWith(ctx, c.http, c.cfg.Token, method, c.cfg.APIBase+path, body, out)
}

// doJSONWith performs one JSON request/response round trip. Non-2xx
// responses become a *APIError carrying the status and server message.
func doJSONWith(ctx context.Context, httpClient *http.Client, token, method, url string, body, out any) error {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var errBody struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errBody); err == nil {
			apiErr.Message = errBody.Error
		}
		return apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
