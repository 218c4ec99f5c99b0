// ABOUTME: Store interface and domain models for charla persistence
// ABOUTME: Defines users, friendships, conversations and messages plus sentinel errors

package store

import (
	"context"
	"errors"
	"time"
)

// Store errors
var (
	// ErrNotFound means the requested entity does not exist
	ErrNotFound = errors.New("not found")

	// ErrDuplicate means an entity with the same unique key already exists
	ErrDuplicate = errors.New("already exists")
)

// User is a registered account.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// FriendRequest is a pending friendship between two users.
type FriendRequest struct {
	FromID    string
	ToID      string
	CreatedAt time.Time
}

// Conversation is a direct or group chat. Participants always includes
// every member; Admins is a subset of Participants and only meaningful
// for group conversations.
type Conversation struct {
	ID           string
	Name         string
	IsGroup      bool
	Participants []string
	Admins       []string
	CreatedAt    time.Time
}

// Message is one persisted chat message. ReceiverID is set only for
// direct messages (addressed to a user rather than a conversation);
// ConversationID is always set once persisted because direct messages
// are filed under the two-party conversation.
type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	ReceiverID     string
	Content        string
	Timestamp      time.Time
}

// Store is the persistence interface used by the services and handlers.
type Store interface {
	// Users
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error

	// Friendships
	CreateFriendRequest(ctx context.Context, fromID, toID string) error
	DeleteFriendRequest(ctx context.Context, fromID, toID string) error
	ListFriendRequests(ctx context.Context, toID string) ([]*FriendRequest, error)
	AddFriendship(ctx context.Context, userID, friendID string) error
	RemoveFriendship(ctx context.Context, userID, friendID string) error
	ListFriends(ctx context.Context, userID string) ([]*User, error)

	// Conversations
	CreateConversation(ctx context.Context, conv *Conversation) error
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	ListConversationsForUser(ctx context.Context, userID string) ([]*Conversation, error)
	GetDirectConversation(ctx context.Context, userA, userB string) (*Conversation, error)

	// Messages
	SaveMessage(ctx context.Context, msg *Message) error
	GetMessages(ctx context.Context, conversationID string, limit int) ([]*Message, error)

	Close() error
}
