// ABOUTME: ConversationService is the central layer for conversation and message persistence
// ABOUTME: Enforces participant/admin invariants and the exactly-one-target addressing rule

package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/charlachat/charla/internal/store"
)

// Service errors
var (
	// ErrNotEnoughParticipants means fewer than two participants were given
	ErrNotEnoughParticipants = errors.New("conversation needs at least two participants")

	// ErrDirectParticipants means a non-group conversation has a participant count other than two
	ErrDirectParticipants = errors.New("direct conversation must have exactly two participants")

	// ErrDirectAdmins means admins were given for a non-group conversation
	ErrDirectAdmins = errors.New("direct conversation cannot have admins")

	// ErrAdminNotParticipant means an admin is not in the participant set
	ErrAdminNotParticipant = errors.New("admin must be a participant")

	// ErrBadAddress means a message has zero or two routing targets
	ErrBadAddress = errors.New("message must have exactly one of conversation or receiver")

	// ErrEmptyContent means a message has no text
	ErrEmptyContent = errors.New("message content must not be empty")
)

// ConversationStore defines what the service needs from storage
type ConversationStore interface {
	CreateConversation(ctx context.Context, conv *store.Conversation) error
	GetConversation(ctx context.Context, id string) (*store.Conversation, error)
	ListConversationsForUser(ctx context.Context, userID string) ([]*store.Conversation, error)
	GetDirectConversation(ctx context.Context, userA, userB string) (*store.Conversation, error)
	SaveMessage(ctx context.Context, msg *store.Message) error
	GetMessages(ctx context.Context, conversationID string, limit int) ([]*store.Message, error)
}

// Service is the conversation layer: all conversations and messages flow
// through here before anything is delivered in real time.
type Service struct {
	store  ConversationStore
	logger *slog.Logger
}

// New creates a new conversation Service
func New(st ConversationStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  st,
		logger: logger.With("component", "conversation"),
	}
}

// Create validates and persists a new conversation.
//
// Invariants: at least two participants; a non-group conversation has exactly
// two participants and no admins; every admin is a participant.
func (s *Service) Create(ctx context.Context, name string, participants []string, isGroup bool, admins []string) (*store.Conversation, error) {
	if len(participants) < 2 {
		return nil, ErrNotEnoughParticipants
	}
	if !isGroup {
		if len(participants) != 2 {
			return nil, ErrDirectParticipants
		}
		if len(admins) > 0 {
			return nil, ErrDirectAdmins
		}
	}

	members := make(map[string]bool, len(participants))
	for _, id := range participants {
		members[id] = true
	}
	for _, id := range admins {
		if !members[id] {
			return nil, fmt.Errorf("%w: %s", ErrAdminNotParticipant, id)
		}
	}

	conv := &store.Conversation{
		ID:           uuid.New().String(),
		Name:         name,
		IsGroup:      isGroup,
		Participants: participants,
		Admins:       admins,
		CreatedAt:    time.Now(),
	}
	if err := s.store.CreateConversation(ctx, conv); err != nil {
		return nil, fmt.Errorf("creating conversation: %w", err)
	}

	s.logger.Info("conversation created",
		"conversation_id", conv.ID,
		"is_group", isGroup,
		"participants", len(participants))
	return conv, nil
}

// ListForUser returns the user's conversations, most recently active first
func (s *Service) ListForUser(ctx context.Context, userID string) ([]*store.Conversation, error) {
	return s.store.ListConversationsForUser(ctx, userID)
}

// History returns up to limit messages of a conversation in send order
func (s *Service) History(ctx context.Context, conversationID string, limit int) ([]*store.Message, error) {
	if _, err := s.store.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}
	return s.store.GetMessages(ctx, conversationID, limit)
}

// Append validates and persists one inbound message.
//
// The message must carry exactly one of ConversationID/ReceiverID. Direct
// messages are filed under the two-party conversation with the receiver,
// which is created on first contact. Returns the persisted message.
func (s *Service) Append(ctx context.Context, msg *store.Message) (*store.Message, error) {
	if msg.Content == "" {
		return nil, ErrEmptyContent
	}
	hasConv := msg.ConversationID != ""
	hasReceiver := msg.ReceiverID != ""
	if hasConv == hasReceiver {
		return nil, ErrBadAddress
	}

	if hasReceiver {
		conv, err := s.ensureDirectConversation(ctx, msg.SenderID, msg.ReceiverID)
		if err != nil {
			return nil, err
		}
		msg.ConversationID = conv.ID
	} else {
		if _, err := s.store.GetConversation(ctx, msg.ConversationID); err != nil {
			return nil, fmt.Errorf("resolving conversation: %w", err)
		}
	}

	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	if err := s.store.SaveMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("saving message: %w", err)
	}

	s.logger.Debug("message appended",
		"message_id", msg.ID,
		"conversation_id", msg.ConversationID,
		"sender_id", msg.SenderID)
	return msg, nil
}

// ensureDirectConversation resolves the two-party conversation for a sender
// and receiver, creating it on first contact.
func (s *Service) ensureDirectConversation(ctx context.Context, senderID, receiverID string) (*store.Conversation, error) {
	conv, err := s.store.GetDirectConversation(ctx, senderID, receiverID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("looking up direct conversation: %w", err)
	}

	conv = &store.Conversation{
		ID:           uuid.New().String(),
		IsGroup:      false,
		Participants: []string{senderID, receiverID},
		CreatedAt:    time.Now(),
	}
	if err := s.store.CreateConversation(ctx, conv); err != nil {
		// Another session may have created it between lookup and insert
		if errors.Is(err, store.ErrDuplicate) {
			existing, lookupErr := s.store.GetDirectConversation(ctx, senderID, receiverID)
			if lookupErr == nil {
				s.logger.Debug("found existing direct conversation after race", "conversation_id", existing.ID)
				return existing, nil
			}
		}
		return nil, fmt.Errorf("creating direct conversation: %w", err)
	}
	s.logger.Debug("direct conversation created", "conversation_id", conv.ID)
	return conv, nil
}
