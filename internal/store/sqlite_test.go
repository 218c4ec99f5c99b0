// ABOUTME: Tests for the SQLite store implementation
// ABOUTME: Covers users, friendships, conversations, messages and sentinel errors

package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "charla.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func makeUser(t *testing.T, s *SQLiteStore, name, email string) *User {
	t.Helper()
	user := &User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: "x",
		CreatedAt:    time.Now(),
	}
	require.NoError(t, s.CreateUser(t.Context(), user))
	return user
}

func TestCreateAndGetUser(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()

	user := makeUser(t, s, "Ana", "ana@example.com")

	got, err := s.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", got.Name)
	assert.Equal(t, "ana@example.com", got.Email)

	byEmail, err := s.GetUserByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	s := newTestStore(t)

	makeUser(t, s, "Ana", "ana@example.com")

	err := s.CreateUser(t.Context(), &User{
		ID:        uuid.New().String(),
		Name:      "Other",
		Email:     "ana@example.com",
		CreatedAt: time.Now(),
	})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestGetUser_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetUser(t.Context(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdatePassword(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()

	user := makeUser(t, s, "Ana", "ana@example.com")

	require.NoError(t, s.UpdatePassword(ctx, user.ID, "new-hash"))

	got, err := s.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)

	assert.ErrorIs(t, s.UpdatePassword(ctx, "missing", "h"), ErrNotFound)
}

func TestFriendRequestLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()

	ana := makeUser(t, s, "Ana", "ana@example.com")
	bea := makeUser(t, s, "Bea", "bea@example.com")

	require.NoError(t, s.CreateFriendRequest(ctx, ana.ID, bea.ID))
	assert.ErrorIs(t, s.CreateFriendRequest(ctx, ana.ID, bea.ID), ErrDuplicate)

	reqs, err := s.ListFriendRequests(ctx, bea.ID)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, ana.ID, reqs[0].FromID)

	require.NoError(t, s.DeleteFriendRequest(ctx, ana.ID, bea.ID))
	assert.ErrorIs(t, s.DeleteFriendRequest(ctx, ana.ID, bea.ID), ErrNotFound)
}

func TestFriendshipIsBidirectional(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()

	ana := makeUser(t, s, "Ana", "ana@example.com")
	bea := makeUser(t, s, "Bea", "bea@example.com")

	require.NoError(t, s.AddFriendship(ctx, ana.ID, bea.ID))

	anaFriends, err := s.ListFriends(ctx, ana.ID)
	require.NoError(t, err)
	require.Len(t, anaFriends, 1)
	assert.Equal(t, bea.ID, anaFriends[0].ID)

	beaFriends, err := s.ListFriends(ctx, bea.ID)
	require.NoError(t, err)
	require.Len(t, beaFriends, 1)
	assert.Equal(t, ana.ID, beaFriends[0].ID)

	require.NoError(t, s.RemoveFriendship(ctx, bea.ID, ana.ID))

	anaFriends, err = s.ListFriends(ctx, ana.ID)
	require.NoError(t, err)
	assert.Empty(t, anaFriends)
}

func TestCreateConversation_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()

	conv := &Conversation{
		ID:           uuid.New().String(),
		Name:         "plans",
		IsGroup:      true,
		Participants: []string{"a", "b", "c"},
		Admins:       []string{"a"},
		CreatedAt:    time.Now(),
	}
	require.NoError(t, s.CreateConversation(ctx, conv))

	got, err := s.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "plans", got.Name)
	assert.True(t, got.IsGroup)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, got.Participants)
	assert.Equal(t, []string{"a"}, got.Admins)
}

func TestGetDirectConversation(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()

	direct := &Conversation{
		ID:           uuid.New().String(),
		Participants: []string{"a", "b"},
		CreatedAt:    time.Now(),
	}
	require.NoError(t, s.CreateConversation(ctx, direct))

	// A group containing the same pair must not match
	group := &Conversation{
		ID:           uuid.New().String(),
		IsGroup:      true,
		Participants: []string{"a", "b", "c"},
		CreatedAt:    time.Now(),
	}
	require.NoError(t, s.CreateConversation(ctx, group))

	got, err := s.GetDirectConversation(ctx, "b", "a")
	require.NoError(t, err)
	assert.Equal(t, direct.ID, got.ID)

	_, err = s.GetDirectConversation(ctx, "a", "z")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateConversation_DuplicateDirectPair(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()

	first := &Conversation{
		ID:           uuid.New().String(),
		Participants: []string{"a", "b"},
		CreatedAt:    time.Now(),
	}
	require.NoError(t, s.CreateConversation(ctx, first))

	// A second direct conversation for the same pair collides, regardless of
	// participant order
	second := &Conversation{
		ID:           uuid.New().String(),
		Participants: []string{"b", "a"},
		CreatedAt:    time.Now(),
	}
	assert.ErrorIs(t, s.CreateConversation(ctx, second), ErrDuplicate)

	// A group with the same pair does not
	group := &Conversation{
		ID:           uuid.New().String(),
		IsGroup:      true,
		Participants: []string{"a", "b"},
		CreatedAt:    time.Now(),
	}
	assert.NoError(t, s.CreateConversation(ctx, group))

	got, err := s.GetDirectConversation(ctx, "b", "a")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
}

func TestListConversationsForUser_OrdersByActivity(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()

	older := &Conversation{ID: "conv-old", Participants: []string{"a", "b"}, CreatedAt: time.Now().Add(-2 * time.Hour)}
	newer := &Conversation{ID: "conv-new", Participants: []string{"a", "c"}, CreatedAt: time.Now().Add(-time.Hour)}
	require.NoError(t, s.CreateConversation(ctx, older))
	require.NoError(t, s.CreateConversation(ctx, newer))

	// A fresh message bumps the older conversation to the top
	require.NoError(t, s.SaveMessage(ctx, &Message{
		ID:             uuid.New().String(),
		ConversationID: "conv-old",
		SenderID:       "b",
		Content:        "hola",
		Timestamp:      time.Now(),
	}))

	convs, err := s.ListConversationsForUser(ctx, "a")
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, "conv-old", convs[0].ID)
	assert.Equal(t, "conv-new", convs[1].ID)

	convs, err = s.ListConversationsForUser(ctx, "c")
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "conv-new", convs[0].ID)
}

func TestMessages_HistoryOrderAndLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()

	conv := &Conversation{ID: "c1", Participants: []string{"a", "b"}, CreatedAt: time.Now()}
	require.NoError(t, s.CreateConversation(ctx, conv))

	base := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, s.SaveMessage(ctx, &Message{
			ID:             uuid.New().String(),
			ConversationID: "c1",
			SenderID:       "a",
			ReceiverID:     "b",
			Content:        string(rune('0' + i)),
			Timestamp:      base.Add(time.Duration(i) * time.Millisecond),
		}))
	}

	msgs, err := s.GetMessages(ctx, "c1", 3)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	// Most recent three, oldest first
	assert.Equal(t, "2", msgs[0].Content)
	assert.Equal(t, "4", msgs[2].Content)
	assert.Equal(t, "b", msgs[0].ReceiverID)
}
