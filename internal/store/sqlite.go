// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides user/friendship/conversation/message persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at    TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);

		CREATE TABLE IF NOT EXISTS friend_requests (
			from_id    TEXT NOT NULL,
			to_id      TEXT NOT NULL,
			created_at TEXT NOT NULL,
			PRIMARY KEY (from_id, to_id),
			FOREIGN KEY (from_id) REFERENCES users(id),
			FOREIGN KEY (to_id) REFERENCES users(id)
		);

		CREATE TABLE IF NOT EXISTS friendships (
			user_id    TEXT NOT NULL,
			friend_id  TEXT NOT NULL,
			created_at TEXT NOT NULL,
			PRIMARY KEY (user_id, friend_id),
			FOREIGN KEY (user_id) REFERENCES users(id),
			FOREIGN KEY (friend_id) REFERENCES users(id)
		);

		CREATE TABLE IF NOT EXISTS conversations (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL DEFAULT '',
			is_group   INTEGER NOT NULL DEFAULT 0,
			direct_key TEXT,
			created_at TEXT NOT NULL
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_conversations_direct_key
			ON conversations(direct_key);

		CREATE TABLE IF NOT EXISTS conversation_participants (
			conversation_id TEXT NOT NULL,
			user_id         TEXT NOT NULL,
			is_admin        INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (conversation_id, user_id),
			FOREIGN KEY (conversation_id) REFERENCES conversations(id)
		);

		CREATE INDEX IF NOT EXISTS idx_participants_user
			ON conversation_participants(user_id);

		CREATE TABLE IF NOT EXISTS messages (
			id              TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			sender_id       TEXT NOT NULL,
			receiver_id     TEXT,
			content         TEXT NOT NULL,
			created_at      TEXT NOT NULL,
			FOREIGN KEY (conversation_id) REFERENCES conversations(id)
		);

		CREATE INDEX IF NOT EXISTS idx_messages_conversation_created
			ON messages(conversation_id, created_at);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}
	return nil
}

// Close closes the underlying database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// isUniqueViolation reports whether err is a SQLite unique constraint failure
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// CreateUser inserts a new user. Returns ErrDuplicate if the email is taken.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		user.ID, user.Name, user.Email, user.PasswordHash, user.CreatedAt.Format(time.RFC3339Nano),
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}

	s.logger.Debug("user created", "user_id", user.ID, "email", user.Email)
	return nil
}

// GetUser retrieves a user by ID
func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, created_at FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// GetUserByEmail retrieves a user by email address
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, created_at FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*User, error) {
	user := &User{}
	var createdAt string
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning user: %w", err)
	}
	user.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return user, nil
}

// UpdatePassword replaces a user's password hash
func (s *SQLiteStore) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, userID)
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateFriendRequest records a pending friend request.
// Returns ErrDuplicate if one already exists for the pair.
func (s *SQLiteStore) CreateFriendRequest(ctx context.Context, fromID, toID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO friend_requests (from_id, to_id, created_at) VALUES (?, ?, ?)`,
		fromID, toID, time.Now().Format(time.RFC3339Nano),
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("inserting friend request: %w", err)
	}
	return nil
}

// DeleteFriendRequest removes a pending request. Returns ErrNotFound if absent.
func (s *SQLiteStore) DeleteFriendRequest(ctx context.Context, fromID, toID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM friend_requests WHERE from_id = ? AND to_id = ?`, fromID, toID)
	if err != nil {
		return fmt.Errorf("deleting friend request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListFriendRequests returns pending requests addressed to the given user
func (s *SQLiteStore) ListFriendRequests(ctx context.Context, toID string) ([]*FriendRequest, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT from_id, to_id, created_at FROM friend_requests WHERE to_id = ? ORDER BY created_at`, toID)
	if err != nil {
		return nil, fmt.Errorf("querying friend requests: %w", err)
	}
	defer rows.Close()

	var reqs []*FriendRequest
	for rows.Next() {
		req := &FriendRequest{}
		var createdAt string
		if err := rows.Scan(&req.FromID, &req.ToID, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning friend request: %w", err)
		}
		req.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}

// AddFriendship records a friendship in both directions
func (s *SQLiteStore) AddFriendship(ctx context.Context, userID, friendID string) error {
	now := time.Now().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO friendships (user_id, friend_id, created_at) VALUES (?, ?, ?), (?, ?, ?)`,
		userID, friendID, now, friendID, userID, now,
	)
	if err != nil {
		return fmt.Errorf("inserting friendship: %w", err)
	}
	return nil
}

// RemoveFriendship deletes a friendship in both directions
func (s *SQLiteStore) RemoveFriendship(ctx context.Context, userID, friendID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM friendships WHERE (user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)`,
		userID, friendID, friendID, userID,
	)
	if err != nil {
		return fmt.Errorf("deleting friendship: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListFriends returns the users the given user is friends with
func (s *SQLiteStore) ListFriends(ctx context.Context, userID string) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.name, u.email, u.password_hash, u.created_at
		FROM friendships f
		JOIN users u ON u.id = f.friend_id
		WHERE f.user_id = ?
		ORDER BY u.name`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying friends: %w", err)
	}
	defer rows.Close()

	var friends []*User
	for rows.Next() {
		user := &User{}
		var createdAt string
		if err := rows.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning friend: %w", err)
		}
		user.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		friends = append(friends, user)
	}
	return friends, rows.Err()
}

// directKey is the canonical identity of a two-party conversation: the sorted
// participant pair. The unique index on it makes concurrent first-contact
// inserts for the same pair collide instead of splitting the history.
func directKey(userA, userB string) string {
	if userB < userA {
		userA, userB = userB, userA
	}
	return userA + "|" + userB
}

// CreateConversation inserts a conversation and its participant rows in one
// transaction. Returns ErrDuplicate when a direct conversation for the same
// pair already exists.
func (s *SQLiteStore) CreateConversation(ctx context.Context, conv *Conversation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	isGroup := 0
	if conv.IsGroup {
		isGroup = 1
	}
	var pairKey any
	if !conv.IsGroup && len(conv.Participants) == 2 {
		pairKey = directKey(conv.Participants[0], conv.Participants[1])
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO conversations (id, name, is_group, direct_key, created_at) VALUES (?, ?, ?, ?, ?)`,
		conv.ID, conv.Name, isGroup, pairKey, conv.CreatedAt.Format(time.RFC3339Nano),
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("inserting conversation: %w", err)
	}

	admins := make(map[string]bool, len(conv.Admins))
	for _, id := range conv.Admins {
		admins[id] = true
	}
	for _, userID := range conv.Participants {
		isAdmin := 0
		if admins[userID] {
			isAdmin = 1
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO conversation_participants (conversation_id, user_id, is_admin) VALUES (?, ?, ?)`,
			conv.ID, userID, isAdmin,
		)
		if err != nil {
			return fmt.Errorf("inserting participant %s: %w", userID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing conversation: %w", err)
	}

	s.logger.Debug("conversation created",
		"conversation_id", conv.ID,
		"is_group", conv.IsGroup,
		"participants", len(conv.Participants))
	return nil
}

// GetConversation retrieves a conversation with its participant and admin sets
func (s *SQLiteStore) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, is_group, created_at FROM conversations WHERE id = ?`, id)

	conv := &Conversation{}
	var isGroup int
	var createdAt string
	err := row.Scan(&conv.ID, &conv.Name, &isGroup, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning conversation: %w", err)
	}
	conv.IsGroup = isGroup == 1
	conv.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)

	if err := s.loadParticipants(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// loadParticipants fills in the Participants and Admins sets
func (s *SQLiteStore) loadParticipants(ctx context.Context, conv *Conversation) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, is_admin FROM conversation_participants WHERE conversation_id = ? ORDER BY user_id`,
		conv.ID)
	if err != nil {
		return fmt.Errorf("querying participants: %w", err)
	}
	defer rows.Close()

	conv.Participants = nil
	conv.Admins = nil
	for rows.Next() {
		var userID string
		var isAdmin int
		if err := rows.Scan(&userID, &isAdmin); err != nil {
			return fmt.Errorf("scanning participant: %w", err)
		}
		conv.Participants = append(conv.Participants, userID)
		if isAdmin == 1 {
			conv.Admins = append(conv.Admins, userID)
		}
	}
	return rows.Err()
}

// ListConversationsForUser returns the conversations the user participates in,
// most recently active first (by last message, falling back to creation time).
func (s *SQLiteStore) ListConversationsForUser(ctx context.Context, userID string) ([]*Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.is_group, c.created_at
		FROM conversations c
		JOIN conversation_participants p ON p.conversation_id = c.id
		WHERE p.user_id = ?
		ORDER BY COALESCE(
			(SELECT MAX(m.created_at) FROM messages m WHERE m.conversation_id = c.id),
			c.created_at
		) DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying conversations: %w", err)
	}
	defer rows.Close()

	var convs []*Conversation
	for rows.Next() {
		conv := &Conversation{}
		var isGroup int
		var createdAt string
		if err := rows.Scan(&conv.ID, &conv.Name, &isGroup, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning conversation: %w", err)
		}
		conv.IsGroup = isGroup == 1
		conv.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		convs = append(convs, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, conv := range convs {
		if err := s.loadParticipants(ctx, conv); err != nil {
			return nil, err
		}
	}
	return convs, nil
}

// GetDirectConversation finds the non-group conversation whose participant
// set is exactly {userA, userB}. Returns ErrNotFound if none exists.
func (s *SQLiteStore) GetDirectConversation(ctx context.Context, userA, userB string) (*Conversation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id FROM conversations WHERE direct_key = ?`, directKey(userA, userB))

	var id string
	err := row.Scan(&id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning direct conversation: %w", err)
	}
	return s.GetConversation(ctx, id)
}

// SaveMessage persists a chat message
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *Message) error {
	var receiver any
	if msg.ReceiverID != "" {
		receiver = msg.ReceiverID
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, sender_id, receiver_id, content, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.ConversationID, msg.SenderID, receiver, msg.Content,
		msg.Timestamp.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}

	s.logger.Debug("message saved",
		"message_id", msg.ID,
		"conversation_id", msg.ConversationID,
		"sender_id", msg.SenderID)
	return nil
}

// GetMessages returns up to limit messages for a conversation in send order
func (s *SQLiteStore) GetMessages(ctx context.Context, conversationID string, limit int) ([]*Message, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, sender_id, receiver_id, content, created_at
		FROM (
			SELECT * FROM messages
			WHERE conversation_id = ?
			ORDER BY created_at DESC
			LIMIT ?
		)
		ORDER BY created_at ASC`, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var msgs []*Message
	for rows.Next() {
		msg := &Message{}
		var receiver sql.NullString
		var createdAt string
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.SenderID, &receiver, &msg.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		msg.ReceiverID = receiver.String
		msg.Timestamp, _ = time.Parse(time.RFC3339Nano, createdAt)
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}
