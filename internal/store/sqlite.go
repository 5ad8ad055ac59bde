package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/edgex-labs/edgex/backend/internal/model/chat"
	"github.com/edgex-labs/edgex/backend/internal/model/memory"
	"github.com/edgex-labs/edgex/backend/internal/model/resource"
	"github.com/edgex-labs/edgex/backend/internal/model/speech"
	"github.com/edgex-labs/edgex/backend/internal/model/user"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens (and if needed creates) the database at dbPath.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		full_name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chat_sessions (
		id TEXT PRIMARY KEY,
		collection TEXT NOT NULL,
		user_id TEXT NOT NULL,
		tool_id TEXT NOT NULL,
		title TEXT NOT NULL,
		messages_json TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chat_sessions_owner ON chat_sessions(collection, user_id, created_at);

	CREATE TABLE IF NOT EXISTS memories (
		user_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		fav_subject TEXT NOT NULL,
		goal TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS resources (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		url TEXT NOT NULL,
		description TEXT NOT NULL,
		tags_json TEXT NOT NULL,
		domain TEXT NOT NULL,
		upvotes INTEGER NOT NULL DEFAULT 0,
		upvoters_json TEXT NOT NULL,
		poster_id TEXT NOT NULL,
		poster_name TEXT NOT NULL,
		poster_avatar TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_resources_created ON resources(created_at);

	CREATE TABLE IF NOT EXISTS voice_sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		transcript TEXT NOT NULL,
		feedback TEXT NOT NULL,
		reaction TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_voice_sessions_owner ON voice_sessions(user_id, created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// CreateUser inserts a user row.
func (s *SQLiteStore) CreateUser(ctx context.Context, u *user.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, full_name, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.FullName, strings.ToLower(u.Email), u.PasswordHash, u.CreatedAt.UnixMilli(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by id.
func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*user.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, full_name, email, password_hash, created_at FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// GetUserByEmail retrieves a user by email, case-insensitively.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, full_name, email, password_hash, created_at FROM users WHERE email = ?`, strings.ToLower(email))
	return scanUser(row)
}

func scanUser(row *sql.Row) (*user.User, error) {
	var u user.User
	var createdAt int64
	err := row.Scan(&u.ID, &u.FullName, &u.Email, &u.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}
	u.CreatedAt = time.UnixMilli(createdAt)
	return &u, nil
}

// CreateSession inserts a chat session into collection.
func (s *SQLiteStore) CreateSession(ctx context.Context, collection string, session *chat.Session) error {
	messagesJSON, err := json.Marshal(session.Messages)
	if err != nil {
		return fmt.Errorf("encode messages: %w", err)
	}
	now := s.now()
	session.ID = uuid.NewString()
	session.CreatedAt = now
	session.UpdatedAt = now

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO chat_sessions (id, collection, user_id, tool_id, title, messages_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID, collection, session.UserID, session.ToolID, session.Title, string(messagesJSON),
		now.UnixMilli(), now.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert chat session: %w", err)
	}
	return nil
}

// UpdateSessionMessages replaces the stored messages of a session.
func (s *SQLiteStore) UpdateSessionMessages(ctx context.Context, collection, userID, id string, messages []chat.Message) error {
	messagesJSON, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("encode messages: %w", err)
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE chat_sessions SET messages_json = ?, updated_at = ?
		WHERE id = ? AND collection = ? AND user_id = ?`,
		string(messagesJSON), s.now().UnixMilli(), id, collection, userID,
	)
	if err != nil {
		return fmt.Errorf("update chat session: %w", err)
	}
	return requireAffected(result)
}

// RenameSession updates the title of a session.
func (s *SQLiteStore) RenameSession(ctx context.Context, collection, userID, id, title string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE chat_sessions SET title = ?, updated_at = ?
		WHERE id = ? AND collection = ? AND user_id = ?`,
		title, s.now().UnixMilli(), id, collection, userID,
	)
	if err != nil {
		return fmt.Errorf("rename chat session: %w", err)
	}
	return requireAffected(result)
}

// GetSession loads a single session.
func (s *SQLiteStore) GetSession(ctx context.Context, collection, userID, id string) (*chat.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, tool_id, title, messages_json, created_at, updated_at
		FROM chat_sessions WHERE id = ? AND collection = ? AND user_id = ?`,
		id, collection, userID,
	)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// ListSessions returns the user's sessions in collection, newest first.
func (s *SQLiteStore) ListSessions(ctx context.Context, collection, userID string) ([]chat.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, tool_id, title, messages_json, created_at, updated_at
		FROM chat_sessions WHERE collection = ? AND user_id = ?
		ORDER BY created_at DESC, rowid DESC`,
		collection, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query chat sessions: %w", err)
	}
	defer closeRows(rows, "chat sessions")

	sessions := make([]chat.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat sessions: %w", err)
	}
	return sessions, nil
}

// DeleteSession removes a session.
func (s *SQLiteStore) DeleteSession(ctx context.Context, collection, userID, id string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM chat_sessions WHERE id = ? AND collection = ? AND user_id = ?`, id, collection, userID)
	if err != nil {
		return fmt.Errorf("delete chat session: %w", err)
	}
	return requireAffected(result)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*chat.Session, error) {
	var session chat.Session
	var messagesJSON string
	var createdAt, updatedAt int64
	if err := row.Scan(&session.ID, &session.UserID, &session.ToolID, &session.Title,
		&messagesJSON, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan chat session: %w", err)
	}
	if err := json.Unmarshal([]byte(messagesJSON), &session.Messages); err != nil {
		return nil, fmt.Errorf("decode messages of %s: %w", session.ID, err)
	}
	session.CreatedAt = time.UnixMilli(createdAt)
	session.UpdatedAt = time.UnixMilli(updatedAt)
	return &session, nil
}

// GetMemory loads the career memory of a user.
func (s *SQLiteStore) GetMemory(ctx context.Context, userID string) (*memory.UserMemory, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT name, fav_subject, goal, updated_at FROM memories WHERE user_id = ?`, userID)

	var m memory.UserMemory
	var updatedAt int64
	err := row.Scan(&m.Name, &m.FavSubject, &m.Goal, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan memory: %w", err)
	}
	m.UpdatedAt = time.UnixMilli(updatedAt)
	return &m, nil
}

// SetMemory overwrites the career memory of a user.
func (s *SQLiteStore) SetMemory(ctx context.Context, userID string, m memory.UserMemory) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO memories (user_id, name, fav_subject, goal, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			name = excluded.name,
			fav_subject = excluded.fav_subject,
			goal = excluded.goal,
			updated_at = excluded.updated_at`,
		userID, m.Name, m.FavSubject, m.Goal, s.now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upsert memory: %w", err)
	}
	return nil
}

// CreateResource inserts a vault resource.
func (s *SQLiteStore) CreateResource(ctx context.Context, r *resource.Resource) error {
	r.ID = uuid.NewString()
	r.CreatedAt = s.now()
	r.UpdatedAt = r.CreatedAt
	tagsJSON, upvotersJSON, err := encodeResourceLists(r)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO resources (id, title, url, description, tags_json, domain, upvotes, upvoters_json,
			poster_id, poster_name, poster_avatar, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Title, r.URL, r.Description, tagsJSON, r.Domain, r.Upvotes, upvotersJSON,
		r.PostedBy.ID, r.PostedBy.Name, r.PostedBy.Avatar, r.CreatedAt.UnixMilli(), r.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert resource: %w", err)
	}
	return nil
}

// GetResource loads a resource by id.
func (s *SQLiteStore) GetResource(ctx context.Context, id string) (*resource.Resource, error) {
	row := s.db.QueryRowContext(ctx, resourceSelect+` WHERE id = ?`, id)
	r, err := scanResource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

// UpdateResource writes every mutable field of r.
func (s *SQLiteStore) UpdateResource(ctx context.Context, r *resource.Resource) error {
	r.UpdatedAt = s.now()
	tagsJSON, upvotersJSON, err := encodeResourceLists(r)
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE resources SET title = ?, url = ?, description = ?, tags_json = ?, domain = ?,
			upvotes = ?, upvoters_json = ?, updated_at = ?
		WHERE id = ?`,
		r.Title, r.URL, r.Description, tagsJSON, r.Domain, r.Upvotes, upvotersJSON, r.UpdatedAt.UnixMilli(), r.ID,
	)
	if err != nil {
		return fmt.Errorf("update resource: %w", err)
	}
	return requireAffected(result)
}

// DeleteResource removes a resource.
func (s *SQLiteStore) DeleteResource(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM resources WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete resource: %w", err)
	}
	return requireAffected(result)
}

// ListResources returns every resource, newest first.
func (s *SQLiteStore) ListResources(ctx context.Context) ([]resource.Resource, error) {
	rows, err := s.db.QueryContext(ctx, resourceSelect+` ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("query resources: %w", err)
	}
	defer closeRows(rows, "resources")

	list := make([]resource.Resource, 0)
	for rows.Next() {
		r, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate resources: %w", err)
	}
	return list, nil
}

const resourceSelect = `
	SELECT id, title, url, description, tags_json, domain, upvotes, upvoters_json,
		poster_id, poster_name, poster_avatar, created_at, updated_at
	FROM resources`

func scanResource(row scanner) (*resource.Resource, error) {
	var r resource.Resource
	var tagsJSON, upvotersJSON string
	var createdAt, updatedAt int64
	if err := row.Scan(&r.ID, &r.Title, &r.URL, &r.Description, &tagsJSON, &r.Domain, &r.Upvotes,
		&upvotersJSON, &r.PostedBy.ID, &r.PostedBy.Name, &r.PostedBy.Avatar, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan resource: %w", err)
	}
	if err := json.Unmarshal([]byte(tagsJSON), &r.Tags); err != nil {
		return nil, fmt.Errorf("decode tags of %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(upvotersJSON), &r.Upvoters); err != nil {
		return nil, fmt.Errorf("decode upvoters of %s: %w", r.ID, err)
	}
	r.CreatedAt = time.UnixMilli(createdAt)
	r.UpdatedAt = time.UnixMilli(updatedAt)
	return &r, nil
}

func encodeResourceLists(r *resource.Resource) (string, string, error) {
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	upvoters := r.Upvoters
	if upvoters == nil {
		upvoters = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return "", "", fmt.Errorf("encode tags: %w", err)
	}
	upvotersJSON, err := json.Marshal(upvoters)
	if err != nil {
		return "", "", fmt.Errorf("encode upvoters: %w", err)
	}
	return string(tagsJSON), string(upvotersJSON), nil
}

// CreateVoiceSession inserts a voice feedback record.
func (s *SQLiteStore) CreateVoiceSession(ctx context.Context, v *speech.FeedbackSession) error {
	v.ID = uuid.NewString()
	v.CreatedAt = s.now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO voice_sessions (id, user_id, transcript, feedback, reaction, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		v.ID, v.UserID, v.Transcript, v.Feedback, v.Reaction, v.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert voice session: %w", err)
	}
	return nil
}

// GetVoiceSession loads one voice feedback record.
func (s *SQLiteStore) GetVoiceSession(ctx context.Context, userID, id string) (*speech.FeedbackSession, error) {
	row := s.db.QueryRowContext(ctx, voiceSelect+` WHERE id = ? AND user_id = ?`, id, userID)
	v, err := scanVoiceSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return v, err
}

// ListVoiceSessions returns the user's voice feedback records, newest first.
func (s *SQLiteStore) ListVoiceSessions(ctx context.Context, userID string) ([]speech.FeedbackSession, error) {
	rows, err := s.db.QueryContext(ctx, voiceSelect+` WHERE user_id = ? ORDER BY created_at DESC, rowid DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query voice sessions: %w", err)
	}
	defer closeRows(rows, "voice sessions")

	list := make([]speech.FeedbackSession, 0)
	for rows.Next() {
		v, err := scanVoiceSession(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate voice sessions: %w", err)
	}
	return list, nil
}

const voiceSelect = `SELECT id, user_id, transcript, feedback, reaction, created_at FROM voice_sessions`

func scanVoiceSession(row scanner) (*speech.FeedbackSession, error) {
	var v speech.FeedbackSession
	var createdAt int64
	if err := row.Scan(&v.ID, &v.UserID, &v.Transcript, &v.Feedback, &v.Reaction, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan voice session: %w", err)
	}
	v.CreatedAt = time.UnixMilli(createdAt)
	return &v, nil
}

func requireAffected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func closeRows(rows *sql.Rows, what string) {
	if err := rows.Close(); err != nil {
		slog.Warn("failed to close rows", "component", "store", "query", what, "error", err)
	}
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
