// Package store persists users, chat history, career memory, vault resources
// and voice feedback sessions.
package store

import (
	"context"
	"errors"

	"github.com/edgex-labs/edgex/backend/internal/model/chat"
	"github.com/edgex-labs/edgex/backend/internal/model/memory"
	"github.com/edgex-labs/edgex/backend/internal/model/resource"
	"github.com/edgex-labs/edgex/backend/internal/model/speech"
	"github.com/edgex-labs/edgex/backend/internal/model/user"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrConflict is returned when a unique key is already taken.
	ErrConflict = errors.New("store: conflict")
)

// Repository defines the document operations the services rely on. Chat
// sessions live in per-tool collections keyed by user id; every list is
// ordered by creation time, newest first.
type Repository interface {
	// CreateUser stores a new user. A duplicate email yields ErrConflict.
	CreateUser(ctx context.Context, u *user.User) error
	GetUser(ctx context.Context, id string) (*user.User, error)
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)

	// CreateSession assigns ID, CreatedAt and UpdatedAt and stores the session.
	CreateSession(ctx context.Context, collection string, s *chat.Session) error
	// UpdateSessionMessages overwrites the message list of an existing session.
	UpdateSessionMessages(ctx context.Context, collection, userID, id string, messages []chat.Message) error
	RenameSession(ctx context.Context, collection, userID, id, title string) error
	GetSession(ctx context.Context, collection, userID, id string) (*chat.Session, error)
	ListSessions(ctx context.Context, collection, userID string) ([]chat.Session, error)
	DeleteSession(ctx context.Context, collection, userID, id string) error

	GetMemory(ctx context.Context, userID string) (*memory.UserMemory, error)
	// SetMemory replaces the stored memory wholesale.
	SetMemory(ctx context.Context, userID string, m memory.UserMemory) error

	// CreateResource assigns ID and CreatedAt.
	CreateResource(ctx context.Context, r *resource.Resource) error
	GetResource(ctx context.Context, id string) (*resource.Resource, error)
	UpdateResource(ctx context.Context, r *resource.Resource) error
	DeleteResource(ctx context.Context, id string) error
	ListResources(ctx context.Context) ([]resource.Resource, error)

	// CreateVoiceSession assigns ID and CreatedAt.
	CreateVoiceSession(ctx context.Context, s *speech.FeedbackSession) error
	GetVoiceSession(ctx context.Context, userID, id string) (*speech.FeedbackSession, error)
	ListVoiceSessions(ctx context.Context, userID string) ([]speech.FeedbackSession, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
	Close() error
}
