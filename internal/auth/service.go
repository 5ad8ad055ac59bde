package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/edgex-labs/edgex/backend/internal/model/user"
	"github.com/edgex-labs/edgex/backend/internal/store"
)

// UserStore is the slice of the document store the identity provider needs.
type UserStore interface {
	CreateUser(ctx context.Context, u *user.User) error
	GetUser(ctx context.Context, id string) (*user.User, error)
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)
}

// EventType distinguishes auth state changes.
type EventType string

const (
	EventSignedIn  EventType = "signed_in"
	EventSignedOut EventType = "signed_out"
)

// Event is pushed to subscribers whenever a user signs in or out.
type Event struct {
	Type EventType
	User user.User
}

// Session is the result of a successful sign in.
type Session struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expiresAt"`
	User      *user.User `json:"user"`
}

// Config tunes the identity provider.
type Config struct {
	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int
}

// Service signs users up and in, and verifies identity tokens.
type Service struct {
	users  UserStore
	tokens *TokenIssuer
	cost   int

	mu        sync.RWMutex
	revoked   map[string]time.Time
	listeners map[string]func(Event)
}

// NewService wires the identity provider over users.
func NewService(users UserStore, cfg Config) *Service {
	cost := cfg.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Service{
		users:     users,
		tokens:    NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL),
		cost:      cost,
		revoked:   make(map[string]time.Time),
		listeners: make(map[string]func(Event)),
	}
}

// SignUp registers a new user and signs them in.
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (*Session, error) {
	if errs := req.Validate(); errs != nil {
		return nil, errs
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &user.User{
		ID:           uuid.NewString(),
		FullName:     strings.TrimSpace(req.FullName),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(hash),
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrEmailInUse
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	slog.Info("user signed up", "component", "auth", "user_id", u.ID)
	return s.startSession(u)
}

// SignIn checks credentials and issues a token.
func (s *Service) SignIn(ctx context.Context, req SignInRequest) (*Session, error) {
	if errs := req.Validate(); errs != nil {
		return nil, errs
	}

	u, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrWrongCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrWrongCredentials
	}
	return s.startSession(u)
}

// SignOut revokes the token. Revoking an invalid token is an error.
func (s *Service) SignOut(ctx context.Context, token string) error {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return err
	}

	s.mu.Lock()
	now := s.tokens.now()
	for id, exp := range s.revoked {
		if now.After(exp) {
			delete(s.revoked, id)
		}
	}
	s.revoked[claims.ID] = claims.ExpiresAt.Time
	s.mu.Unlock()

	u, err := s.users.GetUser(ctx, claims.UserID)
	if err != nil {
		u = &user.User{ID: claims.UserID, Email: claims.Email}
	}
	s.emit(Event{Type: EventSignedOut, User: *u})
	return nil
}

// Verify resolves a token to its user.
func (s *Service) Verify(ctx context.Context, token string) (*user.User, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	_, revoked := s.revoked[claims.ID]
	s.mu.RUnlock()
	if revoked {
		return nil, ErrInvalidToken
	}

	u, err := s.users.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

// Subscribe registers a listener for auth state changes and returns a func
// that removes it.
func (s *Service) Subscribe(listener func(Event)) func() {
	id := uuid.NewString()
	s.mu.Lock()
	s.listeners[id] = listener
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Service) startSession(u *user.User) (*Session, error) {
	token, claims, err := s.tokens.Issue(u.ID, u.Email)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	s.emit(Event{Type: EventSignedIn, User: *u})
	return &Session{Token: token, ExpiresAt: claims.ExpiresAt.Time, User: u}, nil
}

func (s *Service) emit(evt Event) {
	s.mu.RLock()
	listeners := make([]func(Event), 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.RUnlock()

	for _, l := range listeners {
		l(evt)
	}
}
