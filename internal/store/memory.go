package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/edgex-labs/edgex/backend/internal/model/chat"
	"github.com/edgex-labs/edgex/backend/internal/model/memory"
	"github.com/edgex-labs/edgex/backend/internal/model/resource"
	"github.com/edgex-labs/edgex/backend/internal/model/speech"
	"github.com/edgex-labs/edgex/backend/internal/model/user"
)

// MemoryStore is a process-local Repository used in tests and when
// STORE_DRIVER=memory.
type MemoryStore struct {
	mu        sync.RWMutex
	now       func() time.Time
	seq       int64
	users     map[string]user.User
	sessions  map[string]storedSession
	memories  map[string]memory.UserMemory
	resources map[string]storedResource
	voice     map[string]storedVoice
}

type storedSession struct {
	collection string
	seq        int64
	session    chat.Session
}

type storedResource struct {
	seq      int64
	resource resource.Resource
}

type storedVoice struct {
	seq     int64
	session speech.FeedbackSession
}

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		now:       time.Now,
		users:     make(map[string]user.User),
		sessions:  make(map[string]storedSession),
		memories:  make(map[string]memory.UserMemory),
		resources: make(map[string]storedResource),
		voice:     make(map[string]storedVoice),
	}
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) CreateUser(_ context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return ErrConflict
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = m.now()
	}
	u.Email = strings.ToLower(u.Email)
	m.users[u.ID] = *u
	return nil
}

func (m *MemoryStore) GetUser(_ context.Context, id string) (*user.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *MemoryStore) GetUserByEmail(_ context.Context, email string) (*user.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			found := u
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) CreateSession(_ context.Context, collection string, s *chat.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	s.ID = uuid.NewString()
	s.CreatedAt = now
	s.UpdatedAt = now
	m.seq++
	stored := *s
	stored.Messages = cloneMessages(s.Messages)
	m.sessions[s.ID] = storedSession{collection: collection, seq: m.seq, session: stored}
	return nil
}

func (m *MemoryStore) UpdateSessionMessages(_ context.Context, collection, userID, id string, messages []chat.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.ownedSession(collection, userID, id)
	if !ok {
		return ErrNotFound
	}
	stored.session.Messages = cloneMessages(messages)
	stored.session.UpdatedAt = m.now()
	m.sessions[id] = stored
	return nil
}

func (m *MemoryStore) RenameSession(_ context.Context, collection, userID, id, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.ownedSession(collection, userID, id)
	if !ok {
		return ErrNotFound
	}
	stored.session.Title = title
	stored.session.UpdatedAt = m.now()
	m.sessions[id] = stored
	return nil
}

func (m *MemoryStore) GetSession(_ context.Context, collection, userID, id string) (*chat.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stored, ok := m.ownedSession(collection, userID, id)
	if !ok {
		return nil, ErrNotFound
	}
	s := stored.session
	s.Messages = cloneMessages(s.Messages)
	return &s, nil
}

func (m *MemoryStore) ListSessions(_ context.Context, collection, userID string) ([]chat.Session, error) {
	m.mu.RLock()
	matched := make([]storedSession, 0)
	for _, stored := range m.sessions {
		if stored.collection == collection && stored.session.UserID == userID {
			matched = append(matched, stored)
		}
	}
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.session.CreatedAt.Equal(b.session.CreatedAt) {
			return a.session.CreatedAt.After(b.session.CreatedAt)
		}
		return a.seq > b.seq
	})

	out := make([]chat.Session, 0, len(matched))
	for _, stored := range matched {
		s := stored.session
		s.Messages = cloneMessages(s.Messages)
		out = append(out, s)
	}
	return out, nil
}

func (m *MemoryStore) DeleteSession(_ context.Context, collection, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ownedSession(collection, userID, id); !ok {
		return ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *MemoryStore) ownedSession(collection, userID, id string) (storedSession, bool) {
	stored, ok := m.sessions[id]
	if !ok || stored.collection != collection || stored.session.UserID != userID {
		return storedSession{}, false
	}
	return stored, true
}

func (m *MemoryStore) GetMemory(_ context.Context, userID string) (*memory.UserMemory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mem, ok := m.memories[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &mem, nil
}

func (m *MemoryStore) SetMemory(_ context.Context, userID string, mem memory.UserMemory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mem.UpdatedAt = m.now()
	m.memories[userID] = mem
	return nil
}

func (m *MemoryStore) CreateResource(_ context.Context, r *resource.Resource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = uuid.NewString()
	r.CreatedAt = m.now()
	r.UpdatedAt = r.CreatedAt
	m.seq++
	m.resources[r.ID] = storedResource{seq: m.seq, resource: cloneResource(*r)}
	return nil
}

func (m *MemoryStore) GetResource(_ context.Context, id string) (*resource.Resource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stored, ok := m.resources[id]
	if !ok {
		return nil, ErrNotFound
	}
	r := cloneResource(stored.resource)
	return &r, nil
}

func (m *MemoryStore) UpdateResource(_ context.Context, r *resource.Resource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.resources[r.ID]
	if !ok {
		return ErrNotFound
	}
	r.UpdatedAt = m.now()
	updated := cloneResource(*r)
	updated.CreatedAt = stored.resource.CreatedAt
	updated.PostedBy = stored.resource.PostedBy
	stored.resource = updated
	m.resources[r.ID] = stored
	return nil
}

func (m *MemoryStore) DeleteResource(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.resources[id]; !ok {
		return ErrNotFound
	}
	delete(m.resources, id)
	return nil
}

func (m *MemoryStore) ListResources(context.Context) ([]resource.Resource, error) {
	m.mu.RLock()
	matched := make([]storedResource, 0, len(m.resources))
	for _, stored := range m.resources {
		matched = append(matched, stored)
	}
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.resource.CreatedAt.Equal(b.resource.CreatedAt) {
			return a.resource.CreatedAt.After(b.resource.CreatedAt)
		}
		return a.seq > b.seq
	})

	out := make([]resource.Resource, 0, len(matched))
	for _, stored := range matched {
		out = append(out, cloneResource(stored.resource))
	}
	return out, nil
}

func (m *MemoryStore) CreateVoiceSession(_ context.Context, v *speech.FeedbackSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v.ID = uuid.NewString()
	v.CreatedAt = m.now()
	m.seq++
	m.voice[v.ID] = storedVoice{seq: m.seq, session: *v}
	return nil
}

func (m *MemoryStore) GetVoiceSession(_ context.Context, userID, id string) (*speech.FeedbackSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stored, ok := m.voice[id]
	if !ok || stored.session.UserID != userID {
		return nil, ErrNotFound
	}
	v := stored.session
	return &v, nil
}

func (m *MemoryStore) ListVoiceSessions(_ context.Context, userID string) ([]speech.FeedbackSession, error) {
	m.mu.RLock()
	matched := make([]storedVoice, 0)
	for _, stored := range m.voice {
		if stored.session.UserID == userID {
			matched = append(matched, stored)
		}
	}
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.session.CreatedAt.Equal(b.session.CreatedAt) {
			return a.session.CreatedAt.After(b.session.CreatedAt)
		}
		return a.seq > b.seq
	})

	out := make([]speech.FeedbackSession, 0, len(matched))
	for _, stored := range matched {
		out = append(out, stored.session)
	}
	return out, nil
}

func cloneMessages(messages []chat.Message) []chat.Message {
	if messages == nil {
		return nil
	}
	return append([]chat.Message(nil), messages...)
}

func cloneResource(r resource.Resource) resource.Resource {
	r.Tags = append([]string(nil), r.Tags...)
	r.Upvoters = append([]string(nil), r.Upvoters...)
	return r
}
