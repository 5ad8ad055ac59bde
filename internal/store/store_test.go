package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgex-labs/edgex/backend/internal/model/chat"
	"github.com/edgex-labs/edgex/backend/internal/model/memory"
	"github.com/edgex-labs/edgex/backend/internal/model/resource"
	"github.com/edgex-labs/edgex/backend/internal/model/speech"
	"github.com/edgex-labs/edgex/backend/internal/model/user"
)

type backend struct {
	name string
	open func(t *testing.T) Repository
}

func backends() []backend {
	return []backend{
		{name: "memory", open: func(t *testing.T) Repository { return NewMemory() }},
		{name: "sqlite", open: func(t *testing.T) Repository {
			s, err := NewSQLite(filepath.Join(t.TempDir(), "edgex.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		}},
	}
}

func forEachBackend(t *testing.T, fn func(t *testing.T, repo Repository)) {
	for _, b := range backends() {
		b := b
		t.Run(b.name, func(t *testing.T) {
			fn(t, b.open(t))
		})
	}
}

func TestUsers(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		u := &user.User{FullName: "Asha Roy", Email: "Asha@Example.com", PasswordHash: "hash"}
		require.NoError(t, repo.CreateUser(ctx, u))
		require.NotEmpty(t, u.ID)

		dup := &user.User{FullName: "Other", Email: "asha@example.com", PasswordHash: "x"}
		assert.ErrorIs(t, repo.CreateUser(ctx, dup), ErrConflict)

		got, err := repo.GetUserByEmail(ctx, "ASHA@example.com")
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
		assert.Equal(t, "Asha Roy", got.FullName)

		_, err = repo.GetUser(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestSessionRoundTrip(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		messages := []chat.Message{
			{Role: chat.RoleUser, Text: "hello"},
			{Role: chat.RoleAssistant, Text: "hi there", Mood: "wholesome"},
		}
		session := &chat.Session{UserID: "u1", ToolID: "career", Title: "hello", Messages: messages}
		require.NoError(t, repo.CreateSession(ctx, "chats", session))
		require.NotEmpty(t, session.ID)
		require.False(t, session.CreatedAt.IsZero())

		loaded, err := repo.GetSession(ctx, "chats", "u1", session.ID)
		require.NoError(t, err)
		assert.Equal(t, messages, loaded.Messages)

		_, err = repo.GetSession(ctx, "moodmirror", "u1", session.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = repo.GetSession(ctx, "chats", "u2", session.ID)
		assert.ErrorIs(t, err, ErrNotFound)

		updated := append(messages, chat.Message{Role: chat.RoleUser, Text: "more"})
		require.NoError(t, repo.UpdateSessionMessages(ctx, "chats", "u1", session.ID, updated))
		require.NoError(t, repo.RenameSession(ctx, "chats", "u1", session.ID, "Renamed"))

		loaded, err = repo.GetSession(ctx, "chats", "u1", session.ID)
		require.NoError(t, err)
		assert.Len(t, loaded.Messages, 3)
		assert.Equal(t, "Renamed", loaded.Title)

		require.NoError(t, repo.DeleteSession(ctx, "chats", "u1", session.ID))
		assert.ErrorIs(t, repo.DeleteSession(ctx, "chats", "u1", session.ID), ErrNotFound)
		assert.ErrorIs(t, repo.UpdateSessionMessages(ctx, "chats", "u1", session.ID, nil), ErrNotFound)
	})
}

func TestListSessionsNewestFirst(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		var ids []string
		for _, title := range []string{"first", "second", "third"} {
			s := &chat.Session{UserID: "u1", ToolID: "mood", Title: title}
			require.NoError(t, repo.CreateSession(ctx, "moodmirror", s))
			ids = append(ids, s.ID)
		}
		require.NoError(t, repo.CreateSession(ctx, "moodmirror", &chat.Session{UserID: "u2", Title: "other"}))

		list, err := repo.ListSessions(ctx, "moodmirror", "u1")
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{list[0].ID, list[1].ID, list[2].ID})
	})
}

func TestMemoryIsOverwritten(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		_, err := repo.GetMemory(ctx, "u1")
		assert.ErrorIs(t, err, ErrNotFound)

		require.NoError(t, repo.SetMemory(ctx, "u1", memory.UserMemory{Name: "Rahul", FavSubject: "robotics", Goal: "an engineer"}))
		require.NoError(t, repo.SetMemory(ctx, "u1", memory.UserMemory{Name: "friend", FavSubject: "design", Goal: "a designer"}))

		got, err := repo.GetMemory(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "friend", got.Name)
		assert.Equal(t, "a designer", got.Goal)
	})
}

func TestResources(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		r := &resource.Resource{
			Title: "Go by Example", URL: "https://gobyexample.com", Tags: []string{"go"},
			Domain: "gobyexample.com", PostedBy: resource.Poster{ID: "u1", Name: "Asha", Avatar: "AS"},
		}
		require.NoError(t, repo.CreateResource(ctx, r))
		second := &resource.Resource{Title: "SQL Zoo", URL: "https://sqlzoo.net", Tags: []string{"sql"}, Domain: "sqlzoo.net"}
		require.NoError(t, repo.CreateResource(ctx, second))

		r.Upvotes = 1
		r.Upvoters = []string{"u2"}
		require.NoError(t, repo.UpdateResource(ctx, r))

		got, err := repo.GetResource(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.Upvotes)
		assert.Equal(t, []string{"u2"}, got.Upvoters)
		assert.Equal(t, "Asha", got.PostedBy.Name)

		list, err := repo.ListResources(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, second.ID, list[0].ID)

		require.NoError(t, repo.DeleteResource(ctx, r.ID))
		_, err = repo.GetResource(ctx, r.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestVoiceSessions(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		v := &speech.FeedbackSession{UserID: "u1", Transcript: "hello", Feedback: "nice", Reaction: "👍"}
		require.NoError(t, repo.CreateVoiceSession(ctx, v))

		got, err := repo.GetVoiceSession(ctx, "u1", v.ID)
		require.NoError(t, err)
		assert.Equal(t, "nice", got.Feedback)

		_, err = repo.GetVoiceSession(ctx, "u2", v.ID)
		assert.ErrorIs(t, err, ErrNotFound)

		list, err := repo.ListVoiceSessions(ctx, "u1")
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})
}

func TestObservedWatchSessions(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo := NewObserved(NewMemory())
	updates, err := repo.WatchSessions(ctx, "chats", "u1")
	require.NoError(t, err)

	initial := <-updates
	assert.Empty(t, initial)

	s := &chat.Session{UserID: "u1", Title: "first"}
	require.NoError(t, repo.CreateSession(ctx, "chats", s))

	select {
	case snap := <-updates:
		require.Len(t, snap, 1)
		assert.Equal(t, s.ID, snap[0].ID)
	case <-time.After(time.Second):
		t.Fatal("expected snapshot after create")
	}

	require.NoError(t, repo.RenameSession(ctx, "chats", "u1", s.ID, "renamed"))
	select {
	case snap := <-updates:
		require.Len(t, snap, 1)
		assert.Equal(t, "renamed", snap[0].Title)
	case <-time.After(time.Second):
		t.Fatal("expected snapshot after rename")
	}

	cancel()
	require.Eventually(t, func() bool {
		_, open := <-updates
		return !open
	}, time.Second, 10*time.Millisecond)
}

func TestObservedWatchResources(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo := NewObserved(NewMemory())
	updates, err := repo.WatchResources(ctx)
	require.NoError(t, err)
	<-updates

	require.NoError(t, repo.CreateResource(ctx, &resource.Resource{Title: "Effective Go", URL: "https://go.dev"}))
	select {
	case snap := <-updates:
		assert.Len(t, snap, 1)
	case <-time.After(time.Second):
		t.Fatal("expected snapshot after create")
	}
}

// laggingRepo stalls one armed ListSessions after it has read the list, the
// way a slow snapshot query returns old data late.
type laggingRepo struct {
	Repository
	mu      sync.Mutex
	armed   bool
	stalled chan struct{}
	release chan struct{}
}

func (r *laggingRepo) ListSessions(ctx context.Context, collection, userID string) ([]chat.Session, error) {
	list, err := r.Repository.ListSessions(ctx, collection, userID)
	r.mu.Lock()
	stall := r.armed
	r.armed = false
	r.mu.Unlock()
	if stall {
		close(r.stalled)
		<-r.release
	}
	return list, err
}

func TestObservedSnapshotsArriveInWriteOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lagging := &laggingRepo{Repository: NewMemory(), stalled: make(chan struct{}), release: make(chan struct{})}
	repo := NewObserved(lagging)
	updates, err := repo.WatchSessions(ctx, "chats", "u1")
	require.NoError(t, err)
	assert.Empty(t, <-updates)

	lagging.mu.Lock()
	lagging.armed = true
	lagging.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		assert.NoError(t, repo.CreateSession(ctx, "chats", &chat.Session{UserID: "u1", Title: "first"}))
	}()
	<-lagging.stalled
	go func() {
		defer wg.Done()
		assert.NoError(t, repo.CreateSession(ctx, "chats", &chat.Session{UserID: "u1", Title: "second"}))
	}()

	time.Sleep(50 * time.Millisecond)
	close(lagging.release)
	wg.Wait()

	var last []chat.Session
	timeout := time.After(300 * time.Millisecond)
	for done := false; !done; {
		select {
		case last = <-updates:
		case <-timeout:
			done = true
		}
	}
	assert.Len(t, last, 2, "the newest snapshot must be delivered last")
}

func TestObservedWatchSeesWriteDuringSubscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo := NewObserved(NewMemory())
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, repo.CreateSession(ctx, "chats", &chat.Session{UserID: "u1", Title: "note"}))
		}()
	}
	updates, err := repo.WatchSessions(ctx, "chats", "u1")
	require.NoError(t, err)
	wg.Wait()

	require.Eventually(t, func() bool {
		select {
		case snap := <-updates:
			return len(snap) == 20
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}
