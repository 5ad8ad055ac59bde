package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/edgex-labs/edgex/backend/internal/analysis/notes"
	"github.com/edgex-labs/edgex/backend/internal/metrics"
	"github.com/edgex-labs/edgex/backend/internal/model/chat"
	"github.com/edgex-labs/edgex/backend/internal/model/memory"
	"github.com/edgex-labs/edgex/backend/internal/model/tool"
	"github.com/edgex-labs/edgex/backend/internal/service/ai"
	"github.com/edgex-labs/edgex/backend/internal/store"
)

var (
	ErrEmptyMessage         = errors.New("message is empty")
	ErrBusy                 = errors.New("a reply is still pending")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrToolNotFound         = errors.New("tool not found")
	ErrNotChatTool          = errors.New("tool does not support conversations")
	ErrSessionNotFound      = errors.New("session not found")
	ErrTitleRequired        = errors.New("title is required")
)

const (
	defaultCompletionTimeout = 60 * time.Second
	defaultIdleTimeout       = 2 * time.Hour
)

// Completer produces one reply for a completion request.
type Completer interface {
	Complete(ctx context.Context, req ai.Request) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, req ai.Request) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, req ai.Request) (string, error) {
	return f(ctx, req)
}

// MoodTagger labels a reply of the mood tool.
type MoodTagger interface {
	Label(ctx context.Context, history []chat.Message, userText, reply string) string
}

// Repository is the part of the document store conversations use.
type Repository interface {
	SessionWriter
	CreateSession(ctx context.Context, collection string, s *chat.Session) error
	GetSession(ctx context.Context, collection, userID, id string) (*chat.Session, error)
	ListSessions(ctx context.Context, collection, userID string) ([]chat.Session, error)
	RenameSession(ctx context.Context, collection, userID, id, title string) error
	DeleteSession(ctx context.Context, collection, userID, id string) error
	GetMemory(ctx context.Context, userID string) (*memory.UserMemory, error)
	SetMemory(ctx context.Context, userID string, m memory.UserMemory) error
}

// Options wires optional collaborators.
type Options struct {
	Mood    MoodTagger
	Writer  *Writer
	Metrics *metrics.Metrics
	Timeout time.Duration

	// IdleTimeout is how long an untouched handle survives the Run sweep.
	IdleTimeout time.Duration
}

// Outcome reports how a Send ended.
type Outcome struct {
	Snapshot Snapshot     `json:"conversation"`
	Reply    chat.Message `json:"reply"`
	Failed   bool         `json:"failed"`
	Stale    bool         `json:"stale,omitempty"`
}

// Service keeps the open conversations and runs their completions.
type Service struct {
	tools   tool.Store
	repo    Repository
	remote  Completer
	local   Completer
	mood    MoodTagger
	writer  *Writer
	metrics *metrics.Metrics
	timeout time.Duration
	idle    time.Duration
	now     func() time.Time

	mu            sync.RWMutex
	conversations map[string]*entry
}

type entry struct {
	userID   string
	tool     tool.Tool
	conv     *Conversation
	lastSeen atomic.Int64
}

func (e *entry) touch(now time.Time) {
	e.lastSeen.Store(now.UnixNano())
}

// NewService creates the conversation registry. remote serves every tool that
// is not marked local; local tools are answered by the note summarizer.
func NewService(tools tool.Store, repo Repository, remote Completer, opts Options) *Service {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultCompletionTimeout
	}
	idle := opts.IdleTimeout
	if idle <= 0 {
		idle = defaultIdleTimeout
	}
	writer := opts.Writer
	if writer == nil {
		writer = NewWriter(repo, opts.Metrics)
		writer.Start()
	}
	return &Service{
		tools:         tools,
		repo:          repo,
		remote:        remote,
		local:         CompleterFunc(summarize),
		mood:          opts.Mood,
		writer:        writer,
		metrics:       opts.Metrics,
		timeout:       timeout,
		idle:          idle,
		now:           time.Now,
		conversations: make(map[string]*entry),
	}
}

func summarize(_ context.Context, req ai.Request) (string, error) {
	return notes.Summarize(req.Query), nil
}

// Open starts a conversation with a chat tool and returns its first snapshot.
func (s *Service) Open(ctx context.Context, userID, toolID string) (Snapshot, error) {
	t, err := s.chatTool(toolID)
	if err != nil {
		return Snapshot{}, err
	}

	var seed []chat.Message
	switch {
	case t.Memory:
		if mem := s.loadMemory(ctx, userID); mem != nil {
			seed = append(seed, chat.Message{Role: chat.RoleAssistant, Text: mem.WelcomeBack()})
		}
	case t.Greeting != "":
		seed = append(seed, chat.Message{Role: chat.RoleAssistant, Text: t.Greeting})
	}

	handle := uuid.NewString()
	conv := NewConversation(handle, t.ID, userID, seed)

	e := &entry{userID: userID, tool: t, conv: conv}
	e.touch(s.now())
	s.mu.Lock()
	s.conversations[handle] = e
	s.mu.Unlock()

	slog.Info("conversation opened", "component", "chat", "tool", t.ID, "handle", handle)
	return conv.Snapshot(), nil
}

// Get returns the current snapshot.
func (s *Service) Get(userID, handle string) (Snapshot, error) {
	e, err := s.lookup(userID, handle)
	if err != nil {
		return Snapshot{}, err
	}
	return e.conv.Snapshot(), nil
}

// Send submits text, waits for the single completion and settles the
// conversation. The completion is detached from ctx so a disconnecting client
// only stops observing; it is still bounded by the completion timeout.
func (s *Service) Send(ctx context.Context, userID, handle, text string) (Outcome, error) {
	return s.SendWithHook(ctx, userID, handle, text, nil)
}

// SendWithHook is Send with a callback invoked right after the user message
// and typing placeholder are in place.
func (s *Service) SendWithHook(ctx context.Context, userID, handle, text string, onSubmitted func(Snapshot)) (Outcome, error) {
	e, err := s.lookup(userID, handle)
	if err != nil {
		return Outcome{}, err
	}

	pending, err := s.submit(e, text)
	if err != nil {
		return Outcome{Snapshot: e.conv.Snapshot()}, err
	}
	if onSubmitted != nil {
		onSubmitted(e.conv.Snapshot())
	}

	settled := false
	defer func() {
		if !settled {
			e.conv.OnError(pending.Generation)
		}
		e.touch(s.now())
	}()

	completeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	req := ai.RequestFor(e.tool, s.memoryFor(completeCtx, e))
	req.History = pending.History
	req.Query = pending.Query

	completer := s.remote
	if e.tool.Local {
		completer = s.local
	}

	var reply string
	if completer == nil {
		err = fmt.Errorf("no completer for tool %s", e.tool.ID)
	} else {
		reply, err = completer.Complete(completeCtx, req)
	}
	if err != nil {
		slog.Error("completion failed", "component", "chat", "tool", e.tool.ID, "handle", handle, "error", err)
		snap, ok := e.conv.OnError(pending.Generation)
		settled = true
		return Outcome{
			Snapshot: snap,
			Reply:    chat.Message{Role: chat.RoleAssistant, Text: FallbackReply},
			Failed:   true,
			Stale:    !ok,
		}, nil
	}

	mood := ""
	if e.tool.ID == tool.Mood && s.mood != nil {
		mood = s.mood.Label(completeCtx, pending.History, pending.Query, reply)
	}

	snap, ok := e.conv.OnReply(pending.Generation, reply, mood)
	settled = true
	out := Outcome{
		Snapshot: snap,
		Reply:    chat.Message{Role: chat.RoleAssistant, Text: reply, Mood: mood},
		Stale:    !ok,
	}
	if !ok {
		return out, nil
	}

	if e.tool.Memory {
		s.saveMemory(completeCtx, e.userID, pending.Query)
	}
	if id := s.persist(completeCtx, e, pending.Generation, snap); id != "" {
		out.Snapshot.SessionID = id
	}
	return out, nil
}

func (s *Service) submit(e *entry, text string) (Pending, error) {
	pending, err := e.conv.Submit(text)
	if err != nil {
		reason := "busy"
		if errors.Is(err, ErrEmptyMessage) {
			reason = "empty"
		}
		s.metrics.SubmitRejected(reason)
		return Pending{}, err
	}
	return pending, nil
}

// persist creates the session on its first exchange and queues updates after
// that. It returns the session id bound by a create, or "".
func (s *Service) persist(ctx context.Context, e *entry, generation uint64, snap Snapshot) string {
	if e.tool.Collection == "" || e.userID == "" {
		return ""
	}
	messages := chat.WithoutTyping(snap.Messages)

	action, sessionID := e.conv.BeginSave(generation, messages)
	if action == SaveUpdate {
		s.enqueue(e, sessionID, messages)
		return ""
	}
	if action != SaveCreate {
		return ""
	}

	for {
		id := s.create(ctx, e, messages)
		bound, held := e.conv.FinishCreate(generation, id)
		switch {
		case bound && held != nil:
			s.enqueue(e, id, held)
			return id
		case bound:
			return id
		case held == nil:
			return ""
		}
		messages = held
	}
}

func (s *Service) create(ctx context.Context, e *entry, messages []chat.Message) string {
	session := &chat.Session{
		UserID:   e.userID,
		ToolID:   e.tool.ID,
		Title:    chat.TitleFor(messages),
		Messages: messages,
	}
	err := s.repo.CreateSession(ctx, e.tool.Collection, session)
	s.metrics.SessionWrite("create", err)
	if err != nil {
		slog.Error("session create failed", "component", "chat", "tool", e.tool.ID, "error", err)
		return ""
	}
	return session.ID
}

func (s *Service) enqueue(e *entry, sessionID string, messages []chat.Message) {
	s.writer.Enqueue(Write{
		Collection: e.tool.Collection,
		UserID:     e.userID,
		SessionID:  sessionID,
		Messages:   messages,
	})
}

// Load replaces the conversation with a stored session.
func (s *Service) Load(ctx context.Context, userID, handle, sessionID string) (Snapshot, error) {
	e, err := s.lookup(userID, handle)
	if err != nil {
		return Snapshot{}, err
	}
	session, err := s.repo.GetSession(ctx, e.tool.Collection, userID, sessionID)
	if err != nil {
		return Snapshot{}, mapStoreErr(err)
	}
	return e.conv.LoadSession(*session), nil
}

// Reset clears the visible thread.
func (s *Service) Reset(userID, handle string) (Snapshot, error) {
	e, err := s.lookup(userID, handle)
	if err != nil {
		return Snapshot{}, err
	}
	return e.conv.NewSession(), nil
}

// Close forgets the conversation handle.
func (s *Service) Close(userID, handle string) error {
	if _, err := s.lookup(userID, handle); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.conversations, handle)
	s.mu.Unlock()
	return nil
}

// ListSessions returns the user's stored sessions of a tool, newest first.
func (s *Service) ListSessions(ctx context.Context, userID, toolID string) ([]chat.Session, error) {
	t, err := s.chatTool(toolID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListSessions(ctx, t.Collection, userID)
}

// GetSession loads one stored session.
func (s *Service) GetSession(ctx context.Context, userID, toolID, sessionID string) (*chat.Session, error) {
	t, err := s.chatTool(toolID)
	if err != nil {
		return nil, err
	}
	session, err := s.repo.GetSession(ctx, t.Collection, userID, sessionID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return session, nil
}

// RenameSession changes a stored session's title.
func (s *Service) RenameSession(ctx context.Context, userID, toolID, sessionID, title string) error {
	if title == "" {
		return ErrTitleRequired
	}
	t, err := s.chatTool(toolID)
	if err != nil {
		return err
	}
	return mapStoreErr(s.repo.RenameSession(ctx, t.Collection, userID, sessionID, title))
}

// DeleteSession removes a stored session. Open conversations showing it are cleared.
func (s *Service) DeleteSession(ctx context.Context, userID, toolID, sessionID string) error {
	t, err := s.chatTool(toolID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteSession(ctx, t.Collection, userID, sessionID); err != nil {
		return mapStoreErr(err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.conversations {
		if e.userID == userID && e.tool.ID == t.ID && e.conv.SessionID() == sessionID {
			e.conv.NewSession()
		}
	}
	return nil
}

// Memory returns the career memory of a user, or nil when none is stored.
func (s *Service) Memory(ctx context.Context, userID string) (*memory.UserMemory, error) {
	mem, err := s.repo.GetMemory(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return mem, err
}

// Run drops handles nobody has touched for the idle timeout until ctx is done.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.prune()
		}
	}
}

// prune skips conversations still waiting on a reply; the reply touches
// them again when it lands.
func (s *Service) prune() {
	cutoff := s.now().Add(-s.idle).UnixNano()
	s.mu.Lock()
	defer s.mu.Unlock()
	expired := 0
	for handle, e := range s.conversations {
		if e.lastSeen.Load() > cutoff || e.conv.Snapshot().State == StateAwaitingReply {
			continue
		}
		delete(s.conversations, handle)
		expired++
	}
	if expired > 0 {
		slog.Info("idle conversations expired", "component", "chat", "count", expired)
	}
}

// Shutdown drains queued session writes.
func (s *Service) Shutdown(ctx context.Context) error {
	return s.writer.Close(ctx)
}

func (s *Service) memoryFor(ctx context.Context, e *entry) *memory.UserMemory {
	if !e.tool.Memory {
		return nil
	}
	return s.loadMemory(ctx, e.userID)
}

func (s *Service) loadMemory(ctx context.Context, userID string) *memory.UserMemory {
	if userID == "" {
		return nil
	}
	mem, err := s.repo.GetMemory(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slog.Warn("memory load failed", "component", "chat", "error", err)
		}
		return nil
	}
	return mem
}

func (s *Service) saveMemory(ctx context.Context, userID, text string) {
	if userID == "" {
		return
	}
	if err := s.repo.SetMemory(ctx, userID, memory.Extract(text)); err != nil {
		slog.Error("memory save failed", "component", "chat", "error", err)
	}
}

func (s *Service) chatTool(toolID string) (tool.Tool, error) {
	t, ok := s.tools.FindByID(toolID)
	if !ok {
		return tool.Tool{}, ErrToolNotFound
	}
	if t.Kind != tool.KindChat {
		return tool.Tool{}, ErrNotChatTool
	}
	return t, nil
}

func (s *Service) lookup(userID, handle string) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.conversations[handle]
	if !ok || e.userID != userID {
		return nil, ErrConversationNotFound
	}
	e.touch(s.now())
	return e, nil
}

func mapStoreErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrSessionNotFound
	}
	return err
}
