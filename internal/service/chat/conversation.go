package chat

import (
	"strings"
	"sync"

	"github.com/edgex-labs/edgex/backend/internal/model/chat"
)

// FallbackReply replaces the typing placeholder when a completion fails.
const FallbackReply = "⚠️ Something went wrong. Try again!"

// State of a conversation.
type State string

const (
	StateIdle          State = "idle"
	StateAwaitingReply State = "awaiting_reply"
)

// Snapshot is a copy of a conversation for rendering.
type Snapshot struct {
	Handle    string         `json:"handle"`
	ToolID    string         `json:"toolId"`
	State     State          `json:"state"`
	SessionID string         `json:"sessionId,omitempty"`
	Messages  []chat.Message `json:"messages"`
}

// Pending is what a completion needs after a successful Submit.
type Pending struct {
	Generation uint64
	Query      string
	History    []chat.Message
}

// Conversation is the state machine behind one open chat. At most one reply
// is outstanding; loading or resetting bumps the generation so late replies
// for the previous thread are dropped.
type Conversation struct {
	mu         sync.Mutex
	handle     string
	toolID     string
	userID     string
	state      State
	messages   []chat.Message
	sessionID  string
	generation uint64

	// creating is set while the first save of this generation is in flight;
	// held keeps the newest exchange settled meanwhile.
	creating bool
	held     []chat.Message
}

// SaveAction tells the caller how to store a settled exchange.
type SaveAction int

const (
	SaveSkip SaveAction = iota
	SaveCreate
	SaveUpdate
	SaveHeld
)

// NewConversation starts idle with the given seed messages.
func NewConversation(handle, toolID, userID string, seed []chat.Message) *Conversation {
	return &Conversation{
		handle:   handle,
		toolID:   toolID,
		userID:   userID,
		state:    StateIdle,
		messages: append([]chat.Message(nil), seed...),
	}
}

// Submit appends the user message and the typing placeholder. Blank text and
// submits while a reply is pending are rejected without touching the list.
func (c *Conversation) Submit(text string) (Pending, error) {
	if strings.TrimSpace(text) == "" {
		return Pending{}, ErrEmptyMessage
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateAwaitingReply {
		return Pending{}, ErrBusy
	}

	history := chat.WithoutTyping(c.messages)
	c.messages = append(c.messages, chat.Message{Role: chat.RoleUser, Text: text}, chat.Typing())
	c.state = StateAwaitingReply
	return Pending{Generation: c.generation, Query: text, History: history}, nil
}

// OnReply swaps the placeholder for the assistant reply. It reports false when
// the reply belongs to an older generation and was dropped.
func (c *Conversation) OnReply(generation uint64, text, mood string) (Snapshot, bool) {
	return c.settle(generation, chat.Message{Role: chat.RoleAssistant, Text: text, Mood: mood})
}

// OnError swaps the placeholder for FallbackReply.
func (c *Conversation) OnError(generation uint64) (Snapshot, bool) {
	return c.settle(generation, chat.Message{Role: chat.RoleAssistant, Text: FallbackReply})
}

func (c *Conversation) settle(generation uint64, reply chat.Message) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if generation != c.generation || c.state != StateAwaitingReply {
		return c.snapshotLocked(), false
	}

	replaced := false
	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].IsTyping() {
			c.messages[i] = reply
			replaced = true
			break
		}
	}
	if !replaced {
		c.messages = append(c.messages, reply)
	}
	c.state = StateIdle
	return c.snapshotLocked(), true
}

// LoadSession replaces the visible thread with a stored session.
func (c *Conversation) LoadSession(session chat.Session) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.messages = chat.WithoutTyping(session.Messages)
	c.sessionID = session.ID
	c.state = StateIdle
	c.creating, c.held = false, nil
	return c.snapshotLocked()
}

// NewSession clears the visible thread. Stored sessions are untouched.
func (c *Conversation) NewSession() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.messages = nil
	c.sessionID = ""
	c.state = StateIdle
	c.creating, c.held = false, nil
	return c.snapshotLocked()
}

// BeginSave decides how the exchange settled in generation is stored. The
// first save of a thread is a create; while it is in flight later exchanges
// are held and handed back by FinishCreate.
func (c *Conversation) BeginSave(generation uint64, messages []chat.Message) (SaveAction, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case generation != c.generation:
		return SaveSkip, ""
	case c.sessionID != "":
		return SaveUpdate, c.sessionID
	case c.creating:
		c.held = append([]chat.Message(nil), messages...)
		return SaveHeld, ""
	default:
		c.creating = true
		return SaveCreate, ""
	}
}

// FinishCreate ends the first save. On success the id is bound and true is
// returned. held is the newest exchange settled while the create was in
// flight; after a failed create it must be created in its place.
func (c *Conversation) FinishCreate(generation uint64, sessionID string) (bool, []chat.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if generation != c.generation || !c.creating {
		return false, nil
	}
	held := c.held
	c.held = nil
	if sessionID == "" {
		c.creating = held != nil
		return false, held
	}
	c.creating = false
	c.sessionID = sessionID
	return true, held
}

// SessionID returns the selected stored session, if any.
func (c *Conversation) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Snapshot copies the current state.
func (c *Conversation) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Conversation) snapshotLocked() Snapshot {
	messages := make([]chat.Message, len(c.messages))
	copy(messages, c.messages)
	return Snapshot{
		Handle:    c.handle,
		ToolID:    c.toolID,
		State:     c.state,
		SessionID: c.sessionID,
		Messages:  messages,
	}
}
