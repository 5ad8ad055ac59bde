package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgex-labs/edgex/backend/internal/model/chat"
)

func TestSubmitAddsUserAndTyping(t *testing.T) {
	conv := NewConversation("h", "career", "u1", nil)

	pending, err := conv.Submit("hello")
	require.NoError(t, err)
	assert.Empty(t, pending.History)
	assert.Equal(t, "hello", pending.Query)

	snap := conv.Snapshot()
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, StateAwaitingReply, snap.State)
	assert.Equal(t, chat.Message{Role: chat.RoleUser, Text: "hello"}, snap.Messages[0])
	assert.True(t, snap.Messages[1].IsTyping())

	final, ok := conv.OnReply(pending.Generation, "hi!", "")
	require.True(t, ok)
	require.Len(t, final.Messages, 2)
	assert.Equal(t, "hi!", final.Messages[1].Text)
	assert.Equal(t, StateIdle, final.State)
}

func TestSubmitRejectsBlankAndBusy(t *testing.T) {
	conv := NewConversation("h", "mood", "u1", nil)

	_, err := conv.Submit("")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	_, err = conv.Submit("   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Empty(t, conv.Snapshot().Messages)

	_, err = conv.Submit("first")
	require.NoError(t, err)
	_, err = conv.Submit("second")
	assert.ErrorIs(t, err, ErrBusy)
	assert.Len(t, conv.Snapshot().Messages, 2)
}

func TestOnErrorUsesFallback(t *testing.T) {
	conv := NewConversation("h", "career", "u1", nil)
	pending, err := conv.Submit("hello")
	require.NoError(t, err)

	snap, ok := conv.OnError(pending.Generation)
	require.True(t, ok)
	assert.Equal(t, FallbackReply, snap.Messages[1].Text)
	assert.Equal(t, StateIdle, snap.State)

	_, err = conv.Submit("again")
	assert.NoError(t, err)
}

func TestReplyAfterResetIsDropped(t *testing.T) {
	conv := NewConversation("h", "career", "u1", nil)
	pending, err := conv.Submit("hello")
	require.NoError(t, err)

	conv.NewSession()
	_, ok := conv.OnReply(pending.Generation, "late", "")
	assert.False(t, ok)
	assert.Empty(t, conv.Snapshot().Messages)
	assert.Equal(t, StateIdle, conv.Snapshot().State)
}

func TestLoadSessionReplacesMessages(t *testing.T) {
	conv := NewConversation("h", "mood", "u1", []chat.Message{{Role: chat.RoleAssistant, Text: "hey"}})
	stored := chat.Session{ID: "s1", Messages: []chat.Message{
		{Role: chat.RoleUser, Text: "a"},
		{Role: chat.RoleAssistant, Text: "b"},
	}}

	snap := conv.LoadSession(stored)
	assert.Equal(t, stored.Messages, snap.Messages)
	assert.Equal(t, "s1", snap.SessionID)
	action, id := conv.BeginSave(1, stored.Messages)
	assert.Equal(t, SaveUpdate, action)
	assert.Equal(t, "s1", id)
}

func TestExchangesDuringFirstCreateAreHeld(t *testing.T) {
	conv := NewConversation("h", "mood", "u1", nil)
	first := []chat.Message{{Role: chat.RoleUser, Text: "a"}, {Role: chat.RoleAssistant, Text: "b"}}
	second := append(append([]chat.Message(nil), first...), chat.Message{Role: chat.RoleUser, Text: "c"}, chat.Message{Role: chat.RoleAssistant, Text: "d"})

	action, _ := conv.BeginSave(0, first)
	require.Equal(t, SaveCreate, action)

	action, _ = conv.BeginSave(0, second)
	assert.Equal(t, SaveHeld, action)

	bound, held := conv.FinishCreate(0, "s1")
	assert.True(t, bound)
	assert.Equal(t, second, held)
	assert.Equal(t, "s1", conv.SessionID())

	action, id := conv.BeginSave(0, second)
	assert.Equal(t, SaveUpdate, action)
	assert.Equal(t, "s1", id)
}

func TestFailedFirstCreateHandsBackHeldExchange(t *testing.T) {
	conv := NewConversation("h", "mood", "u1", nil)
	later := []chat.Message{{Role: chat.RoleUser, Text: "later"}}

	action, _ := conv.BeginSave(0, nil)
	require.Equal(t, SaveCreate, action)
	conv.BeginSave(0, later)

	bound, held := conv.FinishCreate(0, "")
	assert.False(t, bound)
	assert.Equal(t, later, held)

	bound, held = conv.FinishCreate(0, "s2")
	assert.True(t, bound)
	assert.Nil(t, held)
	assert.Equal(t, "s2", conv.SessionID())
}

func TestCreateFinishingAfterResetDoesNotBind(t *testing.T) {
	conv := NewConversation("h", "mood", "u1", nil)
	action, _ := conv.BeginSave(0, nil)
	require.Equal(t, SaveCreate, action)

	conv.NewSession()
	bound, held := conv.FinishCreate(0, "s1")
	assert.False(t, bound)
	assert.Nil(t, held)
	assert.Empty(t, conv.SessionID())

	action, _ = conv.BeginSave(1, nil)
	assert.Equal(t, SaveCreate, action)
}
