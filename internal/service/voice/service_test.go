package voice

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgex-labs/edgex/backend/internal/model/speech"
	"github.com/edgex-labs/edgex/backend/internal/model/tool"
	"github.com/edgex-labs/edgex/backend/internal/service/ai"
	"github.com/edgex-labs/edgex/backend/internal/store"
)

type fakeTranscriber struct {
	text string
	err  error
}

func (f fakeTranscriber) Transcribe(context.Context, speech.TranscriptionRequest) (speech.TranscriptionResponse, error) {
	return speech.TranscriptionResponse{Text: f.text}, f.err
}

type fakeCompleter struct {
	reply string
	err   error
	last  ai.Request
}

func (f *fakeCompleter) Complete(_ context.Context, req ai.Request) (string, error) {
	f.last = req
	return f.reply, f.err
}

func voiceTool() tool.Tool {
	t, _ := tool.NewMemoryStore(tool.Seed()).FindByID(tool.Voice)
	return t
}

func loaded(t Transcriber) *Model {
	return NewModel(func(context.Context) (Transcriber, error) { return t, nil })
}

func TestModelLoadsOnceAndFailureSticks(t *testing.T) {
	var loads int32
	m := NewModel(func(context.Context) (Transcriber, error) {
		atomic.AddInt32(&loads, 1)
		return nil, errors.New("no weights")
	})

	done, err := m.Status()
	assert.False(t, done)
	assert.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := m.Get(context.Background())
		assert.ErrorIs(t, err, ErrModelUnavailable)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))

	done, err = m.Status()
	assert.True(t, done)
	assert.Error(t, err)
}

func TestFeedbackStoresSession(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()
	completer := &fakeCompleter{reply: "Great pace, try pausing more."}
	svc := NewService(loaded(fakeTranscriber{text: "Hello everyone"}), completer, voiceTool(), repo, nil)

	got, err := svc.Feedback(ctx, "u1", Recording{Audio: strings.NewReader("audio"), Reaction: "🤯"})
	require.NoError(t, err)
	assert.Equal(t, "Hello everyone", got.Transcript)
	assert.Equal(t, "Great pace, try pausing more.", got.Feedback)
	require.NotNil(t, got.Session)
	assert.Equal(t, "🤯", got.Session.Reaction)

	assert.Equal(t, "You're VoiceMirror by Mindmorph: give warm, constructive speaking feedback.", completer.last.System)
	assert.Equal(t, "Hello everyone", completer.last.Query)

	sessions, err := svc.Sessions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	one, err := svc.Session(ctx, "u1", got.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello everyone", one.Transcript)

	_, err = svc.Session(ctx, "u2", got.Session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestFeedbackUnknownReactionDefaults(t *testing.T) {
	svc := NewService(loaded(fakeTranscriber{text: "hi"}), &fakeCompleter{reply: "ok"}, voiceTool(), store.NewMemory(), nil)

	got, err := svc.Feedback(context.Background(), "u1", Recording{Audio: strings.NewReader("a"), Reaction: "🍕"})
	require.NoError(t, err)
	assert.Equal(t, "👍", got.Session.Reaction)
}

func TestFeedbackCompletionFailure(t *testing.T) {
	repo := store.NewMemory()
	svc := NewService(loaded(fakeTranscriber{text: "hi"}), &fakeCompleter{err: errors.New("timeout")}, voiceTool(), repo, nil)

	got, err := svc.Feedback(context.Background(), "u1", Recording{Audio: strings.NewReader("a")})
	require.NoError(t, err)
	assert.True(t, got.Failed)
	assert.Equal(t, "⚠️ Could not generate feedback.", got.Feedback)
	assert.Nil(t, got.Session)

	sessions, err := repo.ListVoiceSessions(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestFeedbackEmptyReplyIsStored(t *testing.T) {
	completer := &fakeCompleter{err: ai.ErrEmptyReply}
	svc := NewService(loaded(fakeTranscriber{text: "hi"}), completer, voiceTool(), store.NewMemory(), nil)

	got, err := svc.Feedback(context.Background(), "u1", Recording{Audio: strings.NewReader("a")})
	require.NoError(t, err)
	assert.Equal(t, "⚠️ No feedback generated.", got.Feedback)
	assert.NotNil(t, got.Session)
}

func TestFeedbackTranscriptionErrors(t *testing.T) {
	svc := NewService(loaded(fakeTranscriber{err: errors.New("decode")}), &fakeCompleter{}, voiceTool(), store.NewMemory(), nil)
	_, err := svc.Feedback(context.Background(), "u1", Recording{Audio: strings.NewReader("a")})
	assert.ErrorIs(t, err, ErrTranscription)
	assert.Equal(t, "❌ Could not transcribe audio.", UserMessage(err))

	svc = NewService(NewModel(nil), &fakeCompleter{}, voiceTool(), store.NewMemory(), nil)
	_, err = svc.Feedback(context.Background(), "u1", Recording{Audio: strings.NewReader("a")})
	assert.ErrorIs(t, err, ErrModelUnavailable)
	assert.Equal(t, "❌ Whisper model not available.", UserMessage(err))
}

func TestFeedbackWithoutUserIsNotStored(t *testing.T) {
	svc := NewService(loaded(fakeTranscriber{text: "hi"}), &fakeCompleter{reply: "nice"}, voiceTool(), store.NewMemory(), nil)
	got, err := svc.Feedback(context.Background(), "", Recording{Audio: strings.NewReader("a")})
	require.NoError(t, err)
	assert.Equal(t, "nice", got.Feedback)
	assert.Nil(t, got.Session)
}
