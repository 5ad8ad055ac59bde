package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/edgex-labs/edgex/backend/internal/metrics"
	"github.com/edgex-labs/edgex/backend/internal/model/speech"
	"github.com/edgex-labs/edgex/backend/internal/model/tool"
	"github.com/edgex-labs/edgex/backend/internal/service/ai"
	"github.com/edgex-labs/edgex/backend/internal/store"
)

// User-facing outcomes of a recording.
const (
	MsgModelUnavailable = "❌ Whisper model not available."
	MsgTranscribeFailed = "❌ Could not transcribe audio."
	MsgFeedbackFailed   = "⚠️ Could not generate feedback."
	MsgNoFeedback       = "⚠️ No feedback generated."
)

var (
	ErrModelUnavailable = errors.New("transcription model unavailable")
	ErrTranscription    = errors.New("transcription failed")
	ErrSessionNotFound  = errors.New("voice session not found")
)

// Completer produces one reply for a completion request.
type Completer interface {
	Complete(ctx context.Context, req ai.Request) (string, error)
}

// Repository stores feedback sessions.
type Repository interface {
	CreateVoiceSession(ctx context.Context, s *speech.FeedbackSession) error
	GetVoiceSession(ctx context.Context, userID, id string) (*speech.FeedbackSession, error)
	ListVoiceSessions(ctx context.Context, userID string) ([]speech.FeedbackSession, error)
}

// Recording is one uploaded utterance.
type Recording struct {
	Audio    io.Reader
	Filename string
	Format   string
	Language string
	Reaction string
}

// Result is the feedback shown after a recording. Session is nil when nothing
// was stored.
type Result struct {
	Transcript string                  `json:"transcript"`
	Feedback   string                  `json:"feedback"`
	Failed     bool                    `json:"failed"`
	Session    *speech.FeedbackSession `json:"session,omitempty"`
}

// Service runs transcribe, feedback and save for VoiceMirror.
type Service struct {
	model     *Model
	completer Completer
	tool      tool.Tool
	repo      Repository
	metrics   *metrics.Metrics
}

func NewService(model *Model, completer Completer, t tool.Tool, repo Repository, m *metrics.Metrics) *Service {
	return &Service{model: model, completer: completer, tool: t, repo: repo, metrics: m}
}

// Transcribe converts a recording to text. Errors wrap ErrModelUnavailable or
// ErrTranscription.
func (s *Service) Transcribe(ctx context.Context, rec Recording) (speech.TranscriptionResponse, error) {
	transcriber, err := s.model.Get(ctx)
	if err != nil {
		s.metrics.Transcription(err)
		return speech.TranscriptionResponse{}, err
	}

	resp, err := transcriber.Transcribe(ctx, speech.TranscriptionRequest{
		Audio:    rec.Audio,
		Filename: rec.Filename,
		Format:   rec.Format,
		Language: rec.Language,
	})
	if err == nil && strings.TrimSpace(resp.Text) == "" {
		err = errors.New("empty transcript")
	}
	s.metrics.Transcription(err)
	if err != nil {
		slog.Error("transcription failed", "component", "voice", "error", err)
		return speech.TranscriptionResponse{}, fmt.Errorf("%w: %v", ErrTranscription, err)
	}
	return resp, nil
}

// Feedback transcribes a recording, asks for speaking feedback and stores the
// session for signed-in users. A failed completion is reported in the result
// and not stored.
func (s *Service) Feedback(ctx context.Context, userID string, rec Recording) (Result, error) {
	transcript, err := s.Transcribe(ctx, rec)
	if err != nil {
		return Result{}, err
	}
	return s.FeedbackForText(ctx, userID, transcript.Text, rec.Reaction)
}

// FeedbackForText is Feedback for an existing transcript.
func (s *Service) FeedbackForText(ctx context.Context, userID, transcript, reaction string) (Result, error) {
	req := ai.RequestFor(s.tool, nil)
	req.Query = transcript

	result := Result{Transcript: transcript}
	reply, err := s.complete(ctx, req)
	switch {
	case errors.Is(err, ai.ErrEmptyReply):
		reply = MsgNoFeedback
	case err != nil:
		slog.Error("voice feedback failed", "component", "voice", "error", err)
		result.Feedback = MsgFeedbackFailed
		result.Failed = true
		return result, nil
	}
	result.Feedback = reply

	if userID == "" || s.repo == nil {
		return result, nil
	}
	session := &speech.FeedbackSession{
		UserID:     userID,
		Transcript: transcript,
		Feedback:   reply,
		Reaction:   speech.NormalizeReaction(reaction),
	}
	if err := s.repo.CreateVoiceSession(ctx, session); err != nil {
		slog.Error("voice session save failed", "component", "voice", "error", err)
		return result, nil
	}
	result.Session = session
	return result, nil
}

func (s *Service) complete(ctx context.Context, req ai.Request) (string, error) {
	if s.completer == nil {
		return "", errors.New("no completer configured")
	}
	return s.completer.Complete(ctx, req)
}

// Sessions lists a user's stored sessions, newest first.
func (s *Service) Sessions(ctx context.Context, userID string) ([]speech.FeedbackSession, error) {
	return s.repo.ListVoiceSessions(ctx, userID)
}

// Session loads one stored session.
func (s *Service) Session(ctx context.Context, userID, id string) (*speech.FeedbackSession, error) {
	session, err := s.repo.GetVoiceSession(ctx, userID, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	return session, err
}

// Health reports the transcription model state without triggering a load.
func (s *Service) Health() (loaded bool, err error) {
	return s.model.Status()
}

// UserMessage maps a Feedback error to the text shown to the student.
func UserMessage(err error) string {
	if errors.Is(err, ErrModelUnavailable) {
		return MsgModelUnavailable
	}
	return MsgTranscribeFailed
}
