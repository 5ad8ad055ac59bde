package speech

import (
	"io"
	"time"
)

// Reactions are the emoji a user may attach to a feedback session.
var Reactions = []string{"👍", "❤️", "😂", "🤯", "🤔"}

// DefaultReaction is used when none or an unknown one is given.
const DefaultReaction = "👍"

// TranscriptionRequest carries one recorded utterance.
type TranscriptionRequest struct {
	Audio    io.Reader `json:"-"`
	Filename string    `json:"filename"`
	Format   string    `json:"format"`   // webm, wav, mp3
	Language string    `json:"language"` // en, hi
}

// TranscriptionResponse is what the transcription model returned.
type TranscriptionResponse struct {
	Text      string        `json:"text"`
	Language  string        `json:"language,omitempty"`
	Duration  time.Duration `json:"duration"`
	CreatedAt time.Time     `json:"createdAt"`
}

// FeedbackSession is one stored voice feedback record.
type FeedbackSession struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Transcript string    `json:"transcript"`
	Feedback   string    `json:"feedback"`
	Reaction   string    `json:"reaction"`
	CreatedAt  time.Time `json:"createdAt"`
}

// NormalizeReaction returns r when it is a known reaction and the default otherwise.
func NormalizeReaction(r string) string {
	for _, known := range Reactions {
		if r == known {
			return r
		}
	}
	return DefaultReaction
}
