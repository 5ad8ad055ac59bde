package chat

// Role identifies who authored a chat entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// TypingText marks the assistant entry that stands in for a pending reply.
const TypingText = "__typing__"

// Message is one rendered chat entry. Insertion order is display order.
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
	Mood string `json:"mood,omitempty"`
}

// Typing returns the placeholder shown while a reply is pending.
func Typing() Message {
	return Message{Role: RoleAssistant, Text: TypingText}
}

// IsTyping reports whether m is the pending-reply placeholder.
func (m Message) IsTyping() bool {
	return m.Role == RoleAssistant && m.Text == TypingText
}

// WithoutTyping drops placeholder entries, keeping everything else in order.
func WithoutTyping(messages []Message) []Message {
	out := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.IsTyping() {
			continue
		}
		out = append(out, m)
	}
	return out
}
