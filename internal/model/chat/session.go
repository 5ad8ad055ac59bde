package chat

import (
	"strings"
	"time"
)

const (
	titleLimit   = 25
	untitledName = "Untitled"
)

// Session is a persisted conversation thread. ID and CreatedAt are assigned by
// the store on first save.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	ToolID    string    `json:"toolId"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TitleFor derives a session title from the first user message.
func TitleFor(messages []Message) string {
	for _, m := range messages {
		if m.Role != RoleUser {
			continue
		}
		text := strings.TrimSpace(m.Text)
		if text == "" {
			continue
		}
		runes := []rune(text)
		if len(runes) > titleLimit {
			runes = runes[:titleLimit]
		}
		return string(runes)
	}
	return untitledName
}
