package memory

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Defaults used when a field cannot be extracted.
const (
	DefaultName       = "friend"
	DefaultFavSubject = "design"
	DefaultGoal       = "a designer"
)

var (
	namePattern = regexp.MustCompile(`(?i)(?:I am|My name is)\s+(\w+)`)
	favPattern  = regexp.MustCompile(`(?i)(?:I like|enjoy|love)\s+([^.,\n]+)`)
	goalPattern = regexp.MustCompile(`(?i)(?:want to be(?:come)?|dream of being)\s+([^.,\n]+)`)
)

// UserMemory is the best-effort profile the career tool keeps per user.
type UserMemory struct {
	Name       string    `json:"name"`
	FavSubject string    `json:"favSubject"`
	Goal       string    `json:"goal"`
	UpdatedAt  time.Time `json:"updatedAt,omitempty"`
}

// Extract parses free text into a UserMemory. Missing fields fall back to
// defaults; the result always replaces the previous memory.
func Extract(text string) UserMemory {
	return UserMemory{
		Name:       firstGroup(namePattern, text, DefaultName),
		FavSubject: firstGroup(favPattern, text, DefaultFavSubject),
		Goal:       firstGroup(goalPattern, text, DefaultGoal),
	}
}

// WelcomeBack renders the greeting shown when a remembered user opens a new chat.
func (m UserMemory) WelcomeBack() string {
	return fmt.Sprintf("👋 Welcome back, %s! I remember you like %s and dream of becoming %s.", m.Name, m.FavSubject, m.Goal)
}

func firstGroup(re *regexp.Regexp, text, fallback string) string {
	match := re.FindStringSubmatch(text)
	if len(match) < 2 {
		return fallback
	}
	value := strings.TrimSpace(match[1])
	if value == "" {
		return fallback
	}
	return value
}
