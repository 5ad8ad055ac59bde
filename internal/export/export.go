// Package export renders stored sessions and reports as downloadable files.
package export

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/edgex-labs/edgex/backend/internal/model/chat"
)

// ErrUnsupportedFormat is returned by ForFormat for unknown formats.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// Exporter converts a transcript to one file format.
type Exporter interface {
	Export(t Transcript) ([]byte, error)
	FileExtension() string
	MimeType() string
}

// Transcript is a stored chat session prepared for export.
type Transcript struct {
	Title     string         `json:"title"`
	Tool      string         `json:"tool"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	Messages  []chat.Message `json:"messages"`
}

// FromSession builds a transcript; label names the assistant, e.g. "MoodMirror".
func FromSession(s chat.Session, label string) Transcript {
	return Transcript{
		Title:     s.Title,
		Tool:      label,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
		Messages:  chat.WithoutTyping(s.Messages),
	}
}

// ForFormat picks an exporter by name: md, markdown, json or pdf.
func ForFormat(format string) (Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "md", "markdown":
		return MarkdownExporter{}, nil
	case "json":
		return JSONExporter{}, nil
	case "pdf":
		return PDFExporter{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// SpeakerLabel returns the prefix used for a message in exports.
func (t Transcript) SpeakerLabel(role chat.Role) string {
	if role == chat.RoleUser {
		return "You"
	}
	if t.Tool == "" {
		return "Assistant"
	}
	return t.Tool
}

// Filename builds a download name such as "MoodMirror_he_said_hi.pdf".
func Filename(prefix, title, ext string) string {
	name := sanitizeFilename(title)
	if prefix != "" {
		name = sanitizeFilename(prefix) + "_" + name
	}
	return name + ext
}

func sanitizeFilename(s string) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) > 50 {
		runes = runes[:50]
	}

	var b strings.Builder
	for _, r := range runes {
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			b.WriteRune('_')
		case strings.ContainsRune(`/\:*?"<>|`, r), r < 32, r == 127:
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "session"
	}
	return b.String()
}
