package export

import (
	"fmt"
	"strings"
	"time"
)

// MarkdownExporter writes a transcript as a Markdown document.
type MarkdownExporter struct{}

func (MarkdownExporter) Export(t Transcript) ([]byte, error) {
	if len(t.Messages) == 0 {
		return nil, fmt.Errorf("session has no messages")
	}

	var sb strings.Builder
	title := t.Title
	if title == "" {
		title = "Untitled"
	}
	fmt.Fprintf(&sb, "# %s\n\n", escapeMarkdown(title))
	if t.Tool != "" {
		fmt.Fprintf(&sb, "- **Tool**: %s\n", t.Tool)
	}
	if !t.CreatedAt.IsZero() {
		fmt.Fprintf(&sb, "- **Created**: %s\n", t.CreatedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(&sb, "- **Messages**: %d\n\n---\n\n", len(t.Messages))

	for _, m := range t.Messages {
		fmt.Fprintf(&sb, "### %s\n\n", t.SpeakerLabel(m.Role))
		sb.WriteString(strings.TrimSpace(m.Text))
		sb.WriteString("\n\n")
		if m.Mood != "" {
			fmt.Fprintf(&sb, "_Mood: %s_\n\n", m.Mood)
		}
	}
	return []byte(sb.String()), nil
}

func (MarkdownExporter) FileExtension() string { return ".md" }

func (MarkdownExporter) MimeType() string { return "text/markdown; charset=utf-8" }

func escapeMarkdown(s string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		"*", `\*`,
		"_", `\_`,
		"#", `\#`,
		"`", "\\`",
		"[", `\[`,
		"]", `\]`,
	)
	return replacer.Replace(s)
}
