package notes

import "strings"

const (
	summaryHeader = "✅ Summary:\n- "
	tagsLine      = "🏷️ Tags: [Conceptual, Important, Notes]"
	maxSentences  = 3
)

// Summarize turns raw notes into up to three bullet points plus a tag line.
// Only the first three '.'-separated pieces are considered; empty ones are skipped.
func Summarize(text string) string {
	pieces := strings.Split(text, ".")
	if len(pieces) > maxSentences {
		pieces = pieces[:maxSentences]
	}

	bullets := make([]string, 0, len(pieces))
	for _, piece := range pieces {
		if trimmed := strings.TrimSpace(piece); trimmed != "" {
			bullets = append(bullets, trimmed)
		}
	}

	return summaryHeader + strings.Join(bullets, "\n- ") + "\n\n" + tagsLine
}
