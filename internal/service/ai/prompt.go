package ai

import (
	"fmt"
	"strings"

	"github.com/edgex-labs/edgex/backend/internal/model/memory"
	"github.com/edgex-labs/edgex/backend/internal/model/tool"
)

// BuildSystemPrompt returns the tool's system prompt, followed by what is
// remembered about the student for tools that keep memory.
func BuildSystemPrompt(t tool.Tool, mem *memory.UserMemory) string {
	base := strings.TrimSpace(t.SystemPrompt)
	if !t.Memory || mem == nil {
		return base
	}

	return fmt.Sprintf(`%s

What you remember about this student:
- Name: %s
- Favorite subject: %s
- Dream career: %s`,
		base, mem.Name, mem.FavSubject, mem.Goal)
}

// RequestFor fills the tool-specific part of a completion request.
func RequestFor(t tool.Tool, mem *memory.UserMemory) Request {
	return Request{
		Tool:        t.ID,
		Model:       t.Model,
		Temperature: t.Temperature,
		System:      BuildSystemPrompt(t, mem),
	}
}
