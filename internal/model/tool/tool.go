package tool

// Kind separates multi-turn chat tools from single-shot tools.
type Kind string

const (
	KindChat   Kind = "chat"
	KindSingle Kind = "single"
)

// Well-known tool identifiers.
const (
	Career      = "career"
	Mood        = "mood"
	Notes       = "notes"
	Voice       = "voice"
	Scholarship = "scholarship"
)

// Tool captures the few real variation points between the student tools:
// prompt text, model choice and where history is stored.
type Tool struct {
	ID           string  `json:"id" toml:"id"`
	Name         string  `json:"name" toml:"name"`
	Tagline      string  `json:"tagline" toml:"tagline"`
	Kind         Kind    `json:"kind" toml:"kind"`
	SystemPrompt string  `json:"-" toml:"system_prompt"`
	ScopedPrompt string  `json:"-" toml:"scoped_prompt"`
	Model        string  `json:"model" toml:"model"`
	Temperature  float32 `json:"temperature" toml:"temperature"`
	Greeting     string  `json:"greeting,omitempty" toml:"greeting"`
	Collection   string  `json:"collection" toml:"collection"`
	Local        bool    `json:"local,omitempty" toml:"local"`
	Memory       bool    `json:"memory,omitempty" toml:"memory"`
	ExportLabel  string  `json:"-" toml:"export_label"`
}

// Seed provides the built-in tool catalogue.
func Seed() []Tool {
	return []Tool{
		{
			ID:           Career,
			Name:         "CareerCrack",
			Tagline:      "AI mentor for picking careers",
			Kind:         KindChat,
			SystemPrompt: "You're CareerCrack, an AI mentor helping students pick careers. Always refer to their memory and speak like a friendly guide.",
			ScopedPrompt: "You're CareerCrack, a career counselor for school and college students. Only discuss careers, courses, entrance exams, skills and study plans. If the student asks about anything else, politely steer the conversation back to their career. Always refer to their memory and speak like a friendly guide.",
			Model:        "llama3-8b-8192",
			Temperature:  0.7,
			Collection:   "chats",
			Memory:       true,
			ExportLabel:  "CareerCrack",
		},
		{
			ID:           Mood,
			Name:         "MoodMirror",
			Tagline:      "Decode the vibe",
			Kind:         KindChat,
			SystemPrompt: "You are MoodMirror by Mindmorph, a friendly Gen Z AI big sibling who reads chats and gives brutally honest but warm analysis of relationships: flirt, rizz, friendzone, manipulation, or overthinking. End with real advice.",
			Model:        "llama3-8b-8192",
			Temperature:  0.75,
			Collection:   "moodmirror",
			ExportLabel:  "MoodMirror",
		},
		{
			ID:          Notes,
			Name:        "Smart Notes AI",
			Tagline:     "Summarize and tag class notes",
			Kind:        KindChat,
			Greeting:    "Hi! Paste your class notes and I’ll summarize and tag them for you.",
			Collection:  "smartnotes",
			Local:       true,
			ExportLabel: "Smart Notes",
		},
		{
			ID:           Voice,
			Name:         "VoiceMirror",
			Tagline:      "Speak. Reflect. Improve.",
			Kind:         KindSingle,
			SystemPrompt: "You're VoiceMirror by Mindmorph: give warm, constructive speaking feedback.",
			Model:        "llama3-8b-8192",
			Temperature:  0.7,
			Collection:   "voicemirror",
		},
		{
			ID:           Scholarship,
			Name:         "ScholarshipScout",
			Tagline:      "Verified Indian scholarships",
			Kind:         KindSingle,
			SystemPrompt: "You're ScholarshipScout, an AI expert for verified Indian scholarships.",
			Model:        "llama3-70b-8192",
			Temperature:  0.7,
		},
	}
}

// ApplyPromptMode swaps in the scoped prompt for tools that define one when
// mode is "scoped".
func ApplyPromptMode(tools []Tool, mode string) []Tool {
	out := append([]Tool(nil), tools...)
	if mode != "scoped" {
		return out
	}
	for i := range out {
		if out[i].ScopedPrompt != "" {
			out[i].SystemPrompt = out[i].ScopedPrompt
		}
	}
	return out
}
