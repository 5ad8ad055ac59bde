package tool

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFileOverridesByID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tools.toml")
	content := `
[[tools]]
id = "mood"
model = "llama-3.1-8b-instant"
temperature = 0.5

[[tools]]
id = "study-buddy"
name = "Study Buddy"
system_prompt = "You help students plan revision."
collection = "studybuddy"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	tools, err := LoadFile(path, Seed())
	require.NoError(t, err)

	store := NewMemoryStore(tools)
	mood, ok := store.FindByID(Mood)
	require.True(t, ok)
	assert.Equal(t, "llama-3.1-8b-instant", mood.Model)
	assert.InDelta(t, 0.5, mood.Temperature, 0.0001)
	assert.Equal(t, "moodmirror", mood.Collection)
	assert.NotEmpty(t, mood.SystemPrompt)

	buddy, ok := store.FindByID("study-buddy")
	require.True(t, ok)
	assert.Equal(t, KindChat, buddy.Kind)
	assert.Equal(t, "Study Buddy", buddy.Name)
}

func TestMergeRejectsMissingID(t *testing.T) {
	_, err := Merge(Seed(), []Tool{{Name: "nameless"}})
	require.Error(t, err)
}

func TestApplyPromptModeScoped(t *testing.T) {
	tools := ApplyPromptMode(Seed(), "scoped")
	store := NewMemoryStore(tools)

	career, _ := store.FindByID(Career)
	assert.Equal(t, career.ScopedPrompt, career.SystemPrompt)

	mood, _ := store.FindByID(Mood)
	assert.Contains(t, mood.SystemPrompt, "MoodMirror")

	broad := NewMemoryStore(ApplyPromptMode(Seed(), "broad"))
	career, _ = broad.FindByID(Career)
	assert.Contains(t, career.SystemPrompt, "AI mentor helping students pick careers")
}

func TestListKind(t *testing.T) {
	store := NewMemoryStore(Seed())
	chats := store.ListKind(KindChat)
	ids := make([]string, 0, len(chats))
	for _, c := range chats {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{Career, Mood, Notes}, ids)
}
