package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "AI_API_KEY", "AI_MODEL", "CAREER_PROMPT_MODE", "STORE_DRIVER", "VOICE_ENDPOINT", "VAULT_SEARCH_DEBOUNCE"} {
		t.Setenv(key, "")
	}
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "llama3-8b-8192", cfg.AI.Model)
	assert.Equal(t, PromptModeBroad, cfg.AI.CareerPromptMode)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, 300*time.Millisecond, cfg.Vault.SearchDebounce)
	assert.False(t, cfg.AI.Enabled())
	assert.False(t, cfg.Voice.Enabled())
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.False(t, cfg.Auth.EphemeralSecret)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "127.0.0.1:9000")
	t.Setenv("AI_API_KEY", "key")
	t.Setenv("AI_TEMPERATURE", "0.4")
	t.Setenv("CAREER_PROMPT_MODE", "Scoped")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("ALLOWED_ORIGINS", "https://edgex.app, https://www.edgex.app ,")
	t.Setenv("AI_MOOD_HISTORY_LIMIT", "0")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.True(t, cfg.AI.Enabled())
	require.NotNil(t, cfg.AI.Temperature)
	assert.InDelta(t, 0.4, *cfg.AI.Temperature, 1e-9)
	assert.Equal(t, PromptModeScoped, cfg.AI.CareerPromptMode)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, []string{"https://edgex.app", "https://www.edgex.app"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 1, cfg.AI.MoodHistoryLimit)
	assert.True(t, cfg.Auth.EphemeralSecret)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"PORT":                "80 80",
		"CAREER_PROMPT_MODE":  "chatty",
		"STORE_DRIVER":        "postgres",
		"AI_TIMEOUT":          "soon",
		"AI_MOOD_LLM_ENABLED": "maybe",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "s3cret")
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadRequiresJWTSecretForPersistentStore(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("JWT_SECRET", "  ")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoadGeneratesSecretForMemoryStore(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "")

	first, err := Load()
	require.NoError(t, err)
	second, err := Load()
	require.NoError(t, err)

	assert.True(t, first.Auth.EphemeralSecret)
	assert.Len(t, first.Auth.JWTSecret, 64)
	assert.NotEqual(t, first.Auth.JWTSecret, second.Auth.JWTSecret)
	assert.NotContains(t, first.Auth.JWTSecret, "devJwtSecret")
}
