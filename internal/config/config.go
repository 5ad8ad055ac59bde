package config

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config aggregates every service setting.
type Config struct {
	Server ServerConfig
	AI     AIConfig
	Store  StoreConfig
	Auth   AuthConfig
	Voice  VoiceConfig
	Tools  ToolsConfig
	Vault  VaultConfig
	Log    LogConfig
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	st, err := loadStoreConfig()
	if err != nil {
		return nil, err
	}

	authCfg, err := loadAuthConfig(st.Driver)
	if err != nil {
		return nil, err
	}

	voice, err := loadVoiceConfig()
	if err != nil {
		return nil, err
	}

	vault, err := loadVaultConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: server,
		AI:     ai,
		Store:  st,
		Auth:   authCfg,
		Voice:  voice,
		Tools:  ToolsConfig{CataloguePath: strings.TrimSpace(os.Getenv("TOOLS_FILE"))},
		Vault:  vault,
		Log:    loadLogConfig(),
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
	RequestRate    float64
	RequestBurst   int
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	var addr string
	switch {
	case strings.Contains(port, ":"):
		// ":8080" and "127.0.0.1:8080" are taken as-is.
		addr = port
	case strings.Contains(port, " "):
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	default:
		addr = ":" + port
	}

	rps, err := parseFloatEnv("HTTP_RATE_LIMIT", 20)
	if err != nil {
		return ServerConfig{}, err
	}
	burst, err := parseIntEnv("HTTP_RATE_BURST", 40)
	if err != nil {
		return ServerConfig{}, err
	}

	return ServerConfig{
		Addr:           addr,
		AllowedOrigins: splitList(getEnvOrDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")),
		RequestRate:    rps,
		RequestBurst:   burst,
	}, nil
}

// Career prompt modes.
const (
	PromptModeBroad  = "broad"
	PromptModeScoped = "scoped"
)

// AIConfig describes the completion API.
type AIConfig struct {
	APIKey           string
	AccessKey        string
	SecretKey        string
	Model            string
	BaseURL          string
	Region           string
	Temperature      *float64
	TopP             *float64
	MaxTokens        *int
	Timeout          time.Duration
	RateLimit        float64
	RateBurst        int
	MoodLLMEnabled   bool
	MoodHistoryLimit int
	CareerPromptMode string
}

// Enabled reports whether credentials and a default model are present.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel builds the chat model client from the configuration.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("completion credentials missing: set AI_API_KEY (or AI_ACCESS_KEY + AI_SECRET_KEY) and AI_MODEL")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	var timeout *time.Duration
	if c.Timeout > 0 {
		val := c.Timeout
		timeout = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
		Timeout:     timeout,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("AI_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("AI_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("AI_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	timeout, err := parseDurationEnv("AI_TIMEOUT", 60*time.Second)
	if err != nil {
		return AIConfig{}, err
	}

	rateLimit, err := parseFloatEnv("AI_RATE_LIMIT", 2)
	if err != nil {
		return AIConfig{}, err
	}

	rateBurst, err := parseIntEnv("AI_RATE_BURST", 5)
	if err != nil {
		return AIConfig{}, err
	}

	moodEnabled, err := parseBoolEnv("AI_MOOD_LLM_ENABLED", false)
	if err != nil {
		return AIConfig{}, err
	}

	moodHistory := 6
	if historyOverride, err := parseOptionalIntEnv("AI_MOOD_HISTORY_LIMIT"); err != nil {
		return AIConfig{}, err
	} else if historyOverride != nil {
		if *historyOverride < 1 {
			moodHistory = 1
		} else {
			moodHistory = *historyOverride
		}
	}

	mode := strings.ToLower(getEnvOrDefault("CAREER_PROMPT_MODE", PromptModeBroad))
	if mode != PromptModeBroad && mode != PromptModeScoped {
		return AIConfig{}, fmt.Errorf("invalid CAREER_PROMPT_MODE value %q: want %s or %s", mode, PromptModeBroad, PromptModeScoped)
	}

	return AIConfig{
		APIKey:           strings.TrimSpace(os.Getenv("AI_API_KEY")),
		AccessKey:        strings.TrimSpace(os.Getenv("AI_ACCESS_KEY")),
		SecretKey:        strings.TrimSpace(os.Getenv("AI_SECRET_KEY")),
		Model:            getEnvOrDefault("AI_MODEL", "llama3-8b-8192"),
		BaseURL:          getEnvOrDefault("AI_BASE_URL", "https://api.groq.com/openai/v1"),
		Region:           getEnvOrDefault("AI_REGION", ""),
		Temperature:      temperature,
		TopP:             topP,
		MaxTokens:        maxTokens,
		Timeout:          timeout,
		RateLimit:        rateLimit,
		RateBurst:        rateBurst,
		MoodLLMEnabled:   moodEnabled,
		MoodHistoryLimit: moodHistory,
		CareerPromptMode: mode,
	}, nil
}

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// StoreConfig selects the document store backend.
type StoreConfig struct {
	Driver string
	Path   string
}

func loadStoreConfig() (StoreConfig, error) {
	driver := strings.ToLower(getEnvOrDefault("STORE_DRIVER", DriverSQLite))
	if driver != DriverSQLite && driver != DriverMemory {
		return StoreConfig{}, fmt.Errorf("invalid STORE_DRIVER value %q", driver)
	}
	return StoreConfig{
		Driver: driver,
		Path:   getEnvOrDefault("STORE_PATH", "data/edgex.db"),
	}, nil
}

// AuthConfig tunes identity tokens and password hashing.
type AuthConfig struct {
	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int

	// EphemeralSecret is set when JWTSecret was generated for this process
	// only; tokens stop verifying after a restart.
	EphemeralSecret bool
}

func loadAuthConfig(driver string) (AuthConfig, error) {
	ttl, err := parseDurationEnv("AUTH_TOKEN_TTL", 24*time.Hour)
	if err != nil {
		return AuthConfig{}, err
	}
	cost, err := parseIntEnv("AUTH_BCRYPT_COST", 10)
	if err != nil {
		return AuthConfig{}, err
	}

	cfg := AuthConfig{
		JWTSecret:  strings.TrimSpace(os.Getenv("JWT_SECRET")),
		TokenTTL:   ttl,
		BcryptCost: cost,
	}
	if cfg.JWTSecret != "" {
		return cfg, nil
	}
	// Accounts in a persistent store outlive the process, so their tokens
	// need a secret that does too.
	if driver != DriverMemory {
		return AuthConfig{}, fmt.Errorf("JWT_SECRET is required when STORE_DRIVER is %q", driver)
	}
	secret, err := randomSecret()
	if err != nil {
		return AuthConfig{}, err
	}
	cfg.JWTSecret = secret
	cfg.EphemeralSecret = true
	return cfg, nil
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate JWT secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// VoiceConfig points at a Whisper-compatible transcription endpoint.
type VoiceConfig struct {
	Endpoint string
	APIKey   string
	Model    string
	Language string
	Timeout  time.Duration
}

// Enabled reports whether a transcription endpoint is configured.
func (c VoiceConfig) Enabled() bool {
	return c.Endpoint != ""
}

func loadVoiceConfig() (VoiceConfig, error) {
	timeout, err := parseDurationEnv("VOICE_TIMEOUT", 30*time.Second)
	if err != nil {
		return VoiceConfig{}, err
	}

	apiKey := strings.TrimSpace(os.Getenv("VOICE_API_KEY"))
	if apiKey == "" {
		apiKey = strings.TrimSpace(os.Getenv("AI_API_KEY"))
	}

	return VoiceConfig{
		Endpoint: strings.TrimSpace(os.Getenv("VOICE_ENDPOINT")),
		APIKey:   apiKey,
		Model:    getEnvOrDefault("VOICE_MODEL", "whisper-tiny.en"),
		Language: getEnvOrDefault("VOICE_LANGUAGE", "en"),
		Timeout:  timeout,
	}, nil
}

// ToolsConfig locates the optional tool catalogue override.
type ToolsConfig struct {
	CataloguePath string
}

// VaultConfig tunes the live resource view.
type VaultConfig struct {
	SearchDebounce time.Duration
}

func loadVaultConfig() (VaultConfig, error) {
	debounce, err := parseDurationEnv("VAULT_SEARCH_DEBOUNCE", 300*time.Millisecond)
	if err != nil {
		return VaultConfig{}, err
	}
	return VaultConfig{SearchDebounce: debounce}, nil
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string
	Format string
}

func loadLogConfig() LogConfig {
	return LogConfig{
		Level:  strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info")),
		Format: strings.ToLower(getEnvOrDefault("LOG_FORMAT", "json")),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseFloatEnv(key string, defaultValue float64) (float64, error) {
	val, err := parseOptionalFloatEnv(key)
	if err != nil || val == nil {
		return defaultValue, err
	}
	return *val, nil
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	val, err := parseOptionalIntEnv(key)
	if err != nil || val == nil {
		return defaultValue, err
	}
	return *val, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
