package mood

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	analysis "github.com/edgex-labs/edgex/backend/internal/analysis/mood"
	"github.com/edgex-labs/edgex/backend/internal/model/chat"
)

const (
	defaultHistoryLimit = 6
	classifierTemp      = 0.2

	SourceLLM       = "llm"
	SourceHeuristic = "heuristic"
)

// Config controls the classifier.
type Config struct {
	Enabled      bool
	HistoryLimit int
	Model        string
}

// Result is a mood reading plus how it was obtained.
type Result struct {
	analysis.Decision
	Confidence float32 `json:"confidence"`
	Reason     string  `json:"reason,omitempty"`
	Source     string  `json:"source"`
}

// Service asks the chat model for a JSON mood reading and falls back to the
// keyword heuristic whenever that fails.
type Service struct {
	enabled      bool
	model        string
	classifier   compose.Runnable[map[string]any, *schema.Message]
	fallback     func(chatText, reply string) analysis.Decision
	historyLimit int
}

// NewService creates the mood classifier. chatModel may be nil, in which case
// only the heuristic is used.
func NewService(ctx context.Context, chatModel model.ChatModel, cfg Config) (*Service, error) {
	historyLimit := cfg.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}

	svc := &Service{
		enabled:      cfg.Enabled && chatModel != nil,
		model:        cfg.Model,
		fallback:     analysis.Analyze,
		historyLimit: historyLimit,
	}
	if !svc.enabled {
		return svc, nil
	}

	template := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(classifierSystemPrompt),
		schema.UserMessage(classifierUserPrompt),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(template)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile mood classifier chain: %w", err)
	}
	svc.classifier = runnable
	return svc, nil
}

// Enabled reports whether the LLM classifier is active.
func (s *Service) Enabled() bool {
	return s != nil && s.enabled && s.classifier != nil
}

// Analyze reads the mood of chatText. reply is the assistant's analysis, if any.
func (s *Service) Analyze(ctx context.Context, history []chat.Message, chatText, reply string) Result {
	if !s.Enabled() {
		return s.heuristic(chatText, reply)
	}

	input := map[string]any{
		"history": formatHistory(history, s.historyLimit),
		"chat":    strings.TrimSpace(chatText),
		"reply":   strings.TrimSpace(reply),
	}

	opts := []model.Option{model.WithTemperature(classifierTemp)}
	if s.model != "" {
		opts = append(opts, model.WithModel(s.model))
	}

	msg, err := s.classifier.Invoke(ctx, input, compose.WithChatModelOption(opts...))
	if err != nil {
		slog.Warn("mood classifier failed, using heuristic", "component", "mood", "error", err)
		return s.heuristic(chatText, reply)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return s.heuristic(chatText, reply)
	}

	payload, err := parseClassifierOutput(msg.Content)
	if err != nil {
		slog.Warn("mood classifier output unreadable, using heuristic", "component", "mood", "error", err)
		return s.heuristic(chatText, reply)
	}

	label, ok := analysis.ParseLabel(payload.Mood)
	if !ok {
		return s.heuristic(chatText, reply)
	}

	intensity := clampIntensity(payload.Intensity)
	confidence := payload.Confidence
	if confidence <= 0 {
		confidence = 0.6
	}
	if confidence > 1 {
		confidence = 1
	}

	return Result{
		Decision:   analysis.Decision{Mood: label, Intensity: intensity, Score: int(intensity * 2)},
		Confidence: confidence,
		Reason:     strings.TrimSpace(payload.Reason),
		Source:     SourceLLM,
	}
}

// Label returns just the mood label; it annotates mood tool replies.
func (s *Service) Label(ctx context.Context, history []chat.Message, userText, reply string) string {
	return string(s.Analyze(ctx, history, userText, reply).Mood)
}

func (s *Service) heuristic(chatText, reply string) Result {
	fallback := analysis.Analyze
	if s != nil && s.fallback != nil {
		fallback = s.fallback
	}
	decision := fallback(chatText, reply)

	confidence := float32(0.3)
	if decision.Score > 0 {
		confidence = 0.55
	}
	return Result{Decision: decision, Confidence: confidence, Source: SourceHeuristic}
}

type classifierPayload struct {
	Mood       string  `json:"mood"`
	Intensity  float32 `json:"intensity"`
	Confidence float32 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// parseClassifierOutput extracts the outermost JSON object from the reply.
func parseClassifierOutput(content string) (*classifierPayload, error) {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end <= start {
		return nil, errors.New("missing json object")
	}

	payload := &classifierPayload{}
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func formatHistory(messages []chat.Message, limit int) string {
	messages = chat.WithoutTyping(messages)
	if len(messages) == 0 {
		return "(none)"
	}
	if limit < 1 {
		limit = 1
	}
	if len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}

	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		content := strings.TrimSpace(msg.Text)
		if content == "" {
			continue
		}
		role := "Student"
		if msg.Role == chat.RoleAssistant {
			role = "MoodMirror"
		}
		lines = append(lines, role+": "+content)
	}
	if len(lines) == 0 {
		return "(none)"
	}
	return strings.Join(lines, "\n")
}

func clampIntensity(val float32) float32 {
	switch {
	case val <= 0:
		return 3
	case val < 1:
		return 1
	case val > 5:
		return 5
	}
	return val
}

const classifierSystemPrompt = "You label the vibe of chat screenshots students paste. Read the earlier conversation, the pasted chat and the (optional) analysis, then answer with a single JSON object and nothing else. Fields: mood (one of neutral, flirty, friendzone, manipulative, overthinking, heartbroken, wholesome), intensity (number 1 to 5), confidence (0 to 1), reason (one short sentence)."

const classifierUserPrompt = "Earlier conversation:\n{history}\n\nPasted chat:\n{chat}\n\nAnalysis (may be empty):\n{reply}\n\nReturn the JSON."
