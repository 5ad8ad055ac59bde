package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/time/rate"

	"github.com/edgex-labs/edgex/backend/internal/metrics"
	"github.com/edgex-labs/edgex/backend/internal/model/chat"
)

const historyLimit = 10

// ErrEmptyReply is returned when the model answers with no content.
var ErrEmptyReply = errors.New("ai: empty reply")

// Request is one completion call: a system prompt, prior turns and the new query.
type Request struct {
	Tool        string
	Model       string
	Temperature float32
	System      string
	History     []chat.Message
	Query       string
}

// Options tunes the completion service.
type Options struct {
	RateLimit float64
	RateBurst int
	Timeout   time.Duration
	Metrics   *metrics.Metrics
}

// Service runs completions through a prompt template chain over the chat model.
type Service struct {
	chatModel model.ChatModel
	chain     compose.Runnable[map[string]any, *schema.Message]
	limiter   *rate.Limiter
	timeout   time.Duration
	metrics   *metrics.Metrics
}

// NewService compiles the completion chain around chatModel.
func NewService(ctx context.Context, chatModel model.ChatModel, opts Options) (*Service, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is required")
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	burst := opts.RateBurst
	if burst < 1 {
		burst = 1
	}

	return &Service{
		chatModel: chatModel,
		chain:     runnable,
		limiter:   rate.NewLimiter(limit, burst),
		timeout:   opts.Timeout,
		metrics:   opts.Metrics,
	}, nil
}

// Complete returns the reply text for req. Calls are throttled process-wide.
func (s *Service) Complete(ctx context.Context, req Request) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("completion rate limit: %w", err)
	}

	start := time.Now()
	response, err := s.chain.Invoke(ctx, buildChainInput(req), compose.WithChatModelOption(chatOptions(req)...))
	if err == nil && (response == nil || strings.TrimSpace(response.Content) == "") {
		err = ErrEmptyReply
	}
	s.metrics.ObserveCompletion(req.Tool, time.Since(start), err)
	if err != nil {
		slog.Error("completion failed", "component", "ai", "tool", req.Tool, "model", req.Model, "error", err)
		return "", fmt.Errorf("failed to run AI chain: %w", err)
	}

	slog.Debug("completion done", "component", "ai", "tool", req.Tool, "length", len(response.Content))
	return response.Content, nil
}

// ChatModel exposes the underlying model so classifiers can share it.
func (s *Service) ChatModel() model.ChatModel {
	return s.chatModel
}

func chatOptions(req Request) []model.Option {
	opts := make([]model.Option, 0, 2)
	if req.Model != "" {
		opts = append(opts, model.WithModel(req.Model))
	}
	if req.Temperature > 0 {
		opts = append(opts, model.WithTemperature(req.Temperature))
	}
	return opts
}

func buildChainInput(req Request) map[string]any {
	return map[string]any{
		"system":  req.System,
		"history": buildHistoryMessages(req.History),
		"query":   req.Query,
	}
}

func buildHistoryMessages(messages []chat.Message) []*schema.Message {
	messages = chat.WithoutTyping(messages)
	if len(messages) == 0 {
		return nil
	}

	startIdx := 0
	if len(messages) > historyLimit {
		startIdx = len(messages) - historyLimit
	}

	history := make([]*schema.Message, 0, len(messages)-startIdx)
	for _, msg := range messages[startIdx:] {
		switch msg.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(msg.Text))
		case chat.RoleAssistant:
			history = append(history, schema.AssistantMessage(msg.Text, nil))
		}
	}
	return history
}
