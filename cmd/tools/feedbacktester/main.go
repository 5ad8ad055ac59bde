package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/edgex-labs/edgex/backend/internal/config"
	"github.com/edgex-labs/edgex/backend/internal/model/tool"
	"github.com/edgex-labs/edgex/backend/internal/service/ai"
	"github.com/edgex-labs/edgex/backend/internal/service/voice"
)

// feedbacktester runs one recording through transcription and speaking
// feedback without the HTTP server.
func main() {
	audioPath := flag.String("audio", "", "recording to transcribe (webm, wav, mp3)")
	transcript := flag.String("text", "", "skip transcription and use this transcript")
	reaction := flag.String("reaction", "", "optional student reaction to the prompt")
	language := flag.String("lang", "", "language code, defaults to VOICE_LANGUAGE")
	timeout := flag.Duration("timeout", 90*time.Second, "overall timeout")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file loaded, using process environment only", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		fatal("load configuration", err)
	}
	if *audioPath == "" && strings.TrimSpace(*transcript) == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var completer voice.Completer
	if cfg.AI.Enabled() {
		chatModel, err := cfg.AI.NewChatModel(ctx)
		if err != nil {
			fatal("create chat model", err)
		}
		aiSvc, err := ai.NewService(ctx, chatModel, ai.Options{Timeout: cfg.AI.Timeout})
		if err != nil {
			fatal("create completion service", err)
		}
		completer = aiSvc
	} else {
		slog.Warn("AI credentials not configured, feedback will fail")
	}

	voiceTool, _ := tool.NewMemoryStore(tool.Seed()).FindByID(tool.Voice)
	whisper := voice.NewModel(voice.WhisperLoader(voice.WhisperConfig{
		Endpoint: cfg.Voice.Endpoint,
		APIKey:   cfg.Voice.APIKey,
		Model:    cfg.Voice.Model,
		Language: cfg.Voice.Language,
		Timeout:  cfg.Voice.Timeout,
	}))
	svc := voice.NewService(whisper, completer, voiceTool, nil, nil)

	var result voice.Result
	if text := strings.TrimSpace(*transcript); text != "" {
		result, err = svc.FeedbackForText(ctx, "", text, *reaction)
	} else {
		if !cfg.Voice.Enabled() {
			fatal("transcribe", fmt.Errorf("VOICE_ENDPOINT is not set"))
		}
		result, err = transcribeFile(ctx, svc, *audioPath, firstNonEmpty(*language, cfg.Voice.Language), *reaction)
	}
	if err != nil {
		fmt.Println(voice.UserMessage(err))
		fatal("feedback", err)
	}

	fmt.Printf("🗣️ You said:\n%s\n\n", result.Transcript)
	fmt.Printf("💬 Feedback:\n%s\n", result.Feedback)
	if result.Failed {
		os.Exit(1)
	}
}

func transcribeFile(ctx context.Context, svc *voice.Service, path, language, reaction string) (voice.Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return voice.Result{}, err
	}
	defer file.Close()

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if format == "" {
		format = "wav"
	}

	start := time.Now()
	result, err := svc.Feedback(ctx, "", voice.Recording{
		Audio:    file,
		Filename: filepath.Base(path),
		Format:   format,
		Language: language,
		Reaction: reaction,
	})
	slog.Info("feedback finished", "format", format, "language", language, "elapsed", time.Since(start))
	return result, err
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func fatal(step string, err error) {
	slog.Error(step+" failed", "error", err)
	os.Exit(1)
}
