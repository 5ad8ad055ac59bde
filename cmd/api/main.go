package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"github.com/edgex-labs/edgex/backend/internal/auth"
	"github.com/edgex-labs/edgex/backend/internal/config"
	"github.com/edgex-labs/edgex/backend/internal/handler"
	"github.com/edgex-labs/edgex/backend/internal/metrics"
	"github.com/edgex-labs/edgex/backend/internal/middleware"
	"github.com/edgex-labs/edgex/backend/internal/model/scholarship"
	"github.com/edgex-labs/edgex/backend/internal/model/tool"
	"github.com/edgex-labs/edgex/backend/internal/service/ai"
	"github.com/edgex-labs/edgex/backend/internal/service/chat"
	"github.com/edgex-labs/edgex/backend/internal/service/mood"
	scholarshipService "github.com/edgex-labs/edgex/backend/internal/service/scholarship"
	"github.com/edgex-labs/edgex/backend/internal/service/vault"
	"github.com/edgex-labs/edgex/backend/internal/service/voice"
	"github.com/edgex-labs/edgex/backend/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	setupLogger(cfg.Log)
	if envErr != nil {
		slog.Warn("no .env file loaded, using process environment only", "error", envErr)
	}

	if cfg.Auth.EphemeralSecret {
		slog.Warn("JWT_SECRET not set, using a per-process secret; sign-ins end on restart")
	}

	m := metrics.New()

	repo, err := openStore(cfg.Store)
	if err != nil {
		slog.Error("failed to open store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			slog.Error("store close failed", "error", err)
		}
	}()
	observed := store.NewObserved(repo)

	authSvc := auth.NewService(observed, auth.Config{
		JWTSecret:  cfg.Auth.JWTSecret,
		TokenTTL:   cfg.Auth.TokenTTL,
		BcryptCost: cfg.Auth.BcryptCost,
	})
	authSvc.Subscribe(func(evt auth.Event) {
		slog.Info("auth state changed", "component", "auth", "event", evt.Type, "user_id", evt.User.ID)
	})

	tools, err := loadTools(cfg)
	if err != nil {
		slog.Error("failed to load tool catalogue", "path", cfg.Tools.CataloguePath, "error", err)
		os.Exit(1)
	}

	// A nil *ai.Service must not leak into the interface below.
	var completer chat.Completer
	var chatModel model.ChatModel
	if cfg.AI.Enabled() {
		chatModel, err = cfg.AI.NewChatModel(ctx)
		if err != nil {
			slog.Warn("chat model unavailable, replies will fall back", "error", err)
		} else {
			aiSvc, err := ai.NewService(ctx, chatModel, ai.Options{
				RateLimit: cfg.AI.RateLimit,
				RateBurst: cfg.AI.RateBurst,
				Timeout:   cfg.AI.Timeout,
				Metrics:   m,
			})
			if err != nil {
				slog.Warn("completion service init failed, replies will fall back", "error", err)
				chatModel = nil
			} else {
				completer = aiSvc
				slog.Info("completion service ready", "model", cfg.AI.Model, "base_url", cfg.AI.BaseURL)
			}
		}
	} else {
		slog.Warn("AI credentials not configured, skipping completion service")
	}

	moodSvc, err := mood.NewService(ctx, chatModel, mood.Config{
		Enabled:      cfg.AI.MoodLLMEnabled,
		HistoryLimit: cfg.AI.MoodHistoryLimit,
	})
	if err != nil {
		slog.Warn("mood classifier init failed, using heuristics only", "error", err)
		moodSvc, _ = mood.NewService(ctx, nil, mood.Config{})
	} else if moodSvc.Enabled() {
		slog.Info("mood classifier enabled")
	}

	chatSvc := chat.NewService(tools, observed, completer, chat.Options{
		Mood:    moodSvc,
		Metrics: m,
		Timeout: cfg.AI.Timeout,
	})
	go chatSvc.Run(ctx)

	catalogue, err := scholarship.Default()
	if err != nil {
		slog.Error("failed to parse scholarship catalogue", "error", err)
		os.Exit(1)
	}
	scholarshipTool, _ := tools.FindByID(tool.Scholarship)
	scholarshipSvc := scholarshipService.NewService(catalogue, scholarshipTool, completer)

	var voiceSvc *voice.Service
	if cfg.Voice.Enabled() {
		voiceTool, _ := tools.FindByID(tool.Voice)
		whisper := voice.NewModel(voice.WhisperLoader(voice.WhisperConfig{
			Endpoint: cfg.Voice.Endpoint,
			APIKey:   cfg.Voice.APIKey,
			Model:    cfg.Voice.Model,
			Language: cfg.Voice.Language,
			Timeout:  cfg.Voice.Timeout,
		}))
		voiceSvc = voice.NewService(whisper, completer, voiceTool, observed, m)
		slog.Info("voice feedback enabled", "endpoint", cfg.Voice.Endpoint, "model", cfg.Voice.Model)
	} else {
		slog.Warn("VOICE_ENDPOINT not configured, skipping voice feedback")
	}

	limiter := middleware.NewRateLimiter(m, middleware.RateLimiterOptions{
		Limit: rate.Limit(cfg.Server.RequestRate),
		Burst: cfg.Server.RequestBurst,
	})
	go limiter.Run(ctx)

	router := handler.NewRouter(handler.Deps{
		Tools:          tools,
		Auth:           authSvc,
		Chat:           chatSvc,
		Mood:           moodSvc,
		Scholarship:    scholarshipSvc,
		Vault:          vault.NewService(observed),
		Voice:          voiceSvc,
		Live:           observed,
		Store:          observed,
		Metrics:        m,
		RateLimiter:    limiter,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		SearchDebounce: cfg.Vault.SearchDebounce,
	})

	startServer(ctx, cfg.Server, router)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := chatSvc.Shutdown(shutdownCtx); err != nil {
		slog.Error("pending session writes lost", "error", err)
	}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(os.Stdout, opts)
	} else {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(h))
}

func openStore(cfg config.StoreConfig) (store.Repository, error) {
	if cfg.Driver == config.DriverMemory {
		slog.Warn("using in-memory store, data is lost on restart")
		return store.NewMemory(), nil
	}
	return store.NewSQLite(cfg.Path)
}

func loadTools(cfg *config.Config) (*tool.MemoryStore, error) {
	items := tool.Seed()
	if path := cfg.Tools.CataloguePath; path != "" {
		merged, err := tool.LoadFile(path, items)
		if err != nil {
			return nil, err
		}
		items = merged
		slog.Info("tool catalogue loaded", "path", path, "tools", len(items))
	}
	return tool.NewMemoryStore(tool.ApplyPromptMode(items, cfg.AI.CareerPromptMode)), nil
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	slog.Info("EdgeX backend listening", "addr", addr)
	if err := runServer(ctx, srv); err != nil {
		slog.Error("server error", "error", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
