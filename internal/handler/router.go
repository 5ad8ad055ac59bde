package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	authService "github.com/edgex-labs/edgex/backend/internal/auth"
	"github.com/edgex-labs/edgex/backend/internal/handler/analysis"
	authHandler "github.com/edgex-labs/edgex/backend/internal/handler/auth"
	"github.com/edgex-labs/edgex/backend/internal/handler/chat"
	"github.com/edgex-labs/edgex/backend/internal/handler/live"
	"github.com/edgex-labs/edgex/backend/internal/handler/scholarship"
	"github.com/edgex-labs/edgex/backend/internal/handler/stream"
	toolHandler "github.com/edgex-labs/edgex/backend/internal/handler/tool"
	vaultHandler "github.com/edgex-labs/edgex/backend/internal/handler/vault"
	"github.com/edgex-labs/edgex/backend/internal/handler/voice"
	"github.com/edgex-labs/edgex/backend/internal/metrics"
	middlewarePkg "github.com/edgex-labs/edgex/backend/internal/middleware"
	"github.com/edgex-labs/edgex/backend/internal/model/tool"
	chatService "github.com/edgex-labs/edgex/backend/internal/service/chat"
	moodService "github.com/edgex-labs/edgex/backend/internal/service/mood"
	scholarshipService "github.com/edgex-labs/edgex/backend/internal/service/scholarship"
	vaultService "github.com/edgex-labs/edgex/backend/internal/service/vault"
	voiceService "github.com/edgex-labs/edgex/backend/internal/service/voice"
	"github.com/edgex-labs/edgex/backend/pkg/utils"
)

// Pinger reports whether the document store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services the router exposes.
type Deps struct {
	Tools          tool.Store
	Auth           *authService.Service
	Chat           *chatService.Service
	Mood           *moodService.Service
	Scholarship    *scholarshipService.Service
	Vault          *vaultService.Service
	Voice          *voiceService.Service
	Live           live.Watcher
	Store          Pinger
	Metrics        *metrics.Metrics
	RateLimiter    *middlewarePkg.RateLimiter
	AllowedOrigins []string
	SearchDebounce time.Duration
}

// NewRouter wires HTTP routes to core services.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(d.AllowedOrigins))
	r.Use(middlewarePkg.Metrics(d.Metrics))

	r.Get("/health", handleHealth(d.Store))
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		if d.RateLimiter != nil {
			api.Use(d.RateLimiter.Middleware)
		}

		authHandler.New(d.Auth).RegisterRoutes(api)
		toolHandler.New(d.Tools).RegisterRoutes(api)
		analysis.New(d.Mood).RegisterRoutes(api)
		scholarship.New(d.Scholarship).RegisterRoutes(api)

		// Anonymous callers may browse the vault and get voice feedback;
		// signed-in users additionally get attribution and history.
		api.Group(func(open chi.Router) {
			open.Use(middlewarePkg.OptionalAuth(d.Auth))
			vaultHandler.New(d.Vault).RegisterRoutes(open)
			if d.Voice != nil {
				voice.New(d.Voice).RegisterRoutes(open)
			}
		})

		api.Group(func(private chi.Router) {
			private.Use(middlewarePkg.RequireAuth(d.Auth))
			chat.New(d.Chat, d.Tools).RegisterRoutes(private)
			stream.New(d.Chat).RegisterRoutes(private)
		})

		if d.Live != nil {
			liveHandler := live.New(d.Live, d.Tools, d.SearchDebounce, d.AllowedOrigins)
			api.Group(func(ws chi.Router) {
				ws.Use(middlewarePkg.OptionalAuth(d.Auth))
				liveHandler.RegisterRoutes(ws)
			})
		}
	})

	return r
}

func handleHealth(store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := store.Ping(ctx); err != nil {
				utils.RespondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "store": err.Error()})
				return
			}
		}
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
