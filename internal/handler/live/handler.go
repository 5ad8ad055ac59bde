package live

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/edgex-labs/edgex/backend/internal/auth"
	"github.com/edgex-labs/edgex/backend/internal/model/chat"
	"github.com/edgex-labs/edgex/backend/internal/model/resource"
	"github.com/edgex-labs/edgex/backend/internal/model/tool"
	"github.com/edgex-labs/edgex/backend/internal/vault"
	"github.com/edgex-labs/edgex/backend/pkg/utils"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = 54 * time.Second
	writeWait    = 10 * time.Second
)

// Watcher delivers ordered snapshots after every change.
type Watcher interface {
	WatchSessions(ctx context.Context, collection, userID string) (<-chan []chat.Session, error)
	WatchResources(ctx context.Context) (<-chan []resource.Resource, error)
}

// Handler pushes session history and the resource vault view over websockets.
type Handler struct {
	watcher  Watcher
	tools    tool.Store
	debounce time.Duration
	upgrader websocket.Upgrader
}

func New(watcher Watcher, tools tool.Store, debounce time.Duration, allowedOrigins []string) *Handler {
	return &Handler{
		watcher:  watcher,
		tools:    tools,
		debounce: debounce,
		upgrader: websocket.Upgrader{
			CheckOrigin:     originChecker(allowedOrigins),
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/live/sessions", h.handleSessions)
	r.Get("/live/resources", h.handleResources)
}

// outgoingMessage is every frame the server sends.
type outgoingMessage struct {
	Type      string `json:"type"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// inboundMessage drives the resource view.
type inboundMessage struct {
	Type string `json:"type"` // search, toggleTag, sort, clear
	Text string `json:"text,omitempty"`
	Tag  string `json:"tag,omitempty"`
	Sort string `json:"sort,omitempty"`
}

// conn serializes writes; gorilla allows one concurrent writer.
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) send(msgType string, data any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(outgoingMessage{Type: msgType, Data: data, Timestamp: time.Now().Unix()})
}

func (c *conn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// handleSessions streams ?tool= session history of the signed-in user.
func (h *Handler) handleSessions(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFrom(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "🔐 Please log in first.")
		return
	}
	t, ok := h.tools.FindByID(r.URL.Query().Get("tool"))
	if !ok || t.Collection == "" {
		utils.RespondError(w, http.StatusNotFound, "tool not found")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	snapshots, err := h.watcher.WatchSessions(ctx, t.Collection, u.ID)
	if err != nil {
		slog.Error("watch sessions failed", "component", "live", "tool", t.ID, "error", err)
		utils.RespondError(w, http.StatusInternalServerError, "could not load sessions")
		return
	}

	c, ok := h.upgrade(w, r)
	if !ok {
		return
	}
	defer c.ws.Close()

	slog.Info("live sessions opened", "component", "live", "tool", t.ID, "user_id", u.ID)
	go h.pingLoop(ctx, c)
	go h.readLoop(ctx, cancel, c, nil)

	for {
		select {
		case <-ctx.Done():
			return
		case list, ok := <-snapshots:
			if !ok {
				return
			}
			if err := c.send("sessions", list); err != nil {
				slog.Debug("live sessions write failed", "component", "live", "error", err)
				return
			}
		}
	}
}

// handleResources streams the vault view. Search text is debounced; tag,
// sort and data changes are pushed at once.
func (h *Handler) handleResources(w http.ResponseWriter, r *http.Request) {
	viewer := ""
	if u, ok := auth.UserFrom(r.Context()); ok {
		viewer = u.ID
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	snapshots, err := h.watcher.WatchResources(ctx)
	if err != nil {
		slog.Error("watch resources failed", "component", "live", "error", err)
		utils.RespondError(w, http.StatusInternalServerError, "could not load resources")
		return
	}

	c, ok := h.upgrade(w, r)
	if !ok {
		return
	}
	defer c.ws.Close()

	view := vault.NewView(nil, h.debounce, func(snap vault.Snapshot) {
		if err := c.send("resources", snap); err != nil {
			slog.Debug("live resources write failed", "component", "live", "error", err)
			cancel()
		}
	})
	defer view.Close()

	go h.pingLoop(ctx, c)
	go h.readLoop(ctx, cancel, c, func(msg inboundMessage) {
		switch msg.Type {
		case "search":
			view.SetQuery(msg.Text)
		case "toggleTag":
			if tag := strings.TrimSpace(msg.Tag); tag != "" {
				view.ToggleTag(tag)
			}
		case "sort":
			view.SetSort(vault.ParseSortMode(msg.Sort))
		case "clear":
			view.Clear()
		default:
			if err := c.send("error", map[string]string{"message": "unknown message type"}); err != nil {
				cancel()
			}
		}
	})

	for {
		select {
		case <-ctx.Done():
			return
		case list, ok := <-snapshots:
			if !ok {
				return
			}
			// snapshots are shared between subscribers
			visible := make([]resource.Resource, len(list))
			for i := range list {
				visible[i] = list[i].ViewFor(viewer)
			}
			view.Replace(visible)
		}
	}
}

func (h *Handler) upgrade(w http.ResponseWriter, r *http.Request) (*conn, bool) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "component", "live", "error", err)
		return nil, false
	}
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	return &conn{ws: ws}, true
}

// readLoop consumes client frames until the socket closes, then cancels.
func (h *Handler) readLoop(ctx context.Context, cancel context.CancelFunc, c *conn, handle func(inboundMessage)) {
	defer cancel()
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("websocket read error", "component", "live", "error", err)
			}
			return
		}
		if ctx.Err() != nil {
			return
		}
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		if handle == nil {
			continue
		}

		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			if err := c.send("error", map[string]string{"message": "invalid message"}); err != nil {
				return
			}
			continue
		}
		handle(msg)
	}
}

func (h *Handler) pingLoop(ctx context.Context, c *conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}

// originChecker accepts requests without an Origin header, any origin when
// "*" is configured, and otherwise only the listed origins.
func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	wildcard := false
	for _, o := range allowed {
		if o == "*" {
			wildcard = true
		}
		set[strings.TrimRight(o, "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || wildcard {
			return true
		}
		_, ok := set[strings.TrimRight(origin, "/")]
		return ok
	}
}
