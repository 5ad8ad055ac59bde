package stream

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/edgex-labs/edgex/backend/internal/auth"
	chatHandler "github.com/edgex-labs/edgex/backend/internal/handler/chat"
	chatService "github.com/edgex-labs/edgex/backend/internal/service/chat"
	"github.com/edgex-labs/edgex/backend/pkg/utils"
)

// Handler streams the state transitions of one send over Server-Sent Events.
type Handler struct {
	chatSvc *chatService.Service
}

func New(chatSvc *chatService.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// StreamResponse is the payload of every event.
type StreamResponse struct {
	Event        string                `json:"event"`
	Handle       string                `json:"handle"`
	Conversation *chatService.Snapshot `json:"conversation,omitempty"`
	Outcome      *chatService.Outcome  `json:"outcome,omitempty"`
	Error        string                `json:"error,omitempty"`
	Finished     bool                  `json:"finished,omitempty"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/conversations/{handle}/stream", h.handleStream)
}

// handleStream submits ?message= and emits start once the typing placeholder
// is in place, then message or error, then end. Rejected submits never open
// the stream and answer with a plain status instead.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFrom(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "🔐 Please log in first.")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	handle := chi.URLParam(r, "handle")
	message := r.URL.Query().Get("message")

	started := false
	out, err := h.chatSvc.SendWithHook(r.Context(), u.ID, handle, message, func(snap chatService.Snapshot) {
		started = true
		utils.SetupSSEHeaders(w)
		w.WriteHeader(http.StatusOK)
		h.send(w, flusher, StreamResponse{Event: "start", Handle: handle, Conversation: &snap})
	})
	if err != nil && !started {
		status := chatHandler.StatusFor(err)
		msg := err.Error()
		if status == http.StatusInternalServerError {
			slog.Error("stream submit failed", "component", "stream", "handle", handle, "error", err)
			msg = "internal error"
		}
		utils.RespondError(w, status, msg)
		return
	}

	switch {
	case err != nil:
		slog.Error("stream send failed", "component", "stream", "handle", handle, "error", err)
		h.send(w, flusher, StreamResponse{Event: "error", Handle: handle, Error: chatService.FallbackReply})
	case out.Failed:
		h.send(w, flusher, StreamResponse{Event: "error", Handle: handle, Outcome: &out, Error: out.Reply.Text})
	default:
		h.send(w, flusher, StreamResponse{Event: "message", Handle: handle, Outcome: &out})
	}

	h.send(w, flusher, StreamResponse{Event: "end", Handle: handle, Finished: true})
	slog.Debug("stream completed", "component", "stream", "handle", handle, "stale", out.Stale)
}

func (h *Handler) send(w http.ResponseWriter, flusher http.Flusher, resp StreamResponse) {
	if err := utils.SendSSEEvent(w, flusher, resp.Event, resp); err != nil {
		slog.Warn("sse write failed", "component", "stream", "event", resp.Event, "error", err)
	}
}
