package chat

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/edgex-labs/edgex/backend/internal/auth"
	"github.com/edgex-labs/edgex/backend/internal/export"
	"github.com/edgex-labs/edgex/backend/internal/model/tool"
	chatService "github.com/edgex-labs/edgex/backend/internal/service/chat"
	"github.com/edgex-labs/edgex/backend/pkg/utils"
)

// Handler serves open conversations, stored session history and career memory.
type Handler struct {
	chatSvc *chatService.Service
	tools   tool.Store
}

func New(chatSvc *chatService.Service, tools tool.Store) *Handler {
	return &Handler{
		chatSvc: chatSvc,
		tools:   tools,
	}
}

// RegisterRoutes registers the chat routes. Every route expects an
// authenticated user in the request context.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/tools/{toolID}/conversations", h.handleOpen)

	r.Get("/conversations/{handle}", h.handleGet)
	r.Delete("/conversations/{handle}", h.handleClose)
	r.Post("/conversations/{handle}/messages", h.handleSend)
	r.Post("/conversations/{handle}/load", h.handleLoad)
	r.Post("/conversations/{handle}/reset", h.handleReset)

	r.Get("/tools/{toolID}/sessions", h.handleListSessions)
	r.Patch("/tools/{toolID}/sessions/{sessionID}", h.handleRenameSession)
	r.Delete("/tools/{toolID}/sessions/{sessionID}", h.handleDeleteSession)
	r.Get("/tools/{toolID}/sessions/{sessionID}/export", h.handleExportSession)

	r.Get("/memory", h.handleMemory)
	r.Get("/memory/report.pdf", h.handleReport)
	r.Post("/memory/report.pdf", h.handleReport)
}

func (h *Handler) handleOpen(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	snap, err := h.chatSvc.Open(r.Context(), userID, chi.URLParam(r, "toolID"))
	if err != nil {
		respondChatError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, snap)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	snap, err := h.chatSvc.Get(userID, chi.URLParam(r, "handle"))
	if err != nil {
		respondChatError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, snap)
}

// handleSend submits a message and blocks until the reply settles.
func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	var payload struct {
		Text string `json:"text"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := h.chatSvc.Send(r.Context(), userID, chi.URLParam(r, "handle"), payload.Text)
	if err != nil {
		respondChatError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, out)
}

func (h *Handler) handleLoad(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	var payload struct {
		SessionID string `json:"sessionId"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(payload.SessionID) == "" {
		utils.RespondError(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	snap, err := h.chatSvc.Load(r.Context(), userID, chi.URLParam(r, "handle"), payload.SessionID)
	if err != nil {
		respondChatError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	snap, err := h.chatSvc.Reset(userID, chi.URLParam(r, "handle"))
	if err != nil {
		respondChatError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	if err := h.chatSvc.Close(userID, chi.URLParam(r, "handle")); err != nil {
		respondChatError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	sessions, err := h.chatSvc.ListSessions(r.Context(), userID, chi.URLParam(r, "toolID"))
	if err != nil {
		respondChatError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, sessions)
}

func (h *Handler) handleRenameSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	var payload struct {
		Title string `json:"title"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := h.chatSvc.RenameSession(r.Context(), userID, chi.URLParam(r, "toolID"), chi.URLParam(r, "sessionID"), strings.TrimSpace(payload.Title))
	if err != nil {
		respondChatError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	if err := h.chatSvc.DeleteSession(r.Context(), userID, chi.URLParam(r, "toolID"), chi.URLParam(r, "sessionID")); err != nil {
		respondChatError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleExportSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	exporter, err := export.ForFormat(r.URL.Query().Get("format"))
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	toolID := chi.URLParam(r, "toolID")
	session, err := h.chatSvc.GetSession(r.Context(), userID, toolID, chi.URLParam(r, "sessionID"))
	if err != nil {
		respondChatError(w, err)
		return
	}

	label := ""
	if t, ok := h.tools.FindByID(toolID); ok {
		label = t.ExportLabel
	}
	data, err := exporter.Export(export.FromSession(*session, label))
	if err != nil {
		slog.Error("session export failed", "component", "export", "tool", toolID, "error", err)
		utils.RespondError(w, http.StatusInternalServerError, "export failed")
		return
	}
	utils.RespondFile(w, export.Filename(label, session.Title, exporter.FileExtension()), exporter.MimeType(), data)
}

func (h *Handler) handleMemory(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	mem, err := h.chatSvc.Memory(r.Context(), userID)
	if err != nil {
		slog.Error("memory lookup failed", "component", "chat", "error", err)
		utils.RespondError(w, http.StatusInternalServerError, "could not load memory")
		return
	}
	if mem == nil {
		utils.RespondError(w, http.StatusNotFound, "no memory stored yet")
		return
	}
	utils.RespondJSON(w, http.StatusOK, mem)
}

// handleReport renders the career report. A POST body may carry suggestions;
// anything missing falls back to the defaults.
func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var suggestions *export.CareerSuggestions
	if r.Method == http.MethodPost && r.ContentLength != 0 {
		suggestions = &export.CareerSuggestions{}
		if err := utils.DecodeJSON(r, suggestions); err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	mem, err := h.chatSvc.Memory(r.Context(), userID)
	if err != nil {
		slog.Error("memory lookup failed", "component", "chat", "error", err)
		utils.RespondError(w, http.StatusInternalServerError, "could not load memory")
		return
	}

	data, err := export.CareerReport(mem, suggestions)
	if err != nil {
		slog.Error("career report failed", "component", "export", "error", err)
		utils.RespondError(w, http.StatusInternalServerError, "report generation failed")
		return
	}
	utils.RespondFile(w, "Career_Report.pdf", "application/pdf", data)
}

func currentUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	u, ok := auth.UserFrom(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "🔐 Please log in first.")
		return "", false
	}
	return u.ID, true
}

// StatusFor maps chat service errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, chatService.ErrEmptyMessage), errors.Is(err, chatService.ErrTitleRequired),
		errors.Is(err, chatService.ErrNotChatTool):
		return http.StatusBadRequest
	case errors.Is(err, chatService.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, chatService.ErrConversationNotFound), errors.Is(err, chatService.ErrSessionNotFound),
		errors.Is(err, chatService.ErrToolNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func respondChatError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("chat request failed", "component", "chat", "error", err)
		utils.RespondError(w, status, "internal error")
		return
	}
	utils.RespondError(w, status, err.Error())
}
