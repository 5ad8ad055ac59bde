package voice

import (
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/edgex-labs/edgex/backend/internal/auth"
	"github.com/edgex-labs/edgex/backend/internal/export"
	voiceService "github.com/edgex-labs/edgex/backend/internal/service/voice"
	"github.com/edgex-labs/edgex/backend/pkg/utils"
)

const maxUploadBytes = 32 << 20

// Handler serves VoiceMirror: upload a recording, get speaking feedback.
type Handler struct {
	svc *voiceService.Service
}

func New(svc *voiceService.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/voice", func(r chi.Router) {
		r.Get("/health", h.handleHealth)
		r.Post("/feedback", h.handleFeedback)
		r.Get("/sessions", h.handleSessions)
		r.Get("/sessions/{id}/export.pdf", h.handleExport)
	})
}

// handleFeedback accepts a multipart form with an "audio" file, or a
// "transcript" field to skip transcription. Sessions are stored only for
// signed-in users.
func (h *Handler) handleFeedback(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	userID := ""
	if u, ok := auth.UserFrom(r.Context()); ok {
		userID = u.ID
	}
	reaction := r.FormValue("reaction")

	if transcript := strings.TrimSpace(r.FormValue("transcript")); transcript != "" {
		result, err := h.svc.FeedbackForText(r.Context(), userID, transcript, reaction)
		if err != nil {
			respondVoiceError(w, err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, result)
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(header.Filename)), ".")
	if f := r.FormValue("format"); f != "" {
		format = f
	}

	result, err := h.svc.Feedback(r.Context(), userID, voiceService.Recording{
		Audio:    file,
		Filename: header.Filename,
		Format:   format,
		Language: r.FormValue("language"),
		Reaction: reaction,
	})
	if err != nil {
		respondVoiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleSessions(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFrom(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "🔐 Please log in first.")
		return
	}
	sessions, err := h.svc.Sessions(r.Context(), u.ID)
	if err != nil {
		respondVoiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, sessions)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFrom(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "🔐 Please log in first.")
		return
	}
	session, err := h.svc.Session(r.Context(), u.ID, chi.URLParam(r, "id"))
	if err != nil {
		respondVoiceError(w, err)
		return
	}
	data, err := export.VoiceReport(*session)
	if err != nil {
		slog.Error("voice report failed", "component", "export", "error", err)
		utils.RespondError(w, http.StatusInternalServerError, "report generation failed")
		return
	}
	utils.RespondFile(w, "VoiceMirror_Feedback.pdf", "application/pdf", data)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	loaded, err := h.svc.Health()
	if err != nil {
		utils.RespondJSON(w, http.StatusServiceUnavailable, map[string]any{
			"loaded": false,
			"error":  voiceService.MsgModelUnavailable,
		})
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"loaded": loaded})
}

func respondVoiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, voiceService.ErrModelUnavailable):
		utils.RespondError(w, http.StatusServiceUnavailable, voiceService.UserMessage(err))
	case errors.Is(err, voiceService.ErrTranscription):
		utils.RespondError(w, http.StatusUnprocessableEntity, voiceService.UserMessage(err))
	case errors.Is(err, voiceService.ErrSessionNotFound):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	default:
		slog.Error("voice request failed", "component", "voice", "error", err)
		utils.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}
