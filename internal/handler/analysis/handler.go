package analysis

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/edgex-labs/edgex/backend/internal/analysis/notes"
	"github.com/edgex-labs/edgex/backend/internal/analysis/resume"
	"github.com/edgex-labs/edgex/backend/internal/model/chat"
	moodService "github.com/edgex-labs/edgex/backend/internal/service/mood"
	"github.com/edgex-labs/edgex/backend/pkg/utils"
)

// Handler serves the single-shot text analyzers.
type Handler struct {
	mood *moodService.Service
}

func New(mood *moodService.Service) *Handler {
	return &Handler{mood: mood}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/mood/analyze", h.handleMood)
	r.Post("/notes/summarize", h.handleNotes)
	r.Post("/resume/analyze", h.handleResume)
}

type moodRequest struct {
	Text    string         `json:"text"`
	Reply   string         `json:"reply"`
	History []chat.Message `json:"history"`
}

func (h *Handler) handleMood(w http.ResponseWriter, r *http.Request) {
	var req moodRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		utils.RespondFieldErrors(w, map[string]string{"text": "Paste a chat to analyze."})
		return
	}
	utils.RespondJSON(w, http.StatusOK, h.mood.Analyze(r.Context(), req.History, req.Text, req.Reply))
}

func (h *Handler) handleNotes(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		utils.RespondFieldErrors(w, map[string]string{"text": "Paste some notes first."})
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"summary": notes.Summarize(req.Text)})
}

func (h *Handler) handleResume(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		utils.RespondFieldErrors(w, map[string]string{"text": "Paste your resume text."})
		return
	}
	utils.RespondJSON(w, http.StatusOK, resume.Analyze(req.Text))
}
