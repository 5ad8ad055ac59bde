package scholarship

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	model "github.com/edgex-labs/edgex/backend/internal/model/scholarship"
	scholarshipService "github.com/edgex-labs/edgex/backend/internal/service/scholarship"
	"github.com/edgex-labs/edgex/backend/pkg/utils"
)

// Handler matches student profiles against the scholarship catalogue.
type Handler struct {
	svc *scholarshipService.Service
}

func New(svc *scholarshipService.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/scholarships/options", h.handleOptions)
	r.Post("/scholarships/match", h.handleMatch)
}

func (h *Handler) handleOptions(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.svc.Options())
}

func (h *Handler) handleMatch(w http.ResponseWriter, r *http.Request) {
	var profile model.Profile
	if err := utils.DecodeJSON(r, &profile); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.svc.Match(r.Context(), profile)
	if err != nil {
		var fields model.FieldErrors
		if errors.As(err, &fields) {
			utils.RespondFieldErrors(w, fields)
			return
		}
		slog.Error("scholarship match failed", "component", "scholarship", "error", err)
		utils.RespondError(w, http.StatusInternalServerError, "could not match scholarships")
		return
	}
	utils.RespondJSON(w, http.StatusOK, result)
}
