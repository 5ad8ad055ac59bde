package tool

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/edgex-labs/edgex/backend/internal/model/tool"
	"github.com/edgex-labs/edgex/backend/pkg/utils"
)

// Handler lists the student tools.
type Handler struct {
	tools tool.Store
}

func New(tools tool.Store) *Handler {
	return &Handler{tools: tools}
}

// RegisterRoutes registers the catalogue routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/tools", h.handleListTools)
	r.Get("/tools/{toolID}", h.handleGetTool)
}

// handleListTools lists every tool, or those of ?kind=chat|single.
func (h *Handler) handleListTools(w http.ResponseWriter, r *http.Request) {
	kind := tool.Kind(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("kind"))))
	items := h.tools.List()
	if kind != "" {
		filtered := make([]tool.Tool, 0, len(items))
		for _, t := range items {
			if t.Kind == kind {
				filtered = append(filtered, t)
			}
		}
		items = filtered
	}
	utils.RespondJSON(w, http.StatusOK, items)
}

func (h *Handler) handleGetTool(w http.ResponseWriter, r *http.Request) {
	t, ok := h.tools.FindByID(chi.URLParam(r, "toolID"))
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "tool not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, t)
}
