package vault

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/edgex-labs/edgex/backend/internal/auth"
	"github.com/edgex-labs/edgex/backend/internal/model/resource"
	"github.com/edgex-labs/edgex/backend/internal/model/user"
	vaultService "github.com/edgex-labs/edgex/backend/internal/service/vault"
	"github.com/edgex-labs/edgex/backend/internal/vault"
	"github.com/edgex-labs/edgex/backend/pkg/utils"
)

// Handler serves the shared resource vault. Listing works anonymously;
// posting, editing and voting need a signed-in user.
type Handler struct {
	svc *vaultService.Service
}

func New(svc *vaultService.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/resources", h.handleList)
	r.Get("/resources/tags", h.handleTags)
	r.Post("/resources", h.handleAdd)
	r.Put("/resources/{id}", h.handleUpdate)
	r.Delete("/resources/{id}", h.handleDelete)
	r.Post("/resources/{id}/upvote", h.handleUpvote)
}

// QueryFrom reads ?q=, repeated or comma separated ?tag= and ?sort=.
func QueryFrom(r *http.Request) vault.Query {
	values := r.URL.Query()
	var tags []string
	for _, raw := range values["tag"] {
		for _, tag := range strings.Split(raw, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
	}
	return vault.Query{
		Text: values.Get("q"),
		Tags: tags,
		Sort: vault.ParseSortMode(values.Get("sort")),
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	viewer := ""
	if u, ok := auth.UserFrom(r.Context()); ok {
		viewer = u.ID
	}
	list, err := h.svc.List(r.Context(), viewer, QueryFrom(r))
	if err != nil {
		respondVaultError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, list)
}

func (h *Handler) handleTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.Tags(r.Context())
	if err != nil {
		respondVaultError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, tags)
}

func (h *Handler) handleAdd(w http.ResponseWriter, r *http.Request) {
	u, ok := requireUser(w, r)
	if !ok {
		return
	}
	var draft resource.Draft
	if err := utils.DecodeJSON(r, &draft); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := h.svc.Add(r.Context(), *u, draft)
	if err != nil {
		respondVaultError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	u, ok := requireUser(w, r)
	if !ok {
		return
	}
	var draft resource.Draft
	if err := utils.DecodeJSON(r, &draft); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	updated, err := h.svc.Update(r.Context(), u.ID, chi.URLParam(r, "id"), draft)
	if err != nil {
		respondVaultError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	u, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), u.ID, chi.URLParam(r, "id")); err != nil {
		respondVaultError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUpvote(w http.ResponseWriter, r *http.Request) {
	u, ok := requireUser(w, r)
	if !ok {
		return
	}
	updated, err := h.svc.ToggleUpvote(r.Context(), u.ID, chi.URLParam(r, "id"))
	if err != nil {
		respondVaultError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, updated)
}

func requireUser(w http.ResponseWriter, r *http.Request) (*user.User, bool) {
	u, ok := auth.UserFrom(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "🔐 Please log in first.")
		return nil, false
	}
	return u, true
}

func respondVaultError(w http.ResponseWriter, err error) {
	var fields resource.FieldErrors
	switch {
	case errors.As(err, &fields):
		utils.RespondFieldErrors(w, fields)
	case errors.Is(err, vaultService.ErrNotFound):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, vaultService.ErrForbidden):
		utils.RespondError(w, http.StatusForbidden, err.Error())
	default:
		slog.Error("vault request failed", "component", "vault", "error", err)
		utils.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}
