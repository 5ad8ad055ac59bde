package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/edgex-labs/edgex/backend/internal/auth"
	"github.com/edgex-labs/edgex/backend/internal/middleware"
	"github.com/edgex-labs/edgex/backend/pkg/utils"
)

// Handler exposes sign up, sign in and sign out.
type Handler struct {
	auth *auth.Service
}

func New(svc *auth.Service) *Handler {
	return &Handler{auth: svc}
}

// RegisterRoutes mounts the identity routes under /auth.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", h.handleSignUp)
		r.Post("/signin", h.handleSignIn)
		r.Post("/signout", h.handleSignOut)
		r.Get("/me", h.handleMe)
	})
}

func (h *Handler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req auth.SignUpRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	session, err := h.auth.SignUp(r.Context(), req)
	if err != nil {
		respondAuthError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, session)
}

func (h *Handler) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req auth.SignInRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	session, err := h.auth.SignIn(r.Context(), req)
	if err != nil {
		respondAuthError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, session)
}

func (h *Handler) handleSignOut(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r)
	if token == "" {
		utils.RespondError(w, http.StatusUnauthorized, "🔐 Please log in first.")
		return
	}
	if err := h.auth.SignOut(r.Context(), token); err != nil {
		respondAuthError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r)
	if token == "" {
		utils.RespondError(w, http.StatusUnauthorized, "🔐 Please log in first.")
		return
	}
	u, err := h.auth.Verify(r.Context(), token)
	if err != nil {
		respondAuthError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"user":        u,
		"displayName": u.DisplayName(),
		"avatar":      u.Avatar(),
	})
}

func respondAuthError(w http.ResponseWriter, err error) {
	var fields auth.FieldErrors
	if errors.As(err, &fields) {
		utils.RespondFieldErrors(w, fields)
		return
	}

	code := auth.Code(err)
	status := http.StatusInternalServerError
	switch code {
	case auth.CodeEmailInUse:
		status = http.StatusConflict
	case auth.CodeInvalidEmail, auth.CodeWeakPassword:
		status = http.StatusBadRequest
	case auth.CodeWrongCredentials, auth.CodeUserNotFound, auth.CodeInvalidToken:
		status = http.StatusUnauthorized
	default:
		slog.Error("auth request failed", "component", "auth", "error", err)
	}
	utils.RespondJSON(w, status, map[string]string{
		"error": auth.Message(err),
		"code":  code,
	})
}
