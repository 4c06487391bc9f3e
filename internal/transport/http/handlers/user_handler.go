package handlers

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/courierhq/courier/internal/service"
	"github.com/courierhq/courier/internal/transport/http/middleware"
)

type UserHandler struct {
	users *service.UserService
	log   zerolog.Logger
}

func NewUserHandler(users *service.UserService, log zerolog.Logger) *UserHandler {
	return &UserHandler{users: users, log: log}
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	user, err := h.users.Get(r.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "User not found")
		default:
			h.log.Error().Err(err).Msg("get current user")
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	result, err := h.users.Delete(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Msg("delete user")
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}

	h.log.Info().
		Str("user_id", userID.String()).
		Int64("messages", result.Messages).
		Int64("notifications", result.Notifications).
		Int64("history", result.History).
		Msg("user deleted")

	w.WriteHeader(http.StatusNoContent)
}
