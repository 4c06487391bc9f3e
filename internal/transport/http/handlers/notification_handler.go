package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/courierhq/courier/internal/database"
	"github.com/courierhq/courier/internal/domain"
	"github.com/courierhq/courier/internal/service"
	"github.com/courierhq/courier/internal/transport/http/middleware"
)

type NotificationHandler struct {
	notifications *service.NotificationService
	log           zerolog.Logger
}

func NewNotificationHandler(notifications *service.NotificationService, log zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, log: log}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	unreadOnly := false
	if unreadStr := r.URL.Query().Get("unread"); unreadStr != "" {
		parsed, err := strconv.ParseBool(unreadStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_FILTER", "unread must be a boolean")
			return
		}
		unreadOnly = parsed
	}

	var notifications []domain.Notification
	err := database.Retry(r.Context(), func() error {
		var err error
		notifications, err = h.notifications.List(r.Context(), userID, unreadOnly)
		return err
	})
	if err != nil {
		h.log.Error().Err(err).Msg("list notifications")
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":         len(notifications),
		"notifications": notifications,
	})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	notificationID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid notification ID")
		return
	}

	changed, err := h.notifications.MarkRead(r.Context(), userID, notificationID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotificationNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Notification not found")
		case errors.Is(err, service.ErrNotNotificationOwner):
			writeError(w, http.StatusForbidden, "FORBIDDEN", "You can only mark your own notifications as read")
		default:
			h.log.Error().Err(err).Msg("mark notification read")
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"read": true, "changed": changed})
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	count, err := h.notifications.MarkAllRead(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Msg("mark all notifications read")
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"count": count})
}

func (h *NotificationHandler) DeleteAllRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	count, err := h.notifications.DeleteAllRead(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Msg("delete read notifications")
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"count": count})
}
