package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/courierhq/courier/internal/database"
	"github.com/courierhq/courier/internal/domain"
	"github.com/courierhq/courier/internal/service"
	"github.com/courierhq/courier/internal/transport/http/middleware"
	"github.com/courierhq/courier/pkg/validator"
)

type MessageHandler struct {
	messages *service.MessageService
	log      zerolog.Logger
}

func NewMessageHandler(messages *service.MessageService, log zerolog.Logger) *MessageHandler {
	return &MessageHandler{messages: messages, log: log}
}

func (h *MessageHandler) Edit(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	messageID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid message ID")
		return
	}

	var input struct {
		Body string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if errs := validator.ValidateMessageBody(input.Body); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	msg, err := h.messages.Edit(r.Context(), userID, messageID, input.Body)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMessageNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Message not found")
		case errors.Is(err, service.ErrNotMessageSender):
			writeError(w, http.StatusForbidden, "FORBIDDEN", "You can only edit your own messages")
		case errors.Is(err, service.ErrEmptyBody):
			writeError(w, http.StatusBadRequest, "EMPTY_BODY", "Message body must not be empty")
		default:
			h.log.Error().Err(err).Msg("edit message")
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusOK, msg)
}

func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	messageID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid message ID")
		return
	}

	changed, err := h.messages.MarkRead(r.Context(), userID, messageID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMessageNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Message not found")
		case errors.Is(err, service.ErrNotMessageReceiver):
			writeError(w, http.StatusForbidden, "FORBIDDEN", "You can only mark your own received messages as read")
		default:
			h.log.Error().Err(err).Msg("mark message read")
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"read": true, "changed": changed})
}

func (h *MessageHandler) Unread(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var messages []domain.Message
	err := database.Retry(r.Context(), func() error {
		var err error
		messages, err = h.messages.Unread(r.Context(), userID)
		return err
	})
	if err != nil {
		h.log.Error().Err(err).Msg("list unread messages")
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":    len(messages),
		"messages": messages,
	})
}

func (h *MessageHandler) History(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	messageID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid message ID")
		return
	}

	var history []domain.MessageHistory
	err = database.Retry(r.Context(), func() error {
		var err error
		history, err = h.messages.History(r.Context(), userID, messageID)
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMessageNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Message not found")
		case errors.Is(err, service.ErrNotParticipant):
			writeError(w, http.StatusForbidden, "FORBIDDEN", "You are not a participant of this conversation")
		default:
			h.log.Error().Err(err).Msg("list message history")
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"history": history})
}
