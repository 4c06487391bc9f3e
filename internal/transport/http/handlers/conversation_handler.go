package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/courierhq/courier/internal/database"
	"github.com/courierhq/courier/internal/service"
	"github.com/courierhq/courier/internal/transport/http/middleware"
	"github.com/courierhq/courier/pkg/pagination"
	"github.com/courierhq/courier/pkg/validator"
)

type ConversationHandler struct {
	conversations *service.ConversationService
	messages      *service.MessageService
	log           zerolog.Logger
}

func NewConversationHandler(conversations *service.ConversationService, messages *service.MessageService, log zerolog.Logger) *ConversationHandler {
	return &ConversationHandler{
		conversations: conversations,
		messages:      messages,
		log:           log,
	}
}

func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input struct {
		ParticipantIDs []uuid.UUID `json:"participant_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if errs := validator.ValidateParticipants(userID, input.ParticipantIDs); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	conv, err := h.conversations.Create(r.Context(), userID, input.ParticipantIDs)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTooFewParticipants):
			writeError(w, http.StatusBadRequest, "TOO_FEW_PARTICIPANTS", "A conversation needs at least 2 distinct participants")
		case errors.Is(err, service.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Participant not found")
		default:
			h.log.Error().Err(err).Msg("create conversation")
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusCreated, conv)
}

func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	limit := parseLimit(r)
	cursor := r.URL.Query().Get("cursor")

	var resp *service.ConversationPageResponse
	err := database.Retry(r.Context(), func() error {
		var err error
		resp, err = h.conversations.List(r.Context(), userID, cursor, limit)
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, pagination.ErrInvalidCursor):
			writeError(w, http.StatusBadRequest, "INVALID_CURSOR", "Invalid pagination cursor")
		default:
			h.log.Error().Err(err).Msg("list conversations")
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *ConversationHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	convID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid conversation ID")
		return
	}

	var input struct {
		Body     string     `json:"body"`
		Type     string     `json:"type"`
		ParentID *uuid.UUID `json:"parent_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if errs := validator.ValidateMessageBody(input.Body); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	msg, err := h.messages.Send(r.Context(), userID, convID, input.Body, input.Type, input.ParentID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrConversationNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Conversation not found")
		case errors.Is(err, service.ErrNotParticipant):
			writeError(w, http.StatusForbidden, "FORBIDDEN", "You are not a participant of this conversation")
		case errors.Is(err, service.ErrEmptyBody):
			writeError(w, http.StatusBadRequest, "EMPTY_BODY", "Message body must not be empty")
		case errors.Is(err, service.ErrInvalidMessageType):
			writeError(w, http.StatusBadRequest, "INVALID_TYPE", "Invalid message type")
		case errors.Is(err, service.ErrParentNotFound):
			writeError(w, http.StatusBadRequest, "PARENT_NOT_FOUND", "Parent message not found")
		case errors.Is(err, service.ErrParentMismatch):
			writeError(w, http.StatusBadRequest, "PARENT_MISMATCH", "Parent message belongs to another conversation")
		default:
			h.log.Error().Err(err).Msg("send message")
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

func (h *ConversationHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	convID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid conversation ID")
		return
	}

	query, errs := parseMessageQuery(r)
	if errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	var resp *service.MessagePageResponse
	err = database.Retry(r.Context(), func() error {
		var err error
		resp, err = h.conversations.Messages(r.Context(), userID, convID, query)
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrConversationNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Conversation not found")
		case errors.Is(err, service.ErrNotParticipant):
			writeError(w, http.StatusForbidden, "FORBIDDEN", "You are not a participant of this conversation")
		case errors.Is(err, pagination.ErrInvalidCursor):
			writeError(w, http.StatusBadRequest, "INVALID_CURSOR", "Invalid pagination cursor")
		default:
			h.log.Error().Err(err).Msg("list messages")
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func parseMessageQuery(r *http.Request) (service.MessageQuery, validator.ValidationErrors) {
	errs := make(validator.ValidationErrors)
	q := r.URL.Query()

	query := service.MessageQuery{
		Search: q.Get("search"),
		Cursor: q.Get("cursor"),
		Limit:  parseLimit(r),
	}

	if senderStr := q.Get("sender"); senderStr != "" {
		id, err := uuid.Parse(senderStr)
		if err != nil {
			errs.Add("sender", "Invalid sender ID")
		} else {
			query.SenderID = &id
		}
	}

	if afterStr := q.Get("sent_after"); afterStr != "" {
		t, err := time.Parse(time.RFC3339, afterStr)
		if err != nil {
			errs.Add("sent_after", "Invalid timestamp, expected RFC 3339")
		} else {
			query.SentAfter = &t
		}
	}

	if beforeStr := q.Get("sent_before"); beforeStr != "" {
		t, err := time.Parse(time.RFC3339, beforeStr)
		if err != nil {
			errs.Add("sent_before", "Invalid timestamp, expected RFC 3339")
		} else {
			query.SentBefore = &t
		}
	}

	if unreadStr := q.Get("unread"); unreadStr != "" {
		unread, err := strconv.ParseBool(unreadStr)
		if err != nil {
			errs.Add("unread", "Invalid boolean")
		} else {
			query.Unread = &unread
		}
	}

	switch q.Get("ordering") {
	case "", "desc":
	case "asc":
		query.Ascending = true
	default:
		errs.Add("ordering", "Ordering must be asc or desc")
	}

	switch q.Get("dir") {
	case "", "next":
	case "prev":
		query.Before = true
	default:
		errs.Add("dir", "Direction must be next or prev")
	}

	return query, errs
}

func parseLimit(r *http.Request) int {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		return 0
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		return 0
	}
	return limit
}
