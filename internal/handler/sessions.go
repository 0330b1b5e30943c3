package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/capitalize-ai/reservation-assistant/internal/middleware"
	"github.com/capitalize-ai/reservation-assistant/internal/model"
	"github.com/capitalize-ai/reservation-assistant/internal/service"
	"github.com/capitalize-ai/reservation-assistant/pkg/logger"
)

// TranscriptReader replays the published transcript of a session.
type TranscriptReader interface {
	Transcript(ctx context.Context, sessionID string, limit int) ([]model.Message, error)
}

// SessionHandler handles session inspection endpoints.
type SessionHandler struct {
	conversations *service.ConversationService
	messages      *service.MessageService
	transcripts   TranscriptReader
	logger        *logger.Logger
}

// NewSessionHandler creates a new session handler. transcripts may be nil.
func NewSessionHandler(
	convSvc *service.ConversationService,
	msgSvc *service.MessageService,
	transcripts TranscriptReader,
	log *logger.Logger,
) *SessionHandler {
	return &SessionHandler{
		conversations: convSvc,
		messages:      msgSvc,
		transcripts:   transcripts,
		logger:        log,
	}
}

// Get handles GET /api/v1/sessions/{id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := middleware.ValidateSessionID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conv, err := h.conversations.Get(r.Context(), id)
	if err != nil {
		h.writeSessionError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, &model.SessionResponse{
		Conversation: *conv,
		MessageCount: len(conv.Messages),
	})
}

// Delete handles DELETE /api/v1/sessions/{id}
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := middleware.ValidateSessionID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.messages.Reset(r.Context(), id); err != nil {
		h.writeSessionError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Transcript handles GET /api/v1/sessions/{id}/transcript
func (h *SessionHandler) Transcript(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := middleware.ValidateSessionID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if h.transcripts == nil {
		writeError(w, http.StatusServiceUnavailable, "transcript sink not configured")
		return
	}

	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	msgs, err := h.transcripts.Transcript(r.Context(), id, limit)
	if err != nil {
		h.logger.Error("failed to read transcript", zap.String("session_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read transcript")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": id,
		"messages":   msgs,
	})
}

func (h *SessionHandler) writeSessionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "session busy")
	default:
		h.logger.Error("session request failed",
			zap.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
