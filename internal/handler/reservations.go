package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/capitalize-ai/reservation-assistant/internal/middleware"
	"github.com/capitalize-ai/reservation-assistant/internal/model"
	"github.com/capitalize-ai/reservation-assistant/internal/store"
	"github.com/capitalize-ai/reservation-assistant/pkg/logger"
)

// ReservationHandler serves read-only room and reservation lookups.
type ReservationHandler struct {
	store  store.Store
	logger *logger.Logger
}

// NewReservationHandler creates a new reservation handler.
func NewReservationHandler(s store.Store, log *logger.Logger) *ReservationHandler {
	return &ReservationHandler{
		store:  s,
		logger: log,
	}
}

// ListRooms handles GET /api/v1/rooms
func (h *ReservationHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.store.ListRooms(r.Context())
	if err != nil {
		h.logger.Error("failed to list rooms", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list rooms")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"rooms": rooms,
	})
}

// GetReservation handles GET /api/v1/reservations/{ref}
func (h *ReservationHandler) GetReservation(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	if err := middleware.ValidateReference(ref); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.store.GetReservation(r.Context(), ref)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			writeError(w, http.StatusNotFound, "reservation not found")
			return
		}
		h.logger.Error("failed to get reservation", zap.String("reference", ref), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get reservation")
		return
	}

	writeJSON(w, http.StatusOK, res)
}
