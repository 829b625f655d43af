package handlers

import (
	"net/http"
	"strconv"

	"umnico/internal/pkg/errors"
	"umnico/internal/platform/models"
	"umnico/internal/platform/repositories"

	"github.com/rs/zerolog"
)

type DeliveryHandler struct {
	deliveries *repositories.DeliveryRepository
}

func NewDeliveryHandler(deliveries *repositories.DeliveryRepository) *DeliveryHandler {
	return &DeliveryHandler{deliveries: deliveries}
}

func (h *DeliveryHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, err.Error(), nil)
		return
	}

	deliveries, err := h.deliveries.List(r.Context(), limit)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to list deliveries")
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Database error", nil)
		return
	}
	if deliveries == nil {
		deliveries = []*models.Delivery{}
	}

	errors.WriteJSON(w, http.StatusOK, deliveries)
}

func queryLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, strconv.ErrSyntax
	}
	return limit, nil
}
