package handlers

import (
	"io"
	"net/http"

	"umnico/internal/engine/events"
	"umnico/internal/pkg/errors"
	"umnico/internal/platform/repositories"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const maxWebhookBody = 1 << 20

// WebhookHandler receives Umnico event deliveries. Every delivery is
// acknowledged with 200 whatever its outcome; the outcome goes to the
// deliveries table and the log instead.
type WebhookHandler struct {
	dispatcher *events.Dispatcher
	deliveries *repositories.DeliveryRepository
}

func NewWebhookHandler(dispatcher *events.Dispatcher, deliveries *repositories.DeliveryRepository) *WebhookHandler {
	return &WebhookHandler{dispatcher: dispatcher, deliveries: deliveries}
}

func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	deliveryID := "dlv_" + uuid.New().String()
	log := zerolog.Ctx(r.Context()).With().Str("delivery_id", deliveryID).Logger()
	ctx := log.WithContext(r.Context())

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		log.Error().Err(err).Msg("Failed to read webhook body")
	}

	result := h.dispatcher.Dispatch(ctx, body)

	delivery := result.Delivery()
	delivery.ID = deliveryID
	if err := h.deliveries.Create(ctx, delivery); err != nil {
		log.Error().Err(err).Msg("Failed to record delivery")
	}

	errors.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
