package handlers

import (
	"fmt"
	"net/http"

	"umnico/internal/engine/subscriptions"
	"umnico/internal/platform/models"
	"umnico/internal/platform/repositories"

	"github.com/rs/zerolog"
)

var deliveryStatuses = []string{
	models.DeliveryHandled,
	models.DeliveryAcknowledged,
	models.DeliveryIgnored,
	models.DeliveryRejected,
	models.DeliveryFailed,
}

// MetricsHandler exports delivery counters in the Prometheus text format.
type MetricsHandler struct {
	deliveries *repositories.DeliveryRepository
	identity   *subscriptions.Identity
}

func NewMetricsHandler(deliveries *repositories.DeliveryRepository, identity *subscriptions.Identity) *MetricsHandler {
	return &MetricsHandler{deliveries: deliveries, identity: identity}
}

func (h *MetricsHandler) Export(w http.ResponseWriter, r *http.Request) {
	counts, err := h.deliveries.CountByStatus(r.Context())
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to count deliveries")
		http.Error(w, "metrics unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "# HELP umnico_up Is the server up\n")
	fmt.Fprintf(w, "# TYPE umnico_up gauge\n")
	fmt.Fprintf(w, "umnico_up 1\n")

	resolved := 0
	if _, ok := h.identity.AccountID(); ok {
		resolved = 1
	}
	fmt.Fprintf(w, "# HELP umnico_identity_resolved Whether the account id is cached\n")
	fmt.Fprintf(w, "# TYPE umnico_identity_resolved gauge\n")
	fmt.Fprintf(w, "umnico_identity_resolved %d\n", resolved)

	fmt.Fprintf(w, "# HELP umnico_deliveries_total Webhook deliveries by outcome\n")
	fmt.Fprintf(w, "# TYPE umnico_deliveries_total counter\n")
	for _, status := range deliveryStatuses {
		fmt.Fprintf(w, "umnico_deliveries_total{status=%q} %d\n", status, counts[status])
	}
}
