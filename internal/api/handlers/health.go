package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"umnico/internal/engine/subscriptions"
)

type HealthHandler struct {
	db       *sql.DB
	identity *subscriptions.Identity
}

func NewHealthHandler(db *sql.DB, identity *subscriptions.Identity) *HealthHandler {
	return &HealthHandler{db: db, identity: identity}
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	status := "healthy"

	if err := h.db.PingContext(r.Context()); err != nil {
		checks["database"] = "unhealthy: " + err.Error()
		status = "degraded"
	} else {
		checks["database"] = "healthy"
	}

	// An unresolved identity is reported but does not fail the check; it
	// resolves lazily on the first inbound event.
	if _, ok := h.identity.AccountID(); ok {
		checks["identity"] = "resolved"
	} else {
		checks["identity"] = "unresolved"
	}

	response := struct {
		Status    string            `json:"status"`
		Timestamp int64             `json:"timestamp"`
		Checks    map[string]string `json:"checks"`
	}{
		Status:    status,
		Timestamp: time.Now().Unix(),
		Checks:    checks,
	}

	statusCode := http.StatusOK
	if status == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}
