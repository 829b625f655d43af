package handlers

import (
	"net/http"

	"umnico/internal/pkg/errors"
	"umnico/internal/platform/audit"
	"umnico/internal/platform/models"

	"github.com/rs/zerolog"
)

type AuditHandler struct {
	audit *audit.Logger
}

func NewAuditHandler(auditLogger *audit.Logger) *AuditHandler {
	return &AuditHandler{audit: auditLogger}
}

func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, err.Error(), nil)
		return
	}

	logs, err := h.audit.List(r.Context(), limit)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to list audit logs")
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Database error", nil)
		return
	}
	if logs == nil {
		logs = []*models.AuditLog{}
	}

	errors.WriteJSON(w, http.StatusOK, logs)
}
