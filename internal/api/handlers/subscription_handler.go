package handlers

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"
	"strings"

	apiContext "umnico/internal/api/context"
	"umnico/internal/engine/subscriptions"
	"umnico/internal/pkg/errors"
	"umnico/internal/pkg/validator"
	"umnico/internal/platform/audit"
	"umnico/internal/platform/umnico"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
)

type SubscriptionHandler struct {
	manager *subscriptions.Manager
	audit   *audit.Logger
}

func NewSubscriptionHandler(manager *subscriptions.Manager, auditLogger *audit.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{manager: manager, audit: auditLogger}
}

type SubscriptionRequest struct {
	URL    string `json:"url"`
	Name   string `json:"name"`
	Status *int   `json:"status,omitempty"`
}

func (req *SubscriptionRequest) validate() error {
	if err := validator.IsCallbackURL(req.URL); err != nil {
		return err
	}
	return validator.IsSubscriptionName(req.Name)
}

func (h *SubscriptionHandler) List(w http.ResponseWriter, r *http.Request) {
	data, err := h.manager.ListSubscriptions(r.Context())
	if err != nil {
		writeManagerError(w, r, err)
		return
	}
	errors.WriteJSON(w, http.StatusOK, data)
}

func (h *SubscriptionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req SubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	if err := req.validate(); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, err.Error(), nil)
		return
	}

	data, err := h.manager.CreateSubscription(r.Context(), strings.TrimSpace(req.URL), strings.TrimSpace(req.Name))
	if err != nil {
		writeManagerError(w, r, err)
		return
	}

	h.audit.Log(r, audit.ActionSubscriptionCreate, audit.ResourceSubscription, subscriptionID(data), map[string]interface{}{
		"url":  req.URL,
		"name": req.Name,
	})
	errors.WriteJSON(w, http.StatusCreated, data)
}

func (h *SubscriptionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := routeParam(r, "id")

	var req SubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	if err := req.validate(); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, err.Error(), nil)
		return
	}
	if req.Status == nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "status is required", nil)
		return
	}

	data, err := h.manager.UpdateSubscription(r.Context(), id, strings.TrimSpace(req.URL), strings.TrimSpace(req.Name), *req.Status)
	if err != nil {
		writeManagerError(w, r, err)
		return
	}

	h.audit.Log(r, audit.ActionSubscriptionUpdate, audit.ResourceSubscription, id, map[string]interface{}{
		"url":    req.URL,
		"name":   req.Name,
		"status": *req.Status,
	})
	errors.WriteJSON(w, http.StatusOK, data)
}

func (h *SubscriptionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := routeParam(r, "id")

	data, err := h.manager.DeleteSubscription(r.Context(), id)
	if err != nil {
		writeManagerError(w, r, err)
		return
	}

	h.audit.Log(r, audit.ActionSubscriptionDelete, audit.ResourceSubscription, id, nil)
	errors.WriteJSON(w, http.StatusOK, data)
}

func routeParam(r *http.Request, name string) string {
	params, ok := r.Context().Value(apiContext.Params).(httprouter.Params)
	if !ok {
		return ""
	}
	return params.ByName(name)
}

func subscriptionID(data interface{}) string {
	m, ok := data.(map[string]interface{})
	if !ok {
		return ""
	}
	switch id := m["id"].(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	}
	return ""
}

// writeManagerError maps subscription manager failures onto the admin API
// error envelope.
func writeManagerError(w http.ResponseWriter, r *http.Request, err error) {
	var remoteErr *subscriptions.RemoteError
	switch {
	case stderrors.Is(err, subscriptions.ErrInvalidStatus), stderrors.Is(err, subscriptions.ErrMissingID):
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, err.Error(), nil)
	case stderrors.As(err, &remoteErr):
		errors.WriteError(w, http.StatusBadGateway, errors.ErrCodeUpstream, "Umnico rejected the request", map[string]interface{}{
			"status": remoteErr.StatusCode,
			"body":   remoteErr.Body,
		})
	case stderrors.Is(err, umnico.ErrTransport),
		stderrors.Is(err, subscriptions.ErrInactiveAccount),
		stderrors.Is(err, subscriptions.ErrMalformedAccount):
		errors.WriteError(w, http.StatusBadGateway, errors.ErrCodeUpstream, err.Error(), nil)
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Subscription request failed")
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Internal error", nil)
	}
}
