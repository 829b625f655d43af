package handlers

import (
	"net/http"

	"umnico/internal/engine/subscriptions"
	"umnico/internal/pkg/errors"
	"umnico/internal/platform/audit"
)

type AccountHandler struct {
	manager *subscriptions.Manager
	audit   *audit.Logger
}

func NewAccountHandler(manager *subscriptions.Manager, auditLogger *audit.Logger) *AccountHandler {
	return &AccountHandler{manager: manager, audit: auditLogger}
}

type AccountResponse struct {
	AccountID int64 `json:"account_id"`
	Resolved  bool  `json:"resolved"`
}

func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.manager.Identity().AccountID()
	errors.WriteJSON(w, http.StatusOK, AccountResponse{AccountID: id, Resolved: ok})
}

func (h *AccountHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	data, err := h.manager.ResolveIdentity(r.Context())
	if err != nil {
		writeManagerError(w, r, err)
		return
	}

	id, _ := h.manager.Identity().AccountID()
	h.audit.Log(r, audit.ActionAccountResolve, audit.ResourceAccount, "", map[string]interface{}{"account_id": id})
	errors.WriteJSON(w, http.StatusOK, data)
}
