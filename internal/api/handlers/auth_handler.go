package handlers

import (
	"encoding/json"
	"net/http"

	"umnico/internal/pkg/errors"
	"umnico/internal/platform/auth"
	"umnico/internal/platform/config"

	"github.com/rs/zerolog"
)

type AuthHandler struct {
	admin    config.AdminConfig
	tokenSvc *auth.TokenService
	ttl      int64
}

func NewAuthHandler(cfg *config.Config, tokenSvc *auth.TokenService) *AuthHandler {
	return &AuthHandler{
		admin:    cfg.Admin,
		tokenSvc: tokenSvc,
		ttl:      int64(cfg.JWT.AccessTokenTTL.Seconds()),
	}
}

type TokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	if err := auth.CheckAdmin(h.admin, req.Username, req.Password); err != nil {
		zerolog.Ctx(r.Context()).Warn().Str("username", req.Username).Msg("Rejected admin login")
		errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Invalid credentials", nil)
		return
	}

	token, err := h.tokenSvc.GenerateAccessToken(req.Username, auth.RoleAdmin)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to issue token")
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to issue token", nil)
		return
	}

	errors.WriteJSON(w, http.StatusOK, TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   h.ttl,
	})
}
