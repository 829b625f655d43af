package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"umnico/internal/platform/models"
	"umnico/internal/platform/umnico"

	"github.com/rs/zerolog"
)

const accountStatusActive = "active"

var (
	ErrInactiveAccount  = errors.New("subscriptions: account is not active")
	ErrMalformedAccount = errors.New("subscriptions: account payload missing id")
	ErrInvalidStatus    = errors.New("subscriptions: status must be 0 or 1")
	ErrMissingID        = errors.New("subscriptions: subscription id is required")
)

// RemoteError is a non-2xx answer from Umnico.
type RemoteError struct {
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("subscriptions: remote returned %d: %s", e.StatusCode, e.Body)
}

// Remote is the transport the manager needs; *umnico.Client satisfies it.
type Remote interface {
	Do(ctx context.Context, method, endpoint string, body interface{}) (*umnico.Response, error)
}

// Manager wraps the Umnico webhook-management endpoints. Every operation makes
// exactly one remote call and returns the normalized payload on success. On
// failure it logs and returns a nil payload with the cause.
type Manager struct {
	remote   Remote
	identity *Identity
}

func NewManager(remote Remote, identity *Identity) *Manager {
	if identity == nil {
		identity = NewIdentity(0)
	}
	return &Manager{remote: remote, identity: identity}
}

func (m *Manager) Identity() *Identity {
	return m.identity
}

// ResolveIdentity fetches account/me and caches account.id, but only for an
// active account. Safe to call repeatedly.
func (m *Manager) ResolveIdentity(ctx context.Context) (interface{}, error) {
	log := zerolog.Ctx(ctx).With().Str("component", "resolve_identity").Logger()

	resp, err := m.call(ctx, "resolve_identity", http.MethodGet, "account/me", nil)
	if err != nil {
		return nil, err
	}
	log.Debug().Interface("payload", resp.Data).Msg("Account payload received")

	var envelope models.AccountEnvelope
	if err := resp.Decode(&envelope); err != nil {
		log.Error().Err(err).Str("body", string(resp.Body)).Msg("Failed to decode account payload")
		return nil, fmt.Errorf("%w: %v", ErrMalformedAccount, err)
	}
	if envelope.Account == nil || envelope.Account.Status != accountStatusActive {
		status := ""
		if envelope.Account != nil {
			status = envelope.Account.Status
		}
		log.Error().Str("status", status).Msg("Account status check failed")
		return nil, ErrInactiveAccount
	}
	accountID, ok := envelope.Account.ID.Int64()
	if !ok || accountID == 0 {
		log.Error().Str("account_id", envelope.Account.ID.String()).Msg("Active account without numeric id")
		return nil, ErrMalformedAccount
	}

	previous, _ := m.identity.AccountID()
	m.identity.set(accountID)
	log.Info().Int64("account_id", accountID).Int64("previous_account_id", previous).Msg("Account identity resolved")

	return resp.Data, nil
}

// EnsureAccountID returns the cached account id, resolving it first when the
// cache is empty.
func (m *Manager) EnsureAccountID(ctx context.Context) (int64, bool) {
	if id, ok := m.identity.AccountID(); ok {
		return id, true
	}
	if _, err := m.ResolveIdentity(ctx); err != nil {
		return 0, false
	}
	return m.identity.AccountID()
}

func (m *Manager) CreateSubscription(ctx context.Context, hookURL, name string) (interface{}, error) {
	body := map[string]interface{}{"url": hookURL, "name": name}
	resp, err := m.call(ctx, "create_subscription", http.MethodPost, "webhooks/", body)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (m *Manager) ListSubscriptions(ctx context.Context) (interface{}, error) {
	resp, err := m.call(ctx, "list_subscriptions", http.MethodGet, "webhooks/", nil)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// UpdateSubscription replaces url, name and status (1 active, 0 disabled).
func (m *Manager) UpdateSubscription(ctx context.Context, id, hookURL, name string, status int) (interface{}, error) {
	if id == "" {
		return nil, ErrMissingID
	}
	if status != 0 && status != 1 {
		return nil, ErrInvalidStatus
	}
	body := map[string]interface{}{"url": hookURL, "name": name, "status": status}
	resp, err := m.call(ctx, "update_subscription", http.MethodPut, "webhooks/"+url.PathEscape(id), body)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (m *Manager) DeleteSubscription(ctx context.Context, id string) (interface{}, error) {
	if id == "" {
		return nil, ErrMissingID
	}
	resp, err := m.call(ctx, "delete_subscription", http.MethodDelete, "webhooks/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (m *Manager) call(ctx context.Context, op, method, endpoint string, body interface{}) (*umnico.Response, error) {
	log := zerolog.Ctx(ctx).With().
		Str("component", "subscriptions").
		Str("operation", op).
		Logger()

	resp, err := m.remote.Do(ctx, method, endpoint, body)
	if err != nil {
		log.Error().Err(err).Msg("Request failed")
		return nil, err
	}
	if !resp.IsSuccess() {
		log.Error().Int("status_code", resp.StatusCode).Str("body", string(resp.Body)).Msg("Remote rejected request")
		return nil, &RemoteError{StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}

	log.Info().Int("status_code", resp.StatusCode).Msg("Success")
	return resp, nil
}
