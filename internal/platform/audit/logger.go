package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"net"
	"net/http"
	"time"

	apiContext "umnico/internal/api/context"
	"umnico/internal/platform/auth"
	"umnico/internal/platform/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	ActionSubscriptionCreate = "subscription.create"
	ActionSubscriptionUpdate = "subscription.update"
	ActionSubscriptionDelete = "subscription.delete"
	ActionAccountResolve     = "account.resolve"

	ResourceSubscription = "subscription"
	ResourceAccount      = "account"
)

type Logger struct {
	db *sql.DB
}

func NewLogger(db *sql.DB) *Logger {
	return &Logger{db: db}
}

// Log records an admin action. Failures are logged and never surface to the
// caller; the action itself already happened remotely.
func (l *Logger) Log(r *http.Request, action, resourceType, resourceID string, metadata map[string]interface{}) *models.AuditLog {
	ctx := r.Context()

	actor := "anonymous"
	if claims, ok := ctx.Value(apiContext.Claims).(*auth.Claims); ok && claims.Subject != "" {
		actor = claims.Subject
	}

	entry := &models.AuditLog{
		ID:           "audit_" + uuid.New().String(),
		Actor:        actor,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Metadata:     metadata,
		IPAddress:    clientIP(r),
		CreatedAt:    time.Now().Unix(),
	}

	if err := l.insert(ctx, entry); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("action", action).Msg("Failed to write audit log")
	}
	return entry
}

func (l *Logger) insert(ctx context.Context, e *models.AuditLog) error {
	query := `
		INSERT INTO audit_logs (id, actor, action, resource_type, resource_id, metadata, ip_address, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	metaJSON, err := json.Marshal(e.Metadata)
	if err != nil {
		return err
	}
	_, err = l.db.ExecContext(ctx, query, e.ID, e.Actor, e.Action, e.ResourceType, e.ResourceID, string(metaJSON), e.IPAddress, e.CreatedAt)
	return err
}

func (l *Logger) List(ctx context.Context, limit int) ([]*models.AuditLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, actor, action, resource_type, resource_id, metadata, ip_address, created_at
		FROM audit_logs ORDER BY created_at DESC, rowid DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*models.AuditLog
	for rows.Next() {
		e := &models.AuditLog{}
		var resourceID, metadata, ip sql.NullString
		if err := rows.Scan(&e.ID, &e.Actor, &e.Action, &e.ResourceType, &resourceID, &metadata, &ip, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.ResourceID = resourceID.String
		e.IPAddress = ip.String
		if metadata.Valid && metadata.String != "" {
			json.Unmarshal([]byte(metadata.String), &e.Metadata)
		}
		logs = append(logs, e)
	}
	return logs, rows.Err()
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
