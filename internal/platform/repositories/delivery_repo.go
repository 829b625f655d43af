package repositories

import (
	"context"
	"database/sql"
	"time"

	"umnico/internal/platform/models"

	"github.com/google/uuid"
)

type DeliveryRepository struct {
	db *sql.DB
}

func NewDeliveryRepository(db *sql.DB) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

func (r *DeliveryRepository) Create(ctx context.Context, d *models.Delivery) error {
	if d.ID == "" {
		d.ID = "dlv_" + uuid.New().String()
	}
	if d.ReceivedAt == 0 {
		d.ReceivedAt = time.Now().Unix()
	}

	query := `
		INSERT INTO deliveries (id, event_type, account_id, status, reason, record_model, record_id, remote_id, received_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		d.ID, d.EventType, nullString(d.AccountID), d.Status, nullString(d.Reason),
		nullString(d.RecordModel), nullInt64(d.RecordID), nullString(d.RemoteID), d.ReceivedAt)
	return err
}

func (r *DeliveryRepository) List(ctx context.Context, limit int) ([]*models.Delivery, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, event_type, account_id, status, reason, record_model, record_id, remote_id, received_at
		FROM deliveries ORDER BY received_at DESC, rowid DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deliveries []*models.Delivery
	for rows.Next() {
		var d models.Delivery
		var accountID, reason, recordModel, remoteID sql.NullString
		var recordID sql.NullInt64

		if err := rows.Scan(&d.ID, &d.EventType, &accountID, &d.Status, &reason, &recordModel, &recordID, &remoteID, &d.ReceivedAt); err != nil {
			return nil, err
		}
		d.AccountID = accountID.String
		d.Reason = reason.String
		d.RecordModel = recordModel.String
		d.RecordID = recordID.Int64
		d.RemoteID = remoteID.String
		deliveries = append(deliveries, &d)
	}
	return deliveries, rows.Err()
}

func (r *DeliveryRepository) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM deliveries GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt64(n int64) sql.NullInt64 {
	return sql.NullInt64{Int64: n, Valid: n != 0}
}
