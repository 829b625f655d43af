package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"umnico/internal/platform/models"

	"github.com/mattn/go-sqlite3"
)

// ErrDuplicateExternalID is returned when the unique index on
// (source, remote_id) rejects a link.
var ErrDuplicateExternalID = errors.New("repositories: external id already linked")

type ExternalIDRepository struct {
	db *sql.DB
}

func NewExternalIDRepository(db *sql.DB) *ExternalIDRepository {
	return &ExternalIDRepository{db: db}
}

func (r *ExternalIDRepository) Create(ctx context.Context, link *models.ExternalID) error {
	return createExternalID(ctx, r.db, link)
}

func (r *ExternalIDRepository) CreateTx(ctx context.Context, tx *sql.Tx, link *models.ExternalID) error {
	return createExternalID(ctx, tx, link)
}

func createExternalID(ctx context.Context, db execer, link *models.ExternalID) error {
	link.NoUpdate = true
	link.CreatedAt = time.Now().Unix()

	res, err := db.ExecContext(ctx, `
		INSERT INTO external_ids (model, record_id, remote_id, source, noupdate, created_at)
		VALUES (?, ?, ?, ?, 1, ?)
	`, link.Model, link.RecordID, link.RemoteID, link.Source, link.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateExternalID
		}
		return err
	}

	link.ID, err = res.LastInsertId()
	return err
}

// GetByRemoteID returns the oldest link for the remote id, or nil when none.
func (r *ExternalIDRepository) GetByRemoteID(ctx context.Context, source, remoteID string) (*models.ExternalID, error) {
	link := &models.ExternalID{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, model, record_id, remote_id, source, noupdate, created_at
		FROM external_ids WHERE source = ? AND remote_id = ?
		ORDER BY id ASC LIMIT 1
	`, source, remoteID).Scan(&link.ID, &link.Model, &link.RecordID, &link.RemoteID, &link.Source, &link.NoUpdate, &link.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return link, nil
}

func (r *ExternalIDRepository) ListByRemoteID(ctx context.Context, source, remoteID string) ([]*models.ExternalID, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, model, record_id, remote_id, source, noupdate, created_at
		FROM external_ids WHERE source = ? AND remote_id = ?
		ORDER BY id ASC
	`, source, remoteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []*models.ExternalID
	for rows.Next() {
		var link models.ExternalID
		if err := rows.Scan(&link.ID, &link.Model, &link.RecordID, &link.RemoteID, &link.Source, &link.NoUpdate, &link.CreatedAt); err != nil {
			return nil, err
		}
		links = append(links, &link)
	}
	return links, rows.Err()
}

// EnsureUniqueIndex installs the (source, remote_id) uniqueness constraint.
// It fails if duplicate links already exist.
func (r *ExternalIDRepository) EnsureUniqueIndex(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `CREATE UNIQUE INDEX IF NOT EXISTS ux_external_ids_source_remote ON external_ids (source, remote_id)`)
	return err
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
