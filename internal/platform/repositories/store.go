package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"umnico/internal/platform/models"
)

// RecordStore writes a record and its external id link atomically.
type RecordStore struct {
	db          *sql.DB
	records     *RecordRepository
	externalIDs *ExternalIDRepository
}

func NewRecordStore(db *sql.DB) *RecordStore {
	return &RecordStore{
		db:          db,
		records:     NewRecordRepository(db),
		externalIDs: NewExternalIDRepository(db),
	}
}

func (s *RecordStore) Records() *RecordRepository {
	return s.records
}

func (s *RecordStore) ExternalIDs() *ExternalIDRepository {
	return s.externalIDs
}

func (s *RecordStore) CreateLinked(ctx context.Context, model string, fields map[string]interface{}, source, remoteID string) (*models.Record, *models.ExternalID, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	record, err := s.records.CreateTx(ctx, tx, model, fields)
	if err != nil {
		return nil, nil, fmt.Errorf("create %s: %w", model, err)
	}

	link := &models.ExternalID{
		Model:    model,
		RecordID: record.ID,
		RemoteID: remoteID,
		Source:   source,
	}
	if err := s.externalIDs.CreateTx(ctx, tx, link); err != nil {
		return nil, nil, fmt.Errorf("link %s %d: %w", model, record.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	return record, link, nil
}

func (s *RecordStore) GetByRemoteID(ctx context.Context, source, remoteID string) (*models.ExternalID, error) {
	return s.externalIDs.GetByRemoteID(ctx, source, remoteID)
}
