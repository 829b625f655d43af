package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"umnico/internal/platform/models"
)

var ErrUnknownModel = errors.New("repositories: unknown model")

var recordTables = map[string]string{
	models.ModelLead:     "leads",
	models.ModelCustomer: "customers",
}

func tableFor(model string) (string, error) {
	table, ok := recordTables[model]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownModel, model)
	}
	return table, nil
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type RecordRepository struct {
	db *sql.DB
}

func NewRecordRepository(db *sql.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

func (r *RecordRepository) Create(ctx context.Context, model string, fields map[string]interface{}) (*models.Record, error) {
	return createRecord(ctx, r.db, model, fields)
}

func (r *RecordRepository) CreateTx(ctx context.Context, tx *sql.Tx, model string, fields map[string]interface{}) (*models.Record, error) {
	return createRecord(ctx, tx, model, fields)
}

func createRecord(ctx context.Context, db execer, model string, fields map[string]interface{}) (*models.Record, error) {
	table, err := tableFor(model)
	if err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]interface{}{}
	}

	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}

	record := &models.Record{
		Model:     model,
		Fields:    fields,
		CreatedAt: time.Now().Unix(),
	}

	res, err := db.ExecContext(ctx, `INSERT INTO `+table+` (fields, created_at) VALUES (?, ?)`, string(fieldsJSON), record.CreatedAt)
	if err != nil {
		return nil, err
	}
	record.ID, err = res.LastInsertId()
	if err != nil {
		return nil, err
	}

	return record, nil
}

func (r *RecordRepository) GetByID(ctx context.Context, model string, id int64) (*models.Record, error) {
	table, err := tableFor(model)
	if err != nil {
		return nil, err
	}

	record := &models.Record{Model: model}
	var fieldsStr string
	err = r.db.QueryRowContext(ctx, `SELECT id, fields, created_at FROM `+table+` WHERE id = ?`, id).
		Scan(&record.ID, &fieldsStr, &record.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	if err := json.Unmarshal([]byte(fieldsStr), &record.Fields); err != nil {
		return nil, fmt.Errorf("decode %s %d fields: %w", model, id, err)
	}
	return record, nil
}

func (r *RecordRepository) Count(ctx context.Context, model string) (int, error) {
	table, err := tableFor(model)
	if err != nil {
		return 0, err
	}

	var n int
	err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n)
	return n, err
}
