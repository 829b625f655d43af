package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"umnico/internal/platform/database"
	"umnico/internal/platform/models"
	"umnico/migrations"

	"github.com/DATA-DOG/go-sqlmock"
	_ "github.com/mattn/go-sqlite3"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	// one connection keeps a single in-memory database
	db.SetMaxOpenConns(1)

	if _, err := database.Migrate(context.Background(), db, migrations.FS); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordStore_CreateLinked(t *testing.T) {
	db := setupTestDB(t)
	store := NewRecordStore(db)
	ctx := context.Background()

	record, link, err := store.CreateLinked(ctx, models.ModelLead, nil, models.SourceUmnico, "L1")
	if err != nil {
		t.Fatalf("CreateLinked() error = %v", err)
	}
	if record.ID == 0 {
		t.Error("Expected record id to be assigned")
	}
	if link.RecordID != record.ID || link.RemoteID != "L1" || !link.NoUpdate {
		t.Errorf("Unexpected link: %+v", link)
	}

	fetched, err := store.Records().GetByID(ctx, models.ModelLead, record.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if fetched == nil || len(fetched.Fields) != 0 {
		t.Errorf("Expected stored lead with empty fields, got %+v", fetched)
	}

	found, err := store.GetByRemoteID(ctx, models.SourceUmnico, "L1")
	if err != nil {
		t.Fatalf("GetByRemoteID() error = %v", err)
	}
	if found == nil || found.Model != models.ModelLead || found.RecordID != record.ID {
		t.Errorf("Expected link to lead %d, got %+v", record.ID, found)
	}
}

func TestRecordStore_DuplicatesWithoutUniqueIndex(t *testing.T) {
	db := setupTestDB(t)
	store := NewRecordStore(db)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, _, err := store.CreateLinked(ctx, models.ModelCustomer, nil, models.SourceUmnico, "C1"); err != nil {
			t.Fatalf("CreateLinked() error = %v", err)
		}
	}

	links, err := store.ExternalIDs().ListByRemoteID(ctx, models.SourceUmnico, "C1")
	if err != nil {
		t.Fatalf("ListByRemoteID() error = %v", err)
	}
	if len(links) != 2 {
		t.Errorf("Expected 2 links, got %d", len(links))
	}
}

func TestRecordStore_UniqueIndexRejectsDuplicate(t *testing.T) {
	db := setupTestDB(t)
	store := NewRecordStore(db)
	ctx := context.Background()

	if err := store.ExternalIDs().EnsureUniqueIndex(ctx); err != nil {
		t.Fatalf("EnsureUniqueIndex() error = %v", err)
	}

	if _, _, err := store.CreateLinked(ctx, models.ModelLead, nil, models.SourceUmnico, "L9"); err != nil {
		t.Fatalf("CreateLinked() error = %v", err)
	}
	_, _, err := store.CreateLinked(ctx, models.ModelLead, nil, models.SourceUmnico, "L9")
	if !errors.Is(err, ErrDuplicateExternalID) {
		t.Fatalf("Expected ErrDuplicateExternalID, got %v", err)
	}

	// the second lead row is rolled back with its link
	count, err := store.Records().Count(ctx, models.ModelLead)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 lead, got %d", count)
	}
}

func TestRecordStore_UnknownModel(t *testing.T) {
	db := setupTestDB(t)
	store := NewRecordStore(db)

	_, _, err := store.CreateLinked(context.Background(), "invoice", nil, models.SourceUmnico, "X")
	if !errors.Is(err, ErrUnknownModel) {
		t.Errorf("Expected ErrUnknownModel, got %v", err)
	}
}

func TestRecordStore_RollsBackOnLinkFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO leads").WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec("INSERT INTO external_ids").
		WithArgs(models.ModelLead, int64(7), "L1", models.SourceUmnico, sqlmock.AnyArg()).
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	store := NewRecordStore(db)
	if _, _, err := store.CreateLinked(context.Background(), models.ModelLead, nil, models.SourceUmnico, "L1"); err == nil {
		t.Error("Expected error from link insert")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestExternalIDRepository_GetByRemoteID_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewExternalIDRepository(db)

	link, err := repo.GetByRemoteID(context.Background(), models.SourceUmnico, "missing")
	if err != nil {
		t.Fatalf("GetByRemoteID() error = %v", err)
	}
	if link != nil {
		t.Errorf("Expected nil link, got %+v", link)
	}
}

func TestDeliveryRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDeliveryRepository(db)
	ctx := context.Background()

	deliveries := []*models.Delivery{
		{EventType: models.EventMessageIncoming, AccountID: "1", Status: models.DeliveryHandled, RecordModel: models.ModelLead, RecordID: 3, RemoteID: "L1"},
		{EventType: models.EventLeadChanged, Status: models.DeliveryIgnored, Reason: "event type not processed"},
		{EventType: models.EventMessageIncoming, AccountID: "2", Status: models.DeliveryRejected, Reason: "account mismatch"},
	}
	for _, d := range deliveries {
		if err := repo.Create(ctx, d); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if d.ID == "" {
			t.Error("Expected delivery id to be assigned")
		}
	}

	listed, err := repo.List(ctx, 10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("Expected 3 deliveries, got %d", len(listed))
	}
	if listed[0].Status != models.DeliveryRejected {
		t.Errorf("Expected newest delivery first, got %s", listed[0].Status)
	}

	counts, err := repo.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("CountByStatus() error = %v", err)
	}
	if counts[models.DeliveryHandled] != 1 || counts[models.DeliveryIgnored] != 1 || counts[models.DeliveryRejected] != 1 {
		t.Errorf("Unexpected counts: %v", counts)
	}
}

func TestDeliveryRepository_CreateError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO deliveries").WillReturnError(sql.ErrConnDone)

	repo := NewDeliveryRepository(db)
	if err := repo.Create(context.Background(), &models.Delivery{EventType: "x", Status: models.DeliveryFailed}); err == nil {
		t.Error("Expected error")
	}
}

func TestRecordRepository_GetByID_CorruptFields(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "fields", "created_at"}).AddRow(3, "{not json", 1700000000)
	mock.ExpectQuery("SELECT id, fields, created_at FROM leads WHERE id = ?").
		WithArgs(int64(3)).
		WillReturnRows(rows)

	record, err := NewRecordRepository(db).GetByID(context.Background(), models.ModelLead, 3)
	if err == nil {
		t.Errorf("Expected decode error, got record %+v", record)
	}
	if record != nil {
		t.Errorf("Expected nil record, got %+v", record)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}
