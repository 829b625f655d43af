package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"umnico/internal/engine/linker"
	"umnico/internal/platform/database"
	"umnico/internal/platform/models"
	"umnico/internal/platform/repositories"
	"umnico/migrations"

	_ "github.com/mattn/go-sqlite3"
)

type MockAccounts struct {
	id int64
	ok bool
}

func (m *MockAccounts) EnsureAccountID(ctx context.Context) (int64, bool) {
	return m.id, m.ok
}

type MockLinker struct {
	leads     []string
	customers int
	err       error
	panics    bool
}

func (m *MockLinker) CreateLead(ctx context.Context, leadID string, message json.RawMessage) (*linker.Result, error) {
	if m.panics {
		panic("boom")
	}
	m.leads = append(m.leads, leadID)
	if m.err != nil {
		return nil, m.err
	}
	return &linker.Result{Outcome: linker.OutcomeCreated, Model: models.ModelLead, RecordID: 1, RemoteID: leadID}, nil
}

func (m *MockLinker) CreateCustomer(ctx context.Context, message json.RawMessage) (*linker.Result, error) {
	m.customers++
	if m.err != nil {
		return nil, m.err
	}
	return &linker.Result{Outcome: linker.OutcomeCreated, Model: models.ModelCustomer, RecordID: 2, RemoteID: "C1"}, nil
}

func incoming(accountID int64, isNewLead, isNewCustomer bool, leadID string) []byte {
	return []byte(fmt.Sprintf(
		`{"type":"message.incoming","accountId":%d,"isNewLead":%t,"isNewCustomer":%t,"leadId":%q,"message":{"sender":{"customerId":"C1"}}}`,
		accountID, isNewLead, isNewCustomer, leadID,
	))
}

func TestDispatcher_MessageIncoming(t *testing.T) {
	tests := []struct {
		name      string
		payload   []byte
		accounts  *MockAccounts
		status    string
		class     Classification
		leads     int
		customers int
	}{
		{
			name:     "New Lead",
			payload:  incoming(7, true, false, "L1"),
			accounts: &MockAccounts{id: 7, ok: true},
			status:   models.DeliveryHandled,
			class:    ClassNewLead,
			leads:    1,
		},
		{
			name:      "New Customer",
			payload:   incoming(7, false, true, ""),
			accounts:  &MockAccounts{id: 7, ok: true},
			status:    models.DeliveryHandled,
			class:     ClassNewCustomer,
			customers: 1,
		},
		{
			name:     "Lead Takes Priority",
			payload:  incoming(7, true, true, "L2"),
			accounts: &MockAccounts{id: 7, ok: true},
			status:   models.DeliveryHandled,
			class:    ClassNewLead,
			leads:    1,
		},
		{
			name:     "Neither Flag",
			payload:  incoming(7, false, false, ""),
			accounts: &MockAccounts{id: 7, ok: true},
			status:   models.DeliveryAcknowledged,
			class:    ClassNone,
		},
		{
			name:     "Account Mismatch",
			payload:  incoming(8, true, false, "L1"),
			accounts: &MockAccounts{id: 7, ok: true},
			status:   models.DeliveryRejected,
		},
		{
			name:     "Identity Unresolved",
			payload:  incoming(7, true, false, "L1"),
			accounts: &MockAccounts{},
			status:   models.DeliveryRejected,
		},
		{
			name:      "Non Literal Lead Flag Falls Through",
			payload:   []byte(`{"type":"message.incoming","accountId":7,"isNewLead":"true","isNewCustomer":true,"message":{"sender":{"customerId":"C1"}}}`),
			accounts:  &MockAccounts{id: 7, ok: true},
			status:    models.DeliveryHandled,
			class:     ClassNewCustomer,
			customers: 1,
		},
		{
			name:      "Bad Lead ID Ignored On Customer Path",
			payload:   []byte(`{"type":"message.incoming","accountId":7,"isNewCustomer":true,"leadId":{"x":1},"message":{"sender":{"customerId":"C1"}}}`),
			accounts:  &MockAccounts{id: 7, ok: true},
			status:    models.DeliveryHandled,
			class:     ClassNewCustomer,
			customers: 1,
		},
		{
			name:     "Bad Lead ID On Lead Path",
			payload:  []byte(`{"type":"message.incoming","accountId":7,"isNewLead":true,"leadId":{"x":1}}`),
			accounts: &MockAccounts{id: 7, ok: true},
			status:   models.DeliveryRejected,
			class:    ClassNewLead,
		},
		{
			name:     "Malformed Payload",
			payload:  []byte(`{"type":"message.incoming","isNewLead":"yes"}`),
			accounts: &MockAccounts{id: 7, ok: true},
			status:   models.DeliveryRejected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockLinker := &MockLinker{}
			d := NewDispatcher(tt.accounts, mockLinker)

			res := d.Dispatch(context.Background(), tt.payload)
			if res.Status != tt.status {
				t.Errorf("Expected status %s, got %s (%s)", tt.status, res.Status, res.Reason)
			}
			if res.Classification != tt.class {
				t.Errorf("Expected class %s, got %s", tt.class, res.Classification)
			}
			if len(mockLinker.leads) != tt.leads {
				t.Errorf("Expected %d leads, got %d", tt.leads, len(mockLinker.leads))
			}
			if mockLinker.customers != tt.customers {
				t.Errorf("Expected %d customers, got %d", tt.customers, mockLinker.customers)
			}
		})
	}
}

func TestDispatcher_UnprocessedTypes(t *testing.T) {
	accounts := &MockAccounts{id: 7, ok: true}
	mockLinker := &MockLinker{}
	d := NewDispatcher(accounts, mockLinker)

	for _, eventType := range unprocessedTypes {
		t.Run(eventType, func(t *testing.T) {
			// other account ids are not validated for these routes
			payload := []byte(fmt.Sprintf(`{"type":%q,"accountId":999,"isNewLead":true,"leadId":"L1"}`, eventType))
			res := d.Dispatch(context.Background(), payload)
			if res.Status != models.DeliveryIgnored {
				t.Errorf("Expected ignored, got %s", res.Status)
			}
			if res.EventType != eventType {
				t.Errorf("Expected event type %s, got %s", eventType, res.EventType)
			}
		})
	}

	if len(mockLinker.leads) != 0 || mockLinker.customers != 0 {
		t.Error("Expected no materialization for unprocessed types")
	}
}

func TestDispatcher_UnknownAndMalformed(t *testing.T) {
	d := NewDispatcher(&MockAccounts{id: 7, ok: true}, &MockLinker{})

	res := d.Dispatch(context.Background(), []byte(`{"type":"chat.archived"}`))
	if res.Status != models.DeliveryIgnored || res.Reason != "unrouted event type" {
		t.Errorf("Expected unrouted ignore, got %s (%s)", res.Status, res.Reason)
	}

	res = d.Dispatch(context.Background(), []byte(`not json`))
	if res.Status != models.DeliveryRejected || res.Err == nil {
		t.Errorf("Expected rejected with error, got %s (%v)", res.Status, res.Err)
	}
}

func TestDispatcher_LinkerFailureIsSwallowed(t *testing.T) {
	linkErr := errors.New("database is locked")
	d := NewDispatcher(&MockAccounts{id: 7, ok: true}, &MockLinker{err: linkErr})

	res := d.Dispatch(context.Background(), incoming(7, true, false, "L1"))
	if res.Status != models.DeliveryFailed {
		t.Errorf("Expected failed, got %s", res.Status)
	}
	if !errors.Is(res.Err, linkErr) {
		t.Errorf("Expected linker error to be visible, got %v", res.Err)
	}
}

func TestDispatcher_RecoversPanics(t *testing.T) {
	d := NewDispatcher(&MockAccounts{id: 7, ok: true}, &MockLinker{panics: true})

	res := d.Dispatch(context.Background(), incoming(7, true, false, "L1"))
	if res.Status != models.DeliveryFailed {
		t.Errorf("Expected failed, got %s", res.Status)
	}
}

func TestDispatcher_Routes(t *testing.T) {
	d := NewDispatcher(&MockAccounts{}, &MockLinker{})
	if got := len(d.Routes()); got != 9 {
		t.Errorf("Expected 9 routes, got %d", got)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		evt  models.Event
		want Classification
	}{
		{models.Event{IsNewLead: json.RawMessage(`true`)}, ClassNewLead},
		{models.Event{IsNewCustomer: json.RawMessage(`true`)}, ClassNewCustomer},
		{models.Event{IsNewLead: json.RawMessage(`true`), IsNewCustomer: json.RawMessage(`true`)}, ClassNewLead},
		{models.Event{IsNewLead: json.RawMessage(`"true"`), IsNewCustomer: json.RawMessage(`true`)}, ClassNewCustomer},
		{models.Event{IsNewLead: json.RawMessage(`1`)}, ClassNone},
		{models.Event{IsNewLead: json.RawMessage(`false`)}, ClassNone},
		{models.Event{}, ClassNone},
	}
	for _, tt := range tests {
		if got := Classify(&tt.evt); got != tt.want {
			t.Errorf("Classify(%+v) = %s, want %s", tt.evt, got, tt.want)
		}
	}
}

// End to end against the sqlite store: a lead event creates one lead and
// one (lead, L1, umnico) link.
func TestDispatcher_WithStore(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)
	if _, err := database.Migrate(context.Background(), db, migrations.FS); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	store := repositories.NewRecordStore(db)
	d := NewDispatcher(&MockAccounts{id: 7, ok: true}, linker.New(store, linker.ModeFaithful, nil))
	ctx := context.Background()

	res := d.Dispatch(ctx, incoming(7, true, false, "L1"))
	if res.Status != models.DeliveryHandled {
		t.Fatalf("Expected handled, got %s (%s)", res.Status, res.Reason)
	}

	links, err := store.ExternalIDs().ListByRemoteID(ctx, models.SourceUmnico, "L1")
	if err != nil {
		t.Fatalf("ListByRemoteID() error = %v", err)
	}
	if len(links) != 1 || links[0].Model != models.ModelLead {
		t.Fatalf("Expected one lead link, got %+v", links)
	}

	// wrong account: nothing created
	d.Dispatch(ctx, incoming(8, true, false, "L2"))
	if n, _ := store.Records().Count(ctx, models.ModelLead); n != 1 {
		t.Errorf("Expected 1 lead after rejected event, got %d", n)
	}

	// customer event without a customer id: nothing created
	res = d.Dispatch(ctx, []byte(`{"type":"message.incoming","accountId":7,"isNewCustomer":true,"message":{}}`))
	if res.Status != models.DeliveryRejected || !errors.Is(res.Err, linker.ErrMissingRemoteID) {
		t.Errorf("Expected rejected for missing customer id, got %s (%v)", res.Status, res.Err)
	}
	if n, _ := store.Records().Count(ctx, models.ModelCustomer); n != 0 {
		t.Errorf("Expected no customers, got %d", n)
	}

	// a numeric zero lead id is missing
	res = d.Dispatch(ctx, []byte(`{"type":"message.incoming","accountId":7,"isNewLead":true,"leadId":0}`))
	if res.Status != models.DeliveryRejected || !errors.Is(res.Err, linker.ErrMissingRemoteID) {
		t.Errorf("Expected rejected for zero lead id, got %s (%v)", res.Status, res.Err)
	}
	if n, _ := store.Records().Count(ctx, models.ModelLead); n != 1 {
		t.Errorf("Expected 1 lead after zero lead id, got %d", n)
	}

	// redelivery duplicates in faithful mode
	d.Dispatch(ctx, incoming(7, true, false, "L1"))
	if n, _ := store.Records().Count(ctx, models.ModelLead); n != 2 {
		t.Errorf("Expected 2 leads after redelivery, got %d", n)
	}
}
