package linker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"umnico/internal/platform/models"
	"umnico/internal/platform/repositories"

	"github.com/rs/zerolog"
)

type Mode string

const (
	// ModeFaithful performs no duplicate check: a redelivered event creates
	// a second record and a second link.
	ModeFaithful Mode = "faithful"
	// ModeHardened looks up (source, remote id) before creating and relies on
	// the unique index to settle concurrent deliveries.
	ModeHardened Mode = "hardened"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeFaithful:
		return ModeFaithful, nil
	case ModeHardened:
		return ModeHardened, nil
	}
	return "", fmt.Errorf("linker: unknown mode %q", s)
}

type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeDuplicate Outcome = "duplicate"
)

var (
	ErrMissingRemoteID  = errors.New("linker: remote id is required")
	ErrMalformedMessage = errors.New("linker: malformed message")
)

type Result struct {
	Outcome  Outcome `json:"outcome"`
	Model    string  `json:"model"`
	RecordID int64   `json:"record_id"`
	RemoteID string  `json:"remote_id"`
}

// FieldMapper turns an inbound message into field values for a new record.
type FieldMapper func(ctx context.Context, model string, message json.RawMessage) (map[string]interface{}, error)

// EmptyFields is the default mapper. Message content is not mapped onto
// record fields yet.
func EmptyFields(ctx context.Context, model string, message json.RawMessage) (map[string]interface{}, error) {
	return map[string]interface{}{}, nil
}

type Store interface {
	CreateLinked(ctx context.Context, model string, fields map[string]interface{}, source, remoteID string) (*models.Record, *models.ExternalID, error)
	GetByRemoteID(ctx context.Context, source, remoteID string) (*models.ExternalID, error)
}

type Linker struct {
	store     Store
	mode      Mode
	mapFields FieldMapper
}

func New(store Store, mode Mode, mapper FieldMapper) *Linker {
	if mapper == nil {
		mapper = EmptyFields
	}
	if mode == "" {
		mode = ModeFaithful
	}
	return &Linker{store: store, mode: mode, mapFields: mapper}
}

func (l *Linker) Mode() Mode {
	return l.mode
}

// CreateLead materializes one lead linked to leadID.
func (l *Linker) CreateLead(ctx context.Context, leadID string, message json.RawMessage) (*Result, error) {
	return l.materialize(ctx, models.ModelLead, leadID, message)
}

// CreateCustomer materializes one customer linked to message.sender.customerId.
func (l *Linker) CreateCustomer(ctx context.Context, message json.RawMessage) (*Result, error) {
	customerID, err := customerIDFrom(message)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("model", models.ModelCustomer).Msg("Customer create aborted")
		return nil, err
	}
	return l.materialize(ctx, models.ModelCustomer, customerID, message)
}

func customerIDFrom(message json.RawMessage) (string, error) {
	if len(message) == 0 || string(message) == "null" {
		return "", ErrMissingRemoteID
	}
	var msg models.Message
	if err := json.Unmarshal(message, &msg); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if msg.Sender == nil || msg.Sender.CustomerID == "" {
		return "", ErrMissingRemoteID
	}
	return msg.Sender.CustomerID.String(), nil
}

func (l *Linker) materialize(ctx context.Context, model, remoteID string, message json.RawMessage) (*Result, error) {
	log := zerolog.Ctx(ctx).With().
		Str("component", "linker").
		Str("model", model).
		Str("remote_id", remoteID).
		Str("mode", string(l.mode)).
		Logger()

	if remoteID == "" {
		log.Error().Msg("Missing remote id, nothing created")
		return nil, ErrMissingRemoteID
	}

	if l.mode == ModeHardened {
		existing, err := l.store.GetByRemoteID(ctx, models.SourceUmnico, remoteID)
		if err != nil {
			log.Error().Err(err).Msg("External id lookup failed")
			return nil, err
		}
		if existing != nil {
			log.Info().Int64("record_id", existing.RecordID).Msg("Remote entity already linked")
			return duplicateOf(existing), nil
		}
	}

	fields, err := l.mapFields(ctx, model, message)
	if err != nil {
		log.Error().Err(err).Msg("Field mapping failed")
		return nil, err
	}

	record, link, err := l.store.CreateLinked(ctx, model, fields, models.SourceUmnico, remoteID)
	if err != nil {
		if l.mode == ModeHardened && errors.Is(err, repositories.ErrDuplicateExternalID) {
			// lost the race to a concurrent delivery
			existing, lookupErr := l.store.GetByRemoteID(ctx, models.SourceUmnico, remoteID)
			if lookupErr == nil && existing != nil {
				log.Info().Int64("record_id", existing.RecordID).Msg("Concurrent delivery already linked")
				return duplicateOf(existing), nil
			}
		}
		log.Error().Err(err).Msg("Record create failed")
		return nil, err
	}

	log.Info().Int64("record_id", record.ID).Int64("link_id", link.ID).Msg("Record created and linked")
	return &Result{
		Outcome:  OutcomeCreated,
		Model:    model,
		RecordID: record.ID,
		RemoteID: remoteID,
	}, nil
}

func duplicateOf(link *models.ExternalID) *Result {
	return &Result{
		Outcome:  OutcomeDuplicate,
		Model:    link.Model,
		RecordID: link.RecordID,
		RemoteID: link.RemoteID,
	}
}
