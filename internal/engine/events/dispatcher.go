package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"umnico/internal/engine/linker"
	"umnico/internal/platform/models"

	"github.com/rs/zerolog"
)

// Result is the terminal state of one delivery. Status is one of the
// models.Delivery* values.
type Result struct {
	EventType      string
	AccountID      string
	Status         string
	Reason         string
	Classification Classification
	Link           *linker.Result
	Err            error
}

func (r Result) Delivery() *models.Delivery {
	d := &models.Delivery{
		EventType: r.EventType,
		AccountID: r.AccountID,
		Status:    r.Status,
		Reason:    r.Reason,
	}
	if r.Link != nil {
		d.RecordModel = r.Link.Model
		d.RecordID = r.Link.RecordID
		d.RemoteID = r.Link.RemoteID
	}
	return d
}

// AccountResolver yields the cached account id, resolving it when needed.
type AccountResolver interface {
	EnsureAccountID(ctx context.Context) (int64, bool)
}

type Materializer interface {
	CreateLead(ctx context.Context, leadID string, message json.RawMessage) (*linker.Result, error)
	CreateCustomer(ctx context.Context, message json.RawMessage) (*linker.Result, error)
}

type HandlerFunc func(ctx context.Context, raw []byte) Result

// Dispatcher routes inbound deliveries by their type tag. It never returns an
// error: every failure ends in a rejected or failed Result.
type Dispatcher struct {
	accounts AccountResolver
	linker   Materializer
	handlers map[string]HandlerFunc
}

// Types that are acknowledged without processing.
var unprocessedTypes = []string{
	models.EventMessageOutgoing,
	models.EventLeadCreated,
	models.EventLeadChanged,
	models.EventLeadChangedStatus,
	models.EventCustomerCreated,
	models.EventCustomerChanged,
	models.EventIntegrationCreated,
	models.EventIntegrationRemoved,
}

func NewDispatcher(accounts AccountResolver, materializer Materializer) *Dispatcher {
	d := &Dispatcher{
		accounts: accounts,
		linker:   materializer,
		handlers: make(map[string]HandlerFunc),
	}

	d.handlers[models.EventMessageIncoming] = d.handleMessageIncoming
	for _, eventType := range unprocessedTypes {
		d.handlers[eventType] = unprocessed(eventType)
	}
	return d
}

// Routes lists every event type with a registered handler.
func (d *Dispatcher) Routes() []string {
	routes := make([]string, 0, len(d.handlers))
	routes = append(routes, models.EventMessageIncoming)
	routes = append(routes, unprocessedTypes...)
	return routes
}

func (d *Dispatcher) Dispatch(ctx context.Context, raw []byte) (result Result) {
	log := zerolog.Ctx(ctx)

	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		log.Error().Err(err).Msg("Malformed webhook payload")
		return Result{Status: models.DeliveryRejected, Reason: "malformed payload", Err: err}
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("event_type", head.Type).Msg("Recovered from panic in webhook handler")
			result = Result{
				EventType: head.Type,
				Status:    models.DeliveryFailed,
				Reason:    "internal error",
				Err:       fmt.Errorf("panic: %v", r),
			}
		}
	}()

	handler, ok := d.handlers[head.Type]
	if !ok {
		log.Warn().Str("event_type", head.Type).Msg("No handler for event type")
		return Result{EventType: head.Type, Status: models.DeliveryIgnored, Reason: "unrouted event type"}
	}

	return handler(ctx, raw)
}

func unprocessed(eventType string) HandlerFunc {
	return func(ctx context.Context, raw []byte) Result {
		zerolog.Ctx(ctx).Debug().Str("event_type", eventType).Msg("Event acknowledged, not processed")
		return Result{EventType: eventType, Status: models.DeliveryIgnored, Reason: "event type not processed"}
	}
}

func (d *Dispatcher) handleMessageIncoming(ctx context.Context, raw []byte) Result {
	log := zerolog.Ctx(ctx).With().Str("event_type", models.EventMessageIncoming).Logger()

	var evt models.Event
	if err := json.Unmarshal(raw, &evt); err != nil {
		log.Error().Err(err).Msg("Malformed message.incoming payload")
		return Result{EventType: models.EventMessageIncoming, Status: models.DeliveryRejected, Reason: "malformed payload", Err: err}
	}
	log.Debug().RawJSON("hook", raw).Msg("Hook received")

	result := Result{EventType: evt.Type, AccountID: evt.AccountID.String()}

	if evt.Type != models.EventMessageIncoming {
		log.Error().Str("type", evt.Type).Msg("Type or account failed")
		result.Status = models.DeliveryRejected
		result.Reason = "unexpected event type"
		return result
	}

	expected, ok := d.accounts.EnsureAccountID(ctx)
	if !ok {
		log.Error().Msg("Account identity unresolved, event rejected")
		result.Status = models.DeliveryRejected
		result.Reason = "account identity unresolved"
		return result
	}
	actual, ok := evt.AccountID.Int64()
	if !ok || actual != expected {
		log.Error().Str("account_id", evt.AccountID.String()).Int64("expected_account_id", expected).Msg("Type or account failed")
		result.Status = models.DeliveryRejected
		result.Reason = "account mismatch"
		return result
	}

	result.Classification = Classify(&evt)

	var (
		link *linker.Result
		err  error
	)
	switch result.Classification {
	case ClassNewLead:
		var leadID models.FlexibleID
		leadID, err = evt.Lead()
		if err != nil {
			err = fmt.Errorf("%w: leadId: %v", linker.ErrMissingRemoteID, err)
			break
		}
		link, err = d.linker.CreateLead(ctx, leadID.String(), evt.Message)
	case ClassNewCustomer:
		link, err = d.linker.CreateCustomer(ctx, evt.Message)
	default:
		result.Status = models.DeliveryAcknowledged
		return result
	}

	if err != nil {
		log.Error().Err(err).Str("classification", result.Classification.String()).Msg("Materialization failed")
		result.Status = models.DeliveryFailed
		if errors.Is(err, linker.ErrMissingRemoteID) || errors.Is(err, linker.ErrMalformedMessage) {
			result.Status = models.DeliveryRejected
		}
		result.Reason = err.Error()
		result.Err = err
		return result
	}

	result.Status = models.DeliveryHandled
	result.Link = link
	if link.Outcome == linker.OutcomeDuplicate {
		result.Reason = "already linked"
	}
	return result
}
