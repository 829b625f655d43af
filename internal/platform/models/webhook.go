package models

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Event types Umnico posts to subscriptions.
const (
	EventMessageIncoming    = "message.incoming"
	EventMessageOutgoing    = "message.outgoing"
	EventLeadCreated        = "lead.created"
	EventLeadChanged        = "lead.changed"
	EventLeadChangedStatus  = "lead.changed_status"
	EventCustomerCreated    = "customer.created"
	EventCustomerChanged    = "customer.changed"
	EventIntegrationCreated = "integration.created"
	EventIntegrationRemoved = "integration.removed"
)

// FlexibleID accepts a JSON string or number and keeps its textual form.
type FlexibleID string

func (f *FlexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	// a numeric zero carries no identity
	if v, err := n.Float64(); err == nil && v == 0 {
		*f = ""
		return nil
	}
	*f = FlexibleID(n.String())
	return nil
}

func (f FlexibleID) String() string {
	return string(f)
}

// Int64 parses the id as a decimal integer.
func (f FlexibleID) Int64() (int64, bool) {
	n, err := strconv.ParseInt(string(f), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Event is a single inbound webhook delivery. The flags and leadId are kept
// raw so a badly typed field only affects the branch that reads it.
type Event struct {
	Type          string          `json:"type"`
	AccountID     FlexibleID      `json:"accountId"`
	IsNewLead     json.RawMessage `json:"isNewLead,omitempty"`
	IsNewCustomer json.RawMessage `json:"isNewCustomer,omitempty"`
	LeadID        json.RawMessage `json:"leadId,omitempty"`
	Message       json.RawMessage `json:"message,omitempty"`
}

// NewLead reports whether isNewLead is the JSON literal true.
func (e *Event) NewLead() bool {
	return isTrue(e.IsNewLead)
}

// NewCustomer reports whether isNewCustomer is the JSON literal true.
func (e *Event) NewCustomer() bool {
	return isTrue(e.IsNewCustomer)
}

// Lead decodes leadId. An absent, null or zero id yields "".
func (e *Event) Lead() (FlexibleID, error) {
	var id FlexibleID
	if len(e.LeadID) == 0 {
		return id, nil
	}
	err := json.Unmarshal(e.LeadID, &id)
	return id, err
}

func isTrue(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("true"))
}

// Message is the subset of the Umnico message object the linker reads.
type Message struct {
	ID     FlexibleID     `json:"id,omitempty"`
	Sender *MessageSender `json:"sender,omitempty"`
}

type MessageSender struct {
	CustomerID FlexibleID `json:"customerId,omitempty"`
	Login      string     `json:"login,omitempty"`
}

// Delivery statuses recorded for every inbound webhook call.
const (
	DeliveryHandled      = "handled"
	DeliveryAcknowledged = "acknowledged"
	DeliveryIgnored      = "ignored"
	DeliveryRejected     = "rejected"
	DeliveryFailed       = "failed"
)

type Delivery struct {
	ID          string `json:"id"`
	EventType   string `json:"event_type"`
	AccountID   string `json:"account_id,omitempty"`
	Status      string `json:"status"`
	Reason      string `json:"reason,omitempty"`
	RecordModel string `json:"record_model,omitempty"`
	RecordID    int64  `json:"record_id,omitempty"`
	RemoteID    string `json:"remote_id,omitempty"`
	ReceivedAt  int64  `json:"received_at"`
}
