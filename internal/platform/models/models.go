package models

// Local models that materialized records belong to.
const (
	ModelLead     = "lead"
	ModelCustomer = "customer"
)

// SourceUmnico is the module name stamped on every external id link.
const SourceUmnico = "umnico"

// Record is a locally materialized lead or customer.
type Record struct {
	ID        int64                  `json:"id"`
	Model     string                 `json:"model"`
	Fields    map[string]interface{} `json:"fields"`
	CreatedAt int64                  `json:"created_at"`
}

// ExternalID maps a remote entity to a local record. Rows are never updated.
type ExternalID struct {
	ID        int64  `json:"id"`
	Model     string `json:"model"`
	RecordID  int64  `json:"record_id"`
	RemoteID  string `json:"remote_id"`
	Source    string `json:"source"`
	NoUpdate  bool   `json:"noupdate"`
	CreatedAt int64  `json:"created_at"`
}

type Account struct {
	ID     FlexibleID `json:"id"`
	Status string     `json:"status"`
	Name   string     `json:"name,omitempty"`
}

type AccountEnvelope struct {
	Account *Account `json:"account"`
}

type AuditLog struct {
	ID           string                 `json:"id"`
	Actor        string                 `json:"actor"`
	Action       string                 `json:"action"`
	ResourceType string                 `json:"resource_type"`
	ResourceID   string                 `json:"resource_id"`
	Metadata     map[string]interface{} `json:"metadata"`
	IPAddress    string                 `json:"ip_address"`
	CreatedAt    int64                  `json:"created_at"`
}
