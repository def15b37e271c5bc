package models

// PendingKind is the remote operation an outbox entry replays.
type PendingKind string

const (
	PendingAdd    PendingKind = "add"
	PendingDelete PendingKind = "delete"
)

// Outbox entry states. A failed entry exhausted its retries and waits for
// an explicit retry; it is never dropped.
const (
	PendingStatusPending = "pending"
	PendingStatusFailed  = "failed"
)

// PendingOp is a write made while offline that still has to reach the
// remote service. It is persisted in the local store.
type PendingOp struct {
	ID          string      `json:"id"`
	Kind        PendingKind `json:"kind"`
	RecordID    string      `json:"record_id"`
	Record      *Feedback   `json:"record,omitempty"`
	RetryCount  int         `json:"retry_count"`
	MaxRetries  int         `json:"max_retries"`
	NextRetryAt int64       `json:"next_retry_at"`
	Status      string      `json:"status"`
	LastError   string      `json:"last_error,omitempty"`
	CreatedAt   int64       `json:"created_at"`
	UpdatedAt   int64       `json:"updated_at"`
}
