package outbox

import (
	"time"

	"github.com/google/uuid"
)

// Entry represents a committed domain event waiting to be published.
// It follows the transactional outbox pattern: the ledger writes the entry in the
// same commit as the state change that produced it.
type Entry struct {
	ID          uuid.UUID  `msgpack:"id"`
	TxID        string     `msgpack:"tx_id"`
	EventType   string     `msgpack:"event_type"` // e.g. "CertificateAdded", "SkillRevoked"
	Payload     []byte     `msgpack:"payload"`    // JSON-encoded event body
	CreatedAt   time.Time  `msgpack:"created_at"`
	ProcessedAt *time.Time `msgpack:"processed_at"` // nil = pending
}

// IsPending returns true if this entry has not been processed yet.
func (e *Entry) IsPending() bool {
	return e.ProcessedAt == nil
}

// NewEntry creates a new outbox entry. IDs are UUIDv7, so they sort in creation order.
func NewEntry(txID, eventType string, payload []byte, createdAt time.Time) *Entry {
	return &Entry{
		ID:        uuid.Must(uuid.NewV7()),
		TxID:      txID,
		EventType: eventType,
		Payload:   payload,
		CreatedAt: createdAt,
	}
}
