// Package ledger defines the transaction-scoped view of the append-only,
// versioned key-value store the credential managers run against.
//
// Every manager operation receives a Tx. Writes are buffered in the transaction
// and become visible all at once on commit, together with the transaction's
// event; a failed operation leaves no trace.
package ledger

import (
	"context"
	"time"
)

// Caller attribute names read by access control.
const (
	AttrRole         = "role"
	AttrOrganization = "organization"
)

// TimestampLayout is the wire format of every timestamp stored in records.
// Millisecond precision with a literal Z matches existing ledger data.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Caller identifies the party invoking a transaction. The identity layer has
// already verified the attributes.
type Caller struct {
	ID         string
	Attributes map[string]string
}

// NewCaller builds a Caller with role and organization attributes.
func NewCaller(id, role, organization string) Caller {
	attrs := map[string]string{}
	if role != "" {
		attrs[AttrRole] = role
	}
	if organization != "" {
		attrs[AttrOrganization] = organization
	}
	return Caller{ID: id, Attributes: attrs}
}

// Attribute returns a verified caller attribute.
func (c Caller) Attribute(name string) (string, bool) {
	v, ok := c.Attributes[name]
	return v, ok
}

// KV is a key/value pair produced by range and prefix iteration.
type KV struct {
	Key   string
	Value []byte
}

// HistoryEntry is one committed version of a key.
type HistoryEntry struct {
	TxID      string
	Timestamp time.Time
	IsDelete  bool
	Value     []byte
}

// Iterator walks a result set. Call Next before the first Item.
type Iterator[T any] interface {
	Next() bool
	Item() T
	Err() error
	Close() error
}

// StateIterator iterates current state.
type StateIterator = Iterator[KV]

// HistoryIterator iterates the versions of a single key, oldest first.
type HistoryIterator = Iterator[HistoryEntry]

// Tx is the ledger as seen by one transaction.
type Tx interface {
	// Get returns the value stored under key, or nil when the key is absent.
	Get(key string) ([]byte, error)
	// Put buffers a write. It fails with sentinel.ErrReadOnly in evaluate transactions.
	Put(key string, value []byte) error
	// IteratePrefix walks the composite keys of namespace whose leading parts match.
	IteratePrefix(namespace string, parts ...string) (StateIterator, error)
	// IterateRange walks primary (non-composite) keys in [start, end). Empty end is unbounded.
	IterateRange(start, end string) (StateIterator, error)
	// History returns every committed version of key, oldest first.
	History(key string) (HistoryIterator, error)
	TxID() string
	Timestamp() time.Time
	Caller() Caller
	// EmitEvent records the transaction's event. Only one event is kept per
	// transaction; a later call replaces an earlier one.
	EmitEvent(name string, payload []byte) error
}

// Ledger runs functions inside transactions.
type Ledger interface {
	// Submit runs fn in a read-write transaction and commits its writes and event
	// atomically if fn returns nil.
	Submit(ctx context.Context, caller Caller, fn func(Tx) error) error
	// Evaluate runs fn in a read-only transaction.
	Evaluate(ctx context.Context, caller Caller, fn func(Tx) error) error
}

// SubmitResult is Submit for functions that produce a value.
func SubmitResult[T any](ctx context.Context, l Ledger, caller Caller, fn func(Tx) (T, error)) (T, error) {
	var out T
	err := l.Submit(ctx, caller, func(tx Tx) error {
		v, err := fn(tx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// EvaluateResult is Evaluate for functions that produce a value.
func EvaluateResult[T any](ctx context.Context, l Ledger, caller Caller, fn func(Tx) (T, error)) (T, error) {
	var out T
	err := l.Evaluate(ctx, caller, func(tx Tx) error {
		v, err := fn(tx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// Event is the single domain event a transaction may emit.
type Event struct {
	Name    string
	Payload []byte
}

// TxMeta holds the transaction-scoped values shared by backends.
type TxMeta struct {
	ID       string
	At       time.Time
	Invoker  Caller
	ReadOnly bool
	event    *Event
}

// TxID returns the transaction identifier.
func (m *TxMeta) TxID() string { return m.ID }

// Timestamp returns the transaction timestamp.
func (m *TxMeta) Timestamp() time.Time { return m.At }

// Caller returns the invoking identity.
func (m *TxMeta) Caller() Caller { return m.Invoker }

// SetEvent stores the transaction's event, replacing any earlier one.
func (m *TxMeta) SetEvent(name string, payload []byte) {
	m.event = &Event{Name: name, Payload: append([]byte(nil), payload...)}
}

// PendingEvent returns the event to commit, if any.
func (m *TxMeta) PendingEvent() *Event { return m.event }
