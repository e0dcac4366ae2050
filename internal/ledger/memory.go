package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"credledger/internal/events/outbox"
	"credledger/internal/ledger/compositekey"
	"credledger/internal/sentinel"
)

const backendMemory = "memory"

type version struct {
	seq      uint64
	txID     string
	at       time.Time
	isDelete bool
	value    []byte
}

// Memory is an in-process multi-version ledger. Each transaction reads a snapshot
// taken when it starts; commit rejects the transaction with sentinel.ErrConflict
// when another commit changed a key it read. It also serves as the outbox store
// for the events its transactions emit.
type Memory struct {
	mu       sync.RWMutex
	seq      uint64
	versions map[string][]version
	pending  []*outbox.Entry
	logger   *slog.Logger
}

// MemoryOption configures a Memory ledger.
type MemoryOption func(*Memory)

// WithMemoryLogger sets the logger used for commit diagnostics.
func WithMemoryLogger(logger *slog.Logger) MemoryOption {
	return func(m *Memory) {
		m.logger = logger
	}
}

// NewMemory creates an empty in-memory ledger.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{versions: make(map[string][]version)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Submit implements Ledger.
func (m *Memory) Submit(ctx context.Context, caller Caller, fn func(Tx) error) error {
	return Run(ctx, ModeSubmit, backendMemory, func(ctx context.Context) error {
		tx := m.begin(ctx, caller, false)
		if err := fn(tx); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		return m.commit(tx)
	})
}

// Evaluate implements Ledger.
func (m *Memory) Evaluate(ctx context.Context, caller Caller, fn func(Tx) error) error {
	return Run(ctx, ModeEvaluate, backendMemory, func(ctx context.Context) error {
		return fn(m.begin(ctx, caller, true))
	})
}

func (m *Memory) begin(ctx context.Context, caller Caller, readOnly bool) *memTx {
	m.mu.RLock()
	snapshot := m.seq
	m.mu.RUnlock()
	return &memTx{
		TxMeta:   NewTxMeta(ctx, caller, readOnly),
		m:        m,
		snapshot: snapshot,
		writes:   make(map[string][]byte),
		reads:    make(map[string]struct{}),
	}
}

func (m *Memory) commit(tx *memTx) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key := range tx.reads {
		vs := m.versions[key]
		if len(vs) > 0 && vs[len(vs)-1].seq > tx.snapshot {
			m.logDebug("commit rejected", "tx_id", tx.ID, "key", key)
			return fmt.Errorf("key %q changed after snapshot: %w", key, sentinel.ErrConflict)
		}
	}
	if len(tx.writes) == 0 && tx.PendingEvent() == nil {
		return nil
	}

	m.seq++
	for _, key := range tx.order {
		m.versions[key] = append(m.versions[key], version{
			seq:   m.seq,
			txID:  tx.ID,
			at:    tx.At,
			value: tx.writes[key],
		})
	}
	if ev := tx.PendingEvent(); ev != nil {
		m.pending = append(m.pending, outbox.NewEntry(tx.ID, ev.Name, ev.Payload, tx.At))
	}
	return nil
}

// latest returns the newest version of key visible at snapshot.
func (m *Memory) latest(key string, snapshot uint64) (version, bool) {
	vs := m.versions[key]
	for i := len(vs) - 1; i >= 0; i-- {
		if vs[i].seq <= snapshot {
			return vs[i], true
		}
	}
	return version{}, false
}

func (m *Memory) logDebug(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Debug(msg, args...)
	}
}

// FetchUnprocessed implements outbox.Store.
func (m *Memory) FetchUnprocessed(_ context.Context, limit int) ([]*outbox.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := min(limit, len(m.pending))
	out := make([]*outbox.Entry, 0, n)
	for _, e := range m.pending[:n] {
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

// MarkProcessed implements outbox.Store.
func (m *Memory) MarkProcessed(_ context.Context, id uuid.UUID, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.pending {
		if e.ID == id {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("outbox entry %s: %w", id, sentinel.ErrNotFound)
}

// CountPending implements outbox.Store.
func (m *Memory) CountPending(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.pending)), nil
}

type memTx struct {
	TxMeta
	m        *Memory
	snapshot uint64
	writes   map[string][]byte
	order    []string
	reads    map[string]struct{}
}

func (t *memTx) Get(key string) ([]byte, error) {
	if v, ok := t.writes[key]; ok {
		return clone(v), nil
	}
	t.reads[key] = struct{}{}
	t.m.mu.RLock()
	defer t.m.mu.RUnlock()
	v, ok := t.m.latest(key, t.snapshot)
	if !ok || v.isDelete {
		return nil, nil
	}
	return clone(v.value), nil
}

func (t *memTx) Put(key string, value []byte) error {
	if t.ReadOnly {
		return sentinel.ErrReadOnly
	}
	if key == "" {
		return fmt.Errorf("empty key: %w", sentinel.ErrInvalidInput)
	}
	if _, seen := t.writes[key]; !seen {
		t.order = append(t.order, key)
	}
	t.writes[key] = clone(value)
	return nil
}

func (t *memTx) IteratePrefix(namespace string, parts ...string) (StateIterator, error) {
	start, end, err := compositekey.PrefixBounds(namespace, parts...)
	if err != nil {
		return nil, err
	}
	return t.scan(start, end, true), nil
}

func (t *memTx) IterateRange(start, end string) (StateIterator, error) {
	return t.scan(start, end, false), nil
}

// scan merges committed state at the snapshot with the transaction's own writes.
func (t *memTx) scan(start, end string, composite bool) StateIterator {
	inRange := func(k string) bool {
		if compositekey.IsComposite(k) != composite {
			return false
		}
		return k >= start && (end == "" || k < end)
	}

	merged := make(map[string][]byte)
	t.m.mu.RLock()
	for k := range t.m.versions {
		if !inRange(k) {
			continue
		}
		if v, ok := t.m.latest(k, t.snapshot); ok && !v.isDelete {
			merged[k] = v.value
		}
	}
	t.m.mu.RUnlock()
	for k, v := range t.writes {
		if inRange(k) {
			merged[k] = v
		}
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	items := make([]KV, 0, len(keys))
	for _, k := range keys {
		if _, own := t.writes[k]; !own {
			t.reads[k] = struct{}{}
		}
		items = append(items, KV{Key: k, Value: clone(merged[k])})
	}
	return NewSliceIterator(items)
}

func (t *memTx) History(key string) (HistoryIterator, error) {
	if strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("empty key: %w", sentinel.ErrInvalidInput)
	}
	t.m.mu.RLock()
	defer t.m.mu.RUnlock()
	var out []HistoryEntry
	for _, v := range t.m.versions[key] {
		if v.seq > t.snapshot {
			break
		}
		out = append(out, HistoryEntry{
			TxID:      v.txID,
			Timestamp: v.at,
			IsDelete:  v.isDelete,
			Value:     clone(v.value),
		})
	}
	return NewSliceIterator(out), nil
}

func (t *memTx) EmitEvent(name string, payload []byte) error {
	if t.ReadOnly {
		return sentinel.ErrReadOnly
	}
	if name == "" {
		return fmt.Errorf("empty event name: %w", sentinel.ErrInvalidInput)
	}
	t.SetEvent(name, payload)
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
