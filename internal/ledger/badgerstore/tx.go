package badgerstore

import (
	"bytes"
	"errors"
	"fmt"
	"slices"

	"github.com/dgraph-io/badger/v4"

	"credledger/internal/ledger"
	"credledger/internal/ledger/compositekey"
	"credledger/internal/sentinel"
)

// badgerTx adapts a Badger transaction to ledger.Tx. Iterators are drained
// before they are returned because Badger allows a single open iterator per
// read-write transaction.
type badgerTx struct {
	ledger.TxMeta
	txn *badger.Txn
}

func stateKey(key string) []byte {
	return []byte(statePrefix + key)
}

func (t *badgerTx) Get(key string) ([]byte, error) {
	item, err := t.txn.Get(stateKey(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("badgerstore: get: %w", err)
	}
	raw, err := item.ValueCopy(nil)
	if err != nil {
		return nil, fmt.Errorf("badgerstore: read value: %w", err)
	}
	env, err := decodeEnvelope(raw)
	if err != nil {
		return nil, err
	}
	if env.IsDelete {
		return nil, nil
	}
	return env.Value, nil
}

func (t *badgerTx) Put(key string, value []byte) error {
	if t.ReadOnly {
		return sentinel.ErrReadOnly
	}
	if key == "" {
		return fmt.Errorf("empty key: %w", sentinel.ErrInvalidInput)
	}
	b, err := encodeEnvelope(envelope{TxID: t.ID, At: t.At, Value: value})
	if err != nil {
		return err
	}
	if err := t.txn.Set(stateKey(key), b); err != nil {
		return fmt.Errorf("badgerstore: put: %w", err)
	}
	return nil
}

func (t *badgerTx) IteratePrefix(namespace string, parts ...string) (ledger.StateIterator, error) {
	start, _, err := compositekey.PrefixBounds(namespace, parts...)
	if err != nil {
		return nil, err
	}
	prefix := stateKey(start)
	return t.scan(prefix, prefix, nil, func(string) bool { return true })
}

func (t *badgerTx) IterateRange(start, end string) (ledger.StateIterator, error) {
	var upper []byte
	if end != "" {
		upper = stateKey(end)
	}
	return t.scan([]byte(statePrefix), stateKey(start), upper, func(k string) bool { return !compositekey.IsComposite(k) })
}

// scan collects live keys under prefix from seek onward, stopping before upper
// when it is set.
func (t *badgerTx) scan(prefix, seek, upper []byte, keep func(string) bool) (ledger.StateIterator, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := t.txn.NewIterator(opts)
	defer it.Close()

	var out []ledger.KV
	for it.Seek(seek); it.Valid(); it.Next() {
		item := it.Item()
		k := item.Key()
		if upper != nil && bytes.Compare(k, upper) >= 0 {
			break
		}
		key := string(k[len(statePrefix):])
		if !keep(key) {
			continue
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return nil, fmt.Errorf("badgerstore: read value: %w", err)
		}
		env, err := decodeEnvelope(raw)
		if err != nil {
			return nil, err
		}
		if env.IsDelete {
			continue
		}
		out = append(out, ledger.KV{Key: key, Value: env.Value})
	}
	return ledger.NewSliceIterator(out), nil
}

func (t *badgerTx) History(key string) (ledger.HistoryIterator, error) {
	if key == "" {
		return nil, fmt.Errorf("empty key: %w", sentinel.ErrInvalidInput)
	}
	k := stateKey(key)
	opts := badger.DefaultIteratorOptions
	opts.AllVersions = true
	opts.Prefix = k
	it := t.txn.NewIterator(opts)
	defer it.Close()

	var out []ledger.HistoryEntry
	for it.Seek(k); it.Valid(); it.Next() {
		item := it.Item()
		if !bytes.Equal(item.Key(), k) {
			break
		}
		if item.IsDeletedOrExpired() {
			continue
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return nil, fmt.Errorf("badgerstore: read value: %w", err)
		}
		env, err := decodeEnvelope(raw)
		if err != nil {
			return nil, err
		}
		// Pending writes of this transaction are not history yet.
		if env.TxID == t.ID {
			continue
		}
		out = append(out, ledger.HistoryEntry{
			TxID:      env.TxID,
			Timestamp: env.At,
			IsDelete:  env.IsDelete,
			Value:     env.Value,
		})
	}
	// Badger yields newest first.
	slices.Reverse(out)
	return ledger.NewSliceIterator(out), nil
}

func (t *badgerTx) EmitEvent(name string, payload []byte) error {
	if t.ReadOnly {
		return sentinel.ErrReadOnly
	}
	if name == "" {
		return fmt.Errorf("empty event name: %w", sentinel.ErrInvalidInput)
	}
	t.SetEvent(name, payload)
	return nil
}
