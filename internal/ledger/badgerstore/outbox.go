package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"credledger/internal/events/outbox"
	"credledger/internal/ledger"
	"credledger/internal/sentinel"
)

func outboxKey(id uuid.UUID) []byte {
	return append([]byte(outboxPrefix), id[:]...)
}

func putOutboxEntry(txn *badger.Txn, txID string, ev *ledger.Event, at time.Time) error {
	entry := outbox.NewEntry(txID, ev.Name, ev.Payload, at)
	b, err := msgpack.Marshal(entry)
	if err != nil {
		return fmt.Errorf("badgerstore: encode outbox entry: %w", err)
	}
	if err := txn.Set(outboxKey(entry.ID), b); err != nil {
		return fmt.Errorf("badgerstore: write outbox entry: %w", err)
	}
	return nil
}

// FetchUnprocessed implements outbox.Store. Entries are keyed by UUIDv7, so key
// order is creation order.
func (s *Store) FetchUnprocessed(_ context.Context, limit int) ([]*outbox.Entry, error) {
	var out []*outbox.Entry
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(outboxPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid() && len(out) < limit; it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var e outbox.Entry
				if err := msgpack.Unmarshal(val, &e); err != nil {
					return fmt.Errorf("badgerstore: decode outbox entry: %w", err)
				}
				out = append(out, &e)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return out, err
}

// MarkProcessed implements outbox.Store. Published entries are removed.
func (s *Store) MarkProcessed(_ context.Context, id uuid.UUID, _ time.Time) error {
	return s.db.Update(func(txn *badger.Txn) error {
		key := outboxKey(id)
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("outbox entry %s: %w", id, sentinel.ErrNotFound)
			}
			return err
		}
		return txn.Delete(key)
	})
}

// CountPending implements outbox.Store.
func (s *Store) CountPending(_ context.Context) (int64, error) {
	var n int64
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(outboxPrefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}
