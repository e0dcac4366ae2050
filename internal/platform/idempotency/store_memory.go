package idempotency

import (
	"context"
	"sync/atomic"
	"time"

	shardsync "credledger/pkg/platform/sync"
)

// sweepInterval bounds how often Begin scans for expired entries.
const sweepInterval = time.Minute

type memEntry struct {
	data    []byte
	expires time.Time
}

// MemoryStore keeps records in process. Records are encoded the same way the
// Redis store encodes them, so both stores replay identical bytes.
type MemoryStore struct {
	entries   *shardsync.ShardedMap[memEntry]
	lastSweep atomic.Int64
	now       func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: shardsync.NewShardedMap[memEntry](),
		now:     time.Now,
	}
}

func (s *MemoryStore) Begin(_ context.Context, key, requestHash string, ttl time.Duration) (*Record, error) {
	now := s.now()
	pending, err := encode(Record{Pending: true, RequestHash: requestHash})
	if err != nil {
		return nil, err
	}

	var existing *Record
	err = s.entries.Update(key, func(cur memEntry, ok bool) (memEntry, bool, error) {
		if ok && now.Before(cur.expires) {
			rec, err := decode(cur.data)
			if err != nil {
				return cur, true, err
			}
			if rec.Pending {
				return cur, true, ErrInProgress
			}
			existing = rec
			return cur, true, nil
		}
		return memEntry{data: pending, expires: now.Add(ttl)}, true, nil
	})
	if err != nil {
		return nil, err
	}
	s.maybeSweep(now)
	return existing, nil
}

func (s *MemoryStore) Complete(_ context.Context, key string, rec Record, ttl time.Duration) error {
	rec.Pending = false
	data, err := encode(rec)
	if err != nil {
		return err
	}
	s.entries.Store(key, memEntry{data: data, expires: s.now().Add(ttl)})
	return nil
}

func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.entries.Delete(key)
	return nil
}

// maybeSweep drops expired entries at most once per sweepInterval.
func (s *MemoryStore) maybeSweep(now time.Time) {
	last := s.lastSweep.Load()
	if now.UnixNano()-last < int64(sweepInterval) {
		return
	}
	if !s.lastSweep.CompareAndSwap(last, now.UnixNano()) {
		return
	}
	s.entries.Sweep(func(_ string, e memEntry) bool {
		return !now.Before(e.expires)
	})
}
