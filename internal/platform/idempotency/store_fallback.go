package idempotency

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"credledger/pkg/platform/circuit"
	shardsync "credledger/pkg/platform/sync"
)

// FallbackStore reserves keys in primary and switches to fallback once the
// breaker opens. A key is completed or released in the store that reserved it.
// While the breaker is open every Begin still tries primary first, so enough
// successes close it again.
type FallbackStore struct {
	primary    Store
	fallback   Store
	breaker    *circuit.Breaker
	logger     *slog.Logger
	onFallback *shardsync.ShardedMap[struct{}]
}

func NewFallbackStore(primary, fallback Store, breaker *circuit.Breaker, logger *slog.Logger) *FallbackStore {
	return &FallbackStore{
		primary:    primary,
		fallback:   fallback,
		breaker:    breaker,
		logger:     logger,
		onFallback: shardsync.NewShardedMap[struct{}](),
	}
}

func (s *FallbackStore) Begin(ctx context.Context, key, requestHash string, ttl time.Duration) (*Record, error) {
	rec, err := s.primary.Begin(ctx, key, requestHash, ttl)
	if err == nil || errors.Is(err, ErrInProgress) {
		s.success()
		return rec, err
	}
	if !s.failure(err) {
		return nil, err
	}
	rec, err = s.fallback.Begin(ctx, key, requestHash, ttl)
	if err == nil && rec == nil {
		s.onFallback.Store(key, struct{}{})
	}
	return rec, err
}

func (s *FallbackStore) Complete(ctx context.Context, key string, rec Record, ttl time.Duration) error {
	if s.takeFallback(key) {
		return s.fallback.Complete(ctx, key, rec, ttl)
	}
	if err := s.primary.Complete(ctx, key, rec, ttl); err != nil {
		s.failure(err)
		return err
	}
	s.success()
	return nil
}

func (s *FallbackStore) Release(ctx context.Context, key string) error {
	if s.takeFallback(key) {
		return s.fallback.Release(ctx, key)
	}
	if err := s.primary.Release(ctx, key); err != nil {
		s.failure(err)
		return err
	}
	s.success()
	return nil
}

// takeFallback reports whether key was reserved in the fallback store and
// forgets it.
func (s *FallbackStore) takeFallback(key string) bool {
	found := false
	_ = s.onFallback.Update(key, func(_ struct{}, ok bool) (struct{}, bool, error) {
		found = ok
		return struct{}{}, false, nil
	})
	return found
}

func (s *FallbackStore) failure(err error) bool {
	useFallback, change := s.breaker.RecordFailure()
	if change.Opened && s.logger != nil {
		s.logger.Warn("idempotency store degraded, using in-process fallback",
			"breaker", s.breaker.Name(),
			"error", err,
		)
	}
	return useFallback
}

func (s *FallbackStore) success() {
	if _, change := s.breaker.RecordSuccess(); change.Closed && s.logger != nil {
		s.logger.Info("idempotency store recovered", "breaker", s.breaker.Name())
	}
}
