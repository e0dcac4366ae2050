package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces idempotency keys in Redis.
const KeyPrefix = "credledger:idem:"

// RedisStore shares records across ledgerd replicas.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Begin(ctx context.Context, key, requestHash string, ttl time.Duration) (*Record, error) {
	pending, err := encode(Record{Pending: true, RequestHash: requestHash})
	if err != nil {
		return nil, err
	}
	ok, err := s.client.SetNX(ctx, KeyPrefix+key, pending, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("reserve idempotency key: %w", err)
	}
	if ok {
		return nil, nil
	}

	data, err := s.client.Get(ctx, KeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		// Expired between SETNX and GET; the next retry will reserve it.
		return nil, ErrInProgress
	}
	if err != nil {
		return nil, fmt.Errorf("read idempotency key: %w", err)
	}
	rec, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode idempotency record: %w", err)
	}
	if rec.Pending {
		return nil, ErrInProgress
	}
	return rec, nil
}

func (s *RedisStore) Complete(ctx context.Context, key string, rec Record, ttl time.Duration) error {
	rec.Pending = false
	data, err := encode(rec)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, KeyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("store idempotency record: %w", err)
	}
	return nil
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, KeyPrefix+key).Err()
}
