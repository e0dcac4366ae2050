// Package idempotency replays the response of a mutation when a client
// retries it with the same Idempotency-Key.
package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// ErrInProgress is returned by Begin while another request holds the key.
var ErrInProgress = errors.New("idempotent request in progress")

// Record is the stored outcome of a request.
type Record struct {
	Pending     bool   `msgpack:"p"`
	RequestHash string `msgpack:"h"`
	Status      int    `msgpack:"s"`
	ContentType string `msgpack:"c"`
	Body        []byte `msgpack:"b"`
}

// Store reserves keys and keeps completed responses until they expire.
type Store interface {
	// Begin reserves key for a new request. If the key already holds a
	// completed response it returns that record; if another request holds it,
	// ErrInProgress. A nil record means the caller now owns the key.
	Begin(ctx context.Context, key, requestHash string, ttl time.Duration) (*Record, error)
	// Complete stores the response for a key reserved by Begin.
	Complete(ctx context.Context, key string, rec Record, ttl time.Duration) error
	// Release drops a reservation so the request can be retried.
	Release(ctx context.Context, key string) error
}

func encode(rec Record) ([]byte, error) {
	return msgpack.Marshal(rec)
}

func decode(data []byte) (*Record, error) {
	var rec Record
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
