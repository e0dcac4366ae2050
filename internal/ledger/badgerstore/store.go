// Package badgerstore implements the ledger on Badger. Badger keeps every
// version of a key, so per-key history comes from the store itself, and its
// optimistic transactions give atomic multi-key commits with conflict detection.
package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"

	"credledger/internal/ledger"
	"credledger/internal/sentinel"
)

const backendName = "badger"

// Key space prefixes. Ledger state and outbox entries never share a prefix, so
// range scans over state cannot see outbox entries.
const (
	statePrefix  = "s"
	outboxPrefix = "o"
)

const defaultGCInterval = 5 * time.Minute

// envelope wraps every state write with the metadata history needs.
type envelope struct {
	TxID     string    `msgpack:"tx"`
	At       time.Time `msgpack:"ts"`
	IsDelete bool      `msgpack:"del"`
	Value    []byte    `msgpack:"v"`
}

// Store is a Badger-backed ledger. It also implements outbox.Store over the
// entries its transactions commit.
type Store struct {
	db         *badger.DB
	logger     *slog.Logger
	gcInterval time.Duration
	stop       chan struct{}
	done       chan struct{}
}

// Option configures a Store.
type Option func(*config)

type config struct {
	dir        string
	inMemory   bool
	logger     *slog.Logger
	gcInterval time.Duration
}

// WithDir stores data under dir.
func WithDir(dir string) Option {
	return func(c *config) {
		c.dir = dir
	}
}

// WithInMemory keeps all data in memory. Used by tests and throwaway nodes.
func WithInMemory() Option {
	return func(c *config) {
		c.inMemory = true
	}
}

// WithLogger routes Badger's own log output and store diagnostics to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithGCInterval sets how often value log garbage collection runs. Zero disables it.
func WithGCInterval(d time.Duration) Option {
	return func(c *config) {
		c.gcInterval = d
	}
}

// Open opens a Store. Either WithDir or WithInMemory is required.
func Open(opts ...Option) (*Store, error) {
	cfg := config{gcInterval: defaultGCInterval}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.dir == "" && !cfg.inMemory {
		return nil, fmt.Errorf("badgerstore: data directory is required: %w", sentinel.ErrInvalidInput)
	}

	bopts := badger.DefaultOptions(cfg.dir).
		WithNumVersionsToKeep(math.MaxInt32).
		WithLogger(newBadgerLogger(cfg.logger))
	if cfg.inMemory {
		bopts = bopts.WithDir("").WithValueDir("").WithInMemory(true)
	}
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("badgerstore: open: %w", err)
	}

	s := &Store{
		db:         db,
		logger:     cfg.logger,
		gcInterval: cfg.gcInterval,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	if cfg.inMemory || cfg.gcInterval <= 0 {
		close(s.done)
	} else {
		go s.runGC()
	}
	return s, nil
}

// Close stops background GC and closes the database.
func (s *Store) Close() error {
	close(s.stop)
	<-s.done
	return s.db.Close()
}

func (s *Store) runGC() {
	defer close(s.done)
	ticker := time.NewTicker(s.gcInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			for s.db.RunValueLogGC(0.7) == nil {
			}
		}
	}
}

// Submit implements ledger.Ledger.
func (s *Store) Submit(ctx context.Context, caller ledger.Caller, fn func(ledger.Tx) error) error {
	return ledger.Run(ctx, ledger.ModeSubmit, backendName, func(ctx context.Context) error {
		txn := s.db.NewTransaction(true)
		defer txn.Discard()

		tx := &badgerTx{TxMeta: ledger.NewTxMeta(ctx, caller, false), txn: txn}
		if err := fn(tx); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if ev := tx.PendingEvent(); ev != nil {
			if err := putOutboxEntry(txn, tx.ID, ev, tx.At); err != nil {
				return err
			}
		}
		if err := txn.Commit(); err != nil {
			if errors.Is(err, badger.ErrConflict) {
				s.logDebug("commit rejected", "tx_id", tx.ID)
				return fmt.Errorf("badgerstore: commit %s: %w", tx.ID, sentinel.ErrConflict)
			}
			return fmt.Errorf("badgerstore: commit %s: %w", tx.ID, err)
		}
		return nil
	})
}

// Evaluate implements ledger.Ledger.
func (s *Store) Evaluate(ctx context.Context, caller ledger.Caller, fn func(ledger.Tx) error) error {
	return ledger.Run(ctx, ledger.ModeEvaluate, backendName, func(ctx context.Context) error {
		return s.db.View(func(txn *badger.Txn) error {
			return fn(&badgerTx{TxMeta: ledger.NewTxMeta(ctx, caller, true), txn: txn})
		})
	})
}

func (s *Store) logDebug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func encodeEnvelope(env envelope) ([]byte, error) {
	b, err := msgpack.Marshal(&env)
	if err != nil {
		return nil, fmt.Errorf("badgerstore: encode version: %w", err)
	}
	return b, nil
}

func decodeEnvelope(b []byte) (envelope, error) {
	var env envelope
	if err := msgpack.Unmarshal(b, &env); err != nil {
		return envelope{}, fmt.Errorf("badgerstore: decode version: %w", err)
	}
	return env, nil
}
