// Package worker relays committed ledger events from the outbox to a message
// broker.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"credledger/internal/events/metrics"
	"credledger/internal/events/outbox"
	"credledger/internal/platform/kafka/producer"
)

// DefaultTopic receives every credential event.
const DefaultTopic = "credledger.events"

// Producer publishes one message synchronously.
type Producer interface {
	Produce(ctx context.Context, msg *producer.Message) error
}

// Worker polls the outbox and publishes entries in creation order. An entry is
// marked processed only after the broker acknowledged it, so delivery is at
// least once.
type Worker struct {
	store        outbox.Store
	producer     Producer
	topic        string
	batchSize    int
	pollInterval time.Duration
	drainTimeout time.Duration
	metrics      *metrics.Metrics
	logger       *slog.Logger
	now          func() time.Time
}

// Option configures the Worker.
type Option func(*Worker)

// WithTopic sets the topic events are published to.
func WithTopic(topic string) Option {
	return func(w *Worker) {
		if topic != "" {
			w.topic = topic
		}
	}
}

// WithBatchSize sets the maximum number of entries fetched per poll.
func WithBatchSize(size int) Option {
	return func(w *Worker) {
		if size > 0 {
			w.batchSize = size
		}
	}
}

// WithPollInterval sets the interval between polls.
func WithPollInterval(interval time.Duration) Option {
	return func(w *Worker) {
		if interval > 0 {
			w.pollInterval = interval
		}
	}
}

// WithDrainTimeout bounds the final flush on shutdown.
func WithDrainTimeout(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.drainTimeout = d
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Worker) {
		w.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		w.logger = logger
	}
}

// WithClock overrides the clock used for processed timestamps.
func WithClock(now func() time.Time) Option {
	return func(w *Worker) {
		w.now = now
	}
}

// New creates an outbox worker.
func New(store outbox.Store, prod Producer, opts ...Option) *Worker {
	w := &Worker{
		store:        store,
		producer:     prod,
		topic:        DefaultTopic,
		batchSize:    100,
		pollInterval: 100 * time.Millisecond,
		drainTimeout: 10 * time.Second,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run polls until ctx is cancelled, then drains what is left. It always
// returns nil so it can share an errgroup with the HTTP server.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.drain()
			return nil
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *Worker) poll(ctx context.Context) {
	start := time.Now()
	if _, err := w.ProcessBatch(ctx); err != nil && ctx.Err() == nil {
		w.logError("outbox poll failed", "error", err)
	}
	w.metrics.ObservePollDuration(time.Since(start).Seconds())
	if err := w.UpdateMetrics(ctx); err != nil && ctx.Err() == nil {
		w.logError("failed to count pending outbox entries", "error", err)
	}
}

// ProcessBatch publishes up to one batch of pending entries and returns how
// many were published. It stops at the first failure so later entries are not
// published ahead of an earlier one.
func (w *Worker) ProcessBatch(ctx context.Context) (int, error) {
	entries, err := w.store.FetchUnprocessed(ctx, w.batchSize)
	if err != nil {
		w.metrics.IncPublishFailures()
		return 0, fmt.Errorf("fetch outbox entries: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}
	w.metrics.ObserveBatchSize(len(entries))

	published := 0
	for _, entry := range entries {
		if err := w.publish(ctx, entry); err != nil {
			w.metrics.IncPublishFailures()
			return published, fmt.Errorf("publish outbox entry %s: %w", entry.ID, err)
		}
		// A failed mark leads to a duplicate publish on the next poll.
		if err := w.store.MarkProcessed(ctx, entry.ID, w.now()); err != nil {
			return published, fmt.Errorf("mark outbox entry %s processed: %w", entry.ID, err)
		}
		w.metrics.IncPublished(entry.EventType)
		published++
	}
	return published, nil
}

func (w *Worker) publish(ctx context.Context, entry *outbox.Entry) error {
	start := time.Now()
	msg := &producer.Message{
		Topic: w.topic,
		Key:   []byte(entry.ID.String()),
		Value: entry.Payload,
		Headers: map[string]string{
			producer.HeaderEventType: entry.EventType,
			producer.HeaderTxID:      entry.TxID,
			producer.HeaderCreatedAt: entry.CreatedAt.UTC().Format(time.RFC3339),
		},
	}
	if err := w.producer.Produce(ctx, msg); err != nil {
		return err
	}
	w.metrics.ObservePublishDuration(time.Since(start).Seconds())
	return nil
}

func (w *Worker) drain() {
	if w.logger != nil {
		w.logger.Info("draining outbox worker")
	}
	ctx, cancel := context.WithTimeout(context.Background(), w.drainTimeout)
	defer cancel()

	for {
		n, err := w.ProcessBatch(ctx)
		if err != nil {
			w.logError("outbox drain stopped", "error", err)
			return
		}
		if n == 0 {
			return
		}
	}
}

// UpdateMetrics refreshes the pending depth gauge.
func (w *Worker) UpdateMetrics(ctx context.Context) error {
	if w.metrics == nil {
		return nil
	}
	count, err := w.store.CountPending(ctx)
	if err != nil {
		return err
	}
	w.metrics.SetPendingDepth(count)
	return nil
}

func (w *Worker) logError(msg string, args ...any) {
	if w.logger != nil {
		w.logger.Error(msg, args...)
	}
}
