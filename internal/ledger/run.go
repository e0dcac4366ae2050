package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"credledger/internal/sentinel"
	dErrors "credledger/pkg/domain-errors"
	"credledger/pkg/requestcontext"
)

// Transaction modes, used as span names and metric labels.
const (
	ModeSubmit   = "submit"
	ModeEvaluate = "evaluate"
)

// DefaultTxTimeout bounds a transaction when the caller's context has no deadline.
const DefaultTxTimeout = 5 * time.Second

var tracer = otel.Tracer("credledger/ledger")

var (
	txDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "credledger_ledger_tx_duration_seconds",
		Help:    "Duration of ledger transactions including commit",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"mode", "outcome"})
	txConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "credledger_ledger_conflicts_total",
		Help: "Total number of transactions rejected with a version conflict at commit",
	})
)

// NewTxMeta stamps a fresh transaction. The timestamp is the request time with
// second precision, so every record written by one transaction agrees.
func NewTxMeta(ctx context.Context, caller Caller, readOnly bool) TxMeta {
	return TxMeta{
		ID:       uuid.NewString(),
		At:       requestcontext.Now(ctx).UTC().Truncate(time.Second),
		Invoker:  caller,
		ReadOnly: readOnly,
	}
}

// Run wraps one backend transaction with the shared deadline, span and metrics,
// and translates backend sentinels into domain errors.
func Run(ctx context.Context, mode, backend string, fn func(ctx context.Context) error) (err error) {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTxTimeout)
		defer cancel()
	}

	ctx, span := tracer.Start(ctx, "ledger."+mode, trace.WithAttributes(
		attribute.String("ledger.backend", backend),
	))
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = string(dErrors.CodeOf(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		txDuration.WithLabelValues(mode, outcome).Observe(time.Since(start).Seconds())
		span.End()
	}()

	return translate(fn(ctx))
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrConflict):
		txConflicts.Inc()
		return dErrors.Wrap(err, dErrors.CodeConflict, "transaction conflicts with a concurrent commit")
	case errors.Is(err, sentinel.ErrReadOnly):
		return dErrors.Wrap(err, dErrors.CodeInternal, "write attempted in a read-only transaction")
	case errors.Is(err, sentinel.ErrInvalidInput):
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "ledger failure")
	}
}
