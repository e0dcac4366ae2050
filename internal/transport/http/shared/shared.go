// Package shared holds the helpers every ledger handler uses to resolve the
// caller, read path parameters and report failures.
package shared

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"credledger/internal/identity/token"
	"credledger/internal/ledger"
	"credledger/internal/platform/metrics"
	dErrors "credledger/pkg/domain-errors"
	"credledger/pkg/platform/httputil"
	"credledger/pkg/requestcontext"

	"github.com/go-chi/chi/v5"
)

// Caller returns the authenticated ledger caller. A missing identity means the
// route was mounted without the auth middleware.
func Caller(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (ledger.Caller, bool) {
	ctx := r.Context()
	caller, ok := token.CallerFrom(ctx)
	if !ok {
		if logger != nil {
			logger.ErrorContext(ctx, "caller missing from context despite auth middleware",
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return ledger.Caller{}, false
	}
	return caller, true
}

// Param returns a path parameter with percent-encoding removed.
func Param(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

// IntQuery parses an optional integer query parameter. Absent yields 0.
func IntQuery(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidInput, name+" must be an integer")
	}
	return n, nil
}

// Fail logs err, counts it against operation and writes the error response.
// Client errors log at warn, everything else at error.
func Fail(ctx context.Context, w http.ResponseWriter, logger *slog.Logger, m *metrics.Metrics, operation string, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		err = dErrors.Wrap(err, dErrors.CodeTimeout, "ledger transaction timed out")
	}
	code := dErrors.CodeOf(err)
	m.IncFailure(operation, string(code))

	if logger != nil {
		args := []any{
			"operation", operation,
			"code", code,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		}
		if httputil.DomainCodeToHTTPStatus(code) >= http.StatusInternalServerError {
			logger.ErrorContext(ctx, "ledger operation failed", args...)
		} else {
			logger.WarnContext(ctx, "ledger operation rejected", args...)
		}
	}
	httputil.WriteError(w, err)
}
