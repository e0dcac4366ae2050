package idempotency

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"credledger/pkg/platform/httputil"
	"credledger/pkg/requestcontext"
)

const (
	HeaderKey      = "Idempotency-Key"
	HeaderReplayed = "Idempotent-Replayed"
	MaxKeyLength   = 255
)

// ScopeFunc partitions keys, normally by authenticated caller, so two
// clients can never replay each other's responses.
type ScopeFunc func(r *http.Request) string

// Middleware makes mutations carrying an Idempotency-Key replayable for ttl.
// Requests without the header pass through untouched. Server errors release
// the key so the client may retry.
func Middleware(store Store, ttl time.Duration, scope ScopeFunc, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(HeaderKey)
			if key == "" || !isMutation(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			if len(key) > MaxKeyLength {
				httputil.WriteJSON(w, http.StatusBadRequest, map[string]string{
					"error":             "invalid_input",
					"error_description": "Idempotency-Key is too long",
				})
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				var tooLarge *http.MaxBytesError
				status := http.StatusBadRequest
				if errors.As(err, &tooLarge) {
					status = http.StatusRequestEntityTooLarge
				}
				httputil.WriteJSON(w, status, map[string]string{
					"error":             "invalid_input",
					"error_description": "unreadable request body",
				})
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			storeKey := key
			if scope != nil {
				storeKey = scope(r) + ":" + key
			}
			hash := fingerprint(r, body)

			rec, err := store.Begin(ctx, storeKey, hash, ttl)
			switch {
			case errors.Is(err, ErrInProgress):
				httputil.WriteJSON(w, http.StatusConflict, map[string]string{
					"error":             "conflict",
					"error_description": "A request with this Idempotency-Key is still in progress",
				})
				return
			case err != nil:
				if logger != nil {
					logger.WarnContext(ctx, "idempotency store unavailable",
						"error", err,
						"request_id", requestcontext.RequestID(ctx),
					)
				}
				next.ServeHTTP(w, r)
				return
			case rec != nil:
				if rec.RequestHash != hash {
					httputil.WriteJSON(w, http.StatusConflict, map[string]string{
						"error":             "conflict",
						"error_description": "Idempotency-Key was already used for a different request",
					})
					return
				}
				replay(w, rec)
				return
			}

			cw := &captureWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(cw, r)

			// The client may have gone away; the outcome still has to be recorded.
			storeCtx := context.WithoutCancel(ctx)
			if cw.status >= http.StatusInternalServerError {
				err = store.Release(storeCtx, storeKey)
			} else {
				err = store.Complete(storeCtx, storeKey, Record{
					RequestHash: hash,
					Status:      cw.status,
					ContentType: cw.Header().Get("Content-Type"),
					Body:        cw.body.Bytes(),
				}, ttl)
			}
			if err != nil && logger != nil {
				logger.WarnContext(ctx, "failed to record idempotent response",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
			}
		})
	}
}

func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func fingerprint(r *http.Request, body []byte) string {
	h := sha256.New()
	h.Write([]byte(r.Method))
	h.Write([]byte{0})
	h.Write([]byte(r.URL.Path))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

func replay(w http.ResponseWriter, rec *Record) {
	if rec.ContentType != "" {
		w.Header().Set("Content-Type", rec.ContentType)
	}
	w.Header().Set(HeaderReplayed, "true")
	w.WriteHeader(rec.Status)
	_, _ = w.Write(rec.Body)
}

type captureWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func (c *captureWriter) WriteHeader(code int) {
	if !c.wroteHeader {
		c.status = code
		c.wroteHeader = true
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *captureWriter) Write(b []byte) (int, error) {
	c.wroteHeader = true
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}
