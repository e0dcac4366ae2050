// Package httptransport assembles the ledgerd HTTP surface.
package httptransport

import (
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"credledger/internal/platform/health"
	"credledger/internal/platform/idempotency"
	"credledger/internal/platform/metrics"
	"credledger/pkg/platform/middleware/auth"
	"credledger/pkg/platform/middleware/metadata"
	"credledger/pkg/platform/middleware/request"
	"credledger/pkg/platform/middleware/requesttime"
)

// APIPrefix is the mount point of the ledger API.
const APIPrefix = "/api/v1"

// Registrar mounts a bounded context's routes.
type Registrar interface {
	Register(r chi.Router)
}

// Deps are the collaborators the router wires together. Optional fields may
// be left nil.
type Deps struct {
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Health   *health.Handler
	Tokens   auth.TokenValidator

	Idempotency    idempotency.Store
	IdempotencyTTL time.Duration
	TxTimeout      time.Duration
	BodyLimit      int64

	TrustedProxies []netip.Prefix
	Handlers       []Registrar
}

// NewRouter wires all public endpoints with middleware.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(request.Recovery(d.Logger))
	r.Use(request.RequestID)
	r.Use(metadata.NewMiddleware(&metadata.Config{TrustedProxies: d.TrustedProxies}).Handler)
	r.Use(request.Logger(d.Logger))
	r.Use(request.Latency(d.Metrics))
	r.Use(requesttime.Middleware)

	if d.Health != nil {
		d.Health.Register(r)
	}
	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	limit := d.BodyLimit
	if limit <= 0 {
		limit = request.DefaultBodyLimit
	}

	r.Route(APIPrefix, func(api chi.Router) {
		api.Use(request.BodyLimit(limit))
		api.Use(request.ContentTypeJSON)
		api.Use(auth.RequireAuth(d.Tokens, d.Logger))
		if d.TxTimeout > 0 {
			api.Use(chimw.Timeout(d.TxTimeout))
		}
		if d.Idempotency != nil {
			api.Use(idempotency.Middleware(d.Idempotency, d.IdempotencyTTL, callerScope, d.Logger))
		}
		for _, h := range d.Handlers {
			h.Register(api)
		}
	})

	return r
}

func callerScope(r *http.Request) string {
	if id, ok := auth.IdentityFrom(r.Context()); ok {
		return id.Subject
	}
	return ""
}
