package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	certhandler "credledger/internal/certificate/handler"
	certservice "credledger/internal/certificate/service"
	eventmetrics "credledger/internal/events/metrics"
	"credledger/internal/events/outbox"
	"credledger/internal/events/worker"
	"credledger/internal/identity/token"
	"credledger/internal/ledger"
	"credledger/internal/ledger/badgerstore"
	"credledger/internal/platform/config"
	"credledger/internal/platform/health"
	"credledger/internal/platform/idempotency"
	"credledger/internal/platform/kafka/producer"
	"credledger/internal/platform/logger"
	"credledger/internal/platform/metrics"
	"credledger/internal/platform/redis"
	skillhandler "credledger/internal/skill/handler"
	skillservice "credledger/internal/skill/service"
	httptransport "credledger/internal/transport/http"
	"credledger/pkg/platform/circuit"
	"credledger/pkg/platform/middleware/metadata"
)

// backend is a ledger whose committed events the outbox worker can relay.
type backend interface {
	ledger.Ledger
	outbox.Store
}

// publisher is the event sink the worker publishes to.
type publisher interface {
	worker.Producer
	Healthy(ctx context.Context) bool
	Close() error
}

// main wires dependencies and runs the HTTP server and the outbox worker
// until SIGINT or SIGTERM. Business logic lives in internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("ledgerd stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("ledgerd stopped")
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	log.Info("initializing ledgerd",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"data_dir", cfg.DataDir,
	)
	if cfg.UsesDevSigningKey() {
		log.Warn("using the development JWT signing key; set LEDGER_JWT_SIGNING_KEY outside development")
	}

	proxies, rejected := metadata.ParseTrustedProxies(cfg.TrustedProxies)
	if len(rejected) > 0 {
		log.Warn("ignoring invalid TRUSTED_PROXIES entries", "entries", rejected)
	}

	reg := prometheus.DefaultRegisterer
	m := metrics.New(reg)

	store, closeStore, err := openLedger(cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	pub, err := openPublisher(cfg, log)
	if err != nil {
		return err
	}
	defer pub.Close() //nolint:errcheck // flush failures are logged by the producer

	rdb, err := redis.New(ctx, cfg.Redis, reg)
	if err != nil {
		return err
	}
	var idem idempotency.Store = idempotency.NewMemoryStore()
	if rdb != nil {
		idem = idempotency.NewFallbackStore(
			idempotency.NewRedisStore(rdb.Client),
			idempotency.NewMemoryStore(),
			circuit.New("idempotency-redis"),
			log,
		)
		defer rdb.Close() //nolint:errcheck // shutting down
	}

	hh := health.New(cfg.Environment)
	hh.RegisterCheck("ledger", func(ctx context.Context) error {
		_, err := store.CountPending(ctx)
		return err
	})
	hh.RegisterCheck("events", func(ctx context.Context) error {
		if !pub.Healthy(ctx) {
			return errors.New("event publisher unreachable")
		}
		return nil
	})
	if rdb != nil {
		hh.RegisterCheck("redis", rdb.Health)
	}

	tokens := token.NewService(cfg.JWTSigningKey)
	certs := certservice.NewService(certservice.WithLogger(log), certservice.WithMetrics(m))
	skills := skillservice.NewService(skillservice.WithLogger(log), skillservice.WithMetrics(m))

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:         log,
		Metrics:        m,
		Gatherer:       prometheus.DefaultGatherer,
		Health:         hh,
		Tokens:         token.NewMiddlewareAdapter(tokens),
		Idempotency:    idem,
		IdempotencyTTL: cfg.Idempotent.TTL,
		TxTimeout:      cfg.TxTimeout,
		TrustedProxies: proxies,
		Handlers: []httptransport.Registrar{
			certhandler.New(store, certs, log, m),
			skillhandler.New(store, skills, log, m),
		},
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	relay := worker.New(store, pub,
		worker.WithTopic(cfg.Kafka.Topic),
		worker.WithBatchSize(cfg.Outbox.BatchSize),
		worker.WithPollInterval(cfg.Outbox.PollInterval),
		worker.WithDrainTimeout(cfg.ShutdownTimeout),
		worker.WithMetrics(eventmetrics.New(reg)),
		worker.WithLogger(log),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return relay.Run(gctx)
	})
	if rdb != nil {
		g.Go(func() error {
			t := time.NewTicker(15 * time.Second)
			defer t.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-t.C:
					rdb.RecordPoolStats()
				}
			}
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openLedger(cfg config.Server, log *slog.Logger) (backend, func(), error) {
	if cfg.DataDir == "" {
		log.Warn("LEDGER_DATA_DIR not set; using the in-memory ledger, state is lost on exit")
		return ledger.NewMemory(ledger.WithMemoryLogger(log)), func() {}, nil
	}
	store, err := badgerstore.Open(badgerstore.WithDir(cfg.DataDir), badgerstore.WithLogger(log))
	if err != nil {
		return nil, nil, fmt.Errorf("open ledger at %s: %w", cfg.DataDir, err)
	}
	return store, func() {
		if err := store.Close(); err != nil {
			log.Error("failed to close ledger", "error", err)
		}
	}, nil
}

func openPublisher(cfg config.Server, log *slog.Logger) (publisher, error) {
	if cfg.Kafka.Brokers == "" {
		log.Info("KAFKA_BROKERS not set; events are written to the log")
		return producer.NewLogProducer(log), nil
	}
	pcfg := producer.DefaultConfig(cfg.Kafka.Brokers)
	if cfg.Kafka.Acks != "" {
		pcfg.Acks = cfg.Kafka.Acks
	}
	p, err := producer.New(pcfg, log)
	if err != nil {
		return nil, err
	}
	return p, nil
}
