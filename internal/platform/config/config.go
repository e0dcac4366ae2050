package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// DevSigningKey signs tokens when LEDGER_JWT_SIGNING_KEY is unset. It must be
// overridden outside development.
const DevSigningKey = "dev-secret-key-change-in-production"

// Server captures process level configuration.
type Server struct {
	Addr            string
	DataDir         string // empty selects the in-memory ledger
	JWTSigningKey   string
	LogLevel        slog.Level
	ShutdownTimeout time.Duration
	TxTimeout       time.Duration
	Environment     string
	TrustedProxies  string // comma-separated CIDRs allowed to set X-Forwarded-For

	Kafka      Kafka
	Outbox     Outbox
	Redis      RedisConfig
	Idempotent Idempotency
}

// Kafka configures the event publisher. Empty Brokers selects the log publisher.
type Kafka struct {
	Brokers string
	Topic   string
	Acks    string
}

// Outbox configures the event relay.
type Outbox struct {
	PollInterval time.Duration
	BatchSize    int
}

// RedisConfig configures the shared Redis client. Empty URL disables Redis.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Idempotency configures replay protection for mutation endpoints.
type Idempotency struct {
	TTL time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		Addr:            str("LEDGER_ADDR", ":8080"),
		DataDir:         os.Getenv("LEDGER_DATA_DIR"),
		JWTSigningKey:   str("LEDGER_JWT_SIGNING_KEY", DevSigningKey),
		LogLevel:        level(os.Getenv("LEDGER_LOG_LEVEL")),
		ShutdownTimeout: duration("SHUTDOWN_TIMEOUT", 15*time.Second),
		TxTimeout:       duration("LEDGER_TX_TIMEOUT", 5*time.Second),
		Environment:     str("LEDGER_ENV", "development"),
		TrustedProxies:  os.Getenv("TRUSTED_PROXIES"),
		Kafka: Kafka{
			Brokers: os.Getenv("KAFKA_BROKERS"),
			Topic:   str("KAFKA_TOPIC", "credledger.events"),
			Acks:    str("KAFKA_ACKS", "all"),
		},
		Outbox: Outbox{
			PollInterval: duration("OUTBOX_POLL_INTERVAL", 100*time.Millisecond),
			BatchSize:    integer("OUTBOX_BATCH_SIZE", 100),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     integer("REDIS_POOL_SIZE", 10),
			MinIdleConns: integer("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Idempotent: Idempotency{
			TTL: duration("IDEMPOTENCY_TTL", 24*time.Hour),
		},
	}
}

// UsesDevSigningKey reports whether tokens are signed with the development key.
func (s Server) UsesDevSigningKey() bool {
	return s.JWTSigningKey == DevSigningKey
}

func str(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func duration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}

func integer(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func level(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
