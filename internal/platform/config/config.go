package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends accepted in STORE_BACKEND.
const (
	BackendAuto     = ""
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type HTTPConfig struct {
	Addr string
}

type GRPCConfig struct {
	Addr string
}

type MongoConfig struct {
	URI         string
	MaxPoolSize uint64
}

type BreakerConfig struct {
	MaxFailures uint32
	OpenTimeout time.Duration
}

type AppConfig struct {
	ServiceName string
	Env         string
	LogLevel    string
	HTTP        HTTPConfig
	GRPC        GRPCConfig

	StoreBackend string
	Mongo        MongoConfig
	DatabaseURL  string

	NATSURL        string
	NATSEnabled    bool
	RedisDSN       string
	IdempotencyTTL time.Duration

	Breaker BreakerConfig
}

// IsProd reports whether APP_ENV selects production strictness.
func (c AppConfig) IsProd() bool {
	return c.Env == "production"
}

func Load() (AppConfig, error) {
	cfg := AppConfig{
		ServiceName:  strings.TrimSpace(os.Getenv("SERVICE_NAME")),
		Env:          strings.ToLower(strings.TrimSpace(os.Getenv("APP_ENV"))),
		LogLevel:     strings.TrimSpace(os.Getenv("LOG_LEVEL")),
		HTTP:         HTTPConfig{Addr: strings.TrimSpace(os.Getenv("HTTP_ADDR"))},
		GRPC:         GRPCConfig{Addr: strings.TrimSpace(os.Getenv("GRPC_ADDR"))},
		StoreBackend: strings.ToLower(strings.TrimSpace(os.Getenv("STORE_BACKEND"))),
		Mongo:        MongoConfig{URI: strings.TrimSpace(os.Getenv("MONGODB_CONNECTION_STRING"))},
		DatabaseURL:  strings.TrimSpace(os.Getenv("DATABASE_URL")),
		NATSURL:      strings.TrimSpace(os.Getenv("NATS_URL")),
		RedisDSN:     strings.TrimSpace(os.Getenv("REDIS_DSN")),
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "comments"
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.GRPC.Addr == "" {
		cfg.GRPC.Addr = ":9090"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	switch cfg.StoreBackend {
	case BackendAuto, BackendMongo, BackendPostgres, BackendMemory:
	default:
		return AppConfig{}, fmt.Errorf("STORE_BACKEND must be one of mongo, postgres, memory; got %q", cfg.StoreBackend)
	}

	var err error
	if cfg.Mongo.MaxPoolSize, err = envUint("MONGODB_MAX_POOL_SIZE", 0); err != nil {
		return AppConfig{}, err
	}
	if cfg.NATSEnabled, err = envBool("NATS_ENABLED", cfg.NATSURL != ""); err != nil {
		return AppConfig{}, err
	}
	if cfg.IdempotencyTTL, err = envDuration("IDEMPOTENCY_TTL", 24*time.Hour); err != nil {
		return AppConfig{}, err
	}
	maxFailures, err := envUint("BREAKER_MAX_FAILURES", 5)
	if err != nil {
		return AppConfig{}, err
	}
	cfg.Breaker.MaxFailures = uint32(maxFailures)
	if cfg.Breaker.OpenTimeout, err = envDuration("BREAKER_OPEN_TIMEOUT", 30*time.Second); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

func envUint(key string, fallback uint64) (uint64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envBool(key string, fallback bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s: invalid duration %q", key, v)
	}
	return d, nil
}
