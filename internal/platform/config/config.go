package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName  string
	HTTPPort     string
	PostgresDSN  string
	KafkaBrokers []string

	// Conflict retry policy (DCB).
	RetryInitialMs   int64
	RetryBase        float64
	RetryMaxMs       int64
	RetryMaxAttempts int

	ReservationTTL   time.Duration
	OptimisticMaxAge time.Duration
	WorkerPoll       time.Duration

	EnableReservationSweep bool
	EnableSagaRunner       bool
	EnableOrderProjection  bool
}

func Load() (Config, error) {
	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "meridian"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	return Config{
		ServiceName:  service,
		HTTPPort:     port,
		PostgresDSN:  os.Getenv("POSTGRES_DSN"),
		KafkaBrokers: envList("KAFKA_BROKERS"),

		RetryInitialMs:   envInt64("RETRY_INITIAL_MS", 100),
		RetryBase:        envFloat("RETRY_BASE", 2),
		RetryMaxMs:       envInt64("RETRY_MAX_MS", 30_000),
		RetryMaxAttempts: int(envInt64("RETRY_MAX_ATTEMPTS", 5)),

		ReservationTTL:   envDuration("RESERVATION_TTL", 30*time.Minute),
		OptimisticMaxAge: envDuration("OPTIMISTIC_MAX_AGE", 30*time.Second),
		WorkerPoll:       envDuration("WORKER_POLL_INTERVAL", 2*time.Second),

		EnableReservationSweep: envBool("ENABLE_RESERVATION_SWEEP", true),
		EnableSagaRunner:       envBool("ENABLE_SAGA_RUNNER", true),
		EnableOrderProjection:  envBool("ENABLE_ORDER_PROJECTION", true),
	}, nil
}

func envList(name string) []string {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envInt64(name string, fallback int64) int64 {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func envFloat(name string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
