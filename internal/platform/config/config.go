// Package config builds runtime configuration from environment variables so
// main stays lean. Geofence tolerances live here, not in the engine: the
// engine takes the tolerance as a parameter per call so it can vary by
// visit type.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	JWTIssuer     string
}

// Postgres captures database connection configuration.
type Postgres struct {
	DSN string
}

// Redis captures the optional distributed lock backend.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka captures the audit pipeline brokers. Empty seeds disable the
// outbox worker; audit events then stay in the outbox (or memory store).
type Kafka struct {
	Seeds []string
}

// Geofence captures the per-visit-type start tolerances, in meters.
// Emergency visits get a wider gate so an officer responding to a call is
// not blocked by GPS drift.
type Geofence struct {
	DefaultToleranceMeters   float64
	EmergencyToleranceMeters float64
}

// Location captures device fix acquisition policy.
type Location struct {
	AttemptTimeout time.Duration
	MaxRetries     int
}

// Config aggregates all runtime configuration.
type Config struct {
	Server   Server
	Postgres Postgres
	Redis    Redis
	Kafka    Kafka
	Geofence Geofence
	Location Location
}

// FromEnv builds a Config from environment variables with development defaults.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:          envOr("VIGIL_ADDR", ":8080"),
			JWTSigningKey: envOr("VIGIL_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			JWTIssuer:     envOr("VIGIL_JWT_ISSUER", "vigil-portal"),
		},
		Postgres: Postgres{
			DSN: os.Getenv("VIGIL_POSTGRES_DSN"),
		},
		Redis: Redis{
			URL:          os.Getenv("VIGIL_REDIS_URL"),
			PoolSize:     envIntOr("VIGIL_REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("VIGIL_REDIS_MIN_IDLE", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: Kafka{
			Seeds: splitNonEmpty(os.Getenv("VIGIL_KAFKA_SEEDS")),
		},
		Geofence: Geofence{
			DefaultToleranceMeters:   envFloatOr("VIGIL_GEOFENCE_TOLERANCE_M", 100),
			EmergencyToleranceMeters: envFloatOr("VIGIL_GEOFENCE_EMERGENCY_TOLERANCE_M", 500),
		},
		Location: Location{
			AttemptTimeout: envDurationOr("VIGIL_LOCATION_ATTEMPT_TIMEOUT", 10*time.Second),
			MaxRetries:     envIntOr("VIGIL_LOCATION_MAX_RETRIES", 2),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
