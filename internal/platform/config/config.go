// Package config builds runtime configuration from the environment so main
// stays lean. Every knob has a development default; production overrides via
// environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the full runtime configuration.
type Config struct {
	Server    Server
	Redis     Redis
	OCR       OCR
	TOTP      TOTP
	RateLimit RateLimit
	Breaker   Breaker
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// Redis configures the optional distributed backend. An empty URL means the
// service runs on in-memory stores only.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// OCR configures the external receipt verification service.
type OCR struct {
	BaseURL       string
	Token         string
	MaxConcurrent int
}

// TOTP holds the master secret per-popup code secrets derive from.
type TOTP struct {
	MasterSecret string
}

// RateLimit selects the preset applied to the verification endpoint.
type RateLimit struct {
	Preset   string
	Disabled bool
}

// Breaker tunes the OCR circuit breaker.
type Breaker struct {
	FailureThreshold int
	RecoveryTimeout  time.Duration
	RequestTimeout   time.Duration
}

// FromEnv builds the configuration from environment variables.
func FromEnv() (Config, error) {
	cfg := Config{
		Server: Server{
			Addr:            envOr("POPCHECK_ADDR", ":8080"),
			ShutdownTimeout: envDuration("POPCHECK_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Redis: Redis{
			URL:          os.Getenv("POPCHECK_REDIS_URL"),
			PoolSize:     envInt("POPCHECK_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("POPCHECK_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("POPCHECK_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("POPCHECK_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("POPCHECK_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		OCR: OCR{
			BaseURL:       os.Getenv("POPCHECK_OCR_BASE_URL"),
			Token:         os.Getenv("POPCHECK_OCR_TOKEN"),
			MaxConcurrent: envInt("POPCHECK_OCR_MAX_CONCURRENT", 10),
		},
		TOTP: TOTP{
			MasterSecret: envOr("POPCHECK_TOTP_MASTER_SECRET", "dev-master-secret-change-in-production"),
		},
		RateLimit: RateLimit{
			Preset:   envOr("POPCHECK_RATELIMIT_PRESET", "strict"),
			Disabled: os.Getenv("POPCHECK_RATELIMIT_DISABLED") == "true",
		},
		Breaker: Breaker{
			FailureThreshold: envInt("POPCHECK_BREAKER_FAILURE_THRESHOLD", 5),
			RecoveryTimeout:  envDuration("POPCHECK_BREAKER_RECOVERY_TIMEOUT", 30*time.Second),
			RequestTimeout:   envDuration("POPCHECK_BREAKER_REQUEST_TIMEOUT", 10*time.Second),
		},
	}

	if cfg.Breaker.FailureThreshold < 1 {
		return Config{}, fmt.Errorf("breaker failure threshold must be positive, got %d", cfg.Breaker.FailureThreshold)
	}
	if cfg.OCR.MaxConcurrent < 1 {
		return Config{}, fmt.Errorf("ocr max concurrent must be positive, got %d", cfg.OCR.MaxConcurrent)
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
