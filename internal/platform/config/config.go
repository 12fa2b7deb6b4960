// Package config loads process configuration from environment variables so
// main stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	strutil "github.com/cerberus100/Telehealthcrm-sub001/pkg/platform/strings"
)

// Environment selects runtime behavior that must differ between deployments.
type Environment string

const (
	EnvProduction  Environment = "production"
	EnvDevelopment Environment = "development"
	EnvDemo        Environment = "demo"
)

// IsProduction reports whether production-only hardening applies: no
// anonymous fallback on public routes, no mock tokens, no dev auth header.
func (e Environment) IsProduction() bool {
	return e == EnvProduction
}

type ServerConfig struct {
	Addr string
}

type JWTConfig struct {
	SigningKey string
	Issuer     string
	Audience   string
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type RateLimitConfig struct {
	Limit    int
	Window   time.Duration
	Disabled bool
}

type AuditConfig struct {
	RetentionDays int
	KafkaBrokers  []string
	KafkaTopic    string
}

// Config is the full process configuration.
type Config struct {
	Server      ServerConfig
	Environment Environment
	JWT         JWTConfig
	Redis       RedisConfig
	PostgresDSN string
	RateLimit   RateLimitConfig
	Audit       AuditConfig

	// DevAuthSecretHash is the bcrypt hash guarding the development-only
	// auth header fallback. Empty disables the fallback entirely.
	DevAuthSecretHash string
}

// FromEnv builds the configuration from environment variables, with
// defaults suitable for local development.
func FromEnv() Config {
	env := Environment(envOr("TELEHEALTH_ENV", string(EnvDevelopment)))
	switch env {
	case EnvProduction, EnvDevelopment, EnvDemo:
	default:
		env = EnvDevelopment
	}

	signingKey := os.Getenv("JWT_SIGNING_KEY")
	if signingKey == "" && !env.IsProduction() {
		signingKey = "dev-secret-key-change-in-production"
	}

	return Config{
		Server: ServerConfig{
			Addr: envOr("TELEHEALTH_ADDR", ":8080"),
		},
		Environment: env,
		JWT: JWTConfig{
			SigningKey: signingKey,
			Issuer:     envOr("JWT_ISSUER", "telehealth-platform"),
			Audience:   envOr("JWT_AUDIENCE", "telehealth-api"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		PostgresDSN: os.Getenv("POSTGRES_DSN"),
		RateLimit: RateLimitConfig{
			Limit:    envInt("RATE_LIMIT_REQUESTS", 100),
			Window:   envDuration("RATE_LIMIT_WINDOW", time.Minute),
			Disabled: envBool("RATE_LIMIT_DISABLED"),
		},
		Audit: AuditConfig{
			RetentionDays: envInt("AUDIT_RETENTION_DAYS", 2555),
			KafkaBrokers:  envList("KAFKA_BROKERS"),
			KafkaTopic:    envOr("KAFKA_AUDIT_TOPIC", "telehealth.audit.security"),
		},
		DevAuthSecretHash: os.Getenv("DEV_AUTH_SECRET_HASH"),
	}
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
	if err != nil || n <= 0 {
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
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func envBool(key string) bool {
	return os.Getenv(key) == "true"
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	return strutil.DedupeAndTrim(strings.Split(v, ","))
}
