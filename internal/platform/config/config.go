// Package config builds runtime configuration from environment variables so
// main stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full runtime configuration.
type Config struct {
	Addr          string
	LogLevel      string
	LogFormat     string
	JWTSigningKey string
	PolicyPath    string
	ArtifactDir   string

	// SessionBackend selects the session/event store: memory, postgres
	// or redis.
	SessionBackend string

	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
}

type PostgresConfig struct {
	DSN string
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig enables the audit mirror and CRM notifier when brokers are
// set; both are optional.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
	CRMTopic   string
}

// FromEnv builds a Config from environment variables with development
// defaults. Production deployments override via the environment.
func FromEnv() Config {
	return Config{
		Addr:           envOr("GREENLIGHT_ADDR", ":8080"),
		LogLevel:       envOr("GREENLIGHT_LOG_LEVEL", "info"),
		LogFormat:      envOr("GREENLIGHT_LOG_FORMAT", "json"),
		JWTSigningKey:  envOr("GREENLIGHT_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		PolicyPath:     os.Getenv("GREENLIGHT_POLICY_PATH"),
		ArtifactDir:    envOr("GREENLIGHT_ARTIFACT_DIR", "data/artifacts"),
		SessionBackend: envOr("GREENLIGHT_SESSION_BACKEND", "memory"),
		Postgres: PostgresConfig{
			DSN: os.Getenv("GREENLIGHT_POSTGRES_DSN"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("GREENLIGHT_REDIS_URL"),
			PoolSize:     envInt("GREENLIGHT_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("GREENLIGHT_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("GREENLIGHT_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("GREENLIGHT_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("GREENLIGHT_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:    envList("GREENLIGHT_KAFKA_BROKERS"),
			AuditTopic: envOr("GREENLIGHT_KAFKA_AUDIT_TOPIC", "greenlight.audit"),
			CRMTopic:   envOr("GREENLIGHT_KAFKA_CRM_TOPIC", "greenlight.crm"),
		},
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
