package config

import (
	"os"
	"strconv"
)

type Config struct {
	PostgresURI string
	RedisURI    string
	ListenAddr  string
	SecretKey   string

	TickSpec      string
	PurgeSpec     string
	LockTTLDays   int
	RetryCeiling  int
	BackoffBase   int // minutes
	BackoffCap    int // minutes
	JitterMinutes int

	PrimaryRatePerMinute int
	WebhookTimeout       int // seconds
	TenantConcurrency    int
	DefaultTenantID      int64
}

func LoadConfig() *Config {
	return &Config{
		PostgresURI: getEnv("POSTGRES_URI", ""),
		RedisURI:    getEnv("REDIS_URI", "127.0.0.1:6379"),
		ListenAddr:  getEnv("LISTEN_ADDR", ":3000"),
		SecretKey:   getEnv("SECRET_KEY", ""),

		TickSpec:      getEnv("TICK_SPEC", "@every 0h1m0s"),
		PurgeSpec:     getEnv("PURGE_SPEC", "@every 6h0m0s"),
		LockTTLDays:   getEnvInt("LOCK_TTL_DAYS", 30),
		RetryCeiling:  getEnvInt("RETRY_CEILING", 5),
		BackoffBase:   getEnvInt("BACKOFF_BASE_MINUTES", 5),
		BackoffCap:    getEnvInt("BACKOFF_CAP_MINUTES", 360),
		JitterMinutes: getEnvInt("JITTER_MINUTES", 15),

		PrimaryRatePerMinute: getEnvInt("PRIMARY_RATE_PER_MINUTE", 20),
		WebhookTimeout:       getEnvInt("WEBHOOK_TIMEOUT_SECONDS", 30),
		TenantConcurrency:    getEnvInt("TENANT_CONCURRENCY", 10),
		DefaultTenantID:      int64(getEnvInt("DEFAULT_TENANT_ID", 0)),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
