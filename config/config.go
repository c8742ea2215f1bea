package config

import (
	"os"
	"strings"
)

// Config holds runtime settings resolved from environment variables.
// Every field has a usable default so the service runs with no env at all
// (memory stores, no Kafka, no S3 — suitable for local development).
type Config struct {
	Port string

	// Redis task store; empty addr selects the in-memory store
	RedisAddr string
	RedisPass string

	// Postgres article store; empty DSN selects the in-memory store
	DatabaseDSN string

	// S3 content store for publishes; empty bucket selects the local stub
	S3Bucket   string
	S3Region   string
	PublicBase string // public URL prefix for published articles

	// Kafka notification events; empty brokers disables emission
	KafkaBrokers []string
	KafkaTopic   string

	// Cohere API key for description polishing; empty disables it
	CohereKey string

	// Image proxy base URL for the resolver chain
	ImageProxyBase string

	// Cron schedule for the scheduled-publish sweep
	PublishCron string

	// Users allowed to self-check drafts past review
	SelfCheckUsers []string
}

// Load reads configuration from the environment
func Load() Config {
	cfg := Config{
		Port:           getEnv("PORT", "8080"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPass:      os.Getenv("REDIS_PASS"),
		DatabaseDSN:    os.Getenv("DATABASE_DSN"),
		S3Bucket:       os.Getenv("S3_BUCKET"),
		S3Region:       getEnv("S3_REGION", "us-east-1"),
		PublicBase:     getEnv("PUBLIC_BASE_URL", "https://content.example.com"),
		KafkaTopic:     getEnv("KAFKA_TOPIC", "exposure-notifications"),
		CohereKey:      os.Getenv("COHERE_API_KEY"),
		ImageProxyBase: os.Getenv("IMAGE_PROXY_BASE"),
		PublishCron:    getEnv("PUBLISH_CRON", "*/5 * * * *"),
	}

	if brokers := os.Getenv("KAFKA_BOOTSTRAP_SERVERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	if users := os.Getenv("SELF_CHECK_USERS"); users != "" {
		cfg.SelfCheckUsers = strings.Split(users, ",")
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
