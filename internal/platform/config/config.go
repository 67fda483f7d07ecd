// Package config builds runtime configuration from environment variables so
// main stays lean.
package config

import (
	"os"
	"strings"
)

// Config captures everything the server needs at startup. External backends
// are optional: an empty DSN/URL/broker list selects the in-process
// fallback for that concern.
type Config struct {
	Addr             string
	DatabaseURL      string
	RedisURL         string
	KafkaBrokers     []string
	KafkaNotifyTopic string
	BusinessTimeZone string
	JournalBuffer    int
}

// FromEnv reads configuration with development defaults.
func FromEnv() Config {
	cfg := Config{
		Addr:             getenv("SHIFTGATE_ADDR", ":8080"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		KafkaNotifyTopic: getenv("KAFKA_NOTIFY_TOPIC", "attendance-notifications"),
		BusinessTimeZone: getenv("BUSINESS_TZ", "UTC"),
		JournalBuffer:    256,
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
