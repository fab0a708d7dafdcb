package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the root application configuration, read from the environment.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Events   EventsConfig
}

type ServerConfig struct {
	Host string `env:"SERVER_HOST" env-default:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" env-default:"5000"`
}

type DatabaseConfig struct {
	DSN string `env:"DATABASE_DSN" env-default:"host=localhost port=5432 user=postgres password=postgres dbname=debts sslmode=disable"`
}

type AuthConfig struct {
	SessionTTL time.Duration `env:"AUTH_SESSION_TTL" env-default:"168h"`
	JWTSecret  string        `env:"AUTH_JWT_SECRET"`
	JWTIssuer  string        `env:"AUTH_JWT_ISSUER" env-default:"debt-tracker"`
	JWTTTL     time.Duration `env:"AUTH_JWT_TTL" env-default:"24h"`
}

// EventsConfig controls the audit event pipeline. Kafka publishing is
// enabled only when at least one broker address is configured.
type EventsConfig struct {
	BufferSize  int    `env:"EVENTS_BUFFER_SIZE" env-default:"100"`
	KafkaBroker string `env:"EVENTS_KAFKA_BROKERS"`
	KafkaTopic  string `env:"EVENTS_KAFKA_TOPIC" env-default:"debt_events"`
}

func (c EventsConfig) KafkaBrokers() []string {
	if c.KafkaBroker == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBroker, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}

func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("reading config from env: %w", err)
	}
	return &cfg, nil
}
