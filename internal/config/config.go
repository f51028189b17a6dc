package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the process configuration, populated from environment variables
type Config struct {
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"postgres"`
	DBPassword string `envconfig:"DB_PASSWORD" default:"postgres"`
	DBName     string `envconfig:"DB_NAME" default:"chainpay"`
	DBSSLMode  string `envconfig:"DB_SSL_MODE" default:"disable"`

	// GatewayURL is the base URL of the wallet gateway that performs
	// authorization lookups and on-chain sends
	GatewayURL   string `envconfig:"CHAIN_GATEWAY_URL" default:"http://localhost:9000"`
	GatewayToken string `envconfig:"CHAIN_GATEWAY_TOKEN"`

	// PollInterval is how often the scheduler polls for due transfers
	PollInterval time.Duration `envconfig:"SCHEDULER_POLL_INTERVAL" default:"60s"`

	// CallTimeout bounds each authorization check and chain send
	CallTimeout time.Duration `envconfig:"CHAIN_CALL_TIMEOUT" default:"30s"`

	GRPCListenAddr    string `envconfig:"GRPC_LISTEN_ADDR" default:":8080"`
	MetricsListenAddr string `envconfig:"METRICS_LISTEN_ADDR" default:":9090"`
}

// Load populates the configuration from the environment
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}
	return &cfg, nil
}

// DSN builds the postgres connection string
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}
