// Package config loads the rpcwatch command configuration from environment
// variables prefixed with RPCWATCH_.
package config

import (
	"fmt"
	"time"

	"github.com/gabapcia/rpcwatch/internal/pkg/validator"

	"github.com/kelseyhightower/envconfig"
)

// Prefix is prepended to every variable name.
const Prefix = "RPCWATCH"

// Config is the command configuration.
type Config struct {
	RPCURL          string        `envconfig:"RPC_URL" required:"true" validate:"required"`
	PollingInterval time.Duration `envconfig:"POLLING_INTERVAL" default:"4s" validate:"gt=0"`
	RetryCount      uint          `envconfig:"RETRY_COUNT" default:"3"`
	RetryDelay      time.Duration `envconfig:"RETRY_DELAY" default:"150ms" validate:"gte=0"`
	Timeout         time.Duration `envconfig:"TIMEOUT" default:"10s" validate:"gt=0"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	TelemetryEnabled bool   `envconfig:"TELEMETRY_ENABLED" default:"false"`
	ServiceName      string `envconfig:"SERVICE_NAME" default:"rpcwatch" validate:"required"`

	Redis Redis `envconfig:"REDIS"`
}

// Redis locates the checkpoint store. An empty Addr disables checkpoints.
type Redis struct {
	Addr     string `envconfig:"ADDR"`
	Username string `envconfig:"USERNAME"`
	Password string `envconfig:"PASSWORD"`
	DB       int    `envconfig:"DB" default:"0" validate:"gte=0"`
}

// Load reads and validates the configuration.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	if err := validator.Validate(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
