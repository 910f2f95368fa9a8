// Package config loads runtime settings from TXCONFIRM_* environment variables.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/gabapcia/txconfirm/internal/confirmation"
	"github.com/gabapcia/txconfirm/internal/pkg/validator"

	"github.com/kelseyhightower/envconfig"
)

// Prefix is prepended to every environment variable name.
const Prefix = "TXCONFIRM"

// ErrRedisAddrRequired is returned when Redis is enabled without an address.
var ErrRedisAddrRequired = errors.New("redis address is required when redis is enabled")

type Telemetry struct {
	Enabled     bool   `envconfig:"ENABLED" default:"false"`
	ServiceName string `envconfig:"SERVICE_NAME" default:"txconfirm" validate:"required"`
}

// Solana configures the JSON-RPC endpoint and its HTTP transport.
type Solana struct {
	RPCEndpoint    string        `envconfig:"RPC_ENDPOINT" default:"https://api.mainnet-beta.solana.com" validate:"required,url"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"10s" validate:"gt=0"`
	RetryMax       int           `envconfig:"RETRY_MAX" default:"2" validate:"gte=0"`
	RetryWaitMin   time.Duration `envconfig:"RETRY_WAIT_MIN" default:"500ms" validate:"gte=0"`
	RetryWaitMax   time.Duration `envconfig:"RETRY_WAIT_MAX" default:"5s" validate:"gtefield=RetryWaitMin"`
}

// Tracking configures the confirmation trackers and the service running them.
type Tracking struct {
	Commitment             string        `envconfig:"COMMITMENT" default:"confirmed" validate:"oneof=processed confirmed finalized"`
	PollInterval           time.Duration `envconfig:"POLL_INTERVAL" default:"1s" validate:"gt=0"`
	MaxAttempts            int           `envconfig:"MAX_ATTEMPTS" default:"0" validate:"gte=0"`
	MaxConsecutiveFailures uint          `envconfig:"MAX_CONSECUTIVE_FAILURES" default:"5"`
	MaxProcessingTime      time.Duration `envconfig:"MAX_PROCESSING_TIME" default:"2m" validate:"gt=0"`
	Concurrency            int           `envconfig:"CONCURRENCY" default:"16" validate:"gt=0"`
}

// TargetCommitment returns Commitment parsed. Load guarantees it is valid.
func (t Tracking) TargetCommitment() confirmation.Commitment {
	c, err := confirmation.ParseCommitment(t.Commitment)
	if err != nil {
		return confirmation.CommitmentConfirmed
	}
	return c
}

type Redis struct {
	Enabled    bool          `envconfig:"ENABLED" default:"false"`
	Addr       string        `envconfig:"ADDR" default:"localhost:6379"`
	Username   string        `envconfig:"USERNAME"`
	Password   string        `envconfig:"PASSWORD"`
	DB         int           `envconfig:"DB" default:"0" validate:"gte=0"`
	OutcomeTTL time.Duration `envconfig:"OUTCOME_TTL" default:"24h" validate:"gt=0"`
}

// Config is the full application configuration.
type Config struct {
	LogLevel  string    `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Telemetry Telemetry `envconfig:"TELEMETRY"`
	Solana    Solana    `envconfig:"SOLANA"`
	Tracking  Tracking  `envconfig:"TRACKING"`
	Redis     Redis     `envconfig:"REDIS"`
}

// Load reads Config from the environment and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}

	if err := validator.Validate(cfg); err != nil {
		return Config{}, err
	}

	if cfg.Redis.Enabled && cfg.Redis.Addr == "" {
		return Config{}, ErrRedisAddrRequired
	}

	return cfg, nil
}
