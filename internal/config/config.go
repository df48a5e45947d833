package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all configuration for the fulfillment orchestrator
type Config struct {
	// Server configuration
	HTTPPort int    `env:"FULFILLD_HTTP_PORT" envDefault:"8080"`
	GRPCPort int    `env:"FULFILLD_GRPC_PORT" envDefault:"9090"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Storage backend: "memory" or "redis"
	StorageBackend string `env:"FULFILLD_STORAGE" envDefault:"memory"`

	// ActivationChain appends the validate/activate/inventory lifecycle
	// tasks after decomposition. Disable to run decomposed order tiers
	// only, e.g. when a downstream workflow engine owns activation.
	ActivationChain bool `env:"FULFILLD_ACTIVATION_CHAIN" envDefault:"true"`

	// Redis configuration
	Redis RedisConfig

	// Downstream provisioning services
	Provision ProvisionConfig

	// Worker configuration
	Workers WorkerConfig

	// Timeouts
	Timeouts TimeoutConfig
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASS"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`

	// Connection pool settings
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	MaxRetries   int           `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// ProvisionConfig holds the endpoints of the downstream provisioning
// services that execute order-tier tasks
type ProvisionConfig struct {
	ActivationURL  string        `env:"PROVISION_ACTIVATION_URL" envDefault:"http://localhost:8181/api/v1/activations"`
	ResourceURL    string        `env:"PROVISION_RESOURCE_URL" envDefault:"http://localhost:8182/api/v1/resources"`
	InventoryURL   string        `env:"PROVISION_INVENTORY_URL" envDefault:"http://localhost:8183/api/v1/inventory"`
	RequestTimeout time.Duration `env:"PROVISION_REQUEST_TIMEOUT" envDefault:"30s"`
}

// WorkerConfig holds worker pool configuration
type WorkerConfig struct {
	PoolSize            int           `env:"WORKER_POOL_SIZE" envDefault:"5"`
	SweepSchedule       string        `env:"WORKER_SWEEP_SCHEDULE" envDefault:"@every 30s"`
	HealthCheckInterval time.Duration `env:"WORKER_HEALTH_CHECK_INTERVAL" envDefault:"30s"`
}

// TimeoutConfig holds various timeout configurations
type TimeoutConfig struct {
	DispatchTimeout time.Duration `env:"TIMEOUT_TASK_DISPATCH" envDefault:"300s"` // 5 minutes
	ShutdownTimeout time.Duration `env:"TIMEOUT_SHUTDOWN" envDefault:"30s"`
	ContextTTL      time.Duration `env:"CONTEXT_TTL" envDefault:"168h"` // 7 days
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.GRPCPort < 1 || c.GRPCPort > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.GRPCPort)
	}

	switch c.StorageBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported storage backend: %s (must be memory or redis)", c.StorageBackend)
	}

	if c.StorageBackend == "redis" && c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required")
	}

	if c.Provision.ActivationURL == "" || c.Provision.ResourceURL == "" || c.Provision.InventoryURL == "" {
		return fmt.Errorf("all provisioning service URLs are required")
	}

	if c.Workers.PoolSize < 1 {
		return fmt.Errorf("worker pool size must be at least 1")
	}
	if c.Workers.SweepSchedule == "" {
		return fmt.Errorf("worker sweep schedule is required")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// GetGRPCAddr returns the gRPC server address
func (c *Config) GetGRPCAddr() string {
	return fmt.Sprintf(":%d", c.GRPCPort)
}
