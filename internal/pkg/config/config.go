package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	LogLevel         string        `env:"LOG_LEVEL" envDefault:"info"`
	ServerAddr       string        `env:"SERVER_ADDR" envDefault:":8080"`
	AdminAddr        string        `env:"ADMIN_ADDR" envDefault:":9091"` // /metrics
	RegistryURL      string        `env:"REGISTRY_POSTGRES_URL,required"`
	TenantDSN        string        `env:"TENANT_POSTGRES_DSN,required"` // must contain the {database} placeholder
	RedisAddr        string        `env:"REDIS_ADDR"`
	KafkaBrokers     string        `env:"KAFKA_BROKERS"`
	KafkaTopic       string        `env:"KAFKA_LIFECYCLE_TOPIC" envDefault:"tenant.lifecycle"`
	SpoolDir         string        `env:"EVENT_SPOOL_DIR" envDefault:"./data/event-spool"`
	SpoolJournalSize int64         `env:"EVENT_SPOOL_JOURNAL_SIZE" envDefault:"1048576"`   // 1 MiB
	SpoolMaxSize     int64         `env:"EVENT_SPOOL_MAX_SIZE" envDefault:"67108864"`      // 64 MiB
	SpoolDrainEvery  time.Duration `env:"EVENT_SPOOL_DRAIN_INTERVAL" envDefault:"30s"`
	JWTSecret        string        `env:"JWT_SECRET,required"`
	BaseDomain       string        `env:"BASE_DOMAIN" envDefault:"campuscore.app"`
	AssetsRoot       string        `env:"ASSETS_ROOT" envDefault:"./data/assets"`
	TrialDays        int           `env:"TRIAL_DAYS" envDefault:"7"`
	SweepInterval    time.Duration `env:"SWEEP_INTERVAL" envDefault:"10m"`
	PlanCacheTTL     time.Duration `env:"PLAN_CACHE_TTL" envDefault:"5m"`
	ProvisionRPS     float64       `env:"PROVISION_RATE_LIMIT" envDefault:"5"`
	ProvisionBurst   int           `env:"PROVISION_RATE_BURST" envDefault:"10"`
	ProvisionTimeout time.Duration `env:"PROVISION_TIMEOUT" envDefault:"60s"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
