package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Draft storage backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type Config struct {
	Port               string        `mapstructure:"PORT"`
	Env                string        `mapstructure:"ENV"`
	LogLevel           string        `mapstructure:"LOG_LEVEL"`
	DataSource         string        `mapstructure:"DATA_SOURCE"`
	DataFetchTimeout   time.Duration `mapstructure:"DATA_FETCH_TIMEOUT"`
	DraftBackend       string        `mapstructure:"DRAFT_BACKEND"`
	RedisURL           string        `mapstructure:"REDIS_URL"`
	DatabaseURL        string        `mapstructure:"DATABASE_URL"`
	DBMaxConns         int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns         int32         `mapstructure:"DB_MIN_CONNS"`
	DraftMaxAge        time.Duration `mapstructure:"DRAFT_MAX_AGE"`
	DraftSweepInterval time.Duration `mapstructure:"DRAFT_SWEEP_INTERVAL"`
	AutosaveDelay      time.Duration `mapstructure:"AUTOSAVE_DELAY"`
	CORSOrigins        []string      `mapstructure:"CORS_ORIGINS"`
	BodyLimit          string        `mapstructure:"BODY_LIMIT"`
}

var keys = []string{
	"PORT",
	"ENV",
	"LOG_LEVEL",
	"DATA_SOURCE",
	"DATA_FETCH_TIMEOUT",
	"DRAFT_BACKEND",
	"REDIS_URL",
	"DATABASE_URL",
	"DB_MAX_CONNS",
	"DB_MIN_CONNS",
	"DRAFT_MAX_AGE",
	"DRAFT_SWEEP_INTERVAL",
	"AUTOSAVE_DELAY",
	"CORS_ORIGINS",
	"BODY_LIMIT",
}

// Load reads the environment and an optional .env file in the working
// directory. Environment variables win over the file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATA_SOURCE", "./data/bundle.json")
	v.SetDefault("DATA_FETCH_TIMEOUT", "10s")
	v.SetDefault("DRAFT_BACKEND", BackendMemory)
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("DRAFT_MAX_AGE", "168h")
	v.SetDefault("DRAFT_SWEEP_INTERVAL", "1h")
	v.SetDefault("AUTOSAVE_DELAY", "2s")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("BODY_LIMIT", "10M")

	// Unmarshal only sees env vars that are bound
	for _, k := range keys {
		v.BindEnv(k)
	}

	// a missing .env is fine
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) == 1 && strings.Contains(cfg.CORSOrigins[0], ",") {
		cfg.CORSOrigins = strings.Split(cfg.CORSOrigins[0], ",")
	}
	for i, o := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(o)
	}
	cfg.DraftBackend = strings.ToLower(strings.TrimSpace(cfg.DraftBackend))

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks the draft backend selection and the timing settings.
func (c *Config) Validate() error {
	switch c.DraftBackend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when DRAFT_BACKEND is %q", BackendRedis)
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when DRAFT_BACKEND is %q", BackendPostgres)
		}
	default:
		return fmt.Errorf("DRAFT_BACKEND must be %q, %q or %q, got %q",
			BackendMemory, BackendRedis, BackendPostgres, c.DraftBackend)
	}

	if c.AutosaveDelay <= 0 {
		return fmt.Errorf("AUTOSAVE_DELAY must be positive, got %s", c.AutosaveDelay)
	}
	if c.DraftSweepInterval < 0 {
		return fmt.Errorf("DRAFT_SWEEP_INTERVAL must not be negative, got %s", c.DraftSweepInterval)
	}
	if c.DraftSweepInterval > 0 && c.DraftMaxAge <= 0 {
		return fmt.Errorf("DRAFT_MAX_AGE must be positive when the sweeper runs, got %s", c.DraftMaxAge)
	}
	if c.DataFetchTimeout <= 0 {
		return fmt.Errorf("DATA_FETCH_TIMEOUT must be positive, got %s", c.DataFetchTimeout)
	}
	return nil
}
