package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/tokamak-network/trh-pipeline/internal/logger"
)

const (
	StoreDriverMemory   = "memory"
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
	StoreDriverRedis    = "redis"
)

type PostgresConfig struct {
	User     string
	Host     string
	Password string
	Database string
	Port     string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// StageConfig controls the simulated work of a single pipeline stage.
type StageConfig struct {
	MinDuration time.Duration
	MaxDuration time.Duration
	FailureRate float64
}

// Config holds runtime configuration for the pipeline service.
type Config struct {
	Port     string
	LogLevel string
	GinMode  string

	StoreDriver string
	Postgres    PostgresConfig
	SQLitePath  string
	Redis       RedisConfig

	Domain   string
	Provider string

	Build  StageConfig
	Deploy StageConfig

	MaxConcurrentDeployments int
	StuckAfter               time.Duration
	MonitorInterval          time.Duration

	CorsAllowOrigins []string
}

// Load reads an optional .env file and builds the configuration from the environment.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	// Load .env file if it exists (optional for Docker runtime)
	if err := godotenv.Load(envFiles...); err != nil {
		logger.Infof("No .env file found, using environment variables: %s", err)
	}

	cfg := &Config{
		Port:        GetString("PORT", "8000"),
		LogLevel:    GetString("LOG_LEVEL", "info"),
		GinMode:     GetString("GIN_MODE", "release"),
		StoreDriver: strings.ToLower(GetString("STORE_DRIVER", StoreDriverMemory)),
		Postgres: PostgresConfig{
			User:     GetString("POSTGRES_USER", "postgres"),
			Host:     GetString("POSTGRES_HOST", "localhost"),
			Password: GetString("POSTGRES_PASSWORD", ""),
			Database: GetString("POSTGRES_DB", "trh_pipeline"),
			Port:     GetString("POSTGRES_PORT", "5432"),
		},
		SQLitePath: GetString("SQLITE_PATH", "storage/pipeline.db"),
		Redis: RedisConfig{
			Addr:     GetString("REDIS_ADDR", "localhost:6379"),
			Password: GetString("REDIS_PASSWORD", ""),
			DB:       GetInt("REDIS_DB", 0),
			Prefix:   GetString("REDIS_PREFIX", "trh-pipeline"),
		},
		Domain:   strings.Trim(strings.ToLower(GetString("DEPLOY_DOMAIN", "trh-apps.dev")), "."),
		Provider: GetString("DEPLOY_PROVIDER", "thanos-cloud"),
		Build: StageConfig{
			MinDuration: GetDuration("BUILD_MIN_DURATION", 2*time.Second),
			MaxDuration: GetDuration("BUILD_MAX_DURATION", 5*time.Second),
			FailureRate: GetFloat("BUILD_FAILURE_RATE", 0),
		},
		Deploy: StageConfig{
			MinDuration: GetDuration("DEPLOY_MIN_DURATION", 1*time.Second),
			MaxDuration: GetDuration("DEPLOY_MAX_DURATION", 3*time.Second),
			FailureRate: GetFloat("DEPLOY_FAILURE_RATE", 0),
		},
		MaxConcurrentDeployments: GetInt("MAX_CONCURRENT_DEPLOYMENTS", 0),
		StuckAfter:               GetDuration("STUCK_DEPLOYMENT_AFTER", 10*time.Minute),
		MonitorInterval:          GetDuration("MONITOR_INTERVAL", time.Minute),
		CorsAllowOrigins:         GetList("CORS_ALLOW_ORIGINS", []string{"*"}),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverMemory, StoreDriverPostgres, StoreDriverSQLite, StoreDriverRedis:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}
	if c.Domain == "" {
		return fmt.Errorf("DEPLOY_DOMAIN must not be empty")
	}
	for name, stage := range map[string]StageConfig{"build": c.Build, "deploy": c.Deploy} {
		if stage.MinDuration < 0 || stage.MaxDuration < stage.MinDuration {
			return fmt.Errorf("invalid %s stage duration range [%s, %s]", name, stage.MinDuration, stage.MaxDuration)
		}
		if stage.FailureRate < 0 || stage.FailureRate > 1 {
			return fmt.Errorf("%s stage failure rate must be within [0, 1], got %v", name, stage.FailureRate)
		}
	}
	if c.MaxConcurrentDeployments < 0 {
		return fmt.Errorf("MAX_CONCURRENT_DEPLOYMENTS must not be negative")
	}
	return nil
}
