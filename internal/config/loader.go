package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "wayfarer.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "WAYFARER_PORT")
	setString(&cfg.Server.CORSOrigin, "WAYFARER_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "WAYFARER_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "WAYFARER_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "WAYFARER_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "WAYFARER_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "WAYFARER_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.LLM.URL, "WAYFARER_LLM_URL")
	setString(&cfg.LLM.APIKey, "WAYFARER_LLM_API_KEY")
	setString(&cfg.LLM.Model, "WAYFARER_LLM_MODEL")
	setDuration(&cfg.LLM.Timeout, "WAYFARER_LLM_TIMEOUT")
	setString(&cfg.Amadeus.URL, "AMADEUS_URL")
	setString(&cfg.Amadeus.ClientID, "AMADEUS_CLIENT_ID")
	setString(&cfg.Amadeus.ClientSecret, "AMADEUS_CLIENT_SECRET")
	setString(&cfg.Advisory.URL, "WAYFARER_ADVISORY_URL")
	setString(&cfg.Advisory.APIKey, "WAYFARER_ADVISORY_API_KEY")
	setString(&cfg.Logging.Level, "WAYFARER_LOG_LEVEL")
	setString(&cfg.Logging.Service, "WAYFARER_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "WAYFARER_LOG_ASYNC")
	setString(&cfg.Telemetry.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setInt(&cfg.Breaker.MaxFailures, "WAYFARER_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "WAYFARER_BREAKER_TIMEOUT")
	setInt64(&cfg.Cache.MaxSizeMB, "WAYFARER_CACHE_SIZE_MB")
	setDuration(&cfg.Cache.ExtractionTTL, "WAYFARER_CACHE_EXTRACTION_TTL")
	setDuration(&cfg.Cache.ProviderTTL, "WAYFARER_CACHE_PROVIDER_TTL")
	setInt(&cfg.Orchestrator.MaxParallel, "WAYFARER_ORCH_MAX_PARALLEL")
	setDuration(&cfg.Orchestrator.TaskTimeout, "WAYFARER_ORCH_TASK_TIMEOUT")
	setDuration(&cfg.Orchestrator.RetryCooldown, "WAYFARER_ORCH_RETRY_COOLDOWN")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.NATS.URL == "" {
		return errors.New("nats.url is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Orchestrator.MaxParallel < 1 {
		return errors.New("orchestrator.max_parallel must be >= 1")
	}
	if cfg.Orchestrator.TaskTimeout <= 0 {
		return errors.New("orchestrator.task_timeout must be positive")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
