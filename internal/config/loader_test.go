package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != "8080" {
		t.Errorf("expected port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Postgres.MaxConns != 15 {
		t.Errorf("expected max_conns 15, got %d", cfg.Postgres.MaxConns)
	}
	if cfg.Orchestrator.TaskTimeout != 20*time.Second {
		t.Errorf("expected task timeout 20s, got %v", cfg.Orchestrator.TaskTimeout)
	}
	if cfg.Breaker.Timeout != 30*time.Second {
		t.Errorf("expected breaker timeout 30s, got %v", cfg.Breaker.Timeout)
	}
}

func TestLoadYAMLOverride(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "test.yaml")

	content := `
server:
  port: "9090"
  cors_origin: "http://example.com"
llm:
  model: "openai/gpt-4o"
orchestrator:
  max_parallel: 3
  retry_cooldown: 1m
logging:
  level: "debug"
`
	if err := os.WriteFile(yamlPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Defaults()
	if err := loadYAML(&cfg, yamlPath); err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.LLM.Model != "openai/gpt-4o" {
		t.Errorf("expected overridden model, got %s", cfg.LLM.Model)
	}
	if cfg.Orchestrator.MaxParallel != 3 {
		t.Errorf("expected max_parallel 3, got %d", cfg.Orchestrator.MaxParallel)
	}
	if cfg.Orchestrator.RetryCooldown != time.Minute {
		t.Errorf("expected retry cooldown 1m, got %v", cfg.Orchestrator.RetryCooldown)
	}
	// Unchanged fields keep defaults
	if cfg.NATS.URL != "nats://localhost:4222" {
		t.Errorf("expected default NATS URL, got %s", cfg.NATS.URL)
	}
}

func TestLoadYAMLMissing(t *testing.T) {
	cfg := Defaults()
	err := loadYAML(&cfg, "/nonexistent/path.yaml")
	if err != nil {
		t.Errorf("missing YAML should not error, got %v", err)
	}
}

func TestEnvOverride(t *testing.T) {
	cfg := Defaults()

	t.Setenv("WAYFARER_PORT", "7070")
	t.Setenv("DATABASE_URL", "postgres://test:test@db:5432/test")
	t.Setenv("WAYFARER_ORCH_TASK_TIMEOUT", "45s")
	t.Setenv("WAYFARER_LOG_LEVEL", "warn")
	t.Setenv("AMADEUS_CLIENT_ID", "cid-123")

	loadEnv(&cfg)

	if cfg.Server.Port != "7070" {
		t.Errorf("expected port 7070, got %s", cfg.Server.Port)
	}
	if cfg.Postgres.DSN != "postgres://test:test@db:5432/test" {
		t.Errorf("expected test DSN, got %s", cfg.Postgres.DSN)
	}
	if cfg.Orchestrator.TaskTimeout != 45*time.Second {
		t.Errorf("expected task timeout 45s, got %v", cfg.Orchestrator.TaskTimeout)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected log level warn, got %s", cfg.Logging.Level)
	}
	if cfg.Amadeus.ClientID != "cid-123" {
		t.Errorf("expected amadeus client id, got %s", cfg.Amadeus.ClientID)
	}
}

func TestValidateRequired(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty port", func(c *Config) { c.Server.Port = "" }},
		{"empty dsn", func(c *Config) { c.Postgres.DSN = "" }},
		{"empty nats url", func(c *Config) { c.NATS.URL = "" }},
		{"zero max_conns", func(c *Config) { c.Postgres.MaxConns = 0 }},
		{"zero max_parallel", func(c *Config) { c.Orchestrator.MaxParallel = 0 }},
		{"zero task timeout", func(c *Config) { c.Orchestrator.TaskTimeout = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mutate(&cfg)
			if err := validate(&cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidateDefaults(t *testing.T) {
	cfg := Defaults()
	if err := validate(&cfg); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}
