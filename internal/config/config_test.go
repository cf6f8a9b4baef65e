package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "botfarm.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadSubstitutesEnvVars(t *testing.T) {
	t.Setenv("BOTFARM_TEST_DSN", "postgres://real/db")

	path := writeConfig(t, `{
		"server": {"port": 9090},
		"database": {
			"postgres": {"dsn": "${BOTFARM_TEST_DSN}"},
			"redis": {"url": "${BOTFARM_TEST_REDIS:redis://localhost:6379}"}
		}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Database.Postgres.DSN != "postgres://real/db" {
		t.Errorf("dsn = %q, want env value", cfg.Database.Postgres.DSN)
	}
	if cfg.Database.Redis.URL != "redis://localhost:6379" {
		t.Errorf("redis url = %q, want fallback default", cfg.Database.Redis.URL)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Scheduler.IntervalSecs != 300 {
		t.Errorf("interval = %d, want 300", cfg.Scheduler.IntervalSecs)
	}
	if cfg.Scheduler.Workers != 4 {
		t.Errorf("workers = %d, want 4", cfg.Scheduler.Workers)
	}
	if cfg.Generation.MaxAttempts != 3 {
		t.Errorf("max attempts = %d, want 3", cfg.Generation.MaxAttempts)
	}
	if cfg.Generation.DuplicateThreshold != 0.70 {
		t.Errorf("threshold = %v, want 0.70", cfg.Generation.DuplicateThreshold)
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/botfarm.json"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
