package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FIELDSYNC_HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Sync.ProductTimeout != 120*time.Second {
		t.Errorf("product timeout = %v", cfg.Sync.ProductTimeout)
	}
	if cfg.Sync.ProductAttempts != 3 {
		t.Errorf("attempts = %d", cfg.Sync.ProductAttempts)
	}
	if cfg.Daemon.UploadInterval != time.Minute {
		t.Errorf("upload interval = %v", cfg.Daemon.UploadInterval)
	}
	if cfg.Dashboard.Port != 8787 {
		t.Errorf("dashboard port = %d", cfg.Dashboard.Port)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("FIELDSYNC_HOME", dir)

	path := filepath.Join(dir, "config.yaml")
	content := `
api:
  base_url: https://backend.example.com/api
  token: secret
sync:
  product_attempts: 5
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.BaseURL != "https://backend.example.com/api" || cfg.API.Token != "secret" {
		t.Errorf("api = %+v", cfg.API)
	}
	if cfg.Sync.ProductAttempts != 5 {
		t.Errorf("attempts = %d", cfg.Sync.ProductAttempts)
	}
	// Unset keys keep their defaults.
	if cfg.Sync.ProductTimeout != 120*time.Second {
		t.Errorf("product timeout = %v", cfg.Sync.ProductTimeout)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("FIELDSYNC_HOME", t.TempDir())
	t.Setenv("FIELDSYNC_API_TOKEN", "from-env")
	t.Setenv("FIELDSYNC_LOG_LEVEL", "warn")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.Token != "from-env" {
		t.Errorf("token = %q", cfg.API.Token)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
}

func TestDirHonorsHomeOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("FIELDSYNC_HOME", dir)
	if got := Dir(); got != dir {
		t.Errorf("Dir() = %q, want %q", got, dir)
	}
}

func TestNewLoggerLevels(t *testing.T) {
	var cfg Config
	cfg.Log.Level = "debug"
	if got := cfg.NewLogger().GetLevel(); got != logrus.DebugLevel {
		t.Errorf("level = %v", got)
	}

	cfg.Log.Level = "not-a-level"
	if got := cfg.NewLogger().GetLevel(); got != logrus.InfoLevel {
		t.Errorf("bad level fallback = %v", got)
	}
}
