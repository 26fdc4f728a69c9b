package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"GHS_CONFIG", "GHS_SERVER", "GHS_USER", "GHS_PASSWORD", "GHS_TIMEOUT",
		"LOG_LEVEL", "LOG_FORMAT", "METRICS_ADDR", "GHS_MAX_UPLOAD_MB",
		"GHS_WATCH_DEBOUNCE", "GHS_MTIME_FROM_NOW", "GHS_SHOW_HIDDEN",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server != "http://localhost:8000" {
		t.Errorf("server = %s", cfg.Server)
	}
	if cfg.MaxUploadBytes() != 1024<<20 {
		t.Errorf("max upload = %d", cfg.MaxUploadBytes())
	}
	if cfg.Timeout != 30*time.Second || cfg.LogFormat != "console" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yml")
	data := []byte(`server: https://files.example.com
username: bob
timeout: 5s
max_upload_mb: 16
show_hidden: true
`)
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server != "https://files.example.com" || cfg.Username != "bob" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Timeout != 5*time.Second || cfg.MaxUploadMB != 16 || !cfg.ShowHidden {
		t.Errorf("cfg = %+v", cfg)
	}

	t.Setenv("GHS_SERVER", "http://10.0.0.2:8000")
	t.Setenv("GHS_MAX_UPLOAD_MB", "64")
	t.Setenv("GHS_SHOW_HIDDEN", "false")
	t.Setenv("GHS_TIMEOUT", "not-a-duration")
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server != "http://10.0.0.2:8000" || cfg.MaxUploadMB != 64 || cfg.ShowHidden {
		t.Errorf("env did not override: %+v", cfg)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("bad duration should fall back to the file value, got %s", cfg.Timeout)
	}
}

func TestLoadConfigEnvPath(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "alt.yml")
	os.WriteFile(path, []byte("log_level: debug\n"), 0600)
	t.Setenv("GHS_CONFIG", path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log level = %s", cfg.LogLevel)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	t.Setenv("GHS_SERVER", "ftp://example.com")
	if _, err := Load(filepath.Join(dir, "none.yml")); err == nil {
		t.Error("expected error for ftp server")
	}

	t.Setenv("GHS_SERVER", "")
	t.Setenv("GHS_MAX_UPLOAD_MB", "0")
	if _, err := Load(filepath.Join(dir, "none.yml")); err == nil {
		t.Error("expected error for zero upload cap")
	}

	t.Setenv("GHS_MAX_UPLOAD_MB", "")
	bad := filepath.Join(dir, "bad.yml")
	os.WriteFile(bad, []byte("server: [unclosed\n"), 0600)
	if _, err := Load(bad); err == nil {
		t.Error("expected parse error")
	}
}
