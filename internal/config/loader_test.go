package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "log:\n  level: DEBUG\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Log.Level != "DEBUG" {
		t.Errorf("level not applied: %q", cfg.Log.Level)
	}
	if cfg.Log.Format != "text" {
		t.Errorf("format default missing: %q", cfg.Log.Format)
	}
	if cfg.Tools.DefaultTimeout != 30*time.Second {
		t.Errorf("timeout default missing: %s", cfg.Tools.DefaultTimeout)
	}
	if !cfg.PluginsEnabled() {
		t.Error("plugins should default to enabled")
	}
}

func TestLoadFullConfig(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
log:
  level: WARN
  format: json
tools:
  default_timeout: 45s
  primary: claude
plugins:
  enabled: true
  settings:
    github:
      default_remote: origin
ledger:
  path: /tmp/adjutant-test/tasks.db
api:
  enabled: true
  listen: 127.0.0.1:8765
  api_key: secret
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Tools.DefaultTimeout != 45*time.Second {
		t.Errorf("default_timeout: %s", cfg.Tools.DefaultTimeout)
	}
	if got := cfg.PluginSettings("github")["default_remote"]; got != "origin" {
		t.Errorf("plugin settings not loaded: %v", got)
	}
	if got := cfg.PluginSettings("missing"); len(got) != 0 {
		t.Errorf("settings for unknown plugin should be empty, got %v", got)
	}
	if !cfg.API.Enabled || cfg.API.Listen != "127.0.0.1:8765" {
		t.Errorf("api config: %+v", cfg.API)
	}
}

func TestLoadDirectoryResolvesConfigYAML(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log:\n  level: INFO\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := Load(dir); err != nil {
		t.Fatalf("Load(dir): %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config")
	}
}

func TestLoadRejectsInvalidLevel(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "log:\n  level: LOUD\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadRejectsAPIWithoutListen(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "api:\n  enabled: true\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("ADJUTANT_TEST_KEY", "sekrit")

	path := writeConfig(t, "api:\n  enabled: true\n  listen: 127.0.0.1:9\n  api_key: ${ADJUTANT_TEST_KEY}\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.APIKey != "sekrit" {
		t.Errorf("env var not expanded: %q", cfg.API.APIKey)
	}
}

func TestPluginsEnabledExplicitFalse(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "plugins:\n  enabled: false\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PluginsEnabled() {
		t.Error("plugins.enabled=false should disable the subsystem")
	}
}
