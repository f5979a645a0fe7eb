package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigFallsBackToDefaults(t *testing.T) {
	t.Setenv("ADJUTANT_CONFIG", "")
	t.Setenv("HOME", t.TempDir())

	wd, _ := os.Getwd()
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Tools.Primary != "claude" {
		t.Errorf("default primary = %q", cfg.Tools.Primary)
	}
}

func TestLoadConfigExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("tools:\n  primary: mytool\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Tools.Primary != "mytool" {
		t.Errorf("primary = %q", cfg.Tools.Primary)
	}
}

func TestNewSessionWiresBuiltins(t *testing.T) {
	t.Setenv("ADJUTANT_CONFIG", "")
	t.Setenv("HOME", t.TempDir())

	s, err := newSession("", false)
	if err != nil {
		t.Fatalf("newSession: %v", err)
	}
	defer s.close()

	names := map[string]bool{}
	for _, d := range s.registry.Plugins() {
		names[d.Name] = true
	}
	for _, want := range []string{"analyzer", "project", "github", "gcloud"} {
		if !names[want] {
			t.Errorf("builtin %q not loaded: %v", want, names)
		}
	}
}

func TestShortHash(t *testing.T) {
	if got := shortHash("abcdefghijklmnop"); got != "abcdefghijkl" {
		t.Errorf("shortHash = %q", got)
	}
	if got := shortHash("abc"); got != "abc" {
		t.Errorf("shortHash short input = %q", got)
	}
}
