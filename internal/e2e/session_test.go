// Package e2e exercises the full assistant flow: config load, registry
// bootstrap with built-in and external plugins, routed dispatch, and the
// persisted task ledger.
package e2e

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/aversine/adjutant/internal/config"
	"github.com/aversine/adjutant/internal/invoke"
	"github.com/aversine/adjutant/internal/plugin"
	"github.com/aversine/adjutant/internal/plugins"
	"github.com/aversine/adjutant/internal/router"
	"github.com/aversine/adjutant/internal/storage"
	"github.com/aversine/adjutant/internal/task"
)

// writeExternalUnit creates a plugin unit directory with a shell entrypoint.
func writeExternalUnit(t *testing.T, pluginsDir, name string) {
	t.Helper()

	unit := filepath.Join(pluginsDir, name)
	if err := os.MkdirAll(unit, 0o755); err != nil {
		t.Fatal(err)
	}

	manifest := fmt.Sprintf(`name: %s
version: 1.0.0
description: test unit
entrypoint: run.sh
commands:
  - greet
`, name)
	if err := os.WriteFile(filepath.Join(unit, "manifest.yaml"), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}

	script := `#!/bin/sh
echo '{"status":"ok","output":{"greeting":"hello from '` + name + `'"}}'
`
	if err := os.WriteFile(filepath.Join(unit, "run.sh"), []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
}

func TestFullSessionFlow(t *testing.T) {
	root := t.TempDir()
	pluginsDir := filepath.Join(root, "plugins")
	ledgerPath := filepath.Join(root, "tasks.db")
	writeExternalUnit(t, pluginsDir, "greeter")

	configYAML := fmt.Sprintf(`log:
  level: error
  format: text
tools:
  default_timeout: 10s
  primary: ""
plugins:
  dir: %s
ledger:
  path: %s
`, pluginsDir, ledgerPath)
	configPath := filepath.Join(root, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("config load: %v", err)
	}

	ctx := context.Background()
	db, err := storage.OpenSQLite(ctx, cfg.Ledger.Path)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	defer db.Close()
	if err := storage.Bootstrap(ctx, db); err != nil {
		t.Fatalf("bootstrap ledger: %v", err)
	}

	registry := plugin.NewRegistry(invoke.NewRunner(cfg.Tools.DefaultTimeout))
	registry.LoadBuiltins(plugins.All()...)
	if err := registry.LoadExternal(cfg.Plugins.Dir); err != nil {
		t.Fatalf("load external: %v", err)
	}
	defer registry.Cleanup()

	tracker := task.NewTracker("e2e-session", task.WithStore(task.NewSQLiteStore(db)))
	commands := router.New(registry, router.WithTracker(tracker))

	// Built-ins and the external unit share one namespace.
	for _, want := range []string{"analyzer:complexity", "github:status", "greeter:greet"} {
		if !registry.Has(want) {
			t.Fatalf("command %s not registered; table: %v", want, registry.Commands())
		}
	}

	// A built-in dispatch against a real directory.
	src := filepath.Join(root, "src")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "main.go"), []byte("package main\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if res := commands.Route(ctx, "analyzer:complexity", []string{src}); !res.Success {
		t.Fatalf("analyzer dispatch failed: %s", res.Error)
	}

	// An external dispatch through the subprocess protocol.
	res := commands.Route(ctx, "greeter:greet", nil)
	if !res.Success {
		t.Fatalf("external dispatch failed: %s", res.Error)
	}

	// A miss is a failure Result, not an error.
	if res := commands.Route(ctx, "nope:missing", nil); res.Success {
		t.Fatal("unknown command must fail")
	}

	// Every dispatch landed in the persisted ledger.
	persisted, err := task.NewSQLiteStore(db).List(ctx)
	if err != nil {
		t.Fatalf("list ledger: %v", err)
	}
	if len(persisted) != 3 {
		t.Fatalf("ledger rows = %d, want 3", len(persisted))
	}

	byStatus := map[task.Status]int{}
	for _, tk := range persisted {
		byStatus[tk.Status]++
		if tk.SessionID != "e2e-session" {
			t.Errorf("session id = %q", tk.SessionID)
		}
	}
	if byStatus[task.StatusCompleted] != 2 || byStatus[task.StatusFailed] != 1 {
		t.Errorf("statuses: %v", byStatus)
	}
}

func TestConfigIntegrityFlow(t *testing.T) {
	root := t.TempDir()
	configPath := filepath.Join(root, "config.yaml")
	if err := os.WriteFile(configPath, []byte("log:\n  level: info\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := config.Lock(configPath); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if err := config.Verify(configPath); err != nil {
		t.Fatalf("verify after lock: %v", err)
	}

	// Any edit invalidates the lock.
	if err := os.WriteFile(configPath, []byte("log:\n  level: debug\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := config.Verify(configPath); err == nil {
		t.Fatal("verify must fail after modification")
	}
}
