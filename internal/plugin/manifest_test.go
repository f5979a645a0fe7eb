package plugin

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestLoadManifestScalarCommands(t *testing.T) {
	t.Parallel()

	path := writeManifest(t, `name: deployer
version: 0.3.0
description: deploys things
entrypoint: run.sh
commands: [deploy, rollback]
`)
	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if m.Name != "deployer" || len(m.Commands) != 2 {
		t.Errorf("unexpected manifest: %+v", m)
	}
	if m.Commands[0].Name != "deploy" || m.Commands[0].Timeout != 0 {
		t.Errorf("scalar command parse: %+v", m.Commands[0])
	}
}

func TestLoadManifestObjectCommands(t *testing.T) {
	t.Parallel()

	path := writeManifest(t, `name: deployer
version: 0.3.0
entrypoint: run.sh
commands:
  - name: deploy
    description: deploy to production
    timeout: 5m
  - name: status
`)
	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if m.Commands[0].Timeout != 5*time.Minute {
		t.Errorf("timeout not parsed: %v", m.Commands[0].Timeout)
	}
	if m.Commands[1].Name != "status" {
		t.Errorf("second command: %+v", m.Commands[1])
	}
}

func TestLoadManifestValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{"missing name", "version: 1.0.0\nentrypoint: run.sh\ncommands: [x]\n"},
		{"missing version", "name: p\nentrypoint: run.sh\ncommands: [x]\n"},
		{"missing entrypoint", "name: p\nversion: 1.0.0\ncommands: [x]\n"},
		{"no commands", "name: p\nversion: 1.0.0\nentrypoint: run.sh\n"},
		{"path traversal", "name: p\nversion: 1.0.0\nentrypoint: ../../evil\ncommands: [x]\n"},
		{"colon in name", "name: \"p:q\"\nversion: 1.0.0\nentrypoint: run.sh\ncommands: [x]\n"},
		{"duplicate commands", "name: p\nversion: 1.0.0\nentrypoint: run.sh\ncommands: [x, x]\n"},
		{"commands not a list", "name: p\nversion: 1.0.0\nentrypoint: run.sh\ncommands: x\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadManifest(writeManifest(t, tt.content)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
