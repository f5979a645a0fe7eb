package analyzer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aversine/adjutant/internal/plugin"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestComplexity(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.go"), "package main\n\nfunc main() {}\n")
	writeFile(t, filepath.Join(dir, "util.py"), "x = 1\ny = 2\n")
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored\n")
	writeFile(t, filepath.Join(dir, "node_modules", "dep.js"), "ignored\n")

	p := New()
	res := p.complexity(context.Background(), plugin.Call{Args: []string{dir}})
	if !res.Success {
		t.Fatalf("complexity failed: %s", res.Error)
	}

	report := res.Output.(ComplexityReport)
	if report.TotalFiles != 2 {
		t.Errorf("total files = %d, want 2", report.TotalFiles)
	}
	if report.TotalLines != 5 {
		t.Errorf("total lines = %d, want 5", report.TotalLines)
	}
	if report.Languages["go"].Files != 1 || report.Languages["python"].Lines != 2 {
		t.Errorf("languages: %+v", report.Languages)
	}
}

func TestComplexityEmptyDir(t *testing.T) {
	t.Parallel()

	p := New()
	res := p.complexity(context.Background(), plugin.Call{Args: []string{t.TempDir()}})
	if !res.Success {
		t.Fatalf("complexity failed: %s", res.Error)
	}
	report := res.Output.(ComplexityReport)
	if report.TotalFiles != 0 || report.ComplexityScore != 0 {
		t.Errorf("empty dir report: %+v", report)
	}
}

func TestDependencies(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "requirements.txt"), "flask==2.0\n# comment\nrequests>=2.28\n")
	writeFile(t, filepath.Join(dir, "package.json"), `{"dependencies":{"react":"^18.0.0"},"devDependencies":{"vitest":"^1.0"}}`)

	p := New()
	res := p.dependencies(context.Background(), plugin.Call{Args: []string{dir}})
	if !res.Success {
		t.Fatalf("deps failed: %s", res.Error)
	}

	report := res.Output.(DependencyReport)
	if len(report.PackageManagers) != 2 {
		t.Errorf("managers: %v", report.PackageManagers)
	}
	pip := report.Dependencies["pip"]
	if len(pip) != 2 || pip[0] != "flask" || pip[1] != "requests" {
		t.Errorf("pip deps: %v", pip)
	}
	if len(report.Dependencies["npm"]) != 2 {
		t.Errorf("npm deps: %v", report.Dependencies["npm"])
	}
}

func TestGoDependencies(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "go.mod"), `module example.com/demo

go 1.22

require (
	github.com/stretchr/testify v1.9.0
	gopkg.in/yaml.v3 v3.0.1 // indirect
)
`)

	p := New()
	res := p.dependencies(context.Background(), plugin.Call{Args: []string{dir}})
	report := res.Output.(DependencyReport)
	deps := report.Dependencies["go"]
	if len(deps) != 2 || deps[0] != "github.com/stretchr/testify" {
		t.Errorf("go deps: %v", deps)
	}
}

func TestSecurity(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "settings.py"), `password = "hunter2"`+"\n")
	writeFile(t, filepath.Join(dir, "runner.py"), `eval(user_input)`+"\n")
	writeFile(t, filepath.Join(dir, "clean.go"), "package clean\n")

	p := New()
	res := p.security(context.Background(), plugin.Call{Args: []string{dir}})
	if !res.Success {
		t.Fatalf("security failed: %s", res.Error)
	}

	report := res.Output.(SecurityReport)
	if report.IssuesFound != 2 {
		t.Errorf("issues = %d, want 2: %+v", report.IssuesFound, report.Issues)
	}
	if report.RiskLevel != "high" {
		t.Errorf("risk = %s, want high", report.RiskLevel)
	}
}

func TestSecurityClean(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.go"), "package main\n")

	p := New()
	res := p.security(context.Background(), plugin.Call{Args: []string{dir}})
	report := res.Output.(SecurityReport)
	if report.IssuesFound != 0 || report.RiskLevel != "low" {
		t.Errorf("clean tree report: %+v", report)
	}
}

func TestPluginContract(t *testing.T) {
	t.Parallel()

	p := New()
	if err := p.Init(&plugin.InitContext{}); err != nil {
		t.Fatal(err)
	}
	cmds := p.Commands()
	for _, name := range []string{"complexity", "deps", "security"} {
		if cmds[name] == nil {
			t.Errorf("missing command %q", name)
		}
	}
	if err := p.Cleanup(); err != nil {
		t.Fatal(err)
	}
}
