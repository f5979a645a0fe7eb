package project

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aversine/adjutant/internal/invoke"
	"github.com/aversine/adjutant/internal/plugin"
)

func newInitialized(t *testing.T) *Plugin {
	t.Helper()
	p := New()
	if err := p.Init(&plugin.InitContext{
		Invoker:        invoke.NewRunner(5 * time.Second),
		DefaultTimeout: 5 * time.Second,
	}); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestInitGoProject(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "demo")

	p := newInitialized(t)
	res := p.initProject(context.Background(), plugin.Call{
		Args: []string{name},
		Opts: map[string]string{"type": "go"},
	})
	if !res.Success {
		t.Fatalf("init failed: %s", res.Error)
	}

	for _, f := range []string{"go.mod", "main.go", "README.md", ".gitignore"} {
		if _, err := os.Stat(filepath.Join(name, f)); err != nil {
			t.Errorf("missing %s: %v", f, err)
		}
	}

	mod, _ := os.ReadFile(filepath.Join(name, "go.mod"))
	if !strings.Contains(string(mod), "module demo") {
		t.Errorf("go.mod: %s", mod)
	}
}

func TestInitPythonProject(t *testing.T) {
	name := filepath.Join(t.TempDir(), "pyproj")

	p := newInitialized(t)
	res := p.initProject(context.Background(), plugin.Call{
		Args: []string{name},
		Opts: map[string]string{"type": "python"},
	})
	if !res.Success {
		t.Fatalf("init failed: %s", res.Error)
	}
	if _, err := os.Stat(filepath.Join(name, "src", "__init__.py")); err != nil {
		t.Errorf("missing src/__init__.py: %v", err)
	}
}

func TestInitRequiresName(t *testing.T) {
	p := newInitialized(t)
	res := p.initProject(context.Background(), plugin.Call{})
	if res.Success {
		t.Fatal("expected failure without a name")
	}
}

func TestInitRejectsExistingDirectory(t *testing.T) {
	dir := t.TempDir()

	p := newInitialized(t)
	res := p.initProject(context.Background(), plugin.Call{Args: []string{dir}})
	if res.Success || !strings.Contains(res.Error, "already exists") {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestInitUnsupportedType(t *testing.T) {
	name := filepath.Join(t.TempDir(), "x")

	p := newInitialized(t)
	res := p.initProject(context.Background(), plugin.Call{
		Args: []string{name},
		Opts: map[string]string{"type": "cobol"},
	})
	if res.Success {
		t.Fatal("expected failure")
	}
	if len(res.Suggestions) == 0 {
		t.Error("expected a suggestion naming supported types")
	}
}

func TestGenReadme(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module demo\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := newInitialized(t)
	res := p.genReadme(context.Background(), plugin.Call{Args: []string{dir}})
	if !res.Success {
		t.Fatalf("gen-readme failed: %s", res.Error)
	}

	content, err := os.ReadFile(filepath.Join(dir, "README.md"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(content), "A go project.") {
		t.Errorf("readme content: %s", content)
	}
	if !strings.Contains(string(content), "go build") {
		t.Errorf("missing go install instructions: %s", content)
	}
}

func TestSetupEnvUnknownType(t *testing.T) {
	p := newInitialized(t)
	res := p.setupEnv(context.Background(), plugin.Call{Opts: map[string]string{"type": "ruby"}})
	if res.Success {
		t.Fatal("expected failure for unsupported environment")
	}
}

func TestSetupEnvJavaScriptWithoutPackageJSON(t *testing.T) {
	dir := t.TempDir()
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })

	p := newInitialized(t)
	res := p.setupEnv(context.Background(), plugin.Call{Opts: map[string]string{"type": "javascript"}})
	if res.Success || !strings.Contains(res.Error, "package.json") {
		t.Errorf("unexpected result: %+v", res)
	}
}
