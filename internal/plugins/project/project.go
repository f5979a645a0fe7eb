// Package project is the built-in scaffolding plugin: project skeletons,
// README generation and development environment setup.
package project

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aversine/adjutant/internal/invoke"
	"github.com/aversine/adjutant/internal/plugin"
	"github.com/aversine/adjutant/internal/workspace"
)

// Plugin scaffolds new projects and sets up their environments.
type Plugin struct {
	invoker *invoke.Runner
	timeout time.Duration
}

func New() *Plugin { return &Plugin{} }

func (p *Plugin) Name() string        { return "project" }
func (p *Plugin) Version() string     { return "1.0.0" }
func (p *Plugin) Description() string { return "Project initialization and management" }

func (p *Plugin) Init(rt *plugin.InitContext) error {
	p.invoker = rt.Invoker
	p.timeout = rt.DefaultTimeout
	return nil
}

func (p *Plugin) Commands() map[string]plugin.Handler {
	return map[string]plugin.Handler{
		"init":       p.initProject,
		"gen-readme": p.genReadme,
		"setup-env":  p.setupEnv,
	}
}

func (p *Plugin) Cleanup() error { return nil }

// initProject scaffolds a new project directory. Usage:
// project:init NAME [--type=go|python|javascript]
func (p *Plugin) initProject(ctx context.Context, call plugin.Call) plugin.Result {
	name := call.Arg(0, "")
	if name == "" {
		return plugin.Fail("project name is required")
	}
	kind := call.Opt("type", "go")

	if _, err := os.Stat(name); err == nil {
		return plugin.Fail("directory %s already exists", name)
	}
	if err := os.MkdirAll(name, 0o755); err != nil {
		return plugin.Fail("failed to create %s: %v", name, err)
	}

	var err error
	switch kind {
	case "go":
		err = scaffoldGo(name)
	case "python":
		err = scaffoldPython(name)
	case "javascript":
		err = scaffoldJavaScript(name)
	default:
		os.Remove(name)
		return plugin.FailWith(
			fmt.Sprintf("unsupported project type: %s", kind),
			"Supported types: go, python, javascript",
		)
	}
	if err != nil {
		return plugin.Fail("failed to scaffold %s project: %v", kind, err)
	}

	return plugin.Ok(map[string]string{
		"project_path": name,
		"project_type": kind,
	})
}

func scaffoldGo(dir string) error {
	base := filepath.Base(dir)
	files := map[string]string{
		"go.mod":     fmt.Sprintf("module %s\n\ngo 1.22\n", base),
		"main.go":    "package main\n\nimport \"fmt\"\n\nfunc main() {\n\tfmt.Println(\"hello\")\n}\n",
		".gitignore": "bin/\n*.test\n",
		"README.md":  fmt.Sprintf("# %s\n\nA Go project.\n", base),
	}
	return writeAll(dir, files)
}

func scaffoldPython(dir string) error {
	base := filepath.Base(dir)
	files := map[string]string{
		"requirements.txt": "# Add your dependencies here\n",
		".gitignore":       "__pycache__/\n*.pyc\n.venv/\ndist/\nbuild/\n",
		"README.md":        fmt.Sprintf("# %s\n\nA Python project.\n", base),
		"src/__init__.py":  "",
		"tests/.gitkeep":   "",
	}
	return writeAll(dir, files)
}

func scaffoldJavaScript(dir string) error {
	base := filepath.Base(dir)
	pkg := fmt.Sprintf(`{
  "name": %q,
  "version": "1.0.0",
  "main": "src/index.js",
  "scripts": {
    "start": "node src/index.js"
  }
}
`, base)
	files := map[string]string{
		"package.json": pkg,
		".gitignore":   "node_modules/\ndist/\nbuild/\n",
		"README.md":    fmt.Sprintf("# %s\n\nA JavaScript project.\n", base),
		"src/index.js": "console.log('hello');\n",
	}
	return writeAll(dir, files)
}

func writeAll(dir string, files map[string]string) error {
	for rel, content := range files {
		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}

// genReadme writes a README.md derived from the analyzed project context.
func (p *Plugin) genReadme(ctx context.Context, call plugin.Call) plugin.Result {
	dir := call.Arg(0, ".")

	wc, err := workspace.Analyze(dir)
	if err != nil {
		return plugin.Fail("failed to analyze %s: %v", dir, err)
	}

	path := filepath.Join(dir, "README.md")
	if err := os.WriteFile(path, []byte(readmeContent(wc)), 0o644); err != nil {
		return plugin.Fail("failed to write README: %v", err)
	}
	return plugin.Ok(map[string]string{"file": path})
}

func readmeContent(wc *workspace.Context) string {
	name := filepath.Base(wc.Path)
	lang := wc.Language
	if lang == "" {
		lang = "software"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\nA %s project.\n\n## Description\n\nAdd your project description here.\n\n## Installation\n\n", name, lang)

	switch wc.Language {
	case "go":
		b.WriteString("```bash\ngo build ./...\n```\n")
	case "python":
		b.WriteString("```bash\npython -m venv .venv\nsource .venv/bin/activate\npip install -r requirements.txt\n```\n")
	case "javascript":
		b.WriteString("```bash\nnpm install\n```\n")
	}

	b.WriteString("\n## Usage\n\nAdd usage instructions here.\n")
	return b.String()
}

// setupEnv prepares a development environment for the current directory.
// Usage: project:setup-env [--type=go|python|javascript]
func (p *Plugin) setupEnv(ctx context.Context, call plugin.Call) plugin.Result {
	kind := call.Opt("type", "")
	if kind == "" {
		if wc, err := workspace.Analyze("."); err == nil {
			kind = wc.Language
		}
	}

	switch kind {
	case "python":
		res := p.invoker.Run(ctx, "python3", []string{"-m", "venv", ".venv"}, p.timeout)
		if !res.Success {
			return plugin.FromInvoke(res)
		}
		return plugin.Ok(map[string]string{
			"message":    "Python virtual environment created",
			"activation": "source .venv/bin/activate",
		})
	case "javascript":
		if _, err := os.Stat("package.json"); err != nil {
			return plugin.Fail("no package.json found")
		}
		res := p.invoker.Run(ctx, "npm", []string{"install"}, p.timeout)
		if !res.Success {
			return plugin.FromInvoke(res)
		}
		return plugin.Ok(map[string]string{"message": "Node.js dependencies installed"})
	case "go":
		res := p.invoker.Run(ctx, "go", []string{"mod", "tidy"}, p.timeout)
		if !res.Success {
			return plugin.FromInvoke(res)
		}
		return plugin.Ok(map[string]string{"message": "Go module dependencies resolved"})
	default:
		return plugin.FailWith(
			"could not determine environment type",
			"Pass one explicitly: project:setup-env --type=python",
		)
	}
}
