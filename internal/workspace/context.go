// Package workspace inspects a project directory and derives its context:
// primary language, framework, package manager, and declared dependencies.
package workspace

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Context describes what was detected about a project directory.
type Context struct {
	Path           string   `json:"path"`
	Language       string   `json:"language,omitempty"`
	Framework      string   `json:"framework,omitempty"`
	PackageManager string   `json:"package_manager,omitempty"`
	GitRepo        bool     `json:"git_repo"`
	Dependencies   []string `json:"dependencies,omitempty"`
}

// languageMarkers maps a language to files whose presence identifies it.
// Ordered so that the most specific markers win.
var languageMarkers = []struct {
	language string
	files    []string
}{
	{"go", []string{"go.mod"}},
	{"rust", []string{"Cargo.toml"}},
	{"python", []string{"pyproject.toml", "requirements.txt", "setup.py"}},
	{"javascript", []string{"package.json"}},
	{"java", []string{"pom.xml", "build.gradle"}},
	{"cpp", []string{"CMakeLists.txt"}},
}

var frameworkMarkers = []struct {
	framework string
	files     []string
}{
	{"django", []string{"manage.py"}},
	{"vue", []string{"vue.config.js"}},
	{"spring", []string{"pom.xml", "src/main/resources/application.properties"}},
	{"flask", []string{"app.py", "requirements.txt"}},
}

var packageManagerMarkers = []struct {
	manager string
	file    string
}{
	{"yarn", "yarn.lock"},
	{"npm", "package.json"},
	{"poetry", "pyproject.toml"},
	{"pip", "requirements.txt"},
	{"go", "go.mod"},
	{"cargo", "Cargo.toml"},
	{"maven", "pom.xml"},
	{"gradle", "build.gradle"},
}

// Analyze inspects path and returns its project context.
func Analyze(path string) (*Context, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %q: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", abs)
	}

	ctx := &Context{Path: abs}
	ctx.Language = detectLanguage(abs)
	ctx.Framework = detectFramework(abs)
	ctx.PackageManager = detectPackageManager(abs)

	if gi, err := os.Stat(filepath.Join(abs, ".git")); err == nil && gi.IsDir() {
		ctx.GitRepo = true
	}

	ctx.Dependencies = collectDependencies(abs)
	return ctx, nil
}

func detectLanguage(dir string) string {
	for _, m := range languageMarkers {
		for _, f := range m.files {
			if exists(filepath.Join(dir, f)) {
				return m.language
			}
		}
	}
	return ""
}

func detectFramework(dir string) string {
	for _, m := range frameworkMarkers {
		all := true
		for _, f := range m.files {
			if !exists(filepath.Join(dir, f)) {
				all = false
				break
			}
		}
		if all {
			return m.framework
		}
	}

	// package.json dependency inspection for JS frameworks.
	if deps := npmDependencies(dir); len(deps) > 0 {
		for _, name := range []string{"react", "vue", "express"} {
			for _, d := range deps {
				if d == name {
					return name
				}
			}
		}
	}
	return ""
}

func detectPackageManager(dir string) string {
	for _, m := range packageManagerMarkers {
		if exists(filepath.Join(dir, m.file)) {
			return m.manager
		}
	}
	return ""
}

// collectDependencies gathers declared dependency names from whatever
// manifests are present. Best effort; unreadable manifests are skipped.
func collectDependencies(dir string) []string {
	var deps []string

	deps = append(deps, pipDependencies(dir)...)
	deps = append(deps, npmDependencies(dir)...)
	deps = append(deps, goDependencies(dir)...)

	return deps
}

func pipDependencies(dir string) []string {
	f, err := os.Open(filepath.Join(dir, "requirements.txt"))
	if err != nil {
		return nil
	}
	defer f.Close()

	var deps []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name := strings.FieldsFunc(line, func(r rune) bool {
			return r == '=' || r == '>' || r == '<' || r == '~' || r == '!' || r == ' '
		})
		if len(name) > 0 {
			deps = append(deps, name[0])
		}
	}
	return deps
}

func npmDependencies(dir string) []string {
	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		return nil
	}

	var pkg struct {
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil
	}

	var deps []string
	for name := range pkg.Dependencies {
		deps = append(deps, name)
	}
	for name := range pkg.DevDependencies {
		deps = append(deps, name)
	}
	return deps
}

func goDependencies(dir string) []string {
	f, err := os.Open(filepath.Join(dir, "go.mod"))
	if err != nil {
		return nil
	}
	defer f.Close()

	var deps []string
	inBlock := false
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "require (":
			inBlock = true
		case inBlock && line == ")":
			inBlock = false
		case inBlock:
			fields := strings.Fields(line)
			if len(fields) >= 2 && !strings.HasPrefix(fields[0], "//") {
				deps = append(deps, fields[0])
			}
		case strings.HasPrefix(line, "require "):
			fields := strings.Fields(line)
			if len(fields) >= 3 {
				deps = append(deps, fields[1])
			}
		}
	}
	return deps
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
