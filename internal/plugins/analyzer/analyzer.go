// Package analyzer is the built-in code analysis plugin. It works purely on
// the filesystem and never shells out.
package analyzer

import (
	"bufio"
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/aversine/adjutant/internal/plugin"
)

// sourceExtensions maps file suffixes to the language reported in metrics.
var sourceExtensions = map[string]string{
	".go":   "go",
	".py":   "python",
	".js":   "javascript",
	".ts":   "typescript",
	".java": "java",
	".cpp":  "cpp",
	".rs":   "rust",
}

// ignoredDirs are skipped during every walk.
var ignoredDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
	".venv":        true,
	"venv":         true,
	"dist":         true,
	"build":        true,
	".idea":        true,
}

// Plugin analyzes project structure, dependencies and common security
// smells.
type Plugin struct{}

func New() *Plugin { return &Plugin{} }

func (p *Plugin) Name() string        { return "analyzer" }
func (p *Plugin) Version() string     { return "1.0.0" }
func (p *Plugin) Description() string { return "Code analysis and metrics" }

func (p *Plugin) Init(rt *plugin.InitContext) error { return nil }

func (p *Plugin) Commands() map[string]plugin.Handler {
	return map[string]plugin.Handler{
		"complexity": p.complexity,
		"deps":       p.dependencies,
		"security":   p.security,
	}
}

func (p *Plugin) Cleanup() error { return nil }

// LanguageMetrics holds per-language file and line counts.
type LanguageMetrics struct {
	Files int `json:"files"`
	Lines int `json:"lines"`
}

// ComplexityReport is the output of analyzer:complexity.
type ComplexityReport struct {
	TotalFiles      int                        `json:"total_files"`
	TotalLines      int                        `json:"total_lines"`
	Languages       map[string]LanguageMetrics `json:"languages"`
	ComplexityScore float64                    `json:"complexity_score"`
}

func (p *Plugin) complexity(ctx context.Context, call plugin.Call) plugin.Result {
	root := call.Arg(0, ".")

	report := ComplexityReport{Languages: map[string]LanguageMetrics{}}
	err := walkSources(root, func(path, language string) error {
		lines, err := countLines(path)
		if err != nil {
			return nil // unreadable file, skip
		}
		report.TotalFiles++
		report.TotalLines += lines
		m := report.Languages[language]
		m.Files++
		m.Lines += lines
		report.Languages[language] = m
		return nil
	})
	if err != nil {
		return plugin.Fail("complexity analysis failed: %v", err)
	}

	if report.TotalFiles > 0 {
		avg := float64(report.TotalLines) / float64(report.TotalFiles)
		report.ComplexityScore = avg / 100
		if report.ComplexityScore > 10 {
			report.ComplexityScore = 10
		}
	}
	return plugin.Ok(report)
}

// DependencyReport is the output of analyzer:deps.
type DependencyReport struct {
	PackageManagers []string            `json:"package_managers"`
	Dependencies    map[string][]string `json:"dependencies"`
}

func (p *Plugin) dependencies(ctx context.Context, call plugin.Call) plugin.Result {
	root := call.Arg(0, ".")

	report := DependencyReport{Dependencies: map[string][]string{}}

	if deps := npmDependencies(filepath.Join(root, "package.json")); deps != nil {
		report.PackageManagers = append(report.PackageManagers, "npm")
		report.Dependencies["npm"] = deps
	}
	if deps := pipDependencies(filepath.Join(root, "requirements.txt")); deps != nil {
		report.PackageManagers = append(report.PackageManagers, "pip")
		report.Dependencies["pip"] = deps
	}
	if deps := goDependencies(filepath.Join(root, "go.mod")); deps != nil {
		report.PackageManagers = append(report.PackageManagers, "go")
		report.Dependencies["go"] = deps
	}

	return plugin.Ok(report)
}

// SecurityIssue is one finding from analyzer:security.
type SecurityIssue struct {
	File     string `json:"file"`
	Type     string `json:"type"`
	Severity string `json:"severity"`
}

// SecurityReport is the output of analyzer:security.
type SecurityReport struct {
	IssuesFound int             `json:"issues_found"`
	Issues      []SecurityIssue `json:"issues"`
	RiskLevel   string          `json:"risk_level"`
}

func (p *Plugin) security(ctx context.Context, call plugin.Call) plugin.Result {
	root := call.Arg(0, ".")

	report := SecurityReport{Issues: []SecurityIssue{}, RiskLevel: "low"}
	err := walkSources(root, func(path, language string) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		for _, issue := range scanContent(path, string(data)) {
			report.Issues = append(report.Issues, issue)
			if issue.Severity == "high" {
				report.RiskLevel = "high"
			}
		}
		return nil
	})
	if err != nil {
		return plugin.Fail("security scan failed: %v", err)
	}

	report.IssuesFound = len(report.Issues)
	return plugin.Ok(report)
}

func scanContent(path, content string) []SecurityIssue {
	var issues []SecurityIssue
	lower := strings.ToLower(content)

	if strings.Contains(lower, "password") && strings.ContainsAny(content, "=:") {
		issues = append(issues, SecurityIssue{File: path, Type: "potential_hardcoded_password", Severity: "high"})
	}
	if strings.Contains(lower, "api_key") && strings.ContainsAny(content, "=:") {
		issues = append(issues, SecurityIssue{File: path, Type: "potential_hardcoded_api_key", Severity: "high"})
	}
	if strings.Contains(content, "eval(") || strings.Contains(content, "exec(") {
		issues = append(issues, SecurityIssue{File: path, Type: "dangerous_function_usage", Severity: "medium"})
	}
	return issues
}

func walkSources(root string, fn func(path, language string) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if ignoredDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		language, ok := sourceExtensions[strings.ToLower(filepath.Ext(path))]
		if !ok {
			return nil
		}
		return fn(path, language)
	})
}

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	n := 0
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		n++
	}
	return n, sc.Err()
}

func npmDependencies(path string) []string {
	data, err := os.ReadFile(path)
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
	deps := make([]string, 0, len(pkg.Dependencies)+len(pkg.DevDependencies))
	for name := range pkg.Dependencies {
		deps = append(deps, name)
	}
	for name := range pkg.DevDependencies {
		deps = append(deps, name)
	}
	return deps
}

func pipDependencies(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	deps := []string{}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name := line
		for _, sep := range []string{"==", ">=", "<=", "~=", ">", "<"} {
			if i := strings.Index(name, sep); i >= 0 {
				name = name[:i]
			}
		}
		deps = append(deps, strings.TrimSpace(name))
	}
	return deps
}

func goDependencies(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	deps := []string{}
	inBlock := false
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
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
			fields := strings.Fields(strings.TrimPrefix(line, "require "))
			if len(fields) >= 2 {
				deps = append(deps, fields[0])
			}
		}
	}
	return deps
}
