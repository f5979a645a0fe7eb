// Package doctor validates the assistant's configuration and environment.
package doctor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aversine/adjutant/internal/config"
	"github.com/aversine/adjutant/internal/invoke"
)

// Result holds the outcome of a validation run.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// Issue describes a single validation error or warning.
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// Doctor validates configuration and probes the external tools the
// assistant depends on.
type Doctor struct {
	cfg     *config.Config
	invoker *invoke.Runner
}

// New creates a Doctor from a loaded config.
func New(cfg *config.Config, invoker *invoke.Runner) *Doctor {
	return &Doctor{cfg: cfg, invoker: invoker}
}

// Validate runs all checks and returns a result.
func (d *Doctor) Validate(ctx context.Context) *Result {
	r := &Result{Valid: true}

	d.validateLogConfig(r)
	d.validateToolsConfig(r)
	d.validatePluginDir(r)
	d.validateLedger(r)
	d.validateAPIConfig(r)
	d.probeTools(ctx, r)

	r.Valid = len(r.Errors) == 0
	return r
}

func (d *Doctor) addError(r *Result, category, field, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) validateLogConfig(r *Result) {
	switch strings.ToLower(d.cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		d.addError(r, "log", "log.level",
			fmt.Sprintf("unknown log level %q", d.cfg.Log.Level))
	}
	switch strings.ToLower(d.cfg.Log.Format) {
	case "json", "text":
	default:
		d.addError(r, "log", "log.format",
			fmt.Sprintf("unknown log format %q", d.cfg.Log.Format))
	}
}

func (d *Doctor) validateToolsConfig(r *Result) {
	if d.cfg.Tools.DefaultTimeout <= 0 {
		d.addError(r, "tools", "tools.default_timeout", "default_timeout must be positive")
	}
	if d.cfg.Tools.Primary == "" {
		d.addWarning(r, "tools", "tools.primary",
			"no primary tool configured; non-namespaced commands will fail")
	}
}

// validatePluginDir checks the external plugin directory when one is set.
// A missing directory is a warning, not an error: built-ins still work.
func (d *Doctor) validatePluginDir(r *Result) {
	if !d.cfg.PluginsEnabled() {
		return
	}
	dir := d.cfg.Plugins.Dir
	if dir == "" {
		return
	}
	info, err := os.Stat(dir)
	if err != nil {
		d.addWarning(r, "plugins", "plugins.dir",
			fmt.Sprintf("plugin directory %s does not exist", dir))
		return
	}
	if !info.IsDir() {
		d.addError(r, "plugins", "plugins.dir",
			fmt.Sprintf("%s is not a directory", dir))
	}
}

// validateLedger checks that the task ledger path is creatable.
func (d *Doctor) validateLedger(r *Result) {
	path := d.cfg.Ledger.Path
	if path == "" {
		return
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		d.addError(r, "ledger", "ledger.path",
			fmt.Sprintf("cannot create ledger directory %s: %v", dir, err))
		return
	}
	probe := filepath.Join(dir, ".doctor-probe")
	if err := os.WriteFile(probe, nil, 0o600); err != nil {
		d.addError(r, "ledger", "ledger.path",
			fmt.Sprintf("ledger directory %s is not writable: %v", dir, err))
		return
	}
	os.Remove(probe)
}

func (d *Doctor) validateAPIConfig(r *Result) {
	if !d.cfg.API.Enabled {
		return
	}
	if d.cfg.API.Listen == "" {
		d.addError(r, "api", "api.listen", "api.listen is required when the API is enabled")
	}
	if d.cfg.API.APIKey == "" {
		d.addWarning(r, "api", "api.api_key", "API enabled but no API key configured")
	}
}

// probeTools checks that the wrapped command line tools respond. Absence is
// a warning: each plugin degrades gracefully when its tool is missing.
func (d *Doctor) probeTools(ctx context.Context, r *Result) {
	if d.invoker == nil {
		return
	}
	probes := []struct {
		name string
		args []string
	}{
		{"git", []string{"--version"}},
		{"gh", []string{"--version"}},
		{"gcloud", []string{"version"}},
	}
	for _, p := range probes {
		res := d.invoker.Run(ctx, p.name, p.args, 10*time.Second)
		if !res.Success {
			d.addWarning(r, "tools", p.name,
				fmt.Sprintf("%s is not available: %s", p.name, res.ErrorMessage()))
		}
	}

	if primary := d.cfg.Tools.Primary; primary != "" {
		res := d.invoker.Run(ctx, primary, []string{"--version"}, 10*time.Second)
		if !res.Success {
			d.addWarning(r, "tools", "tools.primary",
				fmt.Sprintf("primary tool %s is not available: %s", primary, res.ErrorMessage()))
		}
	}
}
