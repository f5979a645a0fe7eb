package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aversine/adjutant/internal/invoke"
	"github.com/aversine/adjutant/internal/log"
	"github.com/aversine/adjutant/internal/protocol"
)

// external adapts a manifest-declared unit into a Plugin. Each command runs
// the unit's entrypoint as `entrypoint <command> [args...]` through the
// invoker and decodes the protocol envelope from stdout.
type external struct {
	manifest   *Manifest
	entrypoint string
	invoker    *invoke.Runner
	timeout    time.Duration
	logger     *slog.Logger
}

// newExternal validates the unit's entrypoint and builds the adapter. The
// entrypoint must live inside the unit directory and be executable.
func newExternal(manifest *Manifest, unitDir string, invoker *invoke.Runner, timeout time.Duration) (*external, error) {
	entrypoint := filepath.Join(unitDir, manifest.Entrypoint)

	resolved, err := filepath.EvalSymlinks(entrypoint)
	if err != nil {
		return nil, fmt.Errorf("entrypoint not found: %w", err)
	}
	resolvedDir, err := filepath.EvalSymlinks(unitDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve plugin directory: %w", err)
	}
	rel, err := filepath.Rel(resolvedDir, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return nil, fmt.Errorf("entrypoint %s is not under plugin directory %s", resolved, resolvedDir)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("entrypoint not found: %w", err)
	}
	if info.Mode()&0111 == 0 {
		return nil, fmt.Errorf("entrypoint is not executable: %s", resolved)
	}

	return &external{
		manifest:   manifest,
		entrypoint: resolved,
		invoker:    invoker,
		timeout:    timeout,
		logger:     log.WithPlugin(manifest.Name),
	}, nil
}

func (e *external) Name() string        { return e.manifest.Name }
func (e *external) Version() string     { return e.manifest.Version }
func (e *external) Description() string { return e.manifest.Description }

func (e *external) Init(rt *InitContext) error {
	if rt != nil && rt.DefaultTimeout > 0 && e.timeout <= 0 {
		e.timeout = rt.DefaultTimeout
	}
	return nil
}

func (e *external) Commands() map[string]Handler {
	commands := make(map[string]Handler, len(e.manifest.Commands))
	for _, mc := range e.manifest.Commands {
		commands[mc.Name] = e.handler(mc)
	}
	return commands
}

func (e *external) Cleanup() error { return nil }

func (e *external) handler(mc ManifestCommand) Handler {
	return func(ctx context.Context, call Call) Result {
		timeout := mc.Timeout
		if timeout <= 0 {
			timeout = e.timeout
		}

		argv := append([]string{mc.Name}, call.Args...)
		for key, value := range call.Opts {
			argv = append(argv, "--"+key+"="+value)
		}

		res := e.invoker.Run(ctx, e.entrypoint, argv, timeout)
		if !res.Success {
			return Result{Success: false, Error: res.ErrorMessage(), Command: res.Command}
		}

		resp, err := protocol.Decode([]byte(res.Stdout))
		if err != nil {
			e.logger.Error("bad plugin response", "command", mc.Name, "error", err.Error(), "stdout", res.Stdout)
			return Result{Success: false, Error: err.Error(), Command: res.Command}
		}

		for _, entry := range resp.Logs {
			e.logger.Info("plugin log", "level", entry.Level, "message", entry.Message)
		}

		if resp.Status == protocol.StatusError {
			return Result{
				Success:     false,
				Error:       resp.Error,
				Command:     res.Command,
				Suggestions: resp.Suggestions,
			}
		}

		var output any
		if len(resp.Output) > 0 {
			output = resp.Output
		}
		return Result{Success: true, Output: output, Command: res.Command}
	}
}
