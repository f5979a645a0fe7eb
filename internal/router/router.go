// Package router resolves raw command strings against the plugin registry
// and records each dispatch in the task ledger.
package router

import (
	"context"
	"log/slog"
	"strings"

	"github.com/aversine/adjutant/internal/log"
	"github.com/aversine/adjutant/internal/plugin"
	"github.com/aversine/adjutant/internal/task"
)

// Fallback handles commands without a namespace. Those are not plugin
// commands; the default forwards them to the configured primary tool.
type Fallback func(ctx context.Context, command string, args []string) plugin.Result

// Router is the thin surface between callers (REPL, single-shot CLI, HTTP)
// and registry dispatch.
type Router struct {
	registry *plugin.Registry
	tracker  *task.Tracker
	fallback Fallback
	logger   *slog.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithTracker records every plugin dispatch in the given ledger.
func WithTracker(t *task.Tracker) Option {
	return func(r *Router) { r.tracker = t }
}

// WithFallback sets the handler for non-namespaced commands.
func WithFallback(f Fallback) Option {
	return func(r *Router) { r.fallback = f }
}

// New creates a Router over a loaded registry.
func New(registry *plugin.Registry, opts ...Option) *Router {
	r := &Router{
		registry: registry,
		logger:   log.WithComponent("router"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route dispatches one raw command. A command containing ':' is a plugin
// command and is resolved against the registry; anything else goes to the
// fallback. Errors of every kind come back as a failure Result; Route
// never panics or returns an error.
func (r *Router) Route(ctx context.Context, command string, args []string) plugin.Result {
	if !strings.Contains(command, ":") {
		if r.fallback == nil {
			return plugin.Fail("unknown command: %s", command)
		}
		return r.fallback(ctx, command, args)
	}

	call := ParseCall(args)

	var t task.Task
	if r.tracker != nil {
		t = r.tracker.Create("Execute: "+command, task.PriorityMedium, map[string]any{
			"command": command,
			"args":    strings.Join(args, " "),
		})
		if err := r.tracker.Start(t.ID); err != nil {
			r.logger.Warn("failed to start task", "task_id", t.ID, "error", err.Error())
		}
	}

	res := r.registry.Dispatch(ctx, command, call)

	if r.tracker != nil {
		if err := r.tracker.Finish(t.ID, res.Success); err != nil {
			r.logger.Warn("failed to finish task", "task_id", t.ID, "error", err.Error())
		}
	}

	return res
}

// ParseCall splits raw CLI arguments into positional args and keyed options.
// Tokens of the form --key=value (or bare --flag, which maps to "true")
// become options; everything else stays positional, in order.
func ParseCall(args []string) plugin.Call {
	call := plugin.Call{Opts: map[string]string{}}
	for _, arg := range args {
		if strings.HasPrefix(arg, "--") && len(arg) > 2 {
			key, value, found := strings.Cut(arg[2:], "=")
			if !found {
				value = "true"
			}
			call.Opts[key] = value
			continue
		}
		call.Args = append(call.Args, arg)
	}
	return call
}
