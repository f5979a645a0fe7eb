// Package plugin defines the capability-unit contract and the registry that
// turns loaded plugins into a flat namespaced command table.
package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aversine/adjutant/internal/invoke"
	"github.com/aversine/adjutant/internal/workspace"
)

// Result is the uniform record returned by every dispatched command. Success
// and failure share the shape so callers never branch on type. Success=true
// never carries an error; Success=false always does.
type Result struct {
	Success bool   `json:"success"`
	Output  any    `json:"output,omitempty"`
	Error   string `json:"error,omitempty"`
	// Command echoes what actually ran, for diagnostics.
	Command string `json:"command,omitempty"`
	// Suggestions are remediation hints from the originating handler,
	// passed through unchanged.
	Suggestions []string `json:"suggestions,omitempty"`
}

// Ok builds a success Result.
func Ok(output any) Result {
	return Result{Success: true, Output: output}
}

// Fail builds a failure Result.
func Fail(format string, args ...any) Result {
	return Result{Success: false, Error: fmt.Sprintf(format, args...)}
}

// FailWith builds a failure Result carrying remediation suggestions.
func FailWith(err string, suggestions ...string) Result {
	return Result{Success: false, Error: err, Suggestions: suggestions}
}

// FromInvoke converts an invocation result into a command Result.
func FromInvoke(res invoke.Result) Result {
	if res.Success {
		return Result{Success: true, Output: res.Stdout, Command: res.Command}
	}
	return Result{Success: false, Error: res.ErrorMessage(), Command: res.Command}
}

// Call carries the positional arguments and keyed options for one dispatch.
// Handlers validate arity and types themselves and report violations as
// ordinary failure Results.
type Call struct {
	Args []string
	Opts map[string]string
}

// Arg returns the i-th positional argument, or fallback when absent.
func (c Call) Arg(i int, fallback string) string {
	if i < len(c.Args) {
		return c.Args[i]
	}
	return fallback
}

// Opt returns a keyed option, or fallback when absent.
func (c Call) Opt(key, fallback string) string {
	if v, ok := c.Opts[key]; ok {
		return v
	}
	return fallback
}

// Handler executes one command.
type Handler func(ctx context.Context, call Call) Result

// InitContext is the shared context handed to a plugin at initialization.
type InitContext struct {
	// Settings is the plugin's section of the configuration, opaque to the core.
	Settings map[string]any
	// Invoker runs external executables with uniform failure semantics.
	Invoker *invoke.Runner
	// Project is the analyzed working-directory context; may be nil.
	Project *workspace.Context
	// DefaultTimeout bounds invocations that don't pick their own.
	DefaultTimeout time.Duration
	// Logger is scoped to the plugin's name.
	Logger *slog.Logger
}

// Plugin is a named, versioned capability unit exposing commands.
//
// Init failure (a non-nil error) excludes the plugin from registration.
// Commands is called exactly once, immediately after a successful Init; the
// returned map must not be mutated afterwards; the command table is frozen
// for the process lifetime. Cleanup runs once at shutdown for every
// registered plugin.
type Plugin interface {
	Name() string
	Version() string
	Description() string
	Init(rt *InitContext) error
	Commands() map[string]Handler
	Cleanup() error
}

// Descriptor is the read-only projection of a registered plugin.
type Descriptor struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Commands    []string `json:"commands"`
}
