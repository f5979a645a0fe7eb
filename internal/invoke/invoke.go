// Package invoke runs external executables and normalizes their outcome into
// a uniform result shape with consistent timeout and failure semantics.
package invoke

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/aversine/adjutant/internal/log"
)

const (
	// maxStderrBytes caps the amount of stderr captured from an invocation.
	maxStderrBytes = 64 * 1024

	// defaultGracePeriod is the time we wait after SIGTERM before SIGKILL.
	defaultGracePeriod = 5 * time.Second
)

// Result is the normalized outcome of one external invocation. Stdout and
// Stderr are trimmed of surrounding whitespace. Err is nil exactly when
// Success is true.
type Result struct {
	Success bool
	Stdout  string
	Stderr  string
	Command string
	Err     *Error
}

// ErrorMessage returns the failure message, or "" on success.
func (r Result) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Message
}

// Runner executes external commands. It holds no mutable state and is safe
// for repeated and concurrent use.
type Runner struct {
	defaultTimeout time.Duration
	gracePeriod    time.Duration
	overrides      map[string]string
	logger         *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithGracePeriod overrides the SIGTERM-to-SIGKILL grace period.
func WithGracePeriod(d time.Duration) Option {
	return func(r *Runner) { r.gracePeriod = d }
}

// WithToolOverrides maps logical tool names to alternative executables. A
// caller asking for "git" runs overrides["git"] when present. The map is not
// copied; it must not be mutated after construction.
func WithToolOverrides(overrides map[string]string) Option {
	return func(r *Runner) { r.overrides = overrides }
}

// NewRunner creates a Runner. defaultTimeout bounds invocations whose caller
// does not specify a timeout of its own.
func NewRunner(defaultTimeout time.Duration, opts ...Option) *Runner {
	if defaultTimeout <= 0 {
		defaultTimeout = 30 * time.Second
	}
	r := &Runner{
		defaultTimeout: defaultTimeout,
		gracePeriod:    defaultGracePeriod,
		logger:         log.WithComponent("invoke"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DefaultTimeout returns the timeout applied when callers pass zero.
func (r *Runner) DefaultTimeout() time.Duration {
	return r.defaultTimeout
}

// Run executes executable with args, bounded by timeout (or the runner
// default when timeout <= 0). No stdin is fed to the process. The outcome is
// always reported through the Result; Run never panics and never returns a
// partial Result on failure classes other than NonZeroExit.
func (r *Runner) Run(ctx context.Context, executable string, args []string, timeout time.Duration) Result {
	if timeout <= 0 {
		timeout = r.defaultTimeout
	}
	if alt, ok := r.overrides[executable]; ok && alt != "" {
		executable = alt
	}

	cmdLine := commandLine(executable, args)
	res := Result{Command: cmdLine}

	path, err := exec.LookPath(executable)
	if err != nil {
		res.Err = newError(ClassToolNotInstalled, "%s: tool not installed or not on PATH", executable)
		return res
	}

	// Termination is managed by hand so a SIGTERM grace period can run
	// before SIGKILL; exec.CommandContext kills immediately.
	cmd := exec.Command(path, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debug("spawning process", "command", cmdLine, "timeout", timeout)

	if err := cmd.Start(); err != nil {
		res.Err = newError(ClassToolNotInstalled, "%s: failed to start: %v", executable, err)
		return res
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		r.terminate(cmd, waitErr)
		res.Stderr = trimCapped(stderr.String())
		res.Err = newError(ClassTimeout, "%s: canceled: %v", executable, ctx.Err())
		return res

	case <-timer.C:
		r.logger.Warn("process timed out, sending SIGTERM", "command", cmdLine, "timeout", timeout)
		r.terminate(cmd, waitErr)
		res.Stderr = trimCapped(stderr.String())
		res.Err = newError(ClassTimeout, "%s: command timed out after %s", executable, timeout)
		return res

	case err := <-waitErr:
		res.Stdout = strings.TrimSpace(stdout.String())
		res.Stderr = trimCapped(stderr.String())

		if err != nil {
			if exitErr, ok := err.(*exec.ExitError); ok {
				detail := res.Stderr
				if detail == "" {
					detail = fmt.Sprintf("exit status %d", exitErr.ExitCode())
				}
				res.Err = newError(ClassNonZeroExit, "%s", detail)
				return res
			}
			res.Err = newError(ClassToolNotInstalled, "%s: wait for process: %v", executable, err)
			return res
		}

		res.Success = true
		return res
	}
}

// RunJSON executes like Run and additionally unmarshals stdout into v. A
// successful process whose stdout is not valid JSON yields a MalformedOutput
// failure rather than a raw decoding error.
func (r *Runner) RunJSON(ctx context.Context, executable string, args []string, timeout time.Duration, v any) Result {
	res := r.Run(ctx, executable, args, timeout)
	if !res.Success {
		return res
	}
	if err := json.Unmarshal([]byte(res.Stdout), v); err != nil {
		res.Success = false
		res.Err = newError(ClassMalformedOutput, "%s: output is not valid JSON: %v", executable, err)
	}
	return res
}

// terminate sends SIGTERM, waits out the grace period, then SIGKILLs.
func (r *Runner) terminate(cmd *exec.Cmd, waitErr chan error) {
	if cmd.Process != nil {
		if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
			r.logger.Error("failed to send SIGTERM", "error", err)
		}
	}

	grace := time.NewTimer(r.gracePeriod)
	defer grace.Stop()

	select {
	case <-waitErr:
	case <-grace.C:
		r.logger.Warn("process did not exit after SIGTERM, sending SIGKILL")
		if cmd.Process != nil {
			if err := cmd.Process.Kill(); err != nil {
				r.logger.Error("failed to send SIGKILL", "error", err)
			}
		}
		<-waitErr
	}
}

func trimCapped(s string) string {
	if len(s) > maxStderrBytes {
		s = s[:maxStderrBytes]
	}
	return strings.TrimSpace(s)
}

func commandLine(executable string, args []string) string {
	if len(args) == 0 {
		return executable
	}
	return executable + " " + strings.Join(args, " ")
}
