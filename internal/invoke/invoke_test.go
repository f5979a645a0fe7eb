package invoke

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestRunSuccessTrimsOutput(t *testing.T) {
	t.Parallel()

	r := NewRunner(10 * time.Second)
	res := r.Run(context.Background(), "sh", []string{"-c", "printf '  hello  \\n'"}, 0)

	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.Stdout != "hello" {
		t.Errorf("stdout not trimmed: %q", res.Stdout)
	}
	if res.Err != nil {
		t.Errorf("success result must not carry an error: %v", res.Err)
	}
	if res.Command != "sh -c printf '  hello  \\n'" {
		t.Errorf("unexpected command echo: %q", res.Command)
	}
}

func TestRunToolNotInstalled(t *testing.T) {
	t.Parallel()

	r := NewRunner(10 * time.Second)
	res := r.Run(context.Background(), "definitely-not-a-real-tool-xyz", nil, 0)

	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Err == nil || res.Err.Class != ClassToolNotInstalled {
		t.Fatalf("expected ToolNotInstalled, got %+v", res.Err)
	}
	if res.Stdout != "" {
		t.Errorf("no partial output expected, got %q", res.Stdout)
	}
}

func TestRunNonZeroExitSurfacesStderr(t *testing.T) {
	t.Parallel()

	r := NewRunner(10 * time.Second)
	res := r.Run(context.Background(), "sh", []string{"-c", "echo oops >&2; exit 3"}, 0)

	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Err == nil || res.Err.Class != ClassNonZeroExit {
		t.Fatalf("expected NonZeroExit, got %+v", res.Err)
	}
	if res.Err.Message != "oops" {
		t.Errorf("stderr should be surfaced verbatim, got %q", res.Err.Message)
	}
}

func TestRunNonZeroExitWithoutStderr(t *testing.T) {
	t.Parallel()

	r := NewRunner(10 * time.Second)
	res := r.Run(context.Background(), "sh", []string{"-c", "exit 7"}, 0)

	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Err == nil || res.Err.Class != ClassNonZeroExit {
		t.Fatalf("expected NonZeroExit, got %+v", res.Err)
	}
	if !strings.Contains(res.Err.Message, "exit status 7") {
		t.Errorf("expected exit code in message, got %q", res.Err.Message)
	}
}

func TestRunTimeout(t *testing.T) {
	t.Parallel()

	r := NewRunner(10*time.Second, WithGracePeriod(200*time.Millisecond))

	start := time.Now()
	res := r.Run(context.Background(), "sleep", []string{"30"}, 100*time.Millisecond)
	elapsed := time.Since(start)

	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Err == nil || res.Err.Class != ClassTimeout {
		t.Fatalf("expected Timeout, got %+v", res.Err)
	}
	if !strings.Contains(res.Err.Message, "100ms") {
		t.Errorf("timeout bound should appear in message, got %q", res.Err.Message)
	}
	if elapsed > 5*time.Second {
		t.Errorf("termination took too long: %s", elapsed)
	}
}

func TestRunTimeoutIsIdempotent(t *testing.T) {
	t.Parallel()

	r := NewRunner(10*time.Second, WithGracePeriod(200*time.Millisecond))
	for i := 0; i < 2; i++ {
		res := r.Run(context.Background(), "sleep", []string{"30"}, 100*time.Millisecond)
		if res.Success || res.Err == nil || res.Err.Class != ClassTimeout {
			t.Fatalf("run %d: expected Timeout, got %+v", i, res)
		}
	}
}

func TestRunDefaultTimeoutApplied(t *testing.T) {
	t.Parallel()

	r := NewRunner(100*time.Millisecond, WithGracePeriod(200*time.Millisecond))
	res := r.Run(context.Background(), "sleep", []string{"30"}, 0)

	if res.Err == nil || res.Err.Class != ClassTimeout {
		t.Fatalf("expected default timeout to apply, got %+v", res)
	}
}

func TestRunJSON(t *testing.T) {
	t.Parallel()

	r := NewRunner(10 * time.Second)

	var out map[string]any
	res := r.RunJSON(context.Background(), "sh", []string{"-c", `echo '{"name":"adjutant"}'`}, 0, &out)
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if out["name"] != "adjutant" {
		t.Errorf("unexpected decoded value: %v", out)
	}
}

func TestRunJSONMalformedOutput(t *testing.T) {
	t.Parallel()

	r := NewRunner(10 * time.Second)

	var out map[string]any
	res := r.RunJSON(context.Background(), "sh", []string{"-c", "echo not-json"}, 0, &out)
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Err == nil || res.Err.Class != ClassMalformedOutput {
		t.Fatalf("expected MalformedOutput, got %+v", res.Err)
	}
}

func TestRunRepeatedInvocationsStable(t *testing.T) {
	t.Parallel()

	r := NewRunner(10 * time.Second)
	first := r.Run(context.Background(), "sh", []string{"-c", "echo same"}, 0)
	second := r.Run(context.Background(), "sh", []string{"-c", "echo same"}, 0)

	if first.Success != second.Success || first.Stdout != second.Stdout {
		t.Errorf("idempotent invocation diverged: %+v vs %+v", first, second)
	}
}

func TestRunToolOverride(t *testing.T) {
	t.Parallel()

	script := filepath.Join(t.TempDir(), "fake-git")
	if err := os.WriteFile(script, []byte("#!/bin/sh\necho overridden\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	r := NewRunner(10*time.Second, WithToolOverrides(map[string]string{"git": script}))
	res := r.Run(context.Background(), "git", []string{"status"}, 0)

	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.Stdout != "overridden" {
		t.Errorf("override not applied: %q", res.Stdout)
	}
}
