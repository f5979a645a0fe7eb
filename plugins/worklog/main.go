// Command worklog is an example external plugin unit. Build it and drop the
// binary next to its manifest.yaml inside the configured plugin directory:
//
//	plugins/worklog/manifest.yaml
//	plugins/worklog/worklog
//
// The host invokes it as `worklog <command> [args...]` and reads one JSON
// response envelope from stdout.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aversine/adjutant/internal/protocol"
)

const logFile = ".worklog.json"

type entry struct {
	At   time.Time `json:"at"`
	Text string    `json:"text"`
}

func main() {
	if len(os.Args) < 2 {
		emitError("no command given", "Usage: worklog <add|list|clear> [args]")
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "add":
		runAdd(args)
	case "list":
		runList()
	case "clear":
		runClear()
	default:
		emitError(fmt.Sprintf("unknown command: %s", command),
			"Supported commands: add, list, clear")
		os.Exit(1)
	}
}

func logPath() string {
	dir, err := os.Getwd()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, logFile)
}

func load() ([]entry, error) {
	data, err := os.ReadFile(logPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var entries []entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("worklog file is corrupt: %w", err)
	}
	return entries, nil
}

func save(entries []entry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return os.WriteFile(logPath(), data, 0o644)
}

func runAdd(args []string) {
	text := strings.TrimSpace(strings.Join(positional(args), " "))
	if text == "" {
		emitError("entry text is required", "Usage: worklog add SOME TEXT")
		os.Exit(1)
	}

	entries, err := load()
	if err != nil {
		emitError(err.Error())
		os.Exit(1)
	}
	entries = append(entries, entry{At: time.Now().UTC(), Text: text})
	if err := save(entries); err != nil {
		emitError(err.Error())
		os.Exit(1)
	}

	emitOK(map[string]any{"recorded": text, "total": len(entries)},
		protocol.LogEntry{Level: "info", Message: "worklog entry recorded"})
}

func runList() {
	entries, err := load()
	if err != nil {
		emitError(err.Error())
		os.Exit(1)
	}
	emitOK(map[string]any{"entries": entries, "count": len(entries)})
}

func runClear() {
	if err := os.Remove(logPath()); err != nil && !os.IsNotExist(err) {
		emitError(err.Error())
		os.Exit(1)
	}
	emitOK(map[string]any{"cleared": true})
}

// positional drops --key=value option tokens the host may append.
func positional(args []string) []string {
	var out []string
	for _, a := range args {
		if strings.HasPrefix(a, "--") {
			continue
		}
		out = append(out, a)
	}
	return out
}

func emitOK(output any, logs ...protocol.LogEntry) {
	raw, err := json.Marshal(output)
	if err != nil {
		emitError(err.Error())
		os.Exit(1)
	}
	emit(protocol.Response{Status: protocol.StatusOK, Output: raw, Logs: logs})
}

func emitError(msg string, suggestions ...string) {
	emit(protocol.Response{Status: protocol.StatusError, Error: msg, Suggestions: suggestions})
}

func emit(resp protocol.Response) {
	_ = json.NewEncoder(os.Stdout).Encode(resp)
}
