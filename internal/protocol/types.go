// Package protocol defines the JSON envelope external plugin entrypoints
// write to stdout. The host invokes `entrypoint <command> [args...]` and
// reads one Response object back; nothing is fed to the entrypoint on stdin.
package protocol

import "encoding/json"

// Status values accepted in a Response.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Response is the result envelope an external plugin prints on stdout.
type Response struct {
	Status string `json:"status"`
	// Output carries the command's structured result when status is ok.
	Output json.RawMessage `json:"output,omitempty"`
	// Error is required when status is error.
	Error string `json:"error,omitempty"`
	// Suggestions are optional remediation hints, passed through unchanged.
	Suggestions []string `json:"suggestions,omitempty"`
	// Logs are forwarded to the host logger under the plugin's name.
	Logs []LogEntry `json:"logs,omitempty"`
}

// LogEntry is a log line emitted by an external plugin.
type LogEntry struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}
