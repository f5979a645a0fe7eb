package protocol

import (
	"encoding/json"
	"fmt"
)

// Decode parses and validates a Response from raw plugin stdout. The raw
// bytes are returned alongside any error so callers can log what the plugin
// actually produced.
func Decode(data []byte) (*Response, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("plugin produced no output on stdout")
	}

	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("plugin output is not valid JSON: %w", err)
	}

	if resp.Status == "" {
		return nil, fmt.Errorf("response missing required field: status")
	}
	if resp.Status != StatusOK && resp.Status != StatusError {
		return nil, fmt.Errorf("invalid status value: %q (must be %q or %q)", resp.Status, StatusOK, StatusError)
	}
	if resp.Status == StatusError && resp.Error == "" {
		return nil, fmt.Errorf("response has status=error but no error message")
	}

	return &resp, nil
}
