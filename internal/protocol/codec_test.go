package protocol

import (
	"strings"
	"testing"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{
			name:  "ok response",
			input: `{"status":"ok","output":{"repos":3}}`,
		},
		{
			name:  "error response with message",
			input: `{"status":"error","error":"auth required","suggestions":["run gh auth login"]}`,
		},
		{
			name:    "empty output",
			input:   "",
			wantErr: "no output",
		},
		{
			name:    "not json",
			input:   "plain text\n",
			wantErr: "not valid JSON",
		},
		{
			name:    "missing status",
			input:   `{"output":{}}`,
			wantErr: "missing required field",
		},
		{
			name:    "bad status",
			input:   `{"status":"partial"}`,
			wantErr: "invalid status",
		},
		{
			name:    "error without message",
			input:   `{"status":"error"}`,
			wantErr: "no error message",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := Decode([]byte(tt.input))
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Decode: %v", err)
				}
				if resp.Status == "" {
					t.Fatal("status should be set")
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestDecodeCarriesSuggestionsAndLogs(t *testing.T) {
	resp, err := Decode([]byte(`{"status":"error","error":"x","suggestions":["a","b"],"logs":[{"level":"info","message":"hi"}]}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(resp.Suggestions) != 2 || len(resp.Logs) != 1 {
		t.Errorf("unexpected envelope: %+v", resp)
	}
}
