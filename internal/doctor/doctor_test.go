package doctor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aversine/adjutant/internal/config"
)

func writeEmpty(path string) error {
	return os.WriteFile(path, nil, 0o644)
}

func validConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.Ledger.Path = filepath.Join(t.TempDir(), "tasks.db")
	return cfg
}

func findIssue(issues []Issue, field string) *Issue {
	for i := range issues {
		if issues[i].Field == field {
			return &issues[i]
		}
	}
	return nil
}

func TestValidateDefaults(t *testing.T) {
	d := New(validConfig(t), nil)
	r := d.Validate(context.Background())
	if !r.Valid {
		t.Fatalf("defaults should validate: %+v", r.Errors)
	}
}

func TestValidateBadLogLevel(t *testing.T) {
	cfg := validConfig(t)
	cfg.Log.Level = "verbose"

	r := New(cfg, nil).Validate(context.Background())
	if r.Valid {
		t.Fatal("expected invalid")
	}
	if findIssue(r.Errors, "log.level") == nil {
		t.Errorf("missing log.level error: %+v", r.Errors)
	}
}

func TestValidateBadTimeout(t *testing.T) {
	cfg := validConfig(t)
	cfg.Tools.DefaultTimeout = 0

	r := New(cfg, nil).Validate(context.Background())
	if findIssue(r.Errors, "tools.default_timeout") == nil {
		t.Errorf("missing timeout error: %+v", r.Errors)
	}
}

func TestValidateMissingPluginDirIsWarning(t *testing.T) {
	cfg := validConfig(t)
	cfg.Plugins.Dir = filepath.Join(t.TempDir(), "nope")

	r := New(cfg, nil).Validate(context.Background())
	if !r.Valid {
		t.Fatalf("missing plugin dir must not fail validation: %+v", r.Errors)
	}
	if findIssue(r.Warnings, "plugins.dir") == nil {
		t.Errorf("missing plugins.dir warning: %+v", r.Warnings)
	}
}

func TestValidatePluginDirNotADirectory(t *testing.T) {
	cfg := validConfig(t)
	cfg.Plugins.Dir = cfg.Ledger.Path
	if err := writeEmpty(cfg.Plugins.Dir); err != nil {
		t.Fatal(err)
	}

	r := New(cfg, nil).Validate(context.Background())
	if findIssue(r.Errors, "plugins.dir") == nil {
		t.Errorf("expected plugins.dir error: %+v", r.Errors)
	}
}

func TestValidateAPIEnabledWithoutListen(t *testing.T) {
	cfg := validConfig(t)
	cfg.API.Enabled = true
	cfg.API.Listen = ""

	r := New(cfg, nil).Validate(context.Background())
	if findIssue(r.Errors, "api.listen") == nil {
		t.Errorf("missing api.listen error: %+v", r.Errors)
	}
	if findIssue(r.Warnings, "api.api_key") == nil {
		t.Errorf("missing api key warning: %+v", r.Warnings)
	}
}

func TestValidateNoPrimaryToolWarns(t *testing.T) {
	cfg := validConfig(t)
	cfg.Tools.Primary = ""

	r := New(cfg, nil).Validate(context.Background())
	if !r.Valid {
		t.Fatalf("missing primary is a warning only: %+v", r.Errors)
	}
	if findIssue(r.Warnings, "tools.primary") == nil {
		t.Errorf("missing primary warning: %+v", r.Warnings)
	}
}
