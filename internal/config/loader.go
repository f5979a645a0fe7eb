// Package config loads and validates the adjutant YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads and parses configuration from a file. A directory path is
// accepted and resolved to config.yaml inside it.
func Load(configPath string) (*Config, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with --config flag", absPath)
	}

	if info.IsDir() {
		absPath = filepath.Join(absPath, "config.yaml")
		if _, err := os.Stat(absPath); err != nil {
			return nil, fmt.Errorf("directory provided but config.yaml not found: %s", absPath)
		}
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(expandEnvVars(data), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Discover finds the config file by checking standard locations.
// Priority: $ADJUTANT_CONFIG, ~/.config/adjutant/config.yaml, ./config.yaml.
// Returns "" when nothing is found; adjutant then runs on defaults.
func Discover() string {
	if path := os.Getenv("ADJUTANT_CONFIG"); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		userConfig := filepath.Join(homeDir, ".config", "adjutant", "config.yaml")
		if _, err := os.Stat(userConfig); err == nil {
			return userConfig
		}
	}

	if _, err := os.Stat("./config.yaml"); err == nil {
		return "./config.yaml"
	}

	return ""
}

// expandEnvVars substitutes ${VAR} references with environment values.
// Unset variables expand to the empty string.
func expandEnvVars(data []byte) []byte {
	return envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		name := envVarPattern.FindSubmatch(match)[1]
		return []byte(os.Getenv(string(name)))
	})
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "INFO"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Tools.DefaultTimeout <= 0 {
		cfg.Tools.DefaultTimeout = 30 * time.Second
	}
	if cfg.Tools.Primary == "" {
		cfg.Tools.Primary = "claude"
	}
}

func validate(cfg *Config) error {
	switch strings.ToUpper(cfg.Log.Level) {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return fmt.Errorf("log.level %q is not one of DEBUG, INFO, WARN, ERROR", cfg.Log.Level)
	}

	switch strings.ToLower(cfg.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format %q is not one of text, json", cfg.Log.Format)
	}

	if cfg.Tools.DefaultTimeout > 24*time.Hour {
		return fmt.Errorf("tools.default_timeout %s is unreasonably large", cfg.Tools.DefaultTimeout)
	}

	if cfg.Plugins.Dir != "" {
		if info, err := os.Stat(cfg.Plugins.Dir); err == nil && !info.IsDir() {
			return fmt.Errorf("plugins.dir %q is not a directory", cfg.Plugins.Dir)
		}
	}

	if cfg.API.Enabled && cfg.API.Listen == "" {
		return fmt.Errorf("api.listen is required when api.enabled is true")
	}

	return nil
}
