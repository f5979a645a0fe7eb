package config

import "time"

// Config represents the complete adjutant configuration.
type Config struct {
	Log       LogConfig       `yaml:"log,omitempty"`
	Assistant AssistantConfig `yaml:"assistant,omitempty"`
	Tools     ToolsConfig     `yaml:"tools,omitempty"`
	Plugins   PluginsConfig   `yaml:"plugins,omitempty"`
	Ledger    LedgerConfig    `yaml:"ledger,omitempty"`
	API       APIConfig       `yaml:"api,omitempty"`
}

// LogConfig defines logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AssistantConfig defines assistant-level behavior.
type AssistantConfig struct {
	// AutoContext analyzes the working directory at startup and exposes the
	// result to plugins and the REPL banner.
	AutoContext bool `yaml:"auto_context"`
	// LockPath is where serve mode writes its single-instance pid lock.
	LockPath string `yaml:"lock_path,omitempty"`
}

// ToolsConfig defines how external executables are invoked.
type ToolsConfig struct {
	// DefaultTimeout bounds every external invocation whose handler does not
	// specify its own timeout.
	DefaultTimeout time.Duration `yaml:"default_timeout"`
	// Primary is the executable that non-plugin commands are forwarded to.
	Primary string `yaml:"primary"`
	// Overrides maps logical tool names (git, gh, gcloud) to alternative
	// executables or absolute paths.
	Overrides map[string]string `yaml:"overrides,omitempty"`
}

// PluginsConfig defines the plugin subsystem settings.
type PluginsConfig struct {
	// Enabled toggles the whole plugin subsystem. Defaults to true.
	Enabled *bool `yaml:"enabled,omitempty"`
	// Dir is scanned for external plugin units at startup.
	Dir string `yaml:"dir,omitempty"`
	// Settings carries per-plugin configuration, keyed by plugin name and
	// passed opaquely to the plugin at initialization.
	Settings map[string]map[string]any `yaml:"settings,omitempty"`
}

// LedgerConfig defines task ledger persistence. An empty path keeps the
// ledger in memory only.
type LedgerConfig struct {
	Path string `yaml:"path,omitempty"`
}

// APIConfig defines the optional HTTP API server.
type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen,omitempty"`
	APIKey  string `yaml:"api_key,omitempty"`
}

// PluginsEnabled reports whether the plugin subsystem is on.
func (c *Config) PluginsEnabled() bool {
	if c.Plugins.Enabled == nil {
		return true
	}
	return *c.Plugins.Enabled
}

// PluginSettings returns the settings map for a named plugin, never nil.
func (c *Config) PluginSettings(name string) map[string]any {
	if s, ok := c.Plugins.Settings[name]; ok && s != nil {
		return s
	}
	return map[string]any{}
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "INFO",
			Format: "text",
		},
		Assistant: AssistantConfig{
			AutoContext: true,
		},
		Tools: ToolsConfig{
			DefaultTimeout: 30 * time.Second,
			Primary:        "claude",
		},
	}
}
