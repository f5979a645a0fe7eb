package plugin

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const manifestFilename = "manifest.yaml"

// ManifestCommand declares one command an external plugin supports.
type ManifestCommand struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description,omitempty"`
	Timeout     time.Duration `yaml:"timeout,omitempty"`
}

// ManifestCommands supports two manifest formats:
//   - string array: commands: [status, deploy]
//   - object array: commands: [{name: deploy, timeout: 5m}]
type ManifestCommands []ManifestCommand

func (c *ManifestCommands) UnmarshalYAML(n *yaml.Node) error {
	if n == nil {
		*c = nil
		return nil
	}
	if n.Kind != yaml.SequenceNode {
		return fmt.Errorf("commands must be a sequence")
	}

	out := make([]ManifestCommand, 0, len(n.Content))
	for _, item := range n.Content {
		switch item.Kind {
		case yaml.ScalarNode:
			out = append(out, ManifestCommand{Name: strings.TrimSpace(item.Value)})
		case yaml.MappingNode:
			var tmp ManifestCommand
			if err := item.Decode(&tmp); err != nil {
				return fmt.Errorf("invalid command object: %w", err)
			}
			tmp.Name = strings.TrimSpace(tmp.Name)
			out = append(out, tmp)
		default:
			return fmt.Errorf("invalid command entry (must be string or object)")
		}
	}

	*c = out
	return nil
}

// Manifest is the structure of an external plugin's manifest.yaml. It is the
// explicit factory contract: the manifest names the unit and its entrypoint,
// and the registry adapts it into a Plugin without symbol introspection.
type Manifest struct {
	Name        string           `yaml:"name"`
	Version     string           `yaml:"version"`
	Description string           `yaml:"description,omitempty"`
	Entrypoint  string           `yaml:"entrypoint"`
	Commands    ManifestCommands `yaml:"commands"`
}

// LoadManifest reads and validates a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest YAML: %w", err)
	}

	if err := validateManifest(&manifest); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}

	return &manifest, nil
}

func validateManifest(m *Manifest) error {
	if m.Name == "" {
		return fmt.Errorf("name is required")
	}
	if strings.Contains(m.Name, ":") {
		return fmt.Errorf("name must not contain ':'")
	}
	if m.Version == "" {
		return fmt.Errorf("version is required")
	}
	if m.Entrypoint == "" {
		return fmt.Errorf("entrypoint is required")
	}
	if strings.Contains(m.Entrypoint, "..") {
		return fmt.Errorf("entrypoint contains path traversal: %s", m.Entrypoint)
	}
	if len(m.Commands) == 0 {
		return fmt.Errorf("at least one command must be declared")
	}

	seen := make(map[string]bool, len(m.Commands))
	for _, cmd := range m.Commands {
		if cmd.Name == "" {
			return fmt.Errorf("command name is required")
		}
		if seen[cmd.Name] {
			return fmt.Errorf("duplicate command %q", cmd.Name)
		}
		seen[cmd.Name] = true
	}

	return nil
}
