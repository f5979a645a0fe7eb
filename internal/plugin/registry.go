package plugin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/aversine/adjutant/internal/invoke"
	"github.com/aversine/adjutant/internal/log"
	"github.com/aversine/adjutant/internal/workspace"
)

// ErrNameCollision is returned when a plugin name is already registered.
// The policy is first-wins: the earlier registration keeps the name.
var ErrNameCollision = errors.New("plugin name already registered")

type tableEntry struct {
	owner   string
	command string
	handler Handler
}

// Registry owns the set of loaded plugins and the flattened command table.
// The table is built during the load phase and read-only afterwards; dispatch
// must not begin until loading is complete.
type Registry struct {
	logger  *slog.Logger
	invoker *invoke.Runner
	project *workspace.Context
	sett    map[string]map[string]any
	timeout time.Duration

	plugins []Plugin
	byName  map[string]Plugin
	table   map[string]tableEntry
	order   []string
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithProject supplies the analyzed project context passed to plugins.
func WithProject(p *workspace.Context) RegistryOption {
	return func(r *Registry) { r.project = p }
}

// WithSettings supplies per-plugin settings maps, keyed by plugin name.
func WithSettings(s map[string]map[string]any) RegistryOption {
	return func(r *Registry) { r.sett = s }
}

// NewRegistry creates an empty registry. Handlers that invoke external tools
// without a timeout of their own are bounded by the invoker's default.
func NewRegistry(invoker *invoke.Runner, opts ...RegistryOption) *Registry {
	r := &Registry{
		logger:  log.WithComponent("registry"),
		invoker: invoker,
		timeout: invoker.DefaultTimeout(),
		byName:  make(map[string]Plugin),
		table:   make(map[string]tableEntry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register initializes and registers one plugin. It returns an error when the
// name collides with an already-registered plugin, when Init fails, or when
// the plugin declares no commands. The loaders log and skip on error; they
// never abort the remaining load.
func (r *Registry) Register(p Plugin) (err error) {
	name := p.Name()
	if name == "" {
		return fmt.Errorf("plugin has empty name")
	}
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("%w: %s", ErrNameCollision, name)
	}

	// Init and Commands run inside a recovery boundary: a panicking plugin
	// is excluded, never allowed to abort the load of its neighbors.
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("plugin %s panicked during registration: %v", name, rec)
		}
	}()

	settings := r.sett[name]
	if settings == nil {
		settings = map[string]any{}
	}
	rt := &InitContext{
		Settings:       settings,
		Invoker:        r.invoker,
		Project:        r.project,
		DefaultTimeout: r.timeout,
		Logger:         log.WithPlugin(name),
	}

	if err := p.Init(rt); err != nil {
		return fmt.Errorf("plugin %s failed to initialize: %w", name, err)
	}

	commands := p.Commands()
	if len(commands) == 0 {
		return fmt.Errorf("plugin %s declares no commands", name)
	}

	// Commands within a plugin are table-ordered by name so listings are
	// deterministic; plugins keep registration order between each other.
	names := make([]string, 0, len(commands))
	for cmd := range commands {
		names = append(names, cmd)
	}
	sort.Strings(names)

	r.byName[name] = p
	r.plugins = append(r.plugins, p)
	for _, cmd := range names {
		full := name + ":" + cmd
		r.table[full] = tableEntry{owner: name, command: cmd, handler: commands[cmd]}
		r.order = append(r.order, full)
	}

	r.logger.Info("loaded plugin", "plugin", name, "version", p.Version(), "commands", len(names))
	return nil
}

// LoadBuiltins registers built-in plugins in the given (declared) order.
// Failures are logged and isolated per plugin.
func (r *Registry) LoadBuiltins(builtins ...Plugin) {
	for _, p := range builtins {
		if err := r.Register(p); err != nil {
			r.logger.Warn("skipping built-in plugin", "plugin", p.Name(), "error", err.Error())
		}
	}
}

// LoadExternal scans dir for external plugin units: subdirectories holding a
// manifest.yaml and an executable entrypoint. Units are loaded in name order
// so discovery is deterministic. A unit that fails to load is logged and
// skipped; it never aborts discovery of subsequent units. A missing dir is
// not an error.
func (r *Registry) LoadExternal(dir string) error {
	if dir == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			r.logger.Debug("plugin directory does not exist", "dir", dir)
			return nil
		}
		return fmt.Errorf("failed to scan plugin directory %s: %w", dir, err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		unitDir := filepath.Join(dir, entry.Name())
		manifestPath := filepath.Join(unitDir, manifestFilename)
		if _, err := os.Stat(manifestPath); err != nil {
			// Not a plugin unit; discovery ignores non-conforming entries.
			continue
		}

		manifest, err := LoadManifest(manifestPath)
		if err != nil {
			r.logger.Warn("failed to load plugin manifest", "path", manifestPath, "error", err.Error())
			continue
		}

		ext, err := newExternal(manifest, unitDir, r.invoker, r.timeout)
		if err != nil {
			r.logger.Warn("failed to load external plugin", "path", unitDir, "error", err.Error())
			continue
		}

		if err := r.Register(ext); err != nil {
			if errors.Is(err, ErrNameCollision) {
				r.logger.Warn("duplicate plugin ignored (keeping first registered)",
					"plugin", manifest.Name, "ignored_path", unitDir)
			} else {
				r.logger.Warn("skipping external plugin", "plugin", manifest.Name, "error", err.Error())
			}
			continue
		}
	}

	return nil
}

// Dispatch resolves fullName against the frozen table and invokes the bound
// handler. An unknown name fails with no side effect. A handler fault of any
// kind is converted into a failure Result; Dispatch never panics.
func (r *Registry) Dispatch(ctx context.Context, fullName string, call Call) (res Result) {
	entry, ok := r.table[fullName]
	if !ok {
		return Fail("Command not found: %s", fullName)
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("handler panicked", "command", fullName, "panic", rec)
			res = Fail("command %s failed: %v", fullName, rec)
		}
	}()

	return entry.handler(ctx, call)
}

// Has reports whether fullName resolves to a registered command.
func (r *Registry) Has(fullName string) bool {
	_, ok := r.table[fullName]
	return ok
}

// Plugins lists registered plugin descriptors in registration order.
func (r *Registry) Plugins() []Descriptor {
	out := make([]Descriptor, 0, len(r.plugins))
	for _, p := range r.plugins {
		d := Descriptor{
			Name:        p.Name(),
			Version:     p.Version(),
			Description: p.Description(),
		}
		for _, full := range r.order {
			if r.table[full].owner == p.Name() {
				d.Commands = append(d.Commands, r.table[full].command)
			}
		}
		out = append(out, d)
	}
	return out
}

// Commands lists every full command name in registration order.
func (r *Registry) Commands() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Cleanup runs every registered plugin's Cleanup in registration order. A
// failing or panicking cleanup is logged and does not block the rest.
func (r *Registry) Cleanup() {
	for _, p := range r.plugins {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					r.logger.Error("plugin cleanup panicked", "plugin", p.Name(), "panic", rec)
				}
			}()
			if err := p.Cleanup(); err != nil {
				r.logger.Error("plugin cleanup failed", "plugin", p.Name(), "error", err.Error())
			}
		}()
	}
}
