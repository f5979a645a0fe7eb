package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"github.com/aversine/adjutant/internal/api"
	"github.com/aversine/adjutant/internal/config"
	"github.com/aversine/adjutant/internal/doctor"
	"github.com/aversine/adjutant/internal/invoke"
	"github.com/aversine/adjutant/internal/lock"
	"github.com/aversine/adjutant/internal/log"
	"github.com/aversine/adjutant/internal/plugin"
	"github.com/aversine/adjutant/internal/plugins"
	"github.com/aversine/adjutant/internal/router"
	"github.com/aversine/adjutant/internal/storage"
	"github.com/aversine/adjutant/internal/task"
	"github.com/aversine/adjutant/internal/tui"
	"github.com/aversine/adjutant/internal/workspace"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "run":
		os.Exit(runRun(args))
	case "repl", "--interactive", "-i":
		os.Exit(runRepl(args))
	case "serve":
		os.Exit(runServe(args))
	case "plugin":
		os.Exit(runPluginNoun(args))
	case "command":
		os.Exit(runCommandNoun(args))
	case "task":
		os.Exit(runTaskNoun(args))
	case "doctor":
		os.Exit(runDoctor(args))
	case "config":
		os.Exit(runConfigNoun(args))
	case "version":
		fmt.Printf("adjutant version %s\n", version)
		os.Exit(0)
	case "help", "--help", "-h":
		printUsage()
		os.Exit(0)
	default:
		// A bare plugin:command is shorthand for run.
		if strings.Contains(cmd, ":") {
			os.Exit(runRun(os.Args[1:]))
		}
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`adjutant - plugin-driven developer assistant

Usage:
  adjutant <command> [args]

Commands:
  run <cmd> [args]   Run one command and exit (plugin:command or primary tool)
  <plugin:cmd>       Shorthand for run
  repl               Start an interactive session
  serve              Start the HTTP API server
  plugin list        Show loaded plugins
  command list       Show available commands
  task list          Show the persisted task ledger
  doctor             Validate configuration and environment
  config lock        Authorize current config (update integrity hash)
  config check       Verify config integrity
  version            Show version information
  help               Show this help message

Global flags (per command):
  --config PATH      Configuration file (default: discovered)
`)
}

// session bundles everything a running assistant mode needs.
type session struct {
	cfg      *config.Config
	invoker  *invoke.Runner
	registry *plugin.Registry
	tracker  *task.Tracker
	commands *router.Router
	project  *workspace.Context
	id       string
	closers  []func()
}

func (s *session) close() {
	s.registry.Cleanup()
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = config.Discover()
	}
	if path == "" {
		return config.Defaults(), nil
	}
	return config.Load(path)
}

// newSession loads config, wires the registry, ledger and router.
// persist controls whether tasks are written to the SQLite ledger.
func newSession(configPath string, persist bool) (*session, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	log.Setup(cfg.Log.Level, cfg.Log.Format)

	s := &session{
		cfg:     cfg,
		id:      uuid.NewString(),
		invoker: invoke.NewRunner(cfg.Tools.DefaultTimeout, invoke.WithToolOverrides(cfg.Tools.Overrides)),
	}

	if cfg.Assistant.AutoContext {
		if wc, err := workspace.Analyze("."); err == nil {
			s.project = wc
		} else {
			log.Warn("workspace analysis failed", "error", err.Error())
		}
	}

	var trackerOpts []task.TrackerOption
	if persist && cfg.Ledger.Path != "" {
		db, err := storage.OpenSQLite(context.Background(), cfg.Ledger.Path)
		if err != nil {
			return nil, fmt.Errorf("open task ledger: %w", err)
		}
		if err := storage.Bootstrap(context.Background(), db); err != nil {
			db.Close()
			return nil, fmt.Errorf("bootstrap task ledger: %w", err)
		}
		s.closers = append(s.closers, func() { db.Close() })
		trackerOpts = append(trackerOpts, task.WithStore(task.NewSQLiteStore(db)))
	}
	s.tracker = task.NewTracker(s.id, trackerOpts...)

	regOpts := []plugin.RegistryOption{plugin.WithSettings(cfg.Plugins.Settings)}
	if s.project != nil {
		regOpts = append(regOpts, plugin.WithProject(s.project))
	}
	s.registry = plugin.NewRegistry(s.invoker, regOpts...)

	if cfg.PluginsEnabled() {
		s.registry.LoadBuiltins(plugins.All()...)
		if dir := cfg.Plugins.Dir; dir != "" {
			if err := s.registry.LoadExternal(dir); err != nil {
				log.Warn("external plugin load failed", "dir", dir, "error", err.Error())
			}
		}
	}

	s.commands = router.New(s.registry,
		router.WithTracker(s.tracker),
		router.WithFallback(s.primaryFallback))
	return s, nil
}

// primaryFallback forwards non-namespaced commands to the configured
// primary tool.
func (s *session) primaryFallback(ctx context.Context, command string, args []string) plugin.Result {
	primary := s.cfg.Tools.Primary
	if primary == "" {
		return plugin.Fail("unknown command: %s", command)
	}
	res := s.invoker.Run(ctx, primary, append([]string{command}, args...), 0)
	return plugin.FromInvoke(res)
}

func (s *session) acquireLock() (*lock.SessionLock, error) {
	path := s.cfg.Assistant.LockPath
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(home, ".adjutant", "adjutant.lock")
	}
	return lock.Acquire(path, s.id)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode output: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

func runRun(args []string) int {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: adjutant run <command> [args...]")
		return 1
	}

	s, err := newSession(*configPath, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer s.close()

	ctx, cancel := signalContext()
	defer cancel()

	res := s.commands.Route(ctx, fs.Arg(0), fs.Args()[1:])
	printJSON(res)
	if !res.Success {
		return 1
	}
	return 0
}

func runRepl(args []string) int {
	fs := flag.NewFlagSet("repl", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	s, err := newSession(*configPath, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer s.close()

	held, err := s.acquireLock()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer held.Release()

	model := tui.New(s.registry, s.commands, s.tracker, s.project, s.id)
	if err := tui.Run(model); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration")
	listen := fs.String("listen", "", "Listen address (overrides config)")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	s, err := newSession(*configPath, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer s.close()

	addr := s.cfg.API.Listen
	if *listen != "" {
		addr = *listen
	}
	if addr == "" {
		fmt.Fprintln(os.Stderr, "Error: no listen address configured (api.listen)")
		return 1
	}
	if s.cfg.API.APIKey == "" {
		fmt.Fprintln(os.Stderr, "Error: api.api_key is required to serve")
		return 1
	}

	held, err := s.acquireLock()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer held.Release()

	ctx, cancel := signalContext()
	defer cancel()

	server := api.New(api.Config{Listen: addr, APIKey: s.cfg.API.APIKey},
		s.registry, s.commands, s.tracker)
	if err := server.Start(ctx); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func runPluginNoun(args []string) int {
	if len(args) < 1 || args[0] != "list" {
		fmt.Fprintln(os.Stderr, "Usage: adjutant plugin list")
		return 1
	}
	return withSession(args[1:], func(s *session) int {
		printJSON(s.registry.Plugins())
		return 0
	})
}

func runCommandNoun(args []string) int {
	if len(args) < 1 || args[0] != "list" {
		fmt.Fprintln(os.Stderr, "Usage: adjutant command list")
		return 1
	}
	return withSession(args[1:], func(s *session) int {
		for _, name := range s.registry.Commands() {
			fmt.Println(name)
		}
		return 0
	})
}

func runTaskNoun(args []string) int {
	if len(args) < 1 || args[0] != "list" {
		fmt.Fprintln(os.Stderr, "Usage: adjutant task list")
		return 1
	}

	fs := flag.NewFlagSet("task list", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration")
	if err := fs.Parse(args[1:]); err != nil {
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	log.Setup(cfg.Log.Level, cfg.Log.Format)

	if cfg.Ledger.Path == "" {
		fmt.Fprintln(os.Stderr, "Error: no task ledger configured (ledger.path)")
		return 1
	}

	ctx := context.Background()
	db, err := storage.OpenSQLite(ctx, cfg.Ledger.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer db.Close()
	if err := storage.Bootstrap(ctx, db); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	tasks, err := task.NewSQLiteStore(db).List(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	printJSON(tasks)
	return 0
}

func runDoctor(args []string) int {
	fs := flag.NewFlagSet("doctor", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	log.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := signalContext()
	defer cancel()

	result := doctor.New(cfg, invoke.NewRunner(cfg.Tools.DefaultTimeout, invoke.WithToolOverrides(cfg.Tools.Overrides))).Validate(ctx)
	printJSON(result)
	if !result.Valid {
		return 1
	}
	return 0
}

func runConfigNoun(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: adjutant config <lock|check>")
		return 1
	}
	action := args[0]

	fs := flag.NewFlagSet("config "+action, flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration")
	if err := fs.Parse(args[1:]); err != nil {
		return 1
	}

	path := *configPath
	if path == "" {
		path = config.Discover()
	}
	if path == "" {
		fmt.Fprintln(os.Stderr, "Error: no configuration file found")
		return 1
	}

	switch action {
	case "lock":
		manifest, err := config.Lock(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Printf("Locked %s (%s)\n", path, shortHash(manifest.Hash))
		return 0
	case "check":
		if err := config.Verify(path); err != nil {
			fmt.Fprintf(os.Stderr, "Integrity check failed: %v\n", err)
			return 1
		}
		if _, err := config.Load(path); err != nil {
			fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
			return 1
		}
		fmt.Println("Configuration check PASSED")
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown config action: %s\n", action)
		return 1
	}
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

// withSession runs fn against a non-persisting session, handling the
// shared --config flag and cleanup.
func withSession(args []string, fn func(*session) int) int {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	s, err := newSession(*configPath, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer s.close()
	return fn(s)
}
