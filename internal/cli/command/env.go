package command

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/tunnelmgr/internal/audit"
	"github.com/yndnr/tunnelmgr/internal/cli/config"
	"github.com/yndnr/tunnelmgr/internal/cli/connection"
	"github.com/yndnr/tunnelmgr/internal/cli/prompt"
	"github.com/yndnr/tunnelmgr/internal/core/service"
	"github.com/yndnr/tunnelmgr/internal/infra/confloader"
	"github.com/yndnr/tunnelmgr/internal/infra/shutdown"
	"github.com/yndnr/tunnelmgr/internal/storage"
	"github.com/yndnr/tunnelmgr/internal/storage/snapshot"
	"github.com/yndnr/tunnelmgr/internal/telemetry/logger"
	"github.com/yndnr/tunnelmgr/internal/telemetry/metric"
)

// App.Metadata keys.
const (
	// envKey holds the *Env.
	envKey = "env"
	// transportKey, when set to a service.Transport, replaces the SSH
	// transport.
	transportKey = "transport"
)

// shutdownTimeout bounds the exit hooks together.
const shutdownTimeout = 5 * time.Second

// Options selects how an Env is built.
type Options struct {
	ConfigPath string
	// ConfigExplicit makes a missing config file an error.
	ConfigExplicit bool
	// Overrides are dotted config keys set from flags.
	Overrides map[string]any
	// NoPrompt makes every credential request fail instead of asking.
	NoPrompt bool

	In  io.Reader
	Out io.Writer
	Err io.Writer

	// Transport replaces the SSH transport.
	Transport service.Transport
}

// Env is everything a command runs against. It is built once per process
// and shared by every command the shell runs.
type Env struct {
	Config    *config.Config
	Loader    *confloader.Loader
	Log       logger.Logger
	Audit     audit.Trail
	Metrics   *metric.Registry
	Store     storage.Store
	Backups   *snapshot.Manager
	Registry  *service.Registry
	Attempter *service.Attempter
	// Terminal is nil when prompting is disabled.
	Terminal *prompt.Terminal

	In  *bufio.Reader
	Out io.Writer
	Err io.Writer

	HistoryFile string

	// loadErr is the error from loading the registry at startup. Commands
	// that read or change tunnels refuse to run until a backup is restored.
	loadErr  error
	opts     Options
	shutdown *shutdown.Handler
}

// loadConfig reads and verifies the configuration selected by opts.
func loadConfig(opts Options) (*config.Config, *confloader.Loader, error) {
	loader := config.NewLoader(opts.ConfigPath, opts.ConfigExplicit, opts.Overrides)
	cfg, err := config.Load(loader)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.Verify(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, loader, nil
}

// NewEnv loads the configuration, opens the audit trail and the store, and
// loads the registry.
//
// Failing to open the audit trail is fatal. A registry that fails to load
// is not: the error is kept and reported by the commands that need it.
func NewEnv(ctx context.Context, opts Options) (*Env, error) {
	cfg, loader, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}

	env := &Env{
		Config:      cfg,
		Loader:      loader,
		In:          bufio.NewReader(opts.In),
		Out:         opts.Out,
		Err:         opts.Err,
		HistoryFile: filepath.Join(filepath.Dir(config.DefaultConfigPath()), "history"),
		opts:        opts,
		shutdown:    shutdown.NewHandler(shutdownTimeout),
	}

	// ========================================================================
	// Logging
	// ========================================================================

	logOut := opts.Err
	if cfg.Log.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Log.File), 0700); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		env.shutdown.OnShutdown(func(context.Context) error { return f.Close() })
		logOut = f
	}
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: logOut,
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	logger.SetDefault(log)
	env.Log = log

	// ========================================================================
	// Audit and metrics
	// ========================================================================

	trail, err := audit.Open(audit.Config{
		File:       cfg.Audit.File,
		MaxSizeMB:  cfg.Audit.MaxSizeMB,
		MaxBackups: cfg.Audit.MaxBackups,
		Compress:   cfg.Audit.Compress,
	})
	if err != nil {
		env.shutdown.Shutdown()
		return nil, fmt.Errorf("open audit trail: %w", err)
	}
	env.Audit = trail
	env.shutdown.OnShutdown(func(context.Context) error { return trail.Close() })

	env.Metrics = metric.NewRegistry()

	// ========================================================================
	// Storage
	// ========================================================================

	if cfg.Storage.BackupDir != "" {
		backups, err := snapshot.NewManager(snapshot.Config{
			Dir:            cfg.Storage.BackupDir,
			RetentionCount: cfg.Storage.BackupKeep,
		})
		if err != nil {
			log.Warn("backups disabled", "dir", cfg.Storage.BackupDir, "error", err)
		} else {
			env.Backups = backups
		}
	}

	store, err := storage.Open(storage.Options{
		Backend: cfg.Storage.Backend,
		Path:    cfg.Storage.Path,
		Backups: env.Backups,
		Logger:  logger.Slog(log),
	})
	if err != nil {
		env.shutdown.Shutdown()
		return nil, fmt.Errorf("open store: %w", err)
	}
	env.Store = store
	env.shutdown.OnShutdown(func(context.Context) error { return store.Close() })

	env.Registry = service.NewRegistry(store,
		service.WithAuditTrail(trail),
		service.WithMetrics(env.Metrics),
		service.WithLogger(log),
	)
	if err := env.Registry.Load(ctx); err != nil {
		env.loadErr = err
		log.Error("registry not loaded", "path", cfg.Storage.Path, "error", err)
	}

	// ========================================================================
	// Connections
	// ========================================================================

	transport := opts.Transport
	if transport == nil {
		t, err := connection.NewTransport(connection.Options{
			KnownHosts: cfg.SSH.KnownHosts,
			Logger:     log,
		})
		if err != nil {
			env.shutdown.Shutdown()
			return nil, fmt.Errorf("ssh transport: %w", err)
		}
		transport = t
	}

	var creds service.CredentialProvider = prompt.Static{}
	if !opts.NoPrompt {
		env.Terminal = prompt.NewTerminal(env.In, opts.Err, fdOf(opts.In))
		creds = env.Terminal
	}
	env.Attempter = service.NewAttempter(transport, creds,
		service.WithAttemptAudit(trail),
		service.WithAttemptMetrics(env.Metrics),
		service.WithAttemptLogger(log),
	)

	// Registered last so it runs first: the textfile sees every attempt.
	if cfg.Metrics.Textfile != "" {
		env.shutdown.OnShutdown(func(context.Context) error {
			return env.Metrics.WriteTextfile(cfg.Metrics.Textfile)
		})
	}
	return env, nil
}

// Close runs the exit hooks: metrics textfile, store, audit trail and log
// file, in that order.
func (e *Env) Close() error {
	return e.shutdown.Shutdown()
}

// Sweep returns a sweep paced by the configured interval.
func (e *Env) Sweep() *service.Sweep {
	return service.NewSweep(e.Attempter, e.Config.Sweep.Interval, e.Log)
}

// LoadErr returns the error from loading the registry, if any.
func (e *Env) LoadErr() error {
	return e.loadErr
}

// registry returns the registry, or the load error if it never loaded.
func (e *Env) registry() (*service.Registry, error) {
	if e.loadErr != nil {
		return nil, fmt.Errorf("%w (restore a backup with \"backup restore\")", e.loadErr)
	}
	return e.Registry, nil
}

// envFrom returns the Env for c, building it on first use.
func envFrom(c *cli.Context) (*Env, error) {
	if env, ok := c.App.Metadata[envKey].(*Env); ok {
		return env, nil
	}
	opts := optionsFromFlags(c)
	if t, ok := c.App.Metadata[transportKey].(service.Transport); ok {
		opts.Transport = t
	}
	env, err := NewEnv(c.Context, opts)
	if err != nil {
		return nil, err
	}
	c.App.Metadata[envKey] = env
	return env, nil
}

func fdOf(r io.Reader) int {
	if f, ok := r.(*os.File); ok {
		return int(f.Fd())
	}
	return -1
}
