package command

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/tunnelmgr/internal/cli/config"
	"github.com/yndnr/tunnelmgr/internal/cli/repl"
	"github.com/yndnr/tunnelmgr/internal/infra/confloader"
	"github.com/yndnr/tunnelmgr/internal/telemetry/logger"
)

// ShellCommand returns the shell command. Running tunnelmgr without a
// command does the same.
func ShellCommand() *cli.Command {
	return &cli.Command{
		Name:   "shell",
		Usage:  "Start the interactive shell (runs the auto-connect sweep first)",
		Action: shellAction,
	}
}

func shellAction(c *cli.Context) error {
	if c.NArg() > 0 {
		return fmt.Errorf("unknown command %q", c.Args().First())
	}
	env, err := envFrom(c)
	if err != nil {
		return err
	}

	if err := env.LoadErr(); err != nil {
		PrintError(env.Err, "%v", err)
		fmt.Fprintln(env.Err, "Tunnel commands are disabled until a backup is restored (\"backup list\", \"backup restore\").")
	} else if env.Config.Sweep.Enabled && !c.Bool("no-auto-connect") {
		runStartupSweep(c, env)
	}

	if w := watchConfig(env); w != nil {
		defer w.Stop()
	}

	sh := &shell{env: env}
	r := repl.New(repl.Config{
		In:          env.In,
		Out:         env.Out,
		HistoryFile: env.HistoryFile,
		Commands:    sh.commandNames(),
		Exec:        sh.exec,
	})
	fmt.Fprintln(env.Out, "tunnelmgr shell. Type \"help\" for commands, \"exit\" to leave.")
	return r.Run(c.Context)
}

// shell runs REPL lines as commands against one Env.
type shell struct {
	env *Env
}

// app builds a fresh application for one line. It shares the Env and has
// no After hook, so nothing is closed between lines.
func (s *shell) app() *cli.App {
	return &cli.App{
		Name:            "tunnelmgr",
		HelpName:        "",
		Usage:           "Shell commands",
		Flags:           outputFlags(),
		Commands:        commands(),
		HideVersion:     true,
		Metadata:        map[string]any{envKey: s.env},
		Reader:          s.env.In,
		Writer:          s.env.Out,
		ErrWriter:       s.env.Err,
		ExitErrHandler:  func(*cli.Context, error) {},
		CommandNotFound: func(*cli.Context, string) {},
	}
}

func (s *shell) commandNames() []string {
	var names []string
	for _, cmd := range commands() {
		names = append(names, cmd.Names()...)
	}
	return append(names, "help")
}

func (s *shell) exec(ctx context.Context, args []string) error {
	app := s.app()
	name := args[0]
	if name != "help" && !strings.HasPrefix(name, "-") && app.Command(name) == nil {
		return repl.ErrUnknownCommand
	}
	return app.RunContext(ctx, append([]string{app.Name}, args...))
}

// watchConfig applies log.level changes from the config file while the
// shell runs. It returns nil when there is no file to watch.
func watchConfig(env *Env) *confloader.Watcher {
	path := env.Loader.FilePath()
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(logger.Slog(env.Log)))
	if err != nil {
		env.Log.Warn("config watcher unavailable", "error", err)
		return nil
	}
	if err := w.Watch(path); err != nil {
		w.Stop()
		return nil
	}

	// The watcher owns its loader; the Env's config is not touched from
	// the watcher goroutine.
	loader := config.NewLoader(path, true, env.opts.Overrides)
	w.OnChange(func(string) {
		cfg, err := config.Reload(loader)
		if err == nil {
			err = config.Verify(cfg)
		}
		if err != nil {
			env.Log.Warn("config reload rejected", "path", path, "error", err)
			return
		}
		if cfg.Log.Level != logger.GetLevel() {
			logger.SetLevel(cfg.Log.Level)
			env.Log.Info("log level changed", "level", cfg.Log.Level)
		}
	})
	w.StartAsync()
	return w
}
