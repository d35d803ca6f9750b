package command

import (
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/tunnelmgr/internal/cli/config"
	"github.com/yndnr/tunnelmgr/internal/cli/output"
	"github.com/yndnr/tunnelmgr/internal/infra/buildinfo"
)

// App creates the CLI application. With no command it starts the shell.
func App() *cli.App {
	return &cli.App{
		Name:     "tunnelmgr",
		Usage:    "Keep a registry of SSH endpoints and check that they accept logins",
		Version:  buildinfo.String(),
		Flags:    globalFlags(),
		Commands: append(commands(), ShellCommand()),
		Action:   shellAction,
		Metadata: map[string]any{},
		After: func(c *cli.Context) error {
			if env, ok := c.App.Metadata[envKey].(*Env); ok {
				return env.Close()
			}
			return nil
		},
	}
}

// commands returns every command that can also run inside the shell.
func commands() []*cli.Command {
	return []*cli.Command{
		AddCommand(),
		RemoveCommand(),
		ListCommand(),
		SearchCommand(),
		ConnectCommand(),
		ConnectAllCommand(),
		ExportCommand(),
		ImportCommand(),
		BackupCommand(),
		ConfigCommand(),
		VersionCommand(),
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Configuration file",
			EnvVars: []string{"TUNNELMGR_CONFIG"},
			Value:   config.DefaultConfigPath(),
		},
		&cli.StringFlag{
			Name:    "store",
			Aliases: []string{"s"},
			Usage:   "Tunnel store path (overrides storage.path)",
		},
		&cli.BoolFlag{
			Name:  "no-auto-connect",
			Usage: "Skip the auto-connect sweep when the shell starts",
		},
		&cli.BoolFlag{
			Name:  "no-prompt",
			Usage: "Never ask for passwords or passphrases; attempts needing one fail",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Enable debug logging",
		},
	}
	return append(flags, outputFlags()...)
}

// outputFlags are the global flags the shell accepts before a command.
func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml (overrides output.format)",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
	}
}

// GlobalFlags holds the parsed global flags.
type GlobalFlags struct {
	Config         string
	ConfigExplicit bool
	Store          string
	NoAutoConnect  bool
	NoPrompt       bool
	Verbose        bool

	// Output format
	Output string // table, json, yaml
	Wide   bool
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		Config:         c.String("config"),
		ConfigExplicit: c.IsSet("config"),
		Store:          c.String("store"),
		NoAutoConnect:  c.Bool("no-auto-connect"),
		NoPrompt:       c.Bool("no-prompt"),
		Verbose:        c.Bool("verbose"),
		Output:         c.String("output"),
		Wide:           c.Bool("wide"),
	}
}

// optionsFromFlags turns the global flags into Env options. Flags win over
// the config file and the environment.
func optionsFromFlags(c *cli.Context) Options {
	flags := ParseGlobalFlags(c)
	overrides := map[string]any{}
	if flags.Store != "" {
		overrides["storage.path"] = flags.Store
	}
	if flags.Output != "" {
		overrides["output.format"] = flags.Output
	}
	if flags.Verbose {
		overrides["log.level"] = "debug"
	}
	return Options{
		ConfigPath:     flags.Config,
		ConfigExplicit: flags.ConfigExplicit,
		Overrides:      overrides,
		NoPrompt:       flags.NoPrompt,
		In:             c.App.Reader,
		Out:            c.App.Writer,
		Err:            c.App.ErrWriter,
	}
}

// formatFor returns the output format for c: the --output flag when given,
// else the configured one.
func formatFor(c *cli.Context, env *Env) (output.Format, error) {
	if f := c.String("output"); f != "" {
		return output.ParseFormat(f)
	}
	return output.ParseFormat(env.Config.Output.Format)
}

// render writes data to the env's output in the format selected for c.
func render(c *cli.Context, env *Env, data any) error {
	format, err := formatFor(c, env)
	if err != nil {
		return err
	}
	return output.NewFormatter(format, c.Bool("wide")).Format(env.Out, data)
}

// PrintError prints an error message to w.
func PrintError(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "error: "+format+"\n", args...)
}
