package command

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/tunnelmgr/internal/cli/config"
	"github.com/yndnr/tunnelmgr/internal/cli/output"
)

// ConfigCommand returns the config subcommand group. Its commands read the
// configuration only; they never open the store.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Inspect the configuration",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the effective configuration (defaults, file, environment and flags merged)",
				Action: configShow,
			},
			{
				Name:   "validate",
				Usage:  "Check the configuration file",
				Action: configValidate,
			},
		},
	}
}

// configOptions returns the options the running Env was built from, or
// the global flags when there is none yet.
func configOptions(c *cli.Context) Options {
	if env, ok := c.App.Metadata[envKey].(*Env); ok {
		return env.opts
	}
	return optionsFromFlags(c)
}

func configShow(c *cli.Context) error {
	opts := configOptions(c)
	cfg, loader, err := loadConfig(opts)
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(c.String("output"))
	if err != nil {
		return err
	}
	if format == output.FormatTable {
		format = output.FormatYAML
		if _, err := os.Stat(loader.FilePath()); err == nil {
			fmt.Fprintf(c.App.Writer, "# %s\n", loader.FilePath())
		}
	}
	return output.NewFormatter(format, false).Format(c.App.Writer, config.Sanitize(cfg))
}

func configValidate(c *cli.Context) error {
	opts := configOptions(c)
	if _, err := os.Stat(opts.ConfigPath); os.IsNotExist(err) && !opts.ConfigExplicit {
		fmt.Fprintf(c.App.Writer, "No configuration file at %s; using defaults.\n", opts.ConfigPath)
	}
	if _, _, err := loadConfig(opts); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "✓ Configuration is valid\n")
	return nil
}
