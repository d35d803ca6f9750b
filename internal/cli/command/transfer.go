package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/tunnelmgr/internal/cli/output"
)

// ExportCommand returns the export command.
func ExportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Write every tunnel to FILE in store format",
		ArgsUsage: "FILE",
		Action: func(c *cli.Context) error {
			path := c.Args().First()
			if path == "" {
				return fmt.Errorf("export file required")
			}
			env, err := envFrom(c)
			if err != nil {
				return err
			}
			reg, err := env.registry()
			if err != nil {
				return err
			}

			if err := reg.ExportTo(c.Context, path); err != nil {
				return err
			}
			fmt.Fprintf(env.Out, "Exported %d tunnels to %s\n", reg.Len(), path)
			return nil
		},
	}
}

// ImportCommand returns the import command.
func ImportCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Merge the tunnels in FILE into the registry; same IDs are replaced",
		ArgsUsage: "FILE",
		Action: func(c *cli.Context) error {
			path := c.Args().First()
			if path == "" {
				return fmt.Errorf("import file required")
			}
			env, err := envFrom(c)
			if err != nil {
				return err
			}
			reg, err := env.registry()
			if err != nil {
				return err
			}

			imported, err := reg.ImportFrom(c.Context, path)
			if err != nil {
				return err
			}
			if isTable(c, env) {
				for _, def := range imported {
					fmt.Fprintf(env.Out, "Tunnel %q imported with ID %d\n", def.Name, def.ID)
				}
				fmt.Fprintf(env.Out, "Imported %d tunnels from %s\n", len(imported), path)
				return nil
			}
			return render(c, env, output.TunnelViews(imported))
		},
	}
}
