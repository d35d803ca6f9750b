package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/tunnelmgr/internal/cli/output"
	"github.com/yndnr/tunnelmgr/internal/infra/buildinfo"
)

// VersionCommand returns the version command.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show build information",
		Action: func(c *cli.Context) error {
			format, err := output.ParseFormat(c.String("output"))
			if err != nil {
				return err
			}
			if format == output.FormatTable {
				fmt.Fprintf(c.App.Writer, "tunnelmgr %s\n", buildinfo.String())
				return nil
			}
			return output.NewFormatter(format, false).Format(c.App.Writer, buildinfo.Get())
		},
	}
}
