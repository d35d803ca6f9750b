package command

import (
	"fmt"
	"math"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/tunnelmgr/internal/cli/output"
	"github.com/yndnr/tunnelmgr/internal/core/domain"
)

// AddCommand returns the add command.
func AddCommand() *cli.Command {
	return &cli.Command{
		Name:  "add",
		Usage: "Register a tunnel",
		Flags: []cli.Flag{
			&cli.Uint64Flag{
				Name:  "id",
				Usage: "Tunnel ID (default: one past the largest registered ID)",
			},
			&cli.StringFlag{
				Name:    "name",
				Aliases: []string{"n"},
				Usage:   "Display name",
			},
			&cli.StringFlag{
				Name:     "user",
				Aliases:  []string{"u"},
				Usage:    "SSH login name",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "host",
				Aliases:  []string{"H"},
				Usage:    "SSH server hostname or address",
				Required: true,
			},
			&cli.UintFlag{
				Name:  "local-port",
				Usage: "Local port (recorded only)",
			},
			&cli.UintFlag{
				Name:  "remote-port",
				Usage: "Remote port (recorded only)",
			},
			&cli.BoolFlag{
				Name:  "key-auth",
				Usage: "Authenticate with a private key",
			},
			&cli.StringFlag{
				Name:    "key",
				Aliases: []string{"k"},
				Usage:   "Private key file (implies --key-auth)",
			},
			&cli.StringFlag{
				Name:  "password",
				Usage: "Save this password (stored in clear text)",
			},
			&cli.BoolFlag{
				Name:  "ask-password",
				Usage: "Ask for a password now and save it",
			},
			&cli.IntFlag{
				Name:    "timeout",
				Aliases: []string{"t"},
				Usage:   "TCP connect timeout in seconds",
				Value:   domain.DefaultTimeoutSeconds,
			},
			&cli.BoolFlag{
				Name:    "auto-connect",
				Aliases: []string{"a"},
				Usage:   "Connect when the shell starts",
			},
		},
		Action: tunnelAdd,
	}
}

func tunnelAdd(c *cli.Context) error {
	env, err := envFrom(c)
	if err != nil {
		return err
	}
	reg, err := env.registry()
	if err != nil {
		return err
	}

	localPort, err := portFlag(c, "local-port")
	if err != nil {
		return err
	}
	remotePort, err := portFlag(c, "remote-port")
	if err != nil {
		return err
	}

	def := &domain.TunnelDefinition{
		ID:             c.Uint64("id"),
		Name:           c.String("name"),
		Username:       c.String("user"),
		Hostname:       c.String("host"),
		LocalPort:      localPort,
		RemotePort:     remotePort,
		TimeoutSeconds: c.Int("timeout"),
		AutoConnect:    c.Bool("auto-connect"),
	}
	if !c.IsSet("id") {
		id, err := reg.NextID()
		if err != nil {
			return err
		}
		def.ID = id
	}

	keyAuth := c.Bool("key-auth") || c.IsSet("key")
	switch {
	case keyAuth:
		if c.IsSet("password") || c.Bool("ask-password") {
			env.Log.Warn("password ignored for key authentication", "tunnel_id", def.ID)
		}
		def.Credential = domain.KeyAuth{KeyPath: c.String("key")}

	case c.IsSet("password") && c.Bool("ask-password"):
		return fmt.Errorf("use either --password or --ask-password")

	case c.IsSet("password"):
		def.Credential = domain.NewSavedPassword(c.String("password"))

	case c.Bool("ask-password"):
		if env.Terminal == nil {
			return domain.ErrPromptUnavailable.WithDetails("--ask-password with --no-prompt")
		}
		pw, err := env.Terminal.Secret(c.Context, fmt.Sprintf("Password to save for %s@%s: ", def.Username, def.Hostname))
		if err != nil {
			return err
		}
		def.Credential = domain.NewSavedPassword(pw)

	default:
		def.Credential = domain.PasswordAuth{}
	}

	if err := reg.Add(c.Context, def); err != nil {
		return err
	}
	return report(c, env, output.NewTunnelView(def), "Tunnel %q added with ID %d\n", def.Name, def.ID)
}

// RemoveCommand returns the remove command.
func RemoveCommand() *cli.Command {
	return &cli.Command{
		Name:      "remove",
		Aliases:   []string{"rm"},
		Usage:     "Remove a tunnel",
		ArgsUsage: "ID",
		Action:    tunnelRemove,
	}
}

func tunnelRemove(c *cli.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	env, err := envFrom(c)
	if err != nil {
		return err
	}
	reg, err := env.registry()
	if err != nil {
		return err
	}

	def, err := reg.Remove(c.Context, id)
	if err != nil {
		return err
	}
	return report(c, env, output.NewTunnelView(def), "Tunnel %d removed\n", id)
}

// ListCommand returns the list command.
func ListCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List tunnels",
		Action:  tunnelList,
	}
}

func tunnelList(c *cli.Context) error {
	env, err := envFrom(c)
	if err != nil {
		return err
	}
	reg, err := env.registry()
	if err != nil {
		return err
	}

	defs := reg.Sorted()
	if len(defs) == 0 && isTable(c, env) {
		fmt.Fprintln(env.Out, "No tunnels configured.")
		return nil
	}
	return render(c, env, output.TunnelViews(defs))
}

// SearchCommand returns the search command.
func SearchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Aliases:   []string{"find"},
		Usage:     "Find tunnels whose name or hostname contains QUERY (case-sensitive)",
		ArgsUsage: "QUERY",
		Action:    tunnelSearch,
	}
}

func tunnelSearch(c *cli.Context) error {
	query := c.Args().First()
	if c.NArg() == 0 {
		return fmt.Errorf("search query required")
	}
	env, err := envFrom(c)
	if err != nil {
		return err
	}
	reg, err := env.registry()
	if err != nil {
		return err
	}

	found, err := reg.Search(query)
	if err != nil {
		return err
	}
	if len(found) == 0 && isTable(c, env) {
		fmt.Fprintf(env.Out, "No tunnels match %q.\n", query)
		return nil
	}
	return render(c, env, output.TunnelViews(found))
}

// ============================================================================
// Helpers
// ============================================================================

// parseID parses the first argument as a tunnel id.
func parseID(c *cli.Context) (uint64, error) {
	arg := c.Args().First()
	if arg == "" {
		return 0, fmt.Errorf("tunnel ID required")
	}
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return 0, domain.ErrInvalidArgument.WithDetailsf("invalid tunnel ID %q", arg)
	}
	return id, nil
}

func portFlag(c *cli.Context, name string) (uint16, error) {
	v := c.Uint(name)
	if v > math.MaxUint16 {
		return 0, domain.ErrInvalidArgument.WithDetailsf("--%s %d out of range", name, v)
	}
	return uint16(v), nil
}

func isTable(c *cli.Context, env *Env) bool {
	format, err := formatFor(c, env)
	return err == nil && format == output.FormatTable
}

// report prints msg in table mode and renders data otherwise.
func report(c *cli.Context, env *Env, data any, msg string, args ...any) error {
	if isTable(c, env) {
		fmt.Fprintf(env.Out, msg, args...)
		return nil
	}
	return render(c, env, data)
}
