package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/tunnelmgr/internal/cli/output"
	"github.com/yndnr/tunnelmgr/internal/core/domain"
	"github.com/yndnr/tunnelmgr/internal/storage"
	"github.com/yndnr/tunnelmgr/internal/storage/snapshot"
	"github.com/yndnr/tunnelmgr/internal/telemetry/logger"
)

// BackupCommand returns the backup subcommand group.
func BackupCommand() *cli.Command {
	return &cli.Command{
		Name:  "backup",
		Usage: "Manage registry backups",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List backups, newest first",
				Action: backupList,
			},
			{
				Name:   "create",
				Usage:  "Back up the current registry",
				Action: backupCreate,
			},
			{
				Name:      "restore",
				Usage:     "Replace the registry with a backup (default: the newest valid one)",
				ArgsUsage: "[BACKUP_ID]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "force",
						Aliases: []string{"f"},
						Usage:   "Skip confirmation",
					},
				},
				Action: backupRestore,
			},
		},
	}
}

func backupManager(c *cli.Context) (*Env, *snapshot.Manager, error) {
	env, err := envFrom(c)
	if err != nil {
		return nil, nil, err
	}
	if env.Backups == nil {
		return nil, nil, fmt.Errorf("backups are disabled (storage.backup_dir is empty)")
	}
	return env, env.Backups, nil
}

func backupList(c *cli.Context) error {
	env, backups, err := backupManager(c)
	if err != nil {
		return err
	}
	infos, err := backups.List()
	if err != nil {
		return fmt.Errorf("list backups: %w", err)
	}
	if len(infos) == 0 && isTable(c, env) {
		fmt.Fprintf(env.Out, "No backups in %s.\n", backups.Dir())
		return nil
	}
	return render(c, env, output.BackupViews(infos))
}

func backupCreate(c *cli.Context) error {
	env, backups, err := backupManager(c)
	if err != nil {
		return err
	}
	reg, err := env.registry()
	if err != nil {
		return err
	}

	defs := make(map[uint64]*domain.TunnelDefinition, reg.Len())
	for id, def := range reg.List() {
		defs[id] = def
	}
	data, err := storage.Encode(defs, true)
	if err != nil {
		return err
	}
	info, err := backups.Create(data, len(defs), "manual")
	if err != nil {
		return fmt.Errorf("create backup: %w", err)
	}
	if err := backups.Prune(); err != nil {
		env.Log.Warn("backup prune failed", "error", err)
	}
	return report(c, env, output.BackupViews([]*snapshot.Info{info}), "Backup %s written (%d tunnels)\n", info.ID, info.TunnelCount)
}

func backupRestore(c *cli.Context) error {
	env, backups, err := backupManager(c)
	if err != nil {
		return err
	}

	var (
		data []byte
		info *snapshot.Info
	)
	if id := c.Args().First(); id != "" {
		data, info, err = backups.LoadByID(id)
	} else {
		data, info, err = backups.Load()
	}
	if err != nil {
		if errors.Is(err, snapshot.ErrNoSnapshots) {
			return fmt.Errorf("no valid backups in %s", backups.Dir())
		}
		return fmt.Errorf("load backup: %w", err)
	}

	defs, err := storage.Decode(data, logger.Slog(env.Log))
	if err != nil {
		return fmt.Errorf("backup %s: %w", info.ID, err)
	}

	if !c.Bool("force") {
		ok, err := confirm(c, env, fmt.Sprintf("Replace the registry with backup %s (%d tunnels)? [y/N] ", info.ID, len(defs)))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(env.Out, "Restore cancelled.")
			return nil
		}
	}

	if err := env.Registry.Replace(c.Context, defs); err != nil {
		return err
	}
	env.loadErr = nil
	fmt.Fprintf(env.Out, "Restored %d tunnels from backup %s\n", len(defs), info.ID)
	return nil
}

// confirm asks a yes/no question. Without a terminal it refuses.
func confirm(c *cli.Context, env *Env, question string) (bool, error) {
	if env.Terminal == nil {
		return false, fmt.Errorf("confirmation needed; pass --force")
	}
	answer, err := env.Terminal.Line(c.Context, question)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
