// Package command provides the tunnelmgr CLI commands.
//
// Commands are defined with urfave/cli/v2:
//
//   - root.go: App, global flags, output selection
//   - env.go: Env, the config, logger, audit trail, store and registry every command shares
//   - tunnel.go: add, remove, list, search
//   - connect.go: connect, connect-all and the startup auto-connect sweep
//   - transfer.go: export, import
//   - backup.go: backup list, create, restore
//   - config.go: config show, validate
//   - shell.go: the interactive shell, also the default with no command
//   - version.go: version
//
// Every command runs in both single-command mode and the shell. In
// single-command mode a failure exits 1; in the shell it is printed and
// the loop continues.
package command
