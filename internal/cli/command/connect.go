package command

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/tunnelmgr/internal/cli/output"
	"github.com/yndnr/tunnelmgr/internal/core/domain"
	"github.com/yndnr/tunnelmgr/internal/core/service"
)

// ConnectCommand returns the connect command.
func ConnectCommand() *cli.Command {
	return &cli.Command{
		Name:      "connect",
		Usage:     "Open an SSH connection to a tunnel's host and log in",
		ArgsUsage: "ID",
		Action:    connectAction,
	}
}

func connectAction(c *cli.Context) error {
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
	def, err := reg.Get(id)
	if err != nil {
		return err
	}

	if !isTable(c, env) {
		out := env.Attempter.Run(c.Context, def)
		if err := render(c, env, output.NewOutcomeView(out)); err != nil {
			return err
		}
		return out.Err
	}

	spinner := output.NewSpinner(env.Err, fmt.Sprintf("Connecting to %s...", def))
	env.Attempter.SetObserver(service.ObserverFunc(func(d *domain.TunnelDefinition, to service.State) {
		switch to {
		case service.StateHandshaking:
			spinner.Update(fmt.Sprintf("SSH handshake with %s...", d.Hostname))
		case service.StateAuthenticating:
			// A credential prompt may follow; it needs the line.
			spinner.Stop()
		}
	}))
	defer env.Attempter.SetObserver(nil)

	spinner.Start()
	out := env.Attempter.Run(c.Context, def)
	if !out.Succeeded() {
		spinner.Fail(fmt.Sprintf("Connection to %s failed while %s", def, out.FailedIn))
		return out.Err
	}
	spinner.Success(fmt.Sprintf("Connected to %s in %s", def, out.Duration.Round(time.Millisecond)))
	return nil
}

// ConnectAllCommand returns the connect-all command.
func ConnectAllCommand() *cli.Command {
	return &cli.Command{
		Name:  "connect-all",
		Usage: "Attempt a connection to every tunnel, in ID order",
		Action: func(c *cli.Context) error {
			env, err := envFrom(c)
			if err != nil {
				return err
			}
			reg, err := env.registry()
			if err != nil {
				return err
			}
			if reg.Len() == 0 {
				if isTable(c, env) {
					fmt.Fprintln(env.Out, "No tunnels configured.")
				}
				return nil
			}

			sweep := env.Sweep()
			var progress *output.Progress
			if isTable(c, env) {
				progress = output.NewProgress(env.Err, "Connecting", reg.Len())
				sweep.Notify(func(o service.Outcome) { progress.Step(o.Succeeded()) })
			}
			outcomes := sweep.RunAll(c.Context, reg)
			if progress != nil {
				progress.Finish()
			}

			if err := render(c, env, output.OutcomeViews(outcomes)); err != nil {
				return err
			}
			return failedAttempts(outcomes, reg.Len())
		},
	}
}

// runStartupSweep connects every auto-connect tunnel and prints one line
// per attempt. Failures never stop it.
func runStartupSweep(c *cli.Context, env *Env) {
	sweep := env.Sweep()
	sweep.Notify(func(o service.Outcome) {
		if o.Succeeded() {
			fmt.Fprintf(env.Err, "✓ auto-connect %d %s (%s): connected\n", o.TunnelID, o.Name, o.Hostname)
			return
		}
		fmt.Fprintf(env.Err, "✗ auto-connect %d %s (%s): %v\n", o.TunnelID, o.Name, o.Hostname, o.Err)
	})
	outcomes := sweep.Run(c.Context, env.Registry)
	if len(outcomes) > 0 {
		env.Log.Info("auto-connect sweep finished", "attempts", len(outcomes), "failed", countFailed(outcomes))
	}
}

func countFailed(outcomes []service.Outcome) int {
	n := 0
	for _, o := range outcomes {
		if !o.Succeeded() {
			n++
		}
	}
	return n
}

// failedAttempts returns an error summarizing failed outcomes, or nil. A
// sweep cut short by cancellation counts the skipped tunnels as failed.
func failedAttempts(outcomes []service.Outcome, total int) error {
	failed := countFailed(outcomes) + total - len(outcomes)
	if failed == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d connection attempts failed", failed, total)
}
