package main

import (
	"context"
	"os"

	"github.com/yndnr/tunnelmgr/internal/cli/command"
	"github.com/yndnr/tunnelmgr/internal/infra/shutdown"
)

func main() {
	ctx, stop := shutdown.WithSignals(context.Background())
	err := command.App().RunContext(ctx, os.Args)
	stop()

	if err != nil {
		command.PrintError(os.Stderr, "%v", err)
		os.Exit(1)
	}
}
