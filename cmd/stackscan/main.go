package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/matzehuels/stackscan/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	c := cli.New(os.Stderr, cli.LogInfo)

	err := c.RootCommand().ExecuteContext(ctx)
	stop()

	// ExitCodeError carries no message worth printing; the summary
	// already showed what failed.
	var exit *cli.ExitCodeError
	if err != nil && !errors.As(err, &exit) && !errors.Is(err, context.Canceled) {
		c.Logger.Error(err)
	}
	os.Exit(cli.ExitCode(err))
}
