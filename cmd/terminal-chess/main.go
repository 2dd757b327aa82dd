package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/park285/terminal-chess/internal/agent"
	"github.com/park285/terminal-chess/internal/cli"
	"github.com/park285/terminal-chess/internal/obslog"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.Root()
	root.SetArgs(os.Args[1:])
	if err := root.ExecuteContext(ctx); err != nil {
		if agent.IsProviderError(err) {
			obslog.L().Error("agent_provider_fatal", zap.Error(err))
			fmt.Fprintf(os.Stderr, "model provider error, giving up: %v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}
