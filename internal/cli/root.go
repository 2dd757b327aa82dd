// Package cli holds the cobra commands of the terminal-chess binary.
package cli

import (
	"context"
	"os"

	"github.com/park285/terminal-chess/internal/app"
	"github.com/park285/terminal-chess/internal/config"
	"github.com/park285/terminal-chess/internal/console"
	"github.com/park285/terminal-chess/internal/obslog"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const logFile = "terminal-chess.log"

func Root() *cobra.Command {
	root := &cobra.Command{
		Use:   "terminal-chess",
		Short: "Play chess in the terminal against a person, a language model or a remote peer",
		Args:  cobra.NoArgs,

		SilenceErrors: true,
		SilenceUsage:  true,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			opts := obslog.OptionsFromEnv(logFile)
			if cmd.Flag("trace").Changed {
				opts.Level = "debug"
			}
			return obslog.Init(opts)
		},
	}

	root.PersistentFlags().BoolP("trace", "t", false, "Write debug logs")
	root.PersistentFlags().String("snapshot", "", "Write a PNG of the final position to this path")

	root.AddCommand(Versus())
	root.AddCommand(Spectate())
	root.AddCommand(Online())

	return root
}

// run loads configuration, builds the dependencies and hands them to fn with a console on the
// process's standard streams.
func run(cmd *cobra.Command, needs app.Needs, fn func(ctx context.Context, d *app.Deps, con *console.Console, opts app.RunOptions) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	deps, err := app.New(cfg, obslog.L(), needs)
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.Close(); err != nil {
			obslog.L().Warn("deps_close_error", zap.Error(err))
		}
	}()

	snapshot, _ := cmd.Flags().GetString("snapshot")
	con := console.New(os.Stdin, os.Stdout, deps.Catalog)
	con.Say("console.banner", nil)
	if err := fn(cmd.Context(), deps, con, app.RunOptions{Snapshot: snapshot}); err != nil {
		return err
	}
	con.Say("console.goodbye", nil)
	return nil
}
