package cli

import (
	"context"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/park285/terminal-chess/internal/app"
	"github.com/park285/terminal-chess/internal/console"
	"github.com/spf13/cobra"
)

func Spectate() *cobra.Command {
	return &cobra.Command{
		Use:   "spectate",
		Short: "Watch two language models play each other",
		Long: heredoc.Doc(`spectate lets MODEL (White) play SECONDARY_MODEL (Black).
			When SECONDARY_MODEL is unset the model plays itself.`),
		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, app.Needs{Agent: true}, func(ctx context.Context, d *app.Deps, con *console.Console, opts app.RunOptions) error {
				_, err := d.Spectate(ctx, con, opts)
				return err
			})
		},
	}
}
