package cli

import (
	"context"
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/park285/terminal-chess/internal/app"
	"github.com/park285/terminal-chess/internal/console"
	"github.com/park285/terminal-chess/internal/rules"
	"github.com/spf13/cobra"
)

func Versus() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "versus",
		Short: "Play against a language model",
		Long: heredoc.Doc(`versus plays you against the model named by MODEL.

			Moves are entered in algebraic notation (e4, Nf3, O-O) or in
			long form (e2e4). Type "resign" or close the input to give up.
			The model gets up to AGENT_MAX_ATTEMPTS tries per move; if it
			cannot produce a legal one the session ends.`),
		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			sideFlag, _ := cmd.Flags().GetString("side")
			return run(cmd, app.Needs{Agent: true}, func(ctx context.Context, d *app.Deps, con *console.Console, opts app.RunOptions) error {
				side, err := pickSide(ctx, con, sideFlag)
				if err != nil {
					return err
				}
				_, err = d.Versus(ctx, con, side, opts)
				return err
			})
		},
	}

	cmd.Flags().StringP("side", "s", "", "Side to play (white or black); asked when empty")

	return cmd
}

func pickSide(ctx context.Context, con *console.Console, flag string) (rules.Side, error) {
	if flag == "" {
		ans, err := con.Choose(ctx, con.Text("console.pick_side", nil), "white", "black")
		if err != nil {
			return rules.NoSide, err
		}
		flag = ans
	}
	side, ok := rules.ParseSide(flag)
	if !ok {
		return rules.NoSide, fmt.Errorf("unknown side %q", flag)
	}
	return side, nil
}
