package cli

import (
	"context"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/park285/terminal-chess/internal/app"
	"github.com/park285/terminal-chess/internal/console"
	"github.com/park285/terminal-chess/pkg/wire"
	"github.com/spf13/cobra"
)

func Online() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "online",
		Short: "Play a remote opponent through the matchfinder",
		Long: heredoc.Doc(`online joins a matchfinder queue at MATCHFINDER_URL and plays
			whoever is paired with you. The first player queued gets White.

			In the quickplay queue every move must be made within the
			server's move timeout; the normal queue has no clock. With
			--agent the model named by MODEL plays for you.`),
		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			queueFlag, _ := cmd.Flags().GetString("queue")
			withAgent, _ := cmd.Flags().GetBool("agent")
			return run(cmd, app.Needs{Agent: withAgent}, func(ctx context.Context, d *app.Deps, con *console.Console, opts app.RunOptions) error {
				queue, err := pickQueue(ctx, con, queueFlag)
				if err != nil {
					return err
				}
				_, err = d.Online(ctx, con, queue, withAgent, opts)
				return err
			})
		},
	}

	cmd.Flags().StringP("queue", "q", "", "Queue to join (quickplay or normal); asked when empty")
	cmd.Flags().BoolP("agent", "a", false, "Let the model play the local side")

	return cmd
}

func pickQueue(ctx context.Context, con *console.Console, flag string) (wire.QueueKind, error) {
	if flag == "" {
		ans, err := con.Choose(ctx, con.Text("console.pick_queue", nil), wire.QueueQuickplay.String(), wire.QueueNormal.String())
		if err != nil {
			return 0, err
		}
		flag = ans
	}
	return wire.ParseQueueKind(flag)
}
