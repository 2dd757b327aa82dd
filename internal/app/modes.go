package app

import (
	"context"
	"fmt"
	"io"

	"github.com/park285/terminal-chess/internal/boardimg"
	"github.com/park285/terminal-chess/internal/console"
	"github.com/park285/terminal-chess/internal/peer"
	"github.com/park285/terminal-chess/internal/player"
	"github.com/park285/terminal-chess/internal/rules"
	"github.com/park285/terminal-chess/internal/session"
	"github.com/park285/terminal-chess/pkg/wire"
	"go.uber.org/zap"
)

const (
	ModeVersus   = "versus"
	ModeSpectate = "spectate"
	ModeOnline   = "online"
)

// RunOptions are shared by every mode.
type RunOptions struct {
	// Snapshot, when set, receives a PNG of the final position.
	Snapshot string
}

// Versus plays the console user on side human against the agent.
func (d *Deps) Versus(ctx context.Context, con *console.Console, human rules.Side, opts RunOptions) (session.Outcome, error) {
	if d.Generator == nil {
		return session.Outcome{}, fmt.Errorf("versus mode needs an agent")
	}
	model := d.Config.Model
	you := player.NewHuman(con, d.Adapter, "human")
	bot := player.NewAgent(d.Generator, model, con, d.Logger)

	white, black := session.MoveSource(you), session.MoveSource(bot)
	if human == rules.Black {
		white, black = bot, you
	}
	header := func(ply session.PlyRecord) string {
		if ply.Side == human {
			return ""
		}
		return con.Text("console.model_header", map[string]any{"Model": model})
	}
	return d.play(ctx, con, ModeVersus, white, black, header, human == rules.Black, opts)
}

// Spectate lets two agents play each other. The configured model plays White.
func (d *Deps) Spectate(ctx context.Context, con *console.Console, opts RunOptions) (session.Outcome, error) {
	if d.Generator == nil {
		return session.Outcome{}, fmt.Errorf("spectate mode needs an agent")
	}
	models := [2]string{d.Config.Model, d.Config.OpponentModel()}
	white := player.NewAgent(d.Generator, models[0], con, d.Logger)
	black := player.NewAgent(d.Generator, models[1], con, d.Logger)
	header := func(ply session.PlyRecord) string {
		m := models[0]
		if ply.Side == rules.Black {
			m = models[1]
		}
		return con.Text("console.model_header", map[string]any{"Model": m})
	}
	return d.play(ctx, con, ModeSpectate, white, black, header, false, opts)
}

// Online queues for a remote opponent. The local side is the console user, or the agent when
// withAgent is set.
func (d *Deps) Online(ctx context.Context, con *console.Console, queue wire.QueueKind, withAgent bool, opts RunOptions) (session.Outcome, error) {
	if err := d.Config.RequirePeer(); err != nil {
		return session.Outcome{}, err
	}
	if withAgent && d.Generator == nil {
		return session.Outcome{}, fmt.Errorf("online agent play needs an agent")
	}

	stop := con.Wait(con.Text("console.connecting", map[string]any{"Queue": queue.String()}))
	conn, err := peer.Connect(ctx, d.Config.MatchfinderURL, queue,
		peer.WithReceiveTimeout(d.Config.PeerReceiveTimeout),
		peer.WithAdapter(d.Adapter),
		peer.WithLogger(d.Logger),
	)
	stop()
	if err != nil {
		return session.Outcome{}, fmt.Errorf("connect to matchfinder: %w", err)
	}
	local := conn.Side()
	con.Say("console.connected", map[string]any{"Color": sideTitle(local)})

	var me session.MoveSource = player.NewHuman(con, d.Adapter, "human")
	if withAgent {
		me = player.NewAgent(d.Generator, d.Config.Model, con, d.Logger)
	}
	remote := player.NewRemote(conn, con)

	white, black := me, session.MoveSource(remote)
	if local == rules.Black {
		white, black = remote, me
	}
	return d.play(ctx, con, ModeOnline, white, black, nil, local == rules.Black, opts)
}

func (d *Deps) play(ctx context.Context, con *console.Console, mode string, white, black session.MoveSource, header func(session.PlyRecord) string, flip bool, opts RunOptions) (session.Outcome, error) {
	var last *rules.Move
	printPly := con.PlyPrinter(header)
	ctrl, err := session.NewController(d.Adapter, d.Adapter.NewPosition(), white, black, session.Config{
		Mode:     mode,
		Recorder: d.Recorder(),
		Logger:   d.Logger,
		OnPly: func(ply session.PlyRecord, pos *rules.Position) {
			mv := ply.Move
			last = &mv
			printPly(ply, pos)
		},
	})
	if err != nil {
		// Run owns closing the sources; without a controller it is ours to do
		closeSources(white, black)
		return session.Outcome{}, err
	}

	out, err := ctrl.Run(ctx)
	if err != nil {
		return out, err
	}
	con.ShowOutcome(out)

	if opts.Snapshot != "" {
		snapOpts := boardimg.Options{LastMove: last, Flip: flip}
		if err := d.Renderer.WriteFile(ctx, opts.Snapshot, ctrl.Position(), snapOpts); err != nil {
			d.Logger.Warn("snapshot_write_error", zap.String("path", opts.Snapshot), zap.Error(err))
		}
	}
	return out, nil
}

func closeSources(sources ...session.MoveSource) {
	for _, src := range sources {
		if c, ok := src.(io.Closer); ok {
			_ = c.Close()
		}
	}
}

func sideTitle(s rules.Side) string {
	if s == rules.Black {
		return "Black"
	}
	return "White"
}
