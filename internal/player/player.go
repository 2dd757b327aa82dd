// Package player holds the Move Source variants: a human at the terminal, a language-model agent
// and a remote peer.
package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/park285/terminal-chess/internal/console"
	"github.com/park285/terminal-chess/internal/rules"
	"github.com/park285/terminal-chess/internal/session"
	"go.uber.org/zap"
)

// Human reads moves from the console. Bad input is reported and asked for again; only closed
// input (or the word "resign") ends the session.
type Human struct {
	console *console.Console
	adapter *rules.Adapter
	name    string
}

func NewHuman(c *console.Console, adapter *rules.Adapter, name string) *Human {
	if adapter == nil {
		adapter = rules.New()
	}
	if name == "" {
		name = "human"
	}
	return &Human{console: c, adapter: adapter, name: name}
}

func (h *Human) Label() string { return h.name }

func (h *Human) Propose(ctx context.Context, v session.View) (rules.Move, error) {
	if len(v.History) == 0 {
		h.console.ShowBoard(v.Position)
	}
	prompt := h.console.Text("console.prompt_move", nil)
	for {
		text, err := h.console.ReadLine(ctx, prompt)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return rules.Move{}, fmt.Errorf("%w: input closed", session.ErrResigned)
			}
			return rules.Move{}, err
		}
		if strings.EqualFold(text, "resign") {
			return rules.Move{}, session.ErrResigned
		}
		mv, err := h.adapter.Parse(v.Position, text)
		if err != nil {
			h.console.Say("console.invalid_move", map[string]any{"Reason": err.Error()})
			continue
		}
		return mv, nil
	}
}

// Generator is the agent move protocol.
type Generator interface {
	Generate(ctx context.Context, pos *rules.Position, side rules.Side, model string) (*rules.Move, error)
}

// Agent asks a model for every move. An exhausted generator ends the session.
type Agent struct {
	gen     Generator
	model   string
	console *console.Console
	logger  *zap.Logger
}

func NewAgent(gen Generator, model string, c *console.Console, logger *zap.Logger) *Agent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Agent{gen: gen, model: model, console: c, logger: logger}
}

func (a *Agent) Label() string { return "agent:" + a.model }

func (a *Agent) Model() string { return a.model }

// FailureReason makes a move the rules refuse count as the agent giving up.
func (a *Agent) FailureReason() session.Reason { return session.ReasonAgentUnavailable }

func (a *Agent) Propose(ctx context.Context, v session.View) (rules.Move, error) {
	stop := func() {}
	if a.console != nil {
		stop = a.console.Wait(a.console.Text("console.waiting_agent", map[string]any{"Model": a.model}))
	}
	mv, err := a.gen.Generate(ctx, v.Position, v.Side, a.model)
	stop()
	if err != nil {
		return rules.Move{}, err
	}
	if mv == nil {
		a.logger.Warn("agent_exhausted", zap.String("model", a.model), zap.String("side", v.Side.String()))
		return rules.Move{}, fmt.Errorf("%w (model %s)", session.ErrAgentExhausted, a.model)
	}
	return *mv, nil
}

// PeerSession is the connection to the remote opponent.
type PeerSession interface {
	Side() rules.Side
	SendMove(ctx context.Context, m rules.Move) error
	ReceiveMove(ctx context.Context, pos *rules.Position) (rules.Move, error)
	Close() error
}

// Remote plays the opponent's side over a peer session. It also transmits the local side's plies
// once the controller has applied them.
type Remote struct {
	peer    PeerSession
	console *console.Console
}

func NewRemote(p PeerSession, c *console.Console) *Remote {
	return &Remote{peer: p, console: c}
}

func (r *Remote) Label() string { return "peer:" + r.peer.Side().Other().String() }

func (r *Remote) FailureReason() session.Reason { return session.ReasonPeerDisconnected }

func (r *Remote) Propose(ctx context.Context, v session.View) (rules.Move, error) {
	stop := func() {}
	if r.console != nil {
		stop = r.console.Wait(r.console.Text("console.waiting_peer", nil))
	}
	defer stop()
	return r.peer.ReceiveMove(ctx, v.Position)
}

// Observe sends plies made by the local side.
func (r *Remote) Observe(ctx context.Context, ply session.PlyRecord) error {
	if ply.Side != r.peer.Side() {
		return nil
	}
	return r.peer.SendMove(ctx, ply.Move)
}

func (r *Remote) Close() error { return r.peer.Close() }
