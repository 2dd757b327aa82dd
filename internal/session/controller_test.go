package session

import (
	"context"
	"errors"
	"testing"

	"github.com/park285/terminal-chess/internal/rules"
)

// scripted plays fixed notation, then fails with fail (or ErrResigned when nil).
type scripted struct {
	adapter  *rules.Adapter
	moves    []string
	fail     error
	calls    int
	observed []PlyRecord
	closed   int
}

func (s *scripted) Propose(_ context.Context, v View) (rules.Move, error) {
	if s.calls >= len(s.moves) {
		s.calls++
		if s.fail != nil {
			return rules.Move{}, s.fail
		}
		return rules.Move{}, ErrResigned
	}
	text := s.moves[s.calls]
	s.calls++
	return s.adapter.Parse(v.Position, text)
}

func (s *scripted) Close() error { s.closed++; return nil }

type observing struct{ *scripted }

func (o observing) Observe(_ context.Context, ply PlyRecord) error {
	o.observed = append(o.observed, ply)
	return nil
}

type recorderFunc func(ctx context.Context, res Result) error

func (f recorderFunc) SaveResult(ctx context.Context, res Result) error { return f(ctx, res) }

func newScripted(a *rules.Adapter, moves ...string) *scripted {
	return &scripted{adapter: a, moves: moves}
}

func TestRun_FoolsMateAlternatesAndEnds(t *testing.T) {
	a := rules.New()
	white := newScripted(a, "f3", "g4")
	black := newScripted(a, "e5", "Qh4")
	var saved *Result
	rec := recorderFunc(func(_ context.Context, res Result) error { saved = &res; return nil })

	c, err := NewController(a, a.NewPosition(), white, black, Config{Mode: "test", Recorder: rec})
	if err != nil { t.Fatalf("NewController: %v", err) }
	out, err := c.Run(context.Background())
	if err != nil { t.Fatalf("Run: %v", err) }

	if out.Reason != ReasonCheckmate || out.Winner != Second || out.Result() != "black" {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if out.Plies != 4 || len(c.History()) != 4 { t.Fatalf("plies=%d history=%d", out.Plies, len(c.History())) }
	for i, ply := range c.History() {
		want := First
		if i%2 == 1 { want = Second }
		if ply.Side != want || ply.Index != i { t.Fatalf("ply %d: %+v", i, ply) }
	}
	if c.History()[3].Notation != "Qh4#" && c.History()[3].UCI != "d8h4" {
		t.Fatalf("last ply = %+v", c.History()[3])
	}
	if white.calls != 2 || black.calls != 2 { t.Fatalf("calls white=%d black=%d", white.calls, black.calls) }
	if white.closed != 1 || black.closed != 1 { t.Fatalf("sources not closed: %d %d", white.closed, black.closed) }
	if saved == nil || saved.Outcome.Reason != ReasonCheckmate || len(saved.History) != 4 {
		t.Fatalf("recorder got %+v", saved)
	}
}

func TestRun_AgentExhaustedEndsSession(t *testing.T) {
	a := rules.New()
	white := newScripted(a, "e4")
	black := &scripted{adapter: a, fail: ErrAgentExhausted}

	c, _ := NewController(a, a.NewPosition(), white, black, Config{})
	out, err := c.Run(context.Background())
	if err != nil { t.Fatalf("Run: %v", err) }
	if out.Reason != ReasonAgentUnavailable || out.FailedSide != Second || out.Result() != "" {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if out.Plies != 1 { t.Fatalf("plies = %d", out.Plies) }
}

func TestRun_PeerDisconnectStopsAndIsAbsorbing(t *testing.T) {
	a := rules.New()
	white := newScripted(a, "e4", "Nf3")
	black := &scripted{adapter: a, moves: []string{"e5"}, fail: ErrPeerDisconnected}

	c, _ := NewController(a, a.NewPosition(), white, black, Config{})
	out, err := c.Run(context.Background())
	if err != nil { t.Fatalf("Run: %v", err) }
	if out.Reason != ReasonPeerDisconnected || out.Plies != 3 { t.Fatalf("unexpected outcome: %+v", out) }

	// a finished controller never asks a source again
	calls := white.calls + black.calls
	again, err := c.Run(context.Background())
	if err != nil { t.Fatalf("second Run: %v", err) }
	if again != out { t.Fatalf("outcome changed: %+v vs %+v", again, out) }
	if white.calls+black.calls != calls { t.Fatalf("sources consulted after terminal outcome") }
}

func TestRun_ResignationAwardsOpponent(t *testing.T) {
	a := rules.New()
	white := newScripted(a) // resigns immediately
	black := newScripted(a)

	c, _ := NewController(a, a.NewPosition(), white, black, Config{})
	out, err := c.Run(context.Background())
	if err != nil { t.Fatalf("Run: %v", err) }
	if out.Reason != ReasonResigned || out.Winner != Second || out.FailedSide != First {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if black.calls != 0 { t.Fatalf("black should not have been asked") }
}

func TestRun_ObserverSeesEveryPly(t *testing.T) {
	a := rules.New()
	white := observing{newScripted(a, "f3", "g4")}
	black := newScripted(a, "e5", "Qh4")

	c, _ := NewController(a, a.NewPosition(), white, black, Config{})
	if _, err := c.Run(context.Background()); err != nil { t.Fatalf("Run: %v", err) }
	if len(white.observed) != 4 { t.Fatalf("observer saw %d plies", len(white.observed)) }
	if white.observed[3].UCI != "d8h4" { t.Fatalf("last observed = %+v", white.observed[3]) }
}

func TestRun_StalemateStartIsImmediatelyTerminal(t *testing.T) {
	a := rules.New()
	pos, err := a.PositionFromFEN("7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")
	if err != nil { t.Fatalf("PositionFromFEN: %v", err) }
	white, black := newScripted(a), newScripted(a)

	c, _ := NewController(a, pos, white, black, Config{})
	out, err := c.Run(context.Background())
	if err != nil { t.Fatalf("Run: %v", err) }
	if out.Reason != ReasonStalemate || out.Result() != "draw" { t.Fatalf("unexpected outcome: %+v", out) }
	if white.calls+black.calls != 0 { t.Fatalf("no source should be asked") }
}

type rejecting struct{ reason Reason }

func (r rejecting) Propose(context.Context, View) (rules.Move, error) {
	a := rules.New()
	// a legal move from the start position, illegal once e4 has been played
	return a.Parse(a.NewPosition(), "e4")
}

func (r rejecting) FailureReason() Reason { return r.reason }

func TestRun_RejectedMoveUsesSourceFailureReason(t *testing.T) {
	a := rules.New()
	pos, _ := a.PositionFromFEN("rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR w KQkq - 0 1")
	c, _ := NewController(a, pos, rejecting{reason: ReasonAgentUnavailable}, newScripted(a), Config{})
	out, err := c.Run(context.Background())
	if err != nil { t.Fatalf("Run: %v", err) }
	if out.Reason != ReasonAgentUnavailable || out.FailedSide != First { t.Fatalf("unexpected outcome: %+v", out) }
}

func TestRun_UnknownErrorIsReturned(t *testing.T) {
	a := rules.New()
	boom := errors.New("boom")
	c, _ := NewController(a, a.NewPosition(), &scripted{adapter: a, fail: boom}, newScripted(a), Config{})
	_, err := c.Run(context.Background())
	if !errors.Is(err, boom) { t.Fatalf("expected boom, got %v", err) }
	if c.Outcome().Finished() { t.Fatalf("outcome should stay open") }
}

func TestRun_CancelledContext(t *testing.T) {
	a := rules.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c, _ := NewController(a, a.NewPosition(), newScripted(a, "e4"), newScripted(a), Config{})
	if _, err := c.Run(ctx); !errors.Is(err, context.Canceled) { t.Fatalf("expected context.Canceled, got %v", err) }
}
