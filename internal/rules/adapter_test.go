package rules

import (
	"errors"
	"strings"
	"testing"
)

func TestParse_SAN_UCI_Illegal(t *testing.T) {
	a := New()
	pos := a.NewPosition()

	mv, err := a.Parse(pos, "e4")
	if err != nil { t.Fatalf("Parse SAN: %v", err) }
	if mv.UCI() != "e2e4" || mv.SAN() != "e4" { t.Fatalf("unexpected move: uci=%q san=%q", mv.UCI(), mv.SAN()) }

	mv, err = a.Parse(pos, "G1F3")
	if err != nil { t.Fatalf("Parse UCI: %v", err) }
	if mv.UCI() != "g1f3" || mv.SAN() != "Nf3" { t.Fatalf("unexpected move: uci=%q san=%q", mv.UCI(), mv.SAN()) }

	if _, err := a.Parse(pos, "Nf9"); !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse for Nf9, got %v", err)
	}
	if _, err := a.Parse(pos, "Ke2"); !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("expected ErrIllegalMove for Ke2, got %v", err)
	}
	if _, err := a.Parse(pos, "e2e5"); !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("expected ErrIllegalMove for e2e5, got %v", err)
	}
	if _, err := a.Parse(pos, "   "); !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse for blank input, got %v", err)
	}
}

func TestParseDoesNotMutatePosition(t *testing.T) {
	a := New()
	pos := a.NewPosition()
	before := pos.FEN()
	if !a.IsLegal(pos, "Nf3") { t.Fatalf("Nf3 should be legal") }
	if pos.FEN() != before || pos.Ply() != 0 {
		t.Fatalf("trial resolve changed the position: %s", pos.FEN())
	}
}

func TestApplyReturnsFreshPosition(t *testing.T) {
	a := New()
	start := a.NewPosition()
	mv, err := a.Parse(start, "e4")
	if err != nil { t.Fatalf("Parse: %v", err) }
	next, applied, err := a.Apply(start, mv)
	if err != nil { t.Fatalf("Apply: %v", err) }
	if !applied.Equal(mv) { t.Fatalf("applied %s, want %s", applied, mv) }
	if start.Ply() != 0 || next.Ply() != 1 { t.Fatalf("ply: start=%d next=%d", start.Ply(), next.Ply()) }
	if next.Turn() != Black { t.Fatalf("turn after e4 = %s", next.Turn()) }

	// the same move is no longer legal in the new position
	if _, _, err := a.Apply(next, mv); !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("expected ErrIllegalMove re-applying e2e4, got %v", err)
	}
	hist := a.MoveHistory(next)
	if len(hist) != 1 || hist[0].SAN() != "e4" { t.Fatalf("history: %+v", hist) }
}

func TestIsTerminal_FoolsMate(t *testing.T) {
	a := New()
	pos := a.NewPosition()
	for _, s := range []string{"f3", "e5", "g4", "Qh4"} {
		mv, err := a.Parse(pos, s)
		if err != nil { t.Fatalf("Parse %s: %v", s, err) }
		pos, _, err = a.Apply(pos, mv)
		if err != nil { t.Fatalf("Apply %s: %v", s, err) }
	}
	term := a.IsTerminal(pos)
	if !term.Over || term.Kind != Checkmate || term.Winner != Black {
		t.Fatalf("expected black checkmate, got %+v", term)
	}
}

func TestIsTerminal_Stalemate(t *testing.T) {
	a := New()
	pos, err := a.PositionFromFEN("7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")
	if err != nil { t.Fatalf("PositionFromFEN: %v", err) }
	term := a.IsTerminal(pos)
	if !term.Over || term.Kind != Stalemate { t.Fatalf("expected stalemate, got %+v", term) }
}

func TestPieceMapAndRender(t *testing.T) {
	a := New()
	pos := a.NewPosition()
	pm := a.PieceMap(pos)
	if len(pm) != 32 { t.Fatalf("expected 32 pieces, got %d", len(pm)) }
	if p := pm["e1"]; p.Side != White || p.Kind != King { t.Fatalf("e1 = %+v", p) }

	sq := a.SquaresOf(pos, Black)
	if got := strings.Join(sq["n"], ","); got != "b8,g8" { t.Fatalf("black knights = %s", got) }

	lines := strings.Split(a.Render(pos), "\n")
	if len(lines) != 8 { t.Fatalf("expected 8 rows, got %d", len(lines)) }
	if lines[0] != "r n b q k b n r" || lines[4] != ". . . . . . . ." || lines[7] != "R N B Q K B N R" {
		t.Fatalf("unexpected render:\n%s", a.Render(pos))
	}
}
