package archive

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/park285/terminal-chess/internal/session"
)

func plies(san ...string) []session.PlyRecord {
	out := make([]session.PlyRecord, 0, len(san))
	for i, s := range san {
		out = append(out, session.PlyRecord{Index: i, Notation: s})
	}
	return out
}

func TestBuildPGN_FoolsMate(t *testing.T) {
	res := session.Result{
		Mode:       "versus",
		WhiteLabel: "agent:\"m\"",
		BlackLabel: "human",
		Outcome:    session.Outcome{Reason: session.ReasonCheckmate, Winner: session.Second},
		History:    plies("f3", "e5", "g4", "Qh4#"),
		EndedAt:    time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC),
	}
	pgn := BuildPGN(res)
	for _, want := range []string{
		"[Date \"2026.03.09\"]",
		"[White \"agent:'m'\"]",
		"[Result \"0-1\"]",
		"[Termination \"checkmate\"]",
		"1. f3 e5 2. g4 Qh4# 0-1",
	} {
		if !strings.Contains(pgn, want) { t.Fatalf("PGN missing %q:\n%s", want, pgn) }
	}
}

func TestBuildPGN_UnfinishedAndOddPlies(t *testing.T) {
	res := session.Result{
		Outcome: session.Outcome{Reason: session.ReasonPeerDisconnected},
		History: plies("e4", "e5", "Nf3"),
	}
	pgn := BuildPGN(res)
	if !strings.HasSuffix(pgn, "1. e4 e5 2. Nf3 *") { t.Fatalf("movetext:\n%s", pgn) }
	if !strings.Contains(pgn, "[Termination \"peer_disconnected\"]") { t.Fatalf("termination:\n%s", pgn) }
}

func TestBuildPGN_DrawMethod(t *testing.T) {
	res := session.Result{Outcome: session.Outcome{Reason: session.ReasonDraw, Method: "ThreefoldRepetition"}}
	pgn := BuildPGN(res)
	if !strings.Contains(pgn, "[Result \"1/2-1/2\"]") || !strings.Contains(pgn, "threefoldrepetition") { t.Fatalf("pgn:\n%s", pgn) }
}

func TestNilRepositoryIsNoop(t *testing.T) {
	var r *Repository
	if err := r.SaveResult(context.Background(), session.Result{}); err != nil { t.Fatalf("nil repo: %v", err) }
	if _, err := NewRepository("  ", nil); err == nil { t.Fatalf("expected DATABASE_URL error") }
}
