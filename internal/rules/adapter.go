// Package rules adapts github.com/corentings/chess/v2 to the capabilities the session engine
// consumes: parsing, legality, application, termination and a few views of the position.
package rules

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

var (
	// ErrParse marks text that is not chess notation at all.
	ErrParse = errors.New("malformed move notation")
	// ErrIllegalMove marks well-formed notation that is not legal in the position.
	ErrIllegalMove = errors.New("illegal move")
)

var (
	sanPattern = regexp.MustCompile(`^(?:O-O(?:-O)?|0-0(?:-0)?|[KQRBN]?[a-h]?[1-8]?x?[a-h][1-8](?:=?[QRBNqrbn])?)[+#]?[!?]*$`)
	uciPattern = regexp.MustCompile(`^[a-h][1-8][a-h][1-8][qrbn]?$`)
)

// Position is an opaque game state. Callers never mutate it; Apply returns a fresh Position.
type Position struct {
	game *nchess.Game
}

// Turn is the side to move.
func (p *Position) Turn() Side { return sideFrom(p.game.Position().Turn()) }

// FEN of the current position.
func (p *Position) FEN() string { return p.game.FEN() }

// Ply is the number of moves applied since the start.
func (p *Position) Ply() int { return len(p.game.Moves()) }

// Adapter exposes the rules of chess. It is stateless and safe to share.
type Adapter struct{}

func New() *Adapter { return &Adapter{} }

// NewPosition returns the standard starting position.
func (a *Adapter) NewPosition() *Position {
	return &Position{game: nchess.NewGame()}
}

// PositionFromFEN starts from an arbitrary position.
func (a *Adapter) PositionFromFEN(fen string) (*Position, error) {
	opt, err := nchess.FEN(strings.TrimSpace(fen))
	if err != nil {
		return nil, fmt.Errorf("parse fen: %w", err)
	}
	return &Position{game: nchess.NewGame(opt)}, nil
}

// Parse resolves SAN (preferred) or UCI text against pos. The returned Move is legal in pos.
func (a *Adapter) Parse(pos *Position, text string) (Move, error) {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return Move{}, fmt.Errorf("%w: empty input", ErrParse)
	}
	cur := pos.game.Position()

	if mv, err := (nchess.AlgebraicNotation{}).Decode(cur, raw); err == nil {
		if m, ok := a.trial(pos, mv); ok {
			return m, nil
		}
	}
	lower := strings.ToLower(raw)
	if uciPattern.MatchString(lower) {
		if mv, err := (nchess.UCINotation{}).Decode(cur, lower); err == nil {
			if m, ok := a.trial(pos, mv); ok {
				return m, nil
			}
		}
		return Move{}, fmt.Errorf("%w: %s is not playable for %s", ErrIllegalMove, lower, pos.Turn())
	}
	if sanPattern.MatchString(raw) {
		return Move{}, fmt.Errorf("%w: %s is not playable for %s", ErrIllegalMove, raw, pos.Turn())
	}
	return Move{}, fmt.Errorf("%w: %q", ErrParse, raw)
}

// trial applies mv on a clone and discards it, so pos stays observably identical.
func (a *Adapter) trial(pos *Position, mv *nchess.Move) (Move, bool) {
	if mv == nil {
		return Move{}, false
	}
	clone := pos.game.Clone()
	if err := clone.Move(mv, nil); err != nil {
		return Move{}, false
	}
	return toMove(pos.game.Position(), mv), true
}

// IsLegal reports whether text (SAN or UCI) names a legal move in pos.
func (a *Adapter) IsLegal(pos *Position, text string) bool {
	_, err := a.Parse(pos, text)
	return err == nil
}

// Apply plays m on a copy of pos and returns the new position with the move re-resolved there.
func (a *Adapter) Apply(pos *Position, m Move) (*Position, Move, error) {
	if m.IsZero() {
		return nil, Move{}, fmt.Errorf("%w: empty move", ErrParse)
	}
	cur := pos.game.Position()
	mv, err := (nchess.UCINotation{}).Decode(cur, m.UCI())
	if err != nil {
		return nil, Move{}, fmt.Errorf("%w: %s", ErrIllegalMove, m.UCI())
	}
	applied := toMove(cur, mv)
	next := pos.game.Clone()
	if err := next.Move(mv, nil); err != nil {
		return nil, Move{}, fmt.Errorf("%w: %s: %v", ErrIllegalMove, m.UCI(), err)
	}
	return &Position{game: next}, applied, nil
}

// IsTerminal reports automatic game endings detected by the rules library.
func (a *Adapter) IsTerminal(pos *Position) Termination {
	outcome := pos.game.Outcome()
	if outcome == nchess.NoOutcome {
		return Termination{}
	}
	method := pos.game.Method()
	t := Termination{Over: true, Method: method.String()}
	switch outcome {
	case nchess.WhiteWon:
		t.Kind, t.Winner = Checkmate, White
	case nchess.BlackWon:
		t.Kind, t.Winner = Checkmate, Black
	default:
		if method == nchess.Stalemate {
			t.Kind = Stalemate
		} else {
			t.Kind = Draw
		}
	}
	return t
}

// Format returns the long (UCI) and short (SAN) notation of m.
func (a *Adapter) Format(m Move) (long, short string) { return m.UCI(), m.SAN() }

// PieceMap maps square names ("e4") to the piece standing there.
func (a *Adapter) PieceMap(pos *Position) map[string]Piece {
	out := make(map[string]Piece, 32)
	for sq, piece := range pos.game.Position().Board().SquareMap() {
		if piece == nchess.NoPiece {
			continue
		}
		out[sq.String()] = Piece{Side: sideFrom(piece.Color()), Kind: kindFrom(piece.Type())}
	}
	return out
}

// SquaresOf groups one side's pieces by symbol, squares sorted, e.g. "P" -> [a2 b2 ...].
func (a *Adapter) SquaresOf(pos *Position, side Side) map[string][]string {
	out := map[string][]string{}
	for sq, p := range a.PieceMap(pos) {
		if p.Side != side {
			continue
		}
		out[p.Symbol()] = append(out[p.Symbol()], sq)
	}
	for k := range out {
		sort.Strings(out[k])
	}
	return out
}

// MoveHistory returns the applied moves in order, with SAN computed in their own positions.
func (a *Adapter) MoveHistory(pos *Position) []Move {
	moves := pos.game.Moves()
	positions := pos.game.Positions()
	out := make([]Move, 0, len(moves))
	for i, mv := range moves {
		if i >= len(positions) {
			break
		}
		out = append(out, toMove(positions[i], mv))
	}
	return out
}

// Render draws the board as text, rank 8 first, '.' for empty squares.
func (a *Adapter) Render(pos *Position) string {
	board := pos.game.Position().Board()
	ranks := []nchess.Rank{nchess.Rank8, nchess.Rank7, nchess.Rank6, nchess.Rank5, nchess.Rank4, nchess.Rank3, nchess.Rank2, nchess.Rank1}
	files := []nchess.File{nchess.FileA, nchess.FileB, nchess.FileC, nchess.FileD, nchess.FileE, nchess.FileF, nchess.FileG, nchess.FileH}

	var b strings.Builder
	for i, rank := range ranks {
		for j, file := range files {
			if j > 0 {
				b.WriteByte(' ')
			}
			piece := board.Piece(nchess.NewSquare(file, rank))
			if piece == nchess.NoPiece {
				b.WriteByte('.')
				continue
			}
			b.WriteString(Piece{Side: sideFrom(piece.Color()), Kind: kindFrom(piece.Type())}.Symbol())
		}
		if i < len(ranks)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func toMove(pos *nchess.Position, mv *nchess.Move) Move {
	return Move{
		uci:   strings.ToLower((nchess.UCINotation{}).Encode(pos, mv)),
		san:   (nchess.AlgebraicNotation{}).Encode(pos, mv),
		from:  mv.S1().String(),
		to:    mv.S2().String(),
		promo: kindFrom(mv.Promo()),
	}
}
