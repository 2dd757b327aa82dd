package rules

import (
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// Side identifies a chess side. White always moves first.
type Side int8

const (
	NoSide Side = iota
	White
	Black
)

// Other returns the opposing side.
func (s Side) Other() Side {
	switch s {
	case White:
		return Black
	case Black:
		return White
	default:
		return NoSide
	}
}

func (s Side) String() string {
	switch s {
	case White:
		return "white"
	case Black:
		return "black"
	default:
		return "none"
	}
}

// ParseSide accepts "white"/"black" (or w/b) in any case.
func ParseSide(s string) (Side, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white", "w":
		return White, true
	case "black", "b":
		return Black, true
	default:
		return NoSide, false
	}
}

func sideFrom(c nchess.Color) Side {
	switch c {
	case nchess.White:
		return White
	case nchess.Black:
		return Black
	default:
		return NoSide
	}
}

// PieceKind is the type of a piece, independent of side.
type PieceKind int8

const (
	NoKind PieceKind = iota
	King
	Queen
	Rook
	Bishop
	Knight
	Pawn
)

// Letter is the upper-case English piece letter (P for pawns).
func (k PieceKind) Letter() string {
	switch k {
	case King:
		return "K"
	case Queen:
		return "Q"
	case Rook:
		return "R"
	case Bishop:
		return "B"
	case Knight:
		return "N"
	case Pawn:
		return "P"
	default:
		return ""
	}
}

func kindFrom(pt nchess.PieceType) PieceKind {
	switch pt {
	case nchess.King:
		return King
	case nchess.Queen:
		return Queen
	case nchess.Rook:
		return Rook
	case nchess.Bishop:
		return Bishop
	case nchess.Knight:
		return Knight
	case nchess.Pawn:
		return Pawn
	default:
		return NoKind
	}
}

// Piece is a side-owned piece on a square.
type Piece struct {
	Side Side
	Kind PieceKind
}

// Symbol follows the FEN convention: upper case for white, lower case for black.
func (p Piece) Symbol() string {
	if p.Side == Black {
		return strings.ToLower(p.Kind.Letter())
	}
	return p.Kind.Letter()
}

// Move is an immutable, already-resolved move. Two moves are equal iff their UCI forms match.
type Move struct {
	uci   string
	san   string
	from  string
	to    string
	promo PieceKind
}

// UCI is the canonical long form (origin, destination, optional promotion letter).
func (m Move) UCI() string { return m.uci }

// SAN is the short form computed against the position the move was resolved in.
func (m Move) SAN() string { return m.san }

func (m Move) From() string         { return m.from }
func (m Move) To() string           { return m.to }
func (m Move) Promotion() PieceKind { return m.promo }
func (m Move) IsZero() bool         { return m.uci == "" }
func (m Move) Equal(o Move) bool    { return m.uci == o.uci }
func (m Move) String() string       { return m.uci }

// Termination describes whether a position ends the game.
type Termination struct {
	Over   bool
	Kind   TerminalKind
	Winner Side
	Method string
}

// TerminalKind classifies how a game ended on the board.
type TerminalKind int8

const (
	NotTerminal TerminalKind = iota
	Checkmate
	Stalemate
	Draw
)

func (k TerminalKind) String() string {
	switch k {
	case Checkmate:
		return "checkmate"
	case Stalemate:
		return "stalemate"
	case Draw:
		return "draw"
	default:
		return "ongoing"
	}
}
