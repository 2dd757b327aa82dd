package session

import (
	"context"
	"time"

	"github.com/park285/terminal-chess/internal/rules"
)

// Side aliases the rules side so callers do not need both packages for one enum.
type Side = rules.Side

const (
	First  = rules.White
	Second = rules.Black
)

// PlyRecord is one applied move. Records are appended and never modified.
type PlyRecord struct {
	Index    int        `json:"index"`
	Side     Side       `json:"side"`
	Move     rules.Move `json:"-"`
	UCI      string     `json:"uci"`
	Notation string     `json:"san"`
	At       time.Time  `json:"at"`
}

// View is what a Move Source sees when asked for a move. History is a copy.
type View struct {
	Position *rules.Position
	History  []PlyRecord
	Side     Side
}

// MoveSource supplies the next move for one side.
type MoveSource interface {
	Propose(ctx context.Context, view View) (rules.Move, error)
}

// Observer is implemented by sources that must see every applied ply (e.g. to transmit it).
type Observer interface {
	Observe(ctx context.Context, ply PlyRecord) error
}

// Labeler lets a source describe itself in logs and archived results.
type Labeler interface {
	Label() string
}

// Reason is why a session ended.
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonCheckmate        Reason = "checkmate"
	ReasonStalemate        Reason = "stalemate"
	ReasonDraw             Reason = "draw"
	ReasonResigned         Reason = "resigned"
	ReasonAgentUnavailable Reason = "agent_unavailable"
	ReasonPeerDisconnected Reason = "peer_disconnected"
)

// Outcome is the absorbing terminal state of a session.
type Outcome struct {
	Reason Reason
	Winner Side
	// Method carries the rules library's detail, e.g. "ThreefoldRepetition".
	Method string
	// FailedSide is the side whose source failed, for failure reasons.
	FailedSide Side
	Plies      int
}

// Result maps the outcome to "white", "black" or "draw" ("" when undecided).
func (o Outcome) Result() string {
	switch {
	case o.Winner == First:
		return "white"
	case o.Winner == Second:
		return "black"
	case o.Reason == ReasonStalemate || o.Reason == ReasonDraw:
		return "draw"
	default:
		return ""
	}
}

// Finished reports whether the outcome is terminal.
func (o Outcome) Finished() bool { return o.Reason != ReasonNone }

// Recorder persists finished sessions.
type Recorder interface {
	SaveResult(ctx context.Context, res Result) error
}

// Result is the archived summary of a finished session.
type Result struct {
	SessionID  string
	Mode       string
	WhiteLabel string
	BlackLabel string
	Outcome    Outcome
	History    []PlyRecord
	StartedAt  time.Time
	EndedAt    time.Time
}
