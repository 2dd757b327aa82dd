// Package wire holds the text literals exchanged between the terminal client and the
// matchfinder server. Nothing outside this package should spell these strings.
package wire

import (
	"fmt"
	"strings"
)

// QueueKind selects the matchmaking queue.
type QueueKind int

const (
	QueueQuickplay QueueKind = iota + 1
	QueueNormal
)

func (q QueueKind) String() string {
	switch q {
	case QueueQuickplay:
		return "quickplay"
	case QueueNormal:
		return "normal"
	default:
		return "unknown"
	}
}

// ParseQueueKind accepts the queue literal in any case.
func ParseQueueKind(s string) (QueueKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "quickplay":
		return QueueQuickplay, nil
	case "normal":
		return QueueNormal, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownQueue, s)
	}
}

// Color is the side announced in the handshake reply.
type Color int

const (
	White Color = iota + 1
	Black
)

// Token is the trailing word of the handshake reply.
func (c Color) Token() string {
	switch c {
	case White:
		return "White"
	case Black:
		return "Black"
	default:
		return "Unknown"
	}
}

func (c Color) String() string { return strings.ToLower(c.Token()) }

// HandshakeReply is the message a matched player receives.
func HandshakeReply(c Color) string {
	return "Match found! Your color is: " + c.Token()
}

// AssignedColor extracts the side from a handshake reply: its last whitespace-delimited token.
func AssignedColor(reply string) (Color, error) {
	fields := strings.Fields(reply)
	if len(fields) == 0 {
		return 0, ErrEmptyHandshake
	}
	last := strings.Trim(fields[len(fields)-1], ".!:")
	switch strings.ToLower(last) {
	case "white":
		return White, nil
	case "black":
		return Black, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownColor, last)
	}
}

const (
	// OpponentTimedOut tells the waiting player that the match ended without them.
	OpponentTimedOut = "Opponent timed out"
	// YouTimedOut is the close reason sent to the player who let the clock run out.
	YouTimedOut = "You timed out"
)

// Close codes used by the quickplay timeout.
const (
	StatusYouTimedOut      = 4000
	StatusOpponentTimedOut = 4001
)

// IsOpponentTimeout reports whether msg is the termination signal.
func IsOpponentTimeout(msg string) bool {
	return strings.EqualFold(strings.TrimSpace(msg), OpponentTimedOut)
}

// Errors
var (
	ErrUnknownQueue   = errf("unknown queue kind")
	ErrUnknownColor   = errf("unknown color token")
	ErrEmptyHandshake = errf("empty handshake reply")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error { return staticErr(s) }
