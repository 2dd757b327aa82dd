package session

import "errors"

// Failures a Move Source reports to end the session.
var (
	ErrAgentExhausted   = errors.New("agent exhausted its attempts without a legal move")
	ErrPeerDisconnected = errors.New("peer disconnected")
	ErrResigned         = errors.New("side resigned")
)

// ReasonFor maps a source failure to the outcome reason. ok is false for errors that are not
// session-terminating failures (the controller returns those to its caller).
func ReasonFor(err error) (Reason, bool) {
	switch {
	case errors.Is(err, ErrAgentExhausted):
		return ReasonAgentUnavailable, true
	case errors.Is(err, ErrPeerDisconnected):
		return ReasonPeerDisconnected, true
	case errors.Is(err, ErrResigned):
		return ReasonResigned, true
	default:
		return ReasonNone, false
	}
}
