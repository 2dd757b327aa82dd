package matchfinder

import "time"

// Status is the lifecycle of a match record.
type Status string

const (
	StatusActive       Status = "ACTIVE"
	StatusFinished     Status = "FINISHED"
	StatusTimeout      Status = "TIMEOUT"
	StatusDisconnected Status = "DISCONNECTED"
)

// Match is stored as JSON in Redis under mf:match:<id>.
type Match struct {
	ID        string    `json:"id"`
	Queue     string    `json:"queue"`
	Status    Status    `json:"status"`
	WhiteID   string    `json:"white_id"`
	BlackID   string    `json:"black_id"`
	MovesUCI  []string  `json:"moves_uci"`
	Outcome   string    `json:"outcome,omitempty"`
	Method    string    `json:"method,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Errors
var (
	ErrMatchGone     = errf("match not found or expired")
	ErrMatchInactive = errf("match is no longer active")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error { return staticErr(s) }
