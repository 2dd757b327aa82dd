// Package archive persists finished sessions to Postgres with a PGN rendition of the game.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/park285/terminal-chess/internal/session"
	"go.uber.org/zap"
)

const schema = `CREATE TABLE IF NOT EXISTS chess_sessions (
    session_id   TEXT PRIMARY KEY,
    mode         TEXT NOT NULL,
    white_label  TEXT NOT NULL,
    black_label  TEXT NOT NULL,
    result       TEXT NOT NULL,
    reason       TEXT NOT NULL,
    method       TEXT NOT NULL,
    moves_uci    JSONB NOT NULL,
    moves_san    JSONB NOT NULL,
    pgn          TEXT NOT NULL,
    started_at   TIMESTAMPTZ NOT NULL,
    ended_at     TIMESTAMPTZ NOT NULL,
    duration_ms  BIGINT NOT NULL
)`

type Repository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewRepository(databaseURL string, logger *zap.Logger) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Repository{db: db, logger: logger}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// SaveResult upserts a finished session. It satisfies session.Recorder.
func (r *Repository) SaveResult(ctx context.Context, res session.Result) error {
	if r == nil || r.db == nil {
		return nil
	}
	uci := make([]string, 0, len(res.History))
	san := make([]string, 0, len(res.History))
	for _, p := range res.History {
		uci = append(uci, p.UCI)
		san = append(san, p.Notation)
	}
	movesUCIRaw, _ := json.Marshal(uci)
	movesSANRaw, _ := json.Marshal(san)
	duration := res.EndedAt.Sub(res.StartedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}

	q := `INSERT INTO chess_sessions (
        session_id, mode, white_label, black_label,
        result, reason, method, moves_uci, moves_san, pgn,
        started_at, ended_at, duration_ms
      ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
      ) ON CONFLICT (session_id) DO UPDATE SET
        result=EXCLUDED.result,
        reason=EXCLUDED.reason,
        method=EXCLUDED.method,
        moves_uci=EXCLUDED.moves_uci,
        moves_san=EXCLUDED.moves_san,
        pgn=EXCLUDED.pgn,
        ended_at=EXCLUDED.ended_at,
        duration_ms=EXCLUDED.duration_ms`

	_, err := r.db.ExecContext(ctx, q,
		res.SessionID, res.Mode, res.WhiteLabel, res.BlackLabel,
		res.Outcome.Result(), string(res.Outcome.Reason), res.Outcome.Method,
		string(movesUCIRaw), string(movesSANRaw), BuildPGN(res),
		res.StartedAt, res.EndedAt, duration,
	)
	if err != nil {
		return fmt.Errorf("save session %s: %w", res.SessionID, err)
	}
	r.logger.Info("archive_session_saved", zap.String("session_id", res.SessionID), zap.String("reason", string(res.Outcome.Reason)), zap.Int("plies", len(res.History)))
	return nil
}

func resultToPGN(result string) string {
	switch result {
	case "white":
		return "1-0"
	case "black":
		return "0-1"
	case "draw":
		return "1/2-1/2"
	default:
		return "*"
	}
}

// BuildPGN renders res as PGN with the Seven Tag Roster and numbered SAN movetext.
func BuildPGN(res session.Result) string {
	pgnResult := resultToPGN(res.Outcome.Result())
	date := res.EndedAt
	if date.IsZero() {
		date = time.Now()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[Event \"Terminal Chess %s\"]\n", sanitizePGN(res.Mode))
	b.WriteString("[Site \"terminal\"]\n")
	fmt.Fprintf(&b, "[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day())
	b.WriteString("[Round \"-\"]\n")
	fmt.Fprintf(&b, "[White \"%s\"]\n", sanitizePGN(res.WhiteLabel))
	fmt.Fprintf(&b, "[Black \"%s\"]\n", sanitizePGN(res.BlackLabel))
	fmt.Fprintf(&b, "[Result \"%s\"]\n", pgnResult)
	if term := termination(res.Outcome); term != "" {
		fmt.Fprintf(&b, "[Termination \"%s\"]\n", sanitizePGN(term))
	}
	b.WriteString("\n")

	for i, p := range res.History {
		if i%2 == 0 {
			fmt.Fprintf(&b, "%d. ", i/2+1)
		}
		b.WriteString(strings.TrimSpace(p.Notation))
		b.WriteString(" ")
	}
	b.WriteString(pgnResult)
	return b.String()
}

func termination(o session.Outcome) string {
	switch o.Reason {
	case session.ReasonNone:
		return ""
	case session.ReasonDraw:
		if o.Method != "" {
			return strings.ToLower(o.Method)
		}
	}
	return string(o.Reason)
}

func sanitizePGN(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}
