// Package session runs a two-sided chess session: it alternates turns between two bound Move
// Sources, applies every move through the rules adapter and reports an absorbing Outcome.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/park285/terminal-chess/internal/rules"
	"go.uber.org/zap"
)

// Rules is the part of the rules adapter the controller needs.
type Rules interface {
	Apply(pos *rules.Position, m rules.Move) (*rules.Position, rules.Move, error)
	IsTerminal(pos *rules.Position) rules.Termination
}

// FailureReasoner is implemented by sources whose rejected moves should end the session with a
// specific reason instead of an error.
type FailureReasoner interface {
	FailureReason() Reason
}

// Config carries the optional collaborators of a Controller.
type Config struct {
	ID       string
	Mode     string
	Recorder Recorder
	Logger   *zap.Logger
	// OnPly is called after every applied ply with the position it produced.
	OnPly func(ply PlyRecord, pos *rules.Position)
	Now   func() time.Time
}

// Controller owns the position and the ply history. It is not safe for concurrent use.
type Controller struct {
	rules   Rules
	id      string
	mode    string
	pos     *rules.Position
	history []PlyRecord
	sources [2]MoveSource
	outcome Outcome

	recorder  Recorder
	logger    *zap.Logger
	onPly     func(PlyRecord, *rules.Position)
	now       func() time.Time
	startedAt time.Time
}

func NewController(r Rules, start *rules.Position, white, black MoveSource, cfg Config) (*Controller, error) {
	if r == nil {
		return nil, fmt.Errorf("rules adapter is required")
	}
	if start == nil {
		return nil, fmt.Errorf("start position is required")
	}
	if white == nil || black == nil {
		return nil, fmt.Errorf("both move sources are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	return &Controller{
		rules:     r,
		id:        cfg.ID,
		mode:      cfg.Mode,
		pos:       start,
		sources:   [2]MoveSource{white, black},
		recorder:  cfg.Recorder,
		logger:    cfg.Logger.With(zap.String("session_id", cfg.ID)),
		onPly:     cfg.OnPly,
		now:       cfg.Now,
		startedAt: cfg.Now(),
	}, nil
}

func (c *Controller) ID() string                { return c.id }
func (c *Controller) Position() *rules.Position { return c.pos }
func (c *Controller) Outcome() Outcome          { return c.outcome }
func (c *Controller) SideToMove() Side          { return c.pos.Turn() }

// History returns a copy of the applied plies.
func (c *Controller) History() []PlyRecord {
	return append([]PlyRecord(nil), c.history...)
}

func (c *Controller) source(side Side) MoveSource {
	if side == Second {
		return c.sources[1]
	}
	return c.sources[0]
}

// Run plays until the position is terminal or a source fails. A finished controller returns its
// outcome without consulting any source. Sources implementing io.Closer are closed on every exit.
func (c *Controller) Run(ctx context.Context) (Outcome, error) {
	if c.outcome.Finished() {
		return c.outcome, nil
	}
	defer c.closeSources()

	c.logger.Info("session_start", zap.String("mode", c.mode), zap.String("first", c.pos.Turn().String()))
	for {
		if t := c.rules.IsTerminal(c.pos); t.Over {
			c.finish(ctx, outcomeFromTermination(t))
			return c.outcome, nil
		}
		if err := ctx.Err(); err != nil {
			return Outcome{}, err
		}

		side := c.pos.Turn()
		src := c.source(side)
		mv, err := src.Propose(ctx, View{Position: c.pos, History: c.History(), Side: side})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Outcome{}, ctxErr
			}
			reason, ok := ReasonFor(err)
			if !ok {
				return Outcome{}, fmt.Errorf("%s move: %w", side, err)
			}
			c.logger.Warn("session_source_failure", zap.String("side", side.String()), zap.String("reason", string(reason)), zap.Error(err))
			c.finish(ctx, failureOutcome(reason, side))
			return c.outcome, nil
		}

		next, applied, err := c.rules.Apply(c.pos, mv)
		if err != nil {
			fr, ok := src.(FailureReasoner)
			if !ok {
				return Outcome{}, fmt.Errorf("apply %s move %s: %w", side, mv.UCI(), err)
			}
			c.logger.Warn("session_rejected_move", zap.String("side", side.String()), zap.String("uci", mv.UCI()), zap.Error(err))
			c.finish(ctx, failureOutcome(fr.FailureReason(), side))
			return c.outcome, nil
		}

		rec := PlyRecord{
			Index:    len(c.history),
			Side:     side,
			Move:     applied,
			UCI:      applied.UCI(),
			Notation: applied.SAN(),
			At:       c.now(),
		}
		c.pos = next
		c.history = append(c.history, rec)
		c.logger.Debug("session_ply", zap.Int("ply", rec.Index), zap.String("side", side.String()), zap.String("uci", rec.UCI), zap.String("san", rec.Notation))

		if err := c.notify(ctx, rec); err != nil {
			reason, ok := ReasonFor(err)
			if !ok {
				return Outcome{}, err
			}
			c.finish(ctx, failureOutcome(reason, side.Other()))
			return c.outcome, nil
		}
		if c.onPly != nil {
			c.onPly(rec, c.pos)
		}
	}
}

func (c *Controller) notify(ctx context.Context, rec PlyRecord) error {
	for _, src := range c.sources {
		obs, ok := src.(Observer)
		if !ok {
			continue
		}
		if err := obs.Observe(ctx, rec); err != nil {
			return fmt.Errorf("observe ply %d: %w", rec.Index, err)
		}
	}
	return nil
}

func (c *Controller) finish(ctx context.Context, o Outcome) {
	o.Plies = len(c.history)
	c.outcome = o
	c.logger.Info("session_end",
		zap.String("reason", string(o.Reason)),
		zap.String("result", o.Result()),
		zap.String("method", o.Method),
		zap.Int("plies", o.Plies),
	)
	if c.recorder == nil {
		return
	}
	res := Result{
		SessionID:  c.id,
		Mode:       c.mode,
		WhiteLabel: labelOf(c.sources[0]),
		BlackLabel: labelOf(c.sources[1]),
		Outcome:    o,
		History:    c.History(),
		StartedAt:  c.startedAt,
		EndedAt:    c.now(),
	}
	if err := c.recorder.SaveResult(context.WithoutCancel(ctx), res); err != nil {
		c.logger.Error("session_result_persist_error", zap.Error(err))
	}
}

func (c *Controller) closeSources() {
	for i, src := range c.sources {
		closer, ok := src.(io.Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil && !errors.Is(err, io.EOF) {
			c.logger.Warn("session_source_close_error", zap.Int("slot", i), zap.Error(err))
		}
	}
}

func labelOf(src MoveSource) string {
	if l, ok := src.(Labeler); ok {
		return l.Label()
	}
	return fmt.Sprintf("%T", src)
}

func outcomeFromTermination(t rules.Termination) Outcome {
	o := Outcome{Winner: t.Winner, Method: t.Method}
	switch t.Kind {
	case rules.Checkmate:
		o.Reason = ReasonCheckmate
	case rules.Stalemate:
		o.Reason = ReasonStalemate
	default:
		o.Reason = ReasonDraw
	}
	return o
}

func failureOutcome(reason Reason, failed Side) Outcome {
	o := Outcome{Reason: reason, FailedSide: failed}
	if reason == ReasonResigned {
		o.Winner = failed.Other()
	}
	return o
}
