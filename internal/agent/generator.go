// Package agent asks a language model for a chess move and retries, with feedback, until the
// model names a legal one or the attempt budget runs out.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/park285/terminal-chess/internal/anthropic"
	"github.com/park285/terminal-chess/internal/msgcat"
	"github.com/park285/terminal-chess/internal/rules"
	"go.uber.org/zap"
)

// CompletionClient is the text-generation service.
type CompletionClient interface {
	Complete(ctx context.Context, req anthropic.Request) (anthropic.Response, error)
}

type Config struct {
	MaxAttempts int
	MaxTokens   int
	// MaxLen is the longest candidate accepted as notation; longer replies are not parsed.
	MaxLen  int
	Backoff time.Duration
}

func DefaultConfig() Config {
	return Config{MaxAttempts: 6, MaxTokens: 8, MaxLen: 5, Backoff: 250 * time.Millisecond}
}

type Generator struct {
	client  CompletionClient
	rules   *rules.Adapter
	catalog *msgcat.Catalog
	cfg     Config
	logger  *zap.Logger
	hook    AttemptHook
}

type Option func(*Generator)

func WithLogger(l *zap.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

func WithAttemptHook(h AttemptHook) Option {
	return func(g *Generator) { g.hook = h }
}

func NewGenerator(client CompletionClient, adapter *rules.Adapter, catalog *msgcat.Catalog, cfg Config, opts ...Option) *Generator {
	def := DefaultConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if cfg.MaxLen <= 0 {
		cfg.MaxLen = def.MaxLen
	}
	if cfg.Backoff < 0 {
		cfg.Backoff = 0
	}
	if adapter == nil {
		adapter = rules.New()
	}
	if catalog == nil {
		catalog = msgcat.Default()
	}
	g := &Generator{client: client, rules: adapter, catalog: catalog, cfg: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns a move legal in pos for side, or nil when every attempt failed. A provider
// failure is returned as *ProviderError. pos is never modified.
func (g *Generator) Generate(ctx context.Context, pos *rules.Position, side rules.Side, model string) (*rules.Move, error) {
	base, err := g.BasePrompt(pos, side)
	if err != nil {
		return nil, err
	}
	priming, err := g.catalog.Render("agent.prompt.priming", map[string]any{"MaxLen": g.cfg.MaxLen})
	if err != nil {
		return nil, err
	}

	var (
		feedback string
		rejected []string
	)
	for n := 1; n <= g.cfg.MaxAttempts; n++ {
		prompt := base + feedback
		resp, err := g.client.Complete(ctx, anthropic.Request{
			Model:     model,
			MaxTokens: g.cfg.MaxTokens,
			Messages: []anthropic.Message{
				{Role: "user", Content: prompt},
				{Role: "assistant", Content: priming},
			},
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if errors.Is(err, anthropic.ErrMalformedResponse) {
				// a malformed 200 reply is retried like a bad candidate
				cause := err
				feedback, err = g.retryFeedback("agent.feedback.error", "", cause, rejected)
				if err != nil {
					return nil, err
				}
				g.report(Attempt{Number: n, Model: model, Prompt: prompt, Kind: AttemptFailed, Err: cause, Rejected: rejected}, side)
				if n < g.cfg.MaxAttempts {
					if err := sleepWithContext(ctx, g.cfg.Backoff); err != nil {
						return nil, err
					}
				}
				continue
			}
			perr := &ProviderError{Model: model, Err: err}
			g.report(Attempt{Number: n, Model: model, Prompt: prompt, Kind: AttemptProviderFault, Err: perr, Rejected: rejected}, side)
			return nil, perr
		}

		text := strings.TrimSpace(resp.Text)
		if len(text) > g.cfg.MaxLen {
			feedback, err = g.catalog.Render("agent.feedback.too_long", map[string]any{
				"Text":   text,
				"Failed": strings.Join(rejected, ", "),
			})
			if err != nil {
				return nil, err
			}
			g.report(Attempt{Number: n, Model: model, Prompt: prompt, Text: text, Kind: AttemptFormatRejected, Rejected: rejected}, side)
			continue
		}

		var (
			mv       rules.Move
			parseErr error
		)
		if text == "" {
			parseErr = errEmptyResponse
		} else {
			mv, parseErr = g.rules.Parse(pos, text)
		}
		if parseErr == nil {
			g.report(Attempt{Number: n, Model: model, Prompt: prompt, Text: text, Kind: AttemptLegal, Rejected: rejected}, side)
			return &mv, nil
		}

		kind, key := AttemptFailed, "agent.feedback.error"
		if errors.Is(parseErr, rules.ErrIllegalMove) {
			kind, key = AttemptIllegal, "agent.feedback.illegal"
		}
		if text != "" {
			rejected = append(rejected, text)
		}
		feedback, err = g.retryFeedback(key, text, parseErr, rejected)
		if err != nil {
			return nil, err
		}
		g.report(Attempt{Number: n, Model: model, Prompt: prompt, Text: text, Kind: kind, Err: parseErr, Rejected: rejected}, side)
		if n < g.cfg.MaxAttempts {
			if err := sleepWithContext(ctx, g.cfg.Backoff); err != nil {
				return nil, err
			}
		}
	}

	g.report(Attempt{Number: g.cfg.MaxAttempts, Model: model, Kind: AttemptExhausted, Rejected: rejected}, side)
	return nil, nil
}

func (g *Generator) retryFeedback(key, text string, cause error, rejected []string) (string, error) {
	return g.catalog.Render(key, map[string]any{
		"Text":   text,
		"Reason": cause.Error(),
		"Failed": strings.Join(rejected, ", "),
	})
}

func (g *Generator) report(a Attempt, side rules.Side) {
	a.Rejected = append([]string(nil), a.Rejected...)
	fields := []zap.Field{
		zap.String("model", a.Model),
		zap.String("side", side.String()),
		zap.Int("attempt", a.Number),
		zap.String("kind", a.Kind.String()),
		zap.String("text", a.Text),
		zap.Int("rejected", len(a.Rejected)),
	}
	switch a.Kind {
	case AttemptLegal:
		g.logger.Debug("agent_attempt", fields...)
	case AttemptProviderFault:
		g.logger.Error("agent_attempt", append(fields, zap.Error(a.Err))...)
	default:
		g.logger.Info("agent_attempt", fields...)
	}
	if g.hook != nil {
		g.hook(a)
	}
}

// BasePrompt describes pos from side's point of view: its pieces, its own earlier moves, the
// last move played and the board.
func (g *Generator) BasePrompt(pos *rules.Position, side rules.Side) (string, error) {
	var b strings.Builder
	render := func(key string, data any) error {
		s, err := g.catalog.Render(key, data)
		if err != nil {
			return err
		}
		b.WriteString(s)
		return nil
	}

	if err := render("agent.prompt.side", map[string]any{"Side": side.String()}); err != nil {
		return "", err
	}
	if pieces := formatPieces(g.rules.SquaresOf(pos, side)); pieces != "" {
		if err := render("agent.prompt.pieces", map[string]any{"Pieces": pieces}); err != nil {
			return "", err
		}
	}

	history := g.rules.MoveHistory(pos)
	if len(history) == 0 {
		if err := render("agent.prompt.first_move", nil); err != nil {
			return "", err
		}
	} else {
		if own := ownMoves(history, pos.Turn(), side); own != "" {
			if err := render("agent.prompt.history", map[string]any{"Moves": own}); err != nil {
				return "", err
			}
		}
		if err := render("agent.prompt.last_move", map[string]any{"Last": history[len(history)-1].SAN()}); err != nil {
			return "", err
		}
	}

	if err := render("agent.prompt.board", map[string]any{"Board": g.rules.Render(pos)}); err != nil {
		return "", err
	}
	if err := render("agent.prompt.instruction", nil); err != nil {
		return "", err
	}
	return b.String(), nil
}

// formatPieces renders "B: c1, f1; K: e1; ..." with symbols and squares sorted.
func formatPieces(bySymbol map[string][]string) string {
	symbols := make([]string, 0, len(bySymbol))
	for s := range bySymbol {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	parts := make([]string, 0, len(symbols))
	for _, s := range symbols {
		parts = append(parts, fmt.Sprintf("%s: %s", s, strings.Join(bySymbol[s], ", ")))
	}
	return strings.Join(parts, "; ")
}

// ownMoves lists the moves side made, numbered from 1. The last move in history was made by the
// side not to move, so parity is counted back from the end.
func ownMoves(history []rules.Move, toMove, side rules.Side) string {
	var parts []string
	n := len(history)
	for i, mv := range history {
		mover := toMove
		if (n-i)%2 == 1 {
			mover = toMove.Other()
		}
		if mover != side {
			continue
		}
		parts = append(parts, fmt.Sprintf("%d. %s", len(parts)+1, mv.SAN()))
	}
	return strings.Join(parts, ", ")
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
