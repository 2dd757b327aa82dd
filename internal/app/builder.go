// Package app wires configuration into the collaborators a session needs.
package app

import (
	"errors"
	"fmt"

	"github.com/park285/terminal-chess/internal/agent"
	"github.com/park285/terminal-chess/internal/anthropic"
	"github.com/park285/terminal-chess/internal/archive"
	"github.com/park285/terminal-chess/internal/boardimg"
	"github.com/park285/terminal-chess/internal/config"
	"github.com/park285/terminal-chess/internal/msgcat"
	"github.com/park285/terminal-chess/internal/player"
	"github.com/park285/terminal-chess/internal/rules"
	"github.com/park285/terminal-chess/internal/session"
	"go.uber.org/zap"
)

type Deps struct {
	Config    *config.AppConfig
	Logger    *zap.Logger
	Catalog   *msgcat.Catalog
	Adapter   *rules.Adapter
	Generator player.Generator
	Archive   *archive.Repository
	Renderer  *boardimg.Renderer
}

// Needs selects the optional collaborators a mode uses.
type Needs struct {
	Agent bool
}

func New(cfg *config.AppConfig, logger *zap.Logger, needs Needs) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	catalog, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	adapter := rules.New()
	d := &Deps{
		Config:   cfg,
		Logger:   logger,
		Catalog:  catalog,
		Adapter:  adapter,
		Renderer: boardimg.NewRenderer(adapter),
	}

	if needs.Agent {
		if err := cfg.RequireAgent(); err != nil {
			return nil, err
		}
		client := anthropic.NewClient(cfg.AnthropicAPIKey,
			anthropic.WithBaseURL(cfg.AnthropicBaseURL),
			anthropic.WithTimeout(cfg.AgentTimeout),
			// provider faults end the session; only candidate moves are retried
			anthropic.WithRetry(1),
		)
		d.Generator = agent.NewGenerator(client, adapter, catalog, agent.Config{
			MaxAttempts: cfg.AgentMaxAttempts,
			MaxTokens:   cfg.AgentMaxTokens,
			MaxLen:      agent.DefaultConfig().MaxLen,
			Backoff:     cfg.AgentBackoff,
		}, agent.WithLogger(logger))
	}

	// Archive is optional: an unreachable database only costs the record.
	if cfg.DatabaseURL != "" {
		repo, err := archive.NewRepository(cfg.DatabaseURL, logger)
		if err != nil {
			logger.Warn("archive_unavailable", zap.Error(err))
		} else {
			d.Archive = repo
		}
	}
	return d, nil
}

// Recorder returns the archive as a session.Recorder, or nil when none is configured.
func (d *Deps) Recorder() session.Recorder {
	if d.Archive == nil {
		return nil
	}
	return d.Archive
}

func (d *Deps) Close() error {
	var errs []error
	if d.Archive != nil {
		errs = append(errs, d.Archive.Close())
	}
	_ = d.Logger.Sync()
	return errors.Join(errs...)
}
