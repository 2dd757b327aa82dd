// Package config loads the environment configuration shared by both binaries.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type AppConfig struct {
	// Agent
	AnthropicAPIKey  string        `env:"ANTHROPIC_API_KEY"`
	AnthropicBaseURL string        `env:"ANTHROPIC_BASE_URL" envDefault:"https://api.anthropic.com"`
	Model            string        `env:"MODEL"`
	SecondaryModel   string        `env:"SECONDARY_MODEL"`
	AgentMaxAttempts int           `env:"AGENT_MAX_ATTEMPTS" envDefault:"6"`
	AgentMaxTokens   int           `env:"AGENT_MAX_TOKENS" envDefault:"8"`
	AgentBackoff     time.Duration `env:"AGENT_BACKOFF" envDefault:"250ms"`
	AgentTimeout     time.Duration `env:"AGENT_TIMEOUT" envDefault:"30s"`

	// Peer client
	MatchfinderURL     string        `env:"MATCHFINDER_URL" envDefault:"ws://localhost:8080"`
	PeerReceiveTimeout time.Duration `env:"PEER_RECEIVE_TIMEOUT" envDefault:"0s"`

	// Matchfinder server
	ListenAddr           string        `env:"LISTEN_ADDR" envDefault:":8080"`
	QuickplayMoveTimeout time.Duration `env:"QUICKPLAY_MOVE_TIMEOUT" envDefault:"60s"`

	// Storage, both optional
	RedisURL    string `env:"REDIS_URL"`
	DatabaseURL string `env:"DATABASE_URL"`

	MessagesDir string `env:"MESSAGES_DIR"`
}

// Load reads the environment. Mode-specific requirements are checked by the Require* methods.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.AnthropicAPIKey = strings.TrimSpace(cfg.AnthropicAPIKey)
	cfg.Model = strings.TrimSpace(cfg.Model)
	cfg.SecondaryModel = strings.TrimSpace(cfg.SecondaryModel)

	if cfg.AgentMaxAttempts <= 0 {
		return nil, errors.New("AGENT_MAX_ATTEMPTS must be positive")
	}
	if cfg.AgentMaxTokens <= 0 {
		return nil, errors.New("AGENT_MAX_TOKENS must be positive")
	}
	if cfg.PeerReceiveTimeout < 0 || cfg.QuickplayMoveTimeout < 0 || cfg.AgentBackoff < 0 {
		return nil, errors.New("durations must not be negative")
	}
	return cfg, nil
}

// RequireAgent checks what the agent modes need.
func (c *AppConfig) RequireAgent() error {
	if c.AnthropicAPIKey == "" {
		return errors.New("ANTHROPIC_API_KEY is required")
	}
	if c.Model == "" {
		return errors.New("MODEL is required")
	}
	return nil
}

// RequirePeer checks what online play needs.
func (c *AppConfig) RequirePeer() error {
	u := strings.TrimSpace(c.MatchfinderURL)
	if u == "" {
		return errors.New("MATCHFINDER_URL is required")
	}
	if !strings.HasPrefix(u, "ws://") && !strings.HasPrefix(u, "wss://") {
		return fmt.Errorf("MATCHFINDER_URL must be a ws:// or wss:// URL: %q", u)
	}
	return nil
}

// OpponentModel is the model for the second agent in spectate mode.
func (c *AppConfig) OpponentModel() string {
	if c.SecondaryModel != "" {
		return c.SecondaryModel
	}
	return c.Model
}
