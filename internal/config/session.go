package config

import (
	"context"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/airbot/pkg/log"
)

type SessionConfig struct {
	Timeout         time.Duration `env:"SESSION_TIMEOUT" envDefault:"1h"`
	MaxHistoryTurns int           `env:"MAX_HISTORY_TURNS" envDefault:"50"`
	// Turns rendered into prompts.
	PromptHistoryTurns int           `env:"PROMPT_HISTORY_TURNS" envDefault:"5"`
	JanitorInterval    time.Duration `env:"SESSION_JANITOR_INTERVAL" envDefault:"5m"`
}

func NewSessionConfig(ctx context.Context) *SessionConfig {
	c := &SessionConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Session config")
	}
	return c
}
