package config

import (
	"context"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/airbot/pkg/log"
)

type RetrievalConfig struct {
	TopK              int `env:"TOP_K" envDefault:"8"`
	ContextLimitChars int `env:"CONTEXT_LIMIT_CHARS" envDefault:"100000"`
	MaxFilesToScan    int `env:"MAX_FILES_TO_SCAN" envDefault:"200"`
	MaxWorkers        int `env:"MAX_WORKERS" envDefault:"10"`
	// Evidence probe gate.
	RelevanceThreshold int `env:"RELEVANCE_THRESHOLD" envDefault:"1"`
	ProbeSample        int `env:"PROBE_SAMPLE" envDefault:"6"`

	ClosestRadiusHours   int `env:"CLOSEST_RADIUS_HOURS" envDefault:"72"`
	ClosestListLimit     int `env:"CLOSEST_LIST_LIMIT" envDefault:"200"`
	MaxRangeHours        int `env:"MAX_RANGE_HOURS" envDefault:"48"`
	FallbackLookbackDays int `env:"FALLBACK_LOOKBACK_DAYS" envDefault:"3"`

	// reject | today
	BareHourDate string `env:"BARE_HOUR_DATE" envDefault:"reject"`
}

func NewRetrievalConfig(ctx context.Context) *RetrievalConfig {
	c := &RetrievalConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Retrieval config")
	}
	return c
}

// DefaultRetrievalConfig mirrors the envDefault tags.
func DefaultRetrievalConfig() *RetrievalConfig {
	c := &RetrievalConfig{}
	_ = env.Parse(c)
	return c
}
