package config

import (
	"context"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/airbot/pkg/log"
)

type StoreConfig struct {
	// fs | gcs | memory
	Backend         string `env:"STORE_BACKEND" envDefault:"fs"`
	Root            string `env:"STORE_ROOT" envDefault:"./data"`
	Bucket          string `env:"STORE_BUCKET"`
	CredentialsFile string `env:"GCS_CREDENTIALS_FILE"`

	// Chat logs and session blobs may live in a different bucket.
	LogBackend string `env:"CHATLOG_BACKEND"`
	LogRoot    string `env:"CHATLOG_ROOT"`
	LogBucket  string `env:"CHATLOG_BUCKET"`

	ChatlogPrefix string `env:"CHATLOG_PREFIX" envDefault:"chatlogs/"`
	SessionPrefix string `env:"SESSION_PREFIX" envDefault:"sessions/"`

	// Objects above this size are read with a bounded range fetch.
	MaxFileSize  int64 `env:"MAX_FILE_SIZE" envDefault:"1048576"`
	FetchRetries int   `env:"FETCH_RETRIES" envDefault:"2"`
}

func NewStoreConfig(ctx context.Context) *StoreConfig {
	c := &StoreConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Store config")
	}
	return c
}

// ForLogs returns the settings of the chat-log store, inheriting the
// sensor store's where unset.
func (c StoreConfig) ForLogs() StoreConfig {
	out := c
	if c.LogBackend != "" {
		out.Backend = c.LogBackend
	}
	if c.LogRoot != "" {
		out.Root = c.LogRoot
	}
	if c.LogBucket != "" {
		out.Bucket = c.LogBucket
	}
	return out
}
