package main

import (
	"testing"

	"github.com/sandevgo/airbot/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderEnv(t *testing.T) {
	out, err := renderEnv(
		&config.RetrievalConfig{TopK: 8, ContextLimitChars: 100000, BareHourDate: "reject"},
		&config.StoreConfig{Backend: "gcs", Bucket: "sensors"},
	)
	require.NoError(t, err)
	assert.Contains(t, out, "TOP_K=8\n")
	assert.Contains(t, out, "CONTEXT_LIMIT_CHARS=100000\n")
	assert.Contains(t, out, "BARE_HOUR_DATE=reject\n")
	assert.Contains(t, out, "STORE_BACKEND=gcs\n")
	assert.Contains(t, out, "STORE_BUCKET=sensors\n")
	assert.NotContains(t, out, "MAX_WORKERS")
}
