package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(turnsTotal.WithLabelValues("sensor"))
	ObserveTurn("sensor", 120*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(turnsTotal.WithLabelValues("sensor")))

	errBefore := testutil.ToFloat64(llmRequests.WithLabelValues("answer", "error"))
	LLMRequest("answer", errors.New("boom"))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(llmRequests.WithLabelValues("answer", "error")))

	hitBefore := testutil.ToFloat64(intentCache.WithLabelValues("hit"))
	IntentCache(true)
	assert.Equal(t, hitBefore+1, testutil.ToFloat64(intentCache.WithLabelValues("hit")))

	SetActiveSessions(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(activeSessions))
}
