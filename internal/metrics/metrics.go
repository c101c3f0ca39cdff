// Package metrics holds the process-wide Prometheus collectors. They
// register on the default registry, which the HTTP server exposes at
// /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "airbot"

var (
	// Labels: route
	turnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "turns_total",
		Help:      "Answered turns by route",
	}, []string{"route"})

	turnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "turn_duration_seconds",
		Help:      "End-to-end turn latency",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 60},
	})

	// Labels: path (extrema, daily_average, time_range, multi_point,
	// single_point, recent, fallback, closest, none)
	retrievalPaths = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "retrieval",
		Name:      "path_total",
		Help:      "Retrieval dispatch decisions by path",
	}, []string{"path"})

	retrievalDocuments = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "retrieval",
		Name:      "documents",
		Help:      "Documents returned per retrieval",
		Buckets:   []float64{0, 1, 2, 4, 8, 16, 32, 48},
	})

	fetchErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "fetch_errors_total",
		Help:      "Object fetches dropped after retries",
	})

	// Labels: purpose (intent, answer), status (ok, error)
	llmRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "llm",
		Name:      "requests_total",
		Help:      "LLM completions by purpose and status",
	}, []string{"purpose", "status"})

	// Labels: result (hit, miss)
	intentCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "router",
		Name:      "intent_cache_total",
		Help:      "Intent cache lookups",
	}, []string{"result"})

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "active",
		Help:      "Sessions held in the in-memory cache",
	})
)

func ObserveTurn(route string, d time.Duration) {
	turnsTotal.WithLabelValues(route).Inc()
	turnDuration.Observe(d.Seconds())
}

func ObserveRetrieval(path string, docs int) {
	retrievalPaths.WithLabelValues(path).Inc()
	retrievalDocuments.Observe(float64(docs))
}

func FetchError() {
	fetchErrors.Inc()
}

func LLMRequest(purpose string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	llmRequests.WithLabelValues(purpose, status).Inc()
}

func IntentCache(hit bool) {
	if hit {
		intentCache.WithLabelValues("hit").Inc()
		return
	}
	intentCache.WithLabelValues("miss").Inc()
}

func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}
