// Package retrieval turns a sensor question into a bounded context of
// documents. Dispatch runs from the most specific request shape to the
// least: extrema, daily average, time range, multiple points, a single
// point, recency, then a scored prefix scan.
package retrieval

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/sandevgo/airbot/internal/config"
	"github.com/sandevgo/airbot/internal/core"
	"github.com/sandevgo/airbot/internal/metrics"
	"github.com/sandevgo/airbot/internal/sensor/intent"
	"github.com/sandevgo/airbot/internal/sensor/keyspace"
	"github.com/sandevgo/airbot/internal/sensor/scoring"
	"github.com/sandevgo/airbot/internal/sensor/timeparse"
	"github.com/sandevgo/airbot/internal/service/followup"
	"github.com/sandevgo/airbot/pkg/log"
)

// ErrNoSession is returned when Retrieve has no session to record
// follow-up state in.
var ErrNoSession = errors.New("retrieval needs a session")

type Path string

const (
	PathExtrema      Path = "extrema"
	PathDailyAverage Path = "daily_average"
	PathTimeRange    Path = "time_range"
	PathMultiPoint   Path = "multi_point"
	PathSinglePoint  Path = "single_point"
	PathRecent       Path = "recent"
	PathFallback     Path = "fallback"
	PathClosest      Path = "closest"
)

type Result struct {
	Path      Path
	Documents []core.SensorDocument
	Context   string
	// NoData is set when a targeted lookup found nothing. Documents then
	// holds a single explanatory entry.
	NoData bool

	preamble string
}

// Empty reports that nothing at all was found, not even a sentinel.
func (r *Result) Empty() bool {
	return r == nil || len(r.Documents) == 0
}

type Retriever struct {
	store        core.ObjectStore
	locator      *keyspace.Locator
	extractor    *timeparse.Extractor
	scorer       *scoring.Scorer
	followup     *followup.Manager
	cfg          *config.RetrievalConfig
	maxFileBytes int64
}

func New(
	store core.ObjectStore,
	extractor *timeparse.Extractor,
	fm *followup.Manager,
	cfg *config.RetrievalConfig,
	maxFileBytes int64,
) *Retriever {
	return &Retriever{
		store:        store,
		locator:      keyspace.NewLocator(store, cfg.ClosestRadiusHours, cfg.ClosestListLimit, maxFileBytes),
		extractor:    extractor,
		scorer:       scoring.New(extractor),
		followup:     fm,
		cfg:          cfg,
		maxFileBytes: maxFileBytes,
	}
}

// Retrieve answers one query. s receives follow-up frames and the last
// sensor window. The same query against the same store yields the same
// documents in the same order.
func (r *Retriever) Retrieve(ctx context.Context, query string, s *core.Session) (*Result, error) {
	if s == nil {
		return nil, ErrNoSession
	}
	start := time.Now()
	res, err := r.dispatch(ctx, strings.TrimSpace(query), s)
	if err != nil {
		return nil, err
	}
	for i := range res.Documents {
		res.Documents[i].Tag = tag(i)
	}
	res.Context = r.assemble(res.preamble, res.Documents)
	metrics.ObserveRetrieval(string(res.Path), len(res.Documents))

	log.FromCtx(ctx).Debug().
		Str("path", string(res.Path)).
		Int("docs", len(res.Documents)).
		Bool("no_data", res.NoData).
		Int("context_chars", len([]rune(res.Context))).
		Dur("took", time.Since(start)).
		Msg("retrieval finished")
	return res, nil
}

func (r *Retriever) dispatch(ctx context.Context, q string, s *core.Session) (*Result, error) {
	cands := r.extractor.Extract(q)
	gran := r.extractor.Granularity(q)
	hasClock := gran == core.GranularityMinute || gran == core.GranularityHour
	date, hasDate := r.extractor.ResolveDate(q)

	if ex, ok := intent.DetectExtrema(q); ok && hasDate && !hasClock {
		return r.extrema(ctx, ex, date, s)
	}
	if intent.IsDailyAverage(q, hasClock, hasDate) {
		if !hasDate {
			date = dayStart(r.extractor.Now())
		}
		return r.dailyAverage(ctx, date, s)
	}
	if rng, ok := r.extractor.DetectRange(q, cands); ok {
		return r.timeRange(ctx, rng, s)
	}

	var points []timeparse.Candidate
	for _, c := range cands {
		if c.HasClock {
			points = append(points, c)
		}
	}
	switch {
	case len(points) >= 2:
		return r.multiPoint(ctx, points, gran, s)
	case len(points) == 1:
		return r.singlePoint(ctx, points[0], gran, s)
	case timeparse.IsRecent(q):
		return r.recent(ctx, q, gran, s)
	}
	return r.fallback(ctx, q, s)
}

func tag(i int) string {
	return "D" + strconv.Itoa(i+1)
}

func dayStart(t time.Time) time.Time {
	t = t.In(core.KST)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, core.KST)
}

// pointGranularity keeps minute lookups for minute queries and for any
// candidate that is not on the hour.
func pointGranularity(c timeparse.Candidate, gran core.Granularity) core.Granularity {
	if gran == core.GranularityMinute || c.Time.Minute() != 0 {
		return core.GranularityMinute
	}
	return core.GranularityHour
}

// remember applies follow-up bookkeeping when a manager is wired.
func (r *Retriever) remember(s *core.Session, fn func(m *followup.Manager, s *core.Session)) {
	if r.followup != nil {
		fn(r.followup, s)
	}
}

func setWindow(s *core.Session, w *core.SensorWindow) {
	if w != nil {
		s.LastSensorWindow = w
	}
}
