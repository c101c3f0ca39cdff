package retrieval

import (
	"context"
	"sort"
	"time"

	"github.com/sandevgo/airbot/internal/core"
	"github.com/sandevgo/airbot/internal/sensor/keyspace"
	"github.com/sandevgo/airbot/internal/sensor/scoring"
	"github.com/sandevgo/airbot/pkg/log"
)

// kindsFor picks the partitions a scan walks for a granularity.
func kindsFor(gran core.Granularity) []string {
	switch gran {
	case core.GranularityMinute:
		return []string{keyspace.KindMinAvg, keyspace.KindMinTrend}
	case core.GranularityHour:
		return []string{keyspace.KindHourAvg, keyspace.KindHourTrend}
	}
	return []string{keyspace.KindHourAvg, keyspace.KindMinAvg}
}

// candidates lists up to limit objects for a scored scan: the query's own
// day when it names one, else today walking back FallbackLookbackDays.
func (r *Retriever) candidates(ctx context.Context, q *scoring.Query, limit int) ([]core.ObjectInfo, error) {
	kinds := kindsFor(q.Granularity)

	var days []time.Time
	if date, ok := r.extractor.ResolveDate(q.Text); ok {
		days = []time.Time{date}
	} else {
		today := dayStart(r.extractor.Now())
		for d := 0; d < max(1, r.cfg.FallbackLookbackDays); d++ {
			days = append(days, today.AddDate(0, 0, -d))
		}
	}

	var out []core.ObjectInfo
	for _, day := range days {
		for _, kind := range kinds {
			budget := limit - len(out)
			if budget <= 0 {
				return out, nil
			}
			objs, err := r.list(ctx, keyspace.DayPrefix(kind, day), budget)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				log.FromCtx(ctx).Warn().Err(err).Str("kind", kind).Time("day", day).Msg("scan listing failed")
				continue
			}
			out = append(out, objs...)
		}
	}
	return out, nil
}

// scoreAll fetches and scores objs. The order is score descending, then
// key ascending.
func (r *Retriever) scoreAll(ctx context.Context, q *scoring.Query, objs []core.ObjectInfo) ([]core.SensorDocument, error) {
	docs, err := r.fetchAll(ctx, objs)
	if err != nil {
		return nil, err
	}
	for i := range docs {
		docs[i].Score = q.Score(docs[i].RawText, docs[i].ID, docs[i].Schema)
	}
	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].Score != docs[j].Score {
			return docs[i].Score > docs[j].Score
		}
		return docs[i].ID < docs[j].ID
	})
	return docs, nil
}

// fallback is the scored prefix scan. With nothing to scan it tries a
// closest match around the query's time, or now.
func (r *Retriever) fallback(ctx context.Context, query string, s *core.Session) (*Result, error) {
	q := r.scorer.Prepare(query)
	objs, err := r.candidates(ctx, q, r.cfg.MaxFilesToScan)
	if err != nil {
		return nil, err
	}
	docs, err := r.scoreAll(ctx, q, objs)
	if err != nil {
		return nil, err
	}
	if k := r.cfg.TopK; k > 0 && len(docs) > k {
		docs = docs[:k]
	}

	if len(docs) > 0 {
		if rows := rowsOf(docs[0]); len(rows) > 0 {
			setWindow(s, windowOf("fallback", rows[0].Timestamp, rows[len(rows)-1].Timestamp, rows, ""))
		}
		return &Result{Path: PathFallback, Documents: docs}, nil
	}

	target := r.extractor.Now()
	if q.HasTarget {
		target = q.Target
	}
	m, err := r.locator.LocateClosest(ctx, target, q.Granularity)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.FromCtx(ctx).Warn().Err(err).Msg("closest fallback failed")
	}
	if m == nil {
		return &Result{Path: PathFallback}, nil
	}
	doc := document(m.Key, m.Data, m.Size)
	doc.Score = q.Score(doc.RawText, doc.ID, doc.Schema)
	if !m.Exact() {
		doc.Note = closestNote(m)
	}
	setWindow(s, windowOf("closest", m.Actual, m.Actual, rowsOf(doc), ""))
	return &Result{Path: PathClosest, Documents: []core.SensorDocument{doc}}, nil
}

var probeSchemas = map[core.Schema]bool{
	core.SchemaRawList: true,
	core.SchemaMinAvg:  true,
	core.SchemaHourAvg: true,
}

// Probe samples a few scan candidates and reports whether any looks like
// relevant sensor data. The router uses it to settle uncertain intents.
func (r *Retriever) Probe(ctx context.Context, query string) (bool, error) {
	q := r.scorer.Prepare(query)
	objs, err := r.candidates(ctx, q, max(1, r.cfg.ProbeSample))
	if err != nil {
		return false, err
	}
	docs, err := r.scoreAll(ctx, q, objs)
	if err != nil {
		return false, err
	}
	for _, d := range docs {
		if d.Score >= r.cfg.RelevanceThreshold && probeSchemas[d.Schema] {
			return true, nil
		}
	}
	return false, nil
}
