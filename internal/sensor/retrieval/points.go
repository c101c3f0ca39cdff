package retrieval

import (
	"context"
	"fmt"
	"time"

	"github.com/sandevgo/airbot/internal/core"
	"github.com/sandevgo/airbot/internal/sensor/keyspace"
	"github.com/sandevgo/airbot/internal/sensor/timeparse"
	"github.com/sandevgo/airbot/internal/service/followup"
	"github.com/sandevgo/airbot/pkg/log"
	"golang.org/x/sync/errgroup"
)

// point is one resolved timestamp. ok is false when neither the exact
// file nor a closest match exists and doc is an explanatory entry.
type point struct {
	doc    core.SensorDocument
	actual time.Time
	ok     bool
}

// resolvePoint tries the exact file first, then the closest match,
// reporting any substitution in the document note.
func (r *Retriever) resolvePoint(ctx context.Context, t time.Time, gran core.Granularity) (point, error) {
	logger := log.FromCtx(ctx)

	key, ok, err := r.locator.Locate(ctx, t, gran)
	switch {
	case err != nil && ctx.Err() != nil:
		return point{}, ctx.Err()
	case err != nil:
		logger.Warn().Err(err).Time("target", t).Msg("exact lookup failed")
	case ok:
		doc, err := r.fetch(ctx, key, 0)
		if err == nil {
			actual, _ := keyspace.FileStamp(key)
			return point{doc: doc, actual: actual, ok: true}, nil
		}
		if ctx.Err() != nil {
			return point{}, ctx.Err()
		}
		logger.Warn().Err(err).Str("key", key).Msg("exact file unreadable, trying closest")
	}

	m, err := r.locator.LocateClosest(ctx, t, gran)
	if err != nil {
		if ctx.Err() != nil {
			return point{}, ctx.Err()
		}
		logger.Warn().Err(err).Time("target", t).Msg("closest lookup failed")
	}
	if m == nil {
		return point{
			doc: core.SensorDocument{
				Schema:  core.SchemaNone,
				RawText: fmt.Sprintf("%s 센서 데이터 없음: 요청하신 시간대의 데이터를 찾을 수 없습니다.", t.Format(core.TimeLayout)),
			},
			actual: t,
		}, nil
	}

	doc := document(m.Key, m.Data, m.Size)
	if !m.Exact() {
		doc.Note = closestNote(m)
	}
	return point{doc: doc, actual: m.Actual, ok: true}, nil
}

func closestNote(m *keyspace.Match) string {
	return fmt.Sprintf("요청하신 %s 데이터가 없어 가장 가까운 %s 데이터를 사용합니다 (%d분 차이).",
		m.Requested.Format(core.TimeLayout), m.Actual.Format(core.TimeLayout), m.DeltaMinutes())
}

func (r *Retriever) singlePoint(ctx context.Context, c timeparse.Candidate, gran core.Granularity, s *core.Session) (*Result, error) {
	p, err := r.resolvePoint(ctx, c.Time, pointGranularity(c, gran))
	if err != nil {
		return nil, err
	}
	r.remember(s, func(m *followup.Manager, s *core.Session) {
		m.SetContext(s, core.FollowupSingleTime, followup.TimeData(c.Time))
	})

	res := &Result{Path: PathSinglePoint, Documents: []core.SensorDocument{p.doc}, NoData: !p.ok}
	if p.ok {
		setWindow(s, windowOf("point", p.actual, p.actual, rowsOf(p.doc), c.Text))
	}
	return res, nil
}

// multiPoint resolves every candidate independently. Documents follow
// the order the times appear in the query.
func (r *Retriever) multiPoint(ctx context.Context, cands []timeparse.Candidate, gran core.Granularity, s *core.Session) (*Result, error) {
	points := make([]point, len(cands))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, r.cfg.MaxWorkers))
	for i, c := range cands {
		g.Go(func() error {
			p, err := r.resolvePoint(gctx, c.Time, pointGranularity(c, gran))
			points[i] = p
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{Path: PathMultiPoint, NoData: true}
	var rows []core.SensorRow
	for _, p := range points {
		res.Documents = append(res.Documents, p.doc)
		if p.ok {
			res.NoData = false
			rows = append(rows, rowsOf(p.doc)...)
		}
	}

	last := cands[len(cands)-1]
	r.remember(s, func(m *followup.Manager, s *core.Session) {
		m.SetContext(s, core.FollowupSingleTime, followup.TimeData(last.Time))
		m.SetTimestamp(s, last.Time)
	})
	if !res.NoData {
		setWindow(s, windowOf("multi", cands[0].Time, last.Time, rows, ""))
	}
	return res, nil
}

// recent serves "지금", "최근" and "N분 전" style questions from the file
// closest to the resolved instant.
func (r *Retriever) recent(ctx context.Context, q string, gran core.Granularity, s *core.Session) (*Result, error) {
	now := r.extractor.Now()
	target := now
	off, hasOffset := timeparse.RelativeOffset(q)
	if hasOffset {
		target = off.Apply(now)
	}

	m, err := r.locator.LocateClosest(ctx, target, gran)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.FromCtx(ctx).Warn().Err(err).Time("target", target).Msg("recent lookup failed")
	}
	if m == nil {
		res := noData(fmt.Sprintf("%s 부근의 센서 데이터를 찾을 수 없습니다.", target.Format(core.TimeLayout)))
		res.Path = PathRecent
		return res, nil
	}

	doc := document(m.Key, m.Data, m.Size)
	switch {
	case hasOffset && !m.Exact():
		doc.Note = closestNote(m)
	case !m.Exact():
		doc.Note = fmt.Sprintf("가장 최근 데이터 시각: %s (현재와 %d분 차이).", m.Actual.Format(core.TimeLayout), m.DeltaMinutes())
	}

	r.remember(s, func(fm *followup.Manager, s *core.Session) {
		fm.SetTimestamp(s, m.Actual)
		fm.SetContext(s, core.FollowupSingleTime, followup.TimeData(m.Actual))
	})
	setWindow(s, windowOf("recent", m.Actual, m.Actual, rowsOf(doc), ""))
	return &Result{Path: PathRecent, Documents: []core.SensorDocument{doc}}, nil
}
