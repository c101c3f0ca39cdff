package retrieval

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sandevgo/airbot/internal/core"
	"github.com/sandevgo/airbot/internal/sensor/intent"
	"github.com/sandevgo/airbot/internal/sensor/keyspace"
	"github.com/sandevgo/airbot/internal/sensor/schema"
	"github.com/sandevgo/airbot/internal/sensor/timeparse"
	"github.com/sandevgo/airbot/internal/service/followup"
	"github.com/sandevgo/airbot/pkg/log"
	"golang.org/x/sync/errgroup"
)

const dateLayout = "2006-01-02"

// extrema scans the day's raw and minute files for the highest or lowest
// reading. Ties go to the earliest reading.
func (r *Retriever) extrema(ctx context.Context, ex intent.Extrema, date time.Time, s *core.Session) (*Result, error) {
	objs, err := r.listDays(ctx, date, keyspace.KindRaw, keyspace.KindMinAvg)
	if err != nil {
		return nil, err
	}
	docs, err := r.fetchAll(ctx, objs)
	if err != nil {
		return nil, err
	}

	var (
		bestDoc = -1
		bestRow core.SensorRow
		bestV   float64
	)
	for i, d := range docs {
		for _, row := range rowsOf(d) {
			v, ok := row.Value(ex.Field)
			if !ok {
				continue
			}
			better := bestDoc < 0 ||
				(ex.Max && v > bestV) || (!ex.Max && v < bestV) ||
				(v == bestV && row.Timestamp.Before(bestRow.Timestamp))
			if better {
				bestDoc, bestRow, bestV = i, row, v
			}
		}
	}

	if bestDoc < 0 {
		res := noData(fmt.Sprintf("%s의 %s 데이터를 찾을 수 없습니다.", date.Format(dateLayout), ex.Field.Korean()))
		res.Path = PathExtrema
		return res, nil
	}

	word := "최저"
	if ex.Max {
		word = "최고"
	}
	doc := docs[bestDoc]
	doc.Note = fmt.Sprintf("%s %s %s: %s (%s)", date.Format(dateLayout), ex.Field.Korean(), word,
		formatValue(bestV), bestRow.Timestamp.Format(core.TimeLayout))

	at := bestRow.Timestamp
	r.remember(s, func(m *followup.Manager, s *core.Session) {
		m.SetContext(s, core.FollowupSingleTime, followup.TimeData(at))
		m.SetTimestamp(s, at)
	})
	setWindow(s, windowOf("extrema", at, at, []core.SensorRow{bestRow}, doc.Note))
	return &Result{Path: PathExtrema, Documents: []core.SensorDocument{doc}}, nil
}

// dailyAverage folds the day's hourly files into one synthetic document
// with per-field stats, a trend and the hourly values.
func (r *Retriever) dailyAverage(ctx context.Context, date time.Time, s *core.Session) (*Result, error) {
	r.remember(s, func(m *followup.Manager, s *core.Session) {
		m.SetContext(s, core.FollowupDailyAverage, followup.DateData(date))
	})

	objs, err := r.listDays(ctx, date, keyspace.KindHourAvg)
	if err != nil {
		return nil, err
	}
	docs, err := r.fetchAll(ctx, objs)
	if err != nil {
		return nil, err
	}
	rows := rowsOfAll(docs)
	if len(rows) == 0 {
		res := noData(fmt.Sprintf("%s 하루 평균을 계산할 시간별 데이터가 없습니다.", date.Format(dateLayout)))
		res.Path = PathDailyAverage
		return res, nil
	}

	var size int64
	for _, d := range docs {
		size += d.FileSize
	}
	doc := core.SensorDocument{
		ID:       keyspace.DayPrefix(keyspace.KindHourAvg, date),
		RawText:  dailySummary(date, rows, len(docs)),
		Schema:   core.SchemaHourAvg,
		FileSize: size,
	}
	end := date.Add(24*time.Hour - time.Minute)
	setWindow(s, windowOf("daily", date, end, rows, date.Format(dateLayout)))
	return &Result{Path: PathDailyAverage, Documents: []core.SensorDocument{doc}}, nil
}

func dailySummary(date time.Time, rows []core.SensorRow, files int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s 하루 집계 (시간별 평균 파일 %d개, %s~%s)\n",
		date.Format(dateLayout), files, rows[0].Timestamp.Format("15시"), rows[len(rows)-1].Timestamp.Format("15시"))

	stats := schema.ComputeStats(rows)
	for _, f := range core.Fields {
		st, ok := stats[f]
		if !ok {
			continue
		}
		rate, label := schema.Trend(st)
		fmt.Fprintf(&b, "%s: 평균 %.2f, 최저 %s (%s), 최고 %s (%s), 추이 %s (%+.1f%%)\n",
			f.Korean(), st.Avg,
			formatValue(st.Min), st.MinAt.Format("15시"),
			formatValue(st.Max), st.MaxAt.Format("15시"),
			label, rate)
	}

	b.WriteString("시간별 값:\n")
	for _, row := range rows {
		b.WriteString(row.Timestamp.Format("15시"))
		for _, f := range core.Fields {
			if v, ok := row.Value(f); ok {
				fmt.Fprintf(&b, " %s %s", f.Korean(), formatValue(v))
			}
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

// timeRange locates every hour of the range at hour granularity and
// reports the hours that had no file.
func (r *Retriever) timeRange(ctx context.Context, rng timeparse.Range, s *core.Session) (*Result, error) {
	r.remember(s, func(m *followup.Manager, s *core.Session) {
		m.SetContext(s, core.FollowupTimeRange, followup.RangeData(rng.Start, rng.End))
	})

	logger := log.FromCtx(ctx)
	hours := rng.Hours(r.cfg.MaxRangeHours)
	slots := make([]*core.SensorDocument, len(hours))
	failed := make([]bool, len(hours))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, r.cfg.MaxWorkers))
	for i, h := range hours {
		g.Go(func() error {
			key, ok, err := r.locator.Locate(gctx, h, core.GranularityHour)
			if err == nil && ok {
				var doc core.SensorDocument
				if doc, err = r.fetch(gctx, key, 0); err == nil {
					slots[i] = &doc
				}
			}
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				logger.Warn().Err(err).Time("hour", h).Msg("range hour lookup failed")
				failed[i] = true
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var (
		docs         []core.SensorDocument
		missing, bad []string
	)
	for i, d := range slots {
		switch {
		case failed[i]:
			bad = append(bad, hours[i].Format("01-02 15시"))
		case d == nil:
			missing = append(missing, hours[i].Format("01-02 15시"))
		default:
			docs = append(docs, *d)
		}
	}

	span := fmt.Sprintf("%s ~ %s", rng.Start.Format(core.TimeLayout), rng.End.Format(core.TimeLayout))
	if len(docs) == 0 && len(bad) > 0 && len(missing) == 0 {
		return nil, fmt.Errorf("range %s: every hourly lookup failed", span)
	}
	if len(docs) == 0 {
		res := noData(fmt.Sprintf("요청 구간 %s의 시간별 데이터를 찾을 수 없습니다.", span))
		res.Path = PathTimeRange
		return res, nil
	}

	preamble := fmt.Sprintf("요청 구간: %s (시간별 파일 %d/%d개)", span, len(docs), len(hours))
	if len(missing) > 0 {
		preamble += "\n누락된 시간: " + strings.Join(missing, ", ")
	}
	if len(bad) > 0 {
		preamble += "\n조회 실패한 시간: " + strings.Join(bad, ", ")
	}
	setWindow(s, windowOf("range", rng.Start, rng.End, rowsOfAll(docs), span))
	return &Result{Path: PathTimeRange, Documents: docs, preamble: preamble}, nil
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
