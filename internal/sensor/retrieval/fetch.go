package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sandevgo/airbot/internal/core"
	"github.com/sandevgo/airbot/internal/metrics"
	"github.com/sandevgo/airbot/internal/sensor/keyspace"
	"github.com/sandevgo/airbot/internal/sensor/schema"
	"github.com/sandevgo/airbot/pkg/log"
	"golang.org/x/sync/errgroup"
)

// document parses and classifies raw bytes. Unparsable text is kept with
// SchemaNone so the scorer can still look at it.
func document(key string, data []byte, size int64) core.SensorDocument {
	doc := core.SensorDocument{
		ID:       key,
		RawText:  string(data),
		Schema:   core.SchemaNone,
		FileSize: size,
	}
	if doc.FileSize == 0 {
		doc.FileSize = int64(len(data))
	}
	if parsed, err := schema.Parse(doc.RawText); err == nil {
		doc.Parsed = parsed
		doc.Schema = schema.Classify(parsed)
	}
	return doc
}

func (r *Retriever) fetch(ctx context.Context, key string, size int64) (core.SensorDocument, error) {
	data, err := r.store.Get(ctx, key, r.maxFileBytes)
	if err != nil {
		metrics.FetchError()
		return core.SensorDocument{}, fmt.Errorf("fetch %s: %w", key, err)
	}
	return document(key, data, size), nil
}

// fetchAll reads objs on a bounded pool. Failed reads are logged and
// dropped; the survivors keep the input order.
func (r *Retriever) fetchAll(ctx context.Context, objs []core.ObjectInfo) ([]core.SensorDocument, error) {
	logger := log.FromCtx(ctx)
	slots := make([]*core.SensorDocument, len(objs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, r.cfg.MaxWorkers))
	for i, o := range objs {
		g.Go(func() error {
			doc, err := r.fetch(gctx, o.Key, o.Size)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				logger.Warn().Err(err).Str("key", o.Key).Msg("dropping document")
				return nil
			}
			slots[i] = &doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	docs := make([]core.SensorDocument, 0, len(objs))
	for _, d := range slots {
		if d != nil {
			docs = append(docs, *d)
		}
	}
	return docs, nil
}

// list returns the JSON objects under prefix, at most limit of them.
func (r *Retriever) list(ctx context.Context, prefix string, limit int) ([]core.ObjectInfo, error) {
	objs, err := r.store.List(ctx, prefix, limit)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	out := objs[:0:0]
	for _, o := range objs {
		if strings.HasSuffix(o.Key, ".json") {
			out = append(out, o)
		}
	}
	return out, nil
}

// listDays lists each kind's day partition, capped at MaxFilesToScan in
// total. Listing errors other than cancellation only shrink the result.
func (r *Retriever) listDays(ctx context.Context, date time.Time, kinds ...string) ([]core.ObjectInfo, error) {
	var out []core.ObjectInfo
	for _, kind := range kinds {
		budget := r.cfg.MaxFilesToScan - len(out)
		if budget <= 0 {
			break
		}
		objs, err := r.list(ctx, keyspace.DayPrefix(kind, date), budget)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.FromCtx(ctx).Warn().Err(err).Str("kind", kind).Msg("day listing failed")
			continue
		}
		out = append(out, objs...)
	}
	return out, nil
}

// rowsOf flattens a document, stamping undated rows with the key time.
func rowsOf(doc core.SensorDocument) []core.SensorRow {
	fallback, _, _ := keyspace.ParseKeyTime(doc.ID)
	return schema.Rows(doc.Parsed, fallback)
}

func rowsOfAll(docs []core.SensorDocument) []core.SensorRow {
	var rows []core.SensorRow
	for _, d := range docs {
		rows = append(rows, rowsOf(d)...)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Timestamp.Before(rows[j].Timestamp) })
	return rows
}

func noData(msg string) *Result {
	return &Result{
		NoData: true,
		Documents: []core.SensorDocument{{
			Schema:  core.SchemaNone,
			RawText: msg,
		}},
	}
}

func windowOf(kind string, start, end time.Time, rows []core.SensorRow, label string) *core.SensorWindow {
	return &core.SensorWindow{
		Window: kind,
		Start:  start.In(core.KST),
		End:    end.In(core.KST),
		Rows:   rows,
		Tag:    "D1",
		Label:  label,
	}
}
