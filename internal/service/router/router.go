// Package router decides whether a query is about sensor data. Two
// keyword layers settle most queries for free; the rest go to an LLM
// intent classifier, and an uncertain verdict is settled by probing the
// store for evidence.
package router

import (
	"context"
	"strings"

	"github.com/sandevgo/airbot/internal/core"
	"github.com/sandevgo/airbot/internal/sensor/intent"
	"github.com/sandevgo/airbot/internal/sensor/scoring"
	"github.com/sandevgo/airbot/internal/sensor/timeparse"
	"github.com/sandevgo/airbot/pkg/log"
)

const (
	highConfidence = 0.6
	lowConfidence  = 0.4
)

// Prober looks for relevant sensor documents behind a query.
type Prober interface {
	Probe(ctx context.Context, query string) (bool, error)
}

type Router struct {
	classifier *Classifier
	prober     Prober
	extractor  *timeparse.Extractor
}

func New(classifier *Classifier, prober Prober, extractor *timeparse.Extractor) *Router {
	return &Router{classifier: classifier, prober: prober, extractor: extractor}
}

// Decision explains a routing outcome.
type Decision struct {
	Route  core.Route
	Layer  string
	Intent *Intent
	Probed bool
}

func (r *Router) Decide(ctx context.Context, query string) core.Route {
	return r.Explain(ctx, query).Route
}

func (r *Router) Explain(ctx context.Context, query string) Decision {
	logger := log.FromCtx(ctx)
	q := strings.TrimSpace(query)
	if q == "" {
		return Decision{Route: core.RouteGeneral, Layer: "empty"}
	}

	if intent.HasSensorKeyword(q) && intent.HasTimeKeyword(q) {
		return Decision{Route: core.RouteSensor, Layer: "keywords"}
	}
	if r.structural(q) {
		return Decision{Route: core.RouteSensor, Layer: "structure"}
	}

	d := Decision{Route: core.RouteGeneral, Layer: "intent"}
	in, err := r.classifier.Classify(ctx, q)
	if err != nil {
		logger.Warn().Err(err).Msg("intent classification failed, assuming general")
	}
	d.Intent = &in

	switch {
	case in.Domain == DomainSensor && in.Confidence >= highConfidence:
		d.Route = core.RouteSensor
	case in.Confidence >= lowConfidence && in.Confidence < highConfidence:
		d.Probed = true
		d.Route = r.probe(ctx, q)
	}
	logger.Debug().
		Str("domain", in.Domain).
		Float64("confidence", in.Confidence).
		Bool("probed", d.Probed).
		Str("route", string(d.Route)).
		Msg("intent routed")
	return d
}

var structureHints = []string{
	"년", "월", "일", "시", "분", "초", "-", ":", "부터", "까지", "~", "between",
	"구간", "최근", "처음", "첫", "마지막", "최종",
}

// structural accepts a named sensor field together with any time or
// range structure.
func (r *Router) structural(q string) bool {
	if len(scoring.DetectFields(q)) == 0 {
		return false
	}
	if len(r.extractor.Extract(q)) > 0 {
		return true
	}
	lower := strings.ToLower(q)
	for _, h := range structureHints {
		if strings.Contains(lower, h) {
			return true
		}
	}
	return false
}

func (r *Router) probe(ctx context.Context, q string) core.Route {
	if r.prober == nil {
		return core.RouteGeneral
	}
	ok, err := r.prober.Probe(ctx, q)
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Msg("evidence probe failed")
		return core.RouteGeneral
	}
	if ok {
		return core.RouteSensor
	}
	return core.RouteGeneral
}
