// Package scoring ranks sensor documents against a query. Exact
// temporal alignment dominates; keyword overlap only breaks ties.
package scoring

import (
	"strings"
	"time"

	"github.com/sandevgo/airbot/internal/core"
	"github.com/sandevgo/airbot/internal/sensor/keyspace"
	"github.com/sandevgo/airbot/internal/sensor/schema"
	"github.com/sandevgo/airbot/internal/sensor/timeparse"
)

const (
	pathMinuteBonus = 8
	pathHourBonus   = 6
	datetimeBonus   = 5
	exactStampBonus = 200
	hourFallback    = 50
)

// knownFields are matched as quoted JSON keys, so "mintemp" is no hit
// for "temp".
var knownFields = []string{`"temperature"`, `"humidity"`, `"gas"`, `"temp"`, `"hum"`}

type Scorer struct {
	extractor *timeparse.Extractor
}

func New(extractor *timeparse.Extractor) *Scorer {
	return &Scorer{extractor: extractor}
}

// Query is a query analysed once and scored against many documents.
type Query struct {
	Text        string
	Tokens      []string
	Datetimes   []string
	Target      time.Time
	HasTarget   bool
	Granularity core.Granularity
}

func (s *Scorer) Prepare(query string) *Query {
	q := &Query{Text: query}

	seen := make(map[string]bool)
	for _, tok := range Tokens(query) {
		if runeLen(tok) < 2 || seen[tok] {
			continue
		}
		seen[tok] = true
		q.Tokens = append(q.Tokens, tok)
	}

	cands := s.extractor.Extract(query)
	for _, c := range cands {
		q.Datetimes = append(q.Datetimes, c.Text)
	}
	for _, c := range cands {
		if c.HasClock {
			q.Target, q.HasTarget = c.Time, true
			break
		}
	}
	if !q.HasTarget && len(cands) > 0 {
		q.Target, q.HasTarget = cands[0].Time, true
	}

	switch g := s.extractor.Granularity(query); g {
	case core.GranularityMinute, core.GranularityHour:
		q.Granularity = g
	default:
		q.Granularity = core.GranularityNone
	}
	return q
}

// Score classifies text itself. Use Prepare when scoring many documents.
func (s *Scorer) Score(query, text, key string) int {
	shape := core.SchemaNone
	if parsed, err := schema.Parse(text); err == nil {
		shape = schema.Classify(parsed)
	}
	return s.Prepare(query).Score(text, key, shape)
}

func (q *Query) Score(text, key string, shape core.Schema) int {
	lowerKey := strings.ToLower(key)
	lowerText := strings.ToLower(text)
	minutePath := strings.Contains(lowerKey, keyspace.KindMinAvg) || strings.Contains(lowerKey, keyspace.KindMinTrend)
	hourPath := strings.Contains(lowerKey, keyspace.KindHourAvg) || strings.Contains(lowerKey, keyspace.KindHourTrend)

	score := 0
	switch {
	case minutePath:
		score += pathMinuteBonus
	case hourPath:
		score += pathHourBonus
	}

	for _, tok := range q.Tokens {
		score += strings.Count(lowerText, tok)
	}

	for _, f := range knownFields {
		if strings.Contains(lowerText, f) {
			score++
		}
	}

	for _, dt := range q.Datetimes {
		if strings.Contains(text, dt) {
			score += datetimeBonus
		}
	}

	score += q.stampBonus(key)
	score += q.alignmentBonus(shape, minutePath, hourPath)
	return score
}

func (q *Query) stampBonus(key string) int {
	if !q.HasTarget {
		return 0
	}
	kt, kg, ok := keyspace.ParseKeyTime(key)
	if !ok {
		return 0
	}
	targetHour := q.Target.Truncate(time.Hour)
	switch {
	case kg == core.GranularityMinute && kt.Equal(q.Target):
		return exactStampBonus
	case kg == core.GranularityHour && q.Granularity == core.GranularityHour && kt.Equal(targetHour):
		return exactStampBonus
	case kg == core.GranularityHour && q.Granularity == core.GranularityMinute && kt.Equal(targetHour):
		return hourFallback
	}
	return 0
}

func (q *Query) alignmentBonus(shape core.Schema, minutePath, hourPath bool) int {
	minuteShape := shape == core.SchemaMinAvg || shape == core.SchemaMinTrend
	hourShape := shape == core.SchemaHourAvg

	switch q.Granularity {
	case core.GranularityMinute:
		switch {
		case minuteShape:
			return 30
		case minutePath:
			return 25
		}
	case core.GranularityHour:
		switch {
		case hourShape:
			return 35
		case hourPath:
			return 30
		}
	default:
		switch {
		case hourShape:
			return 20
		case hourPath:
			return 15
		case minuteShape:
			return 10
		case minutePath:
			return 8
		}
	}
	return 0
}
