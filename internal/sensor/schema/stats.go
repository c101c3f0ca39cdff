package schema

import (
	"math"
	"time"

	"github.com/sandevgo/airbot/internal/core"
)

type FieldStats struct {
	Count int
	Avg   float64
	Min   float64
	Max   float64
	First float64
	Last  float64
	MinAt time.Time
	MaxAt time.Time
}

// ComputeStats summarizes rows per field. Rows must be sorted. Fields
// with no values are absent.
func ComputeStats(rows []core.SensorRow) map[core.Field]FieldStats {
	out := make(map[core.Field]FieldStats)
	for _, f := range core.Fields {
		var (
			st  FieldStats
			sum float64
		)
		for _, r := range rows {
			v, ok := r.Value(f)
			if !ok {
				continue
			}
			if st.Count == 0 {
				st.Min, st.Max, st.First = v, v, v
				st.MinAt, st.MaxAt = r.Timestamp, r.Timestamp
			}
			if v < st.Min {
				st.Min, st.MinAt = v, r.Timestamp
			}
			if v > st.Max {
				st.Max, st.MaxAt = v, r.Timestamp
			}
			st.Last = v
			sum += v
			st.Count++
		}
		if st.Count > 0 {
			st.Avg = round(sum/float64(st.Count), 2)
			out[f] = st
		}
	}
	return out
}

// Trend labels the first-to-last change. Beyond five percent either way
// the value is rising or falling.
func Trend(st FieldStats) (rate float64, label string) {
	if st.Count < 2 || st.First == 0 {
		return 0, "안정"
	}
	rate = round((st.Last-st.First)/math.Abs(st.First)*100, 1)
	switch {
	case rate > 5:
		return rate, "상승"
	case rate < -5:
		return rate, "하락"
	}
	return rate, "안정"
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
