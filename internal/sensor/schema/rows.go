package schema

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sandevgo/airbot/internal/core"
)

var fieldKeys = map[core.Field][]string{
	core.FieldTemperature: {"temperature", "temp", "mintemp", "hourtemp"},
	core.FieldHumidity:    {"humidity", "hum", "minhum", "hourhum"},
	core.FieldGas:         {"gas", "co2", "mingas", "hourgas"},
}

var timeKeys = []string{"timestamp", "minute", "hour", "calculatedAt", "time", "datetime"}

// Rows flattens any recognized shape into rows sorted by timestamp.
// fallback stamps rows whose document carries no usable timestamp,
// usually the time encoded in the object key.
func Rows(parsed any, fallback time.Time) []core.SensorRow {
	var rows []core.SensorRow

	switch Classify(parsed) {
	case core.SchemaRawList:
		for _, item := range parsed.([]any) {
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if row, ok := rowFrom(obj, obj, fallback); ok {
				rows = append(rows, row)
			}
		}
	case core.SchemaMinAvg, core.SchemaHourAvg:
		obj := parsed.(map[string]any)
		values := obj
		if avg, ok := obj["averages"].(map[string]any); ok {
			values = avg
		}
		if row, ok := rowFrom(obj, values, fallback); ok {
			rows = append(rows, row)
		}
	case core.SchemaMinTrend:
		obj := parsed.(map[string]any)
		data := obj["data"].(map[string]any)
		stamp := obj
		if _, ok := data["timestamp"]; ok {
			stamp = data
		}
		if row, ok := rowFrom(stamp, data, fallback); ok {
			rows = append(rows, row)
		}
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Timestamp.Before(rows[j].Timestamp) })
	return rows
}

func rowFrom(stamp, values map[string]any, fallback time.Time) (core.SensorRow, bool) {
	row := core.SensorRow{Timestamp: fallback}
	for _, k := range timeKeys {
		if t, ok := ParseTimestamp(stamp[k]); ok {
			row.Timestamp = t
			break
		}
	}
	if row.Timestamp.IsZero() {
		return row, false
	}

	found := false
	for field, keys := range fieldKeys {
		for _, k := range keys {
			if f, ok := toFloat(values[k]); ok {
				v := f
				switch field {
				case core.FieldTemperature:
					row.Temperature = &v
				case core.FieldHumidity:
					row.Humidity = &v
				case core.FieldGas:
					row.Gas = &v
				}
				found = true
				break
			}
		}
	}
	return row, found
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"200601021504",
	"2006010215",
	"2006-01-02",
}

// ParseTimestamp accepts the timestamp encodings seen in sensor files,
// including epoch seconds and milliseconds. Results are in KST.
func ParseTimestamp(v any) (time.Time, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range timestampLayouts {
			if ts, err := time.ParseInLocation(layout, s, core.KST); err == nil {
				return ts.In(core.KST), true
			}
		}
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return fromEpoch(n)
		}
	case float64:
		return fromEpoch(t)
	}
	return time.Time{}, false
}

func fromEpoch(n float64) (time.Time, bool) {
	// anything smaller is an hour or minute number, not an epoch
	if math.IsNaN(n) || n < 1e9 {
		return time.Time{}, false
	}
	if n > 1e12 {
		return time.UnixMilli(int64(n)).In(core.KST), true
	}
	return time.Unix(int64(n), 0).In(core.KST), true
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	case map[string]any:
		for _, k := range []string{"avg", "mean", "value"} {
			if f, ok := toFloat(t[k]); ok {
				return f, true
			}
		}
	}
	return 0, false
}
