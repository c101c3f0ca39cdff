// Package schema recognizes the aggregate file shapes produced by the
// sensor pipeline and flattens them into rows.
package schema

import "github.com/sandevgo/airbot/internal/core"

// Classify returns the shape of a parsed document. Hour signatures are
// checked before the generic averages fallback so hour data is never
// read as minute data.
func Classify(parsed any) core.Schema {
	switch v := parsed.(type) {
	case []any:
		if isRawList(v) {
			return core.SchemaRawList
		}
	case map[string]any:
		return classifyObject(v)
	}
	return core.SchemaNone
}

func classifyObject(obj map[string]any) core.Schema {
	switch {
	case hasAll(obj, "averages", "hourly_ranges", "trends"):
		return core.SchemaHourAvg
	case hasAll(obj, "hourtemp", "hourhum", "hourgas"):
		return core.SchemaHourAvg
	case hasAll(obj, "mintemp", "minhum", "mingas"):
		return core.SchemaMinAvg
	}
	if data, ok := obj["data"].(map[string]any); ok && hasAll(data, "mintemp", "minhum", "mingas") {
		return core.SchemaMinTrend
	}
	if hasAll(obj, "averages") && hasAny(obj, "minute", "timestamp", "calculatedAt") {
		return core.SchemaMinAvg
	}
	return core.SchemaNone
}

func isRawList(items []any) bool {
	if len(items) == 0 {
		return false
	}
	first, ok := items[0].(map[string]any)
	if !ok {
		return false
	}
	return hasAll(first, "timestamp", "temp", "hum", "gas") ||
		hasAll(first, "timestamp", "temperature", "humidity", "gas")
}

func hasAll(obj map[string]any, keys ...string) bool {
	for _, k := range keys {
		if _, ok := obj[k]; !ok {
			return false
		}
	}
	return true
}

func hasAny(obj map[string]any, keys ...string) bool {
	for _, k := range keys {
		if _, ok := obj[k]; ok {
			return true
		}
	}
	return false
}
