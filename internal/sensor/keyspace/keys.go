// Package keyspace maps timestamps onto the date-partitioned aggregate
// layout {kind}/{yyyy}/{mm}/{dd}/{hh}/{stamp}_{kind}.json.
package keyspace

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/sandevgo/airbot/internal/core"
)

const (
	KindMinAvg    = "minavg"
	KindHourAvg   = "houravg"
	KindMinTrend  = "mintrend"
	KindHourTrend = "hourtrend"
	KindRaw       = "rawdata"
)

func DayPrefix(kind string, t time.Time) string {
	t = t.In(core.KST)
	return fmt.Sprintf("%s/%04d/%02d/%02d/", kind, t.Year(), t.Month(), t.Day())
}

func HourPrefix(kind string, t time.Time) string {
	t = t.In(core.KST)
	return fmt.Sprintf("%s%02d/", DayPrefix(kind, t), t.Hour())
}

func MinuteToken(t time.Time) string {
	return t.In(core.KST).Format("200601021504")
}

func HourToken(t time.Time) string {
	return t.In(core.KST).Format("2006010215")
}

// Key builds the canonical object key. Hour files carry the hour token,
// minute files the minute token.
func Key(kind string, t time.Time) string {
	token := MinuteToken(t)
	if isHourKind(kind) {
		token = HourToken(t)
	}
	return fmt.Sprintf("%s%s_%s.json", HourPrefix(kind, t), token, kind)
}

func isHourKind(s string) bool {
	return strings.Contains(s, KindHourAvg) || strings.Contains(s, KindHourTrend)
}

var (
	minuteStampRe = regexp.MustCompile(`(\d{8})[_-]?(\d{4})`)
	hourStampRe   = regexp.MustCompile(`\d{10}`)
	isoStampRe    = regexp.MustCompile(`(?i)(\d{4}-\d{2}-\d{2})t(\d{2})(?:[:-]?(\d{2}))?`)
	dateStampRe   = regexp.MustCompile(`(\d{4})[-/]?(\d{2})[-/]?(\d{2})`)
)

// ParseKeyTime reads the timestamp embedded in a key, filename first,
// then the whole path. Hour kinds always report hour granularity.
func ParseKeyTime(key string) (time.Time, core.Granularity, bool) {
	for _, s := range []string{path.Base(key), key} {
		if t, g, ok := parseStamp(s); ok {
			if isHourKind(key) && g == core.GranularityMinute {
				return t.Truncate(time.Hour), core.GranularityHour, true
			}
			return t, g, true
		}
	}
	return time.Time{}, core.GranularityNone, false
}

func parseStamp(s string) (time.Time, core.Granularity, bool) {
	if m := minuteStampRe.FindStringSubmatch(s); m != nil {
		if t, err := time.ParseInLocation("200601021504", m[1]+m[2], core.KST); err == nil {
			return t, core.GranularityMinute, true
		}
	}
	if m := hourStampRe.FindString(s); m != "" {
		if t, err := time.ParseInLocation("2006010215", m, core.KST); err == nil {
			return t, core.GranularityHour, true
		}
	}
	if m := isoStampRe.FindStringSubmatch(s); m != nil {
		if m[3] != "" {
			if t, err := time.ParseInLocation("2006-01-02 15:04", m[1]+" "+m[2]+":"+m[3], core.KST); err == nil {
				return t, core.GranularityMinute, true
			}
		}
		if t, err := time.ParseInLocation("2006-01-02 15", m[1]+" "+m[2], core.KST); err == nil {
			return t, core.GranularityHour, true
		}
	}
	if m := dateStampRe.FindStringSubmatch(s); m != nil {
		if t, err := time.ParseInLocation("20060102", m[1]+m[2]+m[3], core.KST); err == nil {
			return t, core.GranularityDay, true
		}
	}
	return time.Time{}, core.GranularityNone, false
}

// FileStamp reads only the filename's leading timestamp, the part before
// the first "_". It is what closest-match compares.
func FileStamp(key string) (time.Time, bool) {
	base := path.Base(key)
	if i := strings.Index(base, "_"); i > 0 {
		base = base[:i]
	}
	switch len(base) {
	case 12:
		t, err := time.ParseInLocation("200601021504", base, core.KST)
		return t, err == nil
	case 10:
		t, err := time.ParseInLocation("2006010215", base, core.KST)
		return t, err == nil
	}
	return time.Time{}, false
}
