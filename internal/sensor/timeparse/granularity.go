package timeparse

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sandevgo/airbot/internal/core"
)

var (
	minuteRe = regexp.MustCompile(`\d{1,2}\s*시\s*\d{1,2}\s*분|\d{1,2}\s*분|\d{1,2}:\d{2}|\d\s*시\s*반`)
	hourRe   = regexp.MustCompile(`\d{1,2}\s*시`)
)

// IsMinuteGranularity reports whether the query asks for a specific minute.
func IsMinuteGranularity(query string) bool {
	return minuteRe.MatchString(query)
}

// IsHourGranularity reports an hour mention without a minute. "3시간"
// does not count.
func IsHourGranularity(query string) bool {
	if IsMinuteGranularity(query) {
		return false
	}
	for _, loc := range hourRe.FindAllStringIndex(query, -1) {
		if r, _ := utf8.DecodeRuneInString(query[loc[1]:]); r != '간' {
			return true
		}
	}
	return false
}

var dayHints = []string{"하루", "일평균", "일간", "daily", "오늘", "어제", "그제", "그저께", "엊그제"}

// Granularity folds the predicates into one value. Day means a date
// without a clock.
func (e *Extractor) Granularity(query string) core.Granularity {
	switch {
	case IsMinuteGranularity(query):
		return core.GranularityMinute
	case IsHourGranularity(query):
		return core.GranularityHour
	}
	for _, c := range e.Extract(query) {
		if !c.HasClock {
			return core.GranularityDay
		}
	}
	lower := strings.ToLower(query)
	for _, h := range dayHints {
		if strings.Contains(lower, h) {
			return core.GranularityDay
		}
	}
	return core.GranularityNone
}

// ResolveDate returns midnight of the day the query talks about: the
// first candidate's date, else a relative day word.
func (e *Extractor) ResolveDate(query string) (time.Time, bool) {
	if cands := e.Extract(query); len(cands) > 0 {
		return midnight(cands[0].Time), true
	}
	if days, ok := RelativeDay(query); ok {
		return midnight(e.Now().AddDate(0, 0, -days)), true
	}
	return time.Time{}, false
}
