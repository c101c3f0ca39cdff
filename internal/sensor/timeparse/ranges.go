package timeparse

import (
	"regexp"
	"strings"
	"time"
)

type Range struct {
	Start time.Time
	End   time.Time
}

var (
	rangeMarkerRe = regexp.MustCompile(`(?i)부터|까지|~|\bbetween\b.+\band\b|사이`)
	durationRe    = regexp.MustCompile(`부터\s*(\d+|` + numberWordAlt + `)\s*(분|시간)\s*(?:동안)?`)
	minuteToRe    = regexp.MustCompile(`부터\s*(\d{1,2})\s*분\s*까지`)
)

// DetectRange decides whether the query's candidates form an inclusive
// range rather than independent points. It needs a range marker plus
// either two candidates, a duration, or an "N분까지" end.
func (e *Extractor) DetectRange(query string, cands []Candidate) (Range, bool) {
	if !rangeMarkerRe.MatchString(query) || len(cands) == 0 {
		return Range{}, false
	}

	if len(cands) >= 2 {
		first, last := cands[0], cands[len(cands)-1]
		start, end := first.Time, carryMeridiem(first, last)
		if end.Before(start) && start.Sub(end) < 24*time.Hour && !strings.Contains(cands[len(cands)-1].Span, "일") {
			// "23시부터 1시까지" crosses midnight
			end = end.AddDate(0, 0, 1)
		}
		if !end.After(start) {
			return Range{}, false
		}
		return Range{Start: start, End: end}, true
	}

	start := cands[0].Time
	if m := minuteToRe.FindStringSubmatch(query); m != nil {
		mi := atoi(m[1])
		if mi < 0 || mi > 59 {
			return Range{}, false
		}
		end := time.Date(start.Year(), start.Month(), start.Day(), start.Hour(), mi, 0, 0, start.Location())
		if !end.After(start) {
			return Range{}, false
		}
		return Range{Start: start, End: end}, true
	}
	if m := durationRe.FindStringSubmatch(query); m != nil {
		n, ok := numberWords[m[1]]
		if !ok {
			n = atoi(m[1])
		}
		if n <= 0 {
			return Range{}, false
		}
		unit := time.Minute
		if m[2] == "시간" {
			unit = time.Hour
		}
		return Range{Start: start, End: start.Add(time.Duration(n) * unit)}, true
	}
	return Range{}, false
}

var meridiemRe = regexp.MustCompile(`오전|오후`)

// carryMeridiem reads a bare end hour in the start's half of the day, so
// "오후 2시부터 4시까지" ends at 16:00 and "오전 11시부터 1시까지" at 13:00.
// When that still ends before the start the caller rolls to the next day.
func carryMeridiem(first, last Candidate) time.Time {
	end := last.Time
	if !meridiemRe.MatchString(first.Span) || meridiemRe.MatchString(last.Span) ||
		strings.Contains(last.Span, "일") || end.Hour() >= 12 {
		return end
	}
	if shifted := end.Add(12 * time.Hour); end.Before(first.Time) && shifted.After(first.Time) {
		return shifted
	}
	return end
}

// Hours expands the range into inclusive hourly timestamps, capped at
// limit entries.
func (r Range) Hours(limit int) []time.Time {
	var out []time.Time
	t := r.Start.Truncate(time.Hour)
	for !t.After(r.End) {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, t)
		t = t.Add(time.Hour)
	}
	return out
}
