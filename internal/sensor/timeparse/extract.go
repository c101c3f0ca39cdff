package timeparse

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sandevgo/airbot/internal/core"
)

// Candidate is one absolute timestamp found in a query.
type Candidate struct {
	Time time.Time
	// Text is the normalized "YYYY-MM-DD HH:MM" form.
	Text string
	// Span is the matched source text.
	Span string
	// HasClock is false for date-only mentions.
	HasClock bool

	pos int
}

// BareHourPolicy decides what date a bare hour ("3시", "오후 2시") gets
// when the query carries no date of its own.
type BareHourPolicy int

const (
	BareHourReject BareHourPolicy = iota
	BareHourToday
)

func ParseBareHourPolicy(s string) BareHourPolicy {
	if strings.EqualFold(strings.TrimSpace(s), "today") {
		return BareHourToday
	}
	return BareHourReject
}

type Extractor struct {
	now      core.Clock
	bareHour BareHourPolicy
}

func New(now core.Clock, policy BareHourPolicy) *Extractor {
	if now == nil {
		now = core.Now
	}
	return &Extractor{now: now, bareHour: policy}
}

func (e *Extractor) Now() time.Time {
	return e.now().In(core.KST)
}

// match is a raw regexp hit handed to a rule's build func.
type match struct {
	groups []string
	start  int
	end    int
}

func (m match) group(i int) string {
	if i < len(m.groups) {
		return m.groups[i]
	}
	return ""
}

// rule is one entry of the extraction table. Qualified rules carry a
// full date; the rest inherit one.
type rule struct {
	name      string
	re        *regexp.Regexp
	qualified bool
	build     func(e *Extractor, m match, base time.Time) (time.Time, bool, bool)
}

const clockTail = `(?:\s*(오전|오후))?(?:\s*(\d{1,2})\s*시(?:\s*(\d{1,2})\s*분|\s*(반))?)?(?:\s*의?\s*\d{1,2}\s*초)?`

// rules are evaluated in this order. A span consumed by an earlier rule
// is never matched again by a later one.
var rules = []rule{
	{
		name:      "iso8601",
		re:        regexp.MustCompile(`(?i)\d{4}-\d{2}-\d{2}t\d{2}:\d{2}(?::\d{2}(?:\.\d+)?)?(?:z|[+-]\d{2}:\d{2})?`),
		qualified: true,
		build:     buildISO,
	},
	{
		name:      "dash-datetime",
		re:        regexp.MustCompile(`(\d{4})[-/.](\d{1,2})[-/.](\d{1,2})\s+(\d{1,2}):(\d{2})`),
		qualified: true,
		build: func(e *Extractor, m match, _ time.Time) (time.Time, bool, bool) {
			return dateTime(atoi(m.group(1)), atoi(m.group(2)), atoi(m.group(3)), atoi(m.group(4)), atoi(m.group(5)), true)
		},
	},
	{
		name:      "dash-date",
		re:        regexp.MustCompile(`(\d{4})[-/.](\d{1,2})[-/.](\d{1,2})`),
		qualified: true,
		build: func(e *Extractor, m match, _ time.Time) (time.Time, bool, bool) {
			return dateTime(atoi(m.group(1)), atoi(m.group(2)), atoi(m.group(3)), 0, 0, false)
		},
	},
	{
		name:      "korean-ymd",
		re:        regexp.MustCompile(`(\d{4})\s*년\s*(\d{1,2})\s*월\s*(\d{1,2})\s*일` + clockTail),
		qualified: true,
		build: func(e *Extractor, m match, _ time.Time) (time.Time, bool, bool) {
			return koreanDate(atoi(m.group(1)), atoi(m.group(2)), atoi(m.group(3)), m, 4)
		},
	},
	{
		name:      "korean-md",
		re:        regexp.MustCompile(`(\d{1,2})\s*월\s*(\d{1,2})\s*일` + clockTail),
		qualified: true,
		build: func(e *Extractor, m match, _ time.Time) (time.Time, bool, bool) {
			return koreanDate(e.Now().Year(), atoi(m.group(1)), atoi(m.group(2)), m, 3)
		},
	},
	{
		name: "ampm-clock",
		re:   regexp.MustCompile(`(오전|오후)\s*(\d{1,2})\s*시(?:\s*(\d{1,2})\s*분|\s*(반))?`),
		build: func(e *Extractor, m match, base time.Time) (time.Time, bool, bool) {
			h, ok := to24h(m.group(1), atoi(m.group(2)))
			if !ok {
				return time.Time{}, false, false
			}
			return onDate(base, h, minuteOf(m.group(3), m.group(4)))
		},
	},
	{
		name: "colon-clock",
		re:   regexp.MustCompile(`(\d{1,2}):(\d{2})`),
		build: func(e *Extractor, m match, base time.Time) (time.Time, bool, bool) {
			return onDate(base, atoi(m.group(1)), atoi(m.group(2)))
		},
	},
	{
		name: "bare-clock",
		re:   regexp.MustCompile(`(\d{1,2})\s*시(?:\s*(\d{1,2})\s*분|\s*(반))?`),
		build: func(e *Extractor, m match, base time.Time) (time.Time, bool, bool) {
			return onDate(base, atoi(m.group(1)), minuteOf(m.group(2), m.group(3)))
		},
	},
}

// Extract returns the deduplicated timestamps of query in order of
// appearance. An empty result means "no explicit time".
func (e *Extractor) Extract(query string) []Candidate {
	var (
		consumed [][2]int
		found    []Candidate
		base     time.Time
		haveBase bool
	)

	for _, r := range rules {
		if !r.qualified && !haveBase {
			base, haveBase = e.inheritedDate(query, found)
			if !haveBase {
				// still consume the span so a later rule cannot misread it
				for _, m := range findMatches(r.re, query, consumed) {
					consumed = append(consumed, [2]int{m.start, m.end})
				}
				continue
			}
		}
		for _, m := range findMatches(r.re, query, consumed) {
			consumed = append(consumed, [2]int{m.start, m.end})
			t, hasClock, ok := r.build(e, m, base)
			if !ok {
				continue
			}
			found = append(found, Candidate{
				Time:     t,
				Text:     t.Format(core.TimeLayout),
				Span:     strings.TrimSpace(query[m.start:m.end]),
				HasClock: hasClock,
				pos:      m.start,
			})
		}
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].pos < found[j].pos })

	seen := make(map[string]bool, len(found))
	out := make([]Candidate, 0, len(found))
	for _, c := range found {
		if seen[c.Text] {
			continue
		}
		seen[c.Text] = true
		out = append(out, c)
	}
	return out
}

// inheritedDate picks the date bare clocks attach to: the first fully
// qualified candidate, else a relative day word, else the policy.
func (e *Extractor) inheritedDate(query string, found []Candidate) (time.Time, bool) {
	if len(found) > 0 {
		first := found[0]
		for _, c := range found[1:] {
			if c.pos < first.pos {
				first = c
			}
		}
		return midnight(first.Time), true
	}
	if days, ok := RelativeDay(query); ok {
		return midnight(e.Now().AddDate(0, 0, -days)), true
	}
	if e.bareHour == BareHourToday {
		return midnight(e.Now()), true
	}
	return time.Time{}, false
}

// MentionsTime reports whether query names any clock or date, even one
// Extract could not resolve.
func (e *Extractor) MentionsTime(query string) bool {
	if len(e.Extract(query)) > 0 {
		return true
	}
	for _, r := range rules {
		if len(findMatches(r.re, query, nil)) > 0 {
			return true
		}
	}
	return false
}

func findMatches(re *regexp.Regexp, query string, consumed [][2]int) []match {
	var out []match
	for _, loc := range re.FindAllStringSubmatchIndex(query, -1) {
		start, end := loc[0], loc[1]
		if overlaps(consumed, start, end) {
			continue
		}
		// "3시간" is a duration, not a clock
		if r, _ := utf8.DecodeRuneInString(query[end:]); r == '간' && strings.HasSuffix(query[start:end], "시") {
			continue
		}
		groups := make([]string, len(loc)/2)
		for i := range groups {
			if loc[2*i] >= 0 {
				groups[i] = query[loc[2*i]:loc[2*i+1]]
			}
		}
		out = append(out, match{groups: groups, start: start, end: end})
	}
	return out
}

func overlaps(spans [][2]int, start, end int) bool {
	for _, s := range spans {
		if start < s[1] && s[0] < end {
			return true
		}
	}
	return false
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

func buildISO(_ *Extractor, m match, _ time.Time) (time.Time, bool, bool) {
	s := strings.ToUpper(m.group(0))
	for _, layout := range isoLayouts {
		t, err := time.ParseInLocation(layout, s, core.KST)
		if err == nil {
			return t.In(core.KST).Truncate(time.Minute), true, true
		}
	}
	return time.Time{}, false, false
}

// koreanDate resolves the clockTail groups starting at index i:
// am/pm, hour, minute, "반".
func koreanDate(y, mo, d int, m match, i int) (time.Time, bool, bool) {
	hourStr := m.group(i + 1)
	if hourStr == "" {
		return dateTime(y, mo, d, 0, 0, false)
	}
	h := atoi(hourStr)
	if ampm := m.group(i); ampm != "" {
		var ok bool
		if h, ok = to24h(ampm, h); !ok {
			return time.Time{}, false, false
		}
	}
	return dateTime(y, mo, d, h, minuteOf(m.group(i+2), m.group(i+3)), true)
}

func dateTime(y, mo, d, h, mi int, hasClock bool) (time.Time, bool, bool) {
	if mo < 1 || mo > 12 || d < 1 || d > 31 || h < 0 || h > 23 || mi < 0 || mi > 59 {
		return time.Time{}, false, false
	}
	t := time.Date(y, time.Month(mo), d, h, mi, 0, 0, core.KST)
	if t.Day() != d {
		// 2월 30일 and friends
		return time.Time{}, false, false
	}
	return t, hasClock, true
}

func onDate(base time.Time, h, mi int) (time.Time, bool, bool) {
	return dateTime(base.Year(), int(base.Month()), base.Day(), h, mi, true)
}

// to24h converts a 12-hour clock. 오전 12시 is midnight, 오후 12시 noon.
func to24h(ampm string, h int) (int, bool) {
	if h < 0 || h > 23 {
		return 0, false
	}
	switch ampm {
	case "오후":
		if h < 12 {
			h += 12
		}
	case "오전":
		if h == 12 {
			h = 0
		}
	}
	return h, true
}

func minuteOf(minute, half string) int {
	if half != "" {
		return 30
	}
	if minute == "" {
		return 0
	}
	return atoi(minute)
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, core.KST)
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}
