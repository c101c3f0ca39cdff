package timeparse

import (
	"regexp"
	"strings"
	"time"
)

type Unit int

const (
	UnitMinute Unit = iota
	UnitHour
	UnitDay
)

func (u Unit) String() string {
	switch u {
	case UnitMinute:
		return "minute"
	case UnitHour:
		return "hour"
	default:
		return "day"
	}
}

// Offset is a relative displacement back from now. Negative amounts
// point into the future ("내일").
type Offset struct {
	Amount int
	Unit   Unit
}

// Apply resolves the offset against now.
func (o Offset) Apply(now time.Time) time.Time {
	switch o.Unit {
	case UnitMinute:
		return now.Add(-time.Duration(o.Amount) * time.Minute)
	case UnitHour:
		return now.Add(-time.Duration(o.Amount) * time.Hour)
	default:
		return now.AddDate(0, 0, -o.Amount)
	}
}

var numberWords = map[string]int{
	"한": 1, "두": 2, "세": 3, "네": 4, "다섯": 5, "여섯": 6, "일곱": 7, "여덟": 8, "아홉": 9,
	"열": 10, "열한": 11, "열두": 12, "십": 10, "십오": 15, "열다섯": 15,
	"스무": 20, "이십": 20, "삼십": 30, "서른": 30, "사십": 40, "마흔": 40, "오십": 50, "쉰": 50,
}

// Longer words first so "열두" wins over "열".
const numberWordAlt = `열다섯|열한|열두|다섯|여섯|일곱|여덟|아홉|십오|스무|이십|삼십|서른|사십|마흔|오십|한|두|세|네|열|십|쉰`

var offsetPatterns = []struct {
	re   *regexp.Regexp
	unit Unit
}{
	{regexp.MustCompile(`(\d+)\s*분\s*전`), UnitMinute},
	{regexp.MustCompile(`(\d+)\s*시간\s*전`), UnitHour},
	{regexp.MustCompile(`(\d+)\s*일\s*전`), UnitDay},
	{regexp.MustCompile(`(` + numberWordAlt + `)\s*시간\s*전`), UnitHour},
	{regexp.MustCompile(`(` + numberWordAlt + `)\s*분\s*전`), UnitMinute},
	{regexp.MustCompile(`(하루)\s*전`), UnitDay},
}

// dayWords maps relative day words to days back from today. Checked in
// order so "엊그제" is not read as "그제".
var dayWords = []struct {
	word string
	days int
}{
	{"엊그제", 3},
	{"그저께", 2},
	{"그제", 2},
	{"어제", 1},
	{"오늘", 0},
	{"내일", -1},
	{"모레", -2},
}

// RelativeOffset finds "N분/시간/일 전", number-word forms and relative
// day words. "오늘" is a date reference, not an offset.
func RelativeOffset(query string) (Offset, bool) {
	for _, p := range offsetPatterns {
		m := p.re.FindStringSubmatch(query)
		if m == nil {
			continue
		}
		n, ok := numberWords[m[1]]
		if !ok {
			if m[1] == "하루" {
				n = 1
			} else {
				n = atoi(m[1])
			}
		}
		if n < 0 {
			continue
		}
		return Offset{Amount: n, Unit: p.unit}, true
	}
	if days, ok := RelativeDay(query); ok && days != 0 {
		return Offset{Amount: days, Unit: UnitDay}, true
	}
	return Offset{}, false
}

// RelativeDay returns days back from today for the first relative day
// word in query, including "오늘" as zero.
func RelativeDay(query string) (int, bool) {
	for _, w := range dayWords {
		if strings.Contains(query, w.word) {
			return w.days, true
		}
	}
	return 0, false
}

var recentRe = regexp.MustCompile(`(?i)최근|지금|현재|최신|\blatest\b|\brecent\b|\bcurrent\b|\bnow\b`)

// IsRecent reports "recent/now" phrasing or a relative offset.
func IsRecent(query string) bool {
	if recentRe.MatchString(query) {
		return true
	}
	_, ok := RelativeOffset(query)
	return ok
}
