// Package intent holds the keyword tables that decide what kind of
// sensor question a query is.
package intent

import (
	"regexp"
	"strings"

	"github.com/sandevgo/airbot/internal/core"
	"github.com/sandevgo/airbot/internal/sensor/scoring"
)

var sensorKeywords = []string{
	"온도", "기온", "습도", "이산화탄소", "co2", "co₂", "공기질", "가스", "ppm",
	"센서", "sensor", "temperature", "humidity",
	"더운", "추운", "덥", "춥", "습한", "건조",
	"거실", "침실", "안방", "주방", "실내", "사무실",
}

var timeKeywords = []string{
	"시", "분", "일", "월", "년", "전", "후", "오전", "오후", "지금", "최근", "오늘", "어제",
}

var followupHints = []string{
	"같은", "그때", "그 때", "그날", "그 날", "방금", "바로", "이전", "앞의", "동일", "위의", "아까",
	"해당", "최근", "직전", "금방", "습도", "공기질", "이산화탄소", "co2", "gas",
}

// HasSensorKeyword reports a sensor-domain word: a field, the sensor
// itself, or a room.
func HasSensorKeyword(query string) bool {
	return containsAny(strings.ToLower(query), sensorKeywords)
}

func HasTimeKeyword(query string) bool {
	return containsAny(query, timeKeywords)
}

// HasFollowupHint reports words that point back at an earlier answer.
func HasFollowupHint(query string) bool {
	return containsAny(strings.ToLower(query), followupHints)
}

var (
	averageWords   = []string{"평균", "average", "avg", "추이", "trend", "변화", "흐름"}
	dailyWords     = []string{"하루", "일간", "일일", "daily", "날", "오늘", "어제", "그제", "그저께", "엊그제"}
	explicitDailys = []string{"일평균", "하루평균", "하루 평균", "일 평균", "일간 평균", "일간평균", "하루 추이", "하루추이", "일간 추이", "daily average", "daily avg"}
)

// IsDailyAverage reports a whole-day aggregate request. A clock time
// ("14시 평균") makes it an hourly request instead.
func IsDailyAverage(query string, hasClock, hasDate bool) bool {
	if hasClock {
		return false
	}
	lower := strings.ToLower(query)
	if containsAny(lower, explicitDailys) {
		return true
	}
	if !containsAny(lower, averageWords) {
		return false
	}
	return hasDate || containsAny(lower, dailyWords)
}

// Extrema is a superlative request such as "가장 더운 시간".
type Extrema struct {
	Field core.Field
	Max   bool
}

var (
	maxRe = regexp.MustCompile(`(?i)(가장|제일)\s*(더운|덥|높|습한|습했|나쁜|나빴|많)|최고|최대|\bhighest\b|\bhottest\b|\bmax(imum)?\b`)
	minRe = regexp.MustCompile(`(?i)(가장|제일)\s*(추운|춥|낮|건조|좋은|좋았|적)|최저|최소|\blowest\b|\bcoldest\b|\bmin(imum)?\b`)
)

// DetectExtrema finds a superlative and the field it ranks. The field
// comes from the adjective when it implies one, else from the query,
// else temperature.
func DetectExtrema(query string) (Extrema, bool) {
	maxLoc := maxRe.FindStringIndex(query)
	minLoc := minRe.FindStringIndex(query)
	var ex Extrema
	switch {
	case maxLoc != nil && (minLoc == nil || maxLoc[0] <= minLoc[0]):
		ex.Max = true
	case minLoc != nil:
		ex.Max = false
	default:
		return Extrema{}, false
	}

	lower := strings.ToLower(query)
	switch {
	case containsAny(lower, []string{"더운", "추운", "덥", "춥", "hottest", "coldest"}):
		ex.Field = core.FieldTemperature
	case containsAny(lower, []string{"습한", "습했", "건조"}):
		ex.Field = core.FieldHumidity
	case containsAny(lower, []string{"나쁜", "나빴", "좋은", "좋았"}) && containsAny(lower, []string{"공기", "air"}):
		ex.Field = core.FieldGas
	default:
		ex.Field = core.FieldTemperature
		if fields := scoring.DetectFields(query); len(fields) > 0 {
			ex.Field = fields[0]
		}
	}
	return ex, true
}

var detailWords = []string{"상세", "자세히", "원본", "목록", "전체 데이터", "raw data"}

// WantsDetail reports a request to list the rows behind the last answer.
func WantsDetail(query string) bool {
	return containsAny(strings.ToLower(query), detailWords)
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
