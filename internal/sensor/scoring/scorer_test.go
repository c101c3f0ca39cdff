package scoring

import (
	"fmt"
	"testing"
	"time"

	"github.com/sandevgo/airbot/internal/core"
	"github.com/sandevgo/airbot/internal/sensor/timeparse"
	"github.com/stretchr/testify/assert"
)

func newScorer() *Scorer {
	now := func() time.Time { return time.Date(2025, 8, 11, 17, 0, 0, 0, core.KST) }
	return New(timeparse.New(now, timeparse.BareHourReject))
}

const minuteDoc = `{"mintemp":24.3,"minhum":55,"mingas":410,"timestamp":"2025-08-11T14:05:00"}`

func TestScore_Breakdown(t *testing.T) {
	s := newScorer()
	key := "minavg/2025/08/11/14/202508111405_minavg.json"

	// path 8, no token overlap, prefixed keys earn no field credit,
	// exact stamp 200, minute shape 30
	got := s.Score("2025년 8월 11일 14시 5분 온도 알려줘", minuteDoc, key)
	assert.Equal(t, 8+200+30, got)
}

func TestScore_TokenOverlapAndDatetime(t *testing.T) {
	s := newScorer()
	doc := `{"note":"humidity humidity","at":"2025-08-11 14:05"}`
	// tokens "2025-08-11" 1, "14:05" 1, "humidity" 2; a value is not a
	// key so no field credit; datetime literal 5; no path, no schema
	got := s.Score("2025-08-11 14:05 습도", doc, "exports/readme.json")
	assert.Equal(t, 4+5, got)
}

func TestScore_HourGranularity(t *testing.T) {
	s := newScorer()
	hourDoc := `{"hourtemp":24.1,"hourhum":55,"hourgas":420}`
	q := "2025년 8월 11일 14시 온도"

	exact := s.Score(q, hourDoc, "houravg/2025/08/11/14/2025081114_houravg.json")
	other := s.Score(q, hourDoc, "houravg/2025/08/11/15/2025081115_houravg.json")
	assert.Equal(t, 6+200+35, exact)
	assert.Equal(t, 6+35, other)
}

func TestScore_HourFileAsMinuteFallback(t *testing.T) {
	s := newScorer()
	hourDoc := `{"hourtemp":24.1,"hourhum":55,"hourgas":420}`
	got := s.Score("2025년 8월 11일 14시 5분 온도", hourDoc, "houravg/2025/08/11/14/2025081114_houravg.json")
	// path 6, fallback 50, no minute-shape or minute-path credit
	assert.Equal(t, 6+50, got)
}

func TestScore_FieldKeysMatchQuoted(t *testing.T) {
	q := newScorer().Prepare("상태")
	tests := []struct {
		name string
		doc  string
		want int
	}{
		{"raw short keys", `{"temp":24,"hum":55,"gas":410}`, 3},
		{"raw long keys", `{"temperature":24,"humidity":55,"gas":410}`, 3},
		{"prefixed minute keys", `{"mintemp":24,"minhum":55,"mingas":410}`, 0},
		{"prefixed hour keys", `{"hourtemp":24,"hourhum":55}`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, q.Score(tt.doc, "exports/x.json", core.SchemaNone))
		})
	}
}

func TestScore_UnspecifiedGranularityTiers(t *testing.T) {
	q := newScorer().Prepare("온도 알려줘")
	assert.Equal(t, 20, q.alignmentBonus(core.SchemaHourAvg, false, true))
	assert.Equal(t, 15, q.alignmentBonus(core.SchemaNone, false, true))
	assert.Equal(t, 10, q.alignmentBonus(core.SchemaMinAvg, true, false))
	assert.Equal(t, 8, q.alignmentBonus(core.SchemaNone, true, false))
	assert.Equal(t, 0, q.alignmentBonus(core.SchemaRawList, false, false))
}

func TestScore_ExactStampDominatesSameDay(t *testing.T) {
	s := newScorer()
	q := s.Prepare("2025년 8월 11일 14시 5분 온도")
	exact := q.Score(minuteDoc, "minavg/2025/08/11/14/202508111405_minavg.json", core.SchemaMinAvg)

	for h := 0; h < 24; h++ {
		for _, m := range []int{0, 4, 5, 6, 59} {
			if h == 14 && m == 5 {
				continue
			}
			key := fmt.Sprintf("minavg/2025/08/11/%02d/20250811%02d%02d_minavg.json", h, h, m)
			assert.GreaterOrEqual(t, exact, q.Score(minuteDoc, key, core.SchemaMinAvg), key)
		}
	}
}

func TestScore_Deterministic(t *testing.T) {
	s := newScorer()
	q := "2025년 8월 11일 14시 5분 온도"
	key := "minavg/2025/08/11/14/202508111405_minavg.json"
	assert.Equal(t, s.Score(q, minuteDoc, key), s.Score(q, minuteDoc, key))
}

func TestTokensAndFields(t *testing.T) {
	assert.Equal(t, []string{"temperature", "humidity", "알려줘"}, Tokens("온도는 습도 알려줘"))
	assert.Equal(t, []core.Field{core.FieldTemperature, core.FieldGas}, DetectFields("CO2랑 온도"))
	assert.Equal(t, []core.Field{core.FieldGas}, DetectFields("co₂ 농도"))
	assert.Empty(t, DetectFields("오늘 날씨"))
}
