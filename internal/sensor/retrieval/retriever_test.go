package retrieval

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/sandevgo/airbot/internal/config"
	"github.com/sandevgo/airbot/internal/core"
	"github.com/sandevgo/airbot/internal/sensor/timeparse"
	"github.com/sandevgo/airbot/internal/service/followup"
	"github.com/sandevgo/airbot/internal/storage/objstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 8, 11, 17, 0, 0, 0, core.KST)

const (
	min1405   = "minavg/2025/08/11/14/202508111405_minavg.json"
	min1420   = "minavg/2025/08/11/14/202508111420_minavg.json"
	hour13    = "houravg/2025/08/11/13/2025081113_houravg.json"
	hour14    = "houravg/2025/08/11/14/2025081114_houravg.json"
	raw0810   = "rawdata/2025/08/10/15/202508101500_rawdata.json"
	trend0811 = "mintrend/2025/08/11/14/202508111405_mintrend.json"
)

func fixtures() *objstore.Memory {
	m := objstore.NewMemory("sensors")
	m.PutString(min1405, `{"mintemp":24.3,"minhum":55,"mingas":410,"minute":"2025-08-11 14:05"}`)
	m.PutString(min1420, `{"mintemp":24.9,"minhum":54,"mingas":415,"minute":"2025-08-11 14:20"}`)
	m.PutString(hour13, `{"hourtemp":24.0,"hourhum":56,"hourgas":400,"hour":"2025081113"}`)
	m.PutString(hour14, `{"hourtemp":26.0,"hourhum":52,"hourgas":430,"hour":"2025081114"}`)
	m.PutString(raw0810, `[
		{"timestamp":"2025-08-10 13:00:00","temperature":27.1,"humidity":50,"gas":420},
		{"timestamp":"2025-08-10 15:00:00","temperature":28.4,"humidity":47,"gas":440},
		{"timestamp":"2025-08-10 16:00:00","temperature":28.4,"humidity":45,"gas":445}
	]`)
	return m
}

type harness struct {
	r  *Retriever
	fm *followup.Manager
}

func newHarness(store core.ObjectStore, tweak func(c *config.RetrievalConfig)) harness {
	cfg := config.DefaultRetrievalConfig()
	if tweak != nil {
		tweak(cfg)
	}
	ex := timeparse.New(func() time.Time { return fixedNow }, timeparse.BareHourReject)
	fm := followup.New(ex)
	return harness{r: New(store, ex, fm, cfg, 0), fm: fm}
}

func newSession() *core.Session {
	return core.NewSession("t1", fixedNow)
}

func ids(docs []core.SensorDocument) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}

func TestRetrieve_SinglePoint(t *testing.T) {
	h := newHarness(fixtures(), nil)
	s := core.NewSession("s1", fixedNow)

	res, err := h.r.Retrieve(context.Background(), "2025년 8월 11일 14시 5분 온도", s)
	require.NoError(t, err)
	assert.Equal(t, PathSinglePoint, res.Path)
	assert.False(t, res.NoData)
	require.Len(t, res.Documents, 1)
	assert.Equal(t, min1405, res.Documents[0].ID)
	assert.Equal(t, "D1", res.Documents[0].Tag)
	assert.Equal(t, core.SchemaMinAvg, res.Documents[0].Schema)
	assert.Empty(t, res.Documents[0].Note)
	assert.True(t, strings.HasPrefix(res.Context, "[D1] (mem://sensors/"+min1405+")\n"))

	require.NotNil(t, s.FollowupContext)
	assert.Equal(t, core.FollowupSingleTime, s.FollowupContext.Type)
	assert.Equal(t, "2025-08-11 14:05", s.FollowupContext.Data["time"])
	require.NotNil(t, s.LastSensorWindow)
	assert.Equal(t, "point", s.LastSensorWindow.Window)
	assert.Len(t, s.LastSensorWindow.Rows, 1)
}

func TestRetrieve_ClosestSubstitution(t *testing.T) {
	h := newHarness(fixtures(), nil)

	res, err := h.r.Retrieve(context.Background(), "2025년 8월 11일 14시 6분 온도", newSession())
	require.NoError(t, err)
	require.Len(t, res.Documents, 1)
	assert.Equal(t, min1405, res.Documents[0].ID)
	assert.Contains(t, res.Documents[0].Note, "1분 차이")
	assert.Contains(t, res.Context, "2025-08-11 14:06")
}

func TestRetrieve_HourlyAverageUsesHourFile(t *testing.T) {
	h := newHarness(fixtures(), nil)

	res, err := h.r.Retrieve(context.Background(), "2025년 8월 11일 14시 평균 온도", newSession())
	require.NoError(t, err)
	assert.Equal(t, PathSinglePoint, res.Path)
	require.Len(t, res.Documents, 1)
	assert.Equal(t, hour14, res.Documents[0].ID)
	assert.Equal(t, core.SchemaHourAvg, res.Documents[0].Schema)
}

func TestRetrieve_TimeRange(t *testing.T) {
	h := newHarness(fixtures(), nil)
	s := core.NewSession("s1", fixedNow)

	res, err := h.r.Retrieve(context.Background(), "2025년 8월 11일 13시부터 15시까지 온도", s)
	require.NoError(t, err)
	assert.Equal(t, PathTimeRange, res.Path)
	assert.Equal(t, []string{hour13, hour14}, ids(res.Documents))
	assert.Equal(t, "D2", res.Documents[1].Tag)
	assert.True(t, strings.HasPrefix(res.Context, "요청 구간: 2025-08-11 13:00 ~ 2025-08-11 15:00 (시간별 파일 2/3개)"))
	assert.Contains(t, res.Context, "누락된 시간: 08-11 15시")

	require.NotNil(t, s.FollowupContext)
	assert.Equal(t, core.FollowupTimeRange, s.FollowupContext.Type)
	assert.Equal(t, "2025-08-11 13:00", s.FollowupContext.Data["start"])
	assert.Equal(t, "2025-08-11 15:00", s.FollowupContext.Data["end"])
	assert.Equal(t, "range", s.LastSensorWindow.Window)
	assert.Len(t, s.LastSensorWindow.Rows, 2)
}

// brokenHour fails listings under one hour prefix.
type brokenHour struct {
	*objstore.Memory
	prefix string
}

func (b brokenHour) List(ctx context.Context, prefix string, limit int) ([]core.ObjectInfo, error) {
	if strings.HasPrefix(prefix, b.prefix) {
		return nil, errors.New("bucket unavailable")
	}
	return b.Memory.List(ctx, prefix, limit)
}

func TestRetrieve_TimeRangeStoreFailure(t *testing.T) {
	var buf bytes.Buffer
	ctx := zerolog.New(&buf).WithContext(context.Background())
	h := newHarness(brokenHour{Memory: fixtures(), prefix: "houravg/2025/08/11/14/"}, nil)

	res, err := h.r.Retrieve(ctx, "2025년 8월 11일 13시부터 15시까지 온도", newSession())
	require.NoError(t, err)
	assert.Equal(t, []string{hour13}, ids(res.Documents))
	assert.Contains(t, res.Context, "누락된 시간: 08-11 15시")
	assert.Contains(t, res.Context, "조회 실패한 시간: 08-11 14시")
	assert.NotContains(t, res.Context, "누락된 시간: 08-11 14시")
	assert.Contains(t, buf.String(), "range hour lookup failed")
	assert.Contains(t, buf.String(), "bucket unavailable")

	// nothing but failures is an error, not missing data
	h = newHarness(brokenHour{Memory: fixtures(), prefix: "houravg/"}, nil)
	_, err = h.r.Retrieve(ctx, "2025년 8월 11일 13시부터 14시까지 온도", newSession())
	assert.Error(t, err)
}

func TestRetrieve_MultiPoint(t *testing.T) {
	h := newHarness(fixtures(), nil)

	res, err := h.r.Retrieve(context.Background(), "2025년 8월 11일 14시 20분과 14시 5분 온도 비교", newSession())
	require.NoError(t, err)
	assert.Equal(t, PathMultiPoint, res.Path)
	assert.Equal(t, []string{min1420, min1405}, ids(res.Documents), "documents follow query order")
	assert.Equal(t, "D1", res.Documents[0].Tag)
	assert.Equal(t, "D2", res.Documents[1].Tag)
}

func TestRetrieve_DailyAverage(t *testing.T) {
	h := newHarness(fixtures(), nil)
	s := core.NewSession("s1", fixedNow)

	res, err := h.r.Retrieve(context.Background(), "2025년 8월 11일 하루 평균 온도", s)
	require.NoError(t, err)
	assert.Equal(t, PathDailyAverage, res.Path)
	require.Len(t, res.Documents, 1)
	doc := res.Documents[0]
	assert.Equal(t, "houravg/2025/08/11/", doc.ID)
	assert.Contains(t, doc.RawText, "시간별 평균 파일 2개, 13시~14시")
	assert.Contains(t, doc.RawText, "온도: 평균 25.00, 최저 24 (13시), 최고 26 (14시), 추이 상승 (+8.3%)")
	assert.Contains(t, doc.RawText, "14시 온도 26 습도 52 이산화탄소(CO2) 430")

	require.NotNil(t, s.FollowupContext)
	assert.Equal(t, core.FollowupDailyAverage, s.FollowupContext.Type)
	assert.Equal(t, "2025-08-11", s.FollowupContext.Data["date"])
}

func TestRetrieve_Extrema(t *testing.T) {
	h := newHarness(fixtures(), nil)
	s := core.NewSession("s1", fixedNow)

	res, err := h.r.Retrieve(context.Background(), "어제 가장 더운 시간", s)
	require.NoError(t, err)
	assert.Equal(t, PathExtrema, res.Path)
	require.Len(t, res.Documents, 1)
	assert.Equal(t, raw0810, res.Documents[0].ID)
	assert.Equal(t, "2025-08-10 온도 최고: 28.4 (2025-08-10 15:00)", res.Documents[0].Note, "ties go to the earlier reading")
	require.NotNil(t, s.FollowupTimestamp)
	assert.Equal(t, time.Date(2025, 8, 10, 15, 0, 0, 0, core.KST), *s.FollowupTimestamp)
}

func TestRetrieve_ExtremaNoData(t *testing.T) {
	h := newHarness(fixtures(), nil)

	res, err := h.r.Retrieve(context.Background(), "2025년 8월 1일 가장 추운 시간", newSession())
	require.NoError(t, err)
	assert.True(t, res.NoData)
	assert.Contains(t, res.Context, "2025-08-01의 온도 데이터를 찾을 수 없습니다.")
}

func TestRetrieve_RecentOffset(t *testing.T) {
	h := newHarness(fixtures(), nil)
	s := core.NewSession("s1", fixedNow)

	res, err := h.r.Retrieve(context.Background(), "10분 전 온도", s)
	require.NoError(t, err)
	assert.Equal(t, PathRecent, res.Path)
	require.Len(t, res.Documents, 1)
	assert.Equal(t, min1420, res.Documents[0].ID)
	assert.Contains(t, res.Documents[0].Note, "150분 차이")
	require.NotNil(t, s.FollowupTimestamp)
	assert.Equal(t, time.Date(2025, 8, 11, 14, 20, 0, 0, core.KST), *s.FollowupTimestamp)
}

func TestRetrieve_Fallback(t *testing.T) {
	store := fixtures()
	store.PutString(trend0811, `{"data":{"mintemp":24.3,"minhum":55,"mingas":410}}`)
	h := newHarness(store, nil)

	res, err := h.r.Retrieve(context.Background(), "온도 알려줘", newSession())
	require.NoError(t, err)
	assert.Equal(t, PathFallback, res.Path)
	assert.ElementsMatch(t, []string{hour13, hour14, min1405, min1420}, ids(res.Documents))
	for i := 1; i < len(res.Documents); i++ {
		prev, cur := res.Documents[i-1], res.Documents[i]
		assert.True(t, prev.Score > cur.Score || (prev.Score == cur.Score && prev.ID < cur.ID))
	}
}

func TestRetrieve_FallbackTopK(t *testing.T) {
	h := newHarness(fixtures(), func(c *config.RetrievalConfig) { c.TopK = 2 })

	res, err := h.r.Retrieve(context.Background(), "온도 알려줘", newSession())
	require.NoError(t, err)
	assert.Len(t, res.Documents, 2)
}

func TestRetrieve_Idempotent(t *testing.T) {
	h := newHarness(fixtures(), nil)
	for _, q := range []string{"온도 알려줘", "2025년 8월 11일 13시부터 15시까지 온도", "10분 전 습도"} {
		first, err := h.r.Retrieve(context.Background(), q, newSession())
		require.NoError(t, err)
		second, err := h.r.Retrieve(context.Background(), q, newSession())
		require.NoError(t, err)
		assert.Equal(t, ids(first.Documents), ids(second.Documents), q)
		assert.Equal(t, first.Context, second.Context, q)
	}
}

func TestRetrieve_NoData(t *testing.T) {
	h := newHarness(objstore.NewMemory("empty"), nil)

	res, err := h.r.Retrieve(context.Background(), "2025년 8월 11일 14시 5분 온도", newSession())
	require.NoError(t, err)
	assert.True(t, res.NoData)
	require.Len(t, res.Documents, 1)
	assert.Contains(t, res.Context, "[D1] (데이터 없음)")

	res, err = h.r.Retrieve(context.Background(), "온도 알려줘", newSession())
	require.NoError(t, err)
	assert.True(t, res.Empty())
	assert.Empty(t, res.Context)
}

func TestRetrieve_FollowupRoundTrip(t *testing.T) {
	h := newHarness(fixtures(), nil)
	s := core.NewSession("s1", fixedNow)

	_, err := h.r.Retrieve(context.Background(), "2025년 8월 11일 14시 5분 온도", s)
	require.NoError(t, err)

	expanded := h.fm.Expand("그때 공기질은?", s)
	assert.Contains(t, expanded, "2025년 08월 11일 14시 05분")

	res, err := h.r.Retrieve(context.Background(), expanded, s)
	require.NoError(t, err)
	require.Len(t, res.Documents, 1)
	assert.Equal(t, min1405, res.Documents[0].ID)
}

func TestAssemble_Budget(t *testing.T) {
	h := newHarness(fixtures(), func(c *config.RetrievalConfig) { c.ContextLimitChars = 80 })
	docs := []core.SensorDocument{
		{ID: min1405, Tag: "D1", RawText: strings.Repeat("가", 30)},
		{ID: min1420, Tag: "D2", RawText: strings.Repeat("나", 30)},
	}

	out := h.r.assemble("", docs)
	assert.LessOrEqual(t, utf8.RuneCountInString(out), 80)
	assert.True(t, strings.HasSuffix(out, truncationMarker))
	assert.NotContains(t, out, "[D2]")
}

func TestAssemble_Unlimited(t *testing.T) {
	h := newHarness(fixtures(), nil)
	docs := []core.SensorDocument{
		{ID: min1405, Tag: "D1", Note: "note", RawText: "a"},
		{Tag: "D2", RawText: "b"},
	}
	want := "pre\n---\n[D1] (mem://sensors/" + min1405 + ")\nnote\na\n---\n[D2] (데이터 없음)\nb"
	assert.Equal(t, want, h.r.assemble("pre", docs))
}

func TestProbe(t *testing.T) {
	h := newHarness(fixtures(), nil)
	ok, err := h.r.Probe(context.Background(), "오늘 온도 어때")
	require.NoError(t, err)
	assert.True(t, ok)

	only := objstore.NewMemory("sensors")
	only.PutString("houravg/2025/08/11/14/2025081114_houravg.json", `not json`)
	h = newHarness(only, nil)
	ok, err = h.r.Probe(context.Background(), "오늘 온도 어때")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRetrieve_RequiresSession(t *testing.T) {
	h := newHarness(fixtures(), nil)
	_, err := h.r.Retrieve(context.Background(), "온도 알려줘", nil)
	assert.ErrorIs(t, err, ErrNoSession)
}
