package assistant

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sandevgo/airbot/internal/config"
	"github.com/sandevgo/airbot/internal/core"
	"github.com/sandevgo/airbot/internal/sensor/retrieval"
	"github.com/sandevgo/airbot/internal/sensor/timeparse"
	"github.com/sandevgo/airbot/internal/service/followup"
	"github.com/sandevgo/airbot/internal/service/router"
	"github.com/sandevgo/airbot/internal/service/session"
	"github.com/sandevgo/airbot/internal/storage/objstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 8, 11, 17, 0, 0, 0, core.KST)

func clock() time.Time { return fixedNow }

type fakeLLM struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
}

func (f *fakeLLM) Complete(ctx context.Context, req core.CompletionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, req.Messages[len(req.Messages)-1].Content)
	return f.reply, f.err
}

func (f *fakeLLM) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

type staticRoute core.Route

func (r staticRoute) Decide(ctx context.Context, query string) core.Route { return core.Route(r) }

type stubRetriever struct {
	res   *retrieval.Result
	err   error
	panic bool
}

func (s stubRetriever) Retrieve(ctx context.Context, query string, sess *core.Session) (*retrieval.Result, error) {
	if s.panic {
		panic("store exploded")
	}
	return s.res, s.err
}

type fixture struct {
	a        *Assistant
	llm      *fakeLLM
	sessions *session.Manager
	logs     *objstore.Memory
}

func newFixture(d Decider, r Retriever, llm *fakeLLM) fixture {
	ex := timeparse.New(clock, timeparse.BareHourReject)
	fm := followup.New(ex)
	sessCfg := &config.SessionConfig{Timeout: time.Hour, MaxHistoryTurns: 50, PromptHistoryTurns: 5}
	sessions := session.NewManager(objstore.NewSessionBlobs(objstore.NewMemory("sessions"), "sessions/"), sessCfg, clock)
	logs := objstore.NewMemory("logs")
	llmCfg := &config.LLMConfig{MaxTokens: 1024, Temperature: 0.2, TopP: 0.9}
	a := New(sessions, d, r, fm, llm, objstore.NewChatLog(logs, "chatlogs/", clock), llmCfg, sessCfg, 8, clock)
	return fixture{a: a, llm: llm, sessions: sessions, logs: logs}
}

// newWired uses the real router and retriever over an in-memory store.
func newWired(llm *fakeLLM) fixture {
	store := objstore.NewMemory("sensors")
	store.PutString("minavg/2025/08/11/14/202508111405_minavg.json",
		`{"mintemp":24.3,"minhum":55,"mingas":410,"minute":"2025-08-11 14:05"}`)

	ex := timeparse.New(clock, timeparse.BareHourReject)
	fm := followup.New(ex)
	ret := retrieval.New(store, ex, fm, config.DefaultRetrievalConfig(), 0)
	rt := router.New(router.NewClassifier(llm), ret, ex)

	f := newFixture(rt, ret, llm)
	f.a.followup = fm
	return f
}

func TestAsk_SensorEndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newWired(&fakeLLM{reply: "14시 5분 온도는 24.3도야 [D1]"})

	resp := f.a.Ask(ctx, Request{Query: "2025년 8월 11일 14시 5분 온도 알려줘", SessionID: "s1"})
	assert.Equal(t, core.RouteSensor, resp.Route)
	assert.Equal(t, ModeRAG, resp.Mode)
	assert.Equal(t, "s1", resp.SessionID)
	assert.Equal(t, 1, resp.TurnID)
	assert.Empty(t, resp.Error)
	assert.Contains(t, resp.Answer, "24.3")

	prompt := f.llm.last()
	assert.Contains(t, prompt, "[D1]")
	assert.Contains(t, prompt, "24.3")
	assert.Contains(t, prompt, "현재 시간: 2025년 08월 11일 17시 00분")

	logs, err := f.logs.List(ctx, "chatlogs/s1/", 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.True(t, strings.HasPrefix(logs[0].Key, "chatlogs/s1/0001_"))
	raw, err := f.logs.Get(ctx, logs[0].Key, 0)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "202508111405_minavg.json")
	assert.Contains(t, string(raw), `"tag": "D1"`)
}

func TestAsk_FollowupAndDetail(t *testing.T) {
	ctx := context.Background()
	f := newWired(&fakeLLM{reply: "ok"})

	f.a.Ask(ctx, Request{Query: "2025년 8월 11일 14시 5분 온도 알려줘", SessionID: "s1"})

	resp := f.a.Ask(ctx, Request{Query: "습도는?", SessionID: "s1"})
	assert.Equal(t, core.RouteSensor, resp.Route)
	assert.Equal(t, 2, resp.TurnID)
	assert.Contains(t, f.llm.last(), "사용자 질문: 2025년 08월 11일 14시 05분 습도는?")
	assert.Contains(t, f.llm.last(), "Q: 2025년 8월 11일 14시 5분 온도 알려줘")

	calls := len(f.llm.prompts)
	resp = f.a.Ask(ctx, Request{Query: "상세", SessionID: "s1"})
	assert.Equal(t, core.RouteSensorDetail, resp.Route)
	assert.Equal(t, ModeRAG, resp.Mode)
	assert.Contains(t, resp.Answer, "T=24.3")
	assert.Contains(t, resp.Answer, "H=55")
	assert.Len(t, f.llm.prompts, calls)

	s, err := f.sessions.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 3, s.TurnID)
	require.Len(t, s.History, 3)
	assert.Equal(t, "습도는?", s.History[1].Query)
}

func TestAsk_Routes(t *testing.T) {
	doc := core.SensorDocument{ID: "minavg/k.json", RawText: "{}", Schema: core.SchemaMinAvg}
	tests := []struct {
		name      string
		route     core.Route
		retriever Retriever
		llm       *fakeLLM
		want      core.Route
		mode      Mode
		answer    string
	}{
		{
			name:      "no documents",
			route:     core.RouteSensor,
			retriever: stubRetriever{res: &retrieval.Result{}},
			llm:       &fakeLLM{},
			want:      core.RouteSensorNoData,
			mode:      ModeRAG,
			answer:    noDataAnswer,
		},
		{
			name:      "retrieval failure",
			route:     core.RouteSensor,
			retriever: stubRetriever{err: errors.New("bucket gone")},
			llm:       &fakeLLM{},
			want:      core.RouteSensorError,
			mode:      ModeRAG,
			answer:    sensorFailAnswer,
		},
		{
			name:      "sensor answer failure",
			route:     core.RouteSensor,
			retriever: stubRetriever{res: &retrieval.Result{Documents: []core.SensorDocument{doc}}},
			llm:       &fakeLLM{err: errors.New("rate limited")},
			want:      core.RouteSensorError,
			mode:      ModeRAG,
			answer:    "rate limited",
		},
		{
			name:   "general",
			route:  core.RouteGeneral,
			llm:    &fakeLLM{reply: "  서울이야  "},
			want:   core.RouteGeneral,
			mode:   ModeGeneral,
			answer: "서울이야",
		},
		{
			name:   "general failure",
			route:  core.RouteGeneral,
			llm:    &fakeLLM{err: errors.New("timeout")},
			want:   core.RouteGeneralError,
			mode:   ModeGeneral,
			answer: "timeout",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(staticRoute(tt.route), tt.retriever, tt.llm)
			resp := f.a.Ask(context.Background(), Request{Query: "질문"})
			assert.Equal(t, tt.want, resp.Route)
			assert.Equal(t, tt.mode, resp.Mode)
			assert.Contains(t, resp.Answer, tt.answer)
			assert.NotEmpty(t, resp.SessionID)
			assert.Equal(t, 1, resp.TurnID)
			assert.Empty(t, resp.Error)
		})
	}
}

func TestAsk_PanicBecomesErrorResponse(t *testing.T) {
	f := newFixture(staticRoute(core.RouteSensor), stubRetriever{panic: true}, &fakeLLM{})

	resp := f.a.Ask(context.Background(), Request{Query: "온도", SessionID: "s9"})
	assert.Equal(t, core.RouteError, resp.Route)
	assert.Equal(t, ModeError, resp.Mode)
	assert.Equal(t, "s9", resp.SessionID)
	assert.Equal(t, 1, resp.TurnID)
	assert.Contains(t, resp.Error, "store exploded")
	assert.Contains(t, resp.Traceback, "goroutine")

	// the session lock was released
	resp = f.a.Ask(context.Background(), Request{Query: "온도", SessionID: "s9"})
	assert.Equal(t, core.RouteError, resp.Route)
}

func TestAsk_EmptyQuery(t *testing.T) {
	f := newFixture(staticRoute(core.RouteGeneral), nil, &fakeLLM{})
	resp := f.a.Ask(context.Background(), Request{Query: "   "})
	assert.Equal(t, core.RouteError, resp.Route)
	assert.Equal(t, ErrEmptyQuery.Error(), resp.Error)
	assert.Empty(t, f.llm.prompts)
}

func TestAsk_InvalidSessionID(t *testing.T) {
	f := newFixture(staticRoute(core.RouteGeneral), nil, &fakeLLM{reply: "ok"})
	resp := f.a.Ask(context.Background(), Request{Query: "안녕", SessionID: "../../escaped"})
	assert.Equal(t, core.RouteError, resp.Route)
	assert.Equal(t, ModeError, resp.Mode)
	assert.Empty(t, resp.SessionID)
	assert.Zero(t, resp.TurnID)
	assert.Contains(t, resp.Error, core.ErrInvalidSessionID.Error())
	assert.Empty(t, f.llm.prompts)

	logs, err := f.logs.List(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestPrompts_HistoryWindow(t *testing.T) {
	p := NewPrompts(2, clock)
	history := []core.Turn{
		{Query: "q1", Answer: "a1"},
		{Query: "q2", Answer: strings.Repeat("가", 1200)},
		{Query: "q3", Answer: "a3"},
	}
	out := p.General("지금 몇 시야?", history)
	assert.NotContains(t, out, "Q: q1")
	assert.Contains(t, out, "Q: q2\nA: "+strings.Repeat("가", 1000)+" …(이하 생략)")
	assert.Contains(t, out, "Q: q3\nA: a3")
	assert.True(t, strings.HasSuffix(out, "[질문]\n지금 몇 시야?"))

	out = p.Sensor("온도", "", nil)
	assert.Contains(t, out, "센서 데이터:\n데이터를 찾을 수 없습니다.")
	assert.NotContains(t, out, "이전 대화(참고용)")
}

func TestRenderDetail(t *testing.T) {
	temp, hum := 24.3, 55.0
	w := &core.SensorWindow{
		Window: "point",
		Start:  time.Date(2025, 8, 11, 14, 5, 0, 0, core.KST),
		End:    time.Date(2025, 8, 11, 14, 5, 0, 0, core.KST),
		Rows: []core.SensorRow{
			{Timestamp: time.Date(2025, 8, 11, 14, 5, 0, 0, core.KST), Temperature: &temp, Humidity: &hum},
		},
		Tag: "D1",
	}
	assert.Equal(t,
		"[단일 시각 상세] 2025-08-11 14:05:00 ~ 2025-08-11 14:05:00 | 샘플 1개\n2025-08-11 14:05:00 | T=24.3, H=55 [D1]",
		renderDetail(w))
}
