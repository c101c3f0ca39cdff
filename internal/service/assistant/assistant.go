// Package assistant runs one conversational turn end to end: session
// load, routing, retrieval, answer generation and persistence.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/sandevgo/airbot/internal/config"
	"github.com/sandevgo/airbot/internal/core"
	"github.com/sandevgo/airbot/internal/metrics"
	"github.com/sandevgo/airbot/internal/sensor/intent"
	"github.com/sandevgo/airbot/internal/sensor/retrieval"
	"github.com/sandevgo/airbot/internal/service/followup"
	"github.com/sandevgo/airbot/internal/service/session"
	"github.com/sandevgo/airbot/pkg/log"
)

type Mode string

const (
	ModeRAG     Mode = "rag"
	ModeGeneral Mode = "general"
	ModeError   Mode = "error"
)

const (
	noDataAnswer     = "죄송합니다. 요청하신 시간대의 센서 데이터를 찾을 수 없습니다."
	sensorFailAnswer = "죄송합니다. 센서 데이터를 조회하는 중 문제가 발생했습니다. 잠시 후 다시 시도해 주세요."
	llmFailAnswer    = "죄송합니다. 답변을 생성하는 중 오류가 발생했습니다: %v"
	turnFailAnswer   = "죄송합니다. 요청을 처리하는 중 오류가 발생했습니다."
)

var ErrEmptyQuery = errors.New("query is empty")

type Request struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
}

type Response struct {
	Answer         string     `json:"answer"`
	Route          core.Route `json:"route"`
	SessionID      string     `json:"session_id"`
	TurnID         int        `json:"turn_id"`
	ProcessingTime float64    `json:"processing_time"`
	Mode           Mode       `json:"mode"`
	Error          string     `json:"error,omitempty"`
	Traceback      string     `json:"traceback,omitempty"`
}

type Decider interface {
	Decide(ctx context.Context, query string) core.Route
}

type Retriever interface {
	Retrieve(ctx context.Context, query string, s *core.Session) (*retrieval.Result, error)
}

type Assistant struct {
	sessions  *session.Manager
	router    Decider
	retriever Retriever
	followup  *followup.Manager
	llm       core.Completer
	chatlog   core.ChatLog
	prompts   *Prompts
	llmCfg    *config.LLMConfig
	sessCfg   *config.SessionConfig
	topK      int
}

func New(
	sessions *session.Manager,
	router Decider,
	retriever Retriever,
	fm *followup.Manager,
	llm core.Completer,
	chatlog core.ChatLog,
	llmCfg *config.LLMConfig,
	sessCfg *config.SessionConfig,
	topK int,
	now core.Clock,
) *Assistant {
	return &Assistant{
		sessions:  sessions,
		router:    router,
		retriever: retriever,
		followup:  fm,
		llm:       llm,
		chatlog:   chatlog,
		prompts:   NewPrompts(sessCfg.PromptHistoryTurns, now),
		llmCfg:    llmCfg,
		sessCfg:   sessCfg,
		topK:      topK,
	}
}

// turn carries what one Ask call learns on its way.
type turn struct {
	query    string
	expanded string
	route    core.Route
	answer   string
	docs     []core.SensorDocument
}

// Ask answers one query. It never panics and always returns a response
// carrying the best known session and turn ids.
func (a *Assistant) Ask(ctx context.Context, req Request) (resp Response) {
	start := time.Now()
	resp.SessionID = strings.TrimSpace(req.SessionID)
	if resp.SessionID == "" {
		resp.SessionID = a.sessions.NewID()
	}
	logger := log.FromCtx(ctx).With().Str("session", resp.SessionID).Logger()
	ctx = logger.WithContext(ctx)

	defer func() {
		if p := recover(); p != nil {
			logger.Error().Interface("panic", p).Msg("turn panicked")
			resp = failure(resp, fmt.Errorf("panic: %v", p), string(debug.Stack()))
		}
		resp.ProcessingTime = time.Since(start).Seconds()
		metrics.ObserveTurn(string(resp.Route), time.Since(start))
	}()

	if err := core.ValidateSessionID(resp.SessionID); err != nil {
		resp.SessionID = ""
		return failure(resp, err, "")
	}
	if strings.TrimSpace(req.Query) == "" {
		return failure(resp, ErrEmptyQuery, "")
	}

	unlock := a.sessions.Lock(resp.SessionID)
	defer unlock()

	s, err := a.sessions.GetOrCreate(ctx, resp.SessionID)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load session")
		return failure(resp, err, "")
	}
	s.TurnID++
	resp.TurnID = s.TurnID

	t := a.run(ctx, strings.TrimSpace(req.Query), s)
	a.finish(ctx, s, t)

	resp.Answer = t.answer
	resp.Route = t.route
	resp.Mode = modeOf(t.route)
	return resp
}

func (a *Assistant) run(ctx context.Context, q string, s *core.Session) *turn {
	t := &turn{query: q}
	if w := s.LastSensorWindow; w != nil && len(w.Rows) > 0 && intent.WantsDetail(q) {
		t.route = core.RouteSensorDetail
		t.answer = renderDetail(w)
		return t
	}

	t.expanded = a.followup.Expand(q, s)
	if t.expanded != q {
		log.FromCtx(ctx).Debug().Str("expanded", t.expanded).Msg("follow-up query expanded")
	}

	if a.router.Decide(ctx, t.expanded) == core.RouteSensor {
		a.answerSensor(ctx, t, s)
	} else {
		a.answerGeneral(ctx, t, s)
	}
	return t
}

func (a *Assistant) answerSensor(ctx context.Context, t *turn, s *core.Session) {
	logger := log.FromCtx(ctx)

	// a fresh sensor question replaces what detail replay would show
	s.LastSensorWindow = nil

	res, err := a.retriever.Retrieve(ctx, t.expanded, s)
	if err != nil {
		logger.Error().Err(err).Msg("sensor retrieval failed")
		t.route, t.answer = core.RouteSensorError, sensorFailAnswer
		return
	}
	if res.Empty() {
		t.route, t.answer = core.RouteSensorNoData, noDataAnswer
		return
	}
	t.docs = res.Documents

	prompt := a.prompts.Sensor(t.expanded, res.Context, s.History)
	answer, err := a.complete(ctx, prompt)
	if err != nil {
		logger.Error().Err(err).Msg("sensor answer generation failed")
		t.route, t.answer = core.RouteSensorError, fmt.Sprintf(llmFailAnswer, err)
		return
	}
	t.route, t.answer = core.RouteSensor, answer
}

func (a *Assistant) answerGeneral(ctx context.Context, t *turn, s *core.Session) {
	answer, err := a.complete(ctx, a.prompts.General(t.query, s.History))
	if err != nil {
		log.FromCtx(ctx).Error().Err(err).Msg("general answer generation failed")
		t.route, t.answer = core.RouteGeneralError, fmt.Sprintf(llmFailAnswer, err)
		return
	}
	t.route, t.answer = core.RouteGeneral, answer
}

func (a *Assistant) complete(ctx context.Context, prompt string) (string, error) {
	out, err := a.llm.Complete(ctx, core.UserPrompt(prompt, a.llmCfg.MaxTokens, a.llmCfg.Temperature, a.llmCfg.TopP))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// finish appends history, persists the session and logs the turn.
// Persistence failures are logged; the answer still goes out.
func (a *Assistant) finish(ctx context.Context, s *core.Session, t *turn) {
	logger := log.FromCtx(ctx)

	s.AppendHistory(core.Turn{Query: t.query, Answer: t.answer, Route: t.route}, a.sessCfg.MaxHistoryTurns)
	if err := a.sessions.Save(ctx, s); err != nil {
		logger.Error().Err(err).Msg("failed to save session")
	}

	if a.chatlog == nil {
		return
	}
	rec := core.TurnRecord{
		SessionID:     s.ID,
		TurnID:        s.TurnID,
		Route:         t.route,
		Query:         t.query,
		Answer:        t.answer,
		Docs:          a.docMeta(t.docs),
		LastSensorCtx: s.LastSensorWindow,
	}
	if err := a.chatlog.WriteTurn(ctx, rec); err != nil {
		logger.Warn().Err(err).Msg("failed to write chat log")
	}
}

// docMeta keeps the top documents that point at a stored object.
func (a *Assistant) docMeta(docs []core.SensorDocument) []core.SensorDocument {
	out := make([]core.SensorDocument, 0, len(docs))
	for _, d := range docs {
		if d.ID == "" {
			continue
		}
		out = append(out, d)
		if a.topK > 0 && len(out) == a.topK {
			break
		}
	}
	return out
}

func modeOf(r core.Route) Mode {
	switch {
	case r == core.RouteError || r == "":
		return ModeError
	case r.IsSensor():
		return ModeRAG
	default:
		return ModeGeneral
	}
}

// Failure is the response for a request that never reached a turn, such
// as unreadable input. It carries no turn id.
func Failure(sessionID string, err error) Response {
	return failure(Response{SessionID: sessionID}, err, string(debug.Stack()))
}

func failure(resp Response, err error, trace string) Response {
	resp.Answer = turnFailAnswer
	resp.Route = core.RouteError
	resp.Mode = ModeError
	resp.Error = err.Error()
	resp.Traceback = trace
	return resp
}
