package assistant

import (
	"strconv"
	"strings"

	"github.com/sandevgo/airbot/internal/core"
)

const (
	historyAnswerLimit = 1000
	historyEllipsis    = " …(이하 생략)"
	promptTimeLayout   = "2006년 01월 02일 15시 04분"
	emptyContext       = "데이터를 찾을 수 없습니다."
)

var sensorGuidelines = []string{
	"없는 데이터는 없다고 말해",
	"요청한 정확한 시간에 데이터가 없을 때는 '해당 시간의 데이터는 없다'고 먼저 밝힌 뒤, 가장 가까운 시간의 데이터를 제공하며 그 시간을 정확히 언급해",
	"질문한 내용을 명확히 짚고 현재 상황을 친근하게 설명해",
	"측정 시점을 24시간제로 정확히 언급해 (예: '8월 11일 14시 1분')",
	"상황에 맞는 실용적인 조언을 해 (에어컨, 환기, 제습기 등)",
	"건강이나 편안함과 관련된 팁을 제공해",
	"온도 기준: 18도 미만(춥다), 18-22도(시원), 22-26도(적정), 26-30도(따뜻), 30도 이상(덥다)",
	"습도 기준: 30% 미만(건조), 30-40%(쾌적), 40-60%(적정), 60-70%(습함), 70% 이상(매우 습함)",
	"CO2 기준: 400ppm 미만(매우 깨끗), 400-600ppm(좋음), 600-1000ppm(보통), 1000-1500ppm(환기 필요), 1500ppm 이상(환기 권장)",
	"반드시 데이터 출처 태그([D1], [D2] 등)를 포함해",
	"이모티콘은 사용하지 마",
	"**은 사용하지 마",
	"사용자가 질문한 센서 정보만 답변해 (온도만 물으면 온도만, 습도만 물으면 습도만, 공기질만 물으면 이산화탄소만)",
	"공기질, gas, CO2는 모두 이산화탄소로 대답해",
	"몇 시간 전 데이터를 물을 때 같은 시각, 같은 분이면 같은 데이터야",
	"이전 대화 기록을 물으면 [이전 대화] 섹션을 참조해서 물어본 것에만 정확하게 대답해",
	"여러 시간을 물은 뒤 '방금 물어본 시간'이라고 하면 가장 마지막 시간을 뜻해",
	"여러 시간대를 동시에 물으면 시간대마다 소제목을 따로 두고 '시간1 결과:', '시간2 결과:' 형식으로 데이터 또는 '데이터 없음'을 정리해",
	"'현재 시간'이나 '지금'을 말할 때는 반드시 위의 현재 시간을 사용하고, 센서 데이터의 시간과 명확히 구분해",
	"몇 월인지 말하지 않으면 현재 있는 데이터에 기반해서 말해",
	"컨텍스트에 없는 내용은 추측하지 마",
}

var generalGuidelines = []string{
	"이전 대화나 질문 기록을 물으면 [이전 대화] 섹션을 정확히 참조해서 답변해",
	"'내가 물어본 질문', '방금 뭐라고 했어' 등은 이전 대화에서 정확히 찾아서 답변해",
	"모르는 내용은 추측하지 말고 모른다고 답변해",
	"**은 사용하지 마",
}

// Prompts renders the two answer prompts. Only the newest historyTurns
// turns are shown to the model.
type Prompts struct {
	historyTurns int
	now          core.Clock
}

func NewPrompts(historyTurns int, now core.Clock) *Prompts {
	if now == nil {
		now = core.Now
	}
	return &Prompts{historyTurns: historyTurns, now: now}
}

func (p *Prompts) Sensor(query, sensorContext string, history []core.Turn) string {
	var b strings.Builder
	b.WriteString("당신은 친근하고 전문적인 스마트홈 어시스턴트야. 실시간 센서 데이터를 바탕으로 사용자에게 도움이 되는 정보를 제공해.\n\n")
	b.WriteString("현재 시간: " + p.currentTime() + "\n")
	b.WriteString("사용자가 현재 시간을 묻거나 '지금', '현재'라는 표현을 쓰면 반드시 위의 현재 시간을 사용해. 이전 대화나 센서 데이터의 시간과 혼동하지 마.\n\n")
	writeGuidelines(&b, sensorGuidelines)
	b.WriteString(p.historyBlock(history))

	if strings.TrimSpace(sensorContext) == "" {
		sensorContext = emptyContext
	}
	b.WriteString("센서 데이터:\n" + sensorContext + "\n\n")
	b.WriteString("사용자 질문: " + query + "\n\n")
	b.WriteString("위 센서 데이터를 참고해서 친근하고 도움이 되는 답변을 해")
	return b.String()
}

func (p *Prompts) General(query string, history []core.Turn) string {
	var b strings.Builder
	b.WriteString("너는 유능한 AI 어시스턴트야. 사용자의 질문에 대해 친절하고 정확하게 답변해줘.\n")
	b.WriteString("필요한 만큼 충분히 설명하되, 명확하고 이해하기 쉽게 답변해줘.\n\n")
	writeGuidelines(&b, generalGuidelines)
	b.WriteString("현재 시간: " + p.currentTime() + "\n")
	b.WriteString("사용자가 현재 시간을 물어보면 위 현재 시간으로 답변해줘.\n\n")
	b.WriteString(p.historyBlock(history))
	b.WriteString("[질문]\n" + query)
	return b.String()
}

func (p *Prompts) currentTime() string {
	return p.now().In(core.KST).Format(promptTimeLayout)
}

func writeGuidelines(b *strings.Builder, lines []string) {
	b.WriteString("답변 가이드라인:\n")
	for i, l := range lines {
		b.WriteString(strconv.Itoa(i+1) + ". " + l + "\n")
	}
	b.WriteString("\n")
}

func (p *Prompts) historyBlock(history []core.Turn) string {
	if p.historyTurns > 0 && len(history) > p.historyTurns {
		history = history[len(history)-p.historyTurns:]
	}
	if len(history) == 0 {
		return ""
	}
	entries := make([]string, 0, len(history))
	for _, t := range history {
		entries = append(entries, "Q: "+t.Query+"\nA: "+clip(t.Answer, historyAnswerLimit))
	}
	return "[이전 대화(참고용)]\n" + strings.Join(entries, "\n\n") + "\n\n"
}

// clip keeps the first n runes and marks the cut.
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + historyEllipsis
}
