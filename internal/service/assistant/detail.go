package assistant

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sandevgo/airbot/internal/core"
)

var windowLabels = map[string]string{
	"point":    "단일 시각",
	"multi":    "복수 시각",
	"range":    "구간",
	"daily":    "일간",
	"extrema":  "최고/최저",
	"recent":   "최신",
	"closest":  "근접 시각",
	"fallback": "검색 결과",
}

// renderDetail lists every row of the last sensor window.
func renderDetail(w *core.SensorWindow) string {
	label := windowLabels[w.Window]
	if label == "" {
		label = w.Window
	}
	if w.Label != "" {
		label += " " + w.Label
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s 상세] %s ~ %s | 샘플 %d개",
		label, w.Start.In(core.KST).Format(time.DateTime), w.End.In(core.KST).Format(time.DateTime), len(w.Rows))
	for _, r := range w.Rows {
		var parts []string
		if v, ok := r.Value(core.FieldTemperature); ok {
			parts = append(parts, "T="+num(v))
		}
		if v, ok := r.Value(core.FieldHumidity); ok {
			parts = append(parts, "H="+num(v))
		}
		if v, ok := r.Value(core.FieldGas); ok {
			parts = append(parts, "CO2="+num(v))
		}
		b.WriteString("\n" + r.Timestamp.In(core.KST).Format(time.DateTime) + " | " + strings.Join(parts, ", "))
	}
	if w.Tag != "" {
		b.WriteString(" [" + w.Tag + "]")
	}
	return b.String()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
