package retrieval

import (
	"strings"
	"unicode/utf8"

	"github.com/sandevgo/airbot/internal/core"
)

const (
	separator        = "\n---\n"
	truncationMarker = "\n[문서가 길어 일부만 표시됩니다...]"
)

// assemble renders documents as "[Dn] (uri)" blocks. The result never
// exceeds ContextLimitChars runes; the first block that does not fit is
// cut and marked, the rest are dropped.
func (r *Retriever) assemble(preamble string, docs []core.SensorDocument) string {
	limit := r.cfg.ContextLimitChars
	var (
		parts []string
		used  int
	)
	add := func(block string) bool {
		cost := utf8.RuneCountInString(block)
		sep := 0
		if len(parts) > 0 {
			sep = utf8.RuneCountInString(separator)
		}
		if limit <= 0 || used+sep+cost <= limit {
			parts = append(parts, block)
			used += sep + cost
			return true
		}
		room := limit - used - sep - utf8.RuneCountInString(truncationMarker)
		if room > 0 {
			parts = append(parts, truncateRunes(block, room)+truncationMarker)
		}
		return false
	}

	if preamble != "" && !add(preamble) {
		return strings.Join(parts, separator)
	}
	for _, d := range docs {
		if !add(r.block(d)) {
			break
		}
	}
	return strings.Join(parts, separator)
}

func (r *Retriever) block(d core.SensorDocument) string {
	uri := "데이터 없음"
	if d.ID != "" {
		uri = r.store.URI(d.ID)
	}
	var b strings.Builder
	b.WriteString("[" + d.Tag + "] (" + uri + ")\n")
	if d.Note != "" {
		b.WriteString(d.Note + "\n")
	}
	b.WriteString(d.RawText)
	return b.String()
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
