package scoring

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/sandevgo/airbot/internal/core"
)

var tokenRe = regexp.MustCompile(`[A-Za-z0-9가-힣_:+\-]+`)

// synonyms folds Korean and short field names onto the canonical field
// names used inside sensor documents.
var synonyms = map[string]core.Field{
	"온도":          core.FieldTemperature,
	"기온":          core.FieldTemperature,
	"temp":        core.FieldTemperature,
	"temperature": core.FieldTemperature,
	"습도":          core.FieldHumidity,
	"hum":         core.FieldHumidity,
	"humidity":    core.FieldHumidity,
	"공기질":         core.FieldGas,
	"가스":          core.FieldGas,
	"gas":         core.FieldGas,
	"ppm":         core.FieldGas,
	"co2":         core.FieldGas,
	"이산화탄소":       core.FieldGas,
}

// koreanSynonyms are matched as prefixes so particles ("온도는") still map.
var koreanSynonyms = []string{"이산화탄소", "공기질", "온도", "기온", "습도", "가스"}

// Tokens lowercases the query, splits it and maps field synonyms.
func Tokens(query string) []string {
	raw := tokenRe.FindAllString(strings.ToLower(query), -1)
	out := make([]string, 0, len(raw))
	for _, tok := range raw {
		out = append(out, normalize(tok))
	}
	return out
}

func normalize(tok string) string {
	if f, ok := synonyms[tok]; ok {
		return string(f)
	}
	for _, k := range koreanSynonyms {
		if strings.HasPrefix(tok, k) {
			return string(synonyms[k])
		}
	}
	// "co2랑": latin head followed by a particle
	if i := strings.IndexFunc(tok, isHangul); i > 0 {
		if f, ok := synonyms[tok[:i]]; ok {
			return string(f)
		}
	}
	return tok
}

func isHangul(r rune) bool {
	return r >= '가' && r <= '힣'
}

// DetectFields returns the sensor fields a query mentions, in canonical
// order.
func DetectFields(query string) []core.Field {
	seen := make(map[core.Field]bool)
	for _, tok := range Tokens(query) {
		seen[core.Field(tok)] = true
	}
	if strings.Contains(strings.ToLower(query), "co₂") {
		seen[core.FieldGas] = true
	}
	var out []core.Field
	for _, f := range core.Fields {
		if seen[f] {
			out = append(out, f)
		}
	}
	return out
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
