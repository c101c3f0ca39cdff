package schema

import (
	"bufio"
	"encoding/json"
	"errors"
	"strings"
)

var ErrUnparsable = errors.New("document is not json")

// Parse decodes a document leniently: the whole text, then JSON Lines,
// then the span between the first opening and last closing bracket.
func Parse(text string) (any, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrUnparsable
	}

	var v any
	if err := json.Unmarshal([]byte(text), &v); err == nil {
		return v, nil
	}

	if items := parseLines(text); len(items) > 0 {
		return items, nil
	}

	start := strings.IndexAny(text, "{[")
	end := strings.LastIndexAny(text, "}]")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(text[start:end+1]), &v); err == nil {
			return v, nil
		}
	}
	return nil, ErrUnparsable
}

func parseLines(text string) []any {
	var items []any
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var v any
		if err := json.Unmarshal([]byte(line), &v); err != nil {
			continue
		}
		items = append(items, v)
	}
	return items
}
