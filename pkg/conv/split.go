package conv

import "strings"

// Split cuts text into chunks of at most maxLen bytes, preferring a
// newline in the last two thirds of each chunk and never splitting a
// UTF-8 sequence.
func Split(text string, maxLen int) []string {
	if maxLen <= 0 || len(text) <= maxLen {
		return []string{text}
	}

	var chunks []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			chunks = append(chunks, text)
			break
		}

		cut := maxLen
		for cut > 0 && !isRuneStart(text[cut]) {
			cut--
		}
		if idx := strings.LastIndex(text[:cut], "\n"); idx > maxLen/3 {
			cut = idx
		}

		chunks = append(chunks, text[:cut])
		text = strings.TrimSpace(text[cut:])
	}
	return chunks
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
