package utils

import "strings"

// SplitMessage cuts text into ordered chunks of at most limit runes, with no
// content loss. Chunks break on a newline or space near the limit when one
// exists, so words are kept intact where possible.
func SplitMessage(text string, limit int) []string {
	if limit <= 0 || text == "" {
		return []string{text}
	}

	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}

	var parts []string
	for len(runes) > limit {
		cut := limit
		if idx := lastBreak(runes[:limit]); idx > 0 {
			cut = idx
		}
		parts = append(parts, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}

// lastBreak returns the index just past the last newline or space, or -1.
func lastBreak(runes []rune) int {
	s := string(runes)
	if idx := strings.LastIndexByte(s, '\n'); idx >= 0 {
		return len([]rune(s[:idx])) + 1
	}
	if idx := strings.LastIndexByte(s, ' '); idx >= 0 {
		return len([]rune(s[:idx])) + 1
	}
	return -1
}
