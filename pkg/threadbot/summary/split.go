package summary

import (
	"strings"
	"unicode/utf8"
)

// DefaultMaxMessageLength is Discord's per-message content limit.
const DefaultMaxMessageLength = 2000

// splitMessage splits text into chunks of at most maxLen bytes, preferring
// line boundaries and never cutting inside a UTF-8 sequence.
func splitMessage(text string, maxLen int) []string {
	if maxLen <= 0 || len(text) <= maxLen {
		return []string{text}
	}
	var chunks []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			chunks = append(chunks, text)
			break
		}
		cutAt := maxLen
		if idx := strings.LastIndex(text[:maxLen], "\n"); idx > maxLen/2 {
			cutAt = idx + 1
		} else {
			for cutAt > 0 && !utf8.RuneStart(text[cutAt]) {
				cutAt--
			}
			if cutAt == 0 {
				cutAt = maxLen
			}
		}
		chunks = append(chunks, text[:cutAt])
		text = text[cutAt:]
	}
	return chunks
}
