package textfilter

import (
	"strings"
	"unicode"
)

// boilerplate lists phrases the transcription model produces for silent or
// noise-only audio, across the languages it most often hallucinates in.
// Matching is case-insensitive against the trimmed transcription.
var boilerplate = []string{
	"Thank you for watching!",
	"Thank you for watching",
	"ご視聴ありがとうございました",
	"ご視聴ありがとうございました。",
	"¡Gracias por ver!",
	"시청해주셔서 감사합니다",
	"시청해주셔서 감사합니다!",
}

// minLength is the shortest trimmed transcription worth delivering.
const minLength = 3

// Clean trims a raw transcription and reports whether it should be
// delivered. It returns ("", false) for empty or too-short text, text with
// no alphabetic content, and known boilerplate phrases.
func Clean(transcription string) (string, bool) {
	trimmed := strings.TrimSpace(transcription)
	if len(trimmed) < minLength {
		return "", false
	}

	if !containsLetter(trimmed) {
		return "", false
	}

	for _, phrase := range boilerplate {
		if strings.EqualFold(trimmed, phrase) {
			return "", false
		}
	}

	return trimmed, true
}

func containsLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
