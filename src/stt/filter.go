package stt

import (
	"regexp"
	"strings"
	"unicode"
)

// Phrases Whisper reliably invents over silence or line noise.
// Matched case-insensitively against the whole trimmed transcript.
var hallucinatedPhrases = map[string]bool{
	"thank you.":            true,
	"thank you":             true,
	"thanks for watching!":  true,
	"thanks for watching.":  true,
	"thank you for watching.": true,
	"bye.":                  true,
	"bye bye.":              true,
	"you":                   true,
	"okay.":                 true,
	"so.":                   true,
	"um.":                   true,
	"uh.":                   true,
}

var bracketedOnly = regexp.MustCompile(`^[\[(][^\[\]()]*[\])][.!?]?$`)

// FilterTranscript normalizes a raw engine transcript, returning ""
// for anything that should be treated as "nothing said": empty or
// whitespace output, punctuation-only output, bracketed annotations
// like "[BLANK_AUDIO]" or "(coughs)", and the usual silence
// hallucinations.
func FilterTranscript(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}

	if hallucinatedPhrases[strings.ToLower(text)] {
		return ""
	}

	if bracketedOnly.MatchString(text) {
		return ""
	}

	hasContent := false
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			hasContent = true
			break
		}
	}
	if !hasContent {
		return ""
	}

	return text
}
