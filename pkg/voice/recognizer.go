package voice

import (
	"context"
	"errors"
	"strings"
	"unicode"
)

// ErrRecognizerInit is returned when the recognizer cannot be created or its
// audio input cannot be opened. The turret keeps running without voice.
var ErrRecognizerInit = errors.New("voice: recognizer init failed")

// Recognizer produces transcribed utterances.
//
// Next blocks until the next utterance has been decoded. The first call starts
// audio capture; once Close has been called the recognizer cannot be
// restarted.
type Recognizer interface {
	Next(ctx context.Context) (string, error)
	Close() error
}

// Normalize upper-cases a hypothesis, strips punctuation and collapses
// whitespace, so "Command, search one." matches "COMMAND SEARCH ONE".
func Normalize(text string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return unicode.ToUpper(r)
		case unicode.IsSpace(r), r == '-':
			return ' '
		default:
			return -1
		}
	}, text)
	return strings.Join(strings.Fields(mapped), " ")
}

// Transcript joins decoded segments into one hypothesis. Non-speech
// annotations such as "[BLANK_AUDIO]" or "(music)" and repeated segments are
// dropped.
func Transcript(segments []string) string {
	seen := make(map[string]bool, len(segments))
	parts := make([]string, 0, len(segments))

	for _, s := range segments {
		s = strings.TrimSpace(s)
		if s == "" || annotation(s) || seen[s] {
			continue
		}
		seen[s] = true
		parts = append(parts, s)
	}
	return strings.Join(parts, " ")
}

func annotation(s string) bool {
	first, last := s[0], s[len(s)-1]
	return first == '(' || first == '[' || last == ')' || last == ']'
}
