package rsvp

import "strings"

// Dwell multipliers. Sentence-ending punctuation holds the frame longest;
// clause punctuation holds it a little; multi-word groups scale with word
// count discounted by 0.8 since grouped words read faster than their sum.
const (
	sentencePauseFactor = 2.5
	clausePauseFactor   = 1.5
	groupReadDiscount   = 0.8
)

// DisplayDuration returns the display time in seconds for one word group.
// It is a pure function: identical inputs always yield bit-identical
// output, which the end-to-end runtime invariant depends on.
func DisplayDuration(group string, wpm int, pauseOnPunctuation bool) float64 {
	base := 60.0 / float64(wpm)

	if pauseOnPunctuation {
		trimmed := strings.TrimRight(group, " \t\n\r")
		if strings.HasSuffix(trimmed, ".") || strings.HasSuffix(trimmed, "!") || strings.HasSuffix(trimmed, "?") {
			return base * sentencePauseFactor
		}
		if strings.HasSuffix(trimmed, ",") || strings.HasSuffix(trimmed, ";") || strings.HasSuffix(trimmed, ":") {
			return base * clausePauseFactor
		}
	}

	words := float64(len(strings.Fields(group)))
	factor := words * groupReadDiscount
	if factor < 1 {
		factor = 1
	}
	return base * factor
}
