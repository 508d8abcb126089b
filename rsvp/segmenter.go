package rsvp

import (
	"fmt"
	"strings"

	"github.com/jleboube/RSVP-Speed-Reading/types"
)

// MaxWords caps the word count of a single job. The bound exists to keep
// pipeline latency and frame-storage usage finite.
const MaxWords = 100000

// WordGroup is one timed display unit: one or more words joined by single
// spaces plus the duration the frame stays on screen. Groups are never
// mutated after Segment returns them.
type WordGroup struct {
	Text     string
	Duration float64
}

// Normalize collapses every whitespace run to a single space and trims the
// ends. All downstream word counting operates on normalized text.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Segment splits normalized text into ordered word groups of groupSize
// words each (the final group may be shorter) and attaches the display
// duration computed from cfg. Segmentation is deterministic: re-invoking
// with the same inputs yields the same groups.
func Segment(text string, cfg types.VideoConfig) ([]WordGroup, error) {
	words := strings.Fields(text)
	if len(words) > MaxWords {
		return nil, &types.ContentError{
			Reason: fmt.Sprintf("text exceeds %d word limit (found %d words)", MaxWords, len(words)),
		}
	}

	size := cfg.WordGrouping
	if size < 1 {
		size = 1
	}

	groups := make([]WordGroup, 0, (len(words)+size-1)/size)
	for i := 0; i < len(words); i += size {
		end := i + size
		if end > len(words) {
			end = len(words)
		}
		joined := strings.Join(words[i:end], " ")
		groups = append(groups, WordGroup{
			Text:     joined,
			Duration: DisplayDuration(joined, cfg.WPM, cfg.PauseOnPunctuation),
		})
	}
	return groups, nil
}

// WordCount returns the number of words in text after normalization.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
