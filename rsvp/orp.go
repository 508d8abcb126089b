// Package rsvp implements the core pacing algorithms: text segmentation
// into word groups, per-group display timing, and the Optimal Recognition
// Point (ORP) heuristic that picks the fixation character.
package rsvp

// FixationPoint returns the ORP index within word. The caller passes the
// display string with internal spaces stripped; the index approximates
// eye-fixation research: short words fixate near the start third, long
// words proportionally earlier. The result is always a valid rune index
// for non-empty input.
func FixationPoint(word string) int {
	runes := []rune(word)
	length := len(runes)
	if length <= 1 {
		return 0
	}
	if length <= 5 {
		return length / 3
	}
	if length <= 9 {
		return length / 3
	}
	orp := length / 4
	if orp >= length {
		orp = length - 1
	}
	return orp
}
