package align

import "strings"

// maxOutlierWords bounds the size of a segment the repair pass may
// reassign. Longer outliers are treated as genuine turns, not noise.
const maxOutlierWords = 15

// Repair corrects isolated single-segment speaker anomalies: an interior
// segment whose neighbors agree on a different speaker is reassigned to
// that speaker if it is short enough to be attribution noise. Single pass,
// not iterated to a fixed point; the input is returned unchanged when it
// has fewer than three segments. Idempotent on inputs with no eligible
// anomaly.
func Repair(segments []SpeakerSegment) []SpeakerSegment {
	if len(segments) < 3 {
		return segments
	}
	for i := 1; i < len(segments)-1; i++ {
		prev := segments[i-1].Speaker
		next := segments[i+1].Speaker
		if prev != next || segments[i].Speaker == prev {
			continue
		}
		if len(strings.Fields(segments[i].Text)) < maxOutlierWords {
			segments[i].Speaker = prev
		}
	}
	return segments
}
