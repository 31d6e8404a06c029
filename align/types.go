package align

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kbukum/speakerkit/diarization"
)

// DefaultSpeaker is assigned to paragraphs with no matched words.
const DefaultSpeaker = "Speaker 1"

// SpeakerSegment pairs a normalized display speaker label with one
// paragraph of transcript text. The segment sequence always matches the
// paragraph sequence in order and length.
type SpeakerSegment struct {
	// Speaker is the display label, e.g. "Speaker 1".
	Speaker string `json:"speaker"`
	// Text is the paragraph text.
	Text string `json:"text"`
}

// NormalizeLabel converts a raw backend speaker label to a display label.
// A trailing numeric suffix wins: "SPEAKER_03" becomes "Speaker 3". Labels
// without one keep their final underscore-delimited token: "alice" becomes
// "Speaker alice".
func NormalizeLabel(raw string) string {
	if raw == "" {
		return DefaultSpeaker
	}
	suffix := raw
	if idx := strings.LastIndex(raw, "_"); idx != -1 {
		suffix = raw[idx+1:]
	}
	if n, err := strconv.Atoi(suffix); err == nil {
		return fmt.Sprintf("Speaker %d", n)
	}
	return fmt.Sprintf("Speaker %s", suffix)
}

// labeler assigns display labels for one attribution run. Labels with a
// numeric suffix normalize through NormalizeLabel; others get ordinals in
// order of first appearance on the diarization timeline, so an interval
// set labeled X, Y maps to "Speaker 1", "Speaker 2".
type labeler struct {
	assigned    map[string]string
	nextOrdinal int
}

func newLabeler(intervals []diarization.Segment) *labeler {
	l := &labeler{assigned: make(map[string]string), nextOrdinal: 1}
	for _, seg := range intervals {
		l.display(seg.Speaker)
	}
	return l
}

func (l *labeler) display(raw string) string {
	if v, ok := l.assigned[raw]; ok {
		return v
	}
	suffix := raw
	if idx := strings.LastIndex(raw, "_"); idx != -1 {
		suffix = raw[idx+1:]
	}
	var v string
	if _, err := strconv.Atoi(suffix); err == nil {
		v = NormalizeLabel(raw)
	} else {
		v = fmt.Sprintf("Speaker %d", l.nextOrdinal)
		l.nextOrdinal++
	}
	l.assigned[raw] = v
	return v
}
