package attribution

import (
	"fmt"
	"strings"

	"github.com/kbukum/speakerkit/align"
)

// RenameSpeakers returns a copy of the segments with display labels
// substituted through names. Labels without an entry pass through
// unchanged.
func RenameSpeakers(segments []align.SpeakerSegment, names map[string]string) []align.SpeakerSegment {
	out := make([]align.SpeakerSegment, len(segments))
	for i, seg := range segments {
		if renamed, ok := names[seg.Speaker]; ok {
			seg.Speaker = renamed
		}
		out[i] = seg
	}
	return out
}

// FormatTranscript renders segments as a readable transcript, one
// "Speaker: text" block per segment separated by blank lines.
func FormatTranscript(segments []align.SpeakerSegment) string {
	blocks := make([]string, len(segments))
	for i, seg := range segments {
		blocks[i] = fmt.Sprintf("%s: %s", seg.Speaker, seg.Text)
	}
	return strings.Join(blocks, "\n\n")
}
