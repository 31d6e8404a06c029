package align

import (
	"context"
	"math"
	"strings"

	"github.com/kbukum/speakerkit/diarization"
	"github.com/kbukum/speakerkit/logger"
	"github.com/kbukum/speakerkit/transcription"
)

// alignFast is the short-recording path: it samples every diarization
// interval at SampleStep resolution into a dense timeline map, assigns
// each word the speaker of the nearest sample within MatchTolerance, and
// aggregates per-paragraph majority votes.
func (a *Aligner) alignFast(ctx context.Context, words []transcription.Word, intervals []diarization.Segment, paragraphs []string, lab *labeler) []SpeakerSegment {
	a.sink.Report("Fast mapping diarization results to transcript...", 0.05)

	// Timeline keys are deciseconds; integer keys sidestep float rounding.
	step := a.cfg.SampleStep
	timeline := make(map[int]string)
	speakers := make(map[string]struct{})
	for _, interval := range intervals {
		speakers[interval.Speaker] = struct{}{}
		for t := interval.Start; t < interval.End; t += step {
			timeline[decisecond(t)] = interval.Speaker
		}
	}
	a.log.Debug("built diarization timeline", logger.Fields(
		logger.FieldSpeakers, len(speakers), "samples", len(timeline)))
	a.sink.Report("Mapping words to speakers...", 0.3)

	// Nearest sampled timestamp within tolerance wins.
	toleranceDs := int(a.cfg.MatchTolerance / step)
	wordSpeakers := make(map[string]string)
	for _, w := range words {
		mid := decisecond(w.Midpoint())
		if speaker, ok := nearestSample(timeline, mid, toleranceDs); ok {
			wordSpeakers[normalizeToken(w.Word)] = speaker
		}
	}
	a.sink.Report("Assigning speakers to paragraphs...", 0.6)

	segments := make([]SpeakerSegment, 0, len(paragraphs))
	for _, paragraph := range paragraphs {
		counts := make(map[string]int)
		var order []string
		for _, token := range wordToken.FindAllString(strings.ToLower(paragraph), -1) {
			if speaker, ok := wordSpeakers[token]; ok {
				order = vote(counts, order, speaker)
			}
		}
		speakerID := DefaultSpeaker
		if raw, ok := majority(counts, order); ok {
			speakerID = lab.display(raw)
		}
		segments = append(segments, SpeakerSegment{Speaker: speakerID, Text: paragraph})
	}

	segments = Repair(segments)
	a.sink.Report("Alignment complete.", 1.0)
	return segments
}

// decisecond rounds a time in seconds to the nearest tenth, as an integer
// key.
func decisecond(t float64) int {
	return int(math.Round(t * 10))
}

// nearestSample finds the sampled speaker closest to mid within tolerance
// deciseconds. A sample exactly at the tolerance bound does not match.
func nearestSample(timeline map[int]string, mid, toleranceDs int) (string, bool) {
	if speaker, ok := timeline[mid]; ok {
		return speaker, true
	}
	for offset := 1; offset < toleranceDs; offset++ {
		if speaker, ok := timeline[mid-offset]; ok {
			return speaker, true
		}
		if speaker, ok := timeline[mid+offset]; ok {
			return speaker, true
		}
	}
	return "", false
}
