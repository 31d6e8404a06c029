package align

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kbukum/speakerkit/diarization"
	"github.com/kbukum/speakerkit/logger"
	"github.com/kbukum/speakerkit/transcription"
)

// alignScalable is the long-recording path: no dense sampling. Intervals
// are filtered, optionally spilled to disk, then sorted by start time so
// each word's covering interval is found by binary search on its midpoint.
// Words map to paragraphs by forward-scanning substring containment with a
// moving start hint, and are processed in batches for progress reporting.
func (a *Aligner) alignScalable(ctx context.Context, words []transcription.Word, intervals []diarization.Segment, paragraphs []string, lab *labeler) []SpeakerSegment {
	a.sink.Report("Mapping diarization results to transcript (optimized for long files)...", 0.02)

	speakers := make(map[string]struct{})
	for _, interval := range intervals {
		speakers[interval.Speaker] = struct{}{}
	}
	a.sink.Report(fmt.Sprintf("Detected %d speakers across %d segments", len(speakers), len(intervals)), 0.05)

	timeline := a.collectIntervals(intervals)
	sort.Slice(timeline, func(i, j int) bool {
		return timeline[i].Start < timeline[j].Start
	})

	a.sink.Report("Matching words to speaker segments...", 0.2)
	wordParagraphs := a.mapWordsToParagraphs(words, paragraphs)

	// Per-paragraph votes, order tracked for deterministic tie-breaks.
	counts := make([]map[string]int, len(paragraphs))
	orders := make([][]string, len(paragraphs))
	for i := range counts {
		counts[i] = make(map[string]int)
	}

	for batchStart := 0; batchStart < len(words); batchStart += a.cfg.BatchSize {
		batchEnd := batchStart + a.cfg.BatchSize
		if batchEnd > len(words) {
			batchEnd = len(words)
		}
		for _, w := range words[batchStart:batchEnd] {
			idx := coveringInterval(timeline, w.Midpoint())
			if idx < 0 {
				continue
			}
			token := normalizeToken(w.Word)
			paraIdx, ok := wordParagraphs[token]
			if !ok {
				continue
			}
			orders[paraIdx] = vote(counts[paraIdx], orders[paraIdx], timeline[idx].Speaker)
		}
		frac := 0.4 + 0.5*float64(batchEnd)/float64(len(words))
		a.sink.Report(fmt.Sprintf("Processed %d/%d words...", batchEnd, len(words)), frac)
	}

	segments := make([]SpeakerSegment, 0, len(paragraphs))
	for i, paragraph := range paragraphs {
		speakerID := DefaultSpeaker
		if raw, ok := majority(counts[i], orders[i]); ok {
			speakerID = lab.display(raw)
		}
		segments = append(segments, SpeakerSegment{Speaker: speakerID, Text: paragraph})
	}

	segments = Repair(segments)
	a.sink.Report("Diarization mapping complete.", 1.0)
	return segments
}

// collectIntervals filters out sub-MinIntervalDuration intervals and runs
// the result through the spill buffer. Spill failures degrade to the plain
// in-memory list rather than failing the alignment.
func (a *Aligner) collectIntervals(intervals []diarization.Segment) []diarization.Segment {
	kept := make([]diarization.Segment, 0, len(intervals))
	for _, interval := range intervals {
		if interval.Duration() >= a.cfg.MinIntervalDuration {
			kept = append(kept, interval)
		}
	}

	buffer := NewSegmentBuffer(len(intervals), a.cfg.SpillThreshold, a.cfg.Store)
	if !buffer.Spilling() {
		return kept
	}
	a.sink.Report("Using temporary storage for large diarization data...", 0.08)
	for _, interval := range kept {
		if err := buffer.Append(interval); err != nil {
			a.log.WithError(err).Warn("interval spill failed, using in-memory intervals")
			return kept
		}
	}
	loaded, err := buffer.Segments()
	if err != nil {
		a.log.WithError(err).Warn("spill reload failed, using in-memory intervals")
		return kept
	}
	return loaded
}

// mapWordsToParagraphs assigns each word token to the paragraph containing
// it, scanning forward from the last matched paragraph. Word order roughly
// tracks paragraph order, so the hint amortizes repeated scans; a miss
// falls back to a full scan. Repeated tokens ("the") can land on the wrong
// paragraph — an inherited limitation of substring matching.
func (a *Aligner) mapWordsToParagraphs(words []transcription.Word, paragraphs []string) map[string]int {
	lowered := make([]string, len(paragraphs))
	for i, p := range paragraphs {
		lowered[i] = strings.ToLower(p)
	}

	wordParagraphs := make(map[string]int, len(words))
	hint := 0
	for i, w := range words {
		if i%100 == 0 {
			frac := 0.2 + 0.2*float64(i)/float64(len(words))
			a.sink.Report(fmt.Sprintf("Matching words to paragraphs (%d/%d)...", i, len(words)), frac)
		}
		token := normalizeToken(w.Word)
		if token == "" {
			continue
		}
		if idx := findParagraph(lowered, token, hint); idx >= 0 {
			wordParagraphs[token] = idx
			hint = idx
		}
	}
	a.log.Debug("word-paragraph index built", logger.Fields(
		"tokens", len(wordParagraphs), logger.FieldSegments, len(paragraphs)))
	return wordParagraphs
}

// findParagraph scans from the hint forward, then wraps to a full scan.
func findParagraph(lowered []string, token string, hint int) int {
	for idx := hint; idx < len(lowered); idx++ {
		if strings.Contains(lowered[idx], token) {
			return idx
		}
	}
	for idx := 0; idx < hint; idx++ {
		if strings.Contains(lowered[idx], token) {
			return idx
		}
	}
	return -1
}

// coveringInterval binary-searches sorted intervals for the one containing
// t. Returns -1 when no interval covers t, which routes the word to the
// default-speaker fallback.
func coveringInterval(timeline []diarization.Segment, t float64) int {
	left, right := 0, len(timeline)-1
	for left <= right {
		mid := (left + right) / 2
		switch {
		case timeline[mid].Contains(t):
			return mid
		case t < timeline[mid].Start:
			right = mid - 1
		default:
			left = mid + 1
		}
	}
	return -1
}
