// Package align reconciles a word-level transcript with a diarization
// timeline, producing one speaker-labeled segment per paragraph.
//
// Two implementations are selected by recording duration: a fast path for
// short recordings that samples the diarization timeline densely, and a
// scalable path for long recordings built on sorted-interval binary search
// with batched word processing and optional on-disk spill for very large
// interval counts.
package align

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/kbukum/speakerkit/diarization"
	"github.com/kbukum/speakerkit/logger"
	"github.com/kbukum/speakerkit/progress"
	"github.com/kbukum/speakerkit/transcription"
)

// Tuning defaults. SampleStep and MatchTolerance are in seconds.
const (
	defaultSampleStep     = 0.1
	defaultTolerance      = 1.0
	defaultMinInterval    = 0.5
	defaultBatchSize      = 500
	defaultSpillThreshold = 5000
)

// Config tunes the aligner. The zero value gets sensible defaults from New.
type Config struct {
	// SampleStep is the fast path's timeline sampling resolution in seconds.
	SampleStep float64
	// MatchTolerance is the fast path's maximum distance between a word
	// midpoint and a sampled timestamp, in seconds.
	MatchTolerance float64
	// MinIntervalDuration drops diarization intervals shorter than this on
	// the scalable path, in seconds.
	MinIntervalDuration float64
	// BatchSize is how many words the scalable path processes between
	// progress reports.
	BatchSize int
	// SpillThreshold is the interval count above which the scalable path
	// spills intermediate batches to the Store.
	SpillThreshold int
	// Store receives spilled interval batches. Nil disables spilling.
	Store SpillStore
	// Sink receives progress reports scaled to [0, 1] for the align stage.
	Sink progress.Sink
	// Logger receives structured diagnostics.
	Logger *logger.Logger
}

// Aligner maps transcribed words onto diarization intervals and aggregates
// per-paragraph speaker votes.
type Aligner struct {
	cfg  Config
	sink progress.Sink
	log  *logger.Logger
}

// New creates an Aligner, applying defaults for unset config fields.
func New(cfg Config) *Aligner {
	if cfg.SampleStep <= 0 {
		cfg.SampleStep = defaultSampleStep
	}
	if cfg.MatchTolerance <= 0 {
		cfg.MatchTolerance = defaultTolerance
	}
	if cfg.MinIntervalDuration <= 0 {
		cfg.MinIntervalDuration = defaultMinInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.SpillThreshold <= 0 {
		cfg.SpillThreshold = defaultSpillThreshold
	}
	sink := cfg.Sink
	if sink == nil {
		sink = progress.Nop
	}
	log := cfg.Logger
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Aligner{cfg: cfg, sink: sink, log: log.WithComponent("align")}
}

// Align assigns a speaker to every paragraph. The fast path runs for
// recordings under diarization.ShortFileThreshold, the scalable path
// otherwise. The returned slice always has exactly one segment per
// paragraph; paragraphs with no matched words get DefaultSpeaker. Align
// never fails: on internal spill errors it degrades to the in-memory path.
func (a *Aligner) Align(ctx context.Context, words []transcription.Word, intervals []diarization.Segment, paragraphs []string, duration time.Duration) []SpeakerSegment {
	if len(paragraphs) == 0 {
		return nil
	}
	lab := newLabeler(intervals)
	if duration < diarization.ShortFileThreshold {
		return a.alignFast(ctx, words, intervals, paragraphs, lab)
	}
	return a.alignScalable(ctx, words, intervals, paragraphs, lab)
}

// wordToken matches word-ish runs inside lowercased paragraph text.
var wordToken = regexp.MustCompile(`[a-z0-9']+`)

// normalizeToken lowercases a transcribed word and trims surrounding
// punctuation so it matches tokens extracted from paragraph text.
func normalizeToken(word string) string {
	return strings.Trim(strings.ToLower(strings.TrimSpace(word)), `.,!?;:"()`)
}

// majority returns the speaker with the highest vote count, breaking ties
// by first encounter. The order slice fixes iteration order; Go map order
// would make ties nondeterministic.
func majority(counts map[string]int, order []string) (string, bool) {
	best := ""
	bestCount := 0
	for _, speaker := range order {
		if counts[speaker] > bestCount {
			best = speaker
			bestCount = counts[speaker]
		}
	}
	return best, bestCount > 0
}

// vote registers one speaker vote, tracking first-encounter order.
func vote(counts map[string]int, order []string, speaker string) []string {
	if _, seen := counts[speaker]; !seen {
		order = append(order, speaker)
	}
	counts[speaker]++
	return order
}
