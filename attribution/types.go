package attribution

import (
	"time"

	"github.com/kbukum/speakerkit/align"
	apperrors "github.com/kbukum/speakerkit/errors"
	"github.com/kbukum/speakerkit/progress"
	"github.com/kbukum/speakerkit/transcription"
)

// Strategy names the path that produced a result.
type Strategy string

const (
	// StrategyCachedDiarization aligned against a cached diarization run.
	StrategyCachedDiarization Strategy = "cached_diarization"
	// StrategyFreshDiarization ran the diarization provider, then aligned.
	StrategyFreshDiarization Strategy = "fresh_diarization"
	// StrategyTextOnly inferred speakers from paragraph text alone.
	StrategyTextOnly Strategy = "text_only"
	// StrategyNone means the transcript was empty or unusable.
	StrategyNone Strategy = "none"
)

// Request describes one attribution run. Transcript and Words may be
// pre-produced by an earlier transcription step; when both are absent and
// an audio path is given, the engine transcribes first.
type Request struct {
	// AudioPath locates the recording. Required for the diarization paths
	// and for cache identity; a text-only run may omit it.
	AudioPath string `json:"audio_path,omitempty"`
	// Transcript is the raw transcript text.
	Transcript string `json:"transcript,omitempty"`
	// Words is the word-level timing sequence, chronological order.
	Words []transcription.Word `json:"words,omitempty"`
	// Duration is the recording length. Zero means derive it from the last
	// word's end time.
	Duration time.Duration `json:"duration,omitempty"`
	// Language hints the transcription language when the engine transcribes.
	Language string `json:"language,omitempty"`
	// NumSpeakers is the expected speaker count (0 = auto-detect).
	NumSpeakers int `json:"num_speakers,omitempty"`
	// Sink overrides the engine's progress sink for this run.
	Sink progress.Sink `json:"-"`
}

// Result is the outcome of an attribution run. Attribution never fails
// outright: every failure mode degrades to a defined output, and the
// triggering cause is carried in Degraded for observability.
type Result struct {
	// RunID uniquely identifies the run.
	RunID string `json:"run_id"`
	// Segments pairs each transcript paragraph with a speaker, in paragraph
	// order. Empty (never nil) for an unusable transcript.
	Segments []align.SpeakerSegment `json:"segments"`
	// Strategy is the path that produced the segments.
	Strategy Strategy `json:"strategy"`
	// Degraded holds the error that forced a fallback, when one did. It is
	// informational: the segments are still valid.
	Degraded *apperrors.AppError `json:"degraded,omitempty"`
}

// Speakers returns the distinct display labels in order of first
// appearance.
func (r *Result) Speakers() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, seg := range r.Segments {
		if _, ok := seen[seg.Speaker]; !ok {
			seen[seg.Speaker] = struct{}{}
			out = append(out, seg.Speaker)
		}
	}
	return out
}

// state is one node of the attribution state machine.
type state int

const (
	stateCacheCheck state = iota
	stateFreshDiarize
	stateAlign
	stateTextFallback
)
