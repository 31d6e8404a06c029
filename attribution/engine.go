// Package attribution orchestrates speaker attribution for one recording:
// it reconciles a word-level transcript with acoustic diarization when a
// provider is available and credentialed, and degrades to text-only
// identification otherwise. The engine is an explicit state machine; every
// failure mode maps to a named fallback transition and the run always
// produces a segment per paragraph.
package attribution

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/speakerkit/align"
	"github.com/kbukum/speakerkit/diarcache"
	"github.com/kbukum/speakerkit/diarization"
	apperrors "github.com/kbukum/speakerkit/errors"
	"github.com/kbukum/speakerkit/llm"
	"github.com/kbukum/speakerkit/logger"
	"github.com/kbukum/speakerkit/progress"
	"github.com/kbukum/speakerkit/segmenter"
	"github.com/kbukum/speakerkit/textid"
	"github.com/kbukum/speakerkit/transcription"
)

const instrumentationName = "github.com/kbukum/speakerkit/attribution"

// veryShortThreshold marks clips that get a speaker-count sanity re-run
// when the first pass detects implausibly many speakers.
const veryShortThreshold = time.Minute

// Config wires an Engine. Only the fields backing the paths you intend to
// exercise are required: a nil Diarizer routes every run to the text-only
// path, a nil LLM leaves that path on its heuristic fallback.
type Config struct {
	// Diarizer is the acoustic diarization backend. Nil means not installed.
	Diarizer diarization.Provider
	// Transcriber produces transcript and word timings when a request
	// carries only an audio path.
	Transcriber transcription.Provider
	// LLM backs the text-only identification path.
	LLM llm.Provider
	// LLMModel overrides the LLM backend's default model.
	LLMModel string
	// Cache stores diarization results keyed by file identity. Nil disables
	// caching.
	Cache *diarcache.Cache
	// Align tunes the temporal aligner. Sink and Logger are superseded by
	// per-run values.
	Align align.Config
	// SpillDir, when set, backs the aligner's interval spill files.
	SpillDir string
	// MaxChunkSize is the text-only path's character budget per model call.
	MaxChunkSize int
	// Sink receives progress reports for runs without their own sink.
	Sink progress.Sink
	// Logger receives structured diagnostics.
	Logger *logger.Logger
}

// Engine runs attribution requests. Safe for concurrent use; runs against
// the same audio file are serialized so cache writes never interleave.
type Engine struct {
	cfg   Config
	log   *logger.Logger
	locks keyedMutex

	tracer    trace.Tracer
	runs      metric.Int64Counter
	cacheHits metric.Int64Counter
	fallbacks metric.Int64Counter
}

// New creates an Engine.
func New(cfg Config) *Engine {
	log := cfg.Logger
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	if cfg.Sink == nil {
		cfg.Sink = progress.Nop
	}

	meter := otel.Meter(instrumentationName)
	runs, _ := meter.Int64Counter("speakerkit.attribution.runs",
		metric.WithDescription("Completed attribution runs by strategy"))
	cacheHits, _ := meter.Int64Counter("speakerkit.attribution.cache_hits",
		metric.WithDescription("Diarization cache hits"))
	fallbacks, _ := meter.Int64Counter("speakerkit.attribution.fallbacks",
		metric.WithDescription("Falls to the text-only path"))

	return &Engine{
		cfg:       cfg,
		log:       log.WithComponent("attribution"),
		tracer:    otel.Tracer(instrumentationName),
		runs:      runs,
		cacheHits: cacheHits,
		fallbacks: fallbacks,
	}
}

// Attribute runs the state machine for one request. It never returns nil
// and never fails: degraded paths produce valid output and record their
// cause on the result. An empty or unusable transcript yields an empty
// segment list.
func (e *Engine) Attribute(ctx context.Context, req Request) *Result {
	runID := uuid.NewString()
	log := e.log.WithFields(logger.Fields(logger.FieldRunID, runID))
	sink := progress.NewClamped(e.sinkFor(req))

	ctx, span := e.tracer.Start(ctx, "attribution.run",
		trace.WithAttributes(attribute.String("run.id", runID)))
	defer span.End()

	result := &Result{RunID: runID, Strategy: StrategyNone, Segments: []align.SpeakerSegment{}}
	defer func() {
		span.SetAttributes(
			attribute.String("attribution.strategy", string(result.Strategy)),
			attribute.Int("attribution.segments", len(result.Segments)),
		)
		e.runs.Add(ctx, 1, metric.WithAttributes(
			attribute.String("strategy", string(result.Strategy))))
	}()

	transcript, words, duration, prepErr := e.prepare(ctx, &req, sink)
	if prepErr != nil {
		result.Degraded = prepErr
	}
	paragraphs := segmenter.Split(transcript)
	if len(paragraphs) == 0 {
		sink.Report("Transcript is empty, nothing to attribute.", 1.0)
		return result
	}

	if req.AudioPath != "" {
		unlock := e.locks.lock(fileIdentity(req.AudioPath))
		defer unlock()
	}

	var intervals []diarization.Segment
	for st := stateCacheCheck; ; {
		switch st {
		case stateCacheCheck:
			if cached, ok := e.lookupCache(ctx, req.AudioPath); ok {
				sink.Report("Using cached diarization results...", 0.4)
				log.Info("diarization cache hit", logger.Fields(logger.FieldAudioPath, req.AudioPath))
				intervals = cached
				result.Strategy = StrategyCachedDiarization
				st = stateAlign
				continue
			}
			if e.cfg.Diarizer == nil {
				result.Degraded = apperrors.ProviderUnavailable("diarization", "no backend configured")
				st = stateTextFallback
				continue
			}
			if !e.cfg.Diarizer.IsAvailable(ctx) {
				result.Degraded = apperrors.ProviderUnavailable(e.cfg.Diarizer.Name(), "backend not ready or missing credentials")
				st = stateTextFallback
				continue
			}
			if len(words) == 0 {
				result.Degraded = apperrors.InvalidInput("word-level timestamps are required for diarization alignment")
				st = stateTextFallback
				continue
			}
			st = stateFreshDiarize

		case stateFreshDiarize:
			fresh, err := e.diarize(ctx, req, duration, sink)
			if err != nil {
				sink.Report(fmt.Sprintf("Error in diarization: %v", err), -1)
				log.WithError(err).Warn("diarization failed, falling back to text-only identification")
				result.Degraded = apperrors.ProviderCall(e.cfg.Diarizer.Name(), err)
				st = stateTextFallback
				continue
			}
			intervals = fresh
			result.Strategy = StrategyFreshDiarization
			e.storeCache(ctx, req.AudioPath, fresh, sink, log)
			st = stateAlign

		case stateAlign:
			result.Segments = e.alignStage(ctx, words, intervals, paragraphs, duration, sink)
			result.Segments = ensureCount(result.Segments, paragraphs)
			log.Info("attribution complete", logger.Fields(
				logger.FieldSegments, len(result.Segments),
				logger.FieldSpeakers, len(result.Speakers()),
				"strategy", string(result.Strategy)))
			return result

		case stateTextFallback:
			e.fallbacks.Add(ctx, 1)
			result.Strategy = StrategyTextOnly
			result.Segments = ensureCount(e.textIdentify(ctx, transcript, sink), paragraphs)
			log.Info("attribution complete", logger.Fields(
				logger.FieldSegments, len(result.Segments),
				"strategy", string(result.Strategy)))
			return result
		}
	}
}

// prepare resolves the transcript, word timings, and duration for a
// request, transcribing when only an audio path was supplied. A failed
// transcription is returned as a degraded cause with whatever inputs the
// request already carried.
func (e *Engine) prepare(ctx context.Context, req *Request, sink progress.Sink) (string, []transcription.Word, time.Duration, *apperrors.AppError) {
	transcript := req.Transcript
	words := req.Words
	duration := req.Duration

	if transcript == "" && len(words) == 0 && req.AudioPath != "" &&
		e.cfg.Transcriber != nil && e.cfg.Transcriber.IsAvailable(ctx) {
		sink.Report("Transcribing audio...", 0.02)
		resp, err := e.cfg.Transcriber.Transcribe(ctx, transcription.TranscriptionRequest{
			AudioPath:      req.AudioPath,
			Language:       req.Language,
			WordTimestamps: true,
		})
		if err != nil {
			sink.Report(fmt.Sprintf("Transcription failed: %v", err), -1)
			return "", nil, 0, apperrors.ProviderCall(e.cfg.Transcriber.Name(), err)
		}
		transcript = resp.Text
		words = resp.Words
		if duration == 0 && resp.Duration > 0 {
			duration = time.Duration(resp.Duration * float64(time.Second))
		}
	}

	if duration == 0 && len(words) > 0 {
		duration = time.Duration(words[len(words)-1].End * float64(time.Second))
	}
	return transcript, words, duration, nil
}

// diarize runs the provider, as a single ultra-fast call for short
// recordings or chunked into windows for long ones. Window-relative
// segments are shifted back to file time before merging.
func (e *Engine) diarize(ctx context.Context, req Request, duration time.Duration, sink progress.Sink) ([]diarization.Segment, error) {
	sink.Report("Performing audio diarization analysis...", 0.05)
	sink.Report(fmt.Sprintf("Audio duration: %.1f seconds", duration.Seconds()), 0.2)

	if duration < diarization.ShortFileThreshold {
		sink.Report("Short audio detected, using ultra-fast mode...", 0.25)
		resp, err := e.cfg.Diarizer.Diarize(ctx, diarization.DiarizationRequest{
			AudioPath:   req.AudioPath,
			NumSpeakers: req.NumSpeakers,
			Tuning:      diarization.UltraFastTuning(),
		})
		if err != nil {
			return nil, err
		}
		// Very short clips rarely hold more than three voices; a higher
		// detected count is usually cluster noise, so re-run constrained.
		if duration < veryShortThreshold && resp.NumSpeakers > 3 && req.NumSpeakers == 0 {
			sink.Report("Optimizing speaker count for short clip...", 0.7)
			resp, err = e.cfg.Diarizer.Diarize(ctx, diarization.DiarizationRequest{
				AudioPath:   req.AudioPath,
				NumSpeakers: 3,
				Tuning:      diarization.UltraFastTuning(),
			})
			if err != nil {
				return nil, err
			}
		}
		return resp.Segments, nil
	}

	windows := diarization.Windows(duration, diarization.ChunkDuration(duration))
	sink.Report(fmt.Sprintf("Processing audio in %d chunks...", len(windows)), 0.25)

	var merged []diarization.Segment
	for i, w := range windows {
		resp, err := e.cfg.Diarizer.Diarize(ctx, diarization.DiarizationRequest{
			AudioPath:   req.AudioPath,
			WindowStart: w.Start,
			WindowEnd:   w.End,
		})
		if err != nil {
			return nil, err
		}
		for _, seg := range resp.Segments {
			merged = append(merged, seg.Shift(w.Start))
		}
		sink.Report(fmt.Sprintf("Processed chunk %d/%d...", i+1, len(windows)),
			0.25+0.45*float64(i+1)/float64(len(windows)))
	}
	return merged, nil
}

func (e *Engine) lookupCache(ctx context.Context, audioPath string) ([]diarization.Segment, bool) {
	if e.cfg.Cache == nil || audioPath == "" {
		return nil, false
	}
	resp, ok := e.cfg.Cache.Get(audioPath)
	if !ok {
		return nil, false
	}
	e.cacheHits.Add(ctx, 1)
	return resp.Segments, true
}

// storeCache writes a fresh diarization result. A write failure is
// reported and logged but never aborts the run.
func (e *Engine) storeCache(ctx context.Context, audioPath string, segments []diarization.Segment, sink progress.Sink, log *logger.Logger) {
	if e.cfg.Cache == nil || audioPath == "" {
		return
	}
	sink.Report("Saving diarization results to cache for future use...", 0.75)
	resp := &diarization.DiarizationResponse{
		Segments:    segments,
		NumSpeakers: distinctSpeakers(segments),
	}
	if err := e.cfg.Cache.Put(audioPath, resp); err != nil {
		sink.Report(fmt.Sprintf("Error saving to cache: %v", err), -1)
		log.WithError(err).Warn("diarization cache write failed", logger.Fields(logger.FieldAudioPath, audioPath))
	}
}

// alignStage builds a per-run aligner carrying this run's sink and, when
// configured, a fresh spill store that is cleaned up afterwards.
func (e *Engine) alignStage(ctx context.Context, words []transcription.Word, intervals []diarization.Segment, paragraphs []string, duration time.Duration, sink progress.Sink) []align.SpeakerSegment {
	cfg := e.cfg.Align
	cfg.Sink = sink
	cfg.Logger = e.log
	if cfg.Store == nil && e.cfg.SpillDir != "" {
		store, err := align.NewFileSpillStore(e.cfg.SpillDir)
		if err != nil {
			e.log.WithError(err).Warn("spill store unavailable, aligning in memory")
		} else {
			cfg.Store = store
			defer store.Close()
		}
	}
	return align.New(cfg).Align(ctx, words, intervals, paragraphs, duration)
}

func (e *Engine) textIdentify(ctx context.Context, transcript string, sink progress.Sink) []align.SpeakerSegment {
	if e.cfg.LLM == nil || !e.cfg.LLM.IsAvailable(ctx) {
		sink.Report("No language model available, using alternating speaker assignment.", -1)
		return nil // ensureCount falls back to parity
	}
	id := textid.New(textid.Config{
		Provider:     e.cfg.LLM,
		Model:        e.cfg.LLMModel,
		MaxChunkSize: e.cfg.MaxChunkSize,
		Sink:         sink,
		Logger:       e.log,
	})
	return id.Identify(ctx, transcript)
}

func (e *Engine) sinkFor(req Request) progress.Sink {
	if req.Sink != nil {
		return req.Sink
	}
	return e.cfg.Sink
}

// ensureCount forces the segment list to match the paragraph count: extra
// segments are dropped, missing positions reuse the nearest available
// assignment, and with none available speakers alternate by parity.
func ensureCount(segments []align.SpeakerSegment, paragraphs []string) []align.SpeakerSegment {
	if len(segments) == len(paragraphs) {
		return segments
	}
	out := make([]align.SpeakerSegment, len(paragraphs))
	for i, p := range paragraphs {
		speaker := fmt.Sprintf("Speaker %d", i%2+1)
		if len(segments) > 0 {
			idx := i
			if idx > len(segments)-1 {
				idx = len(segments) - 1
			}
			speaker = segments[idx].Speaker
		}
		out[i] = align.SpeakerSegment{Speaker: speaker, Text: p}
	}
	return out
}

func distinctSpeakers(segments []diarization.Segment) int {
	seen := make(map[string]struct{}, 2)
	for _, seg := range segments {
		seen[seg.Speaker] = struct{}{}
	}
	return len(seen)
}

// fileIdentity is the serialization key for concurrent runs against the
// same recording.
func fileIdentity(audioPath string) string {
	abs, err := filepath.Abs(audioPath)
	if err != nil {
		return audioPath
	}
	return abs
}

// keyedMutex serializes critical sections per string key.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
