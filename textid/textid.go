// Package textid infers two-speaker turn-taking from transcript text
// alone, as the fallback when acoustic diarization is unavailable or
// failed. It always produces exactly one segment per paragraph and never
// returns an error: any model or parse failure degrades to a strict
// alternating-speaker assignment.
package textid

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/kbukum/speakerkit/align"
	"github.com/kbukum/speakerkit/llm"
	"github.com/kbukum/speakerkit/logger"
	"github.com/kbukum/speakerkit/progress"
	"github.com/kbukum/speakerkit/segmenter"
)

// defaultMaxChunkSize is the transcript character budget above which
// identification runs chunked.
const defaultMaxChunkSize = 8000

// speakerMap normalizes model speaker labels to display labels. Unknown
// labels pass through untouched.
var speakerMap = map[string]string{
	"A":         "Speaker 1",
	"B":         "Speaker 2",
	"Speaker A": "Speaker 1",
	"Speaker B": "Speaker 2",
}

// Config tunes the identifier. Provider is required.
type Config struct {
	// Provider is the language model backend.
	Provider llm.Provider
	// Model overrides the backend's default model.
	Model string
	// MaxChunkSize is the per-request character budget. Zero means the
	// default of 8000.
	MaxChunkSize int
	// Sink receives progress reports scaled to [0, 1] for this stage.
	Sink progress.Sink
	// Logger receives structured diagnostics.
	Logger *logger.Logger
}

// Identifier assigns speakers to paragraphs from text alone.
type Identifier struct {
	provider llm.Provider
	model    string
	maxChunk int
	sink     progress.Sink
	log      *logger.Logger
}

// New creates an Identifier, applying defaults for unset config fields.
func New(cfg Config) *Identifier {
	if cfg.MaxChunkSize <= 0 {
		cfg.MaxChunkSize = defaultMaxChunkSize
	}
	sink := cfg.Sink
	if sink == nil {
		sink = progress.Nop
	}
	log := cfg.Logger
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Identifier{
		provider: cfg.Provider,
		model:    cfg.Model,
		maxChunk: cfg.MaxChunkSize,
		sink:     sink,
		log:      log.WithComponent("textid"),
	}
}

// Identify partitions the transcript's paragraphs between two speakers.
// Transcripts over the chunk budget are processed in chunks with
// characteristic carryover. The result always has exactly one segment per
// paragraph of the split transcript; failures degrade to alternating
// assignment rather than returning an error.
func (id *Identifier) Identify(ctx context.Context, transcript string) []align.SpeakerSegment {
	paragraphs := segmenter.Split(transcript)
	if len(paragraphs) == 0 {
		return nil
	}
	if len(transcript) > id.maxChunk {
		id.sink.Report("Long transcript detected. Processing in chunks...", 0.15)
		return id.identifyChunked(ctx, paragraphs)
	}
	return id.identifySingle(ctx, paragraphs)
}

// identifySingle makes one model call covering every paragraph.
func (id *Identifier) identifySingle(ctx context.Context, paragraphs []string) []align.SpeakerSegment {
	id.sink.Report("Sending transcript for speaker analysis...", 0.3)

	result, err := id.request(ctx, paragraphs, 0, nil)
	if err != nil {
		id.log.WithError(err).Warn("speaker identification failed, using alternating assignment")
		id.sink.Report(fmt.Sprintf("Error in speaker identification: %v", err), -1)
		return alternating(paragraphs)
	}
	id.sink.Report("Processing speaker identification results...", 0.7)

	segments := assemble(result.Paragraphs, paragraphs, id.sink)
	id.sink.Report("Speaker identification complete. Found 2 speakers.", 1.0)
	return segments
}

// identifyChunked greedily groups paragraphs under the character budget,
// derives speaker characteristics from the first chunk, and threads them
// through the remaining chunk requests.
func (id *Identifier) identifyChunked(ctx context.Context, paragraphs []string) []align.SpeakerSegment {
	chunks := chunkParagraphs(paragraphs, id.maxChunk)
	id.sink.Report(fmt.Sprintf("Processing transcript in %d chunks...", len(chunks)), 0.15)

	var all []assignment
	var notes *analysis
	for i, chunk := range chunks {
		id.sink.Report(fmt.Sprintf("Processing chunk %d/%d...", i+1, len(chunks)),
			float64(i)/float64(len(chunks))*0.7+0.2)

		result, err := id.request(ctx, chunk, len(all), notes)
		if err != nil {
			id.log.WithError(err).Warn("chunked identification failed, using alternating assignment",
				logger.Fields("chunk", i+1, "chunks", len(chunks)))
			id.sink.Report(fmt.Sprintf("Error in speaker identification: %v", err), -1)
			return alternating(paragraphs)
		}
		if i == 0 && result.Analysis != nil {
			notes = result.Analysis
		}
		all = append(all, result.Paragraphs...)

		id.sink.Report(fmt.Sprintf("Processed chunk %d/%d...", i+1, len(chunks)),
			(float64(i)+0.5)/float64(len(chunks))*0.7+0.2)
	}

	id.sink.Report("Finalizing speaker assignments...", 0.95)
	segments := assemble(all, paragraphs, id.sink)
	id.sink.Report(fmt.Sprintf("Speaker identification complete. Found 2 speakers across %d chunks.", len(chunks)), 1.0)
	return segments
}

// request sends one identification call. The first request of a run (nil
// notes) uses the analysis prompt; continuation requests reuse the derived
// characteristics.
func (id *Identifier) request(ctx context.Context, paragraphs []string, offset int, notes *analysis) (*modelResult, error) {
	var prompt string
	var err error
	if notes == nil {
		prompt, err = analysisPrompt(paragraphs, offset)
	} else {
		prompt, err = continuationPrompt(paragraphs, offset, *notes)
	}
	if err != nil {
		return nil, err
	}

	resp, err := id.provider.CompleteStructured(ctx, llm.CompletionRequest{
		Model:        id.model,
		SystemPrompt: systemPrompt,
		Messages:     []llm.Message{{Role: "user", Content: prompt}},
		Temperature:  0.0,
	})
	if err != nil {
		return nil, fmt.Errorf("completion request: %w", err)
	}

	var result modelResult
	if err := json.Unmarshal([]byte(resp.Content), &result); err != nil {
		return nil, fmt.Errorf("parse identification response: %w", err)
	}
	return &result, nil
}

// chunkParagraphs groups paragraphs greedily: a paragraph that would push
// the running chunk over the budget starts a new chunk. A single oversized
// paragraph still forms its own chunk.
func chunkParagraphs(paragraphs []string, budget int) [][]string {
	var chunks [][]string
	var current []string
	length := 0
	for _, p := range paragraphs {
		if length+len(p) > budget && len(current) > 0 {
			chunks = append(chunks, current)
			current = []string{p}
			length = len(p)
		} else {
			current = append(current, p)
			length += len(p)
		}
	}
	if len(current) > 0 {
		chunks = append(chunks, current)
	}
	return chunks
}

// assemble orders assignments by id, normalizes labels, and repairs any
// count mismatch so the output always matches the paragraph count.
func assemble(assignments []assignment, paragraphs []string, sink progress.Sink) []align.SpeakerSegment {
	sort.SliceStable(assignments, func(i, j int) bool {
		return assignments[i].ID < assignments[j].ID
	})

	segments := make([]align.SpeakerSegment, 0, len(assignments))
	for _, a := range assignments {
		speaker := a.Speaker
		if mapped, ok := speakerMap[speaker]; ok {
			speaker = mapped
		}
		segments = append(segments, align.SpeakerSegment{Speaker: speaker, Text: a.Text})
	}

	if len(segments) == len(paragraphs) {
		return segments
	}
	sink.Report(fmt.Sprintf("Warning: Received %d segments but expected %d. Fixing...",
		len(segments), len(paragraphs)), 0.9)
	return clampRepair(segments, paragraphs)
}

// clampRepair rebuilds the segment list against the authoritative
// paragraph sequence, reusing the nearest valid speaker assignment by
// clamped index; with no assignments at all it falls back to parity.
func clampRepair(segments []align.SpeakerSegment, paragraphs []string) []align.SpeakerSegment {
	repaired := make([]align.SpeakerSegment, len(paragraphs))
	for i, p := range paragraphs {
		speaker := fmt.Sprintf("Speaker %d", i%2+1)
		if len(segments) > 0 {
			idx := i
			if idx > len(segments)-1 {
				idx = len(segments) - 1
			}
			speaker = segments[idx].Speaker
		}
		repaired[i] = align.SpeakerSegment{Speaker: speaker, Text: p}
	}
	return repaired
}

// alternating assigns speakers strictly by paragraph parity. It is the
// terminal fallback and cannot fail.
func alternating(paragraphs []string) []align.SpeakerSegment {
	segments := make([]align.SpeakerSegment, len(paragraphs))
	for i, p := range paragraphs {
		segments[i] = align.SpeakerSegment{Speaker: fmt.Sprintf("Speaker %d", i%2+1), Text: p}
	}
	return segments
}
