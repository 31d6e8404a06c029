package attribution

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kbukum/speakerkit/align"
	"github.com/kbukum/speakerkit/diarcache"
	"github.com/kbukum/speakerkit/diarization"
	apperrors "github.com/kbukum/speakerkit/errors"
	"github.com/kbukum/speakerkit/progress"
	"github.com/kbukum/speakerkit/segmenter"
	"github.com/kbukum/speakerkit/transcription"
)

type fakeDiarizer struct {
	available bool
	resp      *diarization.DiarizationResponse
	err       error
	reqs      []diarization.DiarizationRequest
}

func (f *fakeDiarizer) Name() string                         { return "fake-diarizer" }
func (f *fakeDiarizer) IsAvailable(ctx context.Context) bool { return f.available }

func (f *fakeDiarizer) Diarize(ctx context.Context, req diarization.DiarizationRequest) (*diarization.DiarizationResponse, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

type fakeTranscriber struct {
	resp *transcription.TranscriptionResponse
	err  error
}

func (f *fakeTranscriber) Name() string                         { return "fake-transcriber" }
func (f *fakeTranscriber) IsAvailable(ctx context.Context) bool { return true }

func (f *fakeTranscriber) Transcribe(ctx context.Context, req transcription.TranscriptionRequest) (*transcription.TranscriptionResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

const conversation = "Question one? Answer one. Question two? Answer two."

func conversationWords() []transcription.Word {
	return []transcription.Word{
		{Word: "Question", Start: 0, End: 1},
		{Word: "one?", Start: 1, End: 2},
		{Word: "Answer", Start: 2, End: 3},
		{Word: "one.", Start: 3, End: 4},
		{Word: "two?", Start: 5, End: 6},
		{Word: "two.", Start: 7, End: 8},
	}
}

func audioFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recording.wav")
	if err := os.WriteFile(path, []byte("not really audio"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func singleSpeakerResponse() *diarization.DiarizationResponse {
	return &diarization.DiarizationResponse{
		Segments:    []diarization.Segment{{Speaker: "SPEAKER_00", Start: 0, End: 10}},
		NumSpeakers: 1,
	}
}

func TestAttributeFreshDiarizationThenCacheHit(t *testing.T) {
	audio := audioFixture(t)
	cache := diarcache.New(t.TempDir(), 20)
	diarizer := &fakeDiarizer{available: true, resp: singleSpeakerResponse()}
	engine := New(Config{Diarizer: diarizer, Cache: cache})

	req := Request{AudioPath: audio, Transcript: conversation, Words: conversationWords()}
	paragraphs := segmenter.Split(conversation)

	first := engine.Attribute(context.Background(), req)
	if first.Strategy != StrategyFreshDiarization {
		t.Fatalf("first run strategy = %q, want %q", first.Strategy, StrategyFreshDiarization)
	}
	if len(first.Segments) != len(paragraphs) {
		t.Fatalf("got %d segments, want %d", len(first.Segments), len(paragraphs))
	}
	for i, seg := range first.Segments {
		if seg.Speaker != "Speaker 0" {
			t.Errorf("segment %d speaker = %q, want %q", i, seg.Speaker, "Speaker 0")
		}
	}
	if first.Degraded != nil {
		t.Errorf("degraded cause on clean run: %v", first.Degraded)
	}

	second := engine.Attribute(context.Background(), req)
	if second.Strategy != StrategyCachedDiarization {
		t.Fatalf("second run strategy = %q, want %q", second.Strategy, StrategyCachedDiarization)
	}
	if calls := len(diarizer.reqs); calls != 1 {
		t.Errorf("diarizer called %d times, want 1 (second run should hit cache)", calls)
	}
	if len(second.Segments) != len(paragraphs) {
		t.Errorf("cached run: got %d segments, want %d", len(second.Segments), len(paragraphs))
	}
}

func TestAttributeShortFileUsesUltraFastTuning(t *testing.T) {
	diarizer := &fakeDiarizer{available: true, resp: singleSpeakerResponse()}
	engine := New(Config{Diarizer: diarizer})

	engine.Attribute(context.Background(), Request{
		AudioPath:  audioFixture(t),
		Transcript: conversation,
		Words:      conversationWords(),
	})
	if len(diarizer.reqs) != 1 {
		t.Fatalf("diarizer called %d times, want 1", len(diarizer.reqs))
	}
	got := diarizer.reqs[0].Tuning
	want := diarization.UltraFastTuning()
	if got != want {
		t.Errorf("tuning = %+v, want ultra-fast %+v", got, want)
	}
}

func TestAttributeLongFileDiarizesInWindows(t *testing.T) {
	diarizer := &fakeDiarizer{available: true, resp: singleSpeakerResponse()}
	engine := New(Config{Diarizer: diarizer})

	// 25 minutes chunks into 600s windows: 0-600, 600-1200, 1200-1500.
	engine.Attribute(context.Background(), Request{
		AudioPath:  audioFixture(t),
		Transcript: conversation,
		Words:      conversationWords(),
		Duration:   25 * time.Minute,
	})
	wantStarts := []float64{0, 600, 1200}
	if len(diarizer.reqs) != len(wantStarts) {
		t.Fatalf("diarizer called %d times, want %d", len(diarizer.reqs), len(wantStarts))
	}
	for i, want := range wantStarts {
		if diarizer.reqs[i].WindowStart != want {
			t.Errorf("call %d WindowStart = %v, want %v", i, diarizer.reqs[i].WindowStart, want)
		}
	}
	if diarizer.reqs[2].WindowEnd != 1500 {
		t.Errorf("final WindowEnd = %v, want 1500", diarizer.reqs[2].WindowEnd)
	}
}

func TestAttributeNoDiarizerFallsBackToTextOnly(t *testing.T) {
	engine := New(Config{})
	got := engine.Attribute(context.Background(), Request{Transcript: conversation})

	paragraphs := segmenter.Split(conversation)
	if got.Strategy != StrategyTextOnly {
		t.Fatalf("strategy = %q, want %q", got.Strategy, StrategyTextOnly)
	}
	if len(got.Segments) != len(paragraphs) {
		t.Fatalf("got %d segments, want %d", len(got.Segments), len(paragraphs))
	}
	// No LLM configured either: parity assignment.
	for i, seg := range got.Segments {
		want := "Speaker 1"
		if i%2 == 1 {
			want = "Speaker 2"
		}
		if seg.Speaker != want {
			t.Errorf("segment %d speaker = %q, want %q", i, seg.Speaker, want)
		}
	}
	if got.Degraded == nil || got.Degraded.Code != apperrors.ErrCodeProviderUnavailable {
		t.Errorf("degraded = %v, want provider-unavailable cause", got.Degraded)
	}
}

func TestAttributeUnavailableDiarizerFallsBackToTextOnly(t *testing.T) {
	diarizer := &fakeDiarizer{available: false}
	engine := New(Config{Diarizer: diarizer})

	got := engine.Attribute(context.Background(), Request{
		AudioPath:  audioFixture(t),
		Transcript: conversation,
		Words:      conversationWords(),
	})
	if got.Strategy != StrategyTextOnly {
		t.Errorf("strategy = %q, want %q", got.Strategy, StrategyTextOnly)
	}
	if len(diarizer.reqs) != 0 {
		t.Errorf("unavailable diarizer was called %d times", len(diarizer.reqs))
	}
	if got.Degraded == nil || got.Degraded.Code != apperrors.ErrCodeProviderUnavailable {
		t.Errorf("degraded = %v, want provider-unavailable cause", got.Degraded)
	}
}

func TestAttributeDiarizationErrorFallsBackToTextOnly(t *testing.T) {
	diarizer := &fakeDiarizer{available: true, err: errors.New("model weights missing")}
	engine := New(Config{Diarizer: diarizer})

	got := engine.Attribute(context.Background(), Request{
		AudioPath:  audioFixture(t),
		Transcript: conversation,
		Words:      conversationWords(),
	})
	if got.Strategy != StrategyTextOnly {
		t.Errorf("strategy = %q, want %q", got.Strategy, StrategyTextOnly)
	}
	if got.Degraded == nil || got.Degraded.Code != apperrors.ErrCodeProviderCall {
		t.Errorf("degraded = %v, want provider-call cause", got.Degraded)
	}
	if len(got.Segments) != len(segmenter.Split(conversation)) {
		t.Errorf("segment count invariant broken on fallback")
	}
}

func TestAttributeMissingWordsFallsBackToTextOnly(t *testing.T) {
	diarizer := &fakeDiarizer{available: true, resp: singleSpeakerResponse()}
	engine := New(Config{Diarizer: diarizer})

	got := engine.Attribute(context.Background(), Request{
		AudioPath:  audioFixture(t),
		Transcript: conversation,
	})
	if got.Strategy != StrategyTextOnly {
		t.Errorf("strategy = %q, want %q", got.Strategy, StrategyTextOnly)
	}
	if len(diarizer.reqs) != 0 {
		t.Errorf("diarizer called without word timestamps")
	}
	if got.Degraded == nil || got.Degraded.Code != apperrors.ErrCodeInvalidInput {
		t.Errorf("degraded = %v, want invalid-input cause", got.Degraded)
	}
}

func TestAttributeEmptyTranscript(t *testing.T) {
	engine := New(Config{})
	got := engine.Attribute(context.Background(), Request{Transcript: "   "})
	if got.Strategy != StrategyNone {
		t.Errorf("strategy = %q, want %q", got.Strategy, StrategyNone)
	}
	if got.Segments == nil || len(got.Segments) != 0 {
		t.Errorf("segments = %v, want empty non-nil slice", got.Segments)
	}
	if got.RunID == "" {
		t.Error("missing run id")
	}
}

func TestAttributeTranscribesWhenOnlyAudioGiven(t *testing.T) {
	transcriber := &fakeTranscriber{resp: &transcription.TranscriptionResponse{
		Text:     conversation,
		Words:    conversationWords(),
		Duration: 8,
	}}
	diarizer := &fakeDiarizer{available: true, resp: singleSpeakerResponse()}
	engine := New(Config{Transcriber: transcriber, Diarizer: diarizer})

	got := engine.Attribute(context.Background(), Request{AudioPath: audioFixture(t)})
	if got.Strategy != StrategyFreshDiarization {
		t.Fatalf("strategy = %q, want %q", got.Strategy, StrategyFreshDiarization)
	}
	if len(got.Segments) != len(segmenter.Split(conversation)) {
		t.Errorf("got %d segments, want %d", len(got.Segments), len(segmenter.Split(conversation)))
	}
}

func TestAttributeProgressIsMonotonic(t *testing.T) {
	var percents []float64
	sink := progress.Func(func(message string, percent float64) {
		if percent >= 0 {
			percents = append(percents, percent)
		}
	})
	diarizer := &fakeDiarizer{available: true, resp: singleSpeakerResponse()}
	engine := New(Config{Diarizer: diarizer, Sink: sink})

	engine.Attribute(context.Background(), Request{
		AudioPath:  audioFixture(t),
		Transcript: conversation,
		Words:      conversationWords(),
	})
	if len(percents) == 0 {
		t.Fatal("no progress reported")
	}
	for i := 1; i < len(percents); i++ {
		if percents[i] < percents[i-1] {
			t.Fatalf("progress regressed at %d: %v -> %v", i, percents[i-1], percents[i])
		}
	}
}

func TestEnsureCount(t *testing.T) {
	paragraphs := []string{"p0", "p1", "p2"}
	tests := []struct {
		name     string
		segments []align.SpeakerSegment
		want     []string
	}{
		{
			name: "exact count unchanged",
			segments: []align.SpeakerSegment{
				{Speaker: "Speaker 1", Text: "p0"},
				{Speaker: "Speaker 2", Text: "p1"},
				{Speaker: "Speaker 1", Text: "p2"},
			},
			want: []string{"Speaker 1", "Speaker 2", "Speaker 1"},
		},
		{
			name: "short list clamps to last",
			segments: []align.SpeakerSegment{
				{Speaker: "Speaker 2", Text: "p0"},
			},
			want: []string{"Speaker 2", "Speaker 2", "Speaker 2"},
		},
		{
			name:     "empty list alternates",
			segments: nil,
			want:     []string{"Speaker 1", "Speaker 2", "Speaker 1"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ensureCount(tc.segments, paragraphs)
			if len(got) != len(paragraphs) {
				t.Fatalf("got %d segments, want %d", len(got), len(paragraphs))
			}
			for i, w := range tc.want {
				if got[i].Speaker != w {
					t.Errorf("segment %d speaker = %q, want %q", i, got[i].Speaker, w)
				}
				if got[i].Text != paragraphs[i] && len(tc.segments) != len(paragraphs) {
					t.Errorf("segment %d text = %q, want %q", i, got[i].Text, paragraphs[i])
				}
			}
		})
	}
}

func TestResultSpeakersOrderOfAppearance(t *testing.T) {
	r := &Result{Segments: []align.SpeakerSegment{
		{Speaker: "Speaker 2", Text: "a"},
		{Speaker: "Speaker 1", Text: "b"},
		{Speaker: "Speaker 2", Text: "c"},
	}}
	got := r.Speakers()
	want := []string{"Speaker 2", "Speaker 1"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("speaker %d = %q, want %q", i, got[i], want[i])
		}
	}
}
