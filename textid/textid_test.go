package textid

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/kbukum/speakerkit/align"
	"github.com/kbukum/speakerkit/llm"
	"github.com/kbukum/speakerkit/segmenter"
)

// fakeLLM returns canned responses in order and records the prompts it saw.
type fakeLLM struct {
	responses []string
	err       error
	prompts   []string
}

func (f *fakeLLM) Name() string                         { return "fake" }
func (f *fakeLLM) IsAvailable(ctx context.Context) bool { return true }

func (f *fakeLLM) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return f.CompleteStructured(ctx, req)
}

func (f *fakeLLM) CompleteStructured(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.prompts = append(f.prompts, req.Messages[0].Content)
	if len(f.responses) == 0 {
		return &llm.CompletionResponse{Content: "{}"}, nil
	}
	content := f.responses[0]
	f.responses = f.responses[1:]
	return &llm.CompletionResponse{Content: content}, nil
}

const conversation = "Question one? Answer one. Question two? Answer two."

// response builds a modelResult JSON body assigning the given speaker
// labels to sequentially numbered paragraphs.
func response(t *testing.T, offset int, texts []string, speakers []string, notes *analysis) string {
	t.Helper()
	result := modelResult{Analysis: notes}
	for i, text := range texts {
		result.Paragraphs = append(result.Paragraphs, assignment{
			ID: offset + i, Speaker: speakers[i], Text: text,
		})
	}
	body, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	return string(body)
}

func TestIdentifySinglePass(t *testing.T) {
	paragraphs := segmenter.Split(conversation)
	if len(paragraphs) != 3 {
		t.Fatalf("fixture split into %d paragraphs, want 3", len(paragraphs))
	}
	fake := &fakeLLM{responses: []string{
		response(t, 0, paragraphs, []string{"A", "B", "A"}, nil),
	}}

	got := New(Config{Provider: fake}).Identify(context.Background(), conversation)
	want := []string{"Speaker 1", "Speaker 2", "Speaker 1"}
	if len(got) != len(paragraphs) {
		t.Fatalf("got %d segments, want %d", len(got), len(paragraphs))
	}
	for i, w := range want {
		if got[i].Speaker != w {
			t.Errorf("segment %d speaker = %q, want %q", i, got[i].Speaker, w)
		}
		if got[i].Text != paragraphs[i] {
			t.Errorf("segment %d text = %q, want %q", i, got[i].Text, paragraphs[i])
		}
	}
	if len(fake.prompts) != 1 {
		t.Errorf("made %d requests, want 1", len(fake.prompts))
	}
}

func TestIdentifyNormalizesVerboseLabels(t *testing.T) {
	paragraphs := segmenter.Split(conversation)
	fake := &fakeLLM{responses: []string{
		response(t, 0, paragraphs, []string{"Speaker A", "Speaker B", "C"}, nil),
	}}

	got := New(Config{Provider: fake}).Identify(context.Background(), conversation)
	want := []string{"Speaker 1", "Speaker 2", "C"} // unknown labels pass through
	for i, w := range want {
		if got[i].Speaker != w {
			t.Errorf("segment %d speaker = %q, want %q", i, got[i].Speaker, w)
		}
	}
}

func TestIdentifyMalformedResponseFallsBackToAlternating(t *testing.T) {
	fake := &fakeLLM{responses: []string{"this is not json"}}
	got := New(Config{Provider: fake}).Identify(context.Background(), conversation)

	paragraphs := segmenter.Split(conversation)
	if len(got) != len(paragraphs) {
		t.Fatalf("got %d segments, want %d", len(got), len(paragraphs))
	}
	for i, seg := range got {
		want := "Speaker 1"
		if i%2 == 1 {
			want = "Speaker 2"
		}
		if seg.Speaker != want {
			t.Errorf("segment %d speaker = %q, want %q", i, seg.Speaker, want)
		}
		if seg.Text != paragraphs[i] {
			t.Errorf("segment %d text = %q, want %q", i, seg.Text, paragraphs[i])
		}
	}
}

func TestIdentifyProviderErrorFallsBackToAlternating(t *testing.T) {
	fake := &fakeLLM{err: errors.New("model overloaded")}
	got := New(Config{Provider: fake}).Identify(context.Background(), conversation)

	paragraphs := segmenter.Split(conversation)
	if len(got) != len(paragraphs) {
		t.Fatalf("got %d segments, want %d", len(got), len(paragraphs))
	}
	for i, seg := range got {
		want := "Speaker 1"
		if i%2 == 1 {
			want = "Speaker 2"
		}
		if seg.Speaker != want {
			t.Errorf("segment %d speaker = %q, want %q", i, seg.Speaker, want)
		}
	}
}

func TestIdentifyRepairsCountMismatch(t *testing.T) {
	paragraphs := segmenter.Split(conversation)
	// Model drops all but the first paragraph: every position clamps to the
	// one available assignment.
	fake := &fakeLLM{responses: []string{
		response(t, 0, paragraphs[:1], []string{"B"}, nil),
	}}

	got := New(Config{Provider: fake}).Identify(context.Background(), conversation)
	if len(got) != len(paragraphs) {
		t.Fatalf("got %d segments, want %d", len(got), len(paragraphs))
	}
	for i, seg := range got {
		if seg.Speaker != "Speaker 2" {
			t.Errorf("segment %d speaker = %q, want %q", i, seg.Speaker, "Speaker 2")
		}
		if seg.Text != paragraphs[i] {
			t.Errorf("segment %d text = %q, want original paragraph %q", i, seg.Text, paragraphs[i])
		}
	}
}

func TestIdentifyEmptyAssignmentsFallBackToParity(t *testing.T) {
	got := New(Config{Provider: &fakeLLM{responses: []string{"{}"}}}).
		Identify(context.Background(), conversation)

	paragraphs := segmenter.Split(conversation)
	if len(got) != len(paragraphs) {
		t.Fatalf("got %d segments, want %d", len(got), len(paragraphs))
	}
	want := []string{"Speaker 1", "Speaker 2", "Speaker 1"}
	for i, w := range want {
		if got[i].Speaker != w {
			t.Errorf("segment %d speaker = %q, want %q", i, got[i].Speaker, w)
		}
	}
}

func TestIdentifyEmptyTranscript(t *testing.T) {
	got := New(Config{Provider: &fakeLLM{}}).Identify(context.Background(), "   ")
	if got != nil {
		t.Errorf("Identify of blank transcript = %v, want nil", got)
	}
}

func TestIdentifyChunkedCarriesCharacteristics(t *testing.T) {
	paragraphs := segmenter.Split(conversation)
	if len(paragraphs) != 3 {
		t.Fatalf("fixture split into %d paragraphs, want 3", len(paragraphs))
	}
	notes := &analysis{
		SpeakerACharacteristics: []string{"asks probing questions"},
		SpeakerBCharacteristics: []string{"gives short answers"},
	}
	// A 20-character budget puts each paragraph in its own chunk.
	fake := &fakeLLM{responses: []string{
		response(t, 0, paragraphs[0:1], []string{"A"}, notes),
		response(t, 1, paragraphs[1:2], []string{"B"}, nil),
		response(t, 2, paragraphs[2:3], []string{"A"}, nil),
	}}

	got := New(Config{Provider: fake, MaxChunkSize: 20}).Identify(context.Background(), conversation)
	if len(fake.prompts) != 3 {
		t.Fatalf("made %d requests, want 3", len(fake.prompts))
	}
	if !strings.Contains(fake.prompts[0], "characteristics and speaking style") {
		t.Errorf("first prompt does not request speaker characteristics")
	}
	for i, prompt := range fake.prompts[1:] {
		if !strings.Contains(prompt, "asks probing questions") {
			t.Errorf("continuation prompt %d missing carried-over characteristics", i+1)
		}
		if !strings.Contains(prompt, "Continue assigning speakers") {
			t.Errorf("continuation prompt %d uses the analysis prompt", i+1)
		}
	}

	want := []string{"Speaker 1", "Speaker 2", "Speaker 1"}
	if len(got) != len(paragraphs) {
		t.Fatalf("got %d segments, want %d", len(got), len(paragraphs))
	}
	for i, w := range want {
		if got[i].Speaker != w {
			t.Errorf("segment %d speaker = %q, want %q", i, got[i].Speaker, w)
		}
	}
}

func TestIdentifyChunkedErrorFallsBackToAlternating(t *testing.T) {
	fake := &fakeLLM{err: errors.New("timeout")}
	got := New(Config{Provider: fake, MaxChunkSize: 20}).Identify(context.Background(), conversation)

	paragraphs := segmenter.Split(conversation)
	if len(got) != len(paragraphs) {
		t.Fatalf("got %d segments, want %d", len(got), len(paragraphs))
	}
	for i, seg := range got {
		want := "Speaker 1"
		if i%2 == 1 {
			want = "Speaker 2"
		}
		if seg.Speaker != want {
			t.Errorf("segment %d speaker = %q, want %q", i, seg.Speaker, want)
		}
	}
}

func TestChunkParagraphs(t *testing.T) {
	tests := []struct {
		name       string
		paragraphs []string
		budget     int
		want       [][]string
	}{
		{
			name:       "all fit in one chunk",
			paragraphs: []string{"aa", "bb", "cc"},
			budget:     100,
			want:       [][]string{{"aa", "bb", "cc"}},
		},
		{
			name:       "greedy boundary",
			paragraphs: []string{"aaaa", "bbbb", "cc"},
			budget:     6,
			want:       [][]string{{"aaaa"}, {"bbbb", "cc"}},
		},
		{
			name:       "oversized paragraph gets own chunk",
			paragraphs: []string{"aa", "bbbbbbbbbb", "cc"},
			budget:     5,
			want:       [][]string{{"aa"}, {"bbbbbbbbbb"}, {"cc"}},
		},
		{
			name:       "empty input",
			paragraphs: nil,
			budget:     5,
			want:       nil,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := chunkParagraphs(tc.paragraphs, tc.budget)
			if len(got) != len(tc.want) {
				t.Fatalf("got %d chunks, want %d", len(got), len(tc.want))
			}
			for i := range tc.want {
				if len(got[i]) != len(tc.want[i]) {
					t.Fatalf("chunk %d has %d paragraphs, want %d", i, len(got[i]), len(tc.want[i]))
				}
				for j := range tc.want[i] {
					if got[i][j] != tc.want[i][j] {
						t.Errorf("chunk %d paragraph %d = %q, want %q", i, j, got[i][j], tc.want[i][j])
					}
				}
			}
		})
	}
}

func TestClampRepairWithinBounds(t *testing.T) {
	segments := []align.SpeakerSegment{
		{Speaker: "Speaker 1", Text: "old a"},
		{Speaker: "Speaker 2", Text: "old b"},
	}
	paragraphs := []string{"p0", "p1", "p2", "p3"}
	got := clampRepair(segments, paragraphs)
	want := []string{"Speaker 1", "Speaker 2", "Speaker 2", "Speaker 2"}
	for i, w := range want {
		if got[i].Speaker != w {
			t.Errorf("segment %d speaker = %q, want %q", i, got[i].Speaker, w)
		}
		if got[i].Text != paragraphs[i] {
			t.Errorf("segment %d text = %q, want %q", i, got[i].Text, paragraphs[i])
		}
	}
}
