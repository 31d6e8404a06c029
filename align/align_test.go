package align

import (
	"context"
	"testing"
	"time"

	"github.com/kbukum/speakerkit/diarization"
	"github.com/kbukum/speakerkit/transcription"
)

func word(text string, start, end float64) transcription.Word {
	return transcription.Word{Word: text, Start: start, End: end}
}

func interval(speaker string, start, end float64) diarization.Segment {
	return diarization.Segment{Speaker: speaker, Start: start, End: end}
}

func TestAlignFastConversation(t *testing.T) {
	// "Hello there. How are you?" / "I am fine, thanks." with speaker X on
	// the outer intervals and Y in the middle. First paragraph majority is Y
	// (3 of 5 words), second is X.
	words := []transcription.Word{
		word("Hello", 0.0, 0.5),
		word("there.", 0.5, 1.0),
		word("How", 1.3, 1.6),
		word("are", 1.6, 2.0),
		word("you?", 2.0, 2.4),
		word("I", 3.6, 3.8),
		word("am", 3.8, 4.0),
		word("fine,", 4.0, 4.4),
		word("thanks.", 4.4, 4.8),
	}
	intervals := []diarization.Segment{
		interval("X", 0.0, 1.2),
		interval("Y", 1.2, 3.5),
		interval("X", 3.5, 6.0),
	}
	paragraphs := []string{"Hello there. How are you?", "I am fine, thanks."}

	got := New(Config{}).Align(context.Background(), words, intervals, paragraphs, 6*time.Second)
	if len(got) != len(paragraphs) {
		t.Fatalf("got %d segments, want %d", len(got), len(paragraphs))
	}
	// X appears first on the timeline, so X is Speaker 1 and Y is Speaker 2.
	want := []string{"Speaker 2", "Speaker 1"}
	for i, w := range want {
		if got[i].Speaker != w {
			t.Errorf("segment %d speaker = %q, want %q", i, got[i].Speaker, w)
		}
		if got[i].Text != paragraphs[i] {
			t.Errorf("segment %d text = %q, want %q", i, got[i].Text, paragraphs[i])
		}
	}
}

func TestAlignFastCoverageGap(t *testing.T) {
	// No diarization interval within tolerance of the word: the paragraph
	// falls back to the default speaker.
	words := []transcription.Word{word("orphan", 5.0, 5.4)}
	intervals := []diarization.Segment{interval("SPEAKER_00", 0.0, 1.0)}
	paragraphs := []string{"Orphan."}

	got := New(Config{}).Align(context.Background(), words, intervals, paragraphs, 10*time.Second)
	if len(got) != 1 {
		t.Fatalf("got %d segments, want 1", len(got))
	}
	if got[0].Speaker != DefaultSpeaker {
		t.Errorf("speaker = %q, want %q", got[0].Speaker, DefaultSpeaker)
	}
}

func TestAlignScalableMidpointMapping(t *testing.T) {
	// Three usable intervals with gaps at 10-12s and 20-22s; one interval
	// below the minimum duration sits inside the first gap and must be
	// ignored. Words "delta" and "juliet" have midpoints in the gaps.
	words := []transcription.Word{
		word("alpha", 1, 2),
		word("bravo", 3, 4),
		word("charlie", 5, 6),
		word("delta", 10.5, 11.5),
		word("echo", 13, 14),
		word("foxtrot", 15, 16),
		word("golf", 17, 18),
		word("hotel", 23, 24),
		word("india", 25, 26),
		word("juliet", 20.5, 21.5),
	}
	intervals := []diarization.Segment{
		interval("SPEAKER_00", 0, 10),
		interval("SPEAKER_05", 10.8, 11.1), // 0.3s, below minimum
		interval("SPEAKER_01", 12, 20),
		interval("SPEAKER_00", 22, 30),
	}
	paragraphs := []string{
		"alpha bravo charlie delta.",
		"echo foxtrot golf and then quite a few more words to keep this paragraph over the repair threshold.",
		"hotel india juliet.",
	}

	got := New(Config{}).Align(context.Background(), words, intervals, paragraphs, 10*time.Minute)
	if len(got) != len(paragraphs) {
		t.Fatalf("got %d segments, want %d", len(got), len(paragraphs))
	}
	want := []string{"Speaker 0", "Speaker 1", "Speaker 0"}
	for i, w := range want {
		if got[i].Speaker != w {
			t.Errorf("segment %d speaker = %q, want %q", i, got[i].Speaker, w)
		}
	}
}

func TestAlignNoParagraphs(t *testing.T) {
	got := New(Config{}).Align(context.Background(), nil, nil, nil, time.Minute)
	if got != nil {
		t.Errorf("Align with no paragraphs = %v, want nil", got)
	}
}

func TestAlignSegmentCountMatchesParagraphs(t *testing.T) {
	// Even with no words or intervals at all, every paragraph gets exactly
	// one segment, labeled with the default speaker.
	paragraphs := []string{"First paragraph.", "Second paragraph.", "Third."}
	for _, duration := range []time.Duration{time.Minute, time.Hour} {
		got := New(Config{}).Align(context.Background(), nil, nil, paragraphs, duration)
		if len(got) != len(paragraphs) {
			t.Fatalf("duration %v: got %d segments, want %d", duration, len(got), len(paragraphs))
		}
		for i, seg := range got {
			if seg.Speaker != DefaultSpeaker {
				t.Errorf("duration %v: segment %d speaker = %q, want %q", duration, i, seg.Speaker, DefaultSpeaker)
			}
		}
	}
}

func TestCoveringInterval(t *testing.T) {
	timeline := []diarization.Segment{
		interval("A", 0, 5),
		interval("B", 5, 10),
		interval("C", 12, 20),
	}
	tests := []struct {
		t    float64
		want int
	}{
		{0, 0},
		{4.9, 0},
		{5, 1},
		{11, -1}, // gap
		{15, 2},
		{25, -1},
	}
	for _, tc := range tests {
		if got := coveringInterval(timeline, tc.t); got != tc.want {
			t.Errorf("coveringInterval(%v) = %d, want %d", tc.t, got, tc.want)
		}
	}
}

func TestMajorityTieBreaksByFirstEncounter(t *testing.T) {
	counts := make(map[string]int)
	var order []string
	for _, s := range []string{"B", "A", "B", "A"} {
		order = vote(counts, order, s)
	}
	got, ok := majority(counts, order)
	if !ok || got != "B" {
		t.Errorf("majority = %q, %v; want first-encountered %q", got, ok, "B")
	}
}

func TestNormalizeToken(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello", "hello"},
		{" fine, ", "fine"},
		{`"Quoted!"`, "quoted"},
		{"don't", "don't"},
		{"...", ""},
	}
	for _, tc := range tests {
		if got := normalizeToken(tc.in); got != tc.want {
			t.Errorf("normalizeToken(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
