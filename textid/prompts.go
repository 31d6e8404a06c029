package textid

import (
	"encoding/json"
	"fmt"
)

// systemPrompt frames every identification request.
const systemPrompt = "You are an expert conversation analyst who identifies speaker turns in transcripts with high accuracy."

// indexedParagraph is a paragraph tagged with its global index, as supplied
// to the model.
type indexedParagraph struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// assignment is one paragraph-to-speaker decision returned by the model.
type assignment struct {
	ID      int    `json:"id"`
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// analysis captures the per-speaker style notes derived from the first
// request and carried into continuation requests.
type analysis struct {
	SpeakerACharacteristics []string `json:"speaker_a_characteristics"`
	SpeakerBCharacteristics []string `json:"speaker_b_characteristics"`
}

// modelResult is the strict JSON contract for identification responses.
type modelResult struct {
	Analysis   *analysis    `json:"analysis,omitempty"`
	Paragraphs []assignment `json:"paragraphs"`
}

func indexParagraphs(paragraphs []string, offset int) []indexedParagraph {
	out := make([]indexedParagraph, len(paragraphs))
	for i, p := range paragraphs {
		out[i] = indexedParagraph{ID: offset + i, Text: p}
	}
	return out
}

// analysisPrompt asks the model to both assign speakers and characterize
// each speaker's style. Used for single-pass requests and the first chunk
// of a chunked run.
func analysisPrompt(paragraphs []string, offset int) (string, error) {
	indexed, err := json.Marshal(indexParagraphs(paragraphs, offset))
	if err != nil {
		return "", fmt.Errorf("marshal paragraphs: %w", err)
	}
	return fmt.Sprintf(`Analyze this transcript and identify exactly two speakers (A and B).

TASK:
1. Determine which paragraphs belong to which speaker
2. Identify each speaker's characteristics and speaking style
3. Ensure logical conversation flow (e.g., questions are followed by answers)
4. Maintain consistency in first-person statements

Return JSON in this exact format:
{
    "analysis": {
        "speaker_a_characteristics": ["characteristic 1", "characteristic 2"],
        "speaker_b_characteristics": ["characteristic 1", "characteristic 2"],
        "speaker_count": 2,
        "conversation_type": "interview/discussion/etc"
    },
    "paragraphs": [
        {
            "id": %d,
            "speaker": "A",
            "text": "paragraph text"
        },
        ...
    ]
}

Transcript paragraphs:
%s`, offset, indexed), nil
}

// continuationPrompt carries the first chunk's speaker characteristics so
// later chunks keep the same A/B identities without re-deriving them.
func continuationPrompt(paragraphs []string, offset int, notes analysis) (string, error) {
	if notes.SpeakerACharacteristics == nil {
		notes.SpeakerACharacteristics = []string{}
	}
	if notes.SpeakerBCharacteristics == nil {
		notes.SpeakerBCharacteristics = []string{}
	}
	indexed, err := json.Marshal(indexParagraphs(paragraphs, offset))
	if err != nil {
		return "", fmt.Errorf("marshal paragraphs: %w", err)
	}
	aNotes, err := json.Marshal(notes.SpeakerACharacteristics)
	if err != nil {
		return "", fmt.Errorf("marshal characteristics: %w", err)
	}
	bNotes, err := json.Marshal(notes.SpeakerBCharacteristics)
	if err != nil {
		return "", fmt.Errorf("marshal characteristics: %w", err)
	}
	return fmt.Sprintf(`Continue assigning speakers to this transcript segment.

Speaker A characteristics: %s
Speaker B characteristics: %s

Return JSON with speaker assignments:
{
    "paragraphs": [
        {
            "id": %d,
            "speaker": "A or B",
            "text": "paragraph text"
        },
        ...
    ]
}

Transcript paragraphs:
%s`, aNotes, bNotes, offset, indexed), nil
}
