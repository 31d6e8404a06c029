// Package segmenter splits raw transcript text into semantically coherent
// paragraphs using lexical heuristics: turn-indicator phrases, question
// boundaries, continuation connectives, and a sentence-count cap. It is a
// pure function of the input text and performs no I/O.
package segmenter

import (
	"regexp"
	"strings"
)

// maxSentencesPerParagraph caps paragraph length so a single paragraph
// never swallows a whole exchange.
const maxSentencesPerParagraph = 4

// sentenceSplit matches whitespace following sentence-terminal punctuation.
var sentenceSplit = regexp.MustCompile(`(?:[.!?])\s+`)

// anaphoricStart matches sentences opening with a pronoun reference back to
// the previous sentence, a signal the same speaker is continuing.
var anaphoricStart = regexp.MustCompile(`(?i)^(It|This|That|These|Those|They|He|She|We|I)\b`)

// turnIndicators often signal the start of a new speaker's turn.
var turnIndicators = []string{
	"yes", "no", "I think", "I believe", "so,", "well,", "actually",
	"to be honest", "in my opinion", "I agree", "I disagree",
	"let me", "I'd like to", "I would", "you know", "um", "uh",
	"hmm", "but", "however", "from my perspective", "wait", "okay",
	"right", "sure", "exactly", "absolutely", "definitely", "perhaps",
	"look", "listen", "basically", "frankly", "honestly", "now", "so",
	"thank you", "thanks", "good point", "interesting", "true", "correct",
	"first of all", "firstly", "secondly", "finally", "in conclusion",
}

// continuationIndicators signal the same speaker carrying on.
var continuationIndicators = []string{
	"and", "also", "additionally", "moreover", "furthermore", "plus",
	"then", "after that", "next", "finally", "lastly", "in addition",
	"consequently", "as a result", "therefore", "thus", "besides",
	"for example", "specifically", "in particular", "especially",
	"because", "since", "due to", "as such", "which means",
}

// Split breaks transcript text into paragraphs. An empty or
// whitespace-only transcript yields an empty slice.
func Split(transcript string) []string {
	sentences := splitSentences(transcript)
	if len(sentences) == 0 {
		return nil
	}

	var paragraphs []string
	var current []string

	for i, sentence := range sentences {
		startNew := false

		switch {
		case i == 0:
			startNew = true
		case strings.HasSuffix(sentences[i-1], "?"):
			startNew = true
		case hasAnyPrefix(sentence, turnIndicators):
			startNew = true
		case !hasAnyPrefix(sentence, continuationIndicators) &&
			!anaphoricStart.MatchString(sentence) &&
			len(current) >= 2:
			startNew = true
		case len(current) >= maxSentencesPerParagraph:
			startNew = true
		}

		if startNew && len(current) > 0 {
			paragraphs = append(paragraphs, strings.Join(current, " "))
			current = nil
		}
		current = append(current, sentence)
	}

	if len(current) > 0 {
		paragraphs = append(paragraphs, strings.Join(current, " "))
	}
	return paragraphs
}

// splitSentences splits text on sentence-terminal punctuation, preserving
// the punctuation with its sentence.
func splitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	// Split points sit after the terminal punctuation, so re-walk the text
	// keeping each terminator attached to its sentence.
	locs := sentenceSplit.FindAllStringIndex(text, -1)
	var sentences []string
	start := 0
	for _, loc := range locs {
		// loc[0]+1 keeps the punctuation character with the sentence.
		sentence := strings.TrimSpace(text[start : loc[0]+1])
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		start = loc[1]
	}
	if tail := strings.TrimSpace(text[start:]); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

func hasAnyPrefix(sentence string, prefixes []string) bool {
	lower := strings.ToLower(sentence)
	for _, p := range prefixes {
		if strings.HasPrefix(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}
