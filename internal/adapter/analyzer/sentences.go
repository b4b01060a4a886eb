package analyzer

import "strings"

// sentence-final punctuation, CJK and Latin
var sentenceEnders = map[rune]struct{}{
	'。': {}, '！': {}, '？': {},
	'.': {}, '!': {}, '?': {},
}

// SplitSentences splits text on sentence-final punctuation, trimming
// whitespace and dropping empty pieces. The terminator itself is not
// kept; coherence scoring only needs the sentence bodies.
func SplitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	flush := func() {
		s := strings.TrimSpace(current.String())
		current.Reset()
		if s != "" {
			sentences = append(sentences, s)
		}
	}

	for _, r := range text {
		if _, end := sentenceEnders[r]; end {
			flush()
			continue
		}
		current.WriteRune(r)
	}
	flush()

	return sentences
}
