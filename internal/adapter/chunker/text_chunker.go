// Package chunker splits documents into pieces small enough to embed.
package chunker

import (
	"strings"
	"unicode/utf8"
)

// Text splits plain text into chunks by paragraph, then by sentence when
// a paragraph alone exceeds the budget. Consecutive chunks overlap by a
// configurable number of runes so context is not lost at boundaries.
type Text struct {
	maxRunes     int
	overlapRunes int
}

const (
	defaultMaxRunes     = 500
	defaultOverlapRunes = 50
)

func NewText(maxRunes, overlapRunes int) *Text {
	if maxRunes <= 0 {
		maxRunes = defaultMaxRunes
	}
	if overlapRunes < 0 || overlapRunes >= maxRunes {
		overlapRunes = defaultOverlapRunes
		if overlapRunes >= maxRunes {
			overlapRunes = maxRunes / 4
		}
	}
	return &Text{maxRunes: maxRunes, overlapRunes: overlapRunes}
}

// Chunk implements port.Chunker.
func (t *Text) Chunk(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var chunks []string
	var current strings.Builder
	currentRunes := 0

	flush := func() {
		piece := strings.TrimSpace(current.String())
		if piece != "" {
			chunks = append(chunks, piece)
		}
		current.Reset()
		currentRunes = 0
	}

	for _, para := range splitParagraphs(text) {
		n := utf8.RuneCountInString(para)
		if currentRunes > 0 && currentRunes+n+1 > t.maxRunes {
			flush()
		}
		if n <= t.maxRunes {
			if currentRunes > 0 {
				current.WriteString("\n\n")
				currentRunes++
			}
			current.WriteString(para)
			currentRunes += n
			continue
		}
		// Paragraph too large on its own.
		flush()
		for _, piece := range t.splitLong(para) {
			chunks = append(chunks, piece)
		}
	}
	flush()

	return t.withOverlap(chunks)
}

// splitLong breaks an oversized paragraph at sentence boundaries, and as
// a last resort at a hard rune limit.
func (t *Text) splitLong(para string) []string {
	var pieces []string
	var current strings.Builder
	currentRunes := 0

	for _, sent := range splitSentences(para) {
		n := utf8.RuneCountInString(sent)
		if currentRunes > 0 && currentRunes+n > t.maxRunes {
			pieces = append(pieces, strings.TrimSpace(current.String()))
			current.Reset()
			currentRunes = 0
		}
		if n > t.maxRunes {
			pieces = append(pieces, hardSplit(sent, t.maxRunes)...)
			continue
		}
		current.WriteString(sent)
		currentRunes += n
	}
	if currentRunes > 0 {
		pieces = append(pieces, strings.TrimSpace(current.String()))
	}
	return pieces
}

// withOverlap prepends the tail of the previous chunk to each chunk.
func (t *Text) withOverlap(chunks []string) []string {
	if t.overlapRunes == 0 || len(chunks) < 2 {
		return chunks
	}
	out := make([]string, len(chunks))
	out[0] = chunks[0]
	for i := 1; i < len(chunks); i++ {
		tail := runeTail(chunks[i-1], t.overlapRunes)
		if tail != "" {
			out[i] = tail + " " + chunks[i]
		} else {
			out[i] = chunks[i]
		}
	}
	return out
}

func splitParagraphs(text string) []string {
	raw := strings.Split(text, "\n\n")
	paras := make([]string, 0, len(raw))
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p != "" {
			paras = append(paras, p)
		}
	}
	return paras
}

var sentenceEnders = map[rune]bool{
	'.': true, '!': true, '?': true,
	'。': true, '！': true, '？': true,
}

// splitSentences keeps terminators attached, unlike the analyzer's
// splitter, because chunk text is shown back to the user.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	for _, r := range text {
		current.WriteRune(r)
		if sentenceEnders[r] {
			sentences = append(sentences, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		sentences = append(sentences, current.String())
	}
	return sentences
}

func hardSplit(text string, maxRunes int) []string {
	var pieces []string
	runes := []rune(text)
	for len(runes) > 0 {
		n := maxRunes
		if n > len(runes) {
			n = len(runes)
		}
		piece := strings.TrimSpace(string(runes[:n]))
		if piece != "" {
			pieces = append(pieces, piece)
		}
		runes = runes[n:]
	}
	return pieces
}

func runeTail(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return strings.TrimSpace(s)
	}
	tail := string(runes[len(runes)-n:])
	// Avoid starting the overlap mid-word for spaced scripts.
	if i := strings.IndexAny(tail, " \t\n"); i >= 0 && i < len(tail)-1 {
		tail = tail[i+1:]
	}
	return strings.TrimSpace(tail)
}
