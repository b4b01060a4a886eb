package retriever

import (
	"math"
	"strings"
	"sync"

	"smartkb/internal/adapter/analyzer"
)

// Lexical scores keyword overlap between a query and chunk text, and
// maintains corpus-relative keyword importance weights that adapt
// slowly across queries.
type Lexical struct {
	tokenizer *analyzer.Tokenizer

	mu         sync.RWMutex
	importance map[string]float64
}

// EMA smoothing for keyword importance: adapt across queries without
// overfitting to any single one.
const (
	importanceKeep  = 0.7
	importanceFresh = 0.3

	// minMatchRate gates KeywordImportance outright below this
	// fraction of matched query tokens.
	minMatchRate = 0.3
)

func NewLexical(tokenizer *analyzer.Tokenizer) *Lexical {
	return &Lexical{
		tokenizer:  tokenizer,
		importance: make(map[string]float64),
	}
}

// KeywordMatch returns |query tokens ∩ text tokens| / |query tokens|,
// or 0 when either token set is empty.
func (l *Lexical) KeywordMatch(query, text string) float64 {
	querySet := l.tokenizer.TokenSet(query)
	textSet := l.tokenizer.TokenSet(text)
	if len(querySet) == 0 || len(textSet) == 0 {
		return 0
	}

	matches := 0
	for tok := range querySet {
		if _, ok := textSet[tok]; ok {
			matches++
		}
	}
	if matches == 0 {
		return 0
	}
	return float64(matches) / float64(len(querySet))
}

// KeywordImportance scores how prominently the query's keywords appear
// in text. Below a 30% match rate it returns 0 outright; this is a
// hard gate, not a penalty. Above the gate it blends term frequency
// weighted by corpus-relative importance (0.4), early-position reward
// (0.3), and the match rate itself (0.3).
func (l *Lexical) KeywordImportance(query, text string) float64 {
	querySet := l.tokenizer.TokenSet(query)
	if len(querySet) == 0 {
		return 0
	}

	textTokens := l.tokenizer.Tokenize(text)
	freq := make(map[string]int, len(textTokens))
	for _, tok := range textTokens {
		freq[tok]++
	}

	var matched []string
	for tok := range querySet {
		if freq[tok] > 0 {
			matched = append(matched, tok)
		}
	}
	if len(matched) == 0 {
		return 0
	}

	matchRate := float64(len(matched)) / float64(len(querySet))
	if matchRate < minMatchRate {
		return 0
	}

	// Tokens are lowercased, so fold the text the same way before
	// locating occurrences.
	runes := []rune(strings.ToLower(text))
	positionSum := 0.0
	positioned := false
	for _, tok := range matched {
		offsets := runeOffsets(runes, []rune(tok))
		if len(offsets) == 0 {
			continue
		}
		score := 0.0
		for _, off := range offsets {
			score += 1 - float64(off)/float64(len(runes))
		}
		positionSum += score / float64(len(offsets))
		positioned = true
	}
	if !positioned {
		return 0
	}

	l.mu.RLock()
	freqTerm := 0.0
	for _, tok := range matched {
		freqTerm += float64(freq[tok]) * l.weightLocked(tok)
	}
	l.mu.RUnlock()
	freqTerm /= float64(len(matched))

	return 0.4*freqTerm + 0.3*positionSum + 0.3*matchRate
}

// weightLocked returns the importance weight for tok, defaulting to 1.
// Caller holds l.mu.
func (l *Lexical) weightLocked(tok string) float64 {
	if w, ok := l.importance[tok]; ok {
		return w
	}
	return 1.0
}

// RefreshImportance updates keyword weights from a query whose top
// results are known, smoothing with an exponential moving average so
// importance drifts rather than jumps.
func (l *Lexical) RefreshImportance(query string, relevantTexts []string) {
	querySet := l.tokenizer.TokenSet(query)
	if len(querySet) == 0 || len(relevantTexts) == 0 {
		return
	}

	docs := append([]string{query}, relevantTexts...)
	fresh := l.tfidfMeans(docs, querySet)

	l.mu.Lock()
	defer l.mu.Unlock()
	for tok, f := range fresh {
		old, ok := l.importance[tok]
		if !ok {
			old = f
		}
		l.importance[tok] = importanceKeep*old + importanceFresh*f
	}
}

// tfidfMeans computes, for each query token, the mean TF-IDF value of
// that token across docs (smooth IDF, L2-normalized rows).
func (l *Lexical) tfidfMeans(docs []string, querySet map[string]struct{}) map[string]float64 {
	n := len(docs)
	counts := make([]map[string]int, n)
	df := make(map[string]int)
	for i, doc := range docs {
		tf := make(map[string]int)
		for _, tok := range l.tokenizer.Tokenize(doc) {
			tf[tok]++
		}
		counts[i] = tf
		for tok := range tf {
			df[tok]++
		}
	}

	idf := func(tok string) float64 {
		return math.Log(float64(1+n)/float64(1+df[tok])) + 1
	}

	sums := make(map[string]float64, len(querySet))
	for _, tf := range counts {
		var norm float64
		for tok, c := range tf {
			v := float64(c) * idf(tok)
			norm += v * v
		}
		norm = math.Sqrt(norm)
		if norm == 0 {
			continue
		}
		for tok := range querySet {
			if c, ok := tf[tok]; ok {
				sums[tok] += float64(c) * idf(tok) / norm
			}
		}
	}

	means := make(map[string]float64, len(sums))
	for tok, sum := range sums {
		means[tok] = sum / float64(n)
	}
	return means
}

// runeOffsets returns every rune offset at which needle occurs in
// haystack, overlapping occurrences included.
func runeOffsets(haystack, needle []rune) []int {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return nil
	}
	var offsets []int
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			offsets = append(offsets, i)
		}
	}
	return offsets
}
