package retriever

import (
	"testing"

	"smartkb/internal/adapter/analyzer"
)

func newLexical() *Lexical {
	return NewLexical(analyzer.NewTokenizer())
}

func TestKeywordMatch_FullOverlap(t *testing.T) {
	lex := newLexical()

	score := lex.KeywordMatch("database connection", "the database holds connection pools")
	if score != 1.0 {
		t.Errorf("expected full match 1.0, got %f", score)
	}
}

func TestKeywordMatch_PartialOverlap(t *testing.T) {
	lex := newLexical()

	score := lex.KeywordMatch("database connection", "database tuning guide")
	if score != 0.5 {
		t.Errorf("expected 0.5 for one of two keywords, got %f", score)
	}
}

func TestKeywordMatch_NoOverlap(t *testing.T) {
	lex := newLexical()

	score := lex.KeywordMatch("database connection", "gardening tips")
	if score != 0 {
		t.Errorf("expected 0 for disjoint vocabulary, got %f", score)
	}
}

func TestKeywordMatch_CJK(t *testing.T) {
	lex := newLexical()

	score := lex.KeywordMatch("智能手机", "智能手机价格为3999元")
	if score != 1.0 {
		t.Errorf("expected bigram overlap 1.0, got %f", score)
	}
	if s := lex.KeywordMatch("智能手机", "笔记本电脑配备处理器"); s != 0 {
		t.Errorf("expected 0 for unrelated CJK text, got %f", s)
	}
}

func TestKeywordImportance_GateBelowMatchRate(t *testing.T) {
	lex := newLexical()

	// One of four keywords present: 25% match rate, below the gate.
	score := lex.KeywordImportance("alpha bravo charlie delta", "alpha something else entirely here")
	if score != 0 {
		t.Errorf("expected hard gate to zero the score, got %f", score)
	}
}

func TestKeywordImportance_Positive(t *testing.T) {
	lex := newLexical()

	score := lex.KeywordImportance("alpha bravo", "alpha bravo appears early in line")
	if score <= 0 {
		t.Errorf("expected positive importance, got %f", score)
	}
}

func TestKeywordImportance_CapitalizedText(t *testing.T) {
	lex := newLexical()

	score := lex.KeywordImportance("kubernetes docker", "Kubernetes With Docker Together")
	if score <= 0 {
		t.Errorf("expected positive importance for capitalized occurrences, got %f", score)
	}
	lower := lex.KeywordImportance("kubernetes docker", "kubernetes with docker together")
	if score != lower {
		t.Errorf("case must not change the score: capitalized=%f lower=%f", score, lower)
	}
}

func TestKeywordImportance_PositionReward(t *testing.T) {
	lex := newLexical()

	early := lex.KeywordImportance("alpha", "alpha zulu yankee xray whiskey victor")
	late := lex.KeywordImportance("alpha", "zulu yankee xray whiskey victor alpha")
	if early <= late {
		t.Errorf("earlier keyword position must score higher: early=%f late=%f", early, late)
	}
}

func TestKeywordImportance_NoMatch(t *testing.T) {
	lex := newLexical()

	if score := lex.KeywordImportance("alpha bravo", "gamma delta epsilon"); score != 0 {
		t.Errorf("expected 0 with no matched keywords, got %f", score)
	}
	if score := lex.KeywordImportance("", "anything"); score != 0 {
		t.Errorf("expected 0 for empty query, got %f", score)
	}
}

func TestRefreshImportance_DampensWeights(t *testing.T) {
	lex := newLexical()

	query := "alpha bravo"
	text := "alpha bravo appears early in line"

	before := lex.KeywordImportance(query, text)
	lex.RefreshImportance(query, []string{text})
	after := lex.KeywordImportance(query, text)

	// TF-IDF means over short documents sit well below the default
	// weight of 1, so the frequency term must shrink.
	if after >= before {
		t.Errorf("expected importance to decrease after refresh: before=%f after=%f", before, after)
	}
}

func TestRefreshImportance_NoResultsNoChange(t *testing.T) {
	lex := newLexical()

	query := "alpha bravo"
	text := "alpha bravo appears early in line"
	before := lex.KeywordImportance(query, text)

	lex.RefreshImportance(query, nil)

	if after := lex.KeywordImportance(query, text); after != before {
		t.Errorf("refresh with no results must not change weights: before=%f after=%f", before, after)
	}
}
