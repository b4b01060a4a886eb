package usecase

import (
	"context"
	"testing"

	"smartkb/internal/adapter/embedding"
	"smartkb/internal/domain"
)

func TestSearch_CJKPhraseMatch(t *testing.T) {
	engine := newTestEngine(t)
	addDoc(t, engine, "phones.txt", "智能手机价格为3999元")
	addDoc(t, engine, "laptops.txt", "笔记本电脑配备处理器")

	results, err := engine.Search(context.Background(), "智能手机价格", 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected exactly the phone document, got %d results", len(results))
	}
	if results[0].Metadata.Source() != "phones.txt" {
		t.Errorf("wrong document matched: %s", results[0].Metadata.Source())
	}
	if results[0].Breakdown.KeywordMatch != 1.0 {
		t.Errorf("every query bigram appears in the text, expected keyword match 1.0, got %f",
			results[0].Breakdown.KeywordMatch)
	}
}

func TestSearch_NoVectorOnlyMatches(t *testing.T) {
	engine := newTestEngine(t)
	// Shares most letters with the query (so the mock embedder puts
	// the vectors close together) but no whole token.
	addDoc(t, engine, "a.txt", "zebras graze calmly")

	results, err := engine.Search(context.Background(), "breeze gazer", 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("zero keyword overlap must exclude a chunk regardless of vector similarity, got %d results", len(results))
	}
}

func TestSearch_ScoreThresholdGate(t *testing.T) {
	opts := DefaultOptions()
	opts.ScoreThreshold = 0.99
	engine, err := NewEngine(context.Background(), embedding.NewMock(testDimension), opts, nil)
	if err != nil {
		t.Fatal(err)
	}
	addDoc(t, engine, "a.txt", "alpha bravo charlie")

	// Partial keyword match caps the fused score well below 0.99.
	results, err := engine.Search(context.Background(), "alpha bravo zulu", 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("fused score below the threshold must be rejected, got %d results", len(results))
	}
}

func TestSearch_ThresholdMonotonicity(t *testing.T) {
	ctx := context.Background()
	texts := []string{
		"alpha bravo charlie delta",
		"alpha bravo unrelated filler",
		"alpha only matching here",
	}

	run := func(keywordThreshold float64) int {
		opts := DefaultOptions()
		opts.KeywordThreshold = keywordThreshold
		engine, err := NewEngine(ctx, embedding.NewMock(testDimension), opts, nil)
		if err != nil {
			t.Fatal(err)
		}
		addDoc(t, engine, "a.txt", texts...)
		results, err := engine.Search(ctx, "alpha bravo charlie delta", 10)
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		return len(results)
	}

	loose := run(0.1)
	strict := run(0.9)
	if strict > loose {
		t.Errorf("raising a threshold must never add results: loose=%d strict=%d", loose, strict)
	}
}

func TestSearch_RankingAndTopK(t *testing.T) {
	engine := newTestEngine(t)
	addDoc(t, engine, "a.txt",
		"alpha bravo charlie delta",
		"alpha bravo charlie unrelated",
		"alpha bravo mostly filler words",
	)

	results, err := engine.Search(context.Background(), "alpha bravo charlie delta", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) < 2 {
		t.Fatalf("expected at least the two strong matches, got %d", len(results))
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("results out of order at %d: %f > %f", i, results[i].Score, results[i-1].Score)
		}
	}
	if results[0].Text != "alpha bravo charlie delta" {
		t.Errorf("full keyword match must rank first, got %q", results[0].Text)
	}

	capped, err := engine.Search(context.Background(), "alpha bravo charlie delta", 1)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(capped) != 1 {
		t.Errorf("topK must cap the result count, got %d", len(capped))
	}
	if capped[0].Text != results[0].Text {
		t.Errorf("topK must keep the best result, got %q", capped[0].Text)
	}
}

func TestSearch_MinScoreFilter(t *testing.T) {
	ctx := context.Background()
	opts := DefaultOptions()
	opts.MinScore = 0.999
	engine, err := NewEngine(ctx, embedding.NewMock(testDimension), opts, nil)
	if err != nil {
		t.Fatal(err)
	}
	addDoc(t, engine, "a.txt", "alpha bravo charlie unrelated filler")

	results, err := engine.Search(ctx, "alpha bravo charlie", 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("min-score filter must drop low results, got %d", len(results))
	}
}

func TestSearch_BreakdownPopulated(t *testing.T) {
	engine := newTestEngine(t)
	addDoc(t, engine, "a.txt", "alpha bravo charlie")

	results, err := engine.Search(context.Background(), "alpha bravo charlie", 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	b := results[0].Breakdown
	if b.VectorSimilarity <= 0 || b.KeywordMatch != 1.0 {
		t.Errorf("breakdown not populated: %+v", b)
	}
	if b.WeightedScore != results[0].Score {
		t.Errorf("breakdown score %f disagrees with result score %f", b.WeightedScore, results[0].Score)
	}
}

func TestSearch_RelevanceStrategy(t *testing.T) {
	ctx := context.Background()
	opts := DefaultOptions()
	opts.Strategy = StrategyRelevance
	engine, err := NewEngine(ctx, embedding.NewMock(testDimension), opts, nil)
	if err != nil {
		t.Fatal(err)
	}
	text := "alpha bravo charlie"
	addDoc(t, engine, "a.txt", text)
	addDoc(t, engine, "b.txt", "totally different vocabulary here")

	results, err := engine.Search(ctx, text, 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected the exact match only, got %d results", len(results))
	}
	b := results[0].Breakdown
	if b.KeywordImportance <= 0 || b.SemanticCoherence <= 0 {
		t.Errorf("relevance breakdown not populated: %+v", b)
	}
	if b.KeywordMatch <= 0 {
		t.Errorf("keyword match missing from relevance breakdown: %+v", b)
	}
}

func TestSearch_ResultMetadataIsolated(t *testing.T) {
	engine := newTestEngine(t)
	addDoc(t, engine, "a.txt", "alpha bravo charlie")

	results, err := engine.Search(context.Background(), "alpha bravo", 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	// Mutating a returned result must not corrupt the corpus.
	results[0].Metadata[domain.SourceKey] = domain.StringValue("tampered")

	again, err := engine.Search(context.Background(), "alpha bravo", 5)
	if err != nil {
		t.Fatal(err)
	}
	if again[0].Metadata.Source() != "a.txt" {
		t.Error("result metadata must be a copy, not a reference to corpus state")
	}
}
