package store

import (
	"os"
	"path/filepath"
	"testing"

	"smartkb/internal/domain"
)

func testChunks() ([]domain.Chunk, [][]float32) {
	documents := []domain.Chunk{
		{Text: "first chunk", Metadata: domain.Metadata{
			domain.SourceKey: domain.StringValue("a.txt"),
			"chunk":          domain.NumberValue(0),
		}},
		{Text: "second chunk", Metadata: domain.Metadata{
			domain.SourceKey: domain.StringValue("b.txt"),
		}},
		{Text: "third chunk with no metadata"},
	}
	embeddings := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
	return documents, embeddings
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.db")
	documents, embeddings := testChunks()

	if err := Save(path, documents, embeddings); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	snap, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if snap.Legacy {
		t.Error("fresh save must not be flagged legacy")
	}
	if len(snap.Documents) != 3 || len(snap.Embeddings) != 3 {
		t.Fatalf("expected 3 documents and 3 embeddings, got %d and %d",
			len(snap.Documents), len(snap.Embeddings))
	}
	if snap.Documents[0].Text != "first chunk" {
		t.Errorf("wrong text: %q", snap.Documents[0].Text)
	}
	if snap.Documents[0].Metadata.Source() != "a.txt" {
		t.Errorf("wrong source: %q", snap.Documents[0].Metadata.Source())
	}
	if n, ok := snap.Documents[0].Metadata["chunk"].Number(); !ok || n != 0 {
		t.Errorf("numeric metadata lost: %v", snap.Documents[0].Metadata)
	}
	if snap.Embeddings[1][1] != 1 {
		t.Errorf("embedding row corrupted: %v", snap.Embeddings[1])
	}
}

func TestSave_OverwritesPrevious(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.db")
	documents, embeddings := testChunks()

	if err := Save(path, documents, embeddings); err != nil {
		t.Fatal(err)
	}
	if err := Save(path, documents[:1], embeddings[:1]); err != nil {
		t.Fatal(err)
	}

	snap, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Documents) != 1 {
		t.Errorf("expected overwrite to shrink to 1 document, got %d", len(snap.Documents))
	}
}

func TestSave_SizeMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.db")
	documents, embeddings := testChunks()

	if err := Save(path, documents, embeddings[:2]); err == nil {
		t.Error("expected error for corpus/matrix size mismatch")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("failed save must not leave a sidecar behind")
	}
}

func TestSave_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.db")

	if err := Save(path, nil, nil); err != nil {
		t.Fatalf("saving an empty corpus should work: %v", err)
	}
	snap, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Documents) != 0 || snap.Legacy {
		t.Errorf("expected an empty current-schema snapshot, got %+v", snap)
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.db"))
	if !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestLoad_LegacySchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")

	texts := []string{"legacy one", "legacy two"}
	metadata := []domain.Metadata{
		{domain.SourceKey: domain.StringValue("old.txt")},
		nil,
	}
	if err := WriteLegacy(path, texts, metadata); err != nil {
		t.Fatalf("WriteLegacy failed: %v", err)
	}

	snap, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !snap.Legacy {
		t.Error("v1 sidecar must be flagged legacy")
	}
	if len(snap.Documents) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(snap.Documents))
	}
	if snap.Documents[0].Text != "legacy one" {
		t.Errorf("wrong text: %q", snap.Documents[0].Text)
	}
	if snap.Documents[0].Metadata.Source() != "old.txt" {
		t.Errorf("legacy metadata lost: %v", snap.Documents[0].Metadata)
	}
	if len(snap.Embeddings) != 0 {
		t.Errorf("legacy snapshots carry no embeddings, got %d", len(snap.Embeddings))
	}
}

func TestLoad_UpgradePreservesOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")

	texts := make([]string, 20)
	for i := range texts {
		texts[i] = string(rune('a'+i)) + " document"
	}
	if err := WriteLegacy(path, texts, nil); err != nil {
		t.Fatal(err)
	}

	snap, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	for i, doc := range snap.Documents {
		if doc.Text != texts[i] {
			t.Fatalf("document %d out of order: got %q, want %q", i, doc.Text, texts[i])
		}
	}
}
