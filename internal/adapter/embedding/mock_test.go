package embedding

import (
	"context"
	"errors"
	"math"
	"testing"

	"smartkb/internal/domain"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestMock_Deterministic(t *testing.T) {
	mock := NewMock(32)

	a, err := mock.Embed(context.Background(), []string{"hello world"})
	if err != nil {
		t.Fatal(err)
	}
	b, err := mock.Embed(context.Background(), []string{"hello world"})
	if err != nil {
		t.Fatal(err)
	}
	for i := range a[0] {
		if a[0][i] != b[0][i] {
			t.Fatal("same text must produce identical vectors")
		}
	}
}

func TestMock_Dimension(t *testing.T) {
	mock := NewMock(48)
	if mock.Dimension() != 48 {
		t.Errorf("expected dimension 48, got %d", mock.Dimension())
	}

	vecs, err := mock.Embed(context.Background(), []string{"abc", "def"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != 2 || len(vecs[0]) != 48 {
		t.Errorf("expected 2 vectors of length 48, got %d of %d", len(vecs), len(vecs[0]))
	}
}

func TestMock_SharedVocabularyIsCloser(t *testing.T) {
	mock := NewMock(64)

	vecs, err := mock.Embed(context.Background(), []string{
		"alpha bravo charlie",
		"alpha bravo delta",
		"今天天气好",
	})
	if err != nil {
		t.Fatal(err)
	}
	similar := cosine(vecs[0], vecs[1])
	dissimilar := cosine(vecs[0], vecs[2])
	if similar <= dissimilar {
		t.Errorf("shared vocabulary must score closer: similar=%f dissimilar=%f", similar, dissimilar)
	}
}

func TestMock_RejectsEmptyText(t *testing.T) {
	mock := NewMock(16)

	_, err := mock.Embed(context.Background(), []string{"ok", "   "})
	if !errors.Is(err, domain.ErrEmptyText) {
		t.Errorf("expected ErrEmptyText, got %v", err)
	}
}
