package dataset

import (
	"testing"

	"github.com/relevance-labs/cal-engine/internal/cal/vector"
)

func buildTestVectors(n int) []*vector.Sparse {
	vectors := make([]*vector.Sparse, n)
	for i := range vectors {
		vectors[i] = vector.NewSparse([]int32{0}, []float32{float32(i)}, 0)
	}
	return vectors
}

func TestMemoryDatasetLookup(t *testing.T) {
	keys := []string{"a", "b", "c"}
	vectors := buildTestVectors(3)
	ds, err := NewMemoryDataset(keys, vectors, 1)
	if err != nil {
		t.Fatalf("NewMemoryDataset: %v", err)
	}
	if ds.Size() != 3 {
		t.Fatalf("Size() = %d, want 3", ds.Size())
	}
	idx, ok := ds.GetIndex("b")
	if !ok || idx != 1 {
		t.Fatalf("GetIndex(b) = %d,%v; want 1,true", idx, ok)
	}
	if _, ok := ds.GetIndex("missing"); ok {
		t.Fatal("GetIndex(missing) should report not-found")
	}
	if ds.KeyAt(2) != "c" {
		t.Fatalf("KeyAt(2) = %q, want c", ds.KeyAt(2))
	}
}

func TestMemoryDatasetRejectsMismatchedLengths(t *testing.T) {
	if _, err := NewMemoryDataset([]string{"a", "b"}, buildTestVectors(1), 1); err == nil {
		t.Fatal("expected error on mismatched keys/vectors lengths")
	}
}

// S3 setup's shape: 3 paragraphs mapping to 2 documents {P1,P2->D1; P3->D2}.
func TestParagraphMapTranslateIndex(t *testing.T) {
	pm := NewParagraphMap([]int{0, 0, 1}) // P1,P2 -> D1(idx 0); P3 -> D2(idx 1)

	docs := []string{"D1", "D2"}
	docVectors := buildTestVectors(2)
	paragraphs := []string{"P1", "P2", "P3"}
	paragraphVectors := buildTestVectors(3)

	docDataset, err := NewMemoryDataset(docs, docVectors, 1)
	if err != nil {
		t.Fatalf("NewMemoryDataset(docs): %v", err)
	}
	_ = docDataset

	paragraphDataset, err := NewMemoryParagraphDataset(paragraphs, paragraphVectors, 1, pm)
	if err != nil {
		t.Fatalf("NewMemoryParagraphDataset: %v", err)
	}

	for p, wantDoc := range []int{0, 0, 1} {
		got, err := paragraphDataset.TranslateIndex(p)
		if err != nil {
			t.Fatalf("TranslateIndex(%d): %v", p, err)
		}
		if got != wantDoc {
			t.Fatalf("TranslateIndex(%d) = %d, want %d", p, got, wantDoc)
		}
	}
}

func TestParagraphMapOutOfRange(t *testing.T) {
	pm := NewParagraphMap([]int{0, 1})
	if _, err := pm.DocumentOf(5); err == nil {
		t.Fatal("expected error for out-of-range paragraph index")
	}
}

func TestNewMemoryParagraphDatasetRejectsSizeMismatch(t *testing.T) {
	pm := NewParagraphMap([]int{0, 0, 1})
	if _, err := NewMemoryParagraphDataset([]string{"P1", "P2"}, buildTestVectors(2), 1, pm); err == nil {
		t.Fatal("expected error when paragraph map length does not match dataset size")
	}
}
