package dataset

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCorpusFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestLoadDocuments(t *testing.T) {
	path := writeCorpusFile(t, "documents.json", `[
		{"key": "D1", "features": [0, 2], "values": [1.0, 0.5]},
		{"key": "D2", "features": [1], "values": [2.0]}
	]`)

	documents, err := LoadDocuments(path, 3)
	if err != nil {
		t.Fatalf("LoadDocuments: %v", err)
	}
	if documents.Size() != 2 {
		t.Fatalf("Size() = %d, want 2", documents.Size())
	}
	if idx, ok := documents.GetIndex("D2"); !ok || idx != 1 {
		t.Fatalf("GetIndex(D2) = %d,%v; want 1,true", idx, ok)
	}
}

func TestLoadParagraphsResolvesParent(t *testing.T) {
	docsPath := writeCorpusFile(t, "documents.json", `[{"key": "D1", "features": [0], "values": [1.0]}]`)
	documents, err := LoadDocuments(docsPath, 2)
	if err != nil {
		t.Fatalf("LoadDocuments: %v", err)
	}

	parasPath := writeCorpusFile(t, "paragraphs.json", `[
		{"key": "P1", "features": [0], "values": [1.0], "parent": "D1"},
		{"key": "P2", "features": [1], "values": [2.0], "parent": "D1"}
	]`)
	paragraphs, err := LoadParagraphs(parasPath, 2, documents)
	if err != nil {
		t.Fatalf("LoadParagraphs: %v", err)
	}
	if paragraphs.Size() != 2 {
		t.Fatalf("Size() = %d, want 2", paragraphs.Size())
	}
	docIdx, err := paragraphs.TranslateIndex(0)
	if err != nil || docIdx != 0 {
		t.Fatalf("TranslateIndex(0) = %d, %v; want 0, nil", docIdx, err)
	}
}

func TestLoadParagraphsUnknownParent(t *testing.T) {
	docsPath := writeCorpusFile(t, "documents.json", `[{"key": "D1", "features": [0], "values": [1.0]}]`)
	documents, err := LoadDocuments(docsPath, 2)
	if err != nil {
		t.Fatalf("LoadDocuments: %v", err)
	}

	parasPath := writeCorpusFile(t, "paragraphs.json", `[{"key": "P1", "features": [0], "values": [1.0], "parent": "missing"}]`)
	if _, err := LoadParagraphs(parasPath, 2, documents); err == nil {
		t.Fatal("expected error for unknown parent document")
	}
}

func TestReadRecordsMissingFile(t *testing.T) {
	if _, err := readRecords(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error reading nonexistent corpus file")
	}
}
