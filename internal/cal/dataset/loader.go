package dataset

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/relevance-labs/cal-engine/internal/cal/vector"
)

// unitRecord is the on-disk shape of a single feature vector. The actual
// corpus/feature-vector format is a front-end concern; this loader is a
// minimal JSON-array stand-in so cmd/calserver can boot against a real
// Dataset without pulling in an indexing pipeline.
type unitRecord struct {
	Key      string    `json:"key"`
	Features []int32   `json:"features"`
	Values   []float32 `json:"values"`
	Parent   string    `json:"parent,omitempty"`
}

// LoadDocuments reads a JSON array of unitRecord from path and builds a
// MemoryDataset over it.
func LoadDocuments(path string, numFeatures int) (*MemoryDataset, error) {
	records, err := readRecords(path)
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(records))
	vectors := make([]*vector.Sparse, len(records))
	for i, rec := range records {
		keys[i] = rec.Key
		vectors[i] = vector.NewSparse(rec.Features, rec.Values, 0)
	}
	return NewMemoryDataset(keys, vectors, numFeatures)
}

// LoadParagraphs reads a JSON array of unitRecord from path, where each
// record's Parent field names the owning document's key, and builds a
// MemoryParagraphDataset against the given document Dataset.
func LoadParagraphs(path string, numFeatures int, documents Dataset) (*MemoryParagraphDataset, error) {
	records, err := readRecords(path)
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(records))
	vectors := make([]*vector.Sparse, len(records))
	documentOf := make([]int, len(records))
	for i, rec := range records {
		keys[i] = rec.Key
		vectors[i] = vector.NewSparse(rec.Features, rec.Values, 0)
		docIdx, ok := documents.GetIndex(rec.Parent)
		if !ok {
			return nil, fmt.Errorf("dataset: paragraph %q names unknown parent document %q", rec.Key, rec.Parent)
		}
		documentOf[i] = docIdx
	}
	paragraphMap := NewParagraphMap(documentOf)
	return NewMemoryParagraphDataset(keys, vectors, numFeatures, paragraphMap)
}

func readRecords(path string) ([]unitRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading corpus file %s: %w", path, err)
	}
	var records []unitRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing corpus file %s: %w", path, err)
	}
	return records, nil
}
