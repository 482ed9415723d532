// Package dataset provides the read-only unit store the controller scores
// against: a Dataset maps an opaque text key to a dense index and the
// SparseVector built for it; a ParagraphDataset additionally resolves a
// paragraph-unit index back to the document-unit index that contains it.
// Both are populated once at corpus load and shared read-only across all
// iterations, mirroring the teacher's MemoryIndex snapshot/load split.
package dataset

import (
	"fmt"

	"github.com/relevance-labs/cal-engine/internal/cal/vector"
)

// Dataset is the minimal consumed interface: size, positional vector
// lookup, key-to-index lookup, and feature-universe size.
type Dataset interface {
	Size() int
	VectorAt(i int) *vector.Sparse
	GetIndex(key string) (int, bool)
	NumFeatures() int
}

// ParagraphDataset extends Dataset with the paragraph-to-document
// granularity mapping the controller needs to dedup judgments.
type ParagraphDataset interface {
	Dataset
	TranslateIndex(paragraphIdx int) (int, error)
}

// MemoryDataset is an in-memory Dataset: units are loaded once (typically
// from an out-of-scope feature-vector store) and never mutated afterward.
type MemoryDataset struct {
	vectors     []*vector.Sparse
	keys        []string
	indexByKey  map[string]int
	numFeatures int
}

// NewMemoryDataset builds a Dataset from parallel slices of keys and
// vectors. numFeatures is the feature-id universe size (the caller's
// responsibility, since SparseVector construction is out of scope here).
func NewMemoryDataset(keys []string, vectors []*vector.Sparse, numFeatures int) (*MemoryDataset, error) {
	if len(keys) != len(vectors) {
		return nil, fmt.Errorf("dataset: mismatched keys/vectors lengths %d/%d", len(keys), len(vectors))
	}
	indexByKey := make(map[string]int, len(keys))
	for i, key := range keys {
		indexByKey[key] = i
	}
	return &MemoryDataset{
		vectors:     vectors,
		keys:        keys,
		indexByKey:  indexByKey,
		numFeatures: numFeatures,
	}, nil
}

func (d *MemoryDataset) Size() int { return len(d.vectors) }

func (d *MemoryDataset) VectorAt(i int) *vector.Sparse { return d.vectors[i] }

func (d *MemoryDataset) GetIndex(key string) (int, bool) {
	idx, ok := d.indexByKey[key]
	return idx, ok
}

func (d *MemoryDataset) NumFeatures() int { return d.numFeatures }

// KeyAt returns the text key for unit index i, the inverse of GetIndex.
func (d *MemoryDataset) KeyAt(i int) string { return d.keys[i] }

// MemoryParagraphDataset adds the paragraph→document mapping on top of
// MemoryDataset. The forward map (paragraph index -> document index) is
// all that §6 requires; a reverse map is not built since no operation
// needs it.
type MemoryParagraphDataset struct {
	*MemoryDataset
	paragraphMap *ParagraphMap
}

// NewMemoryParagraphDataset pairs a document-unit MemoryDataset built over
// paragraph vectors with the ParagraphMap that resolves each paragraph
// index to its parent document index.
func NewMemoryParagraphDataset(keys []string, vectors []*vector.Sparse, numFeatures int, paragraphMap *ParagraphMap) (*MemoryParagraphDataset, error) {
	base, err := NewMemoryDataset(keys, vectors, numFeatures)
	if err != nil {
		return nil, err
	}
	if paragraphMap.Len() != base.Size() {
		return nil, fmt.Errorf("dataset: paragraph map covers %d paragraphs, dataset has %d", paragraphMap.Len(), base.Size())
	}
	return &MemoryParagraphDataset{MemoryDataset: base, paragraphMap: paragraphMap}, nil
}

func (d *MemoryParagraphDataset) TranslateIndex(paragraphIdx int) (int, error) {
	return d.paragraphMap.DocumentOf(paragraphIdx)
}
