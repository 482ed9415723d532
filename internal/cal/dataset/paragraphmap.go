package dataset

import "fmt"

// ParagraphMap is the total, many-to-one function p -> d from
// paragraph-unit index to parent document-unit index. It is built once at
// corpus load and shared read-only thereafter.
type ParagraphMap struct {
	documentOf []int
}

// NewParagraphMap builds a ParagraphMap from documentOf, where
// documentOf[p] is the document-unit index containing paragraph p. The
// slice must cover every paragraph in the universe; it is copied so the
// caller's backing array can be reused.
func NewParagraphMap(documentOf []int) *ParagraphMap {
	owned := make([]int, len(documentOf))
	copy(owned, documentOf)
	return &ParagraphMap{documentOf: owned}
}

// Len reports the size of the paragraph universe this map is total over.
func (m *ParagraphMap) Len() int { return len(m.documentOf) }

// DocumentOf resolves a paragraph-unit index to its parent document-unit
// index.
func (m *ParagraphMap) DocumentOf(paragraphIdx int) (int, error) {
	if paragraphIdx < 0 || paragraphIdx >= len(m.documentOf) {
		return 0, fmt.Errorf("paragraphmap: index %d out of range [0,%d)", paragraphIdx, len(m.documentOf))
	}
	return m.documentOf[paragraphIdx], nil
}
