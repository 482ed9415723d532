package controller

import (
	"testing"

	"github.com/relevance-labs/cal-engine/internal/cal/dataset"
	"github.com/relevance-labs/cal-engine/internal/cal/events"
	"github.com/relevance-labs/cal-engine/internal/cal/vector"
)

// fakeEventSink records every Track call in order, for asserting which
// lifecycle events a controller actually publishes.
type fakeEventSink struct {
	keys   []string
	values []any
}

func (f *fakeEventSink) Track(key string, value any) {
	f.keys = append(f.keys, key)
	f.values = append(f.values, value)
}

func buildIdentityCorpus(t *testing.T, n int) (*dataset.MemoryDataset, *dataset.MemoryParagraphDataset) {
	t.Helper()
	keys := make([]string, n)
	vectors := make([]*vector.Sparse, n)
	documentOf := make([]int, n)
	for i := 0; i < n; i++ {
		keys[i] = "D" + string(rune('0'+i))
		v1 := float32(i%2) * 2
		v2 := float32((i + 1) % 2)
		vectors[i] = vector.NewSparse([]int32{0, 1}, []float32{v1, v2}, 0)
		documentOf[i] = i
	}

	documents, err := dataset.NewMemoryDataset(keys, vectors, 2)
	if err != nil {
		t.Fatalf("NewMemoryDataset: %v", err)
	}
	paragraphVectors := make([]*vector.Sparse, n)
	copy(paragraphVectors, vectors)
	paragraphKeys := make([]string, n)
	copy(paragraphKeys, keys)
	paragraphMap := dataset.NewParagraphMap(documentOf)
	paragraphs, err := dataset.NewMemoryParagraphDataset(paragraphKeys, paragraphVectors, 2, paragraphMap)
	if err != nil {
		t.Fatalf("NewMemoryParagraphDataset: %v", err)
	}
	return documents, paragraphs
}

// Invariant 1: after any sequence of RecordJudgmentBatch calls, every id
// in the judgment queue is absent from the labeled cache.
func TestInvariantQueueDisjointFromLabeledCache(t *testing.T) {
	documents, paragraphs := buildIdentityCorpus(t, 5)
	c, err := New(1, documents, paragraphs, 2, 50, 5)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := c.RecordJudgmentBatch([]Judgment{{Key: "D0", Label: 1}}); err != nil {
		t.Fatalf("RecordJudgmentBatch: %v", err)
	}

	items := c.queue.Items()
	for _, paragraphIdx := range items {
		docIdx, err := c.paragraphs.TranslateIndex(paragraphIdx)
		if err != nil {
			t.Fatalf("TranslateIndex: %v", err)
		}
		if c.documentLabels.IsSet(docIdx) {
			t.Fatalf("queued paragraph %d resolves to labeled document %d", paragraphIdx, docIdx)
		}
	}
}

// Invariant 2: R equals the count of +1 judgments received through
// RecordJudgmentBatch.
func TestInvariantRCountsPositiveJudgments(t *testing.T) {
	documents, paragraphs := buildIdentityCorpus(t, 5)
	c, err := New(1, documents, paragraphs, 2, 50, 5)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	judgments := []Judgment{
		{Key: "D0", Label: 1},
		{Key: "D1", Label: -1},
		{Key: "D2", Label: 1},
	}
	if err := c.RecordJudgmentBatch(judgments); err != nil {
		t.Fatalf("RecordJudgmentBatch: %v", err)
	}
	if got := c.CumulativeRelevants(); got != 2 {
		t.Fatalf("CumulativeRelevants() = %d, want 2", got)
	}
}

func TestGetCurrentBatchResolvesDocumentKeys(t *testing.T) {
	documents, paragraphs := buildIdentityCorpus(t, 5)
	c, err := New(1, documents, paragraphs, 2, 50, 5)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	batch, err := c.GetCurrentBatch()
	if err != nil {
		t.Fatalf("GetCurrentBatch: %v", err)
	}
	if len(batch) != 5 {
		t.Fatalf("len(batch) = %d, want 5", len(batch))
	}
	for _, key := range batch {
		if key == "" {
			t.Fatal("GetCurrentBatch returned an empty document key")
		}
	}
}

// Edge case (d): empty-training-view. No positives yet: training still
// runs on negatives plus seed and must not crash.
func TestEmptyTrainingViewDoesNotCrash(t *testing.T) {
	documents, paragraphs := buildIdentityCorpus(t, 5)
	if _, err := New(1, documents, paragraphs, 2, 20, 5); err != nil {
		t.Fatalf("New with no prior labels: %v", err)
	}
}

func TestNewRejectsEmptyDataset(t *testing.T) {
	empty, err := dataset.NewMemoryDataset(nil, nil, 2)
	if err != nil {
		t.Fatalf("NewMemoryDataset: %v", err)
	}
	paragraphMap := dataset.NewParagraphMap(nil)
	emptyParagraphs, err := dataset.NewMemoryParagraphDataset(nil, nil, 2, paragraphMap)
	if err != nil {
		t.Fatalf("NewMemoryParagraphDataset: %v", err)
	}
	if _, err := New(1, empty, emptyParagraphs, 1, 10, 5); err == nil {
		t.Fatal("expected ConfigError for empty dataset")
	}
}

// Resubmitting a judgment for a document already removed from the queue
// (a duplicate/retried RPC call) must not double-count R: the original
// only increments R when the judged document was actually found and
// erased from the queue.
func TestRecordJudgmentBatchDoesNotDoubleCountRepeatJudgment(t *testing.T) {
	documents, paragraphs := buildIdentityCorpus(t, 5)
	c, err := New(1, documents, paragraphs, 2, 50, 5)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := c.RecordJudgmentBatch([]Judgment{{Key: "D0", Label: 1}}); err != nil {
		t.Fatalf("RecordJudgmentBatch: %v", err)
	}
	if got := c.CumulativeRelevants(); got != 1 {
		t.Fatalf("CumulativeRelevants() after first judgment = %d, want 1", got)
	}

	if err := c.RecordJudgmentBatch([]Judgment{{Key: "D0", Label: 1}}); err != nil {
		t.Fatalf("RecordJudgmentBatch (repeat): %v", err)
	}
	if got := c.CumulativeRelevants(); got != 1 {
		t.Fatalf("CumulativeRelevants() after repeat judgment = %d, want 1 (no double count)", got)
	}
}

// A resubmitted judgment must not publish a second JudgmentEvent either,
// mirroring the R-counting fix: both are gated on the same found-in-queue
// check.
func TestRecordJudgmentBatchPublishesEventsOnlyForFoundJudgments(t *testing.T) {
	documents, paragraphs := buildIdentityCorpus(t, 5)
	c, err := New(1, documents, paragraphs, 2, 50, 5)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sink := &fakeEventSink{}
	c.SetEventSink(sink)

	if err := c.RecordJudgmentBatch([]Judgment{{Key: "D0", Label: 1}}); err != nil {
		t.Fatalf("RecordJudgmentBatch: %v", err)
	}
	judgmentEvents := 0
	for _, k := range sink.keys {
		if k == "judgment" {
			judgmentEvents++
		}
	}
	if judgmentEvents != 1 {
		t.Fatalf("judgment events after first submission = %d, want 1", judgmentEvents)
	}

	if err := c.RecordJudgmentBatch([]Judgment{{Key: "D0", Label: 1}}); err != nil {
		t.Fatalf("RecordJudgmentBatch (repeat): %v", err)
	}
	judgmentEvents = 0
	for _, k := range sink.keys {
		if k == "judgment" {
			judgmentEvents++
		}
	}
	if judgmentEvents != 1 {
		t.Fatalf("judgment events after repeat submission = %d, want 1 (no duplicate publish)", judgmentEvents)
	}
}

// An iteration event (and, for a scalability-backed controller, a refill
// event) is published whenever a refill actually runs.
func TestScalabilityControllerPublishesIterationAndRefillEvents(t *testing.T) {
	documents, paragraphs := buildIdentityCorpus(t, 5)
	c, _, err := NewScalability(1, documents, paragraphs, 2, 20, 5, 2)
	if err != nil {
		t.Fatalf("NewScalability: %v", err)
	}
	sink := &fakeEventSink{}
	c.SetEventSink(sink)

	// Judge everything currently queued so the queue empties and a refill
	// (and its iteration) runs.
	batch, err := c.GetCurrentBatch()
	if err != nil {
		t.Fatalf("GetCurrentBatch: %v", err)
	}
	judgments := make([]Judgment, len(batch))
	for i, key := range batch {
		judgments[i] = Judgment{Key: key, Label: 1}
	}
	if err := c.RecordJudgmentBatch(judgments); err != nil {
		t.Fatalf("RecordJudgmentBatch: %v", err)
	}

	var sawIteration, sawRefill bool
	for i, k := range sink.keys {
		switch k {
		case "iteration":
			if _, ok := sink.values[i].(events.IterationEvent); ok {
				sawIteration = true
			}
		case "refill":
			if _, ok := sink.values[i].(events.RefillEvent); ok {
				sawRefill = true
			}
		}
	}
	if !sawIteration {
		t.Fatal("expected an iteration event to be published after the queue emptied")
	}
	if !sawRefill {
		t.Fatal("expected a refill event to be published by the scalability-backed controller")
	}
}

func TestRecordJudgmentBatchSkipsUnknownKey(t *testing.T) {
	documents, paragraphs := buildIdentityCorpus(t, 5)
	c, err := New(1, documents, paragraphs, 2, 20, 5)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	err = c.RecordJudgmentBatch([]Judgment{
		{Key: "does-not-exist", Label: 1},
		{Key: "D0", Label: 1},
	})
	if err != nil {
		t.Fatalf("RecordJudgmentBatch should skip unknown keys, not error: %v", err)
	}
	if c.CumulativeRelevants() != 1 {
		t.Fatalf("CumulativeRelevants() = %d, want 1 (unknown key contributes nothing)", c.CumulativeRelevants())
	}
}
