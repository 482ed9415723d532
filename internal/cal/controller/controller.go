// Package controller implements the BMI control loop: train a fresh
// WeightVector from the labeled cache, score the paragraph population in
// parallel, select a batch, and fold assessor judgments back in under a
// single coarse-grained mutex. A RefillPolicy overlays the plain BMI
// refill (queue the next top-B) with the scalability subsampling rule in
// scalability.go.
package controller

import (
	"log/slog"
	"math/rand"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/relevance-labs/cal-engine/internal/cal/dataset"
	"github.com/relevance-labs/cal-engine/internal/cal/events"
	"github.com/relevance-labs/cal-engine/internal/cal/learner"
	"github.com/relevance-labs/cal-engine/internal/cal/vector"
)

// SeedLambda is the fixed L2 regularization strength used by
// perform_iteration's PEGASOS training pass.
const SeedLambda float32 = 0.1

// DefaultSeedNegatives is how many unlabeled documents are sampled as
// stand-in negatives to bootstrap a training pass before real negative
// judgments accumulate.
const DefaultSeedNegatives = 50

// RefillPolicy decides, on an empty judgment queue, how many paragraphs to
// request from scoring and which of the ranked candidates to actually
// enqueue. PlainRefillPolicy and ScalabilityController are the two
// implementations.
type RefillPolicy interface {
	// BatchSize reports the number of top-ranked candidates to draw from
	// this refill's scoring pass.
	BatchSize() int
	// Select receives the top-BatchSize() ranked candidates (already
	// excluding judged/discarded units) and returns the subset to
	// enqueue. markDiscarded is called for every candidate NOT selected,
	// so the policy can sentinel it out of future scoring.
	Select(candidates []Scored, markDiscarded func(paragraphIdx int)) (toEnqueue []Scored, err error)
}

// PlainRefillPolicy is the non-scalability BMI refill: enqueue the full
// top-B candidate set every time, growing nothing.
type PlainRefillPolicy struct {
	Batch int
}

func (p *PlainRefillPolicy) BatchSize() int { return p.Batch }

func (p *PlainRefillPolicy) Select(candidates []Scored, markDiscarded func(int)) ([]Scored, error) {
	return candidates, nil
}

// refillDiagnostics is implemented by RefillPolicy types that expose
// scalability-policy state (ScalabilityController does; PlainRefillPolicy
// does not) so performIterationLocked can publish a RefillEvent with real
// horizon/batch figures instead of zero values.
type refillDiagnostics interface {
	Snapshot() (n, t, r, b int)
}

// EventSink receives control-loop lifecycle events as they happen.
// Controller calls Track synchronously from inside the judgment mutex, so
// implementations must not block meaningfully — events.Collector satisfies
// this by only buffering in memory. A nil sink (the zero value) disables
// event publishing entirely.
type EventSink interface {
	Track(key string, value any)
}

// Controller orchestrates the train -> score -> select -> judge cycle
// over a document corpus (used to build training vectors and to resolve
// judgment keys) and a paragraph corpus (scored and presented to the
// assessor).
type Controller struct {
	documents  dataset.Dataset
	paragraphs dataset.ParagraphDataset

	numThreads         int
	trainingIterations int
	seedNegatives      int

	documentLabels      *LabeledCache // document idx -> {-1,+1}
	discardedParagraphs *LabeledCache // paragraph idx -> DiscardedLabel
	queue               *JudgmentQueue

	rng *rand.Rand
	mu  sync.Mutex // the judgment mutex; held across an entire refill

	refill RefillPolicy
	logger *slog.Logger
	events EventSink // optional; nil disables publishing

	iteration int
	r         int // cumulative relevants judged through record_judgment_batch
}

// SetEventSink attaches an EventSink that receives a SessionEvent at every
// iteration, judgment, and refill from this point on. Passing nil disables
// publishing. Not safe to call concurrently with RecordJudgmentBatch or
// PerformIteration.
func (c *Controller) SetEventSink(sink EventSink) {
	c.events = sink
}

// New constructs a Controller and performs the initial iteration,
// matching the reference's new(seed, dataset, paragraphs, num_threads,
// training_iterations, N) constructor contract for the plain-BMI variant
// (no scalability overlay). Use NewScalability for the N/T-doubling
// variant.
func New(seed int64, documents dataset.Dataset, paragraphs dataset.ParagraphDataset, numThreads, trainingIterations, seedBatchSize int) (*Controller, error) {
	if documents.Size() == 0 {
		return nil, ConfigError{Reason: "document dataset is empty"}
	}
	if paragraphs.Size() == 0 {
		return nil, ConfigError{Reason: "paragraph dataset is empty"}
	}
	if seedBatchSize <= 0 {
		return nil, ConfigError{Reason: "seed batch size must be positive"}
	}

	c := &Controller{
		documents:           documents,
		paragraphs:          paragraphs,
		numThreads:          numThreads,
		trainingIterations:  trainingIterations,
		seedNegatives:       DefaultSeedNegatives,
		documentLabels:      NewLabeledCache(),
		discardedParagraphs: NewLabeledCache(),
		queue:               NewJudgmentQueue(),
		rng:                 rand.New(rand.NewSource(seed)),
		refill:              &PlainRefillPolicy{Batch: seedBatchSize},
		logger:              newControllerLogger(),
	}

	if err := c.performIterationLocked(); err != nil {
		return nil, err
	}
	return c, nil
}

// PerformIteration runs one train->score->select pass and enqueues the
// resulting candidates. It is exported for callers that need to trigger a
// refill outside of
// RecordJudgmentBatch's empty-queue check; normal callers never call this
// directly after construction.
func (c *Controller) PerformIteration() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.performIterationLocked()
}

func (c *Controller) performIterationLocked() error {
	start := time.Now()
	view := buildTrainingView(c.documents, c.documentLabels, c.seedNegatives, c.rng)
	w := vector.NewWeight(c.documents.NumFeatures())

	if err := learner.StochasticOuterLoop(view, learner.Pegasos, learner.PegasosEta, SeedLambda, 1.0, c.trainingIterations, w, c.rng); err != nil {
		return err
	}

	batchSize := c.refill.BatchSize()
	candidates, err := ScoreTopK(c.paragraphs, w, c.numThreads, batchSize, c.excludeCandidate)
	if err != nil {
		return err
	}
	sortCandidatesDescending(candidates)

	var horizonBefore int
	if diag, ok := c.refill.(refillDiagnostics); ok {
		_, horizonBefore, _, _ = diag.Snapshot()
	}

	toEnqueue, err := c.refill.Select(candidates, func(paragraphIdx int) {
		c.discardedParagraphs.Set(paragraphIdx, DiscardedLabel)
	})
	if err != nil {
		return err
	}

	for _, s := range toEnqueue {
		c.queue.Enqueue(s.UnitIdx)
	}

	c.iteration++
	c.logger.Info("iteration complete",
		"iteration", c.iteration,
		"candidates", len(candidates),
		"enqueued", len(toEnqueue),
		"queue_len", c.queue.Len(),
	)

	if c.events != nil {
		c.events.Track("iteration", events.IterationEvent{
			Type:            events.EventIterationComplete,
			Iteration:       c.iteration,
			TrainingSize:    view.NumExamples(),
			TrainingSteps:   c.trainingIterations,
			CandidatesFound: len(candidates),
			QueueLength:     c.queue.Len(),
			LatencyMs:       time.Since(start).Milliseconds(),
			Timestamp:       time.Now(),
		})

		if diag, ok := c.refill.(refillDiagnostics); ok {
			_, horizonAfter, _, b := diag.Snapshot()
			doubled := horizonAfter > horizonBefore
			evType := events.EventBatchRefilled
			if doubled {
				evType = events.EventHorizonDoubled
			}
			c.events.Track("refill", events.RefillEvent{
				Type:       evType,
				BatchSize:  b,
				Horizon:    horizonAfter,
				Subsampled: len(toEnqueue),
				Discarded:  len(candidates) - len(toEnqueue),
				Doubled:    doubled,
				Timestamp:  time.Now(),
			})
		}
	}
	return nil
}

// excludeCandidate implements §6's selection filter: a paragraph is
// excluded from scoring if it was itself discarded by a prior refill, or
// if its parent document has already been judged.
func (c *Controller) excludeCandidate(paragraphIdx int) (bool, error) {
	if c.discardedParagraphs.IsSet(paragraphIdx) {
		return true, nil
	}
	docIdx, err := c.paragraphs.TranslateIndex(paragraphIdx)
	if err != nil {
		return false, err
	}
	return c.documentLabels.IsSet(docIdx), nil
}

// judgmentObserver lets a RefillPolicy track its own cumulative-relevants
// counter (as ScalabilityController does) without the controller exposing
// its internal R, avoiding a second lock acquisition on the judgment
// mutex from within a call already holding it.
type judgmentObserver interface {
	ObserveJudgment(label float32)
}

// Judgment is one assessor-supplied (document-key, label) pair.
type Judgment struct {
	Key   string
	Label float32
}

// RecordJudgmentBatch folds a batch of judgments into the labeled cache
// under the judgment mutex, held for the entire call including any
// resulting refill: a full retraining pass runs to completion before the
// mutex is released, so no new judgments can reference a queue that is
// mid-rebuild. Unknown keys are rejected and logged; the rest of the
// batch still applies.
func (c *Controller) RecordJudgmentBatch(judgments []Judgment) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, j := range judgments {
		docIdx, ok := c.documents.GetIndex(j.Key)
		if !ok {
			c.logger.Warn("judgment key not found in dataset, skipping", "key", j.Key)
			continue
		}
		c.documentLabels.Set(docIdx, j.Label)

		_, found, err := c.queue.RemoveFirstMatchingParentTailToHead(docIdx, c.paragraphs.TranslateIndex)
		if err != nil {
			return err
		}
		if found && j.Label > 0 {
			c.r++
			if observer, ok := c.refill.(judgmentObserver); ok {
				observer.ObserveJudgment(j.Label)
			}
		}
		if found && c.events != nil {
			c.events.Track("judgment", events.JudgmentEvent{
				Type:      events.EventJudgmentRecorded,
				Key:       j.Key,
				Label:     j.Label,
				R:         c.r,
				Timestamp: time.Now(),
			})
		}
	}

	if c.queue.Len() == 0 {
		return c.performIterationLocked()
	}
	return nil
}

// GetCurrentBatch returns the document keys of paragraphs currently
// awaiting judgment, resolved to their parent document's key, in
// presentation order.
func (c *Controller) GetCurrentBatch() ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	items := c.queue.Items()
	keys := make([]string, 0, len(items))
	for _, paragraphIdx := range items {
		docIdx, err := c.paragraphs.TranslateIndex(paragraphIdx)
		if err != nil {
			return nil, err
		}
		keys = append(keys, c.documentKey(docIdx))
	}
	return keys, nil
}

// documentKey resolves a document index back to its text key. Dataset
// only exposes forward lookup (key->index) per §6, so MemoryDataset's
// KeyAt extension is relied on when available; other Dataset
// implementations must provide an equivalent reverse lookup.
func (c *Controller) documentKey(docIdx int) string {
	type keyedDataset interface {
		KeyAt(i int) string
	}
	if kd, ok := c.documents.(keyedDataset); ok {
		return kd.KeyAt(docIdx)
	}
	return ""
}

// CumulativeRelevants returns R: the count of positive judgments folded in
// through RecordJudgmentBatch so far that removed a queued paragraph. A
// positive judgment whose document has no paragraph left in the queue
// (for example a resubmission) does not count.
func (c *Controller) CumulativeRelevants() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.r
}

// QueueLength returns the number of paragraph units currently awaiting
// judgment.
func (c *Controller) QueueLength() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.Len()
}

func newControllerLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil)).With("component", "cal-controller")
}

func sortCandidatesDescending(candidates []Scored) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].UnitIdx < candidates[j].UnitIdx
	})
}
