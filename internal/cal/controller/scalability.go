package controller

import (
	"math/rand"
	"sync"

	"github.com/relevance-labs/cal-engine/internal/cal/dataset"
)

// ScalabilityController is the RefillPolicy that biases sampling toward a
// target recall estimate: it maintains a doubling horizon T and a
// geometrically growing batch size B, subsampling each refill's top-B
// candidates down to n = ceil(B*N/T) so the assessor converges without
// reviewing the full corpus.
type ScalabilityController struct {
	mu sync.Mutex

	n int // target positives; fixed for the session
	t int // current horizon; doubles when r >= t at refill entry
	r int // cumulative relevants observed through ObserveJudgment
	b int // current batch size; grows after every refill

	rng *rand.Rand
}

// NewScalabilityController constructs the policy with T=N, R=0, and the
// given seed batch size, per the initial-conditions clause of the
// scalability overlay.
func NewScalabilityController(seed int64, targetN, seedBatchSize int) (*ScalabilityController, error) {
	if targetN <= 0 {
		return nil, ConfigError{Reason: "target N must be positive"}
	}
	if seedBatchSize <= 0 {
		return nil, ConfigError{Reason: "seed batch size must be positive"}
	}
	return &ScalabilityController{
		n:   targetN,
		t:   targetN,
		b:   seedBatchSize,
		rng: rand.New(rand.NewSource(seed)),
	}, nil
}

// BatchSize reports the current B, the number of top candidates to draw
// for the next refill.
func (s *ScalabilityController) BatchSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b
}

// ObserveJudgment is called by Controller for every positive judgment that
// removed a queued paragraph, before any refill runs, so R reflects the
// whole batch by the time Select checks the doubling condition.
func (s *ScalabilityController) ObserveJudgment(label float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if label > 0 {
		s.r++
	}
}

// Select implements the T-doubling check, the uniform subsample of size
// n = ceil(B*N/T), sentineling the unselected remainder via markDiscarded,
// and the post-refill ~10% batch growth.
func (s *ScalabilityController) Select(candidates []Scored, markDiscarded func(int)) ([]Scored, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.r >= s.t {
		s.t *= 2
	}

	n := ceilDiv(s.b*s.n, s.t)
	if n > len(candidates) {
		n = len(candidates)
	}

	selectedPositions := make(map[int]struct{}, n)
	for _, pos := range s.rng.Perm(len(candidates))[:n] {
		selectedPositions[pos] = struct{}{}
	}

	toEnqueue := make([]Scored, 0, n)
	for i, c := range candidates {
		if _, ok := selectedPositions[i]; ok {
			toEnqueue = append(toEnqueue, c)
		} else {
			markDiscarded(c.UnitIdx)
		}
	}

	s.b = s.b + ceilDiv(s.b, 10)
	return toEnqueue, nil
}

// Snapshot returns the current (N, T, R, B) state, for diagnostics and
// tests.
func (s *ScalabilityController) Snapshot() (n, t, r, b int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n, s.t, s.r, s.b
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

// NewScalability constructs a Controller whose refill is governed by a
// ScalabilityController and performs the initial iteration, matching
// new(seed, dataset, paragraphs, num_threads, training_iterations, N).
func NewScalability(seed int64, documents dataset.Dataset, paragraphs dataset.ParagraphDataset, numThreads, trainingIterations, targetN, seedBatchSize int) (*Controller, *ScalabilityController, error) {
	if documents.Size() == 0 {
		return nil, nil, ConfigError{Reason: "document dataset is empty"}
	}
	if paragraphs.Size() == 0 {
		return nil, nil, ConfigError{Reason: "paragraph dataset is empty"}
	}

	policy, err := NewScalabilityController(seed, targetN, seedBatchSize)
	if err != nil {
		return nil, nil, err
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
		refill:              policy,
		logger:              newControllerLogger(),
	}

	if err := c.performIterationLocked(); err != nil {
		return nil, nil, err
	}
	return c, policy, nil
}
