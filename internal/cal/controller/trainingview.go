package controller

import (
	"math/rand"

	"github.com/relevance-labs/cal-engine/internal/cal/dataset"
	"github.com/relevance-labs/cal-engine/internal/cal/vector"
)

// trainingView is a flat, fixed snapshot of labeled (and seed-negative)
// examples built fresh for one training pass. It implements
// learner.TrainingSet.
type trainingView struct {
	examples []*vector.Sparse
}

func (v *trainingView) NumExamples() int              { return len(v.examples) }
func (v *trainingView) VectorAt(i int) *vector.Sparse  { return v.examples[i] }

// buildTrainingView assembles positives (documentLabels == +1), negatives
// (documentLabels == -1), and seedNegatives unlabeled documents sampled
// uniformly at random and treated as negatives for this pass only — the
// labeled cache itself is untouched by this augmentation. If the labeled
// cache has no positives, training still proceeds on negatives plus seed
// (edge case (d) of the error-handling design): the resulting model may
// rank arbitrarily but must not crash.
func buildTrainingView(documents dataset.Dataset, cache *LabeledCache, seedNegatives int, rng *rand.Rand) *trainingView {
	var examples []*vector.Sparse
	for _, idx := range cache.Positives() {
		examples = append(examples, documents.VectorAt(idx).WithLabel(1))
	}
	for _, idx := range cache.Negatives() {
		examples = append(examples, documents.VectorAt(idx).WithLabel(-1))
	}

	var unlabeled []int
	for i := 0; i < documents.Size(); i++ {
		if !cache.IsSet(i) {
			unlabeled = append(unlabeled, i)
		}
	}
	n := seedNegatives
	if n > len(unlabeled) {
		n = len(unlabeled)
	}
	for _, idx := range rng.Perm(len(unlabeled))[:n] {
		examples = append(examples, documents.VectorAt(unlabeled[idx]).WithLabel(-1))
	}

	return &trainingView{examples: examples}
}
