package learner

import (
	"math/rand"

	"github.com/relevance-labs/cal-engine/internal/cal/vector"
)

// TrainingSet is the minimal random-access view the outer loops need over
// a collection of labeled examples.
type TrainingSet interface {
	NumExamples() int
	VectorAt(i int) *vector.Sparse
}

// StochasticOuterLoop runs numIters pointwise steps, each on a uniformly
// random example from trainingSet.
func StochasticOuterLoop(trainingSet TrainingSet, learnerType Type, etaType EtaType, lambda, c float32, numIters int, w *vector.Weight, rng *rand.Rand) error {
	for i := 1; i <= numIters; i++ {
		x := trainingSet.VectorAt(rng.Intn(trainingSet.NumExamples()))
		eta, err := GetEta(etaType, lambda, i)
		if err != nil {
			return err
		}
		if _, err := OneLearnerStep(learnerType, x, eta, c, lambda, w); err != nil {
			return err
		}
	}
	return nil
}

// BalancedStochasticOuterLoop partitions trainingSet into positives
// (y>0) and negatives once, then runs numIters iterations each taking one
// pointwise step on a random positive and one on a random negative.
func BalancedStochasticOuterLoop(trainingSet TrainingSet, learnerType Type, etaType EtaType, lambda, c float32, numIters int, w *vector.Weight, rng *rand.Rand) error {
	positives, negatives := partitionByLabel(trainingSet)
	if len(positives) == 0 || len(negatives) == 0 {
		return EmptyClassError{NumPositives: len(positives), NumNegatives: len(negatives)}
	}

	for i := 1; i <= numIters; i++ {
		eta, err := GetEta(etaType, lambda, i)
		if err != nil {
			return err
		}

		posX := trainingSet.VectorAt(positives[rng.Intn(len(positives))])
		if _, err := OneLearnerStep(learnerType, posX, eta, c, lambda, w); err != nil {
			return err
		}

		negX := trainingSet.VectorAt(negatives[rng.Intn(len(negatives))])
		if _, err := OneLearnerStep(learnerType, negX, eta, c, lambda, w); err != nil {
			return err
		}
	}
	return nil
}

// StochasticRocLoop runs numIters pairwise steps, each sampling one
// example from positives and one from negatives and taking a rank step
// with yA=+1, yB=-1. Only LOGREG_PEGASOS uses those pinned labels; every
// other family ranks on the labels the vectors themselves carry.
func StochasticRocLoop(positives, negatives []*vector.Sparse, learnerType Type, etaType EtaType, lambda, c float32, numIters int, w *vector.Weight, rng *rand.Rand) error {
	if len(positives) == 0 || len(negatives) == 0 {
		return EmptyClassError{NumPositives: len(positives), NumNegatives: len(negatives)}
	}

	for i := 1; i <= numIters; i++ {
		eta, err := GetEta(etaType, lambda, i)
		if err != nil {
			return err
		}
		posX := positives[rng.Intn(len(positives))]
		negX := negatives[rng.Intn(len(negatives))]
		if _, err := OneLearnerRankStep(learnerType, posX, negX, eta, c, lambda, w, 1, -1); err != nil {
			return err
		}
	}
	return nil
}

// StochasticClassificationAndRocLoop interleaves pairwise rank steps
// (with probability rankStepProbability) and pointwise classification
// steps over trainingSet's positive/negative partition.
func StochasticClassificationAndRocLoop(trainingSet TrainingSet, learnerType Type, etaType EtaType, lambda, c, rankStepProbability float32, numIters int, w *vector.Weight, rng *rand.Rand) error {
	positives, negatives := partitionByLabel(trainingSet)
	if len(positives) == 0 || len(negatives) == 0 {
		return EmptyClassError{NumPositives: len(positives), NumNegatives: len(negatives)}
	}

	for i := 1; i <= numIters; i++ {
		eta, err := GetEta(etaType, lambda, i)
		if err != nil {
			return err
		}

		if rng.Float32() < rankStepProbability {
			posX := trainingSet.VectorAt(positives[rng.Intn(len(positives))])
			negX := trainingSet.VectorAt(negatives[rng.Intn(len(negatives))])
			if _, err := OneLearnerRankStepDefault(learnerType, posX, negX, eta, c, lambda, w); err != nil {
				return err
			}
		} else {
			x := trainingSet.VectorAt(rng.Intn(trainingSet.NumExamples()))
			if _, err := OneLearnerStep(learnerType, x, eta, c, lambda, w); err != nil {
				return err
			}
		}
	}
	return nil
}

// EmptyClassError signals that a balanced/ROC loop was asked to sample
// from a class with no members.
type EmptyClassError struct {
	NumPositives int
	NumNegatives int
}

func (e EmptyClassError) Error() string {
	return "learner: balanced/ROC loop requires at least one positive and one negative example"
}

func partitionByLabel(trainingSet TrainingSet) (positives, negatives []int) {
	for i := 0; i < trainingSet.NumExamples(); i++ {
		if trainingSet.VectorAt(i).Y() > 0.0 {
			positives = append(positives, i)
		} else {
			negatives = append(negatives, i)
		}
	}
	return positives, negatives
}

// SingleSvmPrediction is the raw margin w.x, used directly by margin-based
// learners (PEGASOS, SGD_SVM, MARGIN_PERCEPTRON, PASSIVE_AGGRESSIVE, ROMMA).
func SingleSvmPrediction(x *vector.Sparse, w *vector.Weight) float32 {
	return w.InnerProduct(x)
}

// SingleLogisticPrediction maps the margin through the logistic link,
// returning a probability in (0,1).
func SingleLogisticPrediction(x *vector.Sparse, w *vector.Weight) float32 {
	p := w.InnerProduct(x)
	return expf(p) / (1 + expf(p))
}

// SvmObjective computes the regularized hinge-loss objective
// lambda/2*||w||^2 + mean(hinge loss) over trainingSet.
func SvmObjective(trainingSet TrainingSet, w *vector.Weight, lambda float32) float32 {
	n := trainingSet.NumExamples()
	objective := w.SquaredNorm() * lambda / 2.0
	for i := 0; i < n; i++ {
		x := trainingSet.VectorAt(i)
		lossI := 1.0 - SingleSvmPrediction(x, w)*x.Y()
		if lossI < 0 {
			lossI = 0
		}
		objective += lossI / float32(n)
	}
	return objective
}
