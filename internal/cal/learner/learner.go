// Package learner implements the stochastic linear learner: a tagged
// variant over eight loss families with pointwise and pairwise step
// functions, three learning-rate schedules, and four outer-loop driving
// strategies. Every function here is a direct translation of Google's
// sofia-ml single-step methods onto internal/cal/vector's Weight/Sparse
// types.
package learner

import "github.com/relevance-labs/cal-engine/internal/cal/vector"

// Type selects one of the eight loss-family learners.
type Type int

const (
	Pegasos Type = iota
	SgdSvm
	MarginPerceptron
	PassiveAggressive
	LogregPegasos
	Logreg
	LmsRegression
	Romma
)

func (t Type) String() string {
	switch t {
	case Pegasos:
		return "PEGASOS"
	case SgdSvm:
		return "SGD_SVM"
	case MarginPerceptron:
		return "MARGIN_PERCEPTRON"
	case PassiveAggressive:
		return "PASSIVE_AGGRESSIVE"
	case LogregPegasos:
		return "LOGREG_PEGASOS"
	case Logreg:
		return "LOGREG"
	case LmsRegression:
		return "LMS_REGRESSION"
	case Romma:
		return "ROMMA"
	default:
		return "UNKNOWN"
	}
}

// EtaType selects a learning-rate schedule.
type EtaType int

const (
	BasicEta EtaType = iota
	PegasosEta
	ConstantEta
)

// UnknownLearnerError and UnknownEtaError signal a programmer error: an
// unrecognized Type or EtaType was requested. The reference implementation
// treats this as fatal (abort before any mutation); callers here get an
// error back instead of a process exit, since this is library code.
type UnknownLearnerError struct{ Type Type }

func (e UnknownLearnerError) Error() string { return "learner: unsupported learner type" }

type UnknownEtaError struct{ Type EtaType }

func (e UnknownEtaError) Error() string { return "learner: unsupported eta type" }

// GetEta evaluates the learning rate for 1-based step index i.
//
//	BASIC_ETA:    10/(i+10)
//	PEGASOS_ETA:  1/(lambda*i)
//	CONSTANT:     0.02
func GetEta(etaType EtaType, lambda float32, i int) (float32, error) {
	switch etaType {
	case BasicEta:
		return 10.0 / (float32(i) + 10.0), nil
	case PegasosEta:
		return 1.0 / (lambda * float32(i)), nil
	case ConstantEta:
		return 0.02, nil
	default:
		return 0, UnknownEtaError{Type: etaType}
	}
}

// OneLearnerStep dispatches a single pointwise step to the family selected
// by learnerType. It returns whether the example incurred nonzero loss.
func OneLearnerStep(learnerType Type, x *vector.Sparse, eta, c, lambda float32, w *vector.Weight) (bool, error) {
	switch learnerType {
	case Pegasos:
		return SinglePegasosStep(x, eta, lambda, w), nil
	case MarginPerceptron:
		return SingleMarginPerceptronStep(x, eta, c, w), nil
	case PassiveAggressive:
		return SinglePassiveAggressiveStep(x, lambda, c, w), nil
	case LogregPegasos:
		return SinglePegasosLogRegStep(x, eta, lambda, w), nil
	case Logreg:
		return SingleLogRegStep(x, eta, lambda, w), nil
	case LmsRegression:
		return SingleLeastMeanSquaresStep(x, eta, lambda, w), nil
	case SgdSvm:
		return SingleSgdSvmStep(x, eta, lambda, w), nil
	case Romma:
		return SingleRommaStep(x, w), nil
	default:
		return false, UnknownLearnerError{Type: learnerType}
	}
}

// OneLearnerRankStep dispatches a single pairwise step to the family
// selected by learnerType. yA/yB override the labels carried by a/b for
// LOGREG_PEGASOS when both are finite; pass NaN (or omit via
// OneLearnerRankStepDefault) to fall back to a.Y()/b.Y().
func OneLearnerRankStep(learnerType Type, a, b *vector.Sparse, eta, c, lambda float32, w *vector.Weight, yA, yB float32) (bool, error) {
	switch learnerType {
	case Pegasos:
		return SinglePegasosRankStep(a, b, eta, lambda, w), nil
	case MarginPerceptron:
		return SingleMarginPerceptronRankStep(a, b, eta, c, w), nil
	case PassiveAggressive:
		return SinglePassiveAggressiveRankStep(a, b, lambda, c, w), nil
	case LogregPegasos:
		return SinglePegasosLogRegRankStep(a, b, eta, lambda, w, yA, yB), nil
	case Logreg:
		return SingleLogRegRankStep(a, b, eta, lambda, w), nil
	case LmsRegression:
		return SingleLeastMeanSquaresRankStep(a, b, eta, lambda, w), nil
	case SgdSvm:
		return SingleSgdSvmRankStep(a, b, eta, lambda, w), nil
	case Romma:
		return SingleRommaRankStep(a, b, w), nil
	default:
		return false, UnknownLearnerError{Type: learnerType}
	}
}

// OneLearnerRankStepDefault calls OneLearnerRankStep with yA/yB taken from
// a.Y()/b.Y(), matching the common case used by the outer loops.
func OneLearnerRankStepDefault(learnerType Type, a, b *vector.Sparse, eta, c, lambda float32, w *vector.Weight) (bool, error) {
	return OneLearnerRankStep(learnerType, a, b, eta, c, lambda, w, a.Y(), b.Y())
}

// rankLabel implements sign(yA - yB): +1, -1, or 0 if tied.
func rankLabel(yA, yB float32) float32 {
	switch {
	case yA > yB:
		return 1.0
	case yA < yB:
		return -1.0
	default:
		return 0.0
	}
}
