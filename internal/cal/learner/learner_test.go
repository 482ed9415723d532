package learner

import (
	"math/rand"
	"testing"

	"github.com/relevance-labs/cal-engine/internal/cal/vector"
)

type sliceTrainingSet []*vector.Sparse

func (s sliceTrainingSet) NumExamples() int          { return len(s) }
func (s sliceTrainingSet) VectorAt(i int) *vector.Sparse { return s[i] }

// buildLinearlySeparable builds 100 points in R^2 labeled sign(x1-x2).
func buildLinearlySeparable(seed int64) sliceTrainingSet {
	rng := rand.New(rand.NewSource(seed))
	examples := make(sliceTrainingSet, 100)
	for i := range examples {
		x1 := rng.Float32()*2 - 1
		x2 := rng.Float32()*2 - 1
		y := float32(-1)
		if x1 > x2 {
			y = 1
		}
		examples[i] = vector.NewSparse([]int32{0, 1}, []float32{x1, x2}, y)
	}
	return examples
}

// S1: Dataset of 100 SparseVectors in R^2, labels the sign of x1-x2,
// lambda=0.1, 1000 PEGASOS steps, seed=1. Expected: >=95% training accuracy.
func TestPegasosScenarioS1(t *testing.T) {
	trainingSet := buildLinearlySeparable(1)
	rng := rand.New(rand.NewSource(1))
	w := vector.NewWeight(2)

	if err := StochasticOuterLoop(trainingSet, Pegasos, PegasosEta, 0.1, 1.0, 1000, w, rng); err != nil {
		t.Fatalf("StochasticOuterLoop: %v", err)
	}

	correct := 0
	for _, x := range trainingSet {
		pred := SingleSvmPrediction(x, w)
		if (pred >= 0) == (x.Y() > 0) {
			correct++
		}
	}
	accuracy := float64(correct) / float64(len(trainingSet))
	if accuracy < 0.95 {
		t.Fatalf("training accuracy = %v, want >= 0.95", accuracy)
	}
}

func TestGetEtaSchedules(t *testing.T) {
	if v, err := GetEta(BasicEta, 0.1, 0); err != nil || v != 1.0 {
		t.Fatalf("BasicEta(0) = %v, %v; want 1.0, nil", v, err)
	}
	if v, err := GetEta(PegasosEta, 0.1, 10); err != nil || v != 1.0 {
		t.Fatalf("PegasosEta(10) = %v, %v; want 1.0, nil", v, err)
	}
	if v, err := GetEta(ConstantEta, 0.1, 5); err != nil || v != 0.02 {
		t.Fatalf("ConstantEta(5) = %v, %v; want 0.02, nil", v, err)
	}
	if _, err := GetEta(EtaType(99), 0.1, 1); err == nil {
		t.Fatal("expected UnknownEtaError for unrecognized EtaType")
	}
}

func TestOneLearnerStepUnknownType(t *testing.T) {
	w := vector.NewWeight(1)
	x := vector.NewSparse([]int32{0}, []float32{1}, 1)
	if _, err := OneLearnerStep(Type(99), x, 0.1, 1, 0.1, w); err == nil {
		t.Fatal("expected UnknownLearnerError for unrecognized Type")
	}
}

func TestRankLabelSign(t *testing.T) {
	cases := []struct{ ya, yb, want float32 }{
		{1, -1, 1},
		{-1, 1, -1},
		{1, 1, 0},
	}
	for _, c := range cases {
		if got := rankLabel(c.ya, c.yb); got != c.want {
			t.Fatalf("rankLabel(%v,%v) = %v, want %v", c.ya, c.yb, got, c.want)
		}
	}
}

// Each learner family should run without panicking and produce a finite
// weight vector after a modest number of steps on the separable dataset.
func TestAllLearnerFamiliesRun(t *testing.T) {
	families := []Type{Pegasos, SgdSvm, MarginPerceptron, PassiveAggressive, LogregPegasos, Logreg, LmsRegression, Romma}
	for _, learnerType := range families {
		trainingSet := buildLinearlySeparable(2)
		rng := rand.New(rand.NewSource(2))
		w := vector.NewWeight(2)
		if err := StochasticOuterLoop(trainingSet, learnerType, BasicEta, 0.1, 1.0, 200, w, rng); err != nil {
			t.Fatalf("%v: StochasticOuterLoop: %v", learnerType, err)
		}
		probe := vector.NewSparse([]int32{0, 1}, []float32{1, 1}, 1)
		if v := w.InnerProduct(probe); v != v {
			t.Fatalf("%v: weight vector produced NaN inner product", learnerType)
		}
	}
}

func TestBalancedStochasticOuterLoopRequiresBothClasses(t *testing.T) {
	onlyPositive := sliceTrainingSet{vector.NewSparse([]int32{0}, []float32{1}, 1)}
	rng := rand.New(rand.NewSource(3))
	w := vector.NewWeight(1)
	if err := BalancedStochasticOuterLoop(onlyPositive, Pegasos, BasicEta, 0.1, 1.0, 10, w, rng); err == nil {
		t.Fatal("expected EmptyClassError when one class has no members")
	}
}
