package vector

import (
	"math"
	"testing"
)

func TestSparseSquaredNorm(t *testing.T) {
	x := NewSparse([]int32{0, 2, 5}, []float32{1, 2, 3}, 1)
	want := float32(1*1 + 2*2 + 3*3)
	if x.SquaredNorm() != want {
		t.Fatalf("SquaredNorm() = %v, want %v", x.SquaredNorm(), want)
	}
}

func TestSparseRejectsUnsortedFeatures(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on unsorted feature ids")
		}
	}()
	NewSparse([]int32{2, 1}, []float32{1, 1}, 1)
}

// S2 (lazy scaling). Start w=0; apply add_vector(e0, 1), then 100 x
// scale_by(0.5), then add_vector(e0, 1), then inner_product(e0). Expected:
// 2^-100 + 1 within 1e-6.
func TestLazyScalingScenarioS2(t *testing.T) {
	w := NewWeight(1)
	e0 := NewSparse([]int32{0}, []float32{1}, 1)

	w.AddVector(e0, 1)
	for i := 0; i < 100; i++ {
		w.ScaleBy(0.5)
	}
	w.AddVector(e0, 1)

	got := w.InnerProduct(e0)
	want := float32(math.Pow(2, -100) + 1)
	if diff := math.Abs(float64(got - want)); diff > 1e-6 {
		t.Fatalf("InnerProduct(e0) = %v, want %v (diff %v)", got, want, diff)
	}
}

// Invariant 6: WeightVector logical value equality after a sequence of
// scale_by/add_vector matches a reference computed in double precision to
// within 1e-4 relative error.
func TestWeightVectorMatchesDoublePrecisionReference(t *testing.T) {
	w := NewWeight(4)
	ref := make([]float64, 4)

	apply := func(fid int32, val float32, c float32) {
		x := NewSparse([]int32{fid}, []float32{val}, 1)
		w.AddVector(x, c)
		ref[fid] += float64(c) * float64(val)
	}
	scale := func(alpha float32) {
		w.ScaleBy(alpha)
		for i := range ref {
			ref[i] *= float64(alpha)
		}
	}

	apply(0, 2, 1)
	apply(1, 3, 0.5)
	scale(0.9)
	apply(2, 1, 2)
	scale(1.1)
	apply(0, 1, 1)

	probe := NewSparse([]int32{0, 1, 2, 3}, []float32{1, 1, 1, 1}, 0)
	got := w.InnerProduct(probe)
	var want float64
	for _, v := range ref {
		want += v
	}
	if want == 0 {
		t.Fatal("degenerate reference value")
	}
	relErr := math.Abs(float64(got)-want) / math.Abs(want)
	if relErr > 1e-4 {
		t.Fatalf("InnerProduct = %v, reference = %v, relative error %v exceeds 1e-4", got, want, relErr)
	}
}

// Invariant 7: after PegasosProjection(lambda, w), ||w||^2 <= 1/lambda.
func TestPegasosProjectionBound(t *testing.T) {
	w := NewWeight(2)
	x := NewSparse([]int32{0, 1}, []float32{10, 10}, 1)
	w.AddVector(x, 5)

	lambda := float32(0.1)
	PegasosProjection(lambda, w)

	if w.SquaredNorm() > 1/lambda+1e-4 {
		t.Fatalf("||w||^2 = %v exceeds 1/lambda = %v", w.SquaredNorm(), 1/lambda)
	}
}

// Invariant 8: L2-regularize floor behavior. After L2Regularize with
// eta*lambda >= 1-MinScalingFactor, ||w||^2 <= MinScalingFactor^2 * previous.
func TestL2RegularizeFloor(t *testing.T) {
	w := NewWeight(1)
	x := NewSparse([]int32{0}, []float32{5}, 1)
	w.AddVector(x, 1)
	prev := w.SquaredNorm()

	L2Regularize(1, 1, w) // eta*lambda = 1 >= 1-MinScalingFactor

	if w.SquaredNorm() > MinScalingFactor*MinScalingFactor*prev+1e-12 {
		t.Fatalf("||w||^2 = %v exceeds floor bound %v", w.SquaredNorm(), MinScalingFactor*MinScalingFactor*prev)
	}
}

func TestInnerProductOnDifferenceMatchesSeparateProducts(t *testing.T) {
	w := NewWeight(4)
	a := NewSparse([]int32{0, 2}, []float32{1, 2}, 1)
	b := NewSparse([]int32{1, 2, 3}, []float32{3, 1, 4}, -1)
	w.AddVector(a, 1)
	w.AddVector(b, 1)

	got := w.InnerProductOnDifference(a, b)
	want := w.InnerProduct(a) - w.InnerProduct(b)
	if math.Abs(float64(got-want)) > 1e-5 {
		t.Fatalf("InnerProductOnDifference = %v, want %v", got, want)
	}
}
