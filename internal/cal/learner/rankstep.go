package learner

import "github.com/relevance-labs/cal-engine/internal/cal/vector"

// Pairwise variants replace x with (a-b), y with sign(y_a-y_b) (0 if
// tied), and apply the step's coefficient to a with +coef and to b with
// -coef.

// SinglePegasosRankStep is SinglePegasosStep on (a-b).
func SinglePegasosRankStep(a, b *vector.Sparse, eta, lambda float32, w *vector.Weight) bool {
	y := rankLabel(a.Y(), b.Y())
	p := y * w.InnerProductOnDifference(a, b)

	vector.L2Regularize(eta, lambda, w)
	nonzeroLoss := p < 1.0 && y != 0.0
	if nonzeroLoss {
		w.AddVector(a, eta*y)
		w.AddVector(b, -eta*y)
	}
	vector.PegasosProjection(lambda, w)
	return nonzeroLoss
}

// SingleSgdSvmRankStep is SinglePegasosRankStep without projection.
func SingleSgdSvmRankStep(a, b *vector.Sparse, eta, lambda float32, w *vector.Weight) bool {
	y := rankLabel(a.Y(), b.Y())
	p := y * w.InnerProductOnDifference(a, b)

	vector.L2Regularize(eta, lambda, w)
	nonzeroLoss := p < 1.0 && y != 0.0
	if nonzeroLoss {
		w.AddVector(a, eta*y)
		w.AddVector(b, -eta*y)
	}
	return nonzeroLoss
}

// SingleMarginPerceptronRankStep: if y*w.(a-b) <= c, w += eta on a, -eta
// on b.
func SingleMarginPerceptronRankStep(a, b *vector.Sparse, eta, c float32, w *vector.Weight) bool {
	y := rankLabel(a.Y(), b.Y())
	if y*w.InnerProductOnDifference(a, b) <= c {
		w.AddVector(a, eta)
		w.AddVector(b, -eta)
		return true
	}
	return false
}

// SinglePassiveAggressiveRankStep computes ||a-b||^2 via the sorted-merge
// form (never materializing a-b) and steps min(maxStep, p/||a-b||^2) in
// direction y on a, -y on b.
func SinglePassiveAggressiveRankStep(a, b *vector.Sparse, lambda, maxStep float32, w *vector.Weight) bool {
	y := rankLabel(a.Y(), b.Y())
	p := 1 - y*w.InnerProductOnDifference(a, b)
	if p > 0.0 && y != 0.0 {
		squaredNorm := squaredNormOfDifference(a, b)
		step := p / squaredNorm
		if step > maxStep {
			step = maxStep
		}
		w.AddVector(a, step*y)
		w.AddVector(b, -step*y)
	}
	if lambda > 0.0 {
		vector.PegasosProjection(lambda, w)
	}
	return p > 0 && y != 0.0
}

// squaredNormOfDifference computes ||a-b||^2 via a single sorted merge,
// required for correctness without materializing a-b.
func squaredNormOfDifference(a, b *vector.Sparse) float32 {
	var sqNorm float32
	i, j := 0, 0
	for i < a.NumFeatures() || j < b.NumFeatures() {
		switch {
		case j >= b.NumFeatures() || (i < a.NumFeatures() && a.FeatureAt(i) < b.FeatureAt(j)):
			v := a.ValueAt(i)
			sqNorm += v * v
			i++
		case i >= a.NumFeatures() || b.FeatureAt(j) < a.FeatureAt(i):
			v := b.ValueAt(j)
			sqNorm += v * v
			j++
		default:
			d := a.ValueAt(i) - b.ValueAt(j)
			sqNorm += d * d
			i++
			j++
		}
	}
	return sqNorm
}

// SingleRommaRankStep materializes (a-b) as a sparse vector and reuses the
// pointwise ROMMA step.
func SingleRommaRankStep(a, b *vector.Sparse, w *vector.Weight) bool {
	y := rankLabel(a.Y(), b.Y())
	if y == 0.0 {
		return false
	}
	diff := vector.Difference(a, b, y)
	return SingleRommaStep(diff, w)
}

// SinglePegasosLogRegRankStep: yA/yB override a.Y()/b.Y() when finite
// (NaN signals "use the vector's own label").
func SinglePegasosLogRegRankStep(a, b *vector.Sparse, eta, lambda float32, w *vector.Weight, yA, yB float32) bool {
	if isNaN32(yA) {
		yA = a.Y()
	}
	if isNaN32(yB) {
		yB = b.Y()
	}
	y := rankLabel(yA, yB)
	loss := y / (1 + expf(y*w.InnerProductOnDifference(a, b)))

	vector.L2Regularize(eta, lambda, w)
	w.AddVector(a, eta*loss)
	w.AddVector(b, -eta*loss)
	vector.PegasosProjection(lambda, w)
	return true
}

// SingleLogRegRankStep is SinglePegasosLogRegRankStep without projection
// and without label overrides.
func SingleLogRegRankStep(a, b *vector.Sparse, eta, lambda float32, w *vector.Weight) bool {
	y := rankLabel(a.Y(), b.Y())
	loss := y / (1 + expf(y*w.InnerProductOnDifference(a, b)))

	vector.L2Regularize(eta, lambda, w)
	w.AddVector(a, eta*loss)
	w.AddVector(b, -eta*loss)
	return true
}

// SingleLeastMeanSquaresRankStep always steps using y = y_a - y_b (not
// sign(y_a-y_b), matching the reference's regression semantics).
func SingleLeastMeanSquaresRankStep(a, b *vector.Sparse, eta, lambda float32, w *vector.Weight) bool {
	y := a.Y() - b.Y()
	loss := y - w.InnerProductOnDifference(a, b)

	vector.L2Regularize(eta, lambda, w)
	w.AddVector(a, eta*loss)
	w.AddVector(b, -eta*loss)
	vector.PegasosProjection(lambda, w)
	return true
}

func isNaN32(v float32) bool {
	return v != v
}
