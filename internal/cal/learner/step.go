package learner

import (
	"math"

	"github.com/relevance-labs/cal-engine/internal/cal/vector"
)

// kVerySmallNumber guards ROMMA's denominator against examples of
// extremely low magnitude.
const kVerySmallNumber = 1e-10

// SinglePegasosStep: if y*w.x < 1, w += eta*y*x, with L2 regularization
// applied before the step and Pegasos projection after.
func SinglePegasosStep(x *vector.Sparse, eta, lambda float32, w *vector.Weight) bool {
	p := x.Y() * w.InnerProduct(x)

	vector.L2Regularize(eta, lambda, w)
	nonzeroLoss := p < 1.0 && x.Y() != 0.0
	if nonzeroLoss {
		w.AddVector(x, eta*x.Y())
	}
	vector.PegasosProjection(lambda, w)
	return nonzeroLoss
}

// SingleSgdSvmStep is SinglePegasosStep without the projection step.
func SingleSgdSvmStep(x *vector.Sparse, eta, lambda float32, w *vector.Weight) bool {
	p := x.Y() * w.InnerProduct(x)

	vector.L2Regularize(eta, lambda, w)
	nonzeroLoss := p < 1.0 && x.Y() != 0.0
	if nonzeroLoss {
		w.AddVector(x, eta*x.Y())
	}
	return nonzeroLoss
}

// SingleMarginPerceptronStep: if y*w.x <= c, w += eta*y*x.
func SingleMarginPerceptronStep(x *vector.Sparse, eta, c float32, w *vector.Weight) bool {
	if x.Y()*w.InnerProduct(x) <= c {
		w.AddVector(x, eta*x.Y())
		return true
	}
	return false
}

// SinglePassiveAggressiveStep: if 1-y*w.x > 0, step min(maxStep,
// (1-y*w.x)/||x||^2) in direction y.
func SinglePassiveAggressiveStep(x *vector.Sparse, lambda, maxStep float32, w *vector.Weight) bool {
	p := 1 - x.Y()*w.InnerProduct(x)
	if p > 0.0 && x.Y() != 0.0 {
		step := p / x.SquaredNorm()
		if step > maxStep {
			step = maxStep
		}
		w.AddVector(x, step*x.Y())
	}
	if lambda > 0.0 {
		vector.PegasosProjection(lambda, w)
	}
	return p > 0.0 && x.Y() != 0.0
}

// SinglePegasosLogRegStep always steps: w += eta*y/(1+exp(y*w.x))*x.
func SinglePegasosLogRegStep(x *vector.Sparse, eta, lambda float32, w *vector.Weight) bool {
	loss := x.Y() / (1 + expf(x.Y()*w.InnerProduct(x)))

	vector.L2Regularize(eta, lambda, w)
	w.AddVector(x, eta*loss)
	vector.PegasosProjection(lambda, w)
	return true
}

// SingleLogRegStep is SinglePegasosLogRegStep without the projection step.
func SingleLogRegStep(x *vector.Sparse, eta, lambda float32, w *vector.Weight) bool {
	loss := x.Y() / (1 + expf(x.Y()*w.InnerProduct(x)))

	vector.L2Regularize(eta, lambda, w)
	w.AddVector(x, eta*loss)
	return true
}

// SingleLeastMeanSquaresStep always steps: w += eta*(y-w.x)*x.
func SingleLeastMeanSquaresStep(x *vector.Sparse, eta, lambda float32, w *vector.Weight) bool {
	loss := x.Y() - w.InnerProduct(x)
	vector.L2Regularize(eta, lambda, w)
	w.AddVector(x, eta*loss)
	vector.PegasosProjection(lambda, w)
	return true
}

// SingleRommaStep: if y*w.x < 1, a closed-form (c,d) update gated by
// c >= 0, guarding the denominator with kVerySmallNumber against examples
// of extremely low magnitude.
func SingleRommaStep(x *vector.Sparse, w *vector.Weight) bool {
	wx := w.InnerProduct(x)
	p := x.Y() * wx
	nonzeroLoss := p < 1.0 && x.Y() != 0.0
	if nonzeroLoss {
		xx := x.SquaredNorm()
		ww := w.SquaredNorm()
		denom := (xx * ww) - (wx * wx) + kVerySmallNumber

		c := ((xx*ww - p) + kVerySmallNumber) / denom
		d := (ww*(x.Y()-wx) + kVerySmallNumber) / denom

		if c >= 0.0 {
			w.ScaleBy(c)
			w.AddVector(x, d)
		}
	}
	return nonzeroLoss
}

func expf(v float32) float32 {
	return float32(math.Exp(float64(v)))
}
