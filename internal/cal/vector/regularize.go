package vector

import "math"

// L2Regularize applies one step of L2 shrinkage: w <- (1-eta*lambda)*w,
// floored at MinScalingFactor to avoid the scale factor underflowing
// through zero. The multi-step variant below computes (1-eta*lambda)^k only
// to decide whether the floor applies; otherwise it issues a single ScaleBy
// with the one-step factor, matching the reference behavior exactly.
func L2Regularize(eta, lambda float32, w *Weight) {
	scalingFactor := 1 - eta*lambda
	if scalingFactor > MinScalingFactor {
		w.ScaleBy(scalingFactor)
	} else {
		w.ScaleBy(MinScalingFactor)
	}
}

// L2RegularizeSeveralSteps issues a single ScaleBy call: by MinScalingFactor
// if (1-eta*lambda)^effectiveSteps is at or below the floor, and otherwise by
// the one-step factor 1-eta*lambda (not the effectiveSteps-step product).
func L2RegularizeSeveralSteps(eta, lambda, effectiveSteps float32, w *Weight) {
	scalingFactor := float32(math.Pow(float64(1-eta*lambda), float64(effectiveSteps)))
	if scalingFactor > MinScalingFactor {
		w.ScaleBy(1 - eta*lambda)
	} else {
		w.ScaleBy(MinScalingFactor)
	}
}

// PegasosProjection projects w onto the ball of radius 1/sqrt(lambda):
// if ||w|| already satisfies that bound, it is left untouched.
func PegasosProjection(lambda float32, w *Weight) {
	projectionVal := float32(1 / math.Sqrt(float64(lambda)*float64(w.SquaredNorm())))
	if projectionVal < 1 {
		w.ScaleBy(projectionVal)
	}
}
