package loss

// smoothHinge is the hinge loss with a quadratically smoothed corner of
// width gamma:
//
//	0                      when y*wx >= 1
//	1 - y*wx - gamma/2     when y*wx <= 1 - gamma
//	(1 - y*wx)^2 / (2*gamma) otherwise
//
// The smoothing makes the dual objective strongly concave in the dual
// variable, so the damped Newton step lands on the constrained maximizer
// immediately.
type smoothHinge struct {
	gamma float64
}

func (*smoothHinge) Kind() Kind { return SmoothHinge }

func (*smoothHinge) Predict(wx float64) float64 { return wx }

func (s *smoothHinge) UnregularizedLoss(label, wx, weight float64) float64 {
	margin := 1 - binaryMargin(label)*wx
	switch {
	case margin <= 0:
		return 0
	case margin >= s.gamma:
		return weight * (margin - s.gamma/2)
	default:
		return weight * margin * margin / (2 * s.gamma)
	}
}

func (*smoothHinge) ValidateLabel(label float64) error {
	return checkBinaryLabel(SmoothHinge, label)
}

// DualUpdate maximizes over beta = y*s. The stationarity condition
//
//	f(beta) = 1 - y*wx - gamma*beta - q*(beta - beta0) = 0
//
// is affine in beta, so one Newton step with slope -(gamma+q) is exact;
// clamping projects the step onto the feasible interval [0,1].
func (s *smoothHinge) DualUpdate(oldDual, label, weight, normSq, l2 float64, numExamples int, wx float64) (float64, error) {
	if err := checkBinaryLabel(SmoothHinge, label); err != nil {
		return 0, err
	}
	y := binaryMargin(label)
	n := float64(numExamples)
	beta0 := y * oldDual / n
	q := weight * normSq / l2
	beta := clamp(beta0+(1-y*wx-s.gamma*beta0)/(s.gamma+q), 0, 1)
	return n * y * beta, nil
}

// DualPayoff is beta - gamma*beta^2/2, the conjugate payoff of the
// smoothed hinge.
func (s *smoothHinge) DualPayoff(dual, label float64, numExamples int) float64 {
	beta := clamp(binaryMargin(label)*dual/float64(numExamples), 0, 1)
	return beta - s.gamma*beta*beta/2
}
