package loss

import "math"

// hinge is the SVM loss max(0, 1 - y*wx) over {0,1} labels. The dual
// maximizer is a closed-form clamped step.
type hinge struct{}

func (hinge) Kind() Kind { return Hinge }

func (hinge) Predict(wx float64) float64 { return wx }

func (hinge) UnregularizedLoss(label, wx, weight float64) float64 {
	return weight * math.Max(0, 1-binaryMargin(label)*wx)
}

func (hinge) ValidateLabel(label float64) error {
	return checkBinaryLabel(Hinge, label)
}

// DualUpdate clamps the unconstrained maximizer of beta = y*s onto [0,1]:
//
//	beta' = clamp(beta + (1 - y*wx)/q, 0, 1)
//
// with q = weight*normSq/l2. A zero-norm example cannot move the
// objective, so its dual is left unchanged.
func (hinge) DualUpdate(oldDual, label, weight, normSq, l2 float64, numExamples int, wx float64) (float64, error) {
	if err := checkBinaryLabel(Hinge, label); err != nil {
		return 0, err
	}
	q := weight * normSq / l2
	if q == 0 {
		return oldDual, nil
	}
	y := binaryMargin(label)
	n := float64(numExamples)
	beta := clamp(y*oldDual/n+(1-y*wx)/q, 0, 1)
	return n * y * beta, nil
}

// DualPayoff is beta itself, the conjugate payoff of the hinge loss on
// the feasible interval [0,1].
func (hinge) DualPayoff(dual, label float64, numExamples int) float64 {
	return clamp(binaryMargin(label)*dual/float64(numExamples), 0, 1)
}
