package loss

// squared is the least-squares regression loss (y - wx)^2 / 2. Labels are
// unrestricted and the dual maximization has an exact closed form.
type squared struct{}

func (squared) Kind() Kind { return Squared }

func (squared) Predict(wx float64) float64 { return wx }

func (squared) UnregularizedLoss(label, wx, weight float64) float64 {
	d := wx - label
	return weight * d * d / 2
}

// ValidateLabel accepts any finite label; squared loss is a regression
// loss.
func (squared) ValidateLabel(label float64) error { return nil }

// DualUpdate applies the closed-form coordinate maximizer
//
//	s' = s + (label - wx - s) / (1 + q)
//
// with q = weight*normSq/l2 and s the unscaled dual.
func (squared) DualUpdate(oldDual, label, weight, normSq, l2 float64, numExamples int, wx float64) (float64, error) {
	n := float64(numExamples)
	s := oldDual / n
	q := weight * normSq / l2
	s += (label - wx - s) / (1 + q)
	return n * s, nil
}

// DualPayoff is label*s - s^2/2, the conjugate payoff of the squared
// loss.
func (squared) DualPayoff(dual, label float64, numExamples int) float64 {
	s := dual / float64(numExamples)
	return label*s - s*s/2
}
