package loss

import "math"

// logistic is the binary cross-entropy loss over {0,1} labels. Its dual
// maximization has no closed form, so DualUpdate runs a damped Newton
// iteration on the dual variable.
type logistic struct {
	settings Settings
}

func (logistic) Kind() Kind { return Logistic }

func (logistic) Predict(wx float64) float64 {
	return sigmoid(wx)
}

// UnregularizedLoss computes weight * log(1 + exp(-y*wx)) without
// overflowing for large |wx|.
func (logistic) UnregularizedLoss(label, wx, weight float64) float64 {
	z := -binaryMargin(label) * wx
	if z > 0 {
		return weight * (z + math.Log1p(math.Exp(-z)))
	}
	return weight * math.Log1p(math.Exp(z))
}

func (logistic) ValidateLabel(label float64) error {
	return checkBinaryLabel(Logistic, label)
}

// DualUpdate maximizes the per-example dual objective over beta = y*s,
// s being the unscaled dual. The stationarity condition is
//
//	f(beta) = ln((1-beta)/beta) - y*wx - q*(beta - beta0) = 0
//
// with q = weight*normSq/l2, solved by damped Newton steps kept strictly
// inside (0, 1).
func (l *logistic) DualUpdate(oldDual, label, weight, normSq, l2 float64, numExamples int, wx float64) (float64, error) {
	if err := checkBinaryLabel(Logistic, label); err != nil {
		return 0, err
	}
	y := binaryMargin(label)
	n := float64(numExamples)
	beta0 := y * oldDual / n
	q := weight * normSq / l2

	beta := clamp(beta0, 1e-2, 1-1e-2)
	for i := 0; i < l.settings.NewtonIterations; i++ {
		f := math.Log((1-beta)/beta) - y*wx - q*(beta-beta0)
		df := -1/(beta*(1-beta)) - q
		step := f / df
		next := beta - step
		for halvings := 0; (next <= 0 || next >= 1) && halvings < 30; halvings++ {
			step /= 2
			next = beta - step
		}
		beta = next
		if math.Abs(step) < l.settings.NewtonTolerance {
			break
		}
	}
	return n * y * beta, nil
}

// DualPayoff is the binary entropy -beta*ln(beta) - (1-beta)*ln(1-beta)
// of the dual variable, the conjugate payoff of the logistic loss.
func (logistic) DualPayoff(dual, label float64, numExamples int) float64 {
	beta := clamp(binaryMargin(label)*dual/float64(numExamples), 0, 1)
	return -xLogX(beta) - xLogX(1-beta)
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}
