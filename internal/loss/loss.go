// Package loss implements the closed family of convex losses supported by
// the SDCA solver: logistic, squared, hinge, and smooth hinge.
//
// Each loss provides the model prediction for a dot product, the weighted
// per-example primal loss, the per-coordinate dual maximization step, and
// the dual-objective payoff used for the duality gap. The loss kind is
// resolved once when the solver is constructed; there is no string
// dispatch in the update loop.
//
// Dual variables handed to and returned from DualUpdate carry a factor of
// the training-set size, so the solver's primal delta is
//
//	delta = (newDual - oldDual) * exampleWeight * x / (numExamples * l2)
//
// per nonzero feature. DualUpdate divides the factor back out before
// solving, so the stored scale never affects the maximizer.
package loss

import (
	"fmt"
	"math"
)

// Kind identifies one member of the loss family.
type Kind int

const (
	Logistic Kind = iota
	Squared
	Hinge
	SmoothHinge
)

// String returns the canonical option-file spelling of the kind.
func (k Kind) String() string {
	switch k {
	case Logistic:
		return "logistic"
	case Squared:
		return "squared"
	case Hinge:
		return "hinge"
	case SmoothHinge:
		return "smooth_hinge"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind converts an option-file spelling into a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "logistic", "logistic_loss":
		return Logistic, nil
	case "squared", "squared_loss":
		return Squared, nil
	case "hinge", "hinge_loss":
		return Hinge, nil
	case "smooth_hinge", "smooth_hinge_loss":
		return SmoothHinge, nil
	default:
		return 0, fmt.Errorf("loss: unknown loss kind %q", s)
	}
}

// LabelDomainError reports a label outside the domain a loss supports.
type LabelDomainError struct {
	Loss  Kind
	Label float64
}

func (e *LabelDomainError) Error() string {
	return fmt.Sprintf("loss: only labels of 0.0 or 1.0 are supported for %s loss, got %v", e.Loss, e.Label)
}

// Function is one loss strategy. Implementations are stateless apart from
// Newton-loop settings and are safe for concurrent use.
type Function interface {
	Kind() Kind

	// Predict maps a dot product to the model prediction: the identity
	// for squared, hinge, and smooth hinge, the sigmoid for logistic.
	Predict(wx float64) float64

	// UnregularizedLoss is the weighted per-example primal loss at the
	// given dot product.
	UnregularizedLoss(label, wx, weight float64) float64

	// ValidateLabel reports whether label lies in the loss's domain.
	ValidateLabel(label float64) error

	// DualUpdate solves the per-coordinate dual maximization for one
	// example and returns the new (scaled) dual variable. normSq is the
	// example's feature squared norm, l2 the effective L2 strength, wx
	// the current dot product under shrunk weights.
	DualUpdate(oldDual, label, weight, normSq, l2 float64, numExamples int, wx float64) (float64, error)

	// DualPayoff is the per-example dual-objective contribution implied
	// by the (scaled) dual variable, before example weighting.
	DualPayoff(dual, label float64, numExamples int) float64
}

// Settings carries the damped-Newton controls for losses without a
// closed-form update.
type Settings struct {
	NewtonIterations int
	NewtonTolerance  float64
}

// New resolves a kind into its strategy, applying Newton defaults of
// 10 iterations and 1e-6 tolerance when unset.
func New(kind Kind, settings Settings) (Function, error) {
	if settings.NewtonIterations <= 0 {
		settings.NewtonIterations = 10
	}
	if settings.NewtonTolerance <= 0 {
		settings.NewtonTolerance = 1e-6
	}
	switch kind {
	case Logistic:
		return &logistic{settings: settings}, nil
	case Squared:
		return squared{}, nil
	case Hinge:
		return hinge{}, nil
	case SmoothHinge:
		return &smoothHinge{gamma: 1}, nil
	default:
		return nil, fmt.Errorf("loss: unknown loss kind %v", kind)
	}
}

// binaryMargin converts a {0,1} label to the {-1,+1} margin convention.
func binaryMargin(label float64) float64 {
	return 2*label - 1
}

func checkBinaryLabel(k Kind, label float64) error {
	if label != 0 && label != 1 {
		return &LabelDomainError{Loss: k, Label: label}
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// xLogX is x*ln(x) with the 0*ln(0) = 0 convention.
func xLogX(x float64) float64 {
	if x <= 0 {
		return 0
	}
	return x * math.Log(x)
}
