// Package sdca provides a sharded, partition-parallel stochastic dual
// coordinate ascent solver for linear models.
//
// The solver keeps one dual variable per training example in a sharded
// in-memory store and a shared, atomically updated primal weight vector.
// Each training pass maximizes the dual objective one example at a time
// with a loss-specific proximal step, immediately reflecting dual moves
// into the primal weights. L1 regularization is realized by
// soft-thresholding weights on read; convergence is observed through an
// approximate duality gap.
//
// Basic usage:
//
//	s, err := sdca.New(examples, sdca.Variables{
//		SparseWeights: [][]float64{make([]float64, numFeatures)},
//	}, sdca.Options{Loss: sdca.Logistic, L2: 1})
//	if err != nil {
//		return err
//	}
//	for pass := 0; pass < maxPasses; pass++ {
//		if err := s.Minimize(); err != nil {
//			return err
//		}
//		if math.Abs(s.ApproximateDualityGap()) < gapTarget {
//			break
//		}
//	}
//	preds, err := s.Predictions(examples)
package sdca

import (
	"github.com/linear-ml/sdca/internal/loss"
	"github.com/linear-ml/sdca/internal/sharded"
	"github.com/linear-ml/sdca/internal/solver"
)

// Core types, re-exported from the internal packages.
type (
	// Solver is the SDCA optimizer over a fixed in-memory example set.
	Solver = solver.Solver
	// Options configures a Solver; zero values get constructor defaults.
	Options = solver.Options
	// Example is a single training or scoring instance.
	Example = solver.Example
	// SparseColumn is one example's slice of a sparse feature column.
	SparseColumn = solver.SparseColumn
	// Variables carries the initial primal weights per feature column.
	Variables = solver.Variables
	// Store is the sharded dual-variable store, reachable through
	// (*Solver).Store for checkpointing and reset.
	Store = sharded.Store

	// ConfigurationError reports invalid Options.
	ConfigurationError = solver.ConfigurationError
	// InputRangeError reports example features that do not fit the
	// allocated weights.
	InputRangeError = solver.InputRangeError
	// LabelDomainError reports a label outside a loss's domain.
	LabelDomainError = loss.LabelDomainError

	// LossKind selects a member of the closed loss family.
	LossKind = loss.Kind
)

// The supported loss functions.
const (
	Logistic    = loss.Logistic
	Squared     = loss.Squared
	Hinge       = loss.Hinge
	SmoothHinge = loss.SmoothHinge
)

// New constructs a Solver over the given examples and initial weights.
func New(examples []Example, vars Variables, opts Options) (*Solver, error) {
	return solver.New(examples, vars, opts)
}

// ParseLossKind converts an option-file spelling such as "logistic" or
// "logistic_loss" into a LossKind.
func ParseLossKind(s string) (LossKind, error) {
	return loss.ParseKind(s)
}

// NewStore builds a standalone sharded store with the given shard count
// and default value for absent keys.
func NewStore(numShards int, defaultValue float64) (*Store, error) {
	return sharded.New(numShards, defaultValue)
}
