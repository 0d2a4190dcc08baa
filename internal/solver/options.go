package solver

import (
	"fmt"

	"github.com/linear-ml/sdca/internal/loss"
)

// Options configures a Solver. Immutable once the Solver is constructed.
type Options struct {
	// Loss selects the member of the closed loss family.
	Loss loss.Kind
	// L1 is the symmetric L1 regularization strength (>= 0), applied by
	// soft-thresholding weights on read.
	L1 float64
	// L2 is the symmetric L2 regularization strength (>= 0). The solver
	// optimizes with max(L2, 1) internally; reported losses always use
	// the configured value.
	L2 float64
	// NumShards is the dual store's shard count (default 1).
	NumShards int
	// NumPartitions is the number of concurrent training workers per
	// Minimize call (default 1).
	NumPartitions int
	// NewtonIterations caps the damped Newton loop for losses without a
	// closed-form dual update (default 10).
	NewtonIterations int
	// NewtonTolerance stops the Newton loop early once the step falls
	// below it (default 1e-6).
	NewtonTolerance float64
}

// withDefaults fills unset counts and Newton controls.
func (o Options) withDefaults() Options {
	if o.NumShards == 0 {
		o.NumShards = 1
	}
	if o.NumPartitions == 0 {
		o.NumPartitions = 1
	}
	if o.NewtonIterations == 0 {
		o.NewtonIterations = 10
	}
	if o.NewtonTolerance == 0 {
		o.NewtonTolerance = 1e-6
	}
	return o
}

func (o Options) validate() error {
	if o.L1 < 0 {
		return &ConfigurationError{Reason: fmt.Sprintf("l1 regularization must be non-negative, got %v", o.L1)}
	}
	if o.L2 < 0 {
		return &ConfigurationError{Reason: fmt.Sprintf("l2 regularization must be non-negative, got %v", o.L2)}
	}
	if o.NumShards < 1 {
		return &ConfigurationError{Reason: fmt.Sprintf("number of shards must be at least 1, got %d", o.NumShards)}
	}
	if o.NumPartitions < 1 {
		return &ConfigurationError{Reason: fmt.Sprintf("number of partitions must be at least 1, got %d", o.NumPartitions)}
	}
	if o.NewtonIterations < 1 {
		return &ConfigurationError{Reason: fmt.Sprintf("newton iterations must be at least 1, got %d", o.NewtonIterations)}
	}
	if o.NewtonTolerance <= 0 {
		return &ConfigurationError{Reason: fmt.Sprintf("newton tolerance must be positive, got %v", o.NewtonTolerance)}
	}
	return nil
}
