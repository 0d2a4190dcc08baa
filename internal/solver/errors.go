package solver

import "fmt"

// ConfigurationError reports invalid solver options: an unknown loss
// kind, non-positive shard or partition counts, or negative
// regularization strengths.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "solver: invalid configuration: " + e.Reason
}

// InputRangeError reports an example whose features do not fit the
// allocated weight vectors: a sparse feature index at or beyond its
// column's weight size, or more dense feature columns (or wider ones)
// than there are dense weights. It is raised before any weight mutation.
type InputRangeError struct {
	ExampleID string
	Detail    string
}

func (e *InputRangeError) Error() string {
	return fmt.Sprintf("solver: example %q: %s", e.ExampleID, e.Detail)
}
