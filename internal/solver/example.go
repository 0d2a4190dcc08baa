package solver

// SparseColumn is one example's slice of a sparse feature column: the
// feature indices with nonzero values and the values themselves, aligned
// by position.
type SparseColumn struct {
	Indices []int
	Values  []float64
}

// Example is a single training or scoring instance. Feature columns are
// already materialized in memory; the solver never fetches data.
type Example struct {
	// SparseFeatures holds one entry per sparse feature column.
	SparseFeatures []SparseColumn
	// DenseFeatures holds one fixed-width vector per dense feature
	// column.
	DenseFeatures [][]float64
	// Weight is the example's cost weight. Zero-weight examples are
	// excluded from training and from loss aggregation.
	Weight float64
	// Label domain depends on the loss: {0,1} for the classification
	// losses, any value for squared loss.
	Label float64
	// ID must be unique within a training set; it keys the example's
	// dual variable.
	ID string
}

// Variables carries the initial primal weights, one array per feature
// column. Sparse columns are sized by max observed index + 1, dense
// columns by the column width.
type Variables struct {
	SparseWeights [][]float64
	DenseWeights  [][]float64
}

// featureSquaredNorm is the squared L2 norm over all of the example's
// feature values, sparse and dense.
func featureSquaredNorm(ex *Example) float64 {
	var norm float64
	for _, col := range ex.SparseFeatures {
		for _, v := range col.Values {
			norm += v * v
		}
	}
	for _, col := range ex.DenseFeatures {
		for _, v := range col {
			norm += v * v
		}
	}
	return norm
}
