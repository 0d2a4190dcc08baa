package solver

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/linear-ml/sdca/internal/loss"
)

// binaryPairExamples builds the canonical two-example fixture: two sparse
// feature columns of size two, example 0 hitting index 0 in both and
// example 1 hitting index 1 in both, all feature values 1.
func binaryPairExamples(label0, label1, weight0, weight1 float64) []Example {
	return []Example{
		{
			SparseFeatures: []SparseColumn{
				{Indices: []int{0}, Values: []float64{1}},
				{Indices: []int{0}, Values: []float64{1}},
			},
			Weight: weight0,
			Label:  label0,
			ID:     "ex0",
		},
		{
			SparseFeatures: []SparseColumn{
				{Indices: []int{1}, Values: []float64{1}},
				{Indices: []int{1}, Values: []float64{1}},
			},
			Weight: weight1,
			Label:  label1,
			ID:     "ex1",
		},
	}
}

func pairVariables() Variables {
	return Variables{SparseWeights: [][]float64{{0, 0}, {0, 0}}}
}

func runPasses(t *testing.T, s *Solver, passes int) {
	t.Helper()
	for i := 0; i < passes; i++ {
		require.NoError(t, s.Minimize())
	}
}

func TestLogisticSimple(t *testing.T) {
	for _, shards := range []int{1, 3, 10} {
		t.Run(fmt.Sprintf("shards=%d", shards), func(t *testing.T) {
			examples := binaryPairExamples(0, 1, 1, 1)
			s, err := New(examples, pairVariables(), Options{
				Loss:      loss.Logistic,
				L2:        1,
				NumShards: shards,
			})
			require.NoError(t, err)

			unreg, err := s.UnregularizedLoss(examples)
			require.NoError(t, err)
			require.InDelta(t, math.Ln2, unreg, 1e-12)
			reg, err := s.RegularizedLoss(examples)
			require.NoError(t, err)
			require.InDelta(t, math.Ln2, reg, 1e-12)

			runPasses(t, s, 100)

			unreg, err = s.UnregularizedLoss(examples)
			require.NoError(t, err)
			require.InDelta(t, 0.411608, unreg, 0.01)
			reg, err = s.RegularizedLoss(examples)
			require.NoError(t, err)
			require.InDelta(t, 0.525457, reg, 0.01)
			require.LessOrEqual(t, math.Abs(s.ApproximateDualityGap()), 0.02)

			preds, err := s.Predictions(examples)
			require.NoError(t, err)
			require.Less(t, preds[0], 0.5)
			require.Greater(t, preds[1], 0.5)

			weights := s.SparseWeights()
			for _, col := range weights {
				require.InDelta(t, -0.3374, col[0], 0.02)
				require.InDelta(t, 0.3374, col[1], 0.02)
			}
			require.Equal(t, 2, s.Store().Size())
		})
	}
}

func TestSquaredSimple(t *testing.T) {
	examples := binaryPairExamples(10, -5, 1, 1)
	s, err := New(examples, pairVariables(), Options{Loss: loss.Squared, L2: 1})
	require.NoError(t, err)
	runPasses(t, s, 5)

	// Each example owns two exclusive weight slots, so the coordinate
	// update is exact after the first pass: predictions settle at
	// 2/3 of the label.
	preds, err := s.Predictions(examples)
	require.NoError(t, err)
	require.InDelta(t, 20.0/3, preds[0], 1e-9)
	require.InDelta(t, -10.0/3, preds[1], 1e-9)

	unreg, err := s.UnregularizedLoss(examples)
	require.NoError(t, err)
	require.InDelta(t, 125.0/36, unreg, 1e-9)
	reg, err := s.RegularizedLoss(examples)
	require.NoError(t, err)
	require.InDelta(t, 375.0/36, reg, 1e-9)
}

func TestSquaredStrongerL2ShrinksPredictions(t *testing.T) {
	duplicated := func() []Example {
		var out []Example
		for i, pair := range []struct{ label float64 }{{10}, {10}, {-5}, {-5}} {
			slot := 0
			if pair.label < 0 {
				slot = 1
			}
			out = append(out, Example{
				SparseFeatures: []SparseColumn{
					{Indices: []int{slot}, Values: []float64{1}},
					{Indices: []int{slot}, Values: []float64{1}},
				},
				Weight: 1,
				Label:  pair.label,
				ID:     fmt.Sprintf("ex%d", i),
			})
		}
		return out
	}

	weak, err := New(duplicated(), pairVariables(), Options{Loss: loss.Squared, L2: 1})
	require.NoError(t, err)
	strong, err := New(duplicated(), pairVariables(), Options{Loss: loss.Squared, L2: 16})
	require.NoError(t, err)
	runPasses(t, weak, 30)
	runPasses(t, strong, 30)

	strongPreds, err := strong.Predictions(duplicated())
	require.NoError(t, err)
	require.InDelta(t, 2.0, strongPreds[0], 0.01)
	require.InDelta(t, 2.0, strongPreds[1], 0.01)
	require.InDelta(t, -1.0, strongPreds[2], 0.01)
	require.InDelta(t, -1.0, strongPreds[3], 0.01)

	weakPreds, err := weak.Predictions(duplicated())
	require.NoError(t, err)
	for i := range weakPreds {
		require.Less(t, math.Abs(strongPreds[i]), math.Abs(weakPreds[i]))
	}
}

func TestSquaredWithL1(t *testing.T) {
	examples := binaryPairExamples(-10, 14, 1, 1)
	s, err := New(examples, pairVariables(), Options{Loss: loss.Squared, L1: 4, L2: 1})
	require.NoError(t, err)
	runPasses(t, s, 20)

	preds, err := s.Predictions(examples)
	require.NoError(t, err)
	require.InDelta(t, -4.0, preds[0], 1e-6)
	require.InDelta(t, 20.0/3, preds[1], 1e-6)

	reg, err := s.RegularizedLoss(examples)
	require.NoError(t, err)
	require.InDelta(t, 308.0/6, reg, 1e-6)

	// Exported weights are the shrunk values, not the raw accumulators.
	for _, col := range s.SparseWeights() {
		require.InDelta(t, -2.0, col[0], 1e-6)
		require.InDelta(t, 10.0/3, col[1], 1e-6)
	}
	require.LessOrEqual(t, math.Abs(s.ApproximateDualityGap()), 1e-6)
}

func TestHinge(t *testing.T) {
	examples := binaryPairExamples(0, 1, 1, 1)
	s, err := New(examples, pairVariables(), Options{Loss: loss.Hinge, L2: 1})
	require.NoError(t, err)
	runPasses(t, s, 5)

	preds, err := s.Predictions(examples)
	require.NoError(t, err)
	require.InDelta(t, -1.0, preds[0], 1e-12)
	require.InDelta(t, 1.0, preds[1], 1e-12)

	unreg, err := s.UnregularizedLoss(examples)
	require.NoError(t, err)
	require.InDelta(t, 0.0, unreg, 1e-12)
	reg, err := s.RegularizedLoss(examples)
	require.NoError(t, err)
	require.InDelta(t, 0.25, reg, 1e-12)
	require.LessOrEqual(t, math.Abs(s.ApproximateDualityGap()), 1e-12)
}

func TestSmoothHinge(t *testing.T) {
	examples := binaryPairExamples(0, 1, 1, 1)
	s, err := New(examples, pairVariables(), Options{Loss: loss.SmoothHinge, L2: 1})
	require.NoError(t, err)
	runPasses(t, s, 5)

	preds, err := s.Predictions(examples)
	require.NoError(t, err)
	require.InDelta(t, -2.0/3, preds[0], 1e-12)
	require.InDelta(t, 2.0/3, preds[1], 1e-12)

	unreg, err := s.UnregularizedLoss(examples)
	require.NoError(t, err)
	require.InDelta(t, 1.0/18, unreg, 1e-12)
	reg, err := s.RegularizedLoss(examples)
	require.NoError(t, err)
	require.InDelta(t, 1.0/6, reg, 1e-12)
	require.LessOrEqual(t, math.Abs(s.ApproximateDualityGap()), 1e-12)
}

func TestDenseFeatures(t *testing.T) {
	examples := []Example{
		{DenseFeatures: [][]float64{{1}, {0}}, Weight: 1, Label: 10, ID: "ex0"},
		{DenseFeatures: [][]float64{{0}, {1}}, Weight: 1, Label: -5, ID: "ex1"},
	}
	vars := Variables{DenseWeights: [][]float64{{0}, {0}}}
	s, err := New(examples, vars, Options{Loss: loss.Squared, L2: 1})
	require.NoError(t, err)
	runPasses(t, s, 5)

	preds, err := s.Predictions(examples)
	require.NoError(t, err)
	require.InDelta(t, 5.0, preds[0], 1e-9)
	require.InDelta(t, -2.5, preds[1], 1e-9)

	reg, err := s.RegularizedLoss(examples)
	require.NoError(t, err)
	require.InDelta(t, 125.0/8, reg, 1e-9)

	weights := s.DenseWeights()
	require.InDelta(t, 5.0, weights[0][0], 1e-9)
	require.InDelta(t, -2.5, weights[1][0], 1e-9)
}

func TestDenseFeaturesWeightedExamples(t *testing.T) {
	examples := []Example{
		{DenseFeatures: [][]float64{{1, 0}}, Weight: 20, Label: 10, ID: "ex0"},
		{DenseFeatures: [][]float64{{0, 1}}, Weight: 10, Label: -5, ID: "ex1"},
	}
	vars := Variables{DenseWeights: [][]float64{{0, 0}}}
	s, err := New(examples, vars, Options{Loss: loss.Squared, L2: 5})
	require.NoError(t, err)
	runPasses(t, s, 30)

	preds, err := s.Predictions(examples)
	require.NoError(t, err)
	require.InDelta(t, 8.0, preds[0], 1e-6)
	require.InDelta(t, -10.0/3, preds[1], 1e-6)

	reg, err := s.RegularizedLoss(examples)
	require.NoError(t, err)
	require.InDelta(t, 2175.0/270, reg, 1e-6)
}

func TestImbalancedExampleWeights(t *testing.T) {
	examples := binaryPairExamples(0, 1, 3, 1)
	s, err := New(examples, pairVariables(), Options{Loss: loss.Logistic, L2: 1})
	require.NoError(t, err)
	runPasses(t, s, 100)

	unreg, err := s.UnregularizedLoss(examples)
	require.NoError(t, err)
	require.InDelta(t, 0.284853, unreg, 0.005)
	reg, err := s.RegularizedLoss(examples)
	require.NoError(t, err)
	require.InDelta(t, 0.417722, reg, 0.005)
	require.LessOrEqual(t, math.Abs(s.ApproximateDualityGap()), 0.02)

	preds, err := s.Predictions(examples)
	require.NoError(t, err)
	require.Less(t, preds[0], 0.5)
	require.Greater(t, preds[1], 0.5)
}

func TestZeroWeightExamplesExcluded(t *testing.T) {
	examples := binaryPairExamples(0, 1, 1, 1)
	// Zero-weight examples never reach the loss, so an out-of-domain
	// label on one is fine.
	examples = append(examples,
		Example{
			SparseFeatures: []SparseColumn{
				{Indices: []int{0}, Values: []float64{1}},
				{Indices: []int{0}, Values: []float64{1}},
			},
			Weight: 0,
			Label:  0.5,
			ID:     "ignored0",
		},
		Example{
			SparseFeatures: []SparseColumn{
				{Indices: []int{1}, Values: []float64{1}},
				{Indices: []int{1}, Values: []float64{1}},
			},
			Weight: 0,
			Label:  2,
			ID:     "ignored1",
		},
	)
	s, err := New(examples, pairVariables(), Options{Loss: loss.Logistic, L2: 1})
	require.NoError(t, err)
	runPasses(t, s, 100)

	unreg, err := s.UnregularizedLoss(examples)
	require.NoError(t, err)
	require.InDelta(t, 0.411608, unreg, 0.01)
	// Only the two weighted examples acquired duals.
	require.Equal(t, 2, s.Store().Size())
}

func TestPartitionedTraining(t *testing.T) {
	const n = 40
	build := func() []Example {
		out := make([]Example, n)
		for i := range out {
			label := 1.0
			if i%2 == 1 {
				label = -1.0
			}
			out[i] = Example{
				SparseFeatures: []SparseColumn{{Indices: []int{i}, Values: []float64{1}}},
				DenseFeatures:  [][]float64{{1}}, // shared bias slot
				Weight:         1,
				Label:          label,
				ID:             fmt.Sprintf("ex%d", i),
			}
		}
		return out
	}
	vars := func() Variables {
		return Variables{
			SparseWeights: [][]float64{make([]float64, n)},
			DenseWeights:  [][]float64{{0}},
		}
	}

	for _, partitions := range []int{1, 2, 4} {
		t.Run(fmt.Sprintf("partitions=%d", partitions), func(t *testing.T) {
			examples := build()
			s, err := New(examples, vars(), Options{
				Loss:          loss.Squared,
				L2:            1,
				NumPartitions: partitions,
			})
			require.NoError(t, err)
			runPasses(t, s, 100)

			preds, err := s.Predictions(examples)
			require.NoError(t, err)
			for i, ex := range examples {
				require.InDelta(t, ex.Label/2, preds[i], 0.01)
			}
			require.LessOrEqual(t, math.Abs(s.ApproximateDualityGap()), 0.01)
		})
	}
}

func TestValidationRejectsBeforeMutation(t *testing.T) {
	valid := Example{
		SparseFeatures: []SparseColumn{
			{Indices: []int{0}, Values: []float64{1}},
			{Indices: []int{0}, Values: []float64{1}},
		},
		Weight: 1,
		Label:  1,
		ID:     "valid",
	}

	cases := []struct {
		name string
		bad  Example
	}{
		{
			name: "sparse index out of range",
			bad: Example{
				SparseFeatures: []SparseColumn{
					{Indices: []int{5}, Values: []float64{1}},
					{Indices: []int{0}, Values: []float64{1}},
				},
				Weight: 1, Label: 0, ID: "bad",
			},
		},
		{
			name: "negative sparse index",
			bad: Example{
				SparseFeatures: []SparseColumn{
					{Indices: []int{-1}, Values: []float64{1}},
					{Indices: []int{0}, Values: []float64{1}},
				},
				Weight: 1, Label: 0, ID: "bad",
			},
		},
		{
			name: "too many sparse columns",
			bad: Example{
				SparseFeatures: []SparseColumn{
					{Indices: []int{0}, Values: []float64{1}},
					{Indices: []int{0}, Values: []float64{1}},
					{Indices: []int{0}, Values: []float64{1}},
				},
				Weight: 1, Label: 0, ID: "bad",
			},
		},
		{
			name: "indices and values misaligned",
			bad: Example{
				SparseFeatures: []SparseColumn{
					{Indices: []int{0, 1}, Values: []float64{1}},
					{Indices: []int{0}, Values: []float64{1}},
				},
				Weight: 1, Label: 0, ID: "bad",
			},
		},
		{
			name: "too many dense columns",
			bad: Example{
				SparseFeatures: []SparseColumn{
					{Indices: []int{0}, Values: []float64{1}},
					{Indices: []int{0}, Values: []float64{1}},
				},
				DenseFeatures: [][]float64{{1}},
				Weight:        1, Label: 0, ID: "bad",
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			examples := []Example{valid, tc.bad}
			s, err := New(examples, pairVariables(), Options{Loss: loss.Logistic, L2: 1})
			require.NoError(t, err)

			err = s.Minimize()
			var rangeErr *InputRangeError
			require.ErrorAs(t, err, &rangeErr)
			require.Equal(t, "bad", rangeErr.ExampleID)

			// Validation happens before any update: no duals, no
			// weight movement, even for the valid leading example.
			require.Equal(t, 0, s.Store().Size())
			for _, col := range s.SparseWeights() {
				for _, w := range col {
					require.Zero(t, w)
				}
			}

			_, err = s.Predictions(examples)
			require.ErrorAs(t, err, &rangeErr)
			_, err = s.UnregularizedLoss(examples)
			require.ErrorAs(t, err, &rangeErr)
		})
	}
}

func TestDenseWidthValidation(t *testing.T) {
	examples := []Example{
		{DenseFeatures: [][]float64{{1, 2, 3}}, Weight: 1, Label: 1, ID: "wide"},
	}
	vars := Variables{DenseWeights: [][]float64{{0, 0}}}
	s, err := New(examples, vars, Options{Loss: loss.Squared, L2: 1})
	require.NoError(t, err)

	var rangeErr *InputRangeError
	require.ErrorAs(t, s.Minimize(), &rangeErr)
	require.Equal(t, "wide", rangeErr.ExampleID)
}

func TestFractionalLabelRejectedEagerly(t *testing.T) {
	examples := binaryPairExamples(0.5, 1, 1, 1)

	for _, kind := range []loss.Kind{loss.Logistic, loss.Hinge, loss.SmoothHinge} {
		t.Run(kind.String(), func(t *testing.T) {
			s, err := New(examples, pairVariables(), Options{Loss: kind, L2: 1})
			require.NoError(t, err)

			err = s.Minimize()
			var labelErr *loss.LabelDomainError
			require.ErrorAs(t, err, &labelErr)
			require.Equal(t, kind, labelErr.Loss)
			require.Equal(t, 0, s.Store().Size())
		})
	}

	// Squared loss is a regression loss: any label trains fine.
	s, err := New(examples, pairVariables(), Options{Loss: loss.Squared, L2: 1})
	require.NoError(t, err)
	require.NoError(t, s.Minimize())
}

func TestConfigurationErrors(t *testing.T) {
	examples := binaryPairExamples(0, 1, 1, 1)
	cases := []struct {
		name string
		opts Options
	}{
		{"negative l1", Options{Loss: loss.Logistic, L1: -1, L2: 1}},
		{"negative l2", Options{Loss: loss.Logistic, L2: -0.5}},
		{"negative shards", Options{Loss: loss.Logistic, L2: 1, NumShards: -1}},
		{"negative partitions", Options{Loss: loss.Logistic, L2: 1, NumPartitions: -3}},
		{"negative newton iterations", Options{Loss: loss.Logistic, L2: 1, NewtonIterations: -1}},
		{"negative newton tolerance", Options{Loss: loss.Logistic, L2: 1, NewtonTolerance: -2}},
		{"unknown loss", Options{Loss: loss.Kind(99), L2: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(examples, pairVariables(), tc.opts)
			var confErr *ConfigurationError
			require.ErrorAs(t, err, &confErr)
		})
	}
}

func TestEmptyTrainingSet(t *testing.T) {
	s, err := New(nil, pairVariables(), Options{Loss: loss.Logistic, L2: 1})
	require.NoError(t, err)
	require.NoError(t, s.Minimize())
	require.Zero(t, s.ApproximateDualityGap())

	unreg, err := s.UnregularizedLoss(nil)
	require.NoError(t, err)
	require.Zero(t, unreg)
}

func TestL2FloorAffectsOnlyOptimization(t *testing.T) {
	// L2 below 1 is floored to 1 internally, so training matches the
	// l2=1 run, while the reported regularized loss uses the configured
	// value.
	examples := binaryPairExamples(10, -5, 1, 1)

	floored, err := New(examples, pairVariables(), Options{Loss: loss.Squared, L2: 0})
	require.NoError(t, err)
	unit, err := New(examples, pairVariables(), Options{Loss: loss.Squared, L2: 1})
	require.NoError(t, err)
	runPasses(t, floored, 5)
	runPasses(t, unit, 5)

	flooredPreds, err := floored.Predictions(examples)
	require.NoError(t, err)
	unitPreds, err := unit.Predictions(examples)
	require.NoError(t, err)
	require.InDelta(t, unitPreds[0], flooredPreds[0], 1e-12)
	require.InDelta(t, unitPreds[1], flooredPreds[1], 1e-12)

	flooredReg, err := floored.RegularizedLoss(examples)
	require.NoError(t, err)
	flooredUnreg, err := floored.UnregularizedLoss(examples)
	require.NoError(t, err)
	require.InDelta(t, flooredUnreg, flooredReg, 1e-12)

	unitReg, err := unit.RegularizedLoss(examples)
	require.NoError(t, err)
	require.Greater(t, unitReg, flooredReg)
}

func TestDeterministicReruns(t *testing.T) {
	// Single-partition training is sequential, so two identical runs
	// produce identical weights.
	train := func() [][]float64 {
		examples := binaryPairExamples(0, 1, 1, 1)
		s, err := New(examples, pairVariables(), Options{Loss: loss.Logistic, L2: 1})
		require.NoError(t, err)
		runPasses(t, s, 20)
		return s.SparseWeights()
	}
	require.Equal(t, train(), train())
}

func TestStoreResetRestartsTraining(t *testing.T) {
	examples := binaryPairExamples(0, 1, 1, 1)
	s, err := New(examples, pairVariables(), Options{Loss: loss.Logistic, L2: 1})
	require.NoError(t, err)
	runPasses(t, s, 10)
	require.Equal(t, 2, s.Store().Size())

	s.Store().Reset()
	require.Equal(t, 0, s.Store().Size())
	// Training continues from the reset duals without error.
	require.NoError(t, s.Minimize())
	require.Equal(t, 2, s.Store().Size())
}

func TestErrorStrings(t *testing.T) {
	confErr := &ConfigurationError{Reason: "number of shards must be at least 1, got 0"}
	require.Contains(t, confErr.Error(), "invalid configuration")

	rangeErr := &InputRangeError{ExampleID: "ex7", Detail: "sparse feature index 9 out of range for column 0 of size 2"}
	require.Contains(t, rangeErr.Error(), `example "ex7"`)
	require.True(t, errors.As(error(rangeErr), new(*InputRangeError)))
}
