package solver

import (
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/linear-ml/sdca/internal/fingerprint"
	"github.com/linear-ml/sdca/internal/loss"
	"github.com/linear-ml/sdca/internal/parallel"
	"github.com/linear-ml/sdca/internal/sharded"
)

// Solver runs stochastic dual coordinate ascent over a fixed example set.
type Solver struct {
	opts   Options
	lossFn loss.Function
	// l2eff is the L2 strength the optimizer actually uses: max(L2, 1).
	l2eff float64

	examples  []Example
	fprints   []uint64
	normsSq   []float64
	sumWeight float64

	sparse []*weightColumn
	dense  []*weightColumn

	store *sharded.Store
}

// New constructs a Solver over the given training examples and initial
// weights. Options are validated here; example features and labels are
// validated on every Minimize call, before any mutation.
func New(examples []Example, vars Variables, opts Options) (*Solver, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	lossFn, err := loss.New(opts.Loss, loss.Settings{
		NewtonIterations: opts.NewtonIterations,
		NewtonTolerance:  opts.NewtonTolerance,
	})
	if err != nil {
		return nil, &ConfigurationError{Reason: err.Error()}
	}
	store, err := sharded.New(opts.NumShards, 0)
	if err != nil {
		return nil, &ConfigurationError{Reason: err.Error()}
	}

	s := &Solver{
		opts:     opts,
		lossFn:   lossFn,
		l2eff:    math.Max(opts.L2, 1),
		examples: examples,
		fprints:  make([]uint64, len(examples)),
		normsSq:  make([]float64, len(examples)),
		sparse:   make([]*weightColumn, len(vars.SparseWeights)),
		dense:    make([]*weightColumn, len(vars.DenseWeights)),
		store:    store,
	}
	for i, w := range vars.SparseWeights {
		s.sparse[i] = newWeightColumn(w)
	}
	for i, w := range vars.DenseWeights {
		s.dense[i] = newWeightColumn(w)
	}
	for i := range examples {
		s.fprints[i] = fingerprint.KeyString(examples[i].ID)
		s.normsSq[i] = featureSquaredNorm(&examples[i])
		s.sumWeight += examples[i].Weight
	}
	return s, nil
}

// shrinkThreshold is the soft-thresholding level implied by L1 and the
// effective L2.
func (s *Solver) shrinkThreshold() float64 {
	return s.opts.L1 / s.l2eff
}

// dot computes the example's dot product against the shrunk weights.
func (s *Solver) dot(ex *Example) float64 {
	threshold := s.shrinkThreshold()
	var wx float64
	for c, col := range ex.SparseFeatures {
		w := s.sparse[c]
		for k, idx := range col.Indices {
			wx += w.shrunkAt(idx, threshold) * col.Values[k]
		}
	}
	for c, vals := range ex.DenseFeatures {
		w := s.dense[c]
		for j, v := range vals {
			wx += w.shrunkAt(j, threshold) * v
		}
	}
	return wx
}

// Minimize performs one training pass: eager validation, then one worker
// per partition applying the per-example dual/primal updates. All workers
// are joined before Minimize returns, so the duality gap afterwards
// observes a quiesced pass. An error aborts the whole call; validation
// errors are raised before any weight or store mutation.
func (s *Solver) Minimize() error {
	if err := s.validateFeatures(s.examples); err != nil {
		return err
	}
	if err := s.validateLabels(s.examples); err != nil {
		return err
	}
	var g errgroup.Group
	for _, r := range parallel.Ranges(len(s.examples), s.opts.NumPartitions) {
		r := r
		g.Go(func() error {
			for i := r.Start; i < r.End; i++ {
				if err := s.step(i); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// step updates one example's dual variable and scatters the resulting
// primal delta into the touched weight slots.
func (s *Solver) step(i int) error {
	ex := &s.examples[i]
	if ex.Weight == 0 {
		return nil
	}
	wx := s.dot(ex)
	key := s.fprints[i]
	oldDual := s.store.Get(key)
	newDual, err := s.lossFn.DualUpdate(
		oldDual, ex.Label, ex.Weight, s.normsSq[i], s.l2eff, len(s.examples), wx)
	if err != nil {
		return err
	}
	if delta := (newDual - oldDual) * ex.Weight / (float64(len(s.examples)) * s.l2eff); delta != 0 {
		s.applyDelta(ex, delta)
	}
	s.store.Put(key, newDual)
	return nil
}

func (s *Solver) applyDelta(ex *Example, delta float64) {
	for c, col := range ex.SparseFeatures {
		w := s.sparse[c]
		for k, idx := range col.Indices {
			w.add(idx, delta*col.Values[k])
		}
	}
	for c, vals := range ex.DenseFeatures {
		w := s.dense[c]
		for j, v := range vals {
			if v != 0 {
				w.add(j, delta*v)
			}
		}
	}
}

// Predictions scores examples against the current shrunk weights. It is
// a pure read: neither the weights nor the dual store are touched.
func (s *Solver) Predictions(examples []Example) ([]float64, error) {
	if err := s.validateFeatures(examples); err != nil {
		return nil, err
	}
	out := make([]float64, len(examples))
	parallel.For(len(examples), func(i int) {
		out[i] = s.lossFn.Predict(s.dot(&examples[i]))
	}, parallel.DefaultConfig())
	return out, nil
}

// UnregularizedLoss returns the weighted mean per-example loss under the
// current shrunk weights. Zero-weight examples are excluded.
func (s *Solver) UnregularizedLoss(examples []Example) (float64, error) {
	lossSum, weightSum, err := s.lossSums(examples)
	if err != nil {
		return 0, err
	}
	if weightSum == 0 {
		return 0, nil
	}
	return lossSum / weightSum, nil
}

// RegularizedLoss is UnregularizedLoss plus the configured L1 and L2
// penalties on the shrunk weights, normalized by the total example
// weight.
func (s *Solver) RegularizedLoss(examples []Example) (float64, error) {
	lossSum, weightSum, err := s.lossSums(examples)
	if err != nil {
		return 0, err
	}
	if weightSum == 0 {
		return 0, nil
	}
	l1Norm, sqNorm := s.weightNorms()
	return (lossSum + s.opts.L1*l1Norm + s.opts.L2/2*sqNorm) / weightSum, nil
}

func (s *Solver) lossSums(examples []Example) (lossSum, weightSum float64, err error) {
	if err := s.validateFeatures(examples); err != nil {
		return 0, 0, err
	}
	for i := range examples {
		ex := &examples[i]
		if ex.Weight == 0 {
			continue
		}
		lossSum += s.lossFn.UnregularizedLoss(ex.Label, s.dot(ex), ex.Weight)
		weightSum += ex.Weight
	}
	return lossSum, weightSum, nil
}

// ApproximateDualityGap returns (primal - dual) objective over the
// training set, normalized by the total example weight. It is
// theoretically non-negative; tiny negative values are an artifact of
// the per-coordinate approximation and of relaxed-consistency training,
// not a failure.
func (s *Solver) ApproximateDualityGap() float64 {
	if s.sumWeight == 0 {
		return 0
	}
	n := len(s.examples)
	var primal, dual float64
	for i := range s.examples {
		ex := &s.examples[i]
		if ex.Weight == 0 {
			continue
		}
		primal += s.lossFn.UnregularizedLoss(ex.Label, s.dot(ex), ex.Weight)
		dual += ex.Weight * s.lossFn.DualPayoff(s.store.Get(s.fprints[i]), ex.Label, n)
	}
	l1Norm, sqNorm := s.weightNorms()
	return (primal - dual + s.l2eff*sqNorm + s.opts.L1*l1Norm) / s.sumWeight
}

// weightNorms returns the L1 norm and squared L2 norm over all shrunk
// weights.
func (s *Solver) weightNorms() (l1Norm, sqNorm float64) {
	threshold := s.shrinkThreshold()
	cols := make([]*weightColumn, 0, len(s.sparse)+len(s.dense))
	cols = append(cols, s.sparse...)
	cols = append(cols, s.dense...)
	for _, col := range cols {
		for i := 0; i < col.size(); i++ {
			w := col.shrunkAt(i, threshold)
			l1Norm += math.Abs(w)
			sqNorm += w * w
		}
	}
	return l1Norm, sqNorm
}

// SparseWeights returns shrunk snapshots of the sparse weight columns.
func (s *Solver) SparseWeights() [][]float64 {
	threshold := s.shrinkThreshold()
	out := make([][]float64, len(s.sparse))
	for i, col := range s.sparse {
		out[i] = col.shrunkSnapshot(threshold)
	}
	return out
}

// DenseWeights returns shrunk snapshots of the dense weight columns.
func (s *Solver) DenseWeights() [][]float64 {
	threshold := s.shrinkThreshold()
	out := make([][]float64, len(s.dense))
	for i, col := range s.dense {
		out[i] = col.shrunkSnapshot(threshold)
	}
	return out
}

// Store exposes the dual-variable store for checkpoint integration
// (Size, ExportSharded, Reset).
func (s *Solver) Store() *sharded.Store {
	return s.store
}

func (s *Solver) validateFeatures(examples []Example) error {
	for i := range examples {
		ex := &examples[i]
		if len(ex.SparseFeatures) > len(s.sparse) {
			return &InputRangeError{
				ExampleID: ex.ID,
				Detail: fmt.Sprintf("has %d sparse feature columns, weights allocated for %d",
					len(ex.SparseFeatures), len(s.sparse)),
			}
		}
		for c, col := range ex.SparseFeatures {
			if len(col.Indices) != len(col.Values) {
				return &InputRangeError{
					ExampleID: ex.ID,
					Detail: fmt.Sprintf("sparse column %d has %d indices but %d values",
						c, len(col.Indices), len(col.Values)),
				}
			}
			size := s.sparse[c].size()
			for _, idx := range col.Indices {
				if idx < 0 || idx >= size {
					return &InputRangeError{
						ExampleID: ex.ID,
						Detail: fmt.Sprintf("sparse feature index %d out of range for column %d of size %d",
							idx, c, size),
					}
				}
			}
		}
		if len(ex.DenseFeatures) > len(s.dense) {
			return &InputRangeError{
				ExampleID: ex.ID,
				Detail: fmt.Sprintf("more dense feature columns (%d) than allocated dense weights (%d)",
					len(ex.DenseFeatures), len(s.dense)),
			}
		}
		for c, vals := range ex.DenseFeatures {
			if len(vals) > s.dense[c].size() {
				return &InputRangeError{
					ExampleID: ex.ID,
					Detail: fmt.Sprintf("dense column %d has width %d, weights allocated for %d",
						c, len(vals), s.dense[c].size()),
				}
			}
		}
	}
	return nil
}

func (s *Solver) validateLabels(examples []Example) error {
	for i := range examples {
		ex := &examples[i]
		if ex.Weight == 0 {
			// Excluded from training, so the label never reaches the loss.
			continue
		}
		if err := s.lossFn.ValidateLabel(ex.Label); err != nil {
			return err
		}
	}
	return nil
}
