package solver

import (
	"math"
	"sync/atomic"
)

// weightColumn is one primal weight array. Slots are mutated with
// compare-and-swap on the float64 bit pattern, so concurrent partition
// workers accumulate deltas without a column-wide lock.
type weightColumn struct {
	bits []atomic.Uint64
}

func newWeightColumn(init []float64) *weightColumn {
	c := &weightColumn{bits: make([]atomic.Uint64, len(init))}
	for i, v := range init {
		c.bits[i].Store(math.Float64bits(v))
	}
	return c
}

func (c *weightColumn) size() int {
	return len(c.bits)
}

// add atomically accumulates delta into slot i.
func (c *weightColumn) add(i int, delta float64) {
	for {
		old := c.bits[i].Load()
		updated := math.Float64bits(math.Float64frombits(old) + delta)
		if c.bits[i].CompareAndSwap(old, updated) {
			return
		}
	}
}

// at returns the raw (unshrunk) weight in slot i.
func (c *weightColumn) at(i int) float64 {
	return math.Float64frombits(c.bits[i].Load())
}

// shrunkAt returns the weight in slot i after L1 soft-thresholding.
func (c *weightColumn) shrunkAt(i int, threshold float64) float64 {
	return softThreshold(c.at(i), threshold)
}

// shrunkSnapshot copies the column with soft-thresholding applied.
func (c *weightColumn) shrunkSnapshot(threshold float64) []float64 {
	out := make([]float64, len(c.bits))
	for i := range c.bits {
		out[i] = c.shrunkAt(i, threshold)
	}
	return out
}

// softThreshold is sign(w) * max(|w| - threshold, 0).
func softThreshold(w, threshold float64) float64 {
	if threshold <= 0 {
		return w
	}
	switch {
	case w > threshold:
		return w - threshold
	case w < -threshold:
		return w + threshold
	default:
		return 0
	}
}
