// Package solver implements the SDCA linear-model solver: one pass of
// stochastic dual coordinate ascent over a set of in-memory examples,
// with per-example dual variables in a sharded store and a shared primal
// weight vector updated through lock-free per-slot atomics.
//
// A Minimize call validates every example eagerly, splits the set into
// disjoint partitions, and runs one worker per partition. Workers share
// the store and the weight vector under a relaxed-consistency contract:
// correctness is statistical (the duality gap shrinks across passes), not
// linearizable, and repeated runs under concurrency may produce different
// but equally valid weights.
package solver
