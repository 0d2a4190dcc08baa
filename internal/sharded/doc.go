// Package sharded implements the dual-variable store used by the SDCA
// solver: a fixed number of independently locked maps keyed by 64-bit
// example fingerprints.
//
// The shard for a key is fingerprint mod shard count, fixed at
// construction. Every fingerprint maps to exactly one shard, so the total
// size is the sum of the shard sizes with no duplication. Operations on
// different shards proceed without blocking each other; operations on the
// same shard serialize on that shard's lock, and each critical section is
// a single map access.
package sharded
