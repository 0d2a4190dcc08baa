// Package fingerprint maps byte-string example identifiers to fixed-width
// integer keys used for dual-variable identity and shard routing.
package fingerprint

import "github.com/cespare/xxhash/v2"

// Key computes the 64-bit fingerprint of id.
//
// The function is pure and deterministic: identical input always yields
// an identical key, across repeated calls, shard counts, and processes.
// No cryptographic strength is implied; collisions are assumed negligible
// at realistic example-id cardinalities.
func Key(id []byte) uint64 {
	return xxhash.Sum64(id)
}

// KeyString is Key for string identifiers, without copying the bytes.
func KeyString(id string) uint64 {
	return xxhash.Sum64String(id)
}
