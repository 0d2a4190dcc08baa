package sharded

import (
	"errors"
	"sync"
)

// ErrNumShards is returned when a store is constructed with fewer than
// one shard.
var ErrNumShards = errors.New("sharded: number of shards must be at least 1")

// Store holds one dual variable per example fingerprint, spread over a
// fixed array of independently locked shards.
type Store struct {
	shards       []shard
	defaultValue float64
}

type shard struct {
	mu   sync.RWMutex
	vals map[uint64]float64
}

// New creates a store with numShards shards. Lookups of absent keys
// return defaultValue.
func New(numShards int, defaultValue float64) (*Store, error) {
	if numShards < 1 {
		return nil, ErrNumShards
	}
	s := &Store{
		shards:       make([]shard, numShards),
		defaultValue: defaultValue,
	}
	for i := range s.shards {
		s.shards[i].vals = make(map[uint64]float64)
	}
	return s, nil
}

func (s *Store) shardFor(key uint64) *shard {
	return &s.shards[key%uint64(len(s.shards))]
}

// NumShards returns the fixed shard count.
func (s *Store) NumShards() int {
	return len(s.shards)
}

// Put inserts or overwrites a single value.
func (s *Store) Put(key uint64, value float64) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	sh.vals[key] = value
	sh.mu.Unlock()
}

// Get returns the stored value for key, or the configured default if the
// key is absent. It never fails and never mutates the store.
func (s *Store) Get(key uint64) float64 {
	sh := s.shardFor(key)
	sh.mu.RLock()
	v, ok := sh.vals[key]
	sh.mu.RUnlock()
	if !ok {
		return s.defaultValue
	}
	return v
}

// Insert inserts or overwrites values under the corresponding keys.
// The store grows only for genuinely new keys.
func (s *Store) Insert(keys []uint64, values []float64) {
	for i, k := range keys {
		s.Put(k, values[i])
	}
}

// Lookup returns one value per key, substituting the configured default
// for absent keys.
func (s *Store) Lookup(keys []uint64) []float64 {
	out := make([]float64, len(keys))
	for i, k := range keys {
		out[i] = s.Get(k)
	}
	return out
}

// Size returns the total number of entries across all shards.
func (s *Store) Size() int {
	total := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		total += len(sh.vals)
		sh.mu.RUnlock()
	}
	return total
}

// ExportSharded returns the full key/value contents per shard, preserving
// the shard assignment. The per-shard iteration order is unspecified, but
// keys[i][j] always pairs with values[i][j].
func (s *Store) ExportSharded() (keys [][]uint64, values [][]float64) {
	keys = make([][]uint64, len(s.shards))
	values = make([][]float64, len(s.shards))
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		keys[i] = make([]uint64, 0, len(sh.vals))
		values[i] = make([]float64, 0, len(sh.vals))
		for k, v := range sh.vals {
			keys[i] = append(keys[i], k)
			values[i] = append(values[i], v)
		}
		sh.mu.RUnlock()
	}
	return keys, values
}

// Reset drops every entry while keeping the shard layout.
func (s *Store) Reset() {
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		sh.vals = make(map[uint64]float64)
		sh.mu.Unlock()
	}
}
