// Package nodemap implements the sparse, open-addressed node-tuple ->
// probability map used as the per-level forward/backward "frontier" of the
// Baum recursions (spec §4.1).
package nodemap

import (
	"fmt"
	"math"

	"github.com/dchest/siphash"

	"github.com/dagphase/dagphase"
)

// Fixed SipHash key. The map only needs a stable, well-mixed hash of a
// small integer tuple; there is no adversarial-input concern (callers are
// trusted HMM recursions), so a constant key is sufficient and keeps
// sumUpdate/value deterministic across runs.
const (
	hashK0 uint64 = 0x9ae16a3b2f90404f
	hashK1 uint64 = 0xc949d7c7509e6557
)

const loadFactor = 0.75

// maxCapacity bounds capacity doubling so the insertion-order index (int32)
// never overflows; exceeding it is the HashOverflow failure mode spec.md
// §4.1 documents.
const maxCapacity = 1 << 30

// NodeMap is a sparse mapping from a fixed-arity node tuple to a strictly
// positive accumulated float32 value, with insertion-order enumeration.
//
// Not safe for concurrent use; a frontier NodeMap is passed from level to
// level within one worker's recursion and stays confined to that worker
// goroutine (spec §5).
type NodeMap struct {
	capacity int
	keys     []Key
	values   []float32
	order    []int32 // occupied slot indices, in insertion order
	size     int

	// Row/column/grand-total projections, maintained incrementally so the
	// recombination-augmented diploid level (spec §4.3) can read them in
	// O(1) per transition instead of rescanning the live entries.
	rowSums map[int32]float32
	colSums map[int32]float32
	total   float32
}

// New creates an empty NodeMap with an initial capacity large enough to
// hold sizeHint entries at the target load factor, rounded up to a power
// of two (minimum 16).
func New(sizeHint int) *NodeMap {
	cap := 16
	for float64(cap)*loadFactor < float64(sizeHint) {
		cap *= 2
	}
	return &NodeMap{
		capacity: cap,
		keys:     make([]Key, cap),
		values:   make([]float32, cap),
		order:    make([]int32, 0, sizeHint),
		rowSums:  make(map[int32]float32),
		colSums:  make(map[int32]float32),
	}
}

// SumUpdate adds v to the accumulated value at key, inserting key with
// value v if absent. Requires v > 0 and finite, and every populated key
// field >= 0; otherwise returns dagphase.ErrInvalidArg. Returns
// dagphase.ErrHashOverflow if growing the table would overflow the
// insertion-order index.
func (m *NodeMap) SumUpdate(key Key, v float32) error {
	if !(v > 0) || math.IsInf(float64(v), 0) || math.IsNaN(float64(v)) {
		return fmt.Errorf("%w: sumUpdate value %v must be positive and finite", dagphase.ErrInvalidArg, v)
	}
	if !key.Valid() {
		return fmt.Errorf("%w: sumUpdate key %+v has negative field", dagphase.ErrInvalidArg, key)
	}
	if float64(m.size+1) > loadFactor*float64(m.capacity) {
		if err := m.grow(); err != nil {
			return err
		}
	}
	slot := m.probe(key)
	if m.values[slot] == 0 {
		m.keys[slot] = key
		m.order = append(m.order, int32(slot))
		m.size++
	}
	m.values[slot] += v
	if key.Arity >= 2 {
		m.rowSums[key.N1] += v
		m.colSums[key.N2] += v
	}
	m.total += v
	return nil
}

// Value returns the accumulated value at key, or 0 if key is absent.
func (m *NodeMap) Value(key Key) float32 {
	if m.capacity == 0 {
		return 0
	}
	slot := m.probe(key)
	return m.values[slot]
}

// Size returns the number of distinct keys with a nonzero value.
func (m *NodeMap) Size() int { return m.size }

// Enum returns the i-th live (key, value) pair in insertion order, stable
// until the next Clear or SumUpdate call. i must be in [0, Size()).
func (m *NodeMap) Enum(i int) (Key, float32) {
	slot := m.order[i]
	return m.keys[slot], m.values[slot]
}

// Clear resets the map to empty. O(Size()): only the currently-live slots
// are reset, not the whole backing array.
func (m *NodeMap) Clear() {
	for _, slot := range m.order {
		m.values[slot] = 0
		m.keys[slot] = Key{}
	}
	m.order = m.order[:0]
	m.size = 0
	for k := range m.rowSums {
		delete(m.rowSums, k)
	}
	for k := range m.colSums {
		delete(m.colSums, k)
	}
	m.total = 0
}

// probe returns the slot index for key: the first slot that is either
// empty (value == 0) or holds an equal key. Values are strictly positive,
// so value == 0 is an unambiguous empty sentinel.
func (m *NodeMap) probe(key Key) int {
	h1, h2 := m.hashes(key)
	slot := int(h1 % uint64(m.capacity))
	step := int(h2)
	for {
		if m.values[slot] == 0 || m.keys[slot].equal(key) {
			return slot
		}
		slot = (slot + step) % m.capacity
	}
}

// hashes computes the primary probe position and a secondary step forced
// odd so it is coprime with the power-of-two capacity (double hashing).
func (m *NodeMap) hashes(key Key) (h1 uint64, h2 uint64) {
	b := key.bytes()
	h1 = siphash.Hash(hashK0, hashK1, b)
	h2raw := siphash.Hash(hashK1, hashK0, b)
	h2 = (h2raw | 1) % uint64(m.capacity)
	if h2 == 0 {
		h2 = 1
	}
	return h1, h2
}

func (m *NodeMap) grow() error {
	newCap := m.capacity * 2
	if newCap > maxCapacity {
		return fmt.Errorf("%w: node map capacity %d would exceed %d", dagphase.ErrHashOverflow, m.capacity, maxCapacity)
	}
	old := *m
	m.capacity = newCap
	m.keys = make([]Key, newCap)
	m.values = make([]float32, newCap)
	m.order = make([]int32, 0, old.size)
	m.size = 0
	for _, slot := range old.order {
		k, v := old.keys[slot], old.values[slot]
		dst := m.probe(k)
		m.keys[dst] = k
		m.values[dst] = v
		m.order = append(m.order, int32(dst))
		m.size++
	}
	return nil
}

// Clone returns an independent copy of m, usable by a checkpointed caller
// (spec §4.6) to snapshot a frontier before replaying forward from it.
func (m *NodeMap) Clone() *NodeMap {
	c := &NodeMap{
		capacity: m.capacity,
		keys:     append([]Key(nil), m.keys...),
		values:   append([]float32(nil), m.values...),
		order:    append([]int32(nil), m.order...),
		size:     m.size,
		rowSums:  make(map[int32]float32, len(m.rowSums)),
		colSums:  make(map[int32]float32, len(m.colSums)),
		total:    m.total,
	}
	for k, v := range m.rowSums {
		c.rowSums[k] = v
	}
	for k, v := range m.colSums {
		c.colSums[k] = v
	}
	return c
}

// RowSum1 sums values over all live entries whose first node equals n1.
// Used by the recombination-augmented diploid level's row projection.
func (m *NodeMap) RowSum1(n1 int) float32 {
	return m.rowSums[int32(n1)]
}

// ColSum2 sums values over all live entries whose second node equals n2.
func (m *NodeMap) ColSum2(n2 int) float32 {
	return m.colSums[int32(n2)]
}

// Total sums every live entry's value (the grand total projection).
func (m *NodeMap) Total() float32 {
	return m.total
}
