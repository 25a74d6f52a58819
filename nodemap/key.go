package nodemap

import "encoding/binary"

// Key is a fixed-arity tuple of node identifiers: a singleton, pair, or
// triple, depending on which Baum level variant produced it (diploid
// non-recombination and recombination levels use pairs, haploid levels use
// singletons, duo levels use triples). Unused trailing fields are zero and
// excluded from hashing/equality by Arity.
type Key struct {
	N1, N2, N3 int32
	Arity      uint8
}

// Key1 builds a singleton key (haploid levels).
func Key1(n1 int) Key { return Key{N1: int32(n1), Arity: 1} }

// Key2 builds a pair key (diploid levels).
func Key2(n1, n2 int) Key { return Key{N1: int32(n1), N2: int32(n2), Arity: 2} }

// Key3 builds a triple key (duo levels).
func Key3(n1, n2, n3 int) Key { return Key{N1: int32(n1), N2: int32(n2), N3: int32(n3), Arity: 3} }

// Valid reports whether every populated field is non-negative, the
// precondition sumUpdate enforces on its key argument.
func (k Key) Valid() bool {
	if k.N1 < 0 {
		return false
	}
	if k.Arity >= 2 && k.N2 < 0 {
		return false
	}
	if k.Arity >= 3 && k.N3 < 0 {
		return false
	}
	return true
}

func (k Key) equal(o Key) bool {
	switch k.Arity {
	case 1:
		return k.N1 == o.N1
	case 2:
		return k.N1 == o.N1 && k.N2 == o.N2
	default:
		return k.N1 == o.N1 && k.N2 == o.N2 && k.N3 == o.N3
	}
}

// bytes serializes the populated fields for hashing.
func (k Key) bytes() []byte {
	var buf [12]byte
	binary.LittleEndian.PutUint32(buf[0:4], uint32(k.N1))
	n := 4
	if k.Arity >= 2 {
		binary.LittleEndian.PutUint32(buf[4:8], uint32(k.N2))
		n = 8
	}
	if k.Arity >= 3 {
		binary.LittleEndian.PutUint32(buf[8:12], uint32(k.N3))
		n = 12
	}
	return buf[:n]
}
