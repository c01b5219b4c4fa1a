package memtable

import "fmt"

// MaxRowsPerBatch bounds the intra-batch index so that KeySequence values
// never collide within a single WAL-assigned sequence number.
const MaxRowsPerBatch = 10_000_000

// KeySequence totally orders every row ever installed into a memtable: first
// by the WAL sequence number that carried it, then by its position within
// that batch.
type KeySequence struct {
	Sequence uint64
	Index uint32
}

// NewKeySequence validates index < MaxRowsPerBatch before constructing.
func NewKeySequence(sequence uint64, index uint32) KeySequence {
	if index >= MaxRowsPerBatch {
		panic(fmt.Sprintf("intra-batch index %d exceeds MaxRowsPerBatch %d", index, MaxRowsPerBatch))
	}
	return KeySequence{Sequence: sequence, Index: index}
}

// Less orders KeySequence values by (Sequence, Index) ascending.
func (k KeySequence) Less(other KeySequence) bool {
	if k.Sequence != other.Sequence {
		return k.Sequence < other.Sequence
	}
	return k.Index < other.Index
}
