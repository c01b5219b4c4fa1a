// Package memtable defines the MemTable capability and a production
// implementation backed by an ordered in-memory index, shaped after the
// in-memory write buffers found in LSM-style storage engines
// (mrsladoje-HundDB's lsm/flush_worker.go, zhu733756-influxdb-cluster's
// points_writer.go).
package memtable

import (
	"sort"
	"sync"

	"github.com/aetherdb/engine/common"
	"github.com/aetherdb/engine/errors"
)

// PutContext carries per-write-call state threaded through every Put in a
// single MemTableWriter.write invocation — currently just the schema mapping
// computed once by the Writer's preprocess stage.
type PutContext struct {
	IndexInWriter common.IndexInWriterSchema
}

func NewPutContext(idx common.IndexInWriterSchema) *PutContext {
	return &PutContext{IndexInWriter: idx}
}

// MemTable is the capability interface TableData's mutable buffers satisfy.
// There is one production implementation (Table, below) and callers may
// substitute a fake for unit tests.
type MemTable interface {
	AcceptTimestamp(ts int64) bool
	Put(ctx *PutContext, seq KeySequence, row common.Row, schema *common.Schema, ts int64) error
	SetLastSequence(seq uint64) error
	LastSequence() uint64
	MemoryUsage() uint64
	NumRows() int
	// Rows returns a snapshot of buffered rows in (primary key, KeySequence)
	// order — the order a flush reads them back in.
	Rows() []common.Row
}

type entry struct {
	key []byte
	seq KeySequence
	row common.Row
	bytes uint64
}

// Table is the production MemTable: entries are kept in a single sorted
// slice (primary key bytes, then KeySequence) behind a mutex. Correctness,
// not find-the-fastest-structure, is the point here — the on-disk SST layer
// that would eventually absorb this data is out of scope for this module.
type Table struct {
	mu sync.Mutex
	windowStart int64
	windowEnd int64 // exclusive
	entries []entry
	lastSeq uint64
	memBytes uint64
}

// NewTable constructs a memtable covering the half-open time window
// [windowStart, windowEnd).
func NewTable(windowStart, windowEnd int64) *Table {
	return &Table{windowStart: windowStart, windowEnd: windowEnd}
}

func (t *Table) AcceptTimestamp(ts int64) bool {
	return ts >= t.windowStart && ts < t.windowEnd
}

func encodeKeyCols(schema *common.Schema, row common.Row) []byte {
	var buf []byte
	for i, col := range schema.Columns {
		if !col.IsKey {
			continue
		}
		buf = append(buf, byte(col.Kind))
		buf = encodeDatumForKey(buf, row.Datums[i])
	}
	return buf
}

func encodeDatumForKey(buf []byte, d common.Datum) []byte {
	switch d.Kind {
	case common.KindInt64, common.KindTimestamp:
		return common.AppendUint64ToBufferBE(buf, uint64(d.AsInt64()))
	case common.KindString:
		return append(buf, d.AsString()...)
	case common.KindBytes:
		return append(buf, d.AsBytes()...)
	case common.KindBool:
		if d.AsBool() {
			return append(buf, 1)
		}
		return append(buf, 0)
	default:
		return buf
	}
}

func (t *Table) Put(ctx *PutContext, seq KeySequence, row common.Row, schema *common.Schema, ts int64) error {
	if !t.AcceptTimestamp(ts) {
		return errors.Errorf("timestamp %d not accepted by memtable window [%d, %d)", ts, t.windowStart, t.windowEnd)
	}
	key := encodeKeyCols(schema, row)
	e := entry{key: key, seq: seq, row: row, bytes: estimateRowBytes(row)}

	t.mu.Lock()
	defer t.mu.Unlock()
	idx := sort.Search(len(t.entries), func(i int) bool {
		return compareEntry(t.entries[i], e) >= 0
	})
	t.entries = append(t.entries, entry{})
	copy(t.entries[idx+1:], t.entries[idx:])
	t.entries[idx] = e
	t.memBytes += e.bytes
	return nil
}

func compareEntry(a, b entry) int {
	c := compareBytes(a.key, b.key)
	if c != 0 {
		return c
	}
	if a.seq.Less(b.seq) {
		return -1
	}
	if b.seq.Less(a.seq) {
		return 1
	}
	return 0
}

func compareBytes(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

func estimateRowBytes(row common.Row) uint64 {
	var n uint64
	for _, d := range row.Datums {
		switch d.Kind {
		case common.KindString:
			n += uint64(len(d.AsString()))
		case common.KindBytes:
			n += uint64(len(d.AsBytes()))
		default:
			n += 8
		}
	}
	return n
}

// SetLastSequence advances the watermark. The caller (MemTableWriter) is
// responsible for only ever calling this with non-decreasing values; Table
// enforces it defensively.
func (t *Table) SetLastSequence(seq uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if seq < t.lastSeq {
		return errors.Errorf("memtable last_sequence must be non-decreasing: have %d, got %d", t.lastSeq, seq)
	}
	t.lastSeq = seq
	return nil
}

func (t *Table) LastSequence() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastSeq
}

func (t *Table) MemoryUsage() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.memBytes
}

func (t *Table) NumRows() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Rows returns a snapshot of the rows currently buffered, ordered by (primary
// key, KeySequence) — the order a flush would read them back in.
func (t *Table) Rows() []common.Row {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]common.Row, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.row
	}
	return out
}

// KeySequences returns the KeySequence of every buffered entry in the same
// order as Rows.
func (t *Table) KeySequences() []KeySequence {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]KeySequence, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.seq
	}
	return out
}
