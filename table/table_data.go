// Package table implements the per-table and per-space runtime handles
// and the per-table serial executor, generalizing the mutex-guarded handle
// style used elsewhere in this codebase to the write path's own
// concurrency rules.
package table

import (
	"sync"
	"time"

	"github.com/aetherdb/engine/cluster"
	"github.com/aetherdb/engine/common"
	"github.com/aetherdb/engine/errors"
	"github.com/aetherdb/engine/memtable"
)

// Data is the per-table runtime handle.
type Data struct {
	id uint64
	name string
	shardInfo cluster.ShardInfo

	segmentDuration time.Duration
	flushThresholdBytes uint64

	mu sync.Mutex
	schema *common.Schema
	mutables []memtable.MemTable
	immutables []memtable.MemTable
	isDropped bool
	lastSeq uint64
	expiredBefore *int64
	flushFailed error

	Metrics *Metrics
	SerialExec *OpSerialExecutor
}

// NewData constructs a table handle covering one schema, rooted on
// shardInfo, with the given memtable time-partition width and per-table
// flush threshold (0 disables the table-level trigger).
func NewData(id uint64, name string, schema *common.Schema, shardInfo cluster.ShardInfo, segmentDuration time.Duration, flushThresholdBytes uint64, serialExec *OpSerialExecutor) *Data {
	return &Data{
		id: id,
		name: name,
		schema: schema,
		shardInfo: shardInfo,
		segmentDuration: segmentDuration,
		flushThresholdBytes: flushThresholdBytes,
		Metrics: &Metrics{},
		SerialExec: serialExec,
	}
}

func (d *Data) ID() uint64 { return d.id }
func (d *Data) Name() string { return d.name }
func (d *Data) ShardInfo() cluster.ShardInfo { return d.shardInfo }

func (d *Data) Schema() *common.Schema {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.schema
}

func (d *Data) IsDropped() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.isDropped
}

func (d *Data) SetDropped() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.isDropped = true
}

// SetExpiryBoundary marks every timestamp strictly before boundary as
// expired. A nil boundary (the default) means nothing is expired — this
// engine does not derive expiry from wall-clock time on its own; a
// retention policy (out of scope here) is expected to call this.
func (d *Data) SetExpiryBoundary(boundary int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b := boundary
	d.expiredBefore = &b
}

func (d *Data) IsExpired(ts int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.expiredBefore != nil && ts < *d.expiredBefore
}

// MarkFlushFailed records that a background flush exhausted its retry
// budget. Once set, every subsequent write to this table fails with
// BackgroundFlushFailed until an operator clears it via ClearFlushFailed.
func (d *Data) MarkFlushFailed(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.flushFailed = err
}

// ClearFlushFailed resets the background-flush-failed state, the operator
// intervention the write path has no other way to perform.
func (d *Data) ClearFlushFailed() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.flushFailed = nil
}

// FlushFailedErr returns the error of the last background flush that
// exhausted its retries, or nil if none has failed (or it was cleared).
func (d *Data) FlushFailedErr() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.flushFailed
}

// FindOrCreateMutable returns the mutable memtable covering ts's time
// window, creating one if none of the current mutables accept it.
func (d *Data) FindOrCreateMutable(ts int64, schema *common.Schema) (memtable.MemTable, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, mt := range d.mutables {
		if mt.AcceptTimestamp(ts) {
			return mt, nil
		}
	}

	width := int64(d.segmentDuration)
	windowStart := floorDiv(ts, width) * width
	windowEnd := windowStart + width
	mt := memtable.NewTable(windowStart, windowEnd)
	d.mutables = append(d.mutables, mt)
	return mt, nil
}

// ShouldFlushTable reports whether this table's buffered memtable memory
// exceeds its own threshold, independent of space/instance triggers.
func (d *Data) ShouldFlushTable() bool {
	if d.flushThresholdBytes == 0 {
		return false
	}
	return d.MemtableMemoryUsage() >= d.flushThresholdBytes
}

func (d *Data) MemtableMemoryUsage() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	var total uint64
	for _, mt := range d.mutables {
		total += mt.MemoryUsage()
	}
	return total
}

// DrainMutableMemtables swaps the current mutables out as immutable and
// returns them, satisfying flush.FlushTarget.
func (d *Data) DrainMutableMemtables() []memtable.MemTable {
	d.mu.Lock()
	defer d.mu.Unlock()
	drained := d.mutables
	d.immutables = append(d.immutables, drained...)
	d.mutables = nil
	return drained
}

func (d *Data) LastSequence() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastSeq
}

func (d *Data) SetLastSequence(seq uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastSeq = seq
}

// floorDiv divides toward negative infinity, unlike Go's native truncating
// division, so that negative timestamps still land in the correct
// half-open window rather than the one just after it.
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// EncodeContext is created per write and dropped when the write returns:
// it carries the schema-compatibility mapping computed during preprocess
// through encode and memtable install.
type EncodeContext struct {
	IndexInWriter common.IndexInWriterSchema
}

// ResolveEncodeContext runs the write-schema compatibility check
// between srcSchema (the writer's) and the table's own schema.
func (d *Data) ResolveEncodeContext(srcSchema *common.Schema) (*EncodeContext, error) {
	tableSchema := d.Schema()
	idx, err := tableSchema.CompatibleForWrite(srcSchema)
	if err != nil {
		return nil, errors.NewIncompatSchema(d.name, err)
	}
	return &EncodeContext{IndexInWriter: idx}, nil
}
