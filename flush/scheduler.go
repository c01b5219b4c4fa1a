// Package flush supplies the flush scheduling collaborator the table
// writer depends on: a bounded worker pool grounded on
// mrsladoje-HundDB/lsm/flush_worker.go's FlushPool, converting drained
// memtables into immutable segments via a pluggable SegmentWriter — the
// on-disk SST layer itself stays out of scope, so SegmentWriter here is
// a capability interface with a simple pebble-backed demonstration
// implementation, not a real SST writer.
package flush

import (
	"context"

	"github.com/aetherdb/engine/memtable"
)

// FlushTarget is the minimal surface a flushable table exposes. table.Data
// satisfies it structurally; flush never imports the table package, so the
// dependency only runs one way (table depends on flush for Scheduler).
type FlushTarget interface {
	ID() uint64
	Name() string
	// DrainMutableMemtables atomically swaps out the table's current mutable
	// memtables (making them immutable) and returns them for flushing.
	DrainMutableMemtables() []memtable.MemTable
	// MarkFlushFailed records that a background flush exhausted its retry
	// budget, so that later writes to this table are rejected until an
	// operator intervenes.
	MarkFlushFailed(err error)
}

// TableFlushOptions carries per-submission parameters.
// ResultSender is nil for a fire-and-forget background flush (the common
// case: "do not block this writer on the flush's completion").
type TableFlushOptions struct {
	ResultSender chan<- error
	MaxRetryFlushLimit int
}

// Scheduler is the flush capability interface. Submit must never block the
// caller on the flush's completion.
type Scheduler interface {
	Submit(ctx context.Context, opts TableFlushOptions, target FlushTarget) error
}
