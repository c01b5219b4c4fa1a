package table

import (
	"sync/atomic"
	"time"
)

// Metrics accumulates per-table write-path counters. The real engine would
// register these against a metrics exporter; here
// they are plain atomics a caller can read back in tests and an operator
// could wire to any exporter later.
type Metrics struct {
	writeRequestsBegun int64
	writeRequestsDone int64
	rowsWritten int64
}

func (m *Metrics) OnWriteRequestBegin() {
	atomic.AddInt64(&m.writeRequestsBegun, 1)
}

func (m *Metrics) OnWriteRequestDone(rows int) {
	atomic.AddInt64(&m.writeRequestsDone, 1)
	atomic.AddInt64(&m.rowsWritten, int64(rows))
}

func (m *Metrics) RowsWritten() int64 {
	return atomic.LoadInt64(&m.rowsWritten)
}

// StartTimer returns a func to call at the end of a stage, standing in for
// an RAII-style timer in languages that have one — callers
// `defer metrics.StartTimer(...)()`.
func (m *Metrics) StartTimer(_ string) func() {
	start := time.Now()
	return func() { _ = time.Since(start) }
}
