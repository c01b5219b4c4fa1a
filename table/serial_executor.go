package table

import (
	"sync"

	"github.com/aetherdb/engine/flush"
)

// OpSerialExecutor is the per-table exclusivity primitive: every
// mutating table operation is dispatched through it, totally ordering
// table mutations. A Writer holds an exclusive borrow (Lock) for the
// duration of Writer.Write; a cross-table flush trigger must TryLock and
// give up on contention rather than block, the sole rule
// preventing pairwise deadlock between concurrently writing tables.
type OpSerialExecutor struct {
	mu sync.Mutex
	flushScheduler flush.Scheduler
}

func NewOpSerialExecutor(scheduler flush.Scheduler) *OpSerialExecutor {
	return &OpSerialExecutor{flushScheduler: scheduler}
}

func (e *OpSerialExecutor) Lock() { e.mu.Lock() }
func (e *OpSerialExecutor) Unlock() { e.mu.Unlock() }

// TryLock attempts to acquire without blocking.
func (e *OpSerialExecutor) TryLock() bool {
	return e.mu.TryLock()
}

// FlushScheduler returns the scheduler this executor submits flushes on.
func (e *OpSerialExecutor) FlushScheduler() flush.Scheduler {
	return e.flushScheduler
}
