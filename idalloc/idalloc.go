// Package idalloc hands out monotonic uint64 IDs, persisting a new ceiling
// every step allocations so that a restart never reuses an ID that might
// already have escaped to a durable record. Grounded on
// original_source/common_util/src/id_allocator.rs, ported from the tokio
// RwLock-guarded allocator to a sync.Mutex-guarded handle, the shape used
// throughout this codebase for state owned by one goroutine at a time.
package idalloc

import (
	"sync"

	"github.com/aetherdb/engine/errors"
)

// PersistFunc durably records a new ceiling. It must not return success
// unless the value is safely recorded; the allocator will not hand out IDs
// above the last successfully persisted ceiling.
type PersistFunc func(nextMaxID uint64) error

// Allocator hands out strictly increasing uint64 IDs. At most one Alloc call
// may be in flight at a time; it serializes internally.
type Allocator struct {
	mu sync.Mutex
	lastID uint64
	maxID uint64
	step uint64
}

// New constructs an Allocator. step must be > 0.
func New(lastID, maxID, step uint64) *Allocator {
	if step == 0 {
		panic("idalloc: step must be > 0")
	}
	return &Allocator{lastID: lastID, maxID: maxID, step: step}
}

// Alloc returns the next ID. When the in-memory ceiling is exhausted it calls
// persist with a new ceiling (lastID + step) and only advances state if
// persist succeeds; on failure the allocator's state is unchanged and the
// error is returned for the caller to retry.
func (a *Allocator) Alloc(persist PersistFunc) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.lastID < a.maxID {
		a.lastID++
		return a.lastID, nil
	}

	nextMaxID := a.lastID + a.step
	if err := persist(nextMaxID); err != nil {
		return 0, errors.WithStack(err)
	}

	a.maxID = nextMaxID
	a.lastID++
	return a.lastID, nil
}
