package table

import (
	"sync"

	"github.com/aetherdb/engine/flush"
	"github.com/aetherdb/engine/wal"
)

// Instance is the process-wide engine handle: it owns the WAL manager,
// every Space, the flush scheduler, and global config. Constructed at
// engine start, stopped at engine stop.
type Instance struct {
	WalManager wal.Manager
	FlushScheduler flush.Scheduler
	DbWriteBufferSize uint64
	MaxBytesPerWriteBatch *uint64
	MaxRetryFlushLimit int

	mu sync.RWMutex
	spaces map[uint64]*Space
}

func NewInstance(walManager wal.Manager, scheduler flush.Scheduler, dbWriteBufferSize uint64, maxBytesPerWriteBatch *uint64, maxRetryFlushLimit int) *Instance {
	return &Instance{
		WalManager: walManager,
		FlushScheduler: scheduler,
		DbWriteBufferSize: dbWriteBufferSize,
		MaxBytesPerWriteBatch: maxBytesPerWriteBatch,
		MaxRetryFlushLimit: maxRetryFlushLimit,
		spaces: make(map[uint64]*Space),
	}
}

func (i *Instance) AddSpace(s *Space) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.spaces[s.ID] = s
}

func (i *Instance) Space(id uint64) (*Space, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	s, ok := i.spaces[id]
	return s, ok
}

// MemtableMemoryUsage sums memtable memory across every space.
func (i *Instance) MemtableMemoryUsage() uint64 {
	i.mu.RLock()
	defer i.mu.RUnlock()
	var total uint64
	for _, s := range i.spaces {
		total += s.MemtableMemoryUsage()
	}
	return total
}

// ShouldFlushInstance reports whether global memtable memory exceeds
// DbWriteBufferSize.
func (i *Instance) ShouldFlushInstance() bool {
	if i.DbWriteBufferSize == 0 {
		return false
	}
	return i.MemtableMemoryUsage() >= i.DbWriteBufferSize
}

// MaxUsageSpace returns the space with the highest memtable memory usage.
func (i *Instance) MaxUsageSpace() *Space {
	i.mu.RLock()
	defer i.mu.RUnlock()
	var max *Space
	var maxUsage uint64
	for _, s := range i.spaces {
		usage := s.MemtableMemoryUsage()
		if max == nil || usage > maxUsage {
			max = s
			maxUsage = usage
		}
	}
	return max
}
