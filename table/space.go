package table

import "sync"

// Space is a logical grouping of TableData — a tenant or database — tracking
// aggregate memtable memory against a configured write_buffer_size.
type Space struct {
	ID uint64
	Name string
	WriteBufferSize uint64

	mu sync.RWMutex
	tables map[uint64]*Data
}

func NewSpace(id uint64, name string, writeBufferSize uint64) *Space {
	return &Space{ID: id, Name: name, WriteBufferSize: writeBufferSize, tables: make(map[uint64]*Data)}
}

func (s *Space) AddTable(t *Data) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[t.ID()] = t
}

func (s *Space) RemoveTable(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tables, id)
}

func (s *Space) Table(id uint64) (*Data, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[id]
	return t, ok
}

// MemtableMemoryUsage sums memtable memory across every table in the space.
func (s *Space) MemtableMemoryUsage() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total uint64
	for _, t := range s.tables {
		total += t.MemtableMemoryUsage()
	}
	return total
}

// ShouldFlushSpace reports whether the space's aggregate memtable memory
// exceeds WriteBufferSize.
func (s *Space) ShouldFlushSpace() bool {
	if s.WriteBufferSize == 0 {
		return false
	}
	return s.MemtableMemoryUsage() >= s.WriteBufferSize
}

// MaxUsageTable returns the table in this space with the highest memtable
// memory usage, or nil if the space has no tables.
func (s *Space) MaxUsageTable() *Data {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var max *Data
	var maxUsage uint64
	for _, t := range s.tables {
		usage := t.MemtableMemoryUsage()
		if max == nil || usage > maxUsage {
			max = t
			maxUsage = usage
		}
	}
	return max
}
