package cluster

import "sync"

// topology caches the most recently fetched node/shard layout, guarded by a
// readers-writer lock per ("Topology cache. Guarded by a readers-writer
// lock").
type topology struct {
	mu sync.RWMutex
	version uint64
	nodes []NodeShard
}

func newTopology() *topology {
	return &topology{}
}

func (t *topology) snapshot() (uint64, []NodeShard) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.version, t.nodes
}

// maybeUpdate replaces the cached topology iff version strictly increased,
// returning whether it did.
func (t *topology) maybeUpdate(nodes []NodeShard, version uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if version <= t.version {
		return false
	}
	t.version = version
	t.nodes = nodes
	return true
}
