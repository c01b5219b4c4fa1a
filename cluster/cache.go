package cluster

import (
	"strconv"
	"sync"

	"github.com/aetherdb/engine/errors"
)

type shardEntry struct {
	tablesOfShard TablesOfShard
	frozen bool
}

// ShardTablesCache is the versioned shard → tables mapping. Reads are
// lock-free snapshots taken under a brief read lock; mutations (insert,
// remove, freeze, try_insert/try_remove) take the exclusive lock for the
// duration of their version check plus mutation.
type ShardTablesCache struct {
	mu sync.RWMutex
	entries map[uint64]shardEntry
}

func NewShardTablesCache() *ShardTablesCache {
	return &ShardTablesCache{entries: make(map[uint64]shardEntry)}
}

// Get returns a snapshot of the shard's current TablesOfShard, if present.
func (c *ShardTablesCache) Get(shardID uint64) (TablesOfShard, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[shardID]
	if !ok {
		return TablesOfShard{}, false
	}
	return e.tablesOfShard, true
}

// Insert replaces any prior entry for tables.ShardInfo.ShardID. The new
// entry starts unfrozen.
func (c *ShardTablesCache) Insert(tables TablesOfShard) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[tables.ShardInfo.ShardID] = shardEntry{tablesOfShard: tables}
}

// Remove deletes and returns the shard's entry. Errors if absent.
func (c *ShardTablesCache) Remove(shardID uint64) (TablesOfShard, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[shardID]
	if !ok {
		return TablesOfShard{}, errors.NewShardNotFound(shardNotFoundMsg(shardID))
	}
	delete(c.entries, shardID)
	return e.tablesOfShard, nil
}

// Freeze marks a shard frozen; subsequent try_insert/try_remove calls on it
// fail until the entry is replaced via Insert.
func (c *ShardTablesCache) Freeze(shardID uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[shardID]
	if !ok {
		return errors.NewShardNotFound(shardNotFoundMsg(shardID))
	}
	e.frozen = true
	c.entries[shardID] = e
	return nil
}

// TryInsertTableToShard atomically validates prevVersion against the cached
// shard_info.version, checks the shard is not frozen, and if both hold,
// replaces shard_info with newShardInfo and adds tableInfo.
func (c *ShardTablesCache) TryInsertTableToShard(prevVersion uint64, newShardInfo ShardInfo, tableInfo TableInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[newShardInfo.ShardID]
	if !ok {
		return errors.NewShardNotFound(shardNotFoundMsg(newShardInfo.ShardID))
	}
	if e.frozen {
		return errors.NewInternal(frozenMsg(newShardInfo.ShardID))
	}
	if e.tablesOfShard.ShardInfo.Version != prevVersion {
		return errors.NewInternal(versionMismatchMsg(newShardInfo.ShardID, prevVersion, e.tablesOfShard.ShardInfo.Version))
	}
	e.tablesOfShard = TablesOfShard{ShardInfo: newShardInfo, Tables: e.tablesOfShard.Tables}.withTable(tableInfo)
	c.entries[newShardInfo.ShardID] = e
	return nil
}

// TryRemoveTableFromShard is the removal counterpart of TryInsertTableToShard
// with identical preconditions.
func (c *ShardTablesCache) TryRemoveTableFromShard(prevVersion uint64, newShardInfo ShardInfo, tableInfo TableInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[newShardInfo.ShardID]
	if !ok {
		return errors.NewShardNotFound(shardNotFoundMsg(newShardInfo.ShardID))
	}
	if e.frozen {
		return errors.NewInternal(frozenMsg(newShardInfo.ShardID))
	}
	if e.tablesOfShard.ShardInfo.Version != prevVersion {
		return errors.NewInternal(versionMismatchMsg(newShardInfo.ShardID, prevVersion, e.tablesOfShard.ShardInfo.Version))
	}
	e.tablesOfShard = TablesOfShard{ShardInfo: newShardInfo, Tables: e.tablesOfShard.Tables}.withoutTable(tableInfo.ID)
	c.entries[newShardInfo.ShardID] = e
	return nil
}

func shardNotFoundMsg(id uint64) string {
	return "shard not found in cache: " + strconv.FormatUint(id, 10)
}

func frozenMsg(id uint64) string {
	return "shard is frozen: " + strconv.FormatUint(id, 10)
}

func versionMismatchMsg(id, want, have uint64) string {
	return "shard version mismatch: shard=" + strconv.FormatUint(id, 10) +
		" expected_prev=" + strconv.FormatUint(want, 10) +
		" actual=" + strconv.FormatUint(have, 10)
}
