// Package cluster implements the shard/table membership cache and the
// facade that translates external shard-lifecycle events into it, grounded
// on original_source/cluster/src/cluster_impl.rs for the cache semantics
// and shaped as a cluster-facing component generally is in this codebase:
// a mutex-guarded handle, a start/stop heartbeat goroutine, a topology
// cache behind a RWMutex.
package cluster

// ShardRole distinguishes the leader replica of a shard from its followers.
type ShardRole int

const (
	ShardRoleFollower ShardRole = iota
	ShardRoleLeader
)

// ShardInfo identifies a shard and its membership version. Version is
// monotone per shard id and must never decrease.
type ShardInfo struct {
	ShardID uint64
	Version uint64
	Role ShardRole
}

// TableInfo is the subset of table metadata the cluster layer cares about:
// enough to recognize which table a lifecycle event refers to.
type TableInfo struct {
	ID uint64
	Name string
	SchemaID uint64
}

// TablesOfShard is one ShardTablesCache entry: a shard and the tables
// currently assigned to it on this node.
type TablesOfShard struct {
	ShardInfo ShardInfo
	Tables []TableInfo
}

func (t TablesOfShard) withTable(info TableInfo) TablesOfShard {
	tables := make([]TableInfo, len(t.Tables), len(t.Tables)+1)
	copy(tables, t.Tables)
	tables = append(tables, info)
	return TablesOfShard{ShardInfo: t.ShardInfo, Tables: tables}
}

func (t TablesOfShard) withoutTable(id uint64) TablesOfShard {
	tables := make([]TableInfo, 0, len(t.Tables))
	for _, tbl := range t.Tables {
		if tbl.ID != id {
			tables = append(tables, tbl)
		}
	}
	return TablesOfShard{ShardInfo: t.ShardInfo, Tables: tables}
}
