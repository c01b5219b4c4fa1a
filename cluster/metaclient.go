package cluster

import "context"

// MetaClient is the meta-service collaborator. Defined here, consumed
// by Facade, and implemented out-of-package by metaclient.GRPCClient (real)
// and metaclient.Fake (test double) — the interface lives with its
// consumer, following the convention of small collaborator interfaces
// declared next to the code that calls them.
type MetaClient interface {
	SendHeartbeat(ctx context.Context, shards []ShardInfo) error
	GetTablesOfShards(ctx context.Context, shardIDs []uint64) (map[uint64]TablesOfShard, error)
	GetNodes(ctx context.Context, req GetNodesRequest) (GetNodesResponse, error)
	RouteTables(ctx context.Context, req RouteTablesRequest) (RouteTablesResponse, error)
}

type NodeShard struct {
	NodeAddr string
	Shards []ShardInfo
}

type GetNodesRequest struct {
	ClusterName string
}

type GetNodesResponse struct {
	ClusterTopologyVersion uint64
	NodeShards []NodeShard
}

type RouteTablesRequest struct {
	SchemaName string
	TableNames []string
}

type RouteEntry struct {
	Table TableInfo
	Node string
}

type RouteTablesResponse struct {
	ClusterTopologyVersion uint64
	Entries []RouteEntry
}

// ShardLockManager is the etcd-backed shard lock collaborator. Implemented by
// shardlock.Manager.
type ShardLockManager interface {
	TryLock(ctx context.Context, shardID uint64) (bool, error)
	Unlock(ctx context.Context, shardID uint64) error
}
