// Package metaclient implements the meta-service collaborator declared as
// cluster.MetaClient: a gRPC production client and an in-memory test double,
// following the common convention of shipping a fake alongside a production
// collaborator for tests that would otherwise need a live meta service.
package metaclient

import (
	"context"
	"sync"

	"github.com/aetherdb/engine/cluster"
	"github.com/aetherdb/engine/errors"
)

// Fake is an in-memory cluster.MetaClient for tests: callers seed
// TablesOfShards and Nodes directly and can inspect recorded heartbeats.
type Fake struct {
	mu sync.Mutex
	TablesOfShards map[uint64]cluster.TablesOfShard
	Nodes cluster.GetNodesResponse
	Heartbeats [][]cluster.ShardInfo
}

func NewFake() *Fake {
	return &Fake{TablesOfShards: make(map[uint64]cluster.TablesOfShard)}
}

func (f *Fake) SendHeartbeat(_ context.Context, shards []cluster.ShardInfo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Heartbeats = append(f.Heartbeats, shards)
	return nil
}

func (f *Fake) GetTablesOfShards(_ context.Context, shardIDs []uint64) (map[uint64]cluster.TablesOfShard, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[uint64]cluster.TablesOfShard, len(shardIDs))
	for _, id := range shardIDs {
		t, ok := f.TablesOfShards[id]
		if !ok {
			return nil, errors.NewShardNotFound("fake meta client has no entry for shard")
		}
		out[id] = t
	}
	return out, nil
}

func (f *Fake) GetNodes(_ context.Context, _ cluster.GetNodesRequest) (cluster.GetNodesResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Nodes, nil
}

func (f *Fake) RouteTables(_ context.Context, req cluster.RouteTablesRequest) (cluster.RouteTablesResponse, error) {
	return cluster.RouteTablesResponse{}, nil
}
