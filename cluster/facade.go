package cluster

import (
	"context"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/aetherdb/engine/errors"
)

// UpdateShardInfo carries the optimistic-concurrency fields every shard
// lifecycle RPC needs: the version the caller last observed, and the shard
// info to install if that version still matches.
type UpdateShardInfo struct {
	PrevVersion uint64
	CurrShardInfo ShardInfo
}

type OpenTableOnShardRequest struct {
	UpdateShardInfo UpdateShardInfo
	TableInfo TableInfo
}

type CloseTableOnShardRequest struct {
	UpdateShardInfo UpdateShardInfo
	TableInfo TableInfo
}

type CreateTableOnShardRequest struct {
	UpdateShardInfo UpdateShardInfo
	TableInfo TableInfo
}

type DropTableOnShardRequest struct {
	UpdateShardInfo UpdateShardInfo
	TableInfo TableInfo
}

type OpenShardRequest struct {
	ShardInfo ShardInfo
}

type CloseShardRequest struct {
	ShardID uint64
}

type FreezeShardRequest struct {
	ShardID uint64
}

// shardLockKeyPrefix enforces the construction precondition: root must
// start with '/', clusterName must be non-empty.
func shardLockKeyPrefix(rootPath, clusterName string) (string, error) {
	if !strings.HasPrefix(rootPath, "/") {
		return "", errors.NewInvalidArguments("etcd root path must start with '/': " + rootPath)
	}
	if clusterName == "" {
		return "", errors.NewInvalidArguments("cluster name must be non-empty")
	}
	return rootPath + "/" + clusterName + "/shards", nil
}

// Facade translates external shard-lifecycle events into ShardTablesCache
// mutations and runs the periodic heartbeat. Grounded on
// cluster/dragon/dragon.go's Dragon struct — a mutex-guarded handle wrapping
// a remote collaborator (there: a dragonboat NodeHost; here: a MetaClient)
// plus a start/stop goroutine lifecycle.
type Facade struct {
	clusterName string
	lockKeyPrefix string

	cache *ShardTablesCache
	metaClient MetaClient
	lockManager ShardLockManager
	topology *topology

	lease heartbeatLease

	hb *heartbeat
}

// NewFacade validates construction preconditions and wires the cache, meta
// client and lock manager together. lease is the lease duration negotiated
// with the meta service.
func NewFacade(clusterName, etcdRootPath string, metaClient MetaClient, lockManager ShardLockManager, lease time.Duration) (*Facade, error) {
	prefix, err := shardLockKeyPrefix(etcdRootPath, clusterName)
	if err != nil {
		return nil, err
	}
	hl := heartbeatLease(lease)
	f := &Facade{
		clusterName: clusterName,
		lockKeyPrefix: prefix,
		cache: NewShardTablesCache(),
		metaClient: metaClient,
		lockManager: lockManager,
		topology: newTopology(),
		lease: hl,
	}
	f.hb = newHeartbeat(f.cache, metaClient, hl)
	return f, nil
}

// ShardLockKeyPrefix exposes the validated prefix for diagnostics and tests.
func (f *Facade) ShardLockKeyPrefix() string { return f.lockKeyPrefix }

// OpenShard applies the upsert rule: same (id, version) already
// cached is a no-op; lower version is an error; higher version (or a miss)
// refreshes the cache from the meta service.
func (f *Facade) OpenShard(ctx context.Context, req OpenShardRequest) error {
	info := req.ShardInfo
	if cached, ok := f.cache.Get(info.ShardID); ok {
		switch {
		case cached.ShardInfo.Version == info.Version:
			return nil
		case cached.ShardInfo.Version > info.Version:
			return errors.NewOpenShard(info.ShardID, "stale version: cached is newer")
		}
	}

	fetched, err := f.metaClient.GetTablesOfShards(ctx, []uint64{info.ShardID})
	if err != nil {
		return errors.NewOpenShardWithCause(info.ShardID, err)
	}
	tables, ok := fetched[info.ShardID]
	if !ok {
		return errors.NewOpenShard(info.ShardID, "meta service did not return the requested shard")
	}
	f.cache.Insert(tables)
	return nil
}

func (f *Facade) CloseShard(_ context.Context, req CloseShardRequest) error {
	_, err := f.cache.Remove(req.ShardID)
	return err
}

func (f *Facade) FreezeShard(_ context.Context, req FreezeShardRequest) error {
	return f.cache.Freeze(req.ShardID)
}

func (f *Facade) OpenTableOnShard(_ context.Context, req OpenTableOnShardRequest) error {
	return f.cache.TryInsertTableToShard(req.UpdateShardInfo.PrevVersion, req.UpdateShardInfo.CurrShardInfo, req.TableInfo)
}

func (f *Facade) CreateTableOnShard(_ context.Context, req CreateTableOnShardRequest) error {
	return f.cache.TryInsertTableToShard(req.UpdateShardInfo.PrevVersion, req.UpdateShardInfo.CurrShardInfo, req.TableInfo)
}

func (f *Facade) CloseTableOnShard(_ context.Context, req CloseTableOnShardRequest) error {
	return f.cache.TryRemoveTableFromShard(req.UpdateShardInfo.PrevVersion, req.UpdateShardInfo.CurrShardInfo, req.TableInfo)
}

func (f *Facade) DropTableOnShard(_ context.Context, req DropTableOnShardRequest) error {
	return f.cache.TryRemoveTableFromShard(req.UpdateShardInfo.PrevVersion, req.UpdateShardInfo.CurrShardInfo, req.TableInfo)
}

func (f *Facade) RouteTables(ctx context.Context, req RouteTablesRequest) (RouteTablesResponse, error) {
	return f.metaClient.RouteTables(ctx, req)
}

// FetchNodes forwards to the meta service and caches the result, returning
// the previously cached topology if the fetched version did not advance.
func (f *Facade) FetchNodes(ctx context.Context) (GetNodesResponse, error) {
	resp, err := f.metaClient.GetNodes(ctx, GetNodesRequest{ClusterName: f.clusterName})
	if err != nil {
		return GetNodesResponse{}, err
	}
	if f.topology.maybeUpdate(resp.NodeShards, resp.ClusterTopologyVersion) {
		return resp, nil
	}
	version, nodes := f.topology.snapshot()
	return GetNodesResponse{ClusterTopologyVersion: version, NodeShards: nodes}, nil
}

// Start spawns the heartbeat goroutine.
func (f *Facade) Start() {
	f.hb.start()
	log.WithField("cluster", f.clusterName).Info("cluster facade started")
}

// Stop signals the heartbeat goroutine and waits for it to exit.
func (f *Facade) Stop() {
	f.hb.stop()
	log.WithField("cluster", f.clusterName).Info("cluster facade stopped")
}
