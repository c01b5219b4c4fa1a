// Command engine is the aetherdb table-engine process entrypoint: it loads
// configuration, opens the local pebble stores, wires the cluster facade,
// WAL manager, flush worker pool and table instance together, then blocks
// until an operator or signal stops it. Follows a cmd-as-thin-wiring-layer
// convention with an explicit Start/Stop lifecycle, using
// github.com/spf13/cobra for flag parsing the way fenilsonani-vcs's cmd/
// package does.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/cockroachdb/pebble"
	"github.com/spf13/cobra"
	clientv3 "go.etcd.io/etcd/client/v3"

	log "github.com/sirupsen/logrus"

	"github.com/aetherdb/engine/cluster"
	"github.com/aetherdb/engine/conf"
	"github.com/aetherdb/engine/flush"
	"github.com/aetherdb/engine/metaclient"
	"github.com/aetherdb/engine/shardlock"
	"github.com/aetherdb/engine/table"
	"github.com/aetherdb/engine/wal"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.WithError(err).Fatal("engine exited with error")
	}
}

func newRootCmd() *cobra.Command {
	cfg := conf.DefaultConfig()
	var metaAddr string
	var useRaftWAL bool

	cmd := &cobra.Command{
		Use: "engine",
		Short: "aetherdb table engine process",
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(cfg, metaAddr, useRaftWAL)
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&cfg.NodeID, "node-id", cfg.NodeID, "this node's id within the raft/etcd cluster")
	flags.StringVar(&cfg.DataDir, "data-dir", "data", "local directory for pebble stores and raft state")
	flags.StringSliceVar(&cfg.RaftAddresses, "raft-addresses", nil, "raft address of every node, indexed by node id")
	flags.IntVar(&cfg.NumShards, "num-shards", cfg.NumShards, "number of shards")
	flags.IntVar(&cfg.ReplicationFactor, "replication-factor", cfg.ReplicationFactor, "shard replication factor")
	flags.Uint64Var(&cfg.ClusterID, "cluster-id", cfg.ClusterID, "dragonboat deployment id")
	flags.StringSliceVar(&cfg.EtcdEndpoints, "etcd-endpoints", nil, "etcd endpoints backing the shard lock manager")
	flags.StringVar(&cfg.EtcdRootPath, "etcd-root-path", "/aetherdb", "etcd root path for shard locks")
	flags.StringVar(&cfg.EtcdClusterName, "etcd-cluster-name", "default", "cluster name under the etcd root path")
	flags.DurationVar(&cfg.MetaClientLease, "meta-lease", cfg.MetaClientLease, "heartbeat lease duration")
	flags.IntVar(&cfg.FlushWorkerCount, "flush-workers", cfg.FlushWorkerCount, "flush worker pool size")
	flags.StringVar(&metaAddr, "meta-addr", "", "meta service gRPC address; empty uses an in-memory fake for local runs")
	flags.BoolVar(&useRaftWAL, "raft-wal", false, "replicate the WAL through a raft group per shard instead of local pebble only")

	return cmd
}

// engine owns every long-lived handle the process holds and exposes an
// explicit Start/Stop lifecycle.
type engine struct {
	localPebble *pebble.DB
	walManager wal.Manager
	raftWAL *wal.RaftManager
	flushPool *flush.WorkerPool
	etcdClient *clientv3.Client
	lockMgr *shardlock.Manager
	metaClient cluster.MetaClient
	grpcClient *metaclient.GRPCClient
	facade *cluster.Facade
	instance *table.Instance
}

func run(cfg conf.Config, metaAddr string, useRaftWAL bool) error {
	e, err := newEngine(cfg, metaAddr, useRaftWAL)
	if err != nil {
		return err
	}
	if err := e.Start(cfg); err != nil {
		return err
	}
	defer e.Stop()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	<-ctx.Done()
	log.Info("shutdown signal received")
	return nil
}

func newEngine(cfg conf.Config, metaAddr string, useRaftWAL bool) (*engine, error) {
	e := &engine{}

	segDir := filepath.Join(cfg.DataDir, fmt.Sprintf("node-%d", cfg.NodeID), "segments")
	if err := os.MkdirAll(segDir, 0o750); err != nil {
		return nil, err
	}
	localDB, err := pebble.Open(segDir, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	e.localPebble = localDB

	if useRaftWAL {
		rm, err := wal.NewRaftManager(wal.RaftManagerConfig{
			NodeID: cfg.NodeID,
			RaftAddresses: cfg.RaftAddresses,
			DataDir: cfg.DataDir,
			ClusterID: cfg.ClusterID,
			NumShards: cfg.NumShards,
			ReplicationFactor: cfg.ReplicationFactor,
			DataSnapshotEntries: cfg.DataSnapshotEntries,
			DataCompactionOverhead: cfg.DataCompactionOverhead,
		})
		if err != nil {
			return nil, err
		}
		e.raftWAL = rm
		e.walManager = rm
	} else {
		walDB, err := pebble.Open(filepath.Join(cfg.DataDir, fmt.Sprintf("node-%d", cfg.NodeID), "wal"), &pebble.Options{})
		if err != nil {
			return nil, err
		}
		e.walManager = wal.NewPebbleManager(walDB, 100)
	}

	segmentWriter := flush.NewPebbleSegmentWriter(localDB)
	e.flushPool = flush.NewWorkerPool(cfg.FlushWorkerCount, segmentWriter)

	if metaAddr != "" {
		grpcClient, err := metaclient.Dial(metaAddr)
		if err != nil {
			return nil, err
		}
		e.grpcClient = grpcClient
		e.metaClient = grpcClient
	} else {
		log.Warn("no --meta-addr given, using an in-memory fake meta client (single-node/demo mode only)")
		e.metaClient = metaclient.NewFake()
	}

	if len(cfg.EtcdEndpoints) > 0 {
		etcdClient, err := clientv3.New(clientv3.Config{
			Endpoints: cfg.EtcdEndpoints,
			DialTimeout: cfg.EtcdRPCTimeout,
		})
		if err != nil {
			return nil, err
		}
		e.etcdClient = etcdClient

		lockMgr, err := shardlock.NewManager(etcdClient, cfg.EtcdRootPath, cfg.EtcdClusterName, cfg.EtcdShardLockLeaseTTLSec, cfg.EtcdRPCTimeout)
		if err != nil {
			return nil, err
		}
		e.lockMgr = lockMgr
	}

	var lockManager cluster.ShardLockManager
	if e.lockMgr != nil {
		lockManager = e.lockMgr
	}
	facade, err := cluster.NewFacade(cfg.EtcdClusterName, cfg.EtcdRootPath, e.metaClient, lockManager, cfg.MetaClientLease)
	if err != nil {
		return nil, err
	}
	e.facade = facade

	e.instance = table.NewInstance(e.walManager, e.flushPool, cfg.DbWriteBufferSize, cfg.MaxBytesPerWriteBatch, cfg.MaxRetryFlushLimit)

	return e, nil
}

func (e *engine) Start(cfg conf.Config) error {
	if e.raftWAL != nil {
		if err := e.raftWAL.Start(); err != nil {
			return err
		}
		for i := 0; i < cfg.NumShards; i++ {
			shardID := uint64(i)
			replicas := replicaNodesForShard(i, cfg.NumShards, cfg.ReplicationFactor, len(cfg.RaftAddresses))
			if !containsInt(replicas, cfg.NodeID) {
				continue
			}
			if err := e.raftWAL.JoinShardGroup(shardID, replicas); err != nil {
				return err
			}
		}
	}
	e.facade.Start()
	log.WithField("node_id", cfg.NodeID).Info("engine started")
	return nil
}

func (e *engine) Stop() {
	e.facade.Stop()
	e.flushPool.Stop()
	if e.raftWAL != nil {
		if err := e.raftWAL.Stop(); err != nil {
			log.WithError(err).Warn("error stopping raft wal manager")
		}
	}
	if e.grpcClient != nil {
		if err := e.grpcClient.Close(); err != nil {
			log.WithError(err).Warn("error closing meta client connection")
		}
	}
	if e.etcdClient != nil {
		if err := e.etcdClient.Close(); err != nil {
			log.WithError(err).Warn("error closing etcd client")
		}
	}
	if e.localPebble != nil {
		if err := e.localPebble.Close(); err != nil {
			log.WithError(err).Warn("error closing local pebble store")
		}
	}
	log.Info("engine stopped")
}

// replicaNodesForShard assigns shard i to replicationFactor nodes starting
// at node i, wrapping around the node set.
func replicaNodesForShard(shardIndex, _ int, replicationFactor, numNodes int) []int {
	if numNodes == 0 {
		return nil
	}
	nodes := make([]int, replicationFactor)
	for j := 0; j < replicationFactor; j++ {
		nodes[j] = (shardIndex + j) % numNodes
	}
	return nodes
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
