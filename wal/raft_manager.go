// RaftManager replicates log appends across a Raft group per shard instead
// of relying on a single node's pebble durability. The
// NodeHost setup, per-cluster join loop, propose-with-retry-on-
// ErrClusterNotReady, and the "first shard access gets a long timeout to
// allow quorum to form" behavior are kept in dragonboat's own idiomatic
// shape, trimmed down to the one command this module needs (append a WAL
// batch) instead of a general KV write/delete-range/forwarding/lookup
// command set.
package wal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/lni/dragonboat/v3"
	"github.com/lni/dragonboat/v3/config"
	"github.com/lni/dragonboat/v3/logger"
	"github.com/lni/dragonboat/v3/statemachine"
	log "github.com/sirupsen/logrus"

	"github.com/aetherdb/engine/errors"
)

const (
	dragonCallTimeout = 10 * time.Second
	initialShardTimeout = 15 * time.Minute
	retryDelay = 100 * time.Millisecond
)

func init() {
	logger.GetLogger("dragonboat").SetLevel(logger.ERROR)
	logger.GetLogger("raft").SetLevel(logger.ERROR)
	logger.GetLogger("rsm").SetLevel(logger.ERROR)
	logger.GetLogger("transport").SetLevel(logger.CRITICAL)
	logger.GetLogger("grpc").SetLevel(logger.ERROR)
}

// RaftManager is a Manager whose appends are committed through a Raft group,
// one group per WAL location's shard, before being considered durable. Each
// group's replicated state is an on-disk pebble store holding the appended
// payloads plus the sequence counter that assigns them - see raft_statemachine.go.
type RaftManager struct {
	nodeID int
	raftAddresses []string
	clusterIDBase uint64
	replicationFact int
	dataDir string
	snapshotEntries uint64
	compactOverhead uint64

	mu sync.RWMutex
	nh *dragonboat.NodeHost
	localPebble *pebble.DB
	firstAccess sync.Map
	joinedClusterIDs map[uint64]bool
	clusterReplicaOf map[uint64][]int
}

// RaftManagerConfig is the subset of conf.Config a RaftManager needs.
type RaftManagerConfig struct {
	NodeID int
	RaftAddresses []string
	DataDir string
	ClusterID uint64
	NumShards int
	ReplicationFactor int
	DataSnapshotEntries uint64
	DataCompactionOverhead uint64
}

func NewRaftManager(cfg RaftManagerConfig) (*RaftManager, error) {
	if len(cfg.RaftAddresses) < 3 {
		return nil, errors.Errorf("raft wal manager requires at least 3 nodes, got %d", len(cfg.RaftAddresses))
	}
	return &RaftManager{
		nodeID: cfg.NodeID,
		raftAddresses: cfg.RaftAddresses,
		clusterIDBase: cfg.ClusterID,
		replicationFact: cfg.ReplicationFactor,
		dataDir: cfg.DataDir,
		snapshotEntries: cfg.DataSnapshotEntries,
		compactOverhead: cfg.DataCompactionOverhead,
		joinedClusterIDs: make(map[uint64]bool),
		clusterReplicaOf: make(map[uint64][]int),
	}, nil
}

func (r *RaftManager) Start() error {
	nodeDir := filepath.Join(r.dataDir, fmt.Sprintf("node-%d", r.nodeID))
	pebbleDir := filepath.Join(nodeDir, "wal-pebble")
	if err := os.MkdirAll(pebbleDir, 0o750); err != nil {
		return errors.WithStack(err)
	}
	db, err := pebble.Open(pebbleDir, &pebble.Options{})
	if err != nil {
		return errors.WithStack(err)
	}
	r.localPebble = db

	nhc := config.NodeHostConfig{
		DeploymentID: r.clusterIDBase,
		WALDir: filepath.Join(nodeDir, "raft"),
		NodeHostDir: filepath.Join(nodeDir, "raft"),
		RTTMillisecond: 200,
		RaftAddress: r.raftAddresses[r.nodeID],
	}
	nh, err := dragonboat.NewNodeHost(nhc)
	if err != nil {
		return errors.WithStack(err)
	}
	r.nh = nh
	return nil
}

func (r *RaftManager) Stop() error {
	if r.nh != nil {
		r.nh.Stop()
	}
	if r.localPebble != nil {
		return errors.WithStack(r.localPebble.Close())
	}
	return nil
}

// JoinShardGroup starts (or joins) the Raft group backing shardID, replicated
// across replicaNodeIDs. Every node holding a replica of a shard must call
// this with the same replicaNodeIDs before that shard accepts writes.
func (r *RaftManager) JoinShardGroup(shardID uint64, replicaNodeIDs []int) error {
	clusterID := r.clusterIDBase + shardID

	r.mu.Lock()
	if r.joinedClusterIDs[clusterID] {
		r.mu.Unlock()
		return nil
	}
	r.clusterReplicaOf[clusterID] = replicaNodeIDs
	r.mu.Unlock()

	rc := config.Config{
		NodeID: uint64(r.nodeID + 1),
		ElectionRTT: 10,
		HeartbeatRTT: 1,
		CheckQuorum: true,
		ClusterID: clusterID,
		SnapshotEntries: r.snapshotEntries,
		CompactionOverhead: r.compactOverhead,
	}
	initialMembers := make(map[uint64]string)
	for _, nid := range replicaNodeIDs {
		initialMembers[uint64(nid+1)] = r.raftAddresses[nid]
	}
	createSM := func(_ uint64, _ uint64) statemachine.IOnDiskStateMachine {
		return newWalStateMachine(r.localPebble, shardID)
	}
	if err := r.nh.StartOnDiskCluster(initialMembers, false, createSM, rc); err != nil {
		return errors.WithStack(err)
	}

	r.mu.Lock()
	r.joinedClusterIDs[clusterID] = true
	r.mu.Unlock()

	// Make sure the group has a quorum before returning, same as dragon.go's
	// startup ping lookups.
	return r.executePingLookup(clusterID)
}

func (r *RaftManager) executePingLookup(clusterID uint64) error {
	_, err := r.executeWithRetry(clusterID, func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeoutFor(clusterID))
		defer cancel()
		return r.nh.SyncRead(ctx, clusterID, []byte{walLookupPing})
	})
	return err
}

func (r *RaftManager) Write(ctx context.Context, batch LogBatch) (SequenceNumber, error) {
	clusterID := r.clusterIDBase + batch.Location.ShardInfo.ShardID
	cmd := encodeWalProposeCmd(batch.Payload)
	cs := r.nh.GetNoOPSession(clusterID)

	res, err := r.executeWithRetry(clusterID, func() (interface{}, error) {
		innerCtx, cancel := context.WithTimeout(ctx, r.timeoutFor(clusterID))
		defer cancel()
		return r.nh.SyncPropose(innerCtx, cs, cmd)
	})
	if err != nil {
		return 0, errors.WithStack(err)
	}
	smRes, ok := res.(statemachine.Result)
	if !ok {
		return 0, errors.Errorf("unexpected raft propose result type %T", res)
	}
	return SequenceNumber(smRes.Value), nil
}

func (r *RaftManager) GetStatistics() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return fmt.Sprintf("raft wal manager: %d joined shard groups", len(r.joinedClusterIDs))
}

func (r *RaftManager) timeoutFor(clusterID uint64) time.Duration {
	_, seen := r.firstAccess.LoadOrStore(clusterID, struct{}{})
	if !seen {
		return initialShardTimeout
	}
	return dragonCallTimeout
}

// executeWithRetry retries on ErrClusterNotReady, the same transient state a
// freshly-joined Raft group returns before it has elected a leader. See
// https://github.com/lni/dragonboat/issues/183, referenced in dragon.go.
func (r *RaftManager) executeWithRetry(clusterID uint64, f func() (interface{}, error)) (interface{}, error) {
	deadline := time.Now().Add(r.timeoutFor(clusterID))
	for {
		res, err := f()
		if err == nil {
			return res, nil
		}
		if err != dragonboat.ErrClusterNotReady {
			return nil, err
		}
		if time.Now().After(deadline) {
			return nil, err
		}
		log.WithField("cluster_id", clusterID).Debug("raft cluster not ready, retrying")
		time.Sleep(retryDelay)
	}
}
