// Package conf holds the engine's recognized configuration options.
package conf

import "time"

// Config is the process-wide configuration handle, passed explicitly rather
// than read from ambient global state (instances are constructed once at
// startup and threaded through).
type Config struct {
	NodeID int

	// Instance-level write path options.
	MaxBytesPerWriteBatch *uint64 // nil disables RowGroupSplitter
	DbWriteBufferSize uint64 // global memtable memory cap
	MaxRetryFlushLimit int

	// Space-level default; individual spaces may override.
	SpaceWriteBufferSize uint64

	// Meta client / heartbeat.
	MetaClientLease time.Duration

	// Etcd-backed shard lock manager.
	EtcdEndpoints []string
	EtcdRootPath string
	EtcdClusterName string
	EtcdShardLockLeaseTTLSec int64
	EtcdShardLockLeaseCheckInterval time.Duration
	EtcdRPCTimeout time.Duration

	// Dragonboat-backed shard replication.
	DataDir string
	RaftAddresses []string
	NumShards int
	ReplicationFactor int
	ClusterID uint64
	DataSnapshotEntries uint64
	DataCompactionOverhead uint64

	// Flush worker pool sizing.
	FlushWorkerCount int
}

// DefaultConfig returns a Config with conservative defaults matching the
// behavior CeresDB documents for an un-tuned single node.
func DefaultConfig() Config {
	return Config{
		NodeID: 0,
		DbWriteBufferSize: 512 * 1024 * 1024,
		SpaceWriteBufferSize: 256 * 1024 * 1024,
		MaxRetryFlushLimit: 3,
		MetaClientLease: 10 * time.Second,
		EtcdShardLockLeaseTTLSec: 30,
		EtcdShardLockLeaseCheckInterval: 5 * time.Second,
		EtcdRPCTimeout: 5 * time.Second,
		ReplicationFactor: 3,
		NumShards: 1,
		DataSnapshotEntries: 1000,
		DataCompactionOverhead: 500,
		FlushWorkerCount: 4,
	}
}
