// Package shardlock implements the construction-time validated, etcd-backed
// shard lock surface cluster.Facade depends on. Heartbeat/lease-renewal
// internals are out of scope; this package only builds the lock key
// prefix the way original_source/cluster/src/cluster_impl.rs's
// shard_lock_key_prefix does, and exposes TryLock/Unlock via
// go.etcd.io/etcd/client/v3/concurrency sessions.
package shardlock

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/concurrency"

	"github.com/aetherdb/engine/errors"
)

// KeyPrefix validates and builds the shard lock key prefix: root must start
// with '/', clusterName must be non-empty.
func KeyPrefix(rootPath, clusterName string) (string, error) {
	if !strings.HasPrefix(rootPath, "/") {
		return "", errors.NewInvalidArguments("etcd root path must start with '/': " + rootPath)
	}
	if clusterName == "" {
		return "", errors.NewInvalidArguments("cluster name must be non-empty")
	}
	return rootPath + "/" + clusterName + "/shards", nil
}

// Manager hands out one etcd-backed mutex per shard id, rooted under
// KeyPrefix. Satisfies cluster.ShardLockManager.
type Manager struct {
	client *clientv3.Client
	keyPrefix string
	leaseTTL int64
	rpcTimeout time.Duration

	mu sync.Mutex
	locks map[uint64]*heldLock
}

type heldLock struct {
	session *concurrency.Session
	mutex *concurrency.Mutex
}

// NewManager validates (rootPath, clusterName) and constructs a Manager
// bound to client. leaseTTLSec is the etcd lease TTL backing each session.
func NewManager(client *clientv3.Client, rootPath, clusterName string, leaseTTLSec int64, rpcTimeout time.Duration) (*Manager, error) {
	prefix, err := KeyPrefix(rootPath, clusterName)
	if err != nil {
		return nil, err
	}
	return &Manager{
		client: client,
		keyPrefix: prefix,
		leaseTTL: leaseTTLSec,
		rpcTimeout: rpcTimeout,
		locks: make(map[uint64]*heldLock),
	}, nil
}

func (m *Manager) lockKey(shardID uint64) string {
	return m.keyPrefix + "/" + strconv.FormatUint(shardID, 10)
}

// TryLock attempts to acquire the lock for shardID without blocking beyond
// rpcTimeout. Returns (false, nil) on contention, distinct from an error.
func (m *Manager) TryLock(ctx context.Context, shardID uint64) (bool, error) {
	m.mu.Lock()
	if _, held := m.locks[shardID]; held {
		m.mu.Unlock()
		return true, nil
	}
	m.mu.Unlock()

	session, err := concurrency.NewSession(m.client, concurrency.WithTTL(int(m.leaseTTL)))
	if err != nil {
		return false, errors.WithStack(err)
	}
	mutex := concurrency.NewMutex(session, m.lockKey(shardID))

	lockCtx, cancel := context.WithTimeout(ctx, m.rpcTimeout)
	defer cancel()
	if err := mutex.TryLock(lockCtx); err != nil {
		_ = session.Close()
		if err == concurrency.ErrLocked {
			return false, nil
		}
		return false, errors.WithStack(err)
	}

	m.mu.Lock()
	m.locks[shardID] = &heldLock{session: session, mutex: mutex}
	m.mu.Unlock()
	return true, nil
}

// Unlock releases the shard's lock, if held by this manager.
func (m *Manager) Unlock(ctx context.Context, shardID uint64) error {
	m.mu.Lock()
	lock, held := m.locks[shardID]
	if held {
		delete(m.locks, shardID)
	}
	m.mu.Unlock()
	if !held {
		return nil
	}

	unlockCtx, cancel := context.WithTimeout(ctx, m.rpcTimeout)
	defer cancel()
	err := lock.mutex.Unlock(unlockCtx)
	_ = lock.session.Close()
	if err != nil {
		return errors.WithStack(err)
	}
	return nil
}
