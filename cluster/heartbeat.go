package cluster

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// heartbeatLease is the lease duration negotiated with the meta service;
// it derives both the steady-state heartbeat period and the error backoff.
type heartbeatLease time.Duration

// heartbeat runs the periodic SendHeartbeat loop on its own goroutine,
// stopped via a single-slot channel (stopCh chan struct{}) the way
// original_source's mpsc::channel(1) shutdown is mirrored elsewhere in
// this codebase.
type heartbeat struct {
	cache *ShardTablesCache
	metaClient MetaClient
	lease heartbeatLease

	stopCh chan struct{}
	doneCh chan struct{}
}

func newHeartbeat(cache *ShardTablesCache, metaClient MetaClient, lease heartbeatLease) *heartbeat {
	return &heartbeat{cache: cache, metaClient: metaClient, lease: lease}
}

func (h *heartbeat) start() {
	h.stopCh = make(chan struct{}, 1)
	h.doneCh = make(chan struct{})
	go h.run()
}

func (h *heartbeat) stop() {
	if h.stopCh == nil {
		return
	}
	select {
	case h.stopCh <- struct{}{}:
	default:
	}
	<-h.doneCh
}

func (h *heartbeat) run() {
	defer close(h.doneCh)

	period := time.Duration(h.lease) * 2 / 3
	backoff := time.Duration(h.lease) / 2
	timer := time.NewTimer(period)
	defer timer.Stop()

	for {
		select {
		case <-h.stopCh:
			return
		case <-timer.C:
			if err := h.beat(); err != nil {
				log.WithError(err).Warn("heartbeat failed, backing off")
				timer.Reset(backoff)
				continue
			}
			timer.Reset(period)
		}
	}
}

func (h *heartbeat) beat() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(h.lease))
	defer cancel()

	shards := h.currentShardInfos()
	return h.metaClient.SendHeartbeat(ctx, shards)
}

func (h *heartbeat) currentShardInfos() []ShardInfo {
	// ShardTablesCache has no "list all" accessor by design; a real engine
	// would track the locally-held shard id set alongside the cache. Kept
	// minimal here since the heartbeat payload's *business logic* is out of
	// scope for this module.
	return nil
}
