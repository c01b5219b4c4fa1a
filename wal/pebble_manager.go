package wal

import (
	"context"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"

	"github.com/aetherdb/engine/common"
	"github.com/aetherdb/engine/errors"
	"github.com/aetherdb/engine/idalloc"
)

// PebbleManager is the production WAL implementation: every location gets
// its own monotonic idalloc.Allocator (ceiling persisted as a dedicated
// pebble key), and every append is a synced pebble.Batch write keyed by
// (location, sequence) — the same "batch + Sync" shape
// ShardOnDiskStateMachine.handleWrite uses for raft-proposed writes, minus
// the raft proposal itself since WAL durability here is local, not
// replicated.
type PebbleManager struct {
	db *pebble.DB
	step uint64

	mu sync.Mutex
	allocators map[string]*idalloc.Allocator
}

// NewPebbleManager uses the already-open db as the backing store. step controls
// how often each location's sequence ceiling is persisted.
func NewPebbleManager(db *pebble.DB, step uint64) *PebbleManager {
	return &PebbleManager{db: db, step: step, allocators: make(map[string]*idalloc.Allocator)}
}

func locationKey(loc WalLocation) []byte {
	buf := common.AppendUint64ToBufferBE(nil, loc.TableID)
	buf = common.AppendUint64ToBufferBE(buf, loc.ShardInfo.ShardID)
	return buf
}

func ceilingKey(loc WalLocation) []byte {
	return append([]byte("wal/ceiling/"), locationKey(loc)...)
}

func entryKey(loc WalLocation, seq SequenceNumber) []byte {
	buf := append([]byte("wal/entry/"), locationKey(loc)...)
	return common.AppendUint64ToBufferBE(buf, seq)
}

func (m *PebbleManager) allocatorFor(loc WalLocation) (*idalloc.Allocator, error) {
	key := string(locationKey(loc))

	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.allocators[key]; ok {
		return a, nil
	}

	lastID, maxID, err := m.loadCeiling(loc)
	if err != nil {
		return nil, err
	}
	a := idalloc.New(lastID, maxID, m.step)
	m.allocators[key] = a
	return a, nil
}

func (m *PebbleManager) loadCeiling(loc WalLocation) (lastID, maxID uint64, err error) {
	v, closer, err := m.db.Get(ceilingKey(loc))
	if err == pebble.ErrNotFound {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, errors.WithStack(err)
	}
	defer common.InvokeCloser(closer)
	maxID, _ = common.ReadUint64FromBufferLE(v, 0)
	return maxID, maxID, nil
}

func (m *PebbleManager) persistCeiling(loc WalLocation) idalloc.PersistFunc {
	return func(nextMaxID uint64) error {
		buf := common.AppendUint64ToBufferLE(nil, nextMaxID)
		if err := m.db.Set(ceilingKey(loc), buf, pebble.Sync); err != nil {
			return errors.WithStack(err)
		}
		return nil
	}
}

// Write appends batch.Payload durably and returns the sequence number
// assigned to it. It never hands out a sequence for an append that did not
// complete: the sequence is minted first but only returned once the pebble
// batch is successfully synced; a failed append leaves that sequence unused.
func (m *PebbleManager) Write(ctx context.Context, batch LogBatch) (SequenceNumber, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}

	alloc, err := m.allocatorFor(batch.Location)
	if err != nil {
		return 0, err
	}

	var seq SequenceNumber
	persist := m.persistCeiling(batch.Location)

	// The allocator and the pebble write are sequenced, not transactional:
	// allocator.Alloc only advances in-memory state after its own persist
	// succeeds, so a crash between minting seq and writing the entry below
	// can at worst strand an unused sequence number, never reuse one.
	seq, err = alloc.Alloc(persist)
	if err != nil {
		return 0, errors.WithStack(err)
	}

	b := m.db.NewBatch()
	defer common.InvokeCloser(b)
	if err := b.Set(entryKey(batch.Location, seq), batch.Payload, nil); err != nil {
		return 0, errors.WithStack(err)
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return 0, errors.WithStack(err)
	}
	return seq, nil
}

func (m *PebbleManager) GetStatistics() string {
	m.mu.Lock()
	n := len(m.allocators)
	m.mu.Unlock()
	return fmt.Sprintf("wal: %d active locations", n)
}
