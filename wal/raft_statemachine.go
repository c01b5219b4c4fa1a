package wal

import (
	"encoding/binary"
	"io"

	"github.com/cockroachdb/pebble"
	"github.com/lni/dragonboat/v3/statemachine"

	"github.com/aetherdb/engine/errors"
)

const (
	walProposeCmdAppend byte = 1
	walLookupPing byte = 1
)

func encodeWalProposeCmd(payload []byte) []byte {
	buf := make([]byte, 0, len(payload)+1)
	buf = append(buf, walProposeCmdAppend)
	return append(buf, payload...)
}

// walStateMachine is the Raft on-disk state machine backing one shard's WAL
// group: Update assigns the next sequence number and appends the payload to
// the group's replicated pebble store, an "apply then persist index" shape
// trimmed to a single append command rather than a general write/
// forward-write/remove-node/delete-range command set (none of which this
// module needs).
type walStateMachine struct {
	db *pebble.DB
	shardID uint64
	nextSeq uint64
}

func newWalStateMachine(db *pebble.DB, shardID uint64) *walStateMachine {
	return &walStateMachine{db: db, shardID: shardID}
}

func (s *walStateMachine) Open(_ <-chan struct{}) (uint64, error) {
	seq, err := loadRaftAppliedSequence(s.db, s.shardID)
	if err != nil {
		return 0, err
	}
	s.nextSeq = seq
	return seq, nil
}

func (s *walStateMachine) Update(entries []statemachine.Entry) ([]statemachine.Entry, error) {
	batch := s.db.NewBatch()
	for i, entry := range entries {
		cmd := entry.Cmd
		if len(cmd) == 0 || cmd[0] != walProposeCmdAppend {
			return nil, errors.Errorf("unexpected raft wal command %v", cmd)
		}
		s.nextSeq++
		seq := s.nextSeq
		key := raftEntryKey(s.shardID, seq)
		if err := batch.Set(key, cmd[1:], nil); err != nil {
			return nil, errors.WithStack(err)
		}
		entries[i].Result = statemachine.Result{Value: seq}
	}
	if err := setRaftAppliedSequence(batch, s.shardID, s.nextSeq); err != nil {
		return nil, err
	}
	if err := s.db.Apply(batch, pebble.Sync); err != nil {
		return nil, errors.WithStack(err)
	}
	return entries, nil
}

func (s *walStateMachine) Lookup(req interface{}) (interface{}, error) {
	buf, ok := req.([]byte)
	if !ok || len(buf) == 0 || buf[0] != walLookupPing {
		return nil, errors.Errorf("unexpected raft wal lookup request")
	}
	return []byte{1}, nil
}

func (s *walStateMachine) Sync() error {
	return errors.WithStack(s.db.Flush())
}

func (s *walStateMachine) PrepareSnapshot() (interface{}, error) {
	return s.db.NewSnapshot(), nil
}

func (s *walStateMachine) SaveSnapshot(ctx interface{}, w io.Writer, _ <-chan struct{}) error {
	snap, ok := ctx.(*pebble.Snapshot)
	if !ok {
		return errors.Errorf("unexpected raft wal snapshot context type %T", ctx)
	}
	defer snap.Close()

	iter := snap.NewIter(&pebble.IterOptions{LowerBound: raftShardPrefix(s.shardID), UpperBound: raftShardPrefix(s.shardID + 1)})
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		if err := writeSnapshotRecord(w, iter.Key(), iter.Value()); err != nil {
			return err
		}
	}
	return nil
}

func (s *walStateMachine) RecoverFromSnapshot(r io.Reader, _ <-chan struct{}) error {
	batch := s.db.NewBatch()
	for {
		key, value, err := readSnapshotRecord(r)
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if err := batch.Set(key, value, nil); err != nil {
			return errors.WithStack(err)
		}
	}
	return errors.WithStack(s.db.Apply(batch, pebble.Sync))
}

func (s *walStateMachine) Close() error { return nil }

func raftShardPrefix(shardID uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, shardID)
	return buf
}

func raftEntryKey(shardID, seq uint64) []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[:8], shardID)
	binary.BigEndian.PutUint64(buf[8:], seq)
	return buf
}

func raftAppliedSequenceKey(shardID uint64) []byte {
	buf := make([]byte, 9)
	binary.BigEndian.PutUint64(buf[:8], shardID)
	buf[8] = 0xff // sorts after every entry key of the same shard, same width class
	return buf
}

func loadRaftAppliedSequence(db *pebble.DB, shardID uint64) (uint64, error) {
	v, closer, err := db.Get(raftAppliedSequenceKey(shardID))
	if err == pebble.ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, errors.WithStack(err)
	}
	defer closer.Close()
	return binary.BigEndian.Uint64(v), nil
}

func setRaftAppliedSequence(batch *pebble.Batch, shardID, seq uint64) error {
	v := make([]byte, 8)
	binary.BigEndian.PutUint64(v, seq)
	return errors.WithStack(batch.Set(raftAppliedSequenceKey(shardID), v, nil))
}

func writeSnapshotRecord(w io.Writer, key, value []byte) error {
	if err := writeLengthPrefixed(w, key); err != nil {
		return err
	}
	return writeLengthPrefixed(w, value)
}

func writeLengthPrefixed(w io.Writer, b []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(b)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return errors.WithStack(err)
	}
	if _, err := w.Write(b); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

func readSnapshotRecord(r io.Reader) (key, value []byte, err error) {
	key, err = readLengthPrefixed(r)
	if err != nil {
		return nil, nil, err
	}
	value, err = readLengthPrefixed(r)
	if err != nil {
		return nil, nil, err
	}
	return key, value, nil
}

func readLengthPrefixed(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, errors.WithStack(err)
	}
	return buf, nil
}
