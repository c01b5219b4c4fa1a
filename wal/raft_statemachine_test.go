package wal

import (
	"bytes"
	"testing"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/lni/dragonboat/v3/statemachine"
	"github.com/stretchr/testify/require"
)

func openTestPebble(t *testing.T) *pebble.DB {
	t.Helper()
	db, err := pebble.Open("", &pebble.Options{FS: vfs.NewMem})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestWalStateMachineUpdateAssignsIncreasingSequences(t *testing.T) {
	db := openTestPebble(t)
	sm := newWalStateMachine(db, 7)

	idx, err := sm.Open(nil)
	require.NoError(t, err)
	require.Equal(t, uint64(0), idx)

	entries := []statemachine.Entry{
		{Index: 1, Cmd: encodeWalProposeCmd([]byte("first"))},
		{Index: 2, Cmd: encodeWalProposeCmd([]byte("second"))},
	}
	out, err := sm.Update(entries)
	require.NoError(t, err)
	require.Equal(t, uint64(1), out[0].Result.Value)
	require.Equal(t, uint64(2), out[1].Result.Value)

	v, closer, err := db.Get(raftEntryKey(7, 1))
	require.NoError(t, err)
	require.Equal(t, []byte("first"), v)
	require.NoError(t, closer.Close())

	seq, err := loadRaftAppliedSequence(db, 7)
	require.NoError(t, err)
	require.Equal(t, uint64(2), seq)
}

func TestWalStateMachineOpenResumesFromAppliedSequence(t *testing.T) {
	db := openTestPebble(t)
	sm := newWalStateMachine(db, 1)
	_, err := sm.Update([]statemachine.Entry{{Index: 1, Cmd: encodeWalProposeCmd([]byte("x"))}})
	require.NoError(t, err)

	sm2 := newWalStateMachine(db, 1)
	idx, err := sm2.Open(nil)
	require.NoError(t, err)
	require.Equal(t, uint64(1), idx)

	out, err := sm2.Update([]statemachine.Entry{{Index: 2, Cmd: encodeWalProposeCmd([]byte("y"))}})
	require.NoError(t, err)
	require.Equal(t, uint64(2), out[0].Result.Value)
}

func TestWalStateMachineSnapshotRoundTrip(t *testing.T) {
	db := openTestPebble(t)
	sm := newWalStateMachine(db, 3)
	_, err := sm.Update([]statemachine.Entry{
		{Index: 1, Cmd: encodeWalProposeCmd([]byte("a"))},
		{Index: 2, Cmd: encodeWalProposeCmd([]byte("b"))},
	})
	require.NoError(t, err)

	snapCtx, err := sm.PrepareSnapshot()
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, sm.SaveSnapshot(snapCtx, &buf, nil))

	db2 := openTestPebble(t)
	sm2 := newWalStateMachine(db2, 3)
	require.NoError(t, sm2.RecoverFromSnapshot(&buf, nil))

	v, closer, err := db2.Get(raftEntryKey(3, 1))
	require.NoError(t, err)
	require.Equal(t, []byte("a"), v)
	require.NoError(t, closer.Close())
}
