package table

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aetherdb/engine/cluster"
	"github.com/aetherdb/engine/common"
	"github.com/aetherdb/engine/memtable"
)

func testSchema() *common.Schema {
	return &common.Schema{
		Columns: []common.ColumnSchema{{Name: "ts", Kind: common.KindTimestamp}},
		TimestampIndex: 0,
	}
}

func TestFloorDivNegativeTimestampsBucketCorrectly(t *testing.T) {
	cases := []struct{ a, b, want int64 }{
		{10, 3, 3},
		{-1, 3, -1},
		{-3, 3, -1},
		{-4, 3, -2},
		{0, 3, 0},
	}
	for _, c := range cases {
		require.Equal(t, c.want, floorDiv(c.a, c.b))
	}
}

func TestFindOrCreateMutableBucketsNegativeTimestamps(t *testing.T) {
	d := NewData(1, "t", testSchema(), cluster.ShardInfo{ShardID: 1}, 10*time.Nanosecond, 0, NewOpSerialExecutor(nil))

	mt, err := d.FindOrCreateMutable(-5, testSchema())
	require.NoError(t, err)
	require.True(t, mt.AcceptTimestamp(-5))
	require.True(t, mt.AcceptTimestamp(-10))
	require.False(t, mt.AcceptTimestamp(0))

	mt2, err := d.FindOrCreateMutable(-10, testSchema())
	require.NoError(t, err)
	require.Same(t, mt, mt2)
}

func TestShouldFlushTriggersAtEveryLevel(t *testing.T) {
	instance := NewInstance(nil, nil, 100, nil, 3)
	space := NewSpace(1, "space", 50)
	tableData := NewData(1, "t", testSchema(), cluster.ShardInfo{ShardID: 1}, time.Hour, 20, NewOpSerialExecutor(nil))
	space.AddTable(tableData)
	instance.AddSpace(space)

	require.False(t, instance.ShouldFlushInstance())
	require.False(t, space.ShouldFlushSpace())
	require.False(t, tableData.ShouldFlushTable())

	_, err := tableData.FindOrCreateMutable(1, testSchema())
	require.NoError(t, err)
	mt, err := tableData.FindOrCreateMutable(1, testSchema())
	require.NoError(t, err)
	row := common.NewRow([]common.Datum{common.NewTimestampDatum(1)})
	require.NoError(t, mt.Put(nil, memtable.NewKeySequence(1, 0), row, testSchema(), 1))

	require.True(t, tableData.MemtableMemoryUsage() > 0)
	require.True(t, tableData.ShouldFlushTable())
	require.True(t, space.ShouldFlushSpace())
	require.True(t, instance.ShouldFlushInstance())

	require.Equal(t, tableData, space.MaxUsageTable())
	require.Equal(t, space, instance.MaxUsageSpace())
}

func TestDrainMutableMemtablesSwapsToImmutable(t *testing.T) {
	d := NewData(1, "t", testSchema(), cluster.ShardInfo{ShardID: 1}, time.Hour, 0, NewOpSerialExecutor(nil))
	_, err := d.FindOrCreateMutable(1, testSchema())
	require.NoError(t, err)

	drained := d.DrainMutableMemtables()
	require.Len(t, drained, 1)
	require.Zero(t, d.MemtableMemoryUsage())
}

func TestSetExpiryBoundary(t *testing.T) {
	d := NewData(1, "t", testSchema(), cluster.ShardInfo{ShardID: 1}, time.Hour, 0, NewOpSerialExecutor(nil))
	require.False(t, d.IsExpired(-1000))
	d.SetExpiryBoundary(100)
	require.True(t, d.IsExpired(50))
	require.False(t, d.IsExpired(100))
	require.False(t, d.IsExpired(150))
}
