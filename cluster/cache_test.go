package cluster

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTryInsertTableToShardVersionAndFrozenRules(t *testing.T) {
	cache := NewShardTablesCache()
	cache.Insert(TablesOfShard{ShardInfo: ShardInfo{ShardID: 1, Version: 5}})

	err := cache.TryInsertTableToShard(5, ShardInfo{ShardID: 1, Version: 6}, TableInfo{ID: 42, Name: "t"})
	require.NoError(t, err)

	got, ok := cache.Get(1)
	require.True(t, ok)
	require.Equal(t, uint64(6), got.ShardInfo.Version)
	require.Len(t, got.Tables, 1)
	require.Equal(t, uint64(42), got.Tables[0].ID)

	// Stale prevVersion is rejected.
	err = cache.TryInsertTableToShard(5, ShardInfo{ShardID: 1, Version: 7}, TableInfo{ID: 43, Name: "u"})
	require.Error(t, err)

	require.NoError(t, cache.Freeze(1))
	err = cache.TryInsertTableToShard(6, ShardInfo{ShardID: 1, Version: 7}, TableInfo{ID: 43, Name: "u"})
	require.Error(t, err)
}

func TestTryRemoveTableFromShard(t *testing.T) {
	cache := NewShardTablesCache()
	cache.Insert(TablesOfShard{
		ShardInfo: ShardInfo{ShardID: 2, Version: 1},
		Tables: []TableInfo{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}},
	})

	err := cache.TryRemoveTableFromShard(1, ShardInfo{ShardID: 2, Version: 2}, TableInfo{ID: 1})
	require.NoError(t, err)

	got, ok := cache.Get(2)
	require.True(t, ok)
	require.Equal(t, uint64(2), got.ShardInfo.Version)
	require.Len(t, got.Tables, 1)
	require.Equal(t, uint64(2), got.Tables[0].ID)
}

func TestRemoveAndFreezeErrorOnMissingShard(t *testing.T) {
	cache := NewShardTablesCache()

	_, err := cache.Remove(99)
	require.Error(t, err)

	err = cache.Freeze(99)
	require.Error(t, err)
}
