package idalloc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocIDMonotoneAndPersistCeilings(t *testing.T) {
	allocator := New(0, 0, 100)

	var persisted []uint64
	persistFn := func(nextMax uint64) error {
		persisted = append(persisted, nextMax)
		return nil
	}

	for i := uint64(1); i <= 100; i++ {
		id, err := allocator.Alloc(persistFn)
		require.NoError(t, err)
		require.Equal(t, i, id)
	}
	require.Equal(t, []uint64{100}, persisted)

	for i := uint64(101); i <= 200; i++ {
		id, err := allocator.Alloc(persistFn)
		require.NoError(t, err)
		require.Equal(t, i, id)
	}
	require.Equal(t, []uint64{100, 200}, persisted)
}

func TestAllocIDPersistFailureLeavesStateUnchanged(t *testing.T) {
	allocator := New(0, 0, 10)

	for i := uint64(1); i <= 10; i++ {
		id, err := allocator.Alloc(func(uint64) error { return nil })
		require.NoError(t, err)
		require.Equal(t, i, id)
	}

	_, err := allocator.Alloc(func(uint64) error { return assertError })
	require.Error(t, err)

	// Retry succeeds and resumes exactly where it left off.
	id, err := allocator.Alloc(func(nextMax uint64) error {
		require.Equal(t, uint64(20), nextMax)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, uint64(11), id)
}

var assertError = &testPersistError{}

type testPersistError struct{}

func (e *testPersistError) Error() string { return "persist failed" }
