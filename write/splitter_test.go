package write

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aetherdb/engine/common"
)

func TestComputeBatchesScenarios(t *testing.T) {
	// (a)
	require.Equal(t, []int{2, 3, 4, 5}, ComputeBatches([]int{1, 2, 3, 4, 5}, 2))
	// (b)
	require.Equal(t, []int{2, 3, 4}, ComputeBatches([]int{50, 50, 100, 10}, 100))
	// (c)
	require.Equal(t, []int{1, 2}, ComputeBatches([]int{0, 0}, 0))
	// (d)
	require.Nil(t, ComputeBatches([]int{}, 10))
}

func schemaForSplitterTests() *common.Schema {
	return &common.Schema{
		Columns: []common.ColumnSchema{
			{Name: "ts", Kind: common.KindTimestamp},
			{Name: "v", Kind: common.KindInt64},
		},
		TimestampIndex: 0,
	}
}

func rowGroupOfSize(t *testing.T, n int) (*common.RowGroup, []common.EncodedRow) {
	schema := schemaForSplitterTests()
	rows := make([]common.Row, n)
	for i := range rows {
		rows[i] = common.NewRow([]common.Datum{common.NewTimestampDatum(int64(i)), common.NewInt64Datum(int64(i))})
	}
	group := common.NewRowGroup(schema, rows)
	idx := common.IndexInWriterSchema{Indexes: []int{0, 1}}
	encoded, err := common.EncodeRowGroupForWAL(group, schema, idx)
	require.NoError(t, err)
	return group, encoded
}

func TestSplitIntegrateWhenAtMostOneBatch(t *testing.T) {
	group, encoded := rowGroupOfSize(t, 3)
	batches := Split(encoded, group, 10_000)
	require.Len(t, batches, 1)
	require.Equal(t, 3, batches[0].Slicer.NumRows())
}

func TestSplitPreservesOrderAndContent(t *testing.T) {
	group, encoded := rowGroupOfSize(t, 5)
	sizes := make([]int, len(encoded))
	for i, r := range encoded {
		sizes[i] = len(r)
	}
	// Force a tiny threshold so every row splits on its own.
	batches := Split(encoded, group, 1)
	require.True(t, len(batches) > 1)

	var reconstructed []common.EncodedRow
	total := 0
	for _, b := range batches {
		reconstructed = append(reconstructed, b.Rows...)
		total += b.Slicer.NumRows()
	}
	require.Equal(t, 5, total)
	require.Equal(t, encoded, reconstructed)
}

func TestSplitEmptyRowGroupIsIntegrate(t *testing.T) {
	group, encoded := rowGroupOfSize(t, 0)
	batches := Split(encoded, group, 10)
	require.Len(t, batches, 1)
	require.Equal(t, 0, batches[0].Slicer.NumRows())
}
