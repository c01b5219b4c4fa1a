package write

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aetherdb/engine/cluster"
	"github.com/aetherdb/engine/common"
	aetherrors "github.com/aetherdb/engine/errors"
	"github.com/aetherdb/engine/flush"
	"github.com/aetherdb/engine/memtable"
	"github.com/aetherdb/engine/table"
	"github.com/aetherdb/engine/wal"
)

type fakeWalManager struct {
	seq atomic.Uint64
}

func (f *fakeWalManager) Write(_ context.Context, _ wal.LogBatch) (wal.SequenceNumber, error) {
	return f.seq.Add(1), nil
}

func (f *fakeWalManager) GetStatistics() string { return "fake" }

type fakeScheduler struct{}

func (fakeScheduler) Submit(context.Context, flush.TableFlushOptions, flush.FlushTarget) error {
	return nil
}

type failingScheduler struct{}

func (failingScheduler) Submit(context.Context, flush.TableFlushOptions, flush.FlushTarget) error {
	return errors.New("flush queue full")
}

func newTestWriter(t *testing.T, schema *common.Schema) (*Writer, *table.Data) {
	t.Helper()
	return newTestWriterWithFlush(t, schema, fakeScheduler{}, 0)
}

// newTestWriterWithFlush builds a writer whose table's serial executor
// submits flushes through scheduler, with flushThresholdBytes as the
// table-level trigger threshold (0 disables it).
func newTestWriterWithFlush(t *testing.T, schema *common.Schema, scheduler flush.Scheduler, flushThresholdBytes uint64) (*Writer, *table.Data) {
	t.Helper()
	instance := table.NewInstance(&fakeWalManager{}, scheduler, 0, nil, 1)
	space := table.NewSpace(1, "space", 0)
	serialExec := table.NewOpSerialExecutor(scheduler)
	tableData := table.NewData(1, "metrics", schema, cluster.ShardInfo{ShardID: 1}, time.Hour, flushThresholdBytes, serialExec)
	space.AddTable(tableData)
	instance.AddSpace(space)
	return NewWriter(instance, space, tableData), tableData
}

func schemaNoKey() *common.Schema {
	return &common.Schema{
		Columns: []common.ColumnSchema{
			{Name: "ts", Kind: common.KindTimestamp},
			{Name: "v", Kind: common.KindInt64},
		},
		TimestampIndex: 0,
	}
}

// Scenario (g): a 3-row request whose row 1 has an expired timestamp; row 0
// and row 2 are installed under KeySequence (S,0) and (S,2); returned count
// is 3; table.last_sequence == S.
func TestWriterEndToEndSkipsExpiredRow(t *testing.T) {
	schema := schemaNoKey()
	writer, tableData := newTestWriter(t, schema)
	tableData.SetExpiryBoundary(50)

	rows := []common.Row{
		common.NewRow([]common.Datum{common.NewTimestampDatum(100), common.NewInt64Datum(1)}),
		common.NewRow([]common.Datum{common.NewTimestampDatum(10), common.NewInt64Datum(2)}), // expired
		common.NewRow([]common.Datum{common.NewTimestampDatum(200), common.NewInt64Datum(3)}),
	}
	group := common.NewRowGroup(schema, rows)

	n, err := writer.Write(context.Background(), Request{RowGroup: group})
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, uint64(1), tableData.LastSequence())

	mts := tableData.DrainMutableMemtables()
	require.Len(t, mts, 1)
	mt, ok := mts[0].(*memtable.Table)
	require.True(t, ok)
	require.Equal(t, 2, mt.NumRows())
	require.Equal(t, []memtable.KeySequence{
		memtable.NewKeySequence(1, 0),
		memtable.NewKeySequence(1, 2),
	}, mt.KeySequences())
}

func TestWriterRejectsTooManyRows(t *testing.T) {
	schema := schemaNoKey()
	writer, _ := newTestWriter(t, schema)
	group := common.NewRowGroup(schema, make([]common.Row, memtable.MaxRowsPerBatch))
	_, err := writer.Write(context.Background(), Request{RowGroup: group})
	require.Error(t, err)
}

func TestWriterRejectsDroppedTable(t *testing.T) {
	schema := schemaNoKey()
	writer, tableData := newTestWriter(t, schema)
	tableData.SetDropped()

	group := common.NewRowGroup(schema, []common.Row{
		common.NewRow([]common.Datum{common.NewTimestampDatum(1), common.NewInt64Datum(1)}),
	})
	_, err := writer.Write(context.Background(), Request{RowGroup: group})
	require.Error(t, err)
}

func TestWriterAllowsExtraNullableColumnOnTableSchema(t *testing.T) {
	tableSchema := &common.Schema{
		Columns: []common.ColumnSchema{
			{Name: "ts", Kind: common.KindTimestamp},
			{Name: "v", Kind: common.KindInt64},
			{Name: "note", Kind: common.KindString, Nullable: true},
		},
		TimestampIndex: 0,
	}
	writer, _ := newTestWriter(t, tableSchema)

	writerSchema := &common.Schema{
		Columns: []common.ColumnSchema{
			{Name: "ts", Kind: common.KindTimestamp},
			{Name: "v", Kind: common.KindInt64},
		},
		TimestampIndex: 0,
	}
	group := common.NewRowGroup(writerSchema, []common.Row{
		common.NewRow([]common.Datum{common.NewTimestampDatum(1), common.NewInt64Datum(9)}),
	})

	n, err := writer.Write(context.Background(), Request{RowGroup: group})
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

// A flush submission failure on the writer's own table must propagate as
// FlushTable and fail the write, not just be logged.
func TestWriterPropagatesOwnTableFlushSubmitFailure(t *testing.T) {
	schema := schemaNoKey()
	writer, _ := newTestWriterWithFlush(t, schema, failingScheduler{}, 1)

	newRow := func(v int64) common.Row {
		return common.NewRow([]common.Datum{common.NewTimestampDatum(v), common.NewInt64Datum(v)})
	}

	// First write: table-level trigger checks usage from *before* this
	// write's rows are installed, so it sees zero usage and doesn't fire.
	n, err := writer.Write(context.Background(), Request{RowGroup: common.NewRowGroup(schema, []common.Row{newRow(1)})})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	// Second write: the table's memtable now holds the first row, so
	// should_flush_table fires and the failing scheduler's Submit error
	// must fail this write.
	_, err = writer.Write(context.Background(), Request{RowGroup: common.NewRowGroup(schema, []common.Row{newRow(2)})})
	require.Error(t, err)
	var flushErr *aetherrors.FlushTableError
	require.ErrorAs(t, err, &flushErr)
}

// Once a background flush has exhausted its retries and marked the table
// failed, every subsequent write must be rejected until cleared.
func TestWriterRejectsAfterBackgroundFlushFailed(t *testing.T) {
	schema := schemaNoKey()
	writer, tableData := newTestWriter(t, schema)
	tableData.MarkFlushFailed(aetherrors.NewBackgroundFlushFailed("disk full"))

	group := common.NewRowGroup(schema, []common.Row{
		common.NewRow([]common.Datum{common.NewTimestampDatum(1), common.NewInt64Datum(1)}),
	})
	_, err := writer.Write(context.Background(), Request{RowGroup: group})
	require.Error(t, err)
	var bgErr *aetherrors.BackgroundFlushFailedError
	require.ErrorAs(t, err, &bgErr)

	tableData.ClearFlushFailed()
	n, err := writer.Write(context.Background(), Request{RowGroup: group})
	require.NoError(t, err)
	require.Equal(t, 1, n)
}
