package write

import (
	log "github.com/sirupsen/logrus"

	"github.com/aetherdb/engine/common"
	"github.com/aetherdb/engine/errors"
	"github.com/aetherdb/engine/memtable"
	"github.com/aetherdb/engine/table"
)

// writeMemTable installs a contiguous row slice into the correct
// time-partitioned memtables and advances their last_sequence watermarks.
// The current mutable memtable is rotated only when the next row's
// timestamp is not accepted by it; expired rows are skipped silently — no
// memtable touched, but the KeySequence index (i) still advances.
func writeMemTable(tableData *table.Data, sequence uint64, slicer common.RowGroupSlicer, idx common.IndexInWriterSchema) error {
	if slicer.IsEmpty() {
		return nil
	}

	ctx := memtable.NewPutContext(idx)
	schema := tableData.Schema()

	var current memtable.MemTable
	var wrote []memtable.MemTable
	seen := make(map[memtable.MemTable]bool)

	for i := 0; i < slicer.NumRows(); i++ {
		row := slicer.Row(i)
		ts, err := row.Timestamp(schema)
		if err != nil {
			return errors.NewWriteMemTable(tableData.Name(), err)
		}
		if tableData.IsExpired(ts) {
			continue
		}

		if current == nil || !current.AcceptTimestamp(ts) {
			mt, err := tableData.FindOrCreateMutable(ts, schema)
			if err != nil {
				return errors.NewFindMutableMemTable(tableData.Name(), err)
			}
			current = mt
			if !seen[mt] {
				seen[mt] = true
				wrote = append(wrote, mt)
			}
		}

		keySeq := memtable.NewKeySequence(sequence, uint32(i))
		if err := current.Put(ctx, keySeq, row, schema, ts); err != nil {
			return errors.NewWriteMemTable(tableData.Name(), err)
		}
	}

	for _, mt := range wrote {
		if err := mt.SetLastSequence(sequence); err != nil {
			return errors.NewUpdateMemTableSequence(err)
		}
	}

	log.WithField("table", tableData.Name()).WithField("sequence", sequence).
		WithField("wrote_memtables", len(wrote)).Trace("memtable write complete")
	return nil
}
