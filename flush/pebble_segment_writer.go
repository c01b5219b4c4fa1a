package flush

import (
	"sync/atomic"

	"github.com/cockroachdb/pebble"

	"github.com/aetherdb/engine/common"
	"github.com/aetherdb/engine/errors"
)

// PebbleSegmentWriter is a demonstration SegmentWriter: it writes each
// flushed row under a dedicated pebble key range, not a real sorted-string
// table. The on-disk SST layer is explicitly out of scope; this exists
// only so flush.WorkerPool has something real to exercise.
type PebbleSegmentWriter struct {
	db *pebble.DB
	nextSeg uint64
}

func NewPebbleSegmentWriter(db *pebble.DB) *PebbleSegmentWriter {
	return &PebbleSegmentWriter{db: db}
}

func (w *PebbleSegmentWriter) WriteSegment(tableID uint64, rows []common.Row) (uint64, error) {
	segmentID := atomic.AddUint64(&w.nextSeg, 1)

	batch := w.db.NewBatch()
	defer common.InvokeCloser(batch)
	for i, row := range rows {
		key := append([]byte("segment/"), common.AppendUint64ToBufferBE(nil, tableID)...)
		key = common.AppendUint64ToBufferBE(key, segmentID)
		key = common.AppendUint64ToBufferBE(key, uint64(i))
		val := encodeRowForSegment(row)
		if err := batch.Set(key, val, nil); err != nil {
			return 0, errors.WithStack(err)
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return 0, errors.WithStack(err)
	}
	return segmentID, nil
}

func encodeRowForSegment(row common.Row) []byte {
	var buf []byte
	buf = common.AppendUint32ToBufferLE(buf, uint32(len(row.Datums)))
	for _, d := range row.Datums {
		switch d.Kind {
		case common.KindString:
			buf = common.AppendStringToBufferLE(buf, d.AsString())
		case common.KindBytes:
			b := d.AsBytes()
			buf = common.AppendUint32ToBufferLE(buf, uint32(len(b)))
			buf = append(buf, b...)
		case common.KindBool:
			var v uint64
			if d.AsBool() {
				v = 1
			}
			buf = common.AppendUint64ToBufferLE(buf, v)
		default:
			buf = common.AppendUint64ToBufferLE(buf, uint64(d.AsInt64()))
		}
	}
	return buf
}
