package flush

import (
	"github.com/aetherdb/engine/common"
)

// SegmentWriter converts flushed rows into an immutable segment. Real
// segment/SST internals (compaction, indexing) are out of scope; this
// is a capability boundary only.
type SegmentWriter interface {
	WriteSegment(tableID uint64, rows []common.Row) (segmentID uint64, err error)
}
