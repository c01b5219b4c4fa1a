// Package write implements the table write orchestrator: validate,
// preprocess (schema compatibility + flush triggers), encode, optional
// split, and the per-batch WAL-append + memtable-install loop. Grounded
// directly on original_source/analytic_engine/src/instance/write.rs, the
// single file this whole package is ported from, rendered in idiomatic Go
// (explicit error returns, context.Context on the blocking WAL/meta calls,
// mutex-held critical sections instead of async/await).
package write

import (
	"github.com/aetherdb/engine/common"
)

// Batch is one (encoded bytes, RowGroupSlicer) pair ready for WAL append.
// Slicing a Go slice never copies its backing array, so a Batch built by
// Split shares storage with the original encoded rows and RowGroup — the
// "Integrate" and "Splitted" cases differ only in how many Batches come
// out, never in whether any copying happened.
type Batch struct {
	Rows []common.EncodedRow
	Slicer common.RowGroupSlicer
}

// ComputeBatches walks rowSizes (the byte length of each encoded row) and
// returns the half-open batch end indexes. When maxBytesPerBatch is 0
// every row becomes its own batch; a batch may exceed maxBytesPerBatch by
// at most one row.
func ComputeBatches(rowSizes []int, maxBytesPerBatch int) []int {
	var ends []int
	current := 0
	for i, size := range rowSizes {
		current += size
		if current >= maxBytesPerBatch {
			ends = append(ends, i+1)
			current = 0
		}
	}
	if current > 0 {
		ends = append(ends, len(rowSizes))
	}
	return ends
}

// Split partitions encodedRows/group into Batches using ComputeBatches. If
// the computed end-index list has at most one entry, it returns a single
// Batch covering the whole input (the "Integrate" case); otherwise one
// Batch per end-index (the "Splitted" case). Row order and content are
// preserved exactly; concatenating every Batch's Rows reproduces
// encodedRows.
func Split(encodedRows []common.EncodedRow, group *common.RowGroup, maxBytesPerBatch int) []Batch {
	sizes := make([]int, len(encodedRows))
	for i, r := range encodedRows {
		sizes[i] = len(r)
	}
	ends := ComputeBatches(sizes, maxBytesPerBatch)

	if len(ends) <= 1 {
		return []Batch{{Rows: encodedRows, Slicer: common.FullSlicer(group)}}
	}

	batches := make([]Batch, 0, len(ends))
	start := 0
	for _, end := range ends {
		batches = append(batches, Batch{
			Rows: encodedRows[start:end],
			Slicer: common.NewRowGroupSlicer(group, start, end),
		})
		start = end
	}
	return batches
}
